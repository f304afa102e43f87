package store

import "testing"

func TestUserCreateAnonymous(t *testing.T) {
	db := openTestDB(t)
	us := NewUserStore(db)

	u, err := us.CreateAnonymous()
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.ID == 0 {
		t.Error("expected non-zero ID")
	}
	if !u.Anonymous {
		t.Error("expected anonymous user")
	}
	if u.Email != "" {
		t.Errorf("email = %q, want empty", u.Email)
	}

	other, err := us.CreateAnonymous()
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if other.ID == u.ID {
		t.Error("expected distinct IDs for guests")
	}
}

func TestUserGetByIDNotFound(t *testing.T) {
	us := NewUserStore(openTestDB(t))

	u, err := us.GetByID(999)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if u != nil {
		t.Errorf("expected nil, got %+v", u)
	}
}

func TestUserUpgradeKeepsID(t *testing.T) {
	db := openTestDB(t)
	us := NewUserStore(db)
	guest := createGuest(t, db)

	u, err := us.Upgrade(guest.ID, "alice@example.com", "Alice", "+46701234567", "hash")
	if err != nil {
		t.Fatalf("upgrade: %v", err)
	}
	if u.ID != guest.ID {
		t.Errorf("ID = %d, want %d", u.ID, guest.ID)
	}
	if u.Anonymous {
		t.Error("expected credentialed user after upgrade")
	}
	if u.Email != "alice@example.com" || u.Name != "Alice" || u.Phone != "+46701234567" {
		t.Errorf("unexpected user: %+v", u)
	}

	hash, err := us.PasswordHash(u.ID)
	if err != nil {
		t.Fatalf("password hash: %v", err)
	}
	if hash != "hash" {
		t.Errorf("hash = %q, want %q", hash, "hash")
	}

	byEmail, err := us.GetByEmail("alice@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if byEmail == nil || byEmail.ID != guest.ID {
		t.Errorf("GetByEmail = %+v, want ID %d", byEmail, guest.ID)
	}
}

func TestUserUpgradeDuplicateEmail(t *testing.T) {
	db := openTestDB(t)
	us := NewUserStore(db)
	first := createGuest(t, db)
	second := createGuest(t, db)

	if _, err := us.Upgrade(first.ID, "dup@example.com", "", "", "h"); err != nil {
		t.Fatalf("first upgrade: %v", err)
	}
	if _, err := us.Upgrade(second.ID, "dup@example.com", "", "", "h"); err == nil {
		t.Error("expected unique constraint error")
	}
}

func TestUserDeleteCascadesSessions(t *testing.T) {
	db := openTestDB(t)
	us := NewUserStore(db)
	ss := NewSessionStore(db, 0)
	u := createGuest(t, db)

	sess, err := ss.Create(u.ID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := us.Delete(u.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err := ss.GetByToken(sess.Token)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got != nil {
		t.Error("expected session to be removed with its user")
	}
}
