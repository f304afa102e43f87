package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/bitematch/internal/model"
	"github.com/dukerupert/bitematch/internal/store"
)

const MinPasswordLen = 8

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrAlreadyRegistered  = errors.New("account already has credentials")
	ErrWeakPassword       = fmt.Errorf("password must be at least %d characters", MinPasswordLen)
	ErrInvalidEmail       = errors.New("invalid email address")
)

// Credentials are supplied when a guest registers.
type Credentials struct {
	Email    string
	Password string
	Name     string
	Phone    string
}

// Gateway manages guest identities, registration and sign-in on top of the
// user and session stores.
type Gateway struct {
	users    *store.UserStore
	sessions *store.SessionStore
	logger   *slog.Logger
	cost     int
}

func NewGateway(users *store.UserStore, sessions *store.SessionStore, logger *slog.Logger) *Gateway {
	return &Gateway{
		users:    users,
		sessions: sessions,
		logger:   logger,
		cost:     bcrypt.DefaultCost,
	}
}

// EnsureAnonymous resolves the session token to its user. When the token is
// empty, unknown or expired, a new guest user and session are created and
// created is reported true.
func (g *Gateway) EnsureAnonymous(ctx context.Context, token string) (user *model.User, sess *model.Session, created bool, err error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, false, err
	}
	if token != "" {
		sess, err = g.sessions.GetByToken(token)
		if err != nil {
			return nil, nil, false, err
		}
		if sess != nil {
			user, err = g.users.GetByID(sess.UserID)
			if err != nil {
				return nil, nil, false, err
			}
			if user != nil {
				return user, sess, false, nil
			}
		}
	}

	user, err = g.users.CreateAnonymous()
	if err != nil {
		return nil, nil, false, err
	}
	sess, err = g.sessions.Create(user.ID)
	if err != nil {
		return nil, nil, false, err
	}
	g.logger.Debug("guest created", "user_id", user.ID)
	return user, sess, true, nil
}

// Upgrade attaches credentials to the guest user, keeping its id so likes and
// plan entries carry over. When the email belongs to another account, it
// signs in to that account instead and rebinds the session to it.
func (g *Gateway) Upgrade(ctx context.Context, userID, sessionID int64, creds Credentials) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	email, err := normalizeEmail(creds.Email)
	if err != nil {
		return nil, err
	}
	if len(creds.Password) < MinPasswordLen {
		return nil, ErrWeakPassword
	}

	current, err := g.users.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrInvalidCredentials
	}
	if !current.Anonymous {
		return nil, ErrAlreadyRegistered
	}

	existing, err := g.users.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if err := g.checkPassword(existing.ID, creds.Password); err != nil {
			return nil, ErrEmailTaken
		}
		if err := g.sessions.Rebind(sessionID, existing.ID); err != nil {
			return nil, err
		}
		g.logger.Info("upgrade fell back to sign-in", "user_id", existing.ID, "guest_id", userID)
		return existing, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), g.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user, err := g.users.Upgrade(userID, email, strings.TrimSpace(creds.Name), strings.TrimSpace(creds.Phone), string(hash))
	if err != nil {
		return nil, err
	}
	g.logger.Info("guest upgraded", "user_id", user.ID)
	return user, nil
}

// SignIn verifies the credentials and opens a new session.
func (g *Gateway) SignIn(ctx context.Context, email, password string) (*model.User, *model.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, nil, ErrInvalidCredentials
	}
	user, err := g.users.GetByEmail(email)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, ErrInvalidCredentials
	}
	if err := g.checkPassword(user.ID, password); err != nil {
		return nil, nil, err
	}
	sess, err := g.sessions.Create(user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, sess, nil
}

// User returns the user behind an identity, or nil when it no longer exists.
func (g *Gateway) User(ctx context.Context, userID int64) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return g.users.GetByID(userID)
}

func (g *Gateway) SignOut(ctx context.Context, sessionID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return g.sessions.Delete(sessionID)
}

func (g *Gateway) checkPassword(userID int64, password string) error {
	hash, err := g.users.PasswordHash(userID)
	if err != nil {
		return err
	}
	if hash == "" {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}
