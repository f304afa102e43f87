package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dukerupert/bitematch/internal/config"
	"github.com/dukerupert/bitematch/internal/database"
	"github.com/dukerupert/bitematch/internal/metrics"
	"github.com/dukerupert/bitematch/internal/model"
	"github.com/dukerupert/bitematch/internal/sms"
)

type fakeMeals struct {
	mu sync.Mutex
	n  int
}

func meal(id string) model.MealDetail {
	return model.MealDetail{
		ID:           id,
		Title:        "Meal " + id,
		Instructions: "Chop.\nSimmer for 10 minutes.",
		Ingredients:  []model.Ingredient{{Name: "Salt", Measure: "1 tsp"}},
	}
}

func (f *fakeMeals) Random(ctx context.Context) (*model.MealDetail, error) {
	f.mu.Lock()
	f.n++
	id := fmt.Sprint(52000 + f.n)
	f.mu.Unlock()
	m := meal(id)
	return &m, nil
}

func (f *fakeMeals) ByCategory(ctx context.Context, category string) ([]model.MealSummary, error) {
	return []model.MealSummary{{ID: "1"}, {ID: "2"}}, nil
}

func (f *fakeMeals) ByID(ctx context.Context, id string) (*model.MealDetail, error) {
	if id == "404" {
		return nil, nil
	}
	m := meal(id)
	return &m, nil
}

func (f *fakeMeals) Categories(ctx context.Context) ([]string, error) {
	return []string{"Beef", "Dessert"}, nil
}

type fakeSMS struct {
	mu   sync.Mutex
	body string
}

func (f *fakeSMS) SendCustomSms(ctx context.Context, to, body string) (sms.Result, error) {
	if _, err := sms.Validate(to, body); err != nil {
		return sms.Result{}, err
	}
	f.mu.Lock()
	f.body = body
	f.mu.Unlock()
	return sms.Result{ProviderMessageID: "SM1", Status: "queued"}, nil
}

func (f *fakeSMS) lastBody() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.body
}

func testConfig() *config.Config {
	return &config.Config{
		PlanCap:         20,
		PlanViewLimit:   20,
		ShoppingLimit:   5,
		ShoppingLocale:  "sv",
		DeckSettleDelay: 100 * time.Millisecond,
		DeckIdleTTL:     time.Hour,
		SessionTTL:      time.Hour,
	}
}

type testClient struct {
	t    *testing.T
	base string
	http *http.Client
}

func setup(t *testing.T) (*testClient, *fakeSMS) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	reg := prometheus.NewRegistry()
	smsFake := &fakeSMS{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(testConfig(), Deps{
		DB:       db,
		Meals:    &fakeMeals{},
		SMS:      smsFake,
		Metrics:  metrics.NewCollector(reg),
		Gatherer: reg,
	}, logger)
	t.Cleanup(srv.Close)

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	jar, _ := cookiejar.New(nil)
	return &testClient{t: t, base: ts.URL, http: &http.Client{Jar: jar}}, smsFake
}

func (c *testClient) do(method, path, body string, out any) int {
	c.t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, c.base+path, r)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			c.t.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

type deckBody struct {
	Mode    string             `json:"mode"`
	Cards   []model.MealDetail `json:"cards"`
	Pending bool               `json:"pending"`
	Error   string             `json:"error"`
}

func TestHealthAndMetrics(t *testing.T) {
	c, _ := setup(t)

	var health map[string]string
	if code := c.do(http.MethodGet, "/health", "", &health); code != http.StatusOK || health["status"] != "ok" {
		t.Fatalf("health = %d %v", code, health)
	}

	c.do(http.MethodPost, "/api/deck/pass", "", nil)
	resp, err := c.http.Get(c.base + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(data), "bitematch_swipes_total") {
		t.Error("metrics output missing swipe counter")
	}
}

func TestGuestSessionIsCreated(t *testing.T) {
	c, _ := setup(t)

	var me model.User
	if code := c.do(http.MethodGet, "/api/me", "", &me); code != http.StatusOK {
		t.Fatalf("me status = %d", code)
	}
	if !me.Anonymous || me.ID == 0 {
		t.Fatalf("me = %+v, want anonymous user", me)
	}

	var again model.User
	c.do(http.MethodGet, "/api/me", "", &again)
	if again.ID != me.ID {
		t.Errorf("second request got user %d, want %d", again.ID, me.ID)
	}
}

func TestSwipeLikeToShoppingList(t *testing.T) {
	c, smsFake := setup(t)

	var d deckBody
	if code := c.do(http.MethodGet, "/api/deck", "", &d); code != http.StatusOK {
		t.Fatalf("deck status = %d", code)
	}
	if d.Mode != "random" || len(d.Cards) == 0 {
		t.Fatalf("deck = %+v", d)
	}
	top := d.Cards[0].ID

	if code := c.do(http.MethodPost, "/api/deck/like", "", &d); code != http.StatusAccepted {
		t.Fatalf("like status = %d", code)
	}
	var conflict map[string]string
	if code := c.do(http.MethodPost, "/api/deck/pass", "", &conflict); code != http.StatusConflict {
		t.Errorf("pass while pending status = %d, want 409", code)
	}

	var entries []model.PlanEntry
	deadline := time.Now().Add(2 * time.Second)
	for len(entries) == 0 && time.Now().Before(deadline) {
		c.do(http.MethodGet, "/api/plan", "", &entries)
		if len(entries) == 0 {
			time.Sleep(10 * time.Millisecond)
		}
	}
	if len(entries) != 1 || entries[0].MealID != top {
		t.Fatalf("plan = %+v, want the liked card %s", entries, top)
	}

	var likes []model.LikeRecord
	c.do(http.MethodGet, "/api/likes", "", &likes)
	if len(likes) != 1 {
		t.Errorf("likes = %d, want 1", len(likes))
	}

	resp, err := c.http.Get(c.base + "/api/shopping-list?format=text")
	if err != nil {
		t.Fatalf("shopping list: %v", err)
	}
	text, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(text) != "• Salt — 1 tsp" {
		t.Errorf("shopping text = %q", text)
	}

	var grouped struct {
		Aisles []struct {
			Aisle string `json:"aisle"`
		} `json:"aisles"`
	}
	if code := c.do(http.MethodGet, "/api/shopping-list?group=aisle", "", &grouped); code != http.StatusOK {
		t.Fatalf("grouped list = %d", code)
	}
	if len(grouped.Aisles) != 1 || grouped.Aisles[0].Aisle != "Spices & Herbs" {
		t.Errorf("aisles = %+v", grouped.Aisles)
	}

	var sent map[string]string
	if code := c.do(http.MethodPost, "/api/shopping-list/send", `{"channel":"sms","to":"+46701234567"}`, &sent); code != http.StatusOK {
		t.Fatalf("send status = %d %v", code, sent)
	}
	if got := smsFake.lastBody(); got != "• Salt — 1 tsp" {
		t.Errorf("sms body = %q", got)
	}

	var bad map[string]string
	if code := c.do(http.MethodPost, "/api/shopping-list/send", `{"channel":"sms","to":"0701234567"}`, &bad); code != http.StatusBadRequest {
		t.Errorf("invalid number status = %d, want 400", code)
	}
	if code := c.do(http.MethodPost, "/api/shopping-list/send", `{"channel":"telegram","to":"42"}`, &bad); code != http.StatusServiceUnavailable {
		t.Errorf("telegram status = %d, want 503", code)
	}

	if code := c.do(http.MethodDelete, "/api/plan/"+entries[0].ID, "", nil); code != http.StatusNoContent {
		t.Errorf("remove status = %d, want 204", code)
	}
	if code := c.do(http.MethodDelete, "/api/plan/"+entries[0].ID, "", &bad); code != http.StatusNotFound {
		t.Errorf("second remove status = %d, want 404", code)
	}
}

func TestFilterAndClearError(t *testing.T) {
	c, _ := setup(t)

	var d deckBody
	if code := c.do(http.MethodPut, "/api/deck/filter", `{"categories":["Beef"]}`, &d); code != http.StatusOK {
		t.Fatalf("filter status = %d", code)
	}
	if d.Mode != "filtered" || len(d.Cards) != 2 {
		t.Fatalf("deck = %+v, want 2 filtered cards", d)
	}
	if code := c.do(http.MethodPut, "/api/deck/filter", `nope`, nil); code != http.StatusBadRequest {
		t.Errorf("bad filter status = %d, want 400", code)
	}
	if code := c.do(http.MethodDelete, "/api/deck/error", "", &d); code != http.StatusOK {
		t.Errorf("clear error status = %d", code)
	}
}

func TestMealRoutes(t *testing.T) {
	c, _ := setup(t)

	var cats map[string][]string
	c.do(http.MethodGet, "/api/categories", "", &cats)
	if len(cats["categories"]) != 2 {
		t.Errorf("categories = %v", cats)
	}

	var m model.MealDetail
	if code := c.do(http.MethodGet, "/api/meals/52772", "", &m); code != http.StatusOK || m.ID != "52772" {
		t.Errorf("meal = %d %+v", code, m)
	}

	var steps struct {
		Steps []struct {
			Text         string `json:"text"`
			TimerSeconds int    `json:"timer_seconds"`
		} `json:"steps"`
	}
	c.do(http.MethodGet, "/api/meals/52772/steps", "", &steps)
	if len(steps.Steps) != 2 || steps.Steps[1].TimerSeconds != 600 {
		t.Errorf("steps = %+v", steps)
	}

	var e map[string]string
	if code := c.do(http.MethodGet, "/api/meals/404", "", &e); code != http.StatusNotFound {
		t.Errorf("missing meal status = %d, want 404", code)
	}
	if code := c.do(http.MethodGet, "/api/meals/abc", "", &e); code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", code)
	}
}

func TestRegisterLoginLogout(t *testing.T) {
	c, _ := setup(t)

	var guest model.User
	c.do(http.MethodGet, "/api/me", "", &guest)

	var user model.User
	code := c.do(http.MethodPost, "/api/auth/register",
		`{"email":"ada@example.com","password":"correct horse","name":"Ada"}`, &user)
	if code != http.StatusOK {
		t.Fatalf("register status = %d", code)
	}
	if user.ID != guest.ID || user.Anonymous {
		t.Fatalf("registered user = %+v, want upgraded guest %d", user, guest.ID)
	}

	var e map[string]string
	if code := c.do(http.MethodPost, "/api/auth/register", `{"email":"ada@example.com","password":"short"}`, &e); code != http.StatusBadRequest {
		t.Errorf("weak password status = %d, want 400", code)
	}

	if code := c.do(http.MethodPost, "/api/auth/logout", "", nil); code != http.StatusNoContent {
		t.Fatalf("logout status = %d", code)
	}

	var fresh model.User
	c.do(http.MethodGet, "/api/me", "", &fresh)
	if !fresh.Anonymous || fresh.ID == user.ID {
		t.Fatalf("after logout me = %+v, want a new guest", fresh)
	}

	if code := c.do(http.MethodPost, "/api/auth/login", `{"email":"ada@example.com","password":"wrong password"}`, &e); code != http.StatusUnauthorized {
		t.Errorf("bad login status = %d, want 401", code)
	}

	var back model.User
	if code := c.do(http.MethodPost, "/api/auth/login", `{"email":"ada@example.com","password":"correct horse"}`, &back); code != http.StatusOK {
		t.Fatalf("login status = %d", code)
	}
	var me model.User
	c.do(http.MethodGet, "/api/me", "", &me)
	if me.ID != user.ID {
		t.Errorf("after login me = %d, want %d", me.ID, user.ID)
	}
}
