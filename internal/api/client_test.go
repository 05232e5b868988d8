package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/dicecrawl/dicecrawl/internal/models"
)

func TestDicePoolRoundTrip(t *testing.T) {
	var got struct {
		SpentDice []int `json:"spent_dice"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/dungeon/attack" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type %q", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("decode: %v", err)
		}
		io.WriteString(w, "You strike for 20.")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0)
	res, err := c.Attack(context.Background(), models.DicePool{1, 0, 2, 0, 0, 1})
	if err != nil {
		t.Fatalf("Attack: %v", err)
	}
	if !res.OK() || res.Body != "You strike for 20." {
		t.Errorf("result %+v", res)
	}
	if want := []int{1, 0, 2, 0, 0, 1}; !reflect.DeepEqual(got.SpentDice, want) {
		t.Errorf("spent_dice = %v, want %v", got.SpentDice, want)
	}
}

func TestMoveRedirectBodyFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Older server revisions send the target in the body only.
		w.WriteHeader(http.StatusFound)
		io.WriteString(w, "/login")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0)
	res, err := c.Move(context.Background(), models.North)
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if !res.Redirected() {
		t.Fatalf("expected redirect, got status %d", res.Status)
	}
	if res.Location != "/login" {
		t.Errorf("Location = %q, want /login", res.Location)
	}
}

func TestMoveRedirectHeaderWins(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "/lobby")
		w.WriteHeader(http.StatusFound)
		io.WriteString(w, "ignored body")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0)
	res, err := c.Retreat(context.Background())
	if err != nil {
		t.Fatalf("Retreat: %v", err)
	}
	if res.Location != "/lobby" {
		t.Errorf("Location = %q, want /lobby", res.Location)
	}
}

func TestClientDoesNotFollowRedirects(t *testing.T) {
	followed := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/dungeon/move":
			w.Header().Set("Location", "/elsewhere")
			w.WriteHeader(http.StatusFound)
		case "/elsewhere":
			followed = true
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0)
	if _, err := c.Move(context.Background(), models.South); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if followed {
		t.Error("client followed a redirect on its own")
	}
}

func TestDungeonDecode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "[[0,1],[2,5]]")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0)
	m, res, err := c.Dungeon(context.Background())
	if err != nil {
		t.Fatalf("Dungeon: %v", err)
	}
	if !res.OK() {
		t.Fatalf("status %d", res.Status)
	}
	want := models.DungeonMap{{0, 1}, {2, 5}}
	if !reflect.DeepEqual(m, want) {
		t.Errorf("map = %v, want %v", m, want)
	}
}

func TestPayloadValidation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("invalid payload reached the wire")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0)
	ctx := context.Background()

	if _, err := c.Move(ctx, "up"); err == nil {
		t.Error("bad direction accepted")
	}
	if _, err := c.Attack(ctx, models.DicePool{}); err == nil {
		t.Error("empty attack pool accepted")
	}
	if _, err := c.Defend(ctx, models.DicePool{-1, 0, 0, 0, 0, 0}); err == nil {
		t.Error("negative defend pool accepted")
	}
	if _, err := c.Sell(ctx, 0, 5); err == nil {
		t.Error("sell without id accepted")
	}
	if _, err := c.Sell(ctx, 3, -1); err == nil {
		t.Error("negative price accepted")
	}
	if _, err := c.Equip(ctx, 0); err == nil {
		t.Error("equip without id accepted")
	}
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse all connections

	c := NewClient(srv.URL, time.Second)
	if _, err := c.Move(context.Background(), models.North); err == nil {
		t.Error("expected transport error from closed server")
	}
}

func TestSessionCookieCarried(t *testing.T) {
	var sawCookie bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			http.SetCookie(w, &http.Cookie{Name: "crawl_sid", Value: "abc", Path: "/"})
		case "/dungeon/retreat":
			if c, err := r.Cookie("crawl_sid"); err == nil && c.Value == "abc" {
				sawCookie = true
			}
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0)
	if err := c.Login(context.Background(), "user", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := c.Retreat(context.Background()); err != nil {
		t.Fatalf("Retreat: %v", err)
	}
	if !sawCookie {
		t.Error("session cookie not carried across requests")
	}
}
