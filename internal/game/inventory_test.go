package game

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dicecrawl/dicecrawl/internal/api"
	"github.com/dicecrawl/dicecrawl/internal/models"
)

type countingResync struct {
	calls int
}

func (c *countingResync) Resync(context.Context) error {
	c.calls++
	return nil
}

func TestEveryMutationResyncsExactlyOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// All mutations succeed with an empty body.
	}))
	defer srv.Close()

	rs := &countingResync{}
	inv := NewInventory(api.NewClient(srv.URL, 0), rs)
	ctx := context.Background()

	ops := []struct {
		name string
		call func() error
	}{
		{"sell", func() error { return inv.Sell(ctx, 1, 25) }},
		{"buy", func() error { return inv.Buy(ctx, 2, models.DicePool{2, 1, 0, 0, 0, 0}) }},
		{"equip", func() error { return inv.Equip(ctx, 3) }},
		{"unequip", func() error { return inv.Unequip(ctx, 3) }},
		{"vault", func() error { return inv.MoveToVault(ctx, 4) }},
		{"unvault", func() error { return inv.MoveToInventory(ctx, 4) }},
	}
	for i, op := range ops {
		if err := op.call(); err != nil {
			t.Fatalf("%s: %v", op.name, err)
		}
		if rs.calls != i+1 {
			t.Fatalf("%s: resync count %d, want %d", op.name, rs.calls, i+1)
		}
	}
}

func TestFailedMutationDoesNotResync(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not yours", http.StatusForbidden)
	}))
	defer srv.Close()

	rs := &countingResync{}
	inv := NewInventory(api.NewClient(srv.URL, 0), rs)

	if err := inv.Equip(context.Background(), 7); err == nil {
		t.Fatal("expected error for status 403")
	}
	if rs.calls != 0 {
		t.Errorf("resync ran %d times after a failed mutation", rs.calls)
	}
}

func TestInvalidPayloadNeverSentNorResynced(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer srv.Close()

	rs := &countingResync{}
	inv := NewInventory(api.NewClient(srv.URL, 0), rs)

	if err := inv.Sell(context.Background(), 0, 10); err == nil {
		t.Fatal("sell without id accepted")
	}
	if requests != 0 {
		t.Errorf("%d requests hit the wire", requests)
	}
	if rs.calls != 0 {
		t.Errorf("resync ran %d times", rs.calls)
	}
}

func TestFullResyncRefetchesSheetAndMap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/character":
			w.Write([]byte(`{"username":"ada","dice":[4,0,0,0,0,1],"floor":2,"items":[]}`))
		case "/dungeon":
			w.Write([]byte(`[[1,5]]`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	view := &fakeView{}
	var sheet models.Character
	f := FullResync{
		API:   api.NewClient(srv.URL, 0),
		View:  view,
		Nav:   &fakeNav{},
		Sheet: func(ch models.Character) { sheet = ch },
	}
	if err := f.Resync(context.Background()); err != nil {
		t.Fatalf("Resync: %v", err)
	}
	if sheet.Username != "ada" || sheet.Dice[models.D4] != 4 {
		t.Errorf("sheet = %+v", sheet)
	}
	if len(view.maps) != 1 {
		t.Errorf("rendered %d maps, want 1", len(view.maps))
	}
}

func TestFullResyncRedirectNavigates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusFound)
		w.Write([]byte("/login"))
	}))
	defer srv.Close()

	nav := &fakeNav{}
	f := FullResync{API: api.NewClient(srv.URL, 0), View: &fakeView{}, Nav: nav}
	if err := f.Resync(context.Background()); err != nil {
		t.Fatalf("Resync: %v", err)
	}
	if len(nav.targets) != 1 || nav.targets[0] != "/login" {
		t.Errorf("navigation %v", nav.targets)
	}
}
