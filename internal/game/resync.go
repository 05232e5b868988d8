package game

import (
	"context"
	"fmt"

	"github.com/dicecrawl/dicecrawl/internal/api"
	"github.com/dicecrawl/dicecrawl/internal/models"
)

// FullResync is the production Resyncer: it refetches the character
// sheet and the dungeon map wholesale instead of patching state from
// the mutation response.
type FullResync struct {
	API   *api.Client
	View  Renderer
	Nav   Navigator
	Sheet func(models.Character) // receives the fresh sheet; may be nil
}

func (f FullResync) Resync(ctx context.Context) error {
	ch, res, err := f.API.Character(ctx)
	if err != nil {
		return err
	}
	if res.Redirected() {
		f.navigate(res)
		return nil
	}
	if !res.OK() {
		return fmt.Errorf("character fetch: unexpected status %d", res.Status)
	}
	if f.Sheet != nil {
		f.Sheet(ch)
	}

	m, res, err := f.API.Dungeon(ctx)
	if err != nil {
		return err
	}
	if res.Redirected() {
		f.navigate(res)
		return nil
	}
	if !res.OK() {
		return fmt.Errorf("map fetch: unexpected status %d", res.Status)
	}
	f.View.Render(m)
	return nil
}

func (f FullResync) navigate(res api.Result) {
	target := res.Location
	if target == "" {
		target = fallbackLogin
	}
	f.Nav.Navigate(target)
}
