// Package game owns the client-side protocol state: one dispatcher that
// sends player actions, interprets the server's status signal and keeps
// the rendered map and the activity log in sync with it.
package game

import (
	"context"
	"errors"
	"fmt"

	"github.com/dicecrawl/dicecrawl/internal/api"
	"github.com/dicecrawl/dicecrawl/internal/gamelog"
	"github.com/dicecrawl/dicecrawl/internal/models"
)

// Renderer receives each freshly fetched map. Implementations replace
// their whole display; there is no diffing.
type Renderer interface {
	Render(models.DungeonMap)
}

// Navigator is told where to go when the server answers with a redirect
// signal (session expiry, game over, leaving the dungeon).
type Navigator interface {
	Navigate(target string)
}

// Fallback routes used when a redirect signal names no target.
const (
	fallbackLogin = "/login"
	fallbackLobby = "/lobby"
)

// ErrBusy means an action arrived while another was still in flight.
// The new action is dropped without sending anything; two in-flight
// mutations would race on server-side turn state.
var ErrBusy = errors.New("another action is in flight")

// Dispatcher drives the action protocol. At most one action is in
// flight at a time; the map refetch after a move runs under the same
// guard, strictly after the move's own response is processed.
type Dispatcher struct {
	api  *api.Client
	log  *gamelog.Buffer
	view Renderer
	nav  Navigator

	in chan struct{} // capacity 1; holding the token means in flight
}

func NewDispatcher(c *api.Client, buf *gamelog.Buffer, view Renderer, nav Navigator) *Dispatcher {
	d := &Dispatcher{api: c, log: buf, view: view, nav: nav, in: make(chan struct{}, 1)}
	d.in <- struct{}{}
	return d
}

// begin claims the in-flight slot without blocking.
func (d *Dispatcher) begin() error {
	select {
	case <-d.in:
		return nil
	default:
		return ErrBusy
	}
}

func (d *Dispatcher) end() { d.in <- struct{}{} }

// Busy reports whether an action is currently in flight.
func (d *Dispatcher) Busy() bool { return len(d.in) == 0 }

// Log returns the activity log the dispatcher appends to.
func (d *Dispatcher) Log() *gamelog.Buffer { return d.log }

// Move sends a directional move. On success the response line joins the
// log and the whole map is refetched: the client never computes the
// post-move map locally, the server is the sole authority on
// exploration and position.
func (d *Dispatcher) Move(ctx context.Context, direction string) error {
	if err := d.begin(); err != nil {
		return err
	}
	defer d.end()

	res, err := d.api.Move(ctx, direction)
	if err != nil {
		return d.fail("move", err)
	}
	switch {
	case res.Redirected():
		d.navigate(res, fallbackLogin)
		return nil
	case res.OK():
		d.append(res.Body)
		return d.refresh(ctx)
	default:
		return d.refuse("move", res)
	}
}

// Attack commits a dice pool to an attack. Attacks do not move the
// player, so the map is left alone.
func (d *Dispatcher) Attack(ctx context.Context, pool models.DicePool) error {
	return d.combat(ctx, "attack", pool, d.api.Attack)
}

// Defend commits a dice pool to a defense. The payload is mandatory:
// the server cannot validate an empty defend.
func (d *Dispatcher) Defend(ctx context.Context, pool models.DicePool) error {
	return d.combat(ctx, "defend", pool, d.api.Defend)
}

func (d *Dispatcher) combat(ctx context.Context, name string, pool models.DicePool,
	send func(context.Context, models.DicePool) (api.Result, error)) error {
	if err := d.begin(); err != nil {
		return err
	}
	defer d.end()

	res, err := send(ctx, pool)
	if err != nil {
		return d.fail(name, err)
	}
	switch {
	case res.Redirected():
		d.navigate(res, fallbackLogin)
		return nil
	case res.OK():
		d.append(res.Body)
		return nil
	default:
		return d.refuse(name, res)
	}
}

// Retreat attempts to flee the current battle. A redirect signal here
// is the normal way out of a finished fight.
func (d *Dispatcher) Retreat(ctx context.Context) error {
	if err := d.begin(); err != nil {
		return err
	}
	defer d.end()

	res, err := d.api.Retreat(ctx)
	if err != nil {
		return d.fail("retreat", err)
	}
	switch {
	case res.Redirected():
		d.navigate(res, fallbackLobby)
		return nil
	case res.OK():
		d.append(res.Body)
		return nil
	default:
		return d.refuse("retreat", res)
	}
}

// RefreshMap fetches the current floor and renders it. Used on initial
// load; moves trigger the same fetch internally.
func (d *Dispatcher) RefreshMap(ctx context.Context) error {
	if err := d.begin(); err != nil {
		return err
	}
	defer d.end()
	return d.refresh(ctx)
}

// refresh runs under an already-claimed in-flight slot.
func (d *Dispatcher) refresh(ctx context.Context) error {
	m, res, err := d.api.Dungeon(ctx)
	if err != nil {
		return d.fail("map fetch", err)
	}
	switch {
	case res.Redirected():
		d.navigate(res, fallbackLogin)
		return nil
	case res.OK():
		d.view.Render(m)
		return nil
	default:
		return d.refuse("map fetch", res)
	}
}

func (d *Dispatcher) navigate(res api.Result, fallback string) {
	target := res.Location
	if target == "" {
		target = fallback
	}
	d.nav.Navigate(target)
}

func (d *Dispatcher) append(line string) {
	if line != "" {
		d.log.Append(line)
	}
}

// fail surfaces a transport failure as a visible, non-blocking notice
// and returns the dispatcher to idle.
func (d *Dispatcher) fail(name string, err error) error {
	d.log.Append(fmt.Sprintf("%s failed: network error", name))
	return fmt.Errorf("%s: %w", name, err)
}

// refuse handles a non-success status other than the redirect signal.
// Never silently dropped: the log gets a notice and the caller an error.
func (d *Dispatcher) refuse(name string, res api.Result) error {
	d.log.Append(fmt.Sprintf("%s refused (status %d)", name, res.Status))
	return fmt.Errorf("%s: unexpected status %d", name, res.Status)
}
