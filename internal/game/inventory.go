package game

import (
	"context"
	"fmt"

	"github.com/dicecrawl/dicecrawl/internal/api"
	"github.com/dicecrawl/dicecrawl/internal/models"
)

// Resyncer is the ResyncOnMutate strategy: after every successful
// inventory mutation the whole client view is rebuilt from the server.
// Nothing is patched locally and nothing is speculative; correctness is
// delegated entirely to the server's next full render.
type Resyncer interface {
	Resync(ctx context.Context) error
}

// ResyncFunc adapts a function to the Resyncer interface.
type ResyncFunc func(ctx context.Context) error

func (f ResyncFunc) Resync(ctx context.Context) error { return f(ctx) }

// Inventory issues equip/unequip/buy/sell/vault-transfer requests. Each
// success is followed by exactly one resync.
type Inventory struct {
	api    *api.Client
	resync Resyncer
}

func NewInventory(c *api.Client, r Resyncer) *Inventory {
	return &Inventory{api: c, resync: r}
}

func (inv *Inventory) Sell(ctx context.Context, id int64, price int) error {
	return inv.mutate(ctx, "sell", func() (api.Result, error) {
		return inv.api.Sell(ctx, id, price)
	})
}

func (inv *Inventory) Buy(ctx context.Context, id int64, paying models.DicePool) error {
	return inv.mutate(ctx, "buy", func() (api.Result, error) {
		return inv.api.Buy(ctx, id, paying)
	})
}

func (inv *Inventory) Equip(ctx context.Context, id int64) error {
	return inv.mutate(ctx, "equip", func() (api.Result, error) {
		return inv.api.Equip(ctx, id)
	})
}

func (inv *Inventory) Unequip(ctx context.Context, id int64) error {
	return inv.mutate(ctx, "unequip", func() (api.Result, error) {
		return inv.api.Unequip(ctx, id)
	})
}

func (inv *Inventory) MoveToVault(ctx context.Context, id int64) error {
	return inv.mutate(ctx, "move to vault", func() (api.Result, error) {
		return inv.api.MoveToVault(ctx, id)
	})
}

func (inv *Inventory) MoveToInventory(ctx context.Context, id int64) error {
	return inv.mutate(ctx, "move to inventory", func() (api.Result, error) {
		return inv.api.MoveToInventory(ctx, id)
	})
}

func (inv *Inventory) mutate(ctx context.Context, name string, call func() (api.Result, error)) error {
	res, err := call()
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if !res.OK() {
		return fmt.Errorf("%s: unexpected status %d", name, res.Status)
	}
	if err := inv.resync.Resync(ctx); err != nil {
		return fmt.Errorf("%s: resync: %w", name, err)
	}
	return nil
}
