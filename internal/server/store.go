package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/dicecrawl/dicecrawl/internal/models"
)

var (
	ErrUsernameTaken  = errors.New("username already taken")
	ErrBadCredentials = errors.New("unknown username or wrong password")
	ErrNoSuchItem     = errors.New("no such item")
)

// Store persists players, their dice currency and their items. One
// writer connection is plenty for a practice server.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS players (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL UNIQUE,
	password TEXT NOT NULL,
	d4  INTEGER NOT NULL DEFAULT 0,
	d6  INTEGER NOT NULL DEFAULT 0,
	d8  INTEGER NOT NULL DEFAULT 0,
	d10 INTEGER NOT NULL DEFAULT 0,
	d12 INTEGER NOT NULL DEFAULT 0,
	d20 INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS items (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	owner_id   INTEGER NOT NULL REFERENCES players(id),
	kind       INTEGER NOT NULL,
	name       TEXT NOT NULL,
	level      INTEGER NOT NULL,
	location   INTEGER NOT NULL DEFAULT 0,
	price      INTEGER NOT NULL DEFAULT 0,
	attack     INTEGER NOT NULL DEFAULT 0,
	two_handed INTEGER NOT NULL DEFAULT 0,
	b4  INTEGER NOT NULL DEFAULT 0,
	b6  INTEGER NOT NULL DEFAULT 0,
	b8  INTEGER NOT NULL DEFAULT 0,
	b10 INTEGER NOT NULL DEFAULT 0,
	b12 INTEGER NOT NULL DEFAULT 0,
	b20 INTEGER NOT NULL DEFAULT 0,
	health  INTEGER NOT NULL DEFAULT 0,
	defense INTEGER NOT NULL DEFAULT 0,
	speed   INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_items_owner ON items(owner_id);
CREATE INDEX IF NOT EXISTS idx_items_location ON items(location);
`

func OpenStore(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("empty db path")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Register creates a new account with a small starting purse.
func (s *Store) Register(ctx context.Context, username, password string, purse models.DicePool) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO players (username, password, d4, d6, d8, d10, d12, d20) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		username, password, purse[0], purse[1], purse[2], purse[3], purse[4], purse[5])
	if err != nil {
		// UNIQUE violation is the only constraint on this insert.
		return 0, ErrUsernameTaken
	}
	return res.LastInsertId()
}

func (s *Store) Authenticate(ctx context.Context, username, password string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM players WHERE username = ? AND password = ?`, username, password).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrBadCredentials
	}
	return id, err
}

func (s *Store) Dice(ctx context.Context, playerID int64) (models.DicePool, error) {
	var p models.DicePool
	err := s.db.QueryRowContext(ctx,
		`SELECT d4, d6, d8, d10, d12, d20 FROM players WHERE id = ?`, playerID).
		Scan(&p[0], &p[1], &p[2], &p[3], &p[4], &p[5])
	return p, err
}

func (s *Store) SetDice(ctx context.Context, playerID int64, p models.DicePool) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE players SET d4 = ?, d6 = ?, d8 = ?, d10 = ?, d12 = ?, d20 = ? WHERE id = ?`,
		p[0], p[1], p[2], p[3], p[4], p[5], playerID)
	return err
}

func (s *Store) AddItem(ctx context.Context, ownerID int64, it models.Item) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO items (owner_id, kind, name, level, location, price, attack, two_handed,
			b4, b6, b8, b10, b12, b20, health, defense, speed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ownerID, it.Kind, it.Name, it.Level, it.Location, it.Price, it.Attack, it.TwoHanded,
		it.Budget[0], it.Budget[1], it.Budget[2], it.Budget[3], it.Budget[4], it.Budget[5],
		it.Health, it.Defense, it.Speed)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const itemColumns = `id, owner_id, kind, name, level, location, price, attack, two_handed,
	b4, b6, b8, b10, b12, b20, health, defense, speed`

func scanItem(row interface{ Scan(...any) error }) (models.Item, int64, error) {
	var it models.Item
	var owner int64
	err := row.Scan(&it.ID, &owner, &it.Kind, &it.Name, &it.Level, &it.Location, &it.Price,
		&it.Attack, &it.TwoHanded,
		&it.Budget[0], &it.Budget[1], &it.Budget[2], &it.Budget[3], &it.Budget[4], &it.Budget[5],
		&it.Health, &it.Defense, &it.Speed)
	return it, owner, err
}

// Item loads one item and its owner.
func (s *Store) Item(ctx context.Context, id int64) (models.Item, int64, error) {
	it, owner, err := scanItem(s.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Item{}, 0, ErrNoSuchItem
	}
	return it, owner, err
}

// ItemsFor returns everything the player owns, wherever it lives.
func (s *Store) ItemsFor(ctx context.Context, ownerID int64) ([]models.Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE owner_id = ? ORDER BY id`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []models.Item
	for rows.Next() {
		it, _, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Market returns every listed item, cheapest first.
func (s *Store) Market(ctx context.Context) ([]models.Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE location = ? ORDER BY price, id`, models.LocMarket)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []models.Item
	for rows.Next() {
		it, _, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// SetLocation moves an item between inventory, equipment, vault and
// market. Price is only meaningful for the market.
func (s *Store) SetLocation(ctx context.Context, id int64, loc models.ItemLocation, price int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE items SET location = ?, price = ? WHERE id = ?`, loc, price, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNoSuchItem
	}
	return nil
}

// Transfer hands an item to a new owner's inventory, clearing any
// listing price.
func (s *Store) Transfer(ctx context.Context, id, newOwner int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE items SET owner_id = ?, location = ?, price = 0 WHERE id = ?`,
		newOwner, models.LocInventory, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNoSuchItem
	}
	return nil
}

// DropInventory deletes the player's carried items (inventory and
// equipped). Vault and market listings survive death.
func (s *Store) DropInventory(ctx context.Context, ownerID int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM items WHERE owner_id = ? AND location IN (?, ?)`,
		ownerID, models.LocInventory, models.LocEquipped)
	return err
}
