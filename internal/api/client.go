// Package api is the wire client for the dungeon server. It owns the
// HTTP plumbing only; interpreting statuses and sequencing actions is
// the dispatcher's job.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/dicecrawl/dicecrawl/internal/models"
	"github.com/dicecrawl/dicecrawl/internal/stats"
)

// DefaultTimeout bounds every request so a dead server cannot leave an
// action in flight forever.
const DefaultTimeout = 8 * time.Second

// Client talks to the game server. It never follows redirects itself: a
// 302 is a session signal the caller must see, not a detour to take.
type Client struct {
	base string
	http *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	jar, _ := cookiejar.New(nil)
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: timeout,
			Jar:     jar,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// BaseURL returns the server base this client was built for.
func (c *Client) BaseURL() string { return c.base }

// Result is one server reply to an action request.
type Result struct {
	Status   int
	Body     string
	Location string // redirect target when Status is 302
}

// OK reports a plain success whose body is a log line (or empty).
func (r Result) OK() bool { return r.Status == http.StatusOK }

// Redirected reports the session redirect signal.
func (r Result) Redirected() bool { return r.Status == http.StatusFound }

// do sends one request with a JSON body (payload may be nil) and reads
// the whole reply. Payloads are validated before serialization.
func (c *Client) do(ctx context.Context, method, path string, payload validator) (Result, error) {
	var body io.Reader
	if payload != nil {
		if err := payload.validate(); err != nil {
			return Result{}, fmt.Errorf("%s %s: %w", method, path, err)
		}
		b, err := json.Marshal(payload)
		if err != nil {
			return Result{}, fmt.Errorf("%s %s: %w", method, path, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/plain")

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, fmt.Errorf("%s %s: read body: %w", method, path, err)
	}
	res := Result{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	if res.Redirected() {
		// Prefer the Location header; some server revisions put the
		// target in the body instead.
		res.Location = resp.Header.Get("Location")
		if res.Location == "" {
			res.Location = res.Body
		}
	}
	return res, nil
}

// getJSON fetches path and decodes a JSON body into out. A 302 comes
// back as the Result with out untouched.
func (c *Client) getJSON(ctx context.Context, path string, out any) (Result, error) {
	res, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return res, err
	}
	if !res.OK() {
		return res, nil
	}
	if err := json.Unmarshal([]byte(res.Body), out); err != nil {
		return res, fmt.Errorf("GET %s: decode: %w", path, err)
	}
	return res, nil
}

// ========================= Dungeon actions =========================

// Dungeon fetches the current floor. On a redirect signal the map is
// nil and the Result carries the target.
func (c *Client) Dungeon(ctx context.Context) (models.DungeonMap, Result, error) {
	var m models.DungeonMap
	res, err := c.getJSON(ctx, "/dungeon", &m)
	if err != nil || !res.OK() {
		return nil, res, err
	}
	return m, res, nil
}

func (c *Client) Move(ctx context.Context, direction string) (Result, error) {
	return c.do(ctx, http.MethodPut, "/dungeon/move", movePayload{Direction: direction})
}

func (c *Client) Attack(ctx context.Context, pool models.DicePool) (Result, error) {
	return c.do(ctx, http.MethodPut, "/dungeon/attack", combatPayload{SpentDice: pool})
}

func (c *Client) Defend(ctx context.Context, pool models.DicePool) (Result, error) {
	return c.do(ctx, http.MethodPut, "/dungeon/defend", combatPayload{SpentDice: pool})
}

func (c *Client) Retreat(ctx context.Context) (Result, error) {
	return c.do(ctx, http.MethodPut, "/dungeon/retreat", nil)
}

// ========================= Inventory & market =========================

func (c *Client) Sell(ctx context.Context, id int64, price int) (Result, error) {
	return c.do(ctx, http.MethodPost, "/sell_item", sellPayload{ID: id, Price: price})
}

func (c *Client) Buy(ctx context.Context, id int64, paying models.DicePool) (Result, error) {
	return c.do(ctx, http.MethodPost, "/buy_item", buyPayload{ID: id, Paying: paying})
}

func (c *Client) Equip(ctx context.Context, id int64) (Result, error) {
	return c.do(ctx, http.MethodPost, "/equip_item", itemPayload{ID: id})
}

func (c *Client) Unequip(ctx context.Context, id int64) (Result, error) {
	return c.do(ctx, http.MethodPost, "/unequip_item", itemPayload{ID: id})
}

func (c *Client) MoveToVault(ctx context.Context, id int64) (Result, error) {
	return c.do(ctx, http.MethodPut, "/move_vault", itemPayload{ID: id})
}

func (c *Client) MoveToInventory(ctx context.Context, id int64) (Result, error) {
	return c.do(ctx, http.MethodPut, "/move_inv", itemPayload{ID: id})
}

// ========================= Account & views =========================

func (c *Client) Login(ctx context.Context, username, password string) error {
	res, err := c.do(ctx, http.MethodPost, "/login", credentials{Username: username, Password: password})
	if err != nil {
		return err
	}
	if !res.OK() {
		return fmt.Errorf("login: status %d: %s", res.Status, res.Body)
	}
	return nil
}

func (c *Client) Register(ctx context.Context, username, password string) error {
	res, err := c.do(ctx, http.MethodPost, "/register", credentials{Username: username, Password: password})
	if err != nil {
		return err
	}
	if !res.OK() {
		return fmt.Errorf("register: status %d: %s", res.Status, res.Body)
	}
	return nil
}

func (c *Client) Character(ctx context.Context) (models.Character, Result, error) {
	var ch models.Character
	res, err := c.getJSON(ctx, "/character", &ch)
	return ch, res, err
}

func (c *Client) Market(ctx context.Context) ([]models.Item, Result, error) {
	var items []models.Item
	res, err := c.getJSON(ctx, "/market", &items)
	return items, res, err
}

func (c *Client) Stats(ctx context.Context) (stats.Snapshot, Result, error) {
	var snap stats.Snapshot
	res, err := c.getJSON(ctx, "/stats", &snap)
	return snap, res, err
}
