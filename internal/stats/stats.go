// Package stats keeps per-player crawl statistics and a global daily
// best attack, in memory. The practice server records into it and
// serves snapshots at /stats.
package stats

import (
	"sync"
	"time"
)

// Player is one player's lifetime record.
type Player struct {
	Battles      int `json:"battles"`
	Victories    int `json:"victories"`
	Retreats     int `json:"retreats"`
	Deaths       int `json:"deaths"`
	DeepestFloor int `json:"deepest_floor"`
	BestAttack   int `json:"best_attack"`
}

// Best is the highest single attack roll seen today.
type Best struct {
	Username string `json:"username"`
	Total    int    `json:"total"`
	Rolled   string `json:"rolled"` // the combat log line of the roll
}

// Snapshot is what /stats returns for the asking player.
type Snapshot struct {
	Player    Player `json:"player"`
	BestToday Best   `json:"best_today"`
}

type Tracker struct {
	mu      sync.Mutex
	players map[string]*Player
	// global daily best attack by date string YYYY-MM-DD UTC
	daily map[string]Best
}

func New() *Tracker {
	return &Tracker{players: map[string]*Player{}, daily: map[string]Best{}}
}

func (t *Tracker) player(user string) *Player {
	p := t.players[user]
	if p == nil {
		p = &Player{}
		t.players[user] = p
	}
	return p
}

func dateKey() string { return time.Now().UTC().Format("2006-01-02") }

// RecordBattle notes a finished battle.
func (t *Tracker) RecordBattle(user string, won bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p := t.player(user)
	p.Battles++
	if won {
		p.Victories++
	}
}

// RecordRetreat notes a successful escape.
func (t *Tracker) RecordRetreat(user string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.player(user).Retreats++
}

// RecordDeath notes a defeat.
func (t *Tracker) RecordDeath(user string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.player(user).Deaths++
}

// RecordFloor tracks the deepest floor the player has reached.
func (t *Tracker) RecordFloor(user string, floor int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p := t.player(user)
	if floor > p.DeepestFloor {
		p.DeepestFloor = floor
	}
}

// RecordAttack updates the player's best attack and today's global best
// if the provided total beats them.
func (t *Tracker) RecordAttack(user string, total int, rolled string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p := t.player(user)
	if total > p.BestAttack {
		p.BestAttack = total
	}
	key := dateKey()
	if cur, ok := t.daily[key]; !ok || total > cur.Total {
		t.daily[key] = Best{Username: user, Total: total, Rolled: rolled}
	}
}

// PlayerSnapshot returns a copy of the player's record.
func (t *Tracker) PlayerSnapshot(user string) Player {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p := t.players[user]; p != nil {
		return *p
	}
	return Player{}
}

// BestToday returns today's global best attack, zero if none yet.
func (t *Tracker) BestToday() Best {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.daily[dateKey()]
}

// SnapshotFor builds the /stats response for one player.
func (t *Tracker) SnapshotFor(user string) Snapshot {
	return Snapshot{Player: t.PlayerSnapshot(user), BestToday: t.BestToday()}
}

// ResetDaily clears the daily best map. Intended for tests and dev
// convenience.
func (t *Tracker) ResetDaily() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k := range t.daily {
		delete(t.daily, k)
	}
}
