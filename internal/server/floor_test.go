package server

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/dicecrawl/dicecrawl/internal/models"
)

func onEdge(p [2]int) bool {
	return p[0] == 0 || p[0] == FloorSize-1 || p[1] == 0 || p[1] == FloorSize-1
}

func TestGenerateFloorLayout(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		r := rand.New(rand.NewSource(seed))
		f := GenerateFloor(r, 1)

		if !onEdge(f.Entrance) || !onEdge(f.Exit) {
			t.Fatalf("seed %d: entrance %v or exit %v not on an edge", seed, f.Entrance, f.Exit)
		}
		opposite := f.Entrance[0] == 0 && f.Exit[0] == FloorSize-1 ||
			f.Entrance[0] == FloorSize-1 && f.Exit[0] == 0 ||
			f.Entrance[1] == 0 && f.Exit[1] == FloorSize-1 ||
			f.Entrance[1] == FloorSize-1 && f.Exit[1] == 0
		if !opposite {
			t.Fatalf("seed %d: entrance %v and exit %v not on opposite edges", seed, f.Entrance, f.Exit)
		}
		for _, c := range f.Boss {
			if c < 3 || c > 6 {
				t.Fatalf("seed %d: boss %v outside the center block", seed, f.Boss)
			}
		}
		if f.PosR != f.Entrance[0] || f.PosC != f.Entrance[1] {
			t.Fatalf("seed %d: player starts at %d,%d not the entrance", seed, f.PosR, f.PosC)
		}
		if f.Cells[f.Exit[0]][f.Exit[1]] != cellEmpty {
			t.Fatalf("seed %d: exit cell not open", seed)
		}
	}
}

func TestClientViewFogAndCodes(t *testing.T) {
	f := &Floor{Number: 1}
	f.Entrance = [2]int{0, 0}
	f.Exit = [2]int{9, 9}
	f.Boss = [2]int{4, 4}
	f.Cells[0][1] = cellWall
	f.PosR, f.PosC = 0, 0
	f.reveal()

	view := f.ClientView()
	if len(view) != FloorSize || len(view[0]) != FloorSize {
		t.Fatalf("view is %dx%d", len(view), len(view[0]))
	}
	if view[0][0] != models.TilePlayer {
		t.Fatalf("player cell rendered as %d", view[0][0])
	}
	if view[0][1] != models.TileBlocked {
		t.Fatalf("adjacent wall rendered as %d, want blocked", view[0][1])
	}
	if view[9][9] != models.TileUnexplored {
		t.Fatalf("far exit rendered as %d before being explored", view[9][9])
	}

	players := 0
	for _, row := range view {
		for _, c := range row {
			if c == models.TilePlayer {
				players++
			}
		}
	}
	if players != 1 {
		t.Fatalf("got %d player tiles, want 1", players)
	}
}

func TestMoveBlockedByWallAndEdge(t *testing.T) {
	f := &Floor{Number: 1}
	f.Exit = [2]int{9, 9}
	f.Cells[0][1] = cellWall
	f.PosR, f.PosC = 0, 0
	f.reveal()

	if f.Move(models.North) {
		t.Fatal("moved off the top edge")
	}
	if f.Move(models.East) {
		t.Fatal("moved into a wall")
	}
	if !f.Move(models.South) {
		t.Fatal("open cell refused the move")
	}
	if f.PosR != 1 || f.PosC != 0 {
		t.Fatalf("ended at %d,%d", f.PosR, f.PosC)
	}
}

func TestMoveEntranceShowsAfterLeaving(t *testing.T) {
	f := &Floor{Number: 1}
	f.Entrance = [2]int{0, 0}
	f.Exit = [2]int{9, 9}
	f.PosR, f.PosC = 0, 0
	f.reveal()
	if !f.Move(models.South) {
		t.Fatal("move failed")
	}
	if got := f.ClientView()[0][0]; got != models.TileEntrance {
		t.Fatalf("vacated entrance rendered as %d", got)
	}
}

func TestTakeLoot(t *testing.T) {
	f := &Floor{Number: 1}
	f.Cells[0][0] = cellLoot
	if !f.TakeLoot() {
		t.Fatal("loot cell yielded nothing")
	}
	if f.TakeLoot() {
		t.Fatal("loot cell paid out twice")
	}
}

func TestNewBattleScalesWithFloor(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for floor := 1; floor <= 5; floor++ {
		b := NewBattle(r, floor, false)
		if b.Level < 1 {
			t.Fatalf("floor %d: level %d", floor, b.Level)
		}
		if b.HP <= 0 || b.Speed < 1 {
			t.Fatalf("floor %d: hp %d speed %d", floor, b.HP, b.Speed)
		}
		if !strings.HasPrefix(b.Name, "Lvl. ") {
			t.Fatalf("odd enemy name %q", b.Name)
		}
	}
	boss := NewBattle(r, 2, true)
	if !strings.Contains(boss.Name, "Floor Boss") {
		t.Fatalf("boss named %q", boss.Name)
	}
	if boss.Level < 25 {
		t.Fatalf("boss level %d not above the floor band", boss.Level)
	}
}

func TestEnemyTurnSpendsFromPool(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	b := &Battle{
		Name:  "Lvl. 1 Goon",
		HP:    10,
		Speed: 2,
		Pool:  models.DicePool{4, 0, 0, 0, 0, 0},
		Spend: models.DicePool{2, 0, 0, 0, 0, 0},
	}
	before := b.Pool.Total()
	_, line := b.EnemyTurn(r)
	if line == "" {
		t.Fatal("empty enemy log line")
	}
	if b.Pool.Total() >= before {
		t.Fatalf("pool grew from %d to %d", before, b.Pool.Total())
	}

	b.Pool = models.DicePool{}
	dmg, line := b.EnemyTurn(r)
	if dmg != 0 || !strings.Contains(line, "out of dice") {
		t.Fatalf("exhausted enemy dealt %d with line %q", dmg, line)
	}
}

func TestRandItemShapes(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	for i := 0; i < 50; i++ {
		it := randItem(r, 2)
		if it.Level < 1 || it.Name == "" {
			t.Fatalf("item %+v", it)
		}
		switch it.Kind {
		case models.KindWeapon:
			if it.Attack < 1 {
				t.Fatalf("weapon with attack %d", it.Attack)
			}
		case models.KindShield:
			if it.Budget.Total() < 1 {
				t.Fatalf("shield with empty budget")
			}
		case models.KindArmor:
			if it.Speed < 1 {
				t.Fatalf("armor with speed %d", it.Speed)
			}
		}
		if it.Location != models.LocInventory {
			t.Fatalf("loot dropped into %v", it.Location)
		}
	}
}
