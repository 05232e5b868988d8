package engine

import (
	"math/rand"
	"regexp"
	"testing"

	"github.com/dicecrawl/dicecrawl/internal/models"
)

func TestParsePool(t *testing.T) {
	cases := []struct {
		expr string
		want models.DicePool
	}{
		{"", models.DicePool{}},
		{"2d6", models.DicePool{0, 2, 0, 0, 0, 0}},
		{"1d4 2d8 1d20", models.DicePool{1, 0, 2, 0, 0, 1}},
		{"d20", models.DicePool{0, 0, 0, 0, 0, 1}},
		{"2d6 + 1d12", models.DicePool{0, 2, 0, 0, 1, 0}},
		{"1d6,1d6", models.DicePool{0, 2, 0, 0, 0, 0}},
	}
	for _, c := range cases {
		got, err := ParsePool(c.expr)
		if err != nil {
			t.Errorf("ParsePool(%q): %v", c.expr, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParsePool(%q) = %v, want %v", c.expr, got, c.want)
		}
	}
}

func TestParsePoolRejects(t *testing.T) {
	for _, expr := range []string{"2d7", "junk", "1d", "3x4"} {
		if _, err := ParsePool(expr); err == nil {
			t.Errorf("ParsePool(%q): expected error", expr)
		}
	}
}

func TestSpendUpTo(t *testing.T) {
	held := models.DicePool{2, 1, 0, 0, 0, 1}
	want := models.DicePool{3, 1, 2, 0, 0, 0}
	spent, rest := SpendUpTo(held, want)
	if spent != (models.DicePool{2, 1, 0, 0, 0, 0}) {
		t.Errorf("spent = %v", spent)
	}
	if rest != (models.DicePool{0, 0, 0, 0, 0, 1}) {
		t.Errorf("rest = %v", rest)
	}
}

var rollLogRe = regexp.MustCompile(`^(\d+d\d+\(\d+\)( \+ \d+d\d+\(\d+\))*) = \d+$`)

func TestRollPoolFormatAndBounds(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	pool := models.DicePool{2, 0, 0, 0, 0, 1}
	for i := 0; i < 50; i++ {
		total, log := RollPool(r, pool)
		// 2d4 + 1d20: floor 3, ceiling 28
		if total < 3 || total > 28 {
			t.Fatalf("total %d out of range for %v", total, pool)
		}
		if !rollLogRe.MatchString(log) {
			t.Fatalf("log %q does not match expected format", log)
		}
	}
}

func TestRollPoolEmpty(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	total, log := RollPool(r, models.DicePool{})
	if total != 0 {
		t.Errorf("empty pool rolled %d", total)
	}
	if log != "nothing = 0" {
		t.Errorf("empty pool log = %q", log)
	}
}

func TestRetreatCheck(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	logRe := regexp.MustCompile(`^\d+d4 \(\d+\) vs\. \d+d4 \(\d+\)$`)
	wins := 0
	for i := 0; i < 100; i++ {
		ok, log := RetreatCheck(r, 5, 2)
		if !logRe.MatchString(log) {
			t.Fatalf("log %q does not match expected format", log)
		}
		if ok {
			wins++
		}
	}
	// 5d4 vs 2d4 should win most of the time.
	if wins < 60 {
		t.Errorf("5d4 beat 2d4 only %d/100 times", wins)
	}

	// Zero escape speed can never strictly beat anything positive.
	if ok, _ := RetreatCheck(r, 0, 1); ok {
		t.Error("0d4 should not beat 1d4")
	}
}

func TestChangeFor(t *testing.T) {
	for _, v := range []int{0, 2, 3, 10, 23, 100} {
		pool := ChangeFor(v)
		if pool.Value() > v {
			t.Errorf("ChangeFor(%d) overshoots: %v worth %d", v, pool, pool.Value())
		}
		if v-pool.Value() > 1 {
			t.Errorf("ChangeFor(%d) leaves %d unconverted", v, v-pool.Value())
		}
	}
}

func TestFillBudget(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	start := models.DicePool{1, 0, 0, 0, 0, 0}
	pool := FillBudget(r, 30, start)
	if pool.Total() <= start.Total() {
		t.Error("budget of 30 should add dice")
	}
	// Budget overshoot is bounded by the priciest die.
	if pool.Value() < 30 || pool.Value() > 30+start.Value()+models.DiceCosts[models.D20] {
		t.Errorf("pool value %d not near budget", pool.Value())
	}
}
