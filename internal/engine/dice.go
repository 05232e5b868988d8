package engine

import (
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dicecrawl/dicecrawl/internal/models"
)

var termRe = regexp.MustCompile(`(?i)^(\d+)?d(\d+)$`)

// ParsePool turns an expression like "2d6 1d20" (terms separated by
// spaces, commas or '+') into a positional pool. Only the six supported
// die sizes are accepted.
func ParsePool(expr string) (models.DicePool, error) {
	var pool models.DicePool
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return pool, nil
	}
	fields := strings.FieldsFunc(expr, func(r rune) bool {
		return r == ' ' || r == ',' || r == '+'
	})
	for _, f := range fields {
		m := termRe.FindStringSubmatch(strings.TrimSpace(f))
		if m == nil {
			return models.DicePool{}, fmt.Errorf("bad dice term %q", f)
		}
		count := 1
		if m[1] != "" {
			count, _ = strconv.Atoi(m[1])
		}
		sides, _ := strconv.Atoi(m[2])
		slot := -1
		for i, s := range models.DiceSides {
			if s == sides {
				slot = i
				break
			}
		}
		if slot < 0 {
			return models.DicePool{}, fmt.Errorf("unsupported die d%d", sides)
		}
		pool[slot] += count
	}
	return pool, nil
}

// SpendUpTo caps want by what held actually contains, slot by slot.
// Returns the dice actually spent and the pool that remains.
func SpendUpTo(held, want models.DicePool) (spent, rest models.DicePool) {
	for i := range held {
		n := want[i]
		if held[i] < n {
			n = held[i]
		}
		spent[i] = n
		rest[i] = held[i] - n
	}
	return spent, rest
}

// RollPool rolls every die in the pool and formats the combat log the
// server emits, e.g. "2d6(7) + 1d20(13) = 20". An empty pool rolls 0.
func RollPool(r *rand.Rand, pool models.DicePool) (int, string) {
	var parts []string
	total := 0
	for i, count := range pool {
		if count == 0 {
			continue
		}
		sub := 0
		for j := 0; j < count; j++ {
			sub += 1 + r.Intn(models.DiceSides[i])
		}
		parts = append(parts, fmt.Sprintf("%dd%d(%d)", count, models.DiceSides[i], sub))
		total += sub
	}
	if len(parts) == 0 {
		return 0, "nothing = 0"
	}
	return total, strings.Join(parts, " + ") + " = " + strconv.Itoa(total)
}

// RetreatCheck rolls one d4 per speed point for each side; the escape
// succeeds on a strictly higher total. The log reads like
// "3d4 (8) vs. 2d4 (5)".
func RetreatCheck(r *rand.Rand, escapeSpeed, chaseSpeed int) (bool, string) {
	escape := 0
	for i := 0; i < escapeSpeed; i++ {
		escape += 1 + r.Intn(4)
	}
	chase := 0
	for i := 0; i < chaseSpeed; i++ {
		chase += 1 + r.Intn(4)
	}
	log := fmt.Sprintf("%dd4 (%d) vs. %dd4 (%d)", escapeSpeed, escape, chaseSpeed, chase)
	return escape > chase, log
}

// ChangeFor makes change for a value in d4-equivalents, greedily from
// the largest denomination down. The smallest cost is 2, so a trailing
// remainder of 1 is unrepresentable and rounds down.
func ChangeFor(v int) models.DicePool {
	var pool models.DicePool
	for i := models.NumDice - 1; i >= 0; i-- {
		cost := models.DiceCosts[i]
		if cost > v {
			continue
		}
		pool[i] = v / cost
		v -= pool[i] * cost
	}
	return pool
}

// FillBudget spends random dice until the budget is exhausted, the way
// the server seeds item dice budgets and enemy pools.
func FillBudget(r *rand.Rand, budget int, start models.DicePool) models.DicePool {
	pool := start
	for budget > 0 {
		slot := r.Intn(models.NumDice)
		budget -= models.DiceCosts[slot]
		pool[slot]++
	}
	return pool
}

func NewRNG() *rand.Rand { return rand.New(rand.NewSource(time.Now().UnixNano())) }
