package server

import (
	"math/rand"

	"github.com/dicecrawl/dicecrawl/internal/models"
)

// FloorSize is the fixed side length of every generated floor.
const FloorSize = 10

type cell int

const (
	cellEmpty cell = iota
	cellWall
	cellLoot
)

// Floor is the server-side truth for one dungeon level. The client only
// ever sees the ClientView projection, with fog of war applied.
type Floor struct {
	Number   int
	Cells    [FloorSize][FloorSize]cell
	Explored [FloorSize][FloorSize]bool

	Entrance [2]int
	Exit     [2]int
	Boss     [2]int
	BossDead bool

	// player position, row/col
	PosR, PosC int
}

func randRange(r *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.Intn(hi-lo+1)
}

// GenerateFloor lays out a fresh level: entrance against one edge, exit
// against the opposite edge, the boss somewhere in the center 4x4, and
// the rest roughly half open with walls and loot scattered through it.
func GenerateFloor(r *rand.Rand, number int) *Floor {
	f := &Floor{Number: number}

	// Pick the entrance edge, exit goes on the opposite one.
	switch r.Intn(4) {
	case 0: // north
		f.Entrance = [2]int{0, r.Intn(FloorSize)}
		f.Exit = [2]int{FloorSize - 1, r.Intn(FloorSize)}
	case 1: // south
		f.Entrance = [2]int{FloorSize - 1, r.Intn(FloorSize)}
		f.Exit = [2]int{0, r.Intn(FloorSize)}
	case 2: // west
		f.Entrance = [2]int{r.Intn(FloorSize), 0}
		f.Exit = [2]int{r.Intn(FloorSize), FloorSize - 1}
	default: // east
		f.Entrance = [2]int{r.Intn(FloorSize), FloorSize - 1}
		f.Exit = [2]int{r.Intn(FloorSize), 0}
	}
	f.Boss = [2]int{randRange(r, 3, 6), randRange(r, 3, 6)}

	for row := 0; row < FloorSize; row++ {
		for col := 0; col < FloorSize; col++ {
			switch roll := r.Intn(100); {
			case roll < 50:
				f.Cells[row][col] = cellEmpty
			case roll < 80:
				f.Cells[row][col] = cellWall
			default:
				f.Cells[row][col] = cellLoot
			}
		}
	}

	// Fixed features always sit on open ground.
	f.Cells[f.Entrance[0]][f.Entrance[1]] = cellEmpty
	f.Cells[f.Exit[0]][f.Exit[1]] = cellEmpty
	f.Cells[f.Boss[0]][f.Boss[1]] = cellEmpty

	f.PosR, f.PosC = f.Entrance[0], f.Entrance[1]
	f.reveal()
	return f
}

// reveal lifts the fog on the player's cell and its eight neighbors so
// adjacent walls show up as blocked rather than unexplored.
func (f *Floor) reveal() {
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			row, col := f.PosR+dr, f.PosC+dc
			if row < 0 || row >= FloorSize || col < 0 || col >= FloorSize {
				continue
			}
			f.Explored[row][col] = true
		}
	}
}

// Move tries to step one cell in the given direction. It reports
// whether the player actually moved; a false return means the way was
// blocked by the floor edge or a wall.
func (f *Floor) Move(direction string) bool {
	row, col := f.PosR, f.PosC
	switch direction {
	case models.North:
		row--
	case models.South:
		row++
	case models.West:
		col--
	case models.East:
		col++
	default:
		return false
	}
	if row < 0 || row >= FloorSize || col < 0 || col >= FloorSize {
		return false
	}
	if f.Cells[row][col] == cellWall {
		return false
	}
	f.PosR, f.PosC = row, col
	f.reveal()
	return true
}

func (f *Floor) AtExit() bool {
	return f.PosR == f.Exit[0] && f.PosC == f.Exit[1]
}

func (f *Floor) AtBoss() bool {
	return !f.BossDead && f.PosR == f.Boss[0] && f.PosC == f.Boss[1]
}

// TakeLoot consumes the loot on the player's cell, if any.
func (f *Floor) TakeLoot() bool {
	if f.Cells[f.PosR][f.PosC] != cellLoot {
		return false
	}
	f.Cells[f.PosR][f.PosC] = cellEmpty
	return true
}

// ClientView projects the floor into the tile codes the client renders.
// Unexplored cells hide everything, including the exit and the boss.
func (f *Floor) ClientView() models.DungeonMap {
	view := make(models.DungeonMap, FloorSize)
	for row := 0; row < FloorSize; row++ {
		view[row] = make([]models.TileCode, FloorSize)
		for col := 0; col < FloorSize; col++ {
			switch {
			case row == f.PosR && col == f.PosC:
				view[row][col] = models.TilePlayer
			case !f.Explored[row][col]:
				view[row][col] = models.TileUnexplored
			case row == f.Entrance[0] && col == f.Entrance[1]:
				view[row][col] = models.TileEntrance
			case row == f.Exit[0] && col == f.Exit[1]:
				view[row][col] = models.TileExit
			case f.Cells[row][col] == cellWall:
				view[row][col] = models.TileBlocked
			default:
				view[row][col] = models.TileExplored
			}
		}
	}
	return view
}
