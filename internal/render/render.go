// Package render turns server tile codes into displayable grids. The
// renderer is stateless: every call builds a fresh grid from whatever
// the server sent, replacing anything shown before.
package render

import (
	"strings"

	"github.com/dicecrawl/dicecrawl/internal/models"
)

// Kind is the semantic classification of one tile.
type Kind string

const (
	KindUnexplored Kind = "unexplored"
	KindExplored   Kind = "explored"
	KindBlocked    Kind = "blocked"
	KindEntrance   Kind = "entrance"
	KindExit       Kind = "exit"
	KindPlayer     Kind = "player"
	KindUnknown    Kind = "unknown"
)

// Classify maps a tile code to its kind. Codes outside {0..5} classify
// as KindUnknown; a data-contract mismatch must not crash the client.
func Classify(c models.TileCode) Kind {
	switch c {
	case models.TileUnexplored:
		return KindUnexplored
	case models.TileExplored:
		return KindExplored
	case models.TileBlocked:
		return KindBlocked
	case models.TileEntrance:
		return KindEntrance
	case models.TileExit:
		return KindExit
	case models.TilePlayer:
		return KindPlayer
	default:
		return KindUnknown
	}
}

// Rune returns the display character for a kind.
func (k Kind) Rune() rune {
	switch k {
	case KindUnexplored:
		return ' '
	case KindExplored:
		return '.'
	case KindBlocked:
		return '#'
	case KindEntrance:
		return '<'
	case KindExit:
		return '>'
	case KindPlayer:
		return '@'
	default:
		return '?'
	}
}

// Cell is one rendered map cell. Kind is its sole visual classifier.
type Cell struct {
	Code models.TileCode
	Kind Kind
}

// Grid is a rendered dungeon map.
type Grid struct {
	Rows [][]Cell
}

// Render builds a grid from the map. Ragged rows and empty maps render
// whatever is present; each cell carries exactly one kind.
func Render(m models.DungeonMap) Grid {
	rows := make([][]Cell, len(m))
	for i, row := range m {
		cells := make([]Cell, len(row))
		for j, code := range row {
			cells[j] = Cell{Code: code, Kind: Classify(code)}
		}
		rows[i] = cells
	}
	return Grid{Rows: rows}
}

// Text draws the grid one rune per cell, one row per line.
func (g Grid) Text() string {
	var b strings.Builder
	for i, row := range g.Rows {
		if i > 0 {
			b.WriteByte('\n')
		}
		for _, c := range row {
			b.WriteRune(c.Kind.Rune())
		}
	}
	return b.String()
}
