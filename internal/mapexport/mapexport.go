// Package mapexport renders the explored floor to a printable PDF,
// one shaded square per tile.
package mapexport

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/jung-kurt/gofpdf/v2"

	"github.com/dicecrawl/dicecrawl/internal/models"
)

const (
	margin   = 36.0
	cellSize = 28.0
)

type rgb struct{ r, g, b int }

var tileFill = map[models.TileCode]rgb{
	models.TileUnexplored: {60, 60, 60},
	models.TileExplored:   {235, 225, 200},
	models.TileBlocked:    {120, 90, 60},
	models.TileEntrance:   {120, 170, 120},
	models.TileExit:       {170, 120, 170},
	models.TilePlayer:     {200, 60, 60},
}

var tileLabel = map[models.TileCode]string{
	models.TileEntrance: "<",
	models.TileExit:     ">",
	models.TilePlayer:   "@",
}

// Render draws the floor as a PDF page and returns the bytes. Unknown
// tile codes are shaded like unexplored ground.
func Render(m models.DungeonMap, title string) ([]byte, error) {
	if len(m) == 0 {
		return nil, errors.New("empty map")
	}

	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetTextColor(40, 25, 15)
	pdf.SetXY(margin, margin)
	pdf.CellFormat(200, 16, title, "", 0, "L", false, 0, "")

	pdf.SetDrawColor(80, 50, 30)
	pdf.SetLineWidth(0.5)
	pdf.SetFont("Helvetica", "B", 11)

	y0 := margin + 30
	for row := range m {
		for col, code := range m[row] {
			fill, ok := tileFill[code]
			if !ok {
				fill = tileFill[models.TileUnexplored]
			}
			x := margin + float64(col)*cellSize
			y := y0 + float64(row)*cellSize
			pdf.SetFillColor(fill.r, fill.g, fill.b)
			pdf.Rect(x, y, cellSize, cellSize, "FD")
			if label, ok := tileLabel[code]; ok {
				pdf.SetXY(x, y+cellSize/2-6)
				pdf.CellFormat(cellSize, 12, label, "", 0, "C", false, 0, "")
			}
		}
	}

	// Legend under the grid.
	ly := y0 + float64(len(m))*cellSize + 20
	pdf.SetFont("Helvetica", "", 9)
	for i, entry := range []struct {
		code models.TileCode
		name string
	}{
		{models.TilePlayer, "you"},
		{models.TileEntrance, "entrance"},
		{models.TileExit, "exit"},
		{models.TileBlocked, "blocked"},
		{models.TileUnexplored, "unexplored"},
	} {
		fill := tileFill[entry.code]
		x := margin + float64(i)*95
		pdf.SetFillColor(fill.r, fill.g, fill.b)
		pdf.Rect(x, ly, 10, 10, "FD")
		pdf.SetXY(x+14, ly-1)
		pdf.CellFormat(80, 12, entry.name, "", 0, "L", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile renders the floor and writes it to path.
func WriteFile(path string, m models.DungeonMap, floor int) error {
	b, err := Render(m, fmt.Sprintf("Floor %d", floor))
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
