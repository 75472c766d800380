/*
Copyright © 2026 the gridmerge authors.
This file is part of gridmerge.

gridmerge is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

gridmerge is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with gridmerge.  If not, see <http://www.gnu.org/licenses/>.
*/

package gridmerge

import (
	"fmt"
	"math"

	"github.com/spatialmodel/gridmerge/gridfile"
)

// maxGridCells limits the size of the in-memory output grid.
const maxGridCells = math.MaxInt32

// RankedCell is a grid cell together with the input that supplied it.
type RankedCell struct {
	gridfile.Record

	// Rank is the 1-based index of the input file that supplied the
	// record. It is 0 if no input has written to the cell.
	Rank int
}

// Grid is the in-memory merged surface. Cells are stored row-major
// starting at the south-west corner.
type Grid struct {
	Width, Height int
	Cells         []RankedCell
}

// NewGrid allocates an empty grid with the given dimensions.
func NewGrid(width, height int) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("gridmerge: invalid grid size %d×%d", width, height)
	}
	if width > maxGridCells/height {
		return nil, fmt.Errorf("gridmerge: a grid of %d×%d cells is too large to allocate", width, height)
	}
	return &Grid{
		Width:  width,
		Height: height,
		Cells:  make([]RankedCell, width*height),
	}, nil
}

// Contains returns whether c is within g.
func (g *Grid) Contains(c gridfile.Coord) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < g.Width && c.Y < g.Height
}

// Index returns the position of c in g.Cells.
func (g *Grid) Index(c gridfile.Coord) int { return c.Y*g.Width + c.X }

// At returns the cell at c. It panics if c is outside of g.
func (g *Grid) At(c gridfile.Coord) *RankedCell {
	if !g.Contains(c) {
		panic(fmt.Errorf("gridmerge: coordinate %+v is outside of %d×%d grid", c, g.Width, g.Height))
	}
	return &g.Cells[g.Index(c)]
}

// Row returns the cells in row y.
func (g *Grid) Row(y int) []RankedCell {
	return g.Cells[y*g.Width : (y+1)*g.Width]
}

// commit stores r in the cell at c on behalf of the input with the given rank.
func (g *Grid) commit(c gridfile.Coord, r gridfile.Record, rank int) {
	cell := g.At(c)
	cell.Record = r
	cell.Rank = rank
}

// authoritativeWithin returns whether any cell within buffer cells of c
// (inclusive, clipped to the grid) holds authoritative data supplied by an
// input other than rank.
func (g *Grid) authoritativeWithin(c gridfile.Coord, buffer, rank int) bool {
	startX, endX := max(c.X-buffer, 0), min(c.X+buffer, g.Width-1)
	startY, endY := max(c.Y-buffer, 0), min(c.Y+buffer, g.Height-1)
	for y := startY; y <= endY; y++ {
		row := g.Row(y)
		for x := startX; x <= endX; x++ {
			if row[x].Rank != rank && row[x].Status.Authoritative() {
				return true
			}
		}
	}
	return false
}
