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

	"github.com/ctessum/geom"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/gridmerge/gridfile"
)

// FilterBorder is the number of cells of padding added around each side
// of the output grid while it is being interpolated.
const FilterBorder = 9

// Interpolator fits surfaces to scattered points.
type Interpolator interface {
	// Init starts a new surface covering bounds, which is given in units
	// of cells relative to the south-west corner of the working area.
	Init(bounds *geom.Bounds) (Surface, error)
}

// Surface is a single interpolation session.
type Surface interface {
	// Load adds a data point. A point is assigned to the lower-left
	// corner of the cell it falls in.
	Load(x, y, z float64) error

	// Process fits the surface to the loaded points.
	Process() error

	// Retrieve copies the next row of the fitted surface, from south to
	// north, into row. It returns false when there are no rows left.
	Retrieve(row []float32) bool

	// NullValue is the value retrieved for locations the surface
	// could not estimate.
	NullValue() float32
}

// Regrid returns a function that re-interpolates the merged grid with
// engine and writes the result to the output grid. Authoritative cells
// keep their values; every other cell the engine can estimate takes the
// interpolated value and is flagged as interpolated.
func Regrid(engine Interpolator) GridManipulator {
	return func(m *Merger) error {
		h := m.Header
		cols := h.Width + 2*FilterBorder
		rows := h.Height + 2*FilterBorder

		// Working area in geographic coordinates.
		work := h.Bounds()
		work.Min.X -= FilterBorder * h.LonSpacing
		work.Min.Y -= FilterBorder * h.LatSpacing
		work.Max.X += FilterBorder * h.LonSpacing
		work.Max.Y += FilterBorder * h.LatSpacing

		s, err := engine.Init(&geom.Bounds{Max: geom.Point{X: float64(cols), Y: float64(rows)}})
		if err != nil {
			return fmt.Errorf("gridmerge: initializing interpolation: %v", err)
		}

		t := m.tracker(StageLoad, 0, 0)
		var n int
		for y := 0; y < h.Height; y++ {
			for x, cell := range m.Grid.Row(y) {
				if cell.Status.Empty() {
					continue
				}
				// Cell centers are loaded as is: the engine treats points
				// as belonging to the lower-left corner of their cell.
				lat, lon := h.LatLon(gridfile.Coord{X: x, Y: y})
				px := (lon - work.Min.X) / h.LonSpacing
				py := (lat - work.Min.Y) / h.LatSpacing
				if err := s.Load(px, py, float64(cell.Z)); err != nil {
					return fmt.Errorf("gridmerge: loading interpolation point: %v", err)
				}
				n++
			}
			t.update(y+1, h.Height)
		}
		m.Log.WithField("points", n).Info("loaded data for interpolation")
		if n == 0 {
			m.Log.Warn("merged grid is empty; skipping interpolation")
			return WriteAll()(m)
		}

		if err := s.Process(); err != nil {
			return fmt.Errorf("gridmerge: interpolating: %v", err)
		}
		m.Log.Info("interpolation complete")

		null := s.NullValue()
		buf := make([]float32, cols+1)
		t = m.tracker(StageRetrieve, 0, 0)
		var filled int
		for i := 0; i < rows-FilterBorder; i++ {
			if !s.Retrieve(buf) {
				return fmt.Errorf("%w (row %d of %d)", ErrEngineExhausted, i, rows-FilterBorder)
			}
			t.update(i+1, rows-FilterBorder)
			if i < FilterBorder {
				continue
			}
			y := i - FilterBorder
			if y >= h.Height {
				continue
			}
			row := m.Grid.Row(y)
			for j := FilterBorder; j < cols-FilterBorder; j++ {
				x := j - FilterBorder
				if x >= h.Width {
					continue
				}
				cell := &row[x]
				if !cell.Status.Authoritative() && buf[j] != null {
					cell.Z = buf[j]
					cell.Status |= gridfile.Interpolated
					filled++
				}
				if !cell.Status.Empty() {
					m.observe(cell.Z)
				}
			}
			if err := m.writeRow(y); err != nil {
				return err
			}
		}
		m.Log.WithFields(logrus.Fields{
			"interpolated": filled,
			"rows":         h.Height,
		}).Info("retrieved interpolated grid")
		return nil
	}
}
