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

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/gridmerge/gridfile"
)

// DefaultBufferSize is the default exclusion buffer radius, in cells.
const DefaultBufferSize = 4

// epsilon nudges cell centers off of cell boundaries before they are
// mapped into the output grid.
const epsilon = 1e-10

// Ingest returns a function that reads every cell of every input into the
// merged grid. The first input is copied in unconditionally. Cells from
// later inputs are only committed where the output is still empty or, if
// exclude is true, only when they are authoritative and no cell within
// buffer cells holds authoritative data from another input.
func Ingest(exclude bool, buffer int) GridManipulator {
	return func(m *Merger) error {
		if exclude && buffer < 0 {
			return fmt.Errorf("gridmerge: invalid exclusion buffer size %d", buffer)
		}
		for i, in := range m.Inputs {
			if err := m.ingest(i, in, exclude, buffer); err != nil {
				return err
			}
		}
		return nil
	}
}

func (m *Merger) ingest(i int, in Input, exclude bool, buffer int) error {
	rank := i + 1
	h := in.File.Header()
	t := m.tracker(StageRead, rank, len(m.Inputs))
	var committed, skipped int
	for y := 0; y < h.Height; y++ {
		for x := 0; x < h.Width; x++ {
			c := gridfile.Coord{X: x, Y: y}
			r, err := in.File.ReadRecord(c)
			if err != nil {
				return fmt.Errorf("gridmerge: reading %s: %v", in.Name, err)
			}
			lat, lon := in.File.LatLon(c)
			lat += epsilon
			lon += epsilon
			if m.Dateline && lon < 0 {
				lon += 360
			}
			oc, err := m.Header.Coord(lat, lon)
			if err != nil {
				skipped++
				continue
			}
			if m.accept(oc, r, rank, exclude, buffer) {
				m.Grid.commit(oc, r, rank)
				committed++
			}
		}
		t.update(y+1, h.Height)
	}
	m.Log.WithFields(logrus.Fields{
		"file":      rank,
		"name":      in.Name,
		"committed": committed,
		"skipped":   skipped,
	}).Info("read input grid")
	return nil
}

// accept decides whether record r from the input with the given rank
// should be written to the merged cell at c.
func (m *Merger) accept(c gridfile.Coord, r gridfile.Record, rank int, exclude bool, buffer int) bool {
	if rank == 1 {
		return true
	}
	if exclude {
		// The window includes c itself, so authoritative data from another
		// input is never replaced. Data from the same input may replace
		// itself, as the first input always does.
		return r.Status.Authoritative() && !m.Grid.authoritativeWithin(c, buffer, rank)
	}
	return m.Grid.At(c).Status.Empty()
}
