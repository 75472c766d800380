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

// WriteAll returns a function that writes the merged grid to the output
// as is.
func WriteAll() GridManipulator {
	return func(m *Merger) error {
		t := m.tracker(StageWrite, 0, 0)
		for y := 0; y < m.Header.Height; y++ {
			for _, cell := range m.Grid.Row(y) {
				if !cell.Status.Empty() {
					m.observe(cell.Z)
				}
			}
			if err := m.writeRow(y); err != nil {
				return err
			}
			t.update(y+1, m.Header.Height)
		}
		return nil
	}
}

// writeRow writes row y of the merged grid to the output. Writers that
// cannot write whole rows only receive the populated cells.
func (m *Merger) writeRow(y int) error {
	row := m.Grid.Row(y)
	if w, ok := m.Output.(rowWriter); ok {
		recs := make([]gridfile.Record, len(row))
		for i, c := range row {
			recs[i] = c.Record
		}
		if err := w.WriteRow(y, recs); err != nil {
			return fmt.Errorf("gridmerge: writing output row %d: %v", y, err)
		}
		return nil
	}
	for x, c := range row {
		if c.Status.Empty() {
			continue
		}
		if err := m.Output.WriteRecord(gridfile.Coord{X: x, Y: y}, c.Record); err != nil {
			return fmt.Errorf("gridmerge: writing output: %v", err)
		}
	}
	return nil
}

// Finalize returns a function that records the observed value range in
// the output header and closes the output. It must run after all data
// has been written.
func Finalize() GridManipulator {
	return func(m *Merger) error {
		m.Header.MinZ, m.Header.MaxZ = m.minZ, m.maxZ
		if err := m.Output.UpdateHeader(m.Header); err != nil {
			return fmt.Errorf("gridmerge: updating output header: %v", err)
		}
		m.Log.WithFields(logrus.Fields{
			"min_z": m.minZ,
			"max_z": m.maxZ,
		}).Info("updated output header")
		return CloseOutput()(m)
	}
}
