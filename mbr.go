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

	"github.com/ctessum/geom"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/gridmerge/gridfile"
)

// UnifyHeaders returns the header of a grid covering all of the given
// grids, with the cell spacing of the first one. dateline is true when
// any grid extends east of 360°, in which case the returned east
// longitude is wrapped to lie east of the west longitude.
func UnifyHeaders(headers []gridfile.Header) (h gridfile.Header, dateline bool, err error) {
	if len(headers) == 0 {
		return h, false, fmt.Errorf("gridmerge: no grids to unify")
	}
	b := geom.NewBounds()
	for _, hh := range headers {
		b.Extend(hh.Bounds())
		if hh.ELon > 360 {
			dateline = true
		}
	}
	if dateline && b.Max.X < b.Min.X {
		b.Max.X += 360
	}

	h = headers[0]
	h.WLon, h.SLat = b.Min.X, b.Min.Y
	h.ELon, h.NLat = b.Max.X, b.Max.Y
	h.Width = int(math.Round((h.ELon-h.WLon)/h.LonSpacing)) + 1
	h.Height = int(math.Round((h.NLat-h.SLat)/h.LatSpacing)) + 1
	h.MinZ, h.MaxZ = 0, 0
	if err := h.Validate(); err != nil {
		return h, dateline, fmt.Errorf("gridmerge: unified grid is invalid: %v", err)
	}
	return h, dateline, nil
}

// Unify returns a function that sets the output header of m to cover
// all of the inputs.
func Unify() GridManipulator {
	return func(m *Merger) error {
		headers := make([]gridfile.Header, len(m.Inputs))
		for i, in := range m.Inputs {
			headers[i] = in.File.Header()
		}
		h, dateline, err := UnifyHeaders(headers)
		if err != nil {
			return err
		}
		m.Header, m.Dateline = h, dateline
		m.Log.WithFields(logrus.Fields{
			"wlon": h.WLon, "elon": h.ELon, "slat": h.SLat, "nlat": h.NLat,
			"width": h.Width, "height": h.Height, "dateline": dateline,
		}).Info("unified output grid")
		return nil
	}
}
