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

// Package gridfile reads and writes regularly spaced elevation and
// bathymetry grids. Each file holds one header describing the geographic
// extent and cell spacing of the grid, and one record per cell made up of
// a value and a status bitmask. Files are stored in NetCDF classic format.
package gridfile

import (
	"errors"
	"fmt"
	"math"

	"github.com/ctessum/geom"
)

// Extension is the file name extension used for grid files.
const Extension = ".ch2"

// Status is a bitmask describing the provenance of a cell value.
// A zero Status means the cell holds no data.
type Status uint16

// Status flags.
const (
	Real Status = 1 << iota
	DigitizedContour
	Interpolated
	LandMask
)

// Authoritative holds the flags that mark ground-truth data.
const Authoritative = Real | DigitizedContour | LandMask

// Authoritative returns whether s carries any ground-truth flag.
func (s Status) Authoritative() bool { return s&Authoritative != 0 }

// Empty returns whether s represents a cell with no data.
func (s Status) Empty() bool { return s == 0 }

func (s Status) String() string {
	if s == 0 {
		return "empty"
	}
	var o string
	for _, f := range []struct {
		s    Status
		name string
	}{{Real, "real"}, {DigitizedContour, "digitized"}, {Interpolated, "interpolated"}, {LandMask, "land"}} {
		if s&f.s != 0 {
			if o != "" {
				o += "|"
			}
			o += f.name
		}
	}
	return o
}

// Record is the contents of one grid cell.
type Record struct {
	Z      float32
	Status Status
}

// Coord is an integer grid coordinate. X is the column counted
// eastward from the west edge and Y is the row counted northward
// from the south edge.
type Coord struct {
	X, Y int
}

// ErrOutsideGrid is returned when a location does not fall
// within a grid.
var ErrOutsideGrid = errors.New("gridfile: location is outside of the grid")

// Header describes the geometry of a grid.
type Header struct {
	WLon, ELon float64 // west and east longitude of the grid [degrees]
	SLat, NLat float64 // south and north latitude of the grid [degrees]

	LonSpacing float64 // cell size in the east-west direction [degrees]
	LatSpacing float64 // cell size in the north-south direction [degrees]

	Width, Height int // number of columns and rows

	MinZ, MaxZ float32 // observed value range
}

// Bounds returns the bounding box of h, with X representing longitude
// and Y representing latitude.
func (h Header) Bounds() *geom.Bounds {
	return &geom.Bounds{
		Min: geom.Point{X: h.WLon, Y: h.SLat},
		Max: geom.Point{X: h.ELon, Y: h.NLat},
	}
}

// Validate checks that h describes a usable grid.
func (h Header) Validate() error {
	for _, v := range []float64{h.WLon, h.ELon, h.SLat, h.NLat, h.LonSpacing, h.LatSpacing} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("gridfile: invalid header value %g", v)
		}
	}
	if h.LonSpacing <= 0 || h.LatSpacing <= 0 {
		return fmt.Errorf("gridfile: grid spacing must be positive but is %g×%g", h.LonSpacing, h.LatSpacing)
	}
	if h.Width <= 0 || h.Height <= 0 {
		return fmt.Errorf("gridfile: grid size must be positive but is %d×%d", h.Width, h.Height)
	}
	if h.ELon < h.WLon || h.NLat < h.SLat {
		return fmt.Errorf("gridfile: inverted bounds %+v", *h.Bounds())
	}
	return nil
}

// LatLon returns the location of the center of the cell at c.
func (h Header) LatLon(c Coord) (lat, lon float64) {
	lat = h.SLat + (float64(c.Y)+0.5)*h.LatSpacing
	lon = h.WLon + (float64(c.X)+0.5)*h.LonSpacing
	return
}

// Coord returns the coordinate of the cell containing the given location.
func (h Header) Coord(lat, lon float64) (Coord, error) {
	x := math.Floor((lon - h.WLon) / h.LonSpacing)
	y := math.Floor((lat - h.SLat) / h.LatSpacing)
	if math.IsNaN(x) || math.IsNaN(y) || x < 0 || y < 0 || x >= float64(h.Width) || y >= float64(h.Height) {
		return Coord{}, ErrOutsideGrid
	}
	return Coord{X: int(x), Y: int(y)}, nil
}

// Contains returns whether c is a valid coordinate in h.
func (h Header) Contains(c Coord) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < h.Width && c.Y < h.Height
}
