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

package gridfile

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ctessum/cdf"
)

// formatVersion is stored in every file and checked on open.
const formatVersion = "1"

// File is an open grid file.
type File struct {
	path string
	tmp  string // temporary location of a file that is being created

	ff *os.File
	f  *cdf.File
	h  Header

	writable, finalized, closed bool

	// One-row read cache.
	row     int
	zRow    []float32
	statRow []int16
}

// Open opens the grid file at path for reading.
func Open(path string) (*File, error) {
	ff, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gridfile: opening %s: %v", path, err)
	}
	f, err := cdf.Open(ff)
	if err != nil {
		ff.Close()
		return nil, fmt.Errorf("gridfile: %s is not a grid file: %v", path, err)
	}
	h, err := readHeader(f)
	if err != nil {
		ff.Close()
		return nil, fmt.Errorf("gridfile: reading header of %s: %v", path, err)
	}
	return &File{path: path, ff: ff, f: f, h: h, row: -1}, nil
}

// Create creates a new grid file at path described by h. Data is written
// to a temporary file next to path, which is only moved to path when the
// file is closed after a successful call to UpdateHeader.
// All cells start out empty.
func Create(path string, h Header) (*File, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}
	hdr := cdf.NewHeader([]string{"lat", "lon", "minmax"}, []int{h.Height, h.Width, 2})
	hdr.AddAttribute("", "comment", "gridmerge elevation grid")
	hdr.AddAttribute("", "format_version", formatVersion)
	hdr.AddAttribute("", "wlon", []float64{h.WLon})
	hdr.AddAttribute("", "elon", []float64{h.ELon})
	hdr.AddAttribute("", "slat", []float64{h.SLat})
	hdr.AddAttribute("", "nlat", []float64{h.NLat})
	hdr.AddAttribute("", "lon_spacing", []float64{h.LonSpacing})
	hdr.AddAttribute("", "lat_spacing", []float64{h.LatSpacing})
	hdr.AddAttribute("", "width", []int32{int32(h.Width)})
	hdr.AddAttribute("", "height", []int32{int32(h.Height)})

	hdr.AddVariable("z", []string{"lat", "lon"}, []float32{0})
	hdr.AddAttribute("z", "description", "Cell elevation or depth")
	hdr.AddAttribute("z", "units", "m")
	hdr.AddVariable("status", []string{"lat", "lon"}, []int16{0})
	hdr.AddAttribute("status", "description", "Cell status bitmask")
	hdr.AddVariable("observed_z", []string{"minmax"}, []float32{0})
	hdr.AddAttribute("observed_z", "description", "Minimum and maximum observed cell values")
	hdr.Define()

	for _, err := range hdr.Check() {
		return nil, fmt.Errorf("gridfile: creating header for %s: %v", path, err)
	}

	ff, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("gridfile: creating %s: %v", path, err)
	}
	fail := func(err error) (*File, error) {
		ff.Close()
		os.Remove(ff.Name())
		return nil, fmt.Errorf("gridfile: creating %s: %v", path, err)
	}
	f, err := cdf.Create(ff, hdr)
	if err != nil {
		return fail(err)
	}
	// The NetCDF fill values are not zero, so zero the data section.
	n := h.Width * h.Height
	if err := write(f.Writer("z", nil, nil), make([]float32, n)); err != nil {
		return fail(err)
	}
	if err := write(f.Writer("status", nil, nil), make([]int16, n)); err != nil {
		return fail(err)
	}
	if err := write(f.Writer("observed_z", nil, nil), make([]float32, 2)); err != nil {
		return fail(err)
	}
	return &File{path: path, tmp: ff.Name(), ff: ff, f: f, h: h, writable: true, row: -1}, nil
}

// write writes values using w. Writers report io.EOF when they
// reach the end of their range, which is not an error here.
func write(w cdf.Writer, values interface{}) error {
	if w == nil {
		return fmt.Errorf("missing variable")
	}
	if _, err := w.Write(values); err != nil && err != io.EOF {
		return err
	}
	return nil
}

func readHeader(f *cdf.File) (Header, error) {
	var h Header
	v, ok := f.Header.GetAttribute("", "format_version").(string)
	if !ok {
		return h, fmt.Errorf("missing format_version")
	}
	if v != formatVersion {
		return h, fmt.Errorf("format version %s is incompatible with the required version %s", v, formatVersion)
	}
	for _, a := range []struct {
		name string
		dst  *float64
	}{
		{"wlon", &h.WLon}, {"elon", &h.ELon}, {"slat", &h.SLat}, {"nlat", &h.NLat},
		{"lon_spacing", &h.LonSpacing}, {"lat_spacing", &h.LatSpacing},
	} {
		v, ok := f.Header.GetAttribute("", a.name).([]float64)
		if !ok || len(v) != 1 {
			return h, fmt.Errorf("missing attribute %s", a.name)
		}
		*a.dst = v[0]
	}
	for _, a := range []struct {
		name string
		dst  *int
	}{{"width", &h.Width}, {"height", &h.Height}} {
		v, ok := f.Header.GetAttribute("", a.name).([]int32)
		if !ok || len(v) != 1 {
			return h, fmt.Errorf("missing attribute %s", a.name)
		}
		*a.dst = int(v[0])
	}
	if err := h.Validate(); err != nil {
		return h, err
	}

	vars := make(map[string]bool)
	for _, v := range f.Header.Variables() {
		vars[v] = true
	}
	for _, v := range []string{"z", "status"} {
		if !vars[v] {
			return h, fmt.Errorf("missing variable %s", v)
		}
		l := f.Header.Lengths(v)
		if len(l) != 2 || l[0] != h.Height || l[1] != h.Width {
			return h, fmt.Errorf("variable %s has dimensions %v but the header specifies %d×%d", v, l, h.Height, h.Width)
		}
	}
	if vars["observed_z"] {
		minmax := make([]float32, 2)
		if _, err := f.Reader("observed_z", nil, nil).Read(minmax); err != nil && err != io.EOF {
			return h, fmt.Errorf("reading observed_z: %v", err)
		}
		h.MinZ, h.MaxZ = minmax[0], minmax[1]
	}
	return h, nil
}

// Path returns the final location of f.
func (f *File) Path() string { return f.path }

// Header returns the header of f.
func (f *File) Header() Header { return f.h }

// LatLon returns the location of the center of the cell at c.
func (f *File) LatLon(c Coord) (lat, lon float64) { return f.h.LatLon(c) }

// Coord returns the coordinate of the cell containing the given location.
func (f *File) Coord(lat, lon float64) (Coord, error) { return f.h.Coord(lat, lon) }

func (f *File) check(c Coord) error {
	if f.closed {
		return fmt.Errorf("gridfile: %s is closed", f.path)
	}
	if !f.h.Contains(c) {
		return fmt.Errorf("gridfile: %s: coordinate %+v: %w", f.path, c, ErrOutsideGrid)
	}
	return nil
}

// ReadRecord returns the record at c.
func (f *File) ReadRecord(c Coord) (Record, error) {
	if err := f.check(c); err != nil {
		return Record{}, err
	}
	if f.row != c.Y {
		if err := f.loadRow(c.Y); err != nil {
			return Record{}, err
		}
	}
	return Record{Z: f.zRow[c.X], Status: Status(f.statRow[c.X])}, nil
}

func (f *File) loadRow(y int) error {
	if f.zRow == nil {
		f.zRow = make([]float32, f.h.Width)
		f.statRow = make([]int16, f.h.Width)
	}
	f.row = -1
	begin := []int{y, 0}
	if _, err := f.f.Reader("z", begin, nil).Read(f.zRow); err != nil && err != io.EOF {
		return fmt.Errorf("gridfile: reading %s row %d: %v", f.path, y, err)
	}
	if _, err := f.f.Reader("status", begin, nil).Read(f.statRow); err != nil && err != io.EOF {
		return fmt.Errorf("gridfile: reading %s row %d: %v", f.path, y, err)
	}
	f.row = y
	return nil
}

// WriteRecord writes r to the cell at c.
func (f *File) WriteRecord(c Coord, r Record) error {
	if err := f.check(c); err != nil {
		return err
	}
	if !f.writable {
		return fmt.Errorf("gridfile: %s is read-only", f.path)
	}
	idx := []int{c.Y, c.X}
	if err := write(f.f.Writer("z", idx, idx), []float32{r.Z}); err != nil {
		return fmt.Errorf("gridfile: writing %s %+v: %v", f.path, c, err)
	}
	if err := write(f.f.Writer("status", idx, idx), []int16{int16(r.Status)}); err != nil {
		return fmt.Errorf("gridfile: writing %s %+v: %v", f.path, c, err)
	}
	if f.row == c.Y {
		f.zRow[c.X], f.statRow[c.X] = r.Z, int16(r.Status)
	}
	return nil
}

// WriteRow writes a full row of records, starting at the west edge of row y.
func (f *File) WriteRow(y int, row []Record) error {
	if err := f.check(Coord{Y: y}); err != nil {
		return err
	}
	if !f.writable {
		return fmt.Errorf("gridfile: %s is read-only", f.path)
	}
	if len(row) != f.h.Width {
		return fmt.Errorf("gridfile: row has %d records but %s is %d cells wide", len(row), f.path, f.h.Width)
	}
	z := make([]float32, len(row))
	s := make([]int16, len(row))
	for i, r := range row {
		z[i], s[i] = r.Z, int16(r.Status)
	}
	begin := []int{y, 0}
	if err := write(f.f.Writer("z", begin, nil), z); err != nil {
		return fmt.Errorf("gridfile: writing %s row %d: %v", f.path, y, err)
	}
	if err := write(f.f.Writer("status", begin, nil), s); err != nil {
		return fmt.Errorf("gridfile: writing %s row %d: %v", f.path, y, err)
	}
	if f.row == y {
		f.row = -1
	}
	return nil
}

// UpdateHeader stores the observed value range from h and marks a
// created file as complete. The geometry of the file cannot change.
func (f *File) UpdateHeader(h Header) error {
	if f.closed {
		return fmt.Errorf("gridfile: %s is closed", f.path)
	}
	if !f.writable {
		return fmt.Errorf("gridfile: %s is read-only", f.path)
	}
	if h.Width != f.h.Width || h.Height != f.h.Height || h.Bounds().Min != f.h.Bounds().Min ||
		h.Bounds().Max != f.h.Bounds().Max {
		return fmt.Errorf("gridfile: %s: header geometry cannot be changed", f.path)
	}
	if err := write(f.f.Writer("observed_z", nil, nil), []float32{h.MinZ, h.MaxZ}); err != nil {
		return fmt.Errorf("gridfile: updating header of %s: %v", f.path, err)
	}
	if err := f.ff.Sync(); err != nil {
		return fmt.Errorf("gridfile: updating header of %s: %v", f.path, err)
	}
	f.h.MinZ, f.h.MaxZ = h.MinZ, h.MaxZ
	f.finalized = true
	return nil
}

// Close closes f. A created file is moved to its final location if its
// header has been updated and is discarded otherwise.
// Calling Close more than once has no effect.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	err := f.ff.Close()
	if !f.writable {
		return err
	}
	if err != nil || !f.finalized {
		os.Remove(f.tmp)
		if err != nil {
			return fmt.Errorf("gridfile: closing %s: %v", f.path, err)
		}
		return nil
	}
	if err := os.Rename(f.tmp, f.path); err != nil {
		os.Remove(f.tmp)
		return fmt.Errorf("gridfile: finalizing %s: %v", f.path, err)
	}
	return nil
}
