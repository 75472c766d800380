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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func testHeader() Header {
	return Header{
		WLon: -70, ELon: -69.8, SLat: 40, NLat: 40.1,
		LonSpacing: 0.05, LatSpacing: 0.05,
		Width: 5, Height: 3,
	}
}

func TestCreateOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.ch2")
	f, err := Create(path, testHeader())
	require.NoError(t, err)

	want := map[Coord]Record{
		{X: 0, Y: 0}: {Z: -12.5, Status: Real},
		{X: 4, Y: 2}: {Z: 3, Status: LandMask | Interpolated},
		{X: 2, Y: 1}: {Z: 7.25, Status: DigitizedContour},
	}
	for c, r := range want {
		require.NoError(t, f.WriteRecord(c, r))
	}
	row := make([]Record, 5)
	for i := range row {
		row[i] = Record{Z: float32(i), Status: Interpolated}
	}
	require.NoError(t, f.WriteRow(1, row))
	want[Coord{X: 2, Y: 1}] = row[2]

	h := f.Header()
	h.MinZ, h.MaxZ = -12.5, 4
	require.NoError(t, f.UpdateHeader(h))
	require.NoError(t, f.Close())
	require.NoError(t, f.Close(), "second close")

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()
	rh := r.Header()
	require.Equal(t, h, rh)

	for y := 0; y < rh.Height; y++ {
		for x := 0; x < rh.Width; x++ {
			c := Coord{X: x, Y: y}
			rec, err := r.ReadRecord(c)
			require.NoError(t, err)
			w, ok := want[c]
			if y == 1 {
				w, ok = row[x], true
			}
			if !ok {
				w = Record{}
			}
			require.Equal(t, w, rec, "cell %+v", c)
		}
	}
	require.Error(t, r.WriteRecord(Coord{}, Record{Z: 1, Status: Real}))
}

func TestCreateDiscardedWithoutHeaderUpdate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "partial.ch2")
	f, err := Create(path, testHeader())
	require.NoError(t, err)
	require.NoError(t, f.WriteRecord(Coord{X: 1, Y: 1}, Record{Z: 1, Status: Real}))
	require.NoError(t, f.Close())

	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err), "unfinished file should not exist")
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries, "temporary file should be removed")
}

func TestOpenInvalid(t *testing.T) {
	dir := t.TempDir()
	_, err := Open(filepath.Join(dir, "missing.ch2"))
	require.Error(t, err)

	junk := filepath.Join(dir, "junk.ch2")
	require.NoError(t, os.WriteFile(junk, []byte("this is not a grid"), 0644))
	_, err = Open(junk)
	require.Error(t, err)
}

func TestCreateInvalidHeader(t *testing.T) {
	h := testHeader()
	h.LonSpacing = 0
	_, err := Create(filepath.Join(t.TempDir(), "bad.ch2"), h)
	require.Error(t, err)
}

func TestCoordLatLon(t *testing.T) {
	h := testHeader()
	for y := 0; y < h.Height; y++ {
		for x := 0; x < h.Width; x++ {
			lat, lon := h.LatLon(Coord{X: x, Y: y})
			c, err := h.Coord(lat, lon)
			require.NoError(t, err)
			require.Equal(t, Coord{X: x, Y: y}, c)
		}
	}
	for _, ll := range [][2]float64{{39.9, -69.9}, {40.2, -69.9}, {40.05, -70.1}, {40.05, -69.7}} {
		_, err := h.Coord(ll[0], ll[1])
		require.ErrorIs(t, err, ErrOutsideGrid, "%v", ll)
	}
}

func TestOutsideGrid(t *testing.T) {
	f, err := Create(filepath.Join(t.TempDir(), "test.ch2"), testHeader())
	require.NoError(t, err)
	defer f.Close()
	require.Error(t, f.WriteRecord(Coord{X: 5, Y: 0}, Record{}))
	_, err = f.ReadRecord(Coord{X: 0, Y: -1})
	require.ErrorIs(t, err, ErrOutsideGrid)
}

func TestStatus(t *testing.T) {
	tests := []struct {
		s             Status
		authoritative bool
		str           string
	}{
		{0, false, "empty"},
		{Real, true, "real"},
		{Interpolated, false, "interpolated"},
		{LandMask | Interpolated, true, "interpolated|land"},
		{DigitizedContour, true, "digitized"},
	}
	for _, test := range tests {
		t.Run(test.str, func(t *testing.T) {
			require.Equal(t, test.authoritative, test.s.Authoritative())
			require.Equal(t, test.s == 0, test.s.Empty())
			require.Equal(t, test.str, test.s.String())
		})
	}
}
