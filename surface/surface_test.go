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

package surface

import (
	"math"
	"strings"
	"testing"

	"github.com/ctessum/geom"
)

func newSession(t *testing.T, c Config, maxX, maxY float64) *Session {
	t.Helper()
	e, err := New(c)
	if err != nil {
		t.Fatal(err)
	}
	s, err := e.NewSession(&geom.Bounds{Max: geom.Point{X: maxX, Y: maxY}})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func retrieveAll(t *testing.T, s *Session) [][]float32 {
	t.Helper()
	nx, ny := s.Size()
	var out [][]float32
	for {
		row := make([]float32, nx)
		if !s.Retrieve(row) {
			break
		}
		out = append(out, row)
	}
	if len(out) != ny {
		t.Fatalf("retrieved %d rows, want %d", len(out), ny)
	}
	return out
}

func TestReadConfig(t *testing.T) {
	c, err := ReadConfig(strings.NewReader("Power = 3.0\nSearchRadius = 5\nNullZ = -1.0\n"))
	if err != nil {
		t.Fatal(err)
	}
	want := DefaultConfig()
	want.Power = 3
	want.SearchRadius = 5
	want.NullZ = -1
	if c != want {
		t.Errorf("have %+v, want %+v", c, want)
	}
}

func TestReadConfigInvalid(t *testing.T) {
	for _, in := range []string{"Weight = 2.0", "SearchRadius = 0", "Power = "} {
		if _, err := ReadConfig(strings.NewReader(in)); err == nil {
			t.Errorf("%q: expected an error", in)
		}
	}
}

func TestExactData(t *testing.T) {
	s := newSession(t, DefaultConfig(), 2, 2)
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			if err := s.Load(float64(x)+0.5, float64(y)+0.5, float64(10*y+x)); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := s.Process(); err != nil {
		t.Fatal(err)
	}
	for y, row := range retrieveAll(t, s) {
		for x, v := range row {
			if v != float32(10*y+x) {
				t.Errorf("(%d, %d): have %g, want %d", x, y, v, 10*y+x)
			}
		}
	}
}

func TestAveragesCoincidentPoints(t *testing.T) {
	s := newSession(t, DefaultConfig(), 0, 0)
	for _, z := range []float64{1, 2, 6} {
		if err := s.Load(0.2, 0.7, z); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Process(); err != nil {
		t.Fatal(err)
	}
	if v := retrieveAll(t, s)[0][0]; v != 3 {
		t.Errorf("have %g, want 3", v)
	}
}

func TestFillsGapWithinRange(t *testing.T) {
	s := newSession(t, DefaultConfig(), 4, 4)
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			if x == 2 && y == 2 {
				continue
			}
			if err := s.Load(float64(x), float64(y), float64(x+y)); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := s.Process(); err != nil {
		t.Fatal(err)
	}
	v := retrieveAll(t, s)[2][2]
	if v < 0 || v > 8 {
		t.Errorf("interpolated value %g is outside of the data range", v)
	}
	if math.Abs(float64(v)-4) > 0.5 {
		t.Errorf("have %g, want about 4", v)
	}
}

func TestLinearProfile(t *testing.T) {
	c := DefaultConfig()
	c.MinNeighbors = 2
	c.Iterations = 1000
	c.Delta = 1e-9
	s := newSession(t, c, 10, 0)
	if err := s.Load(0, 0, 0); err != nil {
		t.Fatal(err)
	}
	if err := s.Load(10, 0, 10); err != nil {
		t.Fatal(err)
	}
	if err := s.Process(); err != nil {
		t.Fatal(err)
	}
	for x, v := range retrieveAll(t, s)[0] {
		if math.Abs(float64(v)-float64(x)) > 0.01 {
			t.Errorf("node %d: have %g, want %d", x, v, x)
		}
	}
}

func TestNullBeyondSearchRadius(t *testing.T) {
	c := DefaultConfig()
	c.SearchRadius = 2
	s := newSession(t, c, 9, 0)
	if err := s.Load(0, 0, 5); err != nil {
		t.Fatal(err)
	}
	if err := s.Process(); err != nil {
		t.Fatal(err)
	}
	row := retrieveAll(t, s)[0]
	for x, v := range row {
		if x <= 2 && v != 5 {
			t.Errorf("node %d: have %g, want 5", x, v)
		}
		if x > 2 && v != s.NullValue() {
			t.Errorf("node %d: have %g, want null", x, v)
		}
	}
}

func TestNoData(t *testing.T) {
	s := newSession(t, DefaultConfig(), 3, 3)
	if err := s.Process(); err != ErrNoData {
		t.Errorf("have %v, want %v", err, ErrNoData)
	}
	if s.Retrieve(make([]float32, 4)) {
		t.Error("retrieved a row from an unprocessed surface")
	}
}

func TestLoadOutside(t *testing.T) {
	s := newSession(t, DefaultConfig(), 2, 2)
	for _, p := range [][2]float64{{-0.1, 0}, {0, -0.1}, {3, 0}, {0, 3.5}} {
		if err := s.Load(p[0], p[1], 1); err == nil {
			t.Errorf("%v: expected an error", p)
		}
	}
	if err := s.Load(0, 0, math.NaN()); err == nil {
		t.Error("expected an error for NaN")
	}
}

func TestLoadAfterProcess(t *testing.T) {
	s := newSession(t, DefaultConfig(), 1, 1)
	if err := s.Load(0, 0, 1); err != nil {
		t.Fatal(err)
	}
	if err := s.Process(); err != nil {
		t.Fatal(err)
	}
	if err := s.Load(0, 0, 1); err == nil {
		t.Error("expected an error")
	}
	if err := s.Process(); err == nil {
		t.Error("expected an error")
	}
}

func TestNewSessionInvalid(t *testing.T) {
	e, err := New(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.NewSession(geom.NewBounds()); err == nil {
		t.Error("expected an error for empty bounds")
	}
	if _, err := New(Config{}); err == nil {
		t.Error("expected an error for a zero configuration")
	}
}
