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

// Package surface fits continuous surfaces to scattered points on a regular
// lattice of nodes. Points are binned onto the node at the lower-left corner
// of the lattice cell they fall in, empty nodes are seeded by inverse
// distance weighting, and the seeded nodes are then relaxed towards a smooth
// surface while the data nodes are held fixed.
package surface

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/BurntSushi/toml"
	"github.com/ctessum/geom"
	"github.com/spatialmodel/gridmerge"
	"gonum.org/v1/gonum/floats"
)

// Config holds the engine settings.
type Config struct {
	XInterval, YInterval float64 // node spacing

	// Power is the inverse distance weighting exponent used to seed
	// empty nodes.
	Power float64

	// SearchRadius is how far, in nodes, to look for data when seeding
	// an empty node. Nodes with no data within the radius are null.
	SearchRadius int

	// MinNeighbors is the number of data nodes after which the search
	// for seeding data stops expanding.
	MinNeighbors int

	// Weight is the relaxation factor, in (0, 1].
	Weight float64

	// Iterations caps the number of relaxation sweeps, which otherwise
	// stop when no node changes by more than Delta.
	Iterations int
	Delta      float64

	// Fitted values are clamped to [MinValue, MaxValue].
	MinValue, MaxValue float64

	// NullZ is returned for nodes that could not be estimated.
	NullZ float32
}

// DefaultConfig returns the default engine settings.
func DefaultConfig() Config {
	return Config{
		XInterval:    1,
		YInterval:    1,
		Power:        2,
		SearchRadius: 20,
		MinNeighbors: 4,
		Weight:       1,
		Iterations:   20,
		Delta:        0.05,
		MinValue:     -999999,
		MaxValue:     999999,
		NullZ:        1e30,
	}
}

// ReadConfig reads TOML-formatted settings from r. Settings missing
// from r keep their default values.
func ReadConfig(r io.Reader) (Config, error) {
	c := DefaultConfig()
	if _, err := toml.NewDecoder(r).Decode(&c); err != nil {
		return c, fmt.Errorf("surface: reading configuration: %v", err)
	}
	return c, c.Validate()
}

// Validate checks that c is usable.
func (c Config) Validate() error {
	switch {
	case c.XInterval <= 0 || c.YInterval <= 0:
		return fmt.Errorf("surface: node spacing must be positive but is %g×%g", c.XInterval, c.YInterval)
	case c.Power <= 0:
		return fmt.Errorf("surface: weighting power must be positive but is %g", c.Power)
	case c.SearchRadius < 1:
		return fmt.Errorf("surface: search radius must be at least 1 but is %d", c.SearchRadius)
	case c.MinNeighbors < 1:
		return fmt.Errorf("surface: MinNeighbors must be at least 1 but is %d", c.MinNeighbors)
	case c.Weight <= 0 || c.Weight > 1:
		return fmt.Errorf("surface: relaxation weight must be in (0, 1] but is %g", c.Weight)
	case c.Iterations < 0:
		return fmt.Errorf("surface: negative iteration count %d", c.Iterations)
	case c.Delta < 0:
		return fmt.Errorf("surface: negative convergence delta %g", c.Delta)
	case !(c.MinValue < c.MaxValue):
		return fmt.Errorf("surface: invalid value limits [%g, %g]", c.MinValue, c.MaxValue)
	}
	return nil
}

// ErrNoData is returned when a surface is processed without any points.
var ErrNoData = errors.New("surface: no data points have been loaded")

// maxNodes limits the size of a lattice.
const maxNodes = math.MaxInt32

// Engine creates surfaces.
type Engine struct {
	Config Config
}

var _ gridmerge.Interpolator = (*Engine)(nil)

// New returns an engine with the given settings.
func New(c Config) (*Engine, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &Engine{Config: c}, nil
}

// Init implements gridmerge.Interpolator. The lattice has a node at
// every multiple of the node spacing within bounds, edges included.
func (e *Engine) Init(b *geom.Bounds) (gridmerge.Surface, error) {
	s, err := e.NewSession(b)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NewSession returns a new surface covering b.
func (e *Engine) NewSession(b *geom.Bounds) (*Session, error) {
	if err := e.Config.Validate(); err != nil {
		return nil, err
	}
	if b == nil || b.Empty() {
		return nil, fmt.Errorf("surface: empty bounds")
	}
	nx := int(math.Round((b.Max.X-b.Min.X)/e.Config.XInterval)) + 1
	ny := int(math.Round((b.Max.Y-b.Min.Y)/e.Config.YInterval)) + 1
	if nx > maxNodes/ny {
		return nil, fmt.Errorf("surface: a lattice of %d×%d nodes is too large", nx, ny)
	}
	n := nx * ny
	return &Session{
		cfg:   e.Config,
		min:   b.Min,
		nx:    nx,
		ny:    ny,
		sum:   make([]float64, n),
		count: make([]int, n),
	}, nil
}

// Session is a surface being fitted.
type Session struct {
	cfg    Config
	min    geom.Point
	nx, ny int

	sum   []float64
	count []int

	z         []float64
	known     []bool // whether z holds an estimate
	processed bool
	next      int // next row to retrieve
}

// Size returns the number of lattice nodes in the x and y directions.
func (s *Session) Size() (nx, ny int) { return s.nx, s.ny }

// NullValue implements gridmerge.Surface.
func (s *Session) NullValue() float32 { return s.cfg.NullZ }

// Load implements gridmerge.Surface.
func (s *Session) Load(x, y, z float64) error {
	if s.processed {
		return fmt.Errorf("surface: cannot load data after processing")
	}
	if math.IsNaN(z) || math.IsInf(z, 0) {
		return fmt.Errorf("surface: invalid value %g at (%g, %g)", z, x, y)
	}
	i := math.Floor((x - s.min.X) / s.cfg.XInterval)
	j := math.Floor((y - s.min.Y) / s.cfg.YInterval)
	if !(i >= 0 && j >= 0 && i < float64(s.nx) && j < float64(s.ny)) {
		return fmt.Errorf("surface: point (%g, %g) is outside of the lattice", x, y)
	}
	k := int(j)*s.nx + int(i)
	s.sum[k] += z
	s.count[k]++
	return nil
}

// Process implements gridmerge.Surface.
func (s *Session) Process() error {
	if s.processed {
		return fmt.Errorf("surface: already processed")
	}
	s.z = make([]float64, len(s.sum))
	s.known = make([]bool, len(s.sum))
	fixed := make([]bool, len(s.sum))
	var data []float64
	for k, n := range s.count {
		if n == 0 {
			continue
		}
		s.z[k] = s.sum[k] / float64(n)
		s.known[k] = true
		fixed[k] = true
		data = append(data, s.z[k])
	}
	if len(data) == 0 {
		return ErrNoData
	}
	lo := math.Max(floats.Min(data), s.cfg.MinValue)
	hi := math.Min(floats.Max(data), s.cfg.MaxValue)

	s.seed(fixed)
	s.relax(fixed)

	for k, ok := range s.known {
		if ok {
			s.z[k] = math.Max(lo, math.Min(hi, s.z[k]))
		}
	}
	s.sum, s.count = nil, nil
	s.processed = true
	return nil
}

// seed estimates every node that has no data from the data nodes around
// it using inverse distance weighting.
func (s *Session) seed(fixed []bool) {
	for j := 0; j < s.ny; j++ {
		for i := 0; i < s.nx; i++ {
			k := j*s.nx + i
			if fixed[k] {
				continue
			}
			var wsum, zsum float64
			var found int
			for r := 1; r <= s.cfg.SearchRadius && found < s.cfg.MinNeighbors; r++ {
				s.ring(i, j, r, func(ii, jj int) {
					kk := jj*s.nx + ii
					if !fixed[kk] {
						return
					}
					d := math.Hypot(float64(ii-i), float64(jj-j))
					if d > float64(s.cfg.SearchRadius) {
						return
					}
					w := 1 / math.Pow(d, s.cfg.Power)
					wsum += w
					zsum += w * s.z[kk]
					found++
				})
			}
			if found > 0 {
				s.z[k] = zsum / wsum
				s.known[k] = true
			}
		}
	}
}

// ring calls f for every node at Chebyshev distance r from (i, j)
// that is within the lattice.
func (s *Session) ring(i, j, r int, f func(ii, jj int)) {
	for jj := j - r; jj <= j+r; jj++ {
		if jj < 0 || jj >= s.ny {
			continue
		}
		step := 1
		if jj != j-r && jj != j+r {
			step = 2 * r
		}
		for ii := i - r; ii <= i+r; ii += step {
			if ii >= 0 && ii < s.nx {
				f(ii, jj)
			}
		}
	}
}

// relax smooths the seeded nodes with Gauss-Seidel sweeps, moving each
// one towards the mean of its estimated neighbors.
func (s *Session) relax(fixed []bool) {
	for it := 0; it < s.cfg.Iterations; it++ {
		var maxChange float64
		for j := 0; j < s.ny; j++ {
			for i := 0; i < s.nx; i++ {
				k := j*s.nx + i
				if fixed[k] || !s.known[k] {
					continue
				}
				var sum float64
				var n int
				for _, nb := range [4][2]int{{i - 1, j}, {i + 1, j}, {i, j - 1}, {i, j + 1}} {
					if nb[0] < 0 || nb[1] < 0 || nb[0] >= s.nx || nb[1] >= s.ny {
						continue
					}
					if kk := nb[1]*s.nx + nb[0]; s.known[kk] {
						sum += s.z[kk]
						n++
					}
				}
				if n == 0 {
					continue
				}
				change := s.cfg.Weight * (sum/float64(n) - s.z[k])
				s.z[k] += change
				maxChange = math.Max(maxChange, math.Abs(change))
			}
		}
		if maxChange < s.cfg.Delta {
			return
		}
	}
}

// Retrieve implements gridmerge.Surface. Rows hold one value per node;
// extra elements of row are left untouched.
func (s *Session) Retrieve(row []float32) bool {
	if !s.processed || s.next >= s.ny {
		return false
	}
	j := s.next
	s.next++
	for i := 0; i < s.nx && i < len(row); i++ {
		k := j*s.nx + i
		if s.known[k] {
			row[i] = float32(s.z[k])
		} else {
			row[i] = s.cfg.NullZ
		}
	}
	return true
}
