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

// Package gridmerge merges two or more elevation or bathymetry grids into a
// single grid. Inputs are ranked by the order in which they are given: data
// from an earlier input takes precedence over data from a later one. The
// merged surface can optionally be re-interpolated to fill gaps, without
// ever altering cells that hold real, digitized or land-masked data.
package gridmerge

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/gridmerge/gridfile"
)

// Version gives the version number.
const Version = "1.0.0"

// Limits on the number of inputs to a merge.
const (
	MinInputs = 2
	MaxInputs = 16
)

var (
	// ErrTooFewInputs is returned when fewer than MinInputs grids are merged.
	ErrTooFewInputs = fmt.Errorf("gridmerge: at least %d input grids are required", MinInputs)

	// ErrTooManyInputs is returned when more than MaxInputs grids are merged.
	ErrTooManyInputs = fmt.Errorf("gridmerge: no more than %d input grids can be merged", MaxInputs)

	// ErrEngineExhausted is returned when the interpolation engine runs out
	// of rows before the output grid has been filled.
	ErrEngineExhausted = errors.New("gridmerge: interpolation stopped before the output grid was complete")
)

// GridReader is an open input grid.
type GridReader interface {
	Header() gridfile.Header
	ReadRecord(c gridfile.Coord) (gridfile.Record, error)
	LatLon(c gridfile.Coord) (lat, lon float64)
	Close() error
}

// GridWriter is an open output grid.
type GridWriter interface {
	Header() gridfile.Header
	WriteRecord(c gridfile.Coord, r gridfile.Record) error
	UpdateHeader(h gridfile.Header) error
	Close() error
}

// rowWriter is implemented by GridWriters that can write a whole row at once.
type rowWriter interface {
	WriteRow(y int, row []gridfile.Record) error
}

// CreateFunc creates the output grid described by h.
type CreateFunc func(h gridfile.Header) (GridWriter, error)

// Input is one of the grids to be merged.
type Input struct {
	Name string
	File GridReader
}

// Merger holds the state of a merge.
type Merger struct {
	// Inputs are the grids to merge, in order of decreasing precedence.
	Inputs []Input

	// Header describes the output grid.
	Header gridfile.Header

	// Dateline is true if the output grid crosses the 360° meridian.
	Dateline bool

	// Grid is the merged surface.
	Grid *Grid

	// Output is where the merged surface is written.
	Output GridWriter

	Log      logrus.FieldLogger
	Progress ProgressFunc

	// InitFuncs are run once to set up the output grid, RunFuncs fill and
	// write it, and CleanupFuncs release resources whether or not the
	// merge succeeded.
	InitFuncs, RunFuncs, CleanupFuncs []GridManipulator

	minZ, maxZ                 float32
	observed                   bool
	inputsClosed, outputClosed bool
}

// GridManipulator is a step of a merge.
type GridManipulator func(m *Merger) error

// Init initializes m by running m.InitFuncs.
func (m *Merger) Init() error {
	if m.Log == nil {
		m.Log = logrus.StandardLogger()
	}
	return m.run(m.InitFuncs)
}

// Run runs m.RunFuncs.
func (m *Merger) Run() error { return m.run(m.RunFuncs) }

// Cleanup runs all of m.CleanupFuncs and returns the first error.
func (m *Merger) Cleanup() error {
	var err error
	for _, f := range m.CleanupFuncs {
		if e := f(m); e != nil && err == nil {
			err = e
		}
	}
	return err
}

func (m *Merger) run(funcs []GridManipulator) error {
	for _, f := range funcs {
		if err := f(m); err != nil {
			return err
		}
	}
	return nil
}

// observe includes z in the observed value range.
func (m *Merger) observe(z float32) {
	if !m.observed {
		m.minZ, m.maxZ, m.observed = z, z, true
		return
	}
	m.minZ = min(m.minZ, z)
	m.maxZ = max(m.maxZ, z)
}

// Options control a merge.
type Options struct {
	// Exclude switches from inserting lower-precedence data wherever
	// the output is empty to only inserting lower-precedence authoritative
	// data that is at least BufferSize cells away from any authoritative
	// data from other inputs.
	//
	// BufferSize is not defaulted: the zero value only checks the target
	// cell itself. Use DefaultBufferSize for the command-line default.
	Exclude    bool
	BufferSize int

	// Interpolator re-interpolates the merged surface. If it is nil,
	// the merged surface is written as is.
	Interpolator Interpolator

	Log      logrus.FieldLogger
	Progress ProgressFunc
}

// CheckInputs checks that the number of inputs can be merged.
func CheckInputs(n int) error {
	if n < MinInputs {
		return ErrTooFewInputs
	}
	if n > MaxInputs {
		return ErrTooManyInputs
	}
	return nil
}

// Merge merges inputs into a grid created by create and returns the
// header of the finished output grid. The inputs are closed before
// Merge returns.
func Merge(inputs []Input, create CreateFunc, o Options) (gridfile.Header, error) {
	m, err := NewMerger(inputs, create, o)
	if err != nil {
		return gridfile.Header{}, err
	}
	if err := m.Execute(); err != nil {
		return gridfile.Header{}, err
	}
	return m.Header, nil
}

// NewMerger returns a Merger set up to merge inputs into a grid created
// by create.
func NewMerger(inputs []Input, create CreateFunc, o Options) (*Merger, error) {
	if err := CheckInputs(len(inputs)); err != nil {
		return nil, err
	}
	m := &Merger{
		Inputs:   inputs,
		Log:      o.Log,
		Progress: o.Progress,
		InitFuncs: []GridManipulator{
			Unify(),
			CreateOutput(create),
			Allocate(),
		},
		RunFuncs: []GridManipulator{
			Ingest(o.Exclude, o.BufferSize),
			CloseInputs(),
		},
		CleanupFuncs: []GridManipulator{
			CloseInputs(),
			CloseOutput(),
		},
	}
	if o.Interpolator != nil {
		m.RunFuncs = append(m.RunFuncs, Regrid(o.Interpolator))
	} else {
		m.RunFuncs = append(m.RunFuncs, WriteAll())
	}
	m.RunFuncs = append(m.RunFuncs, Finalize())
	return m, nil
}

// Execute runs Init and Run, followed by Cleanup regardless of
// whether they succeeded.
func (m *Merger) Execute() error {
	err := m.Init()
	if err == nil {
		err = m.Run()
	}
	if cerr := m.Cleanup(); err == nil {
		err = cerr
	}
	return err
}

// CreateOutput returns a function that creates the output grid.
func CreateOutput(create CreateFunc) GridManipulator {
	return func(m *Merger) error {
		w, err := create(m.Header)
		if err != nil {
			return fmt.Errorf("gridmerge: creating output grid: %v", err)
		}
		m.Output = w
		return nil
	}
}

// Allocate returns a function that allocates the in-memory grid.
func Allocate() GridManipulator {
	return func(m *Merger) error {
		g, err := NewGrid(m.Header.Width, m.Header.Height)
		if err != nil {
			return err
		}
		m.Grid = g
		return nil
	}
}

// CloseInputs returns a function that closes all of the inputs.
func CloseInputs() GridManipulator {
	return func(m *Merger) error {
		if m.inputsClosed {
			return nil
		}
		m.inputsClosed = true
		var err error
		for _, in := range m.Inputs {
			if e := in.File.Close(); e != nil && err == nil {
				err = fmt.Errorf("gridmerge: closing %s: %v", in.Name, e)
			}
		}
		return err
	}
}

// CloseOutput returns a function that closes the output grid.
func CloseOutput() GridManipulator {
	return func(m *Merger) error {
		if m.Output == nil || m.outputClosed {
			return nil
		}
		m.outputClosed = true
		return m.Output.Close()
	}
}
