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

package gridmergeutil

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/gridmerge"
	"github.com/spatialmodel/gridmerge/gridfile"
	"github.com/spf13/viper"
)

// Run merges the grids at paths using the settings in cfg. Log messages
// are written to out and to the configured log file, if any.
func Run(ctx context.Context, cfg *viper.Viper, paths []string, out io.Writer) (err error) {
	if err := gridmerge.CheckInputs(len(paths)); err != nil {
		return err
	}
	c, err := readMergeConfig(cfg)
	if err != nil {
		return err
	}

	st := new(stager)
	defer func() {
		if e := st.cleanup(); e != nil && err == nil {
			err = fmt.Errorf("gridmergeutil: removing temporary files: %v", e)
		}
	}()

	outPath := outputPath(paths[0], c.output)
	localOut, err := st.maybeUpload(outPath)
	if err != nil {
		return err
	}

	log := logrus.New()
	log.Out = out
	if c.logFile != "" {
		local, err := st.maybeUpload(c.logFile)
		if err != nil {
			return err
		}
		f, err := os.Create(local)
		if err != nil {
			return fmt.Errorf("gridmergeutil: creating log file: %v", err)
		}
		defer f.Close()
		log.Out = io.MultiWriter(out, f)
	}
	log.Infof("gridmerge v%s", gridmerge.Version)

	inputs, err := openInputs(ctx, st, paths)
	if err != nil {
		return err
	}

	o := gridmerge.Options{
		Exclude:    c.exclude,
		BufferSize: c.buffer,
		Log:        log,
		Progress: func(p gridmerge.Progress) {
			log.WithField("stage", p.Stage).Debug(p.String())
			if p.Percent == 100 {
				log.Info(p.String())
			}
		},
	}
	if c.regrid {
		engine, err := surfaceEngine(ctx, st, c.surface)
		if err != nil {
			closeInputs(inputs)
			return err
		}
		o.Interpolator = engine
	}
	log.WithFields(logrus.Fields{
		"inputs":  len(inputs),
		"output":  outPath,
		"exclude": o.Exclude,
		"buffer":  o.BufferSize,
		"regrid":  c.regrid,
	}).Info("merging grids")

	h, err := gridmerge.Merge(inputs, func(h gridfile.Header) (gridmerge.GridWriter, error) {
		f, err := gridfile.Create(localOut, h)
		if err != nil {
			return nil, err
		}
		return f, nil
	}, o)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"width":  h.Width,
		"height": h.Height,
		"min_z":  h.MinZ,
		"max_z":  h.MaxZ,
	}).Infof("wrote %s", outPath)

	// A staged log file is uploaded as it stands now.
	return st.upload(ctx)
}

// openInputs opens the grids at paths, downloading them first if
// they are remote.
func openInputs(ctx context.Context, st *stager, paths []string) ([]gridmerge.Input, error) {
	inputs := make([]gridmerge.Input, 0, len(paths))
	for _, p := range paths {
		local, err := st.maybeDownload(ctx, os.ExpandEnv(p))
		if err != nil {
			closeInputs(inputs)
			return nil, err
		}
		f, err := gridfile.Open(local)
		if err != nil {
			closeInputs(inputs)
			return nil, err
		}
		inputs = append(inputs, gridmerge.Input{Name: p, File: f})
	}
	return inputs, nil
}

func closeInputs(inputs []gridmerge.Input) {
	for _, in := range inputs {
		in.File.Close()
	}
}
