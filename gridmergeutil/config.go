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
	"os"
	"strings"

	"github.com/spatialmodel/gridmerge"
	"github.com/spatialmodel/gridmerge/gridfile"
	"github.com/spatialmodel/gridmerge/surface"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// mergedSuffix replaces the extension of the first input to form the
// default output name.
const mergedSuffix = "__merged" + gridfile.Extension

// outputPath returns the location of the merged grid given the location
// of the first input and the requested output location. Requested names
// shorter than three characters are ignored, and the grid file extension
// is added if it is missing.
func outputPath(first, out string) string {
	if len(out) < 3 {
		if len(first) < 4 {
			return first + mergedSuffix
		}
		return first[:len(first)-4] + mergedSuffix
	}
	if !strings.HasSuffix(out, gridfile.Extension) {
		out += gridfile.Extension
	}
	return out
}

// mergeConfig holds the merge settings read from the configuration.
type mergeConfig struct {
	exclude bool
	buffer  int
	regrid  bool
	output  string
	logFile string
	surface string
}

// readMergeConfig reads the merge settings from cfg. Setting the
// buffer size turns on exclusion.
func readMergeConfig(cfg *viper.Viper) (mergeConfig, error) {
	c := mergeConfig{
		buffer:  gridmerge.DefaultBufferSize,
		output:  os.ExpandEnv(cfg.GetString("output")),
		logFile: os.ExpandEnv(cfg.GetString("logfile")),
		surface: os.ExpandEnv(cfg.GetString("surface.config")),
	}
	var err error
	if c.exclude, err = cast.ToBoolE(cfg.Get("exclude")); err != nil {
		return c, fmt.Errorf("gridmergeutil: invalid exclude setting: %v", err)
	}
	noregrid, err := cast.ToBoolE(cfg.Get("noregrid"))
	if err != nil {
		return c, fmt.Errorf("gridmergeutil: invalid noregrid setting: %v", err)
	}
	c.regrid = !noregrid
	if cfg.IsSet("buffer") {
		if c.buffer, err = cast.ToIntE(cfg.Get("buffer")); err != nil {
			return c, fmt.Errorf("gridmergeutil: invalid buffer size: %v", err)
		}
		c.exclude = true
	}
	if c.buffer < 0 {
		return c, fmt.Errorf("gridmergeutil: buffer size must not be negative but is %d", c.buffer)
	}
	return c, nil
}

// surfaceEngine returns the interpolation engine configured by the
// settings file at path, or with default settings if path is empty.
func surfaceEngine(ctx context.Context, s *stager, path string) (*surface.Engine, error) {
	c := surface.DefaultConfig()
	if path != "" {
		local, err := s.maybeDownload(ctx, path)
		if err != nil {
			return nil, err
		}
		f, err := os.Open(local)
		if err != nil {
			return nil, fmt.Errorf("gridmergeutil: opening interpolation settings: %v", err)
		}
		defer f.Close()
		if c, err = surface.ReadConfig(f); err != nil {
			return nil, err
		}
	}
	return surface.New(c)
}
