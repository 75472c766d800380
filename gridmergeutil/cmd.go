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
	"fmt"
	"strings"

	"github.com/spatialmodel/gridmerge"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to gridmerge.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "exclude",
			usage: `
              exclude specifies that data from lower-ranked inputs is only
              used where it is real, digitized or land-masked and no such
              data from another input lies within the buffer distance.
              Without exclude, lower-ranked data fills every cell that is
              still empty.`,
			shorthand:  "e",
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{Root.Flags()},
		},
		{
			name: "buffer",
			usage: `
              buffer specifies the exclusion buffer radius in grid cells.
              Setting it turns on exclude.`,
			shorthand:  "b",
			defaultVal: gridmerge.DefaultBufferSize,
			flagsets:   []*pflag.FlagSet{Root.Flags()},
		},
		{
			name: "noregrid",
			usage: `
              noregrid specifies that the merged grid should be written as
              is, without re-interpolating empty and interpolated cells.`,
			shorthand:  "n",
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{Root.Flags()},
		},
		{
			name: "output",
			usage: `
              output is the location of the merged grid. It can include
              environment variables and can be a blob storage location.
              The default is the name of the first input with the extension
              replaced by "__merged.ch2".`,
			shorthand:  "o",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.Flags()},
		},
		{
			name: "logfile",
			usage: `
              logfile is the location of a file where log messages are
              written in addition to standard error. It can include
              environment variables and can be a blob storage location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.Flags()},
		},
		{
			name: "surface.config",
			usage: `
              surface.config is the location of a TOML file holding
              settings for the interpolation engine. Settings that are not
              given keep their default values.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("GRIDMERGE")
	Cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}

	Root.AddCommand(versionCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("gridmerge: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "gridmerge [flags] input1 input2 [input3 ...]",
	Short: "Merge elevation and bathymetry grids.",
	Long: `gridmerge merges between 2 and 16 elevation or bathymetry grids into a
single grid covering all of them. Inputs are ranked by the order in which
they are given: data from an earlier input takes precedence over data from a
later one. Unless --noregrid is given, the merged grid is then re-interpolated
to fill gaps, without altering real, digitized or land-masked cells.

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'GRIDMERGE_var' where 'var'
is the name of the variable to be set.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	Args:              cobra.RangeArgs(gridmerge.MinInputs, gridmerge.MaxInputs),
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
	RunE: func(cmd *cobra.Command, args []string) error {
		return Run(cmd.Context(), Cfg, args, cmd.ErrOrStderr())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of gridmerge.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("gridmerge v%s\n", gridmerge.Version)
	},
	DisableAutoGenTag: true,
}
