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

// Command gridmerge merges elevation and bathymetry grids.
package main

import (
	"fmt"
	"os"

	"github.com/spatialmodel/gridmerge/gridmergeutil"
)

func main() {
	if err := gridmergeutil.Root.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(-1)
	}
}
