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

package gridmerge

import (
	"fmt"
	"math"
)

// Stages of a merge that report progress.
const (
	StageRead     = "reading"
	StageLoad     = "loading"
	StageRetrieve = "retrieving"
	StageWrite    = "writing"
)

// Progress reports how far a long-running stage has advanced.
type Progress struct {
	Stage   string
	File    int // 1-based input index while reading, otherwise 0.
	Files   int // number of inputs while reading, otherwise 0.
	Percent int
}

func (p Progress) String() string {
	if p.Files > 0 {
		return fmt.Sprintf("%s file %d of %d - %03d%% complete", p.Stage, p.File, p.Files, p.Percent)
	}
	return fmt.Sprintf("%s - %03d%% complete", p.Stage, p.Percent)
}

// ProgressFunc receives progress reports. It is only called when the
// reported percentage changes.
type ProgressFunc func(Progress)

type progressTracker struct {
	f    ProgressFunc
	p    Progress
	last int
}

func (m *Merger) tracker(stage string, file, files int) *progressTracker {
	return &progressTracker{
		f:    m.Progress,
		p:    Progress{Stage: stage, File: file, Files: files},
		last: -1,
	}
}

// update reports that done of total units of work are complete.
func (t *progressTracker) update(done, total int) {
	if t.f == nil || total <= 0 {
		return
	}
	pct := int(math.Round(float64(done) / float64(total) * 100))
	if pct == t.last {
		return
	}
	t.last = pct
	t.p.Percent = pct
	t.f(t.p)
}
