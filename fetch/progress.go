// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package fetch

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker prints a running count of delivered documents on a single
// terminal line. It is safe for use by the pool workers of one fetch.
type ProgressTracker struct {
	mu      sync.Mutex
	out     io.Writer
	total   int // zero when the size of the fetch is unknown
	every   int
	done    int
	printed int
	began   time.Time
	running bool
}

// NewProgressTracker returns a tracker writing to out every `every`
// documents. total is the number of documents requested, or zero when it is
// not known in advance (paged fetches).
func NewProgressTracker(out io.Writer, total, every int) *ProgressTracker {
	return &ProgressTracker{out: out, total: total, every: max(every, 1)}
}

// Start resets the count and the clock.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.began = time.Now()
	p.running = true
	p.done, p.printed = 0, 0
}

// Increment records n delivered documents. Calls before Start are ignored.
func (p *ProgressTracker) Increment(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.done += n
	if p.total > 0 {
		p.done = min(p.done, p.total)
	}
	if p.done-p.printed >= p.every {
		p.print()
		p.printed = p.done
	}
}

// Current returns the number of documents recorded so far.
func (p *ProgressTracker) Current() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Finish prints the final line. Ids that do not exist, or documents dropped
// by verification, leave the count below total.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.print()
	fmt.Fprintln(p.out)
	p.running = false
}

// Elapsed returns the time since Start, or zero once finished.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return 0
	}
	return time.Since(p.began)
}

func (p *ProgressTracker) print() {
	rate := float64(p.done) / time.Since(p.began).Seconds()
	if p.total == 0 {
		fmt.Fprintf(p.out, "\rFetched: %d - %.1f docs/s", p.done, rate)
		return
	}
	fmt.Fprintf(p.out, "\rFetched: %d/%d (%.1f%%) - %.1f docs/s",
		p.done, p.total, 100*float64(p.done)/float64(p.total), rate)
}
