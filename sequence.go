// Copyright 2019 Fabian Wenzelmann
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package colormosaic

import (
	"math"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

var (
	// MinParallelScan is the number of samples from which on the search for
	// the next chain element is split between go routines. For smaller
	// collections starting the routines takes longer than the scan itself.
	MinParallelScan = 2048
)

// PaletteSequencer orders a collection of color samples s.t. neighbours in
// the result look similar. This is a shortest Hamiltonian path problem, it is
// approximated with a greedy nearest neighbour chain:
//
// The first element is the sample closest to black. Then the sample closest
// to the last element of the chain is appended until all samples have been
// placed. Ties are always resolved by the order of the input, thus the result
// is deterministic for a fixed input.
//
// Sequencing requires O(N²) metric computations. For some thousand images
// that's fine, but it's the part that doesn't scale: for bigger collections
// the palette should be computed once and stored (see PaletteFSController).
type PaletteSequencer struct {
	Metric      DistanceMetric
	NumRoutines int
}

// NewPaletteSequencer returns a new sequencer. If metric is nil CIEDE2000 is
// used. numRoutines is the number of go routines that scan for the next chain
// element concurrently.
func NewPaletteSequencer(metric DistanceMetric, numRoutines int) *PaletteSequencer {
	if metric == nil {
		metric = CIEDE2000
	}
	if numRoutines <= 0 {
		numRoutines = 1
	}
	return &PaletteSequencer{Metric: metric, NumRoutines: numRoutines}
}

// scanResult is the closest remaining sample found in a range of the arena.
type scanResult struct {
	index int
	dist  float64
}

func (sequencer *PaletteSequencer) scanRange(arena []ColorSample, removed []bool,
	from Lab, start, end int) scanResult {
	best := scanResult{index: -1, dist: math.MaxFloat64}
	for i := start; i < end; i++ {
		if removed[i] {
			continue
		}
		// strictly smaller: on ties the first one wins
		if dist := sequencer.Metric(from, arena[i].Lab); dist < best.dist || best.index < 0 {
			best = scanResult{index: i, dist: dist}
		}
	}
	return best
}

// closest returns the index of the remaining sample closest to from.
// The result is the same as of a sequential scan, only the scan is split
// between NumRoutines routines if there are enough samples.
func (sequencer *PaletteSequencer) closest(arena []ColorSample, removed []bool,
	from Lab, results []scanResult) int {
	n := len(arena)
	numRoutines := len(results)
	if numRoutines <= 1 {
		return sequencer.scanRange(arena, removed, from, 0, n).index
	}
	chunk := (n + numRoutines - 1) / numRoutines
	var wg sync.WaitGroup
	wg.Add(numRoutines)
	for w := 0; w < numRoutines; w++ {
		go func(w int) {
			defer wg.Done()
			start := IntMin(w*chunk, n)
			end := IntMin(start+chunk, n)
			results[w] = sequencer.scanRange(arena, removed, from, start, end)
		}(w)
	}
	wg.Wait()
	// reduce: chunks are ordered, so again the first one wins on ties
	best := scanResult{index: -1, dist: math.MaxFloat64}
	for _, res := range results {
		if res.index < 0 {
			continue
		}
		if best.index < 0 || res.dist < best.dist {
			best = res
		}
	}
	return best.index
}

// Sequence computes the ordered palette of the samples. The samples must have
// valid Lab values.
// An empty collection results in an empty palette.
//
// progress is called each time a sample has been placed, it may be nil.
func (sequencer *PaletteSequencer) Sequence(samples []ColorSample, progress ProgressFunc) *OrderedPalette {
	n := len(samples)
	res := &OrderedPalette{samples: make([]ColorSample, 0, n)}
	if n == 0 {
		return res
	}
	start := time.Now()
	// we never modify the input, the arena is only marked
	arena := samples
	removed := make([]bool, n)

	numRoutines := 1
	if n >= MinParallelScan {
		numRoutines = sequencer.NumRoutines
	}
	results := make([]scanResult, numRoutines)

	next := sequencer.closest(arena, removed, Black, results)
	for next >= 0 {
		removed[next] = true
		res.samples = append(res.samples, arena[next])
		if progress != nil {
			progress(len(res.samples))
		}
		if len(res.samples) == n {
			break
		}
		next = sequencer.closest(arena, removed, arena[next].Lab, results)
	}

	log.WithFields(log.Fields{
		"samples":  n,
		"routines": numRoutines,
		"duration": time.Since(start),
	}).Debug("Sequenced palette")
	return res
}
