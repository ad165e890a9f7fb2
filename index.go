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
	"fmt"
	"math"
	"strings"

	"github.com/kyroy/kdtree"
	"github.com/kyroy/kdtree/points"
)

// ColorIndex finds a palette image for a query color.
// Implementations are read-only after creation and can be queried
// concurrently.
type ColorIndex interface {
	// Nearest returns the id of the image judged closest to q. It returns
	// ErrInvalidState if the index is empty.
	Nearest(q Lab) (ImageID, error)
}

const (
	// DefaultThreshold is the default early exit threshold of
	// NearestColorIndex. For CIEDE2000 a difference of about 2 is hardly
	// noticeable.
	DefaultThreshold = 2.0

	// DefaultKDCandidates is the default number of candidates KDTreeIndex
	// ranks with the metric.
	DefaultKDCandidates = 8
)

// NearestColorIndex searches an ordered palette by bisection.
//
// The search keeps an interval [lo, hi] of palette positions. In each step the
// distances of the query to the palette entries at lo and hi are computed, if
// one is smaller than Threshold the entry is returned. Otherwise the interval
// is halved towards the boundary with the smaller distance. Once lo and hi are
// neighbours the better one of the two is returned.
//
// The palette is not sorted by the distance to an arbitrary color, it only
// guarantees small steps between neighbours. So the result is usually close
// to q, but not necessarily the nearest one. Each query requires at most
// ⌈log₂ N⌉ + 1 pairs of metric computations.
//
// If Fallback is > 0 and the distance of the bisection result is ≥ Fallback
// the whole palette is scanned instead.
type NearestColorIndex struct {
	Palette   *OrderedPalette
	Metric    DistanceMetric
	Threshold float64
	Fallback  float64
}

// NewNearestColorIndex returns a new bisection index. If metric is nil
// CIEDE2000 is used.
func NewNearestColorIndex(palette *OrderedPalette, metric DistanceMetric, threshold, fallback float64) *NearestColorIndex {
	if metric == nil {
		metric = CIEDE2000
	}
	return &NearestColorIndex{
		Palette:   palette,
		Metric:    metric,
		Threshold: threshold,
		Fallback:  fallback,
	}
}

// bisect returns the position found by bisection and its distance to q.
// The palette must not be empty.
func (index *NearestColorIndex) bisect(q Lab) (int, float64) {
	samples := index.Palette.samples
	lo, hi := 0, len(samples)-1
	if hi == 0 {
		return 0, index.Metric(q, samples[0].Lab)
	}
	for hi-lo > 1 {
		dLo := index.Metric(q, samples[lo].Lab)
		if dLo < index.Threshold {
			return lo, dLo
		}
		dHi := index.Metric(q, samples[hi].Lab)
		if dHi < index.Threshold {
			return hi, dHi
		}
		mid := (lo + hi) / 2
		if dLo < dHi {
			hi = mid
		} else {
			lo = mid
		}
	}
	dLo := index.Metric(q, samples[lo].Lab)
	dHi := index.Metric(q, samples[hi].Lab)
	if dHi < dLo {
		return hi, dHi
	}
	return lo, dLo
}

// Nearest implements ColorIndex.
func (index *NearestColorIndex) Nearest(q Lab) (ImageID, error) {
	if index.Palette == nil || index.Palette.Len() == 0 {
		return NoImageID, ErrInvalidState
	}
	pos, dist := index.bisect(q)
	if index.Fallback > 0 && dist >= index.Fallback {
		pos, _ = linearScan(index.Palette.samples, index.Metric, q)
	}
	return index.Palette.samples[pos].ID, nil
}

func linearScan(samples []ColorSample, metric DistanceMetric, q Lab) (int, float64) {
	best, bestDist := -1, math.MaxFloat64
	for i, sample := range samples {
		if dist := metric(q, sample.Lab); best < 0 || dist < bestDist {
			best, bestDist = i, dist
		}
	}
	return best, bestDist
}

// LinearIndex compares the query with each palette entry and always finds
// the nearest one (the first one on ties). Each query requires N metric
// computations.
type LinearIndex struct {
	Palette *OrderedPalette
	Metric  DistanceMetric
}

// NewLinearIndex returns a new linear index. If metric is nil CIEDE2000 is
// used.
func NewLinearIndex(palette *OrderedPalette, metric DistanceMetric) *LinearIndex {
	if metric == nil {
		metric = CIEDE2000
	}
	return &LinearIndex{Palette: palette, Metric: metric}
}

// Nearest implements ColorIndex.
func (index *LinearIndex) Nearest(q Lab) (ImageID, error) {
	if index.Palette == nil || index.Palette.Len() == 0 {
		return NoImageID, ErrInvalidState
	}
	pos, _ := linearScan(index.Palette.samples, index.Metric, q)
	return index.Palette.samples[pos].ID, nil
}

// KDTreeIndex stores the Lab values of the palette in a k-d tree.
// A query retrieves the K nearest entries by euclidean distance in Lab
// (that is CIE76) and returns the one that is closest according to Metric.
// For small K and metrics that differ from CIE76 this is an approximation as
// well, though usually a good one.
type KDTreeIndex struct {
	Metric DistanceMetric
	K      int
	tree   *kdtree.KDTree
	size   int
}

// NewKDTreeIndex builds the tree for the palette. If metric is nil CIEDE2000
// is used, if k ≤ 0 DefaultKDCandidates is used.
func NewKDTreeIndex(palette *OrderedPalette, metric DistanceMetric, k int) *KDTreeIndex {
	if metric == nil {
		metric = CIEDE2000
	}
	if k <= 0 {
		k = DefaultKDCandidates
	}
	n := 0
	var pts []kdtree.Point
	if palette != nil {
		n = palette.Len()
		pts = make([]kdtree.Point, n)
		for i, sample := range palette.samples {
			pts[i] = points.NewPoint([]float64{sample.Lab.L, sample.Lab.A, sample.Lab.B}, sample)
		}
	}
	return &KDTreeIndex{
		Metric: metric,
		K:      k,
		tree:   kdtree.New(pts),
		size:   n,
	}
}

// Nearest implements ColorIndex.
func (index *KDTreeIndex) Nearest(q Lab) (ImageID, error) {
	if index.size == 0 {
		return NoImageID, ErrInvalidState
	}
	candidates := index.tree.KNN(&points.Point{Coordinates: []float64{q.L, q.A, q.B}}, index.K)
	best, bestDist := NoImageID, math.MaxFloat64
	for _, candidate := range candidates {
		sample := candidate.(*points.Point).Data.(ColorSample)
		if dist := index.Metric(q, sample.Lab); best == NoImageID || dist < bestDist {
			best, bestDist = sample.ID, dist
		}
	}
	if best == NoImageID {
		return NoImageID, ErrInvalidState
	}
	return best, nil
}

// SearchPolicy describes which ColorIndex is used to find palette images.
type SearchPolicy int

const (
	// BisectPolicy uses NearestColorIndex.
	BisectPolicy SearchPolicy = iota
	// LinearPolicy uses LinearIndex.
	LinearPolicy
	// KDTreePolicy uses KDTreeIndex.
	KDTreePolicy
)

func (policy SearchPolicy) String() string {
	switch policy {
	case BisectPolicy:
		return "bisect"
	case LinearPolicy:
		return "linear"
	case KDTreePolicy:
		return "kdtree"
	default:
		return fmt.Sprintf("SearchPolicy(%d)", int(policy))
	}
}

// ParseSearchPolicy parses the name of a policy (as returned by String).
func ParseSearchPolicy(s string) (SearchPolicy, error) {
	switch strings.ToLower(s) {
	case "bisect", "bisection":
		return BisectPolicy, nil
	case "linear":
		return LinearPolicy, nil
	case "kdtree", "kd":
		return KDTreePolicy, nil
	default:
		return BisectPolicy, fmt.Errorf("Unknown search policy \"%s\"", s)
	}
}

// NewColorIndex creates the index for the given policy. threshold and fallback
// are only used by BisectPolicy.
func NewColorIndex(policy SearchPolicy, palette *OrderedPalette, metric DistanceMetric, threshold, fallback float64) (ColorIndex, error) {
	switch policy {
	case BisectPolicy:
		return NewNearestColorIndex(palette, metric, threshold, fallback), nil
	case LinearPolicy:
		return NewLinearIndex(palette, metric), nil
	case KDTreePolicy:
		return NewKDTreeIndex(palette, metric, DefaultKDCandidates), nil
	default:
		return nil, fmt.Errorf("Unknown search policy %v", policy)
	}
}
