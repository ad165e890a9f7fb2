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

import "fmt"

// OrderedPalette is an ordered sequence of color samples, each database image
// appears exactly once. Neighbours in the sequence have a small distance, see
// PaletteSequencer.
//
// A palette is never changed after it has been created, it's safe to share it
// between go routines. If the images change a new palette must be created.
type OrderedPalette struct {
	samples []ColorSample
}

// NewOrderedPalette creates a palette from an already ordered sequence, for
// example read from a file. The samples are copied.
//
// It returns an error wrapping ErrInvalidSnapshot if an image appears more
// than once or a Lab value is not valid.
func NewOrderedPalette(samples []ColorSample) (*OrderedPalette, error) {
	seen := make(map[ImageID]int, len(samples))
	for i, sample := range samples {
		if !sample.Lab.Valid() {
			return nil, fmt.Errorf("%w: %v at position %d is not a valid Lab color",
				ErrInvalidSnapshot, sample.Lab, i)
		}
		if j, has := seen[sample.ID]; has {
			return nil, fmt.Errorf("%w: image %d at positions %d and %d",
				ErrInvalidSnapshot, sample.ID, j, i)
		}
		seen[sample.ID] = i
	}
	cp := make([]ColorSample, len(samples))
	copy(cp, samples)
	return &OrderedPalette{samples: cp}, nil
}

// Len returns the number of samples in the palette.
func (p *OrderedPalette) Len() int {
	return len(p.samples)
}

// At returns the sample at position i.
func (p *OrderedPalette) At(i int) ColorSample {
	return p.samples[i]
}

// Samples returns a copy of all samples in order.
func (p *OrderedPalette) Samples() []ColorSample {
	res := make([]ColorSample, len(p.samples))
	copy(res, p.samples)
	return res
}

// IDs returns the image ids in palette order.
func (p *OrderedPalette) IDs() []ImageID {
	res := make([]ImageID, len(p.samples))
	for i, sample := range p.samples {
		res[i] = sample.ID
	}
	return res
}

// Position returns the position of the image in the palette, -1 if the image
// is not contained in the palette.
func (p *OrderedPalette) Position(id ImageID) int {
	for i, sample := range p.samples {
		if sample.ID == id {
			return i
		}
	}
	return -1
}

// ChainLength is the sum of the distances of all neighbours in the palette.
// It can be used to compare different orders.
func (p *OrderedPalette) ChainLength(metric DistanceMetric) float64 {
	var res float64
	for i := 1; i < len(p.samples); i++ {
		res += metric(p.samples[i-1].Lab, p.samples[i].Lab)
	}
	return res
}
