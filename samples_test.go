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
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
)

func TestComputeAverageColor(t *testing.T) {
	testCases := []struct {
		name     string
		img      image.Image
		expected RGB
	}{
		{"solid", imaging.New(8, 8, color.NRGBA{R: 10, G: 20, B: 30, A: 255}), NewRGB(10, 20, 30)},
		{"two colors", twoColorImage(4, 2, color.White, color.Black), NewRGB(127, 127, 127)},
		{"empty", image.NewRGBA(image.Rectangle{}), RGB{}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ComputeAverageColor(tc.img); got != tc.expected {
				t.Errorf("expected %v, got %v", tc.expected, got)
			}
		})
	}
}

func TestCreateSamples(t *testing.T) {
	db := NewMemoryImageDB(
		imaging.New(4, 4, color.NRGBA{R: 200, A: 255}),
		nil,
		imaging.New(4, 4, color.NRGBA{G: 200, A: 255}),
		imaging.New(4, 4, color.NRGBA{B: 200, A: 255}),
	)
	for _, numRoutines := range []int{1, 3} {
		calls := 0
		samples := CreateSamples(IDList(db), db, nil, numRoutines, func(int) { calls++ })
		if calls != 4 {
			t.Errorf("expected 4 progress calls, got %d", calls)
		}
		// the unreadable image is skipped, the order is kept
		expected := []ColorSample{
			NewColorSample(0, NewRGB(200, 0, 0)),
			NewColorSample(2, NewRGB(0, 200, 0)),
			NewColorSample(3, NewRGB(0, 0, 200)),
		}
		if len(samples) != len(expected) {
			t.Fatalf("expected %d samples, got %d", len(expected), len(samples))
		}
		for i := range expected {
			if samples[i] != expected[i] {
				t.Errorf("sample %d: expected %v, got %v", i, expected[i], samples[i])
			}
		}
	}
}
