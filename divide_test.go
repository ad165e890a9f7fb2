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
	"testing"
)

func TestFixedSizeDivider(t *testing.T) {
	bounds := image.Rect(0, 0, 99, 50)
	testCases := []struct {
		mode     DivideMode
		numCols  int
		lastTile image.Rectangle
	}{
		{DivideCrop, 9, image.Rect(80, 40, 90, 50)},
		{DivideAdjust, 10, image.Rect(90, 40, 99, 50)},
		{DividePad, 10, image.Rect(90, 40, 100, 50)},
	}
	for _, tc := range testCases {
		t.Run(tc.mode.String(), func(t *testing.T) {
			div := NewFixedSizeDivider(10, 10, tc.mode).Divide(bounds)
			if len(div) != 5 {
				t.Fatalf("expected 5 rows, got %d", len(div))
			}
			for _, row := range div {
				if len(row) != tc.numCols {
					t.Fatalf("expected %d columns, got %d", tc.numCols, len(row))
				}
			}
			if got := div.Get(tc.numCols-1, 4); got != tc.lastTile {
				t.Errorf("expected last tile %v, got %v", tc.lastTile, got)
			}
			if got := div.Get(0, 0); got != image.Rect(0, 0, 10, 10) {
				t.Errorf("expected first tile (0,0)-(10,10), got %v", got)
			}
		})
	}
	if div := NewFixedSizeDivider(10, 10, DivideCrop).Divide(image.Rectangle{}); div != nil {
		t.Errorf("expected nil division for empty bounds, got %v", div)
	}
}

func TestFixedNumDivider(t *testing.T) {
	bounds := image.Rect(0, 0, 99, 50)
	testCases := []struct {
		name     string
		cut      bool
		lastTile image.Rectangle
	}{
		{"cut", true, image.Rect(81, 40, 90, 50)},
		{"enlarge", false, image.Rect(81, 40, 99, 50)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			div := NewFixedNumDivider(10, 5, tc.cut).Divide(bounds)
			if len(div) != 5 || len(div[0]) != 10 {
				t.Fatalf("expected 5x10 tiles, got %dx%d", len(div), len(div[0]))
			}
			if got := div.Get(9, 4); got != tc.lastTile {
				t.Errorf("expected last tile %v, got %v", tc.lastTile, got)
			}
		})
	}
}

func TestTileDivisionFlatten(t *testing.T) {
	div := NewFixedNumDivider(3, 2, false).Divide(image.Rect(0, 0, 30, 20))
	flat := div.Flatten()
	if len(flat) != 6 {
		t.Fatalf("expected 6 tiles, got %d", len(flat))
	}
	// row by row
	expected := []image.Rectangle{
		image.Rect(0, 0, 10, 10), image.Rect(10, 0, 20, 10), image.Rect(20, 0, 30, 10),
		image.Rect(0, 10, 10, 20), image.Rect(10, 10, 20, 20), image.Rect(20, 10, 30, 20),
	}
	for i := range expected {
		if flat[i] != expected[i] {
			t.Errorf("tile %d: expected %v, got %v", i, expected[i], flat[i])
		}
	}
	if b := div.Bounds(); b != image.Rect(0, 0, 30, 20) {
		t.Errorf("expected bounds (0,0)-(30,20), got %v", b)
	}
}

func TestParseDivideMode(t *testing.T) {
	testCases := []struct {
		in       string
		expected DivideMode
		err      bool
	}{
		{"crop", DivideCrop, false},
		{"Adjust", DivideAdjust, false},
		{"pad", DividePad, false},
		{"stretch", DivideCrop, true},
	}
	for _, tc := range testCases {
		got, err := ParseDivideMode(tc.in)
		if (err != nil) != tc.err || got != tc.expected {
			t.Errorf("ParseDivideMode(%s) = %v, %v", tc.in, got, err)
		}
	}
}
