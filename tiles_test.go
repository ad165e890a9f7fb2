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
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
)

// twoColorImage returns an image whose left half is left and right half is
// right.
func twoColorImage(width, height int, left, right color.Color) *image.NRGBA {
	img := imaging.New(width, height, left)
	for y := 0; y < height; y++ {
		for x := width / 2; x < width; x++ {
			img.Set(x, y, right)
		}
	}
	return img
}

func TestComputeTiles(t *testing.T) {
	red := color.NRGBA{R: 255, A: 255}
	blue := color.NRGBA{B: 255, A: 255}
	img := twoColorImage(20, 10, red, blue)
	for _, numRoutines := range []int{1, 4} {
		tiles, err := ComputeTiles(img, NewFixedNumDivider(2, 1, false).Divide(img.Bounds()), numRoutines)
		if err != nil {
			t.Fatal(err)
		}
		if len(tiles) != 2 {
			t.Fatalf("expected 2 tiles, got %d", len(tiles))
		}
		if tiles[0].Bounds != image.Rect(0, 0, 10, 10) || tiles[1].Bounds != image.Rect(10, 0, 20, 10) {
			t.Errorf("unexpected tile bounds %v and %v", tiles[0].Bounds, tiles[1].Bounds)
		}
		if expected := LabFromRGB(NewRGB(255, 0, 0)); tiles[0].Query != expected {
			t.Errorf("expected query %v for left tile, got %v", expected, tiles[0].Query)
		}
		if expected := LabFromRGB(NewRGB(0, 0, 255)); tiles[1].Query != expected {
			t.Errorf("expected query %v for right tile, got %v", expected, tiles[1].Query)
		}
	}
}

func TestComputeTilesPadded(t *testing.T) {
	img := imaging.New(20, 10, color.White)
	div := NewFixedSizeDivider(15, 10, DividePad).Divide(img.Bounds())
	tiles, err := ComputeTiles(img, div, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(tiles) != 2 || tiles[1].Bounds != image.Rect(15, 0, 30, 10) {
		t.Fatalf("unexpected tiles %v", tiles)
	}
	// only the covered part is used
	if tiles[1].Query != LabFromRGB(NewRGB(255, 255, 255)) {
		t.Errorf("expected white query, got %v", tiles[1].Query)
	}

	outside := TileDivision{{image.Rect(0, 0, 10, 10), image.Rect(30, 0, 40, 10)}}
	if _, err := ComputeTiles(img, outside, 2); !errors.Is(err, ErrMalformedTile) {
		t.Errorf("expected ErrMalformedTile, got %v", err)
	}
}

func TestPrepareTarget(t *testing.T) {
	img := imaging.New(40, 20, color.Black)
	testCases := []struct {
		name          string
		width, height int
		expected      image.Rectangle
	}{
		{"unchanged", 0, 0, image.Rect(0, 0, 40, 20)},
		{"width only", 80, -1, image.Rect(0, 0, 80, 20)},
		{"both", 100, 50, image.Rect(0, 0, 100, 50)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := PrepareTarget(img, tc.width, tc.height, nil)
			if got.Bounds() != tc.expected {
				t.Errorf("expected bounds %v, got %v", tc.expected, got.Bounds())
			}
		})
	}
	if got := PrepareTarget(img, 40, 20, nil); got != image.Image(img) {
		t.Error("image of the right size should be returned unchanged")
	}
	// sub images are moved to (0, 0)
	sub := twoColorImage(40, 20, color.White, color.Black).SubImage(image.Rect(10, 5, 30, 15))
	for _, size := range []image.Point{{0, 0}, {20, 10}, {40, 20}} {
		got := PrepareTarget(sub, size.X, size.Y, nil)
		expected := image.Rect(0, 0, IntMax(size.X, 20), IntMax(size.Y, 10))
		if got.Bounds() != expected {
			t.Errorf("expected bounds %v, got %v", expected, got.Bounds())
		}
	}
	moved := PrepareTarget(sub, 0, 0, nil)
	if !colorClose(moved.At(0, 0), NewRGB(255, 255, 255)) || !colorClose(moved.At(19, 9), NewRGB(0, 0, 0)) {
		t.Errorf("unexpected pixels %v %v", moved.At(0, 0), moved.At(19, 9))
	}
}
