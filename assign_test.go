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
	"math"
	"math/rand"
	"testing"

	"github.com/disintegration/imaging"
)

func TestTileValidate(t *testing.T) {
	testCases := []struct {
		name string
		tile Tile
		ok   bool
	}{
		{"valid", Tile{image.Rect(0, 0, 10, 10), Lab{L: 50}}, true},
		{"no width", Tile{image.Rect(5, 0, 5, 10), Lab{L: 50}}, false},
		{"empty", Tile{image.Rectangle{}, Lab{L: 50}}, false},
		{"nan", Tile{image.Rect(0, 0, 10, 10), Lab{L: math.NaN()}}, false},
		{"out of range", Tile{image.Rect(0, 0, 10, 10), Lab{L: 101}}, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.tile.Validate()
			if tc.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrMalformedTile) {
				t.Errorf("expected ErrMalformedTile, got %v", err)
			}
		})
	}
}

func rowTiles(queries ...Lab) []Tile {
	res := make([]Tile, len(queries))
	for i, q := range queries {
		res[i] = Tile{Bounds: image.Rect(10*i, 0, 10*(i+1), 10), Query: q}
	}
	return res
}

func TestAssign(t *testing.T) {
	samples := tenRamp()
	p := mustPalette(t, samples)
	assigner := NewMosaicAssigner(NewNearestColorIndex(p, nil, DefaultThreshold, 0), 3)
	tiles := rowTiles(samples[3].Lab, samples[0].Lab, samples[9].Lab, samples[3].Lab)
	calls := 0
	res, err := assigner.Assign(tiles, func(num int) { calls++ })
	if err != nil {
		t.Fatal(err)
	}
	if calls != len(tiles) {
		t.Errorf("expected %d progress calls, got %d", len(tiles), calls)
	}
	if !res.Matches(tiles) {
		t.Fatal("assignment doesn't match the tiles")
	}
	expected := []ImageID{3, 0, 9, 3}
	for i, entry := range res.Entries {
		if entry.Image != expected[i] {
			t.Errorf("tile %d: expected image %d, got %d", i, expected[i], entry.Image)
		}
	}
	if id, ok := res.Get(tiles[2].Bounds); !ok || id != 9 {
		t.Errorf("Get returned %d, %v; expected 9", id, ok)
	}
	if _, ok := res.Get(image.Rect(0, 0, 1, 1)); ok {
		t.Error("Get found unknown tile")
	}
	if m := res.Map(); len(m) != len(tiles) || m[tiles[1].Bounds] != 0 {
		t.Errorf("unexpected map %v", m)
	}
	if res.Matches(tiles[1:]) {
		t.Error("assignment matches different tiles")
	}
	recolored := rowTiles(samples[3].Lab, samples[0].Lab, samples[9].Lab, samples[4].Lab)
	if res.Matches(recolored) {
		t.Error("assignment matches tiles with other colors")
	}
}

func TestAssignBlack(t *testing.T) {
	black, white := NewRGB(0, 0, 0), NewRGB(255, 255, 255)
	p, err := NewOrderedPalette([]ColorSample{
		{ID: 0, RGB: white, Lab: LabFromRGB(white)},
		{ID: 1, RGB: black, Lab: LabFromRGB(black)},
	})
	if err != nil {
		t.Fatalf("palette with a black sample rejected: %v", err)
	}
	img := imaging.New(20, 10, color.Black)
	tiles, err := ComputeTiles(img, NewFixedNumDivider(2, 1, false).Divide(img.Bounds()), 2)
	if err != nil {
		t.Fatal(err)
	}
	res, err := NewMosaicAssigner(NewNearestColorIndex(p, nil, DefaultThreshold, 0), 2).Assign(tiles, nil)
	if err != nil {
		t.Fatalf("black tiles rejected: %v", err)
	}
	for i, entry := range res.Entries {
		if entry.Image != 1 {
			t.Errorf("tile %d: expected black image, got %d", i, entry.Image)
		}
	}
}

func TestAssignMalformedTile(t *testing.T) {
	counting := NewCountingMetric(CIEDE2000)
	p := mustPalette(t, tenRamp())
	assigner := NewMosaicAssigner(NewLinearIndex(p, counting.Distance), 2)
	tiles := rowTiles(Lab{L: 20}, Lab{L: 30}, Lab{L: math.Inf(-1)})
	if _, err := assigner.Assign(tiles, nil); !errors.Is(err, ErrMalformedTile) {
		t.Fatalf("expected ErrMalformedTile, got %v", err)
	}
	if counting.Calls() != 0 {
		t.Errorf("index was queried %d times for an invalid mosaic", counting.Calls())
	}
}

func TestAssignEmptyIndex(t *testing.T) {
	assigner := NewMosaicAssigner(NewNearestColorIndex(mustPalette(t, nil), nil, 0, 0), 2)
	if _, err := assigner.Assign(rowTiles(Lab{L: 20}), nil); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}
	res, err := assigner.Assign(nil, nil)
	if err != nil || res.Len() != 0 {
		t.Errorf("expected empty assignment for no tiles, got %v, %v", res, err)
	}
}

func TestAssignConcurrent(t *testing.T) {
	r := rand.New(rand.NewSource(13))
	palette := NewPaletteSequencer(nil, 1).Sequence(randomSamples(r, 150), nil)
	index := NewNearestColorIndex(palette, nil, DefaultThreshold, 0)
	queries := make([]Lab, 400)
	for i := range queries {
		queries[i] = randomSamples(r, 1)[0].Lab
	}
	tiles := rowTiles(queries...)
	sequential, err := NewMosaicAssigner(index, 1).Assign(tiles, nil)
	if err != nil {
		t.Fatal(err)
	}
	concurrent, err := NewMosaicAssigner(index, 8).Assign(tiles, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := range tiles {
		if sequential.Entries[i] != concurrent.Entries[i] {
			t.Fatalf("tile %d: %v != %v", i, sequential.Entries[i], concurrent.Entries[i])
		}
	}
}
