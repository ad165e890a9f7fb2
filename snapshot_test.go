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
	"path/filepath"
	"reflect"
	"testing"
)

func testMapper(paths ...string) *FSMapper {
	m := NewFSMapper()
	for _, path := range paths {
		m.Register(path)
	}
	return m
}

func TestPaletteSnapshot(t *testing.T) {
	mapper := testMapper("/img/a.jpg", "/img/b.jpg", "/img/c.png")
	samples := []ColorSample{
		NewColorSample(2, NewRGB(10, 20, 30)),
		NewColorSample(0, NewRGB(100, 110, 120)),
		NewColorSample(1, NewRGB(250, 240, 230)),
	}
	palette := mustPalette(t, samples)
	controller, err := CreatePaletteFSController(palette, mapper, "ciede2000", "")
	if err != nil {
		t.Fatal(err)
	}
	if controller.ID == "" {
		t.Fatal("no id generated")
	}
	dir := t.TempDir()
	for _, name := range []string{"p.json", "p.gob", "p.json.zst", "p.gob.zst"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := controller.WriteFile(path); err != nil {
				t.Fatal(err)
			}
			var read PaletteFSController
			if err := read.ReadFile(path); err != nil {
				t.Fatal(err)
			}
			if read.Version != Version || read.ID != controller.ID || read.Metric != "ciede2000" {
				t.Errorf("unexpected header %q %q %q", read.Version, read.ID, read.Metric)
			}
			restored, err := read.ToPalette(mapper)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(restored.Samples(), samples) {
				t.Errorf("expected samples %v, got %v", samples, restored.Samples())
			}
		})
	}
	if err := controller.WriteFile(filepath.Join(dir, "p.txt")); err == nil {
		t.Error("expected error for unknown extension")
	}
}

func TestPaletteSnapshotChangedImages(t *testing.T) {
	palette := mustPalette(t, []ColorSample{
		NewColorSample(0, NewRGB(1, 2, 3)),
		NewColorSample(1, NewRGB(4, 5, 6)),
	})
	controller, err := CreatePaletteFSController(palette, testMapper("/a.png", "/b.png"), "cie76", "fixed")
	if err != nil {
		t.Fatal(err)
	}
	if controller.ID != "fixed" {
		t.Errorf("expected id fixed, got %s", controller.ID)
	}
	// b was deleted and c was added
	mapper := testMapper("/a.png", "/c.png")
	if missing := controller.MissingEntries(mapper); !reflect.DeepEqual(missing, []string{"/c.png"}) {
		t.Errorf("unexpected missing entries %v", missing)
	}
	additional := controller.AdditionalEntries(mapper)
	if !reflect.DeepEqual(additional, []string{"/b.png"}) {
		t.Errorf("unexpected additional entries %v", additional)
	}
	if _, err := controller.ToPalette(mapper); !errors.Is(err, ErrInvalidSnapshot) {
		t.Errorf("expected ErrInvalidSnapshot, got %v", err)
	}
	controller.Remove(additional)
	restored, err := controller.ToPalette(mapper)
	if err != nil {
		t.Fatal(err)
	}
	if restored.Len() != 1 || restored.At(0).ID != 0 {
		t.Errorf("unexpected palette %v", restored.Samples())
	}

	controller.Entries = append(controller.Entries, controller.Entries[0])
	if _, err := controller.ToPalette(mapper); !errors.Is(err, ErrInvalidSnapshot) {
		t.Errorf("expected ErrInvalidSnapshot for duplicate entries, got %v", err)
	}
}

func TestAssignmentSnapshot(t *testing.T) {
	mapper := testMapper("/a.png", "/b.png")
	tiles := rowTiles(Lab{L: 10}, Lab{L: 20}, Lab{L: 30})
	assignment := &Assignment{Entries: []AssignmentEntry{
		{Bounds: tiles[0].Bounds, Query: tiles[0].Query, Image: 1},
		{Bounds: tiles[1].Bounds, Query: tiles[1].Query, Image: 0},
		{Bounds: tiles[2].Bounds, Query: tiles[2].Query, Image: 1},
	}}
	controller, err := CreateAssignmentFSController(assignment, mapper, "palette-id", KDTreePolicy)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), AssignmentFileName(3, 1, "json.zst"))
	if err := controller.WriteFile(path); err != nil {
		t.Fatal(err)
	}
	var read AssignmentFSController
	if err := read.ReadFile(path); err != nil {
		t.Fatal(err)
	}
	if read.PaletteID != "palette-id" || read.Search != "kdtree" {
		t.Errorf("unexpected header %q %q", read.PaletteID, read.Search)
	}
	if !read.Matches(tiles) || read.Matches(tiles[:2]) {
		t.Error("Matches returned wrong result")
	}
	if read.Matches(rowTiles(Lab{L: 10}, Lab{L: 20}, Lab{L: 35})) {
		t.Error("Matches accepted tiles with another color")
	}
	restored, err := read.ToAssignment(mapper)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(restored, assignment) {
		t.Errorf("expected %v, got %v", assignment, restored)
	}
	if _, err := read.ToAssignment(testMapper("/a.png")); !errors.Is(err, ErrInvalidSnapshot) {
		t.Errorf("expected ErrInvalidSnapshot, got %v", err)
	}

	unknown := &Assignment{Entries: []AssignmentEntry{{Bounds: image.Rect(0, 0, 1, 1), Image: 5}}}
	if _, err := CreateAssignmentFSController(unknown, mapper, "", BisectPolicy); err == nil {
		t.Error("expected error for unknown image")
	}
}

func TestSnapshotFileNames(t *testing.T) {
	testCases := []struct {
		got, expected string
	}{
		{PaletteFileName("CIEDE2000", ".json"), "palette-ciede2000.json"},
		{PaletteFileName("cie94", "gob.zst"), "palette-cie94.gob.zst"},
		{AssignmentFileName(40, 30, ".gob"), "assignment-40x30.gob"},
	}
	for _, tc := range testCases {
		if tc.got != tc.expected {
			t.Errorf("expected %s, got %s", tc.expected, tc.got)
		}
	}
}
