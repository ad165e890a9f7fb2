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
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
)

// writeTestImages creates solid images in dir, the color of each file is
// given by files.
func writeTestImages(t *testing.T, dir string, files map[string]color.Color) {
	t.Helper()
	for name, c := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := imaging.Save(imaging.New(16, 12, c), path); err != nil {
			t.Fatalf("can't write %s: %v", path, err)
		}
	}
}

func TestFSMapperLoad(t *testing.T) {
	dir := t.TempDir()
	writeTestImages(t, dir, map[string]color.Color{
		"b.png":     color.White,
		"a.jpg":     color.Black,
		"sub/c.png": color.White,
	})
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("no image"), 0644); err != nil {
		t.Fatal(err)
	}
	testCases := []struct {
		name      string
		recursive bool
		filter    SupportedImageFunc
		expected  []string
	}{
		{"flat", false, nil, []string{"a.jpg", "b.png"}},
		{"recursive", true, nil, []string{"a.jpg", "b.png", "sub/c.png"}},
		{"png only", true, func(ext string) bool { return ext == ".png" }, []string{"b.png", "sub/c.png"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := NewFSMapper()
			if err := m.Load(dir, tc.recursive, tc.filter); err != nil {
				t.Fatal(err)
			}
			if m.Len() != len(tc.expected) {
				t.Fatalf("expected %d images, got %v", len(tc.expected), m.IDMapping)
			}
			for i, name := range tc.expected {
				expectedPath := filepath.Join(dir, filepath.FromSlash(name))
				if path, _ := m.GetPath(ImageID(i)); path != expectedPath {
					t.Errorf("image %d: expected %s, got %s", i, expectedPath, path)
				}
				if id, ok := m.GetID(expectedPath); !ok || id != ImageID(i) {
					t.Errorf("GetID(%s) = %d, %v", expectedPath, id, ok)
				}
			}
		})
	}
}

func TestFSMapperRegister(t *testing.T) {
	m := NewFSMapper()
	a := m.Register("/a.png")
	b := m.Register("/b.png")
	if a != 0 || b != 1 || m.Register("/a.png") != 0 {
		t.Errorf("unexpected ids %d and %d", a, b)
	}
	if m.NumImages() != 2 {
		t.Errorf("expected 2 images, got %d", m.NumImages())
	}
	if _, ok := m.GetPath(5); ok {
		t.Error("found path for unknown id")
	}
	m.Clear()
	if m.Len() != 0 {
		t.Error("mapper not empty after Clear")
	}
}

func TestFSImageDB(t *testing.T) {
	dir := t.TempDir()
	writeTestImages(t, dir, map[string]color.Color{"a.png": color.White})
	m := NewFSMapper()
	if err := m.Load(dir, false, nil); err != nil {
		t.Fatal(err)
	}
	db := NewFSImageDB(m)
	img, err := db.LoadImage(0)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds() != image.Rect(0, 0, 16, 12) {
		t.Errorf("unexpected bounds %v", img.Bounds())
	}
	config, err := db.LoadConfig(0)
	if err != nil || config.Width != 16 || config.Height != 12 {
		t.Errorf("unexpected config %v, %v", config, err)
	}
	if _, err := db.LoadImage(1); err == nil {
		t.Error("expected error for unknown id")
	}
	if ids := IDList(db); len(ids) != 1 || ids[0] != 0 {
		t.Errorf("unexpected id list %v", ids)
	}
}

func TestMemoryImageDB(t *testing.T) {
	db := NewMemoryImageDB(imaging.New(3, 2, color.White), nil)
	if db.NumImages() != 2 {
		t.Fatalf("expected 2 images, got %d", db.NumImages())
	}
	config, err := db.LoadConfig(0)
	if err != nil || config.Width != 3 || config.Height != 2 {
		t.Errorf("unexpected config %v, %v", config, err)
	}
	if _, err := db.LoadImage(1); err == nil {
		t.Error("expected error for nil image")
	}
	if _, err := db.LoadImage(-1); err == nil {
		t.Error("expected error for negative id")
	}
}
