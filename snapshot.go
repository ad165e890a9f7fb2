// Copyright 2018 Fabian Wenzelmann
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
	"encoding/gob"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// This file contains functions and types for storing and retrieving palettes
// and assignments. Both are expensive to compute and should be reused between
// runs as long as the images didn't change.

// Version is stored in each snapshot file. This can be useful if the
// definition should ever change.
var Version = "1.0.0"

// snapshotCodec returns the encoding ("json" or "gob") given by the file
// extension and whether the file is compressed with zstd (suffix ".zst").
func snapshotCodec(path string) (string, bool, error) {
	compressed := false
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".zst" {
		compressed = true
		ext = strings.ToLower(filepath.Ext(strings.TrimSuffix(path, filepath.Ext(path))))
	}
	switch ext {
	case ".json":
		return "json", compressed, nil
	case ".gob":
		return "gob", compressed, nil
	default:
		return "", false, fmt.Errorf("Unknown file extension for snapshot file: %s. Should be \".json\" or \".gob\" (optionally followed by \".zst\")", ext)
	}
}

func encodeSnapshot(w io.Writer, codec string, v interface{}) error {
	switch codec {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", " ")
		return enc.Encode(v)
	default:
		return gob.NewEncoder(w).Encode(v)
	}
}

func decodeSnapshot(r io.Reader, codec string, v interface{}) error {
	switch codec {
	case "json":
		return json.NewDecoder(r).Decode(v)
	default:
		return gob.NewDecoder(r).Decode(v)
	}
}

// writeSnapshotFile writes v to path, the encoding depends on the extension.
func writeSnapshotFile(path string, v interface{}) error {
	codec, compressed, codecErr := snapshotCodec(path)
	if codecErr != nil {
		return codecErr
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, path)
	}
	defer f.Close()
	if !compressed {
		return errors.Wrap(encodeSnapshot(f, codec, v), path)
	}
	enc, encErr := zstd.NewWriter(f)
	if encErr != nil {
		return errors.Wrap(encErr, path)
	}
	if err := encodeSnapshot(enc, codec, v); err != nil {
		enc.Close()
		return errors.Wrap(err, path)
	}
	return errors.Wrap(enc.Close(), path)
}

// readSnapshotFile reads path into v, the encoding depends on the extension.
func readSnapshotFile(path string, v interface{}) error {
	codec, compressed, codecErr := snapshotCodec(path)
	if codecErr != nil {
		return codecErr
	}
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, path)
	}
	defer f.Close()
	if !compressed {
		return errors.Wrap(decodeSnapshot(f, codec, v), path)
	}
	dec, decErr := zstd.NewReader(f)
	if decErr != nil {
		return errors.Wrap(decErr, path)
	}
	defer dec.Close()
	return errors.Wrap(decodeSnapshot(dec, codec, v), path)
}

// PaletteFSEntry is used to store a palette entry on the filesystem.
// It contains the path of the image as well as its colors.
type PaletteFSEntry struct {
	Path string
	RGB  RGB
	Lab  Lab
}

// PaletteFSController is used to store an ordered palette on the filesystem.
// The entries are stored in palette order.
//
// Each controller has a random ID. Assignments store the ID of the palette
// they were computed with, so an assignment is never used with another
// palette.
//
// Metric is the name of the metric the palette was sequenced with.
type PaletteFSController struct {
	ID      string
	Metric  string
	Entries []PaletteFSEntry
	Version string
}

// CreatePaletteFSController creates a controller for the palette. mapper is
// used to get the paths of the images. If id is empty a new random id is
// generated.
func CreatePaletteFSController(palette *OrderedPalette, mapper *FSMapper, metricName, id string) (*PaletteFSController, error) {
	if id == "" {
		id = uuid.New().String()
	}
	res := &PaletteFSController{
		ID:      id,
		Metric:  metricName,
		Entries: make([]PaletteFSEntry, palette.Len()),
	}
	for i, sample := range palette.samples {
		path, ok := mapper.GetPath(sample.ID)
		if !ok {
			return nil, fmt.Errorf("Can't retrieve path for image with id %d", sample.ID)
		}
		res.Entries[i] = PaletteFSEntry{Path: path, RGB: sample.RGB, Lab: sample.Lab}
	}
	return res, nil
}

// WriteFile writes the controller to a file. The encoding depends on the
// extension: ".json" or ".gob", each optionally followed by ".zst" for zstd
// compression.
func (c *PaletteFSController) WriteFile(path string) error {
	c.Version = Version
	return writeSnapshotFile(path, c)
}

// ReadFile reads the controller from a file, see WriteFile for supported
// extensions.
func (c *PaletteFSController) ReadFile(path string) error {
	return readSnapshotFile(path, c)
}

// Map computes the mapping path ↦ entry.
func (c *PaletteFSController) Map() map[string]PaletteFSEntry {
	res := make(map[string]PaletteFSEntry, len(c.Entries))
	for _, entry := range c.Entries {
		res[entry.Path] = entry
	}
	return res
}

// MissingEntries computes all images that are present in the mapper but have
// no entry in the controller. If this is not empty the palette must be
// computed again.
func (c *PaletteFSController) MissingEntries(m *FSMapper) []string {
	paths := c.Map()
	res := make([]string, 0)
	for _, path := range m.IDMapping {
		if _, has := paths[path]; !has {
			res = append(res, path)
		}
	}
	return res
}

// AdditionalEntries computes all images that are present in the controller
// but not in the mapper. Usually that means that the image has been deleted.
func (c *PaletteFSController) AdditionalEntries(m *FSMapper) []string {
	res := make([]string, 0)
	for _, entry := range c.Entries {
		if _, has := m.GetID(entry.Path); !has {
			res = append(res, entry.Path)
		}
	}
	return res
}

// Remove removes all entries whose path is in paths. The order of the
// remaining entries doesn't change.
func (c *PaletteFSController) Remove(paths []string) {
	asSet := make(map[string]struct{}, len(paths))
	for _, path := range paths {
		asSet[path] = struct{}{}
	}
	newEntries := make([]PaletteFSEntry, 0, len(c.Entries))
	for _, entry := range c.Entries {
		if _, toRemove := asSet[entry.Path]; !toRemove {
			newEntries = append(newEntries, entry)
		}
	}
	c.Entries = newEntries
}

// ToPalette creates the palette from the stored entries. All paths must be
// known to mapper, the palette is validated with NewOrderedPalette.
func (c *PaletteFSController) ToPalette(mapper *FSMapper) (*OrderedPalette, error) {
	samples := make([]ColorSample, len(c.Entries))
	for i, entry := range c.Entries {
		id, ok := mapper.GetID(entry.Path)
		if !ok {
			return nil, fmt.Errorf("%w: image \"%s\" is not in the database",
				ErrInvalidSnapshot, entry.Path)
		}
		samples[i] = ColorSample{ID: id, RGB: entry.RGB, Lab: entry.Lab}
	}
	return NewOrderedPalette(samples)
}

// AssignmentFSEntry is used to store the image of a single tile together
// with the tile color it was selected for.
type AssignmentFSEntry struct {
	Bounds image.Rectangle
	Query  Lab
	Path   string
}

// AssignmentFSController is used to store an assignment on the filesystem.
// PaletteID is the ID of the PaletteFSController the assignment was computed
// with.
type AssignmentFSController struct {
	PaletteID string
	Search    string
	Entries   []AssignmentFSEntry
	Version   string
}

// CreateAssignmentFSController creates a controller for the assignment.
func CreateAssignmentFSController(assignment *Assignment, mapper *FSMapper,
	paletteID string, policy SearchPolicy) (*AssignmentFSController, error) {
	res := &AssignmentFSController{
		PaletteID: paletteID,
		Search:    policy.String(),
		Entries:   make([]AssignmentFSEntry, assignment.Len()),
	}
	for i, entry := range assignment.Entries {
		path, ok := mapper.GetPath(entry.Image)
		if !ok {
			return nil, fmt.Errorf("Can't retrieve path for image with id %d", entry.Image)
		}
		res.Entries[i] = AssignmentFSEntry{Bounds: entry.Bounds, Query: entry.Query, Path: path}
	}
	return res, nil
}

// WriteFile writes the controller to a file, see PaletteFSController for
// supported extensions.
func (c *AssignmentFSController) WriteFile(path string) error {
	c.Version = Version
	return writeSnapshotFile(path, c)
}

// ReadFile reads the controller from a file.
func (c *AssignmentFSController) ReadFile(path string) error {
	return readSnapshotFile(path, c)
}

// Matches returns true if the controller stores exactly the given tiles
// (bounds and query colors) in the same order.
func (c *AssignmentFSController) Matches(tiles []Tile) bool {
	if len(tiles) != len(c.Entries) {
		return false
	}
	for i, t := range tiles {
		if t.Bounds != c.Entries[i].Bounds || t.Query != c.Entries[i].Query {
			return false
		}
	}
	return true
}

// ToAssignment creates the assignment from the stored entries. All paths must
// be known to mapper.
func (c *AssignmentFSController) ToAssignment(mapper *FSMapper) (*Assignment, error) {
	res := &Assignment{Entries: make([]AssignmentEntry, len(c.Entries))}
	for i, entry := range c.Entries {
		id, ok := mapper.GetID(entry.Path)
		if !ok {
			return nil, fmt.Errorf("%w: image \"%s\" is not in the database",
				ErrInvalidSnapshot, entry.Path)
		}
		res.Entries[i] = AssignmentEntry{Bounds: entry.Bounds, Query: entry.Query, Image: id}
	}
	return res, nil
}

func trimExt(ext string) string {
	return strings.TrimPrefix(ext, ".")
}

// PaletteFileName returns the proposed filename for a palette sequenced with
// the given metric. The scheme is "palette-metric.ext", for example
// "palette-ciede2000.json" or "palette-cie94.gob.zst".
//
// Using this scheme makes it easier to find the precomputed data.
func PaletteFileName(metricName, ext string) string {
	return fmt.Sprintf("palette-%s.%s", strings.ToLower(metricName), trimExt(ext))
}

// AssignmentFileName returns the proposed filename for an assignment of a
// mosaic with numX x numY tiles. The scheme is "assignment-XxY.ext".
func AssignmentFileName(numX, numY int, ext string) string {
	return fmt.Sprintf("assignment-%dx%d.%s", numX, numY, trimExt(ext))
}
