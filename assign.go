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
	"image"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Tile is a rectangle of the (resized) target image together with its
// average color. Tiles are created by ComputeTiles.
type Tile struct {
	Bounds image.Rectangle
	Query  Lab
}

// Validate returns an error wrapping ErrMalformedTile if the tile has an empty
// area or an invalid query color.
func (t Tile) Validate() error {
	if t.Bounds.Dx() <= 0 || t.Bounds.Dy() <= 0 {
		return fmt.Errorf("%w: bounds %v have no area", ErrMalformedTile, t.Bounds)
	}
	if !t.Query.Valid() {
		return fmt.Errorf("%w: %v is not a valid Lab color", ErrMalformedTile, t.Query)
	}
	return nil
}

// AssignmentEntry is the image selected for a single tile. Query is the
// color of the tile the image was selected for.
type AssignmentEntry struct {
	Bounds image.Rectangle
	Query  Lab
	Image  ImageID
}

// Assignment contains an entry for each tile of a mosaic, in the order of the
// tiles.
type Assignment struct {
	Entries []AssignmentEntry
}

// Len returns the number of entries.
func (a *Assignment) Len() int {
	return len(a.Entries)
}

// Get returns the image assigned to the tile with the given bounds.
// If there is no such tile NoImageID and false are returned.
func (a *Assignment) Get(bounds image.Rectangle) (ImageID, bool) {
	for _, entry := range a.Entries {
		if entry.Bounds == bounds {
			return entry.Image, true
		}
	}
	return NoImageID, false
}

// Map returns the assignment as a mapping from tile bounds to images.
func (a *Assignment) Map() map[image.Rectangle]ImageID {
	res := make(map[image.Rectangle]ImageID, len(a.Entries))
	for _, entry := range a.Entries {
		res[entry.Bounds] = entry.Image
	}
	return res
}

// Matches returns true if the assignment was computed for exactly these
// tiles: same bounds and query colors in the same order.
func (a *Assignment) Matches(tiles []Tile) bool {
	if len(tiles) != len(a.Entries) {
		return false
	}
	for i, t := range tiles {
		if a.Entries[i].Bounds != t.Bounds || a.Entries[i].Query != t.Query {
			return false
		}
	}
	return true
}

// MosaicAssigner selects an image for each tile by querying a ColorIndex.
// Tiles are independent of each other, NumRoutines tiles are processed
// concurrently.
type MosaicAssigner struct {
	Index       ColorIndex
	NumRoutines int
}

// NewMosaicAssigner returns a new assigner.
func NewMosaicAssigner(index ColorIndex, numRoutines int) *MosaicAssigner {
	if numRoutines <= 0 {
		numRoutines = 1
	}
	return &MosaicAssigner{Index: index, NumRoutines: numRoutines}
}

// Assign computes the assignment for the tiles. The result contains exactly
// one entry for each tile, in the same order as tiles.
//
// All tiles are validated before any query is made: if one tile is malformed
// an error wrapping ErrMalformedTile is returned and no assignment is
// computed. Errors from the index (for example ErrInvalidState) are returned
// as well.
//
// progress is called after each tile, it may be nil.
func (assigner *MosaicAssigner) Assign(tiles []Tile, progress ProgressFunc) (*Assignment, error) {
	for i, t := range tiles {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("tile %d: %w", i, err)
		}
	}
	numRoutines := assigner.NumRoutines
	if numRoutines <= 0 {
		numRoutines = 1
	}
	start := time.Now()
	res := &Assignment{Entries: make([]AssignmentEntry, len(tiles))}

	jobs := make(chan int, BufferSize)
	errorChan := make(chan error, BufferSize)

	var wg sync.WaitGroup
	wg.Add(numRoutines)
	for w := 0; w < numRoutines; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				t := tiles[i]
				id, err := assigner.Index.Nearest(t.Query)
				// each routine writes only its own entries
				res.Entries[i] = AssignmentEntry{Bounds: t.Bounds, Query: t.Query, Image: id}
				errorChan <- err
			}
		}()
	}

	go func() {
		for i := range tiles {
			jobs <- i
		}
		close(jobs)
	}()

	var err error
	for i := range tiles {
		nextErr := <-errorChan
		if nextErr != nil && err == nil {
			err = nextErr
		}
		if progress != nil {
			progress(i + 1)
		}
	}
	wg.Wait()
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"tiles":    len(tiles),
		"routines": numRoutines,
		"duration": time.Since(start),
	}).Debug("Assigned images to tiles")
	return res, nil
}
