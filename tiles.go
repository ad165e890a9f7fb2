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

	"github.com/disintegration/imaging"
)

// PrepareTarget resizes the target image to the size of the mosaic. If width
// or height are ≤ 0 the original size is used for them.
// The result always starts at (0, 0), thus tile bounds computed on it are
// also positions in the mosaic.
func PrepareTarget(img image.Image, width, height int, resizer ImageResizer) image.Image {
	bounds := img.Bounds()
	if width <= 0 {
		width = bounds.Dx()
	}
	if height <= 0 {
		height = bounds.Dy()
	}
	if width == bounds.Dx() && height == bounds.Dy() {
		if bounds.Min == (image.Point{}) {
			return img
		}
		// resizers return images of the same size unchanged
		return imaging.Clone(img)
	}
	if resizer == nil {
		resizer = DefaultResizer
	}
	res := resizer.Resize(uint(width), uint(height), img)
	if res.Bounds().Min != (image.Point{}) {
		return imaging.Clone(res)
	}
	return res
}

// ComputeTiles computes the tiles of img. The query color of each tile is the
// average color of the part of the image covered by the rectangle.
//
// The tiles are returned row by row. If one rectangle does not overlap with
// the image an error wrapping ErrMalformedTile is returned.
func ComputeTiles(img image.Image, dist TileDivision, numRoutines int) ([]Tile, error) {
	if numRoutines <= 0 {
		numRoutines = 1
	}
	bounds := img.Bounds()
	rects := dist.Flatten()
	res := make([]Tile, len(rects))

	jobs := make(chan int, BufferSize)
	errorChan := make(chan error, BufferSize)

	var wg sync.WaitGroup
	wg.Add(numRoutines)
	for w := 0; w < numRoutines; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				r := rects[i]
				// padded tiles are only partly covered by the image
				area := r.Intersect(bounds)
				if area.Empty() {
					errorChan <- fmt.Errorf("%w: %v is outside of the image %v",
						ErrMalformedTile, r, bounds)
					continue
				}
				subImg, subErr := SubImage(img, area)
				if subErr != nil {
					errorChan <- subErr
					continue
				}
				res[i] = Tile{Bounds: r, Query: LabFromRGB(ComputeAverageColor(subImg))}
				errorChan <- nil
			}
		}()
	}

	go func() {
		for i := range rects {
			jobs <- i
		}
		close(jobs)
	}()

	var err error
	for range rects {
		nextErr := <-errorChan
		if nextErr != nil && err == nil {
			err = nextErr
		}
	}
	wg.Wait()
	if err != nil {
		return nil, err
	}
	return res, nil
}
