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
	"fmt"
	"image"
	"strings"
)

// DivideMode controls a FixedSizeDivider if the image size is not a multiple
// of the tile size. For a width of 99 and tiles of width 10 there are 9 pixels
// left in each row:
//
// DivideCrop drops them, the division has 9 columns.
// DivideAdjust adds a narrower column of width 9.
// DividePad adds a full column of width 10 that reaches one pixel beyond the
// image. ComputeTiles only averages the part inside the image.
type DivideMode int

const (
	DivideCrop DivideMode = iota
	DivideAdjust
	DividePad
)

func (mode DivideMode) String() string {
	switch mode {
	case DivideCrop:
		return "DivideCrop"
	case DivideAdjust:
		return "DivideAdjust"
	case DividePad:
		return "DividePad"
	default:
		return fmt.Sprintf("DivideMode(%d)", mode)
	}
}

// ParseDivideMode parses a mode given as "crop", "adjust" or "pad".
func ParseDivideMode(s string) (DivideMode, error) {
	switch strings.ToLower(s) {
	case "crop":
		return DivideCrop, nil
	case "adjust":
		return DivideAdjust, nil
	case "pad":
		return DividePad, nil
	default:
		return DivideCrop, fmt.Errorf("Unknown divide mode \"%s\"", s)
	}
}

// TileDivision is the grid of tile rectangles of a mosaic. It is stored row
// by row: div[y] is the y-th row, all rows have the same length.
// Rectangles may reach beyond the image (see DividePad).
type TileDivision [][]image.Rectangle

// Get returns the rectangle in column x and row y.
func (div TileDivision) Get(x, y int) image.Rectangle {
	return div[y][x]
}

// Flatten returns all rectangles row by row, this is the order of the tiles
// returned by ComputeTiles.
func (div TileDivision) Flatten() []image.Rectangle {
	size := 0
	for _, row := range div {
		size += len(row)
	}
	res := make([]image.Rectangle, 0, size)
	for _, row := range div {
		res = append(res, row...)
	}
	return res
}

// Bounds returns the smallest rectangle containing all tiles, that is the
// size of the composed mosaic.
func (div TileDivision) Bounds() image.Rectangle {
	var res image.Rectangle
	for _, row := range div {
		for _, r := range row {
			res = res.Union(r)
		}
	}
	return res
}

// ImageDivider computes the tiles for an image with the given bounds.
// An empty image yields a nil division.
type ImageDivider interface {
	Divide(bounds image.Rectangle) TileDivision
}

// span is the interval [lo, hi) of a tile along one axis.
type span struct {
	lo, hi int
}

// grid combines the column and row intervals.
func grid(cols, rows []span) TileDivision {
	if len(cols) == 0 || len(rows) == 0 {
		return nil
	}
	res := make(TileDivision, len(rows))
	for i, y := range rows {
		row := make([]image.Rectangle, len(cols))
		for j, x := range cols {
			row[j] = image.Rect(x.lo, y.lo, x.hi, y.hi)
		}
		res[i] = row
	}
	return res
}

// FixedSizeDivider creates tiles of Width x Height pixels, Mode decides about
// the remaining pixels.
type FixedSizeDivider struct {
	Width, Height int
	Mode          DivideMode
}

// NewFixedSizeDivider returns a new FixedSizeDivider.
func NewFixedSizeDivider(width, height int, mode DivideMode) FixedSizeDivider {
	return FixedSizeDivider{Width: width, Height: height, Mode: mode}
}

func (divider FixedSizeDivider) spans(lo, hi, size int) []span {
	if size <= 0 {
		return []span{{lo, hi}}
	}
	n := hi - lo
	count := n / size
	// a tile larger than the image is cut to the image in all modes but pad
	if count == 0 || (n%size != 0 && divider.Mode != DivideCrop) {
		count++
	}
	res := make([]span, count)
	for i := range res {
		start := lo + i*size
		end := start + size
		if end > hi && divider.Mode != DividePad {
			end = hi
		}
		res[i] = span{start, end}
	}
	return res
}

// Divide implements ImageDivider.
func (divider FixedSizeDivider) Divide(bounds image.Rectangle) TileDivision {
	if bounds.Empty() {
		return nil
	}
	return grid(divider.spans(bounds.Min.X, bounds.Max.X, divider.Width),
		divider.spans(bounds.Min.Y, bounds.Max.Y, divider.Height))
}

// FixedNumDivider creates NumX x NumY tiles of equal size.
//
// Usually the image size is not a multiple of the number of tiles: 10 columns
// on a width of 99 are 9 pixels wide each, 9 pixels are left. If Cut is true
// they're dropped and the mosaic is 90 pixels wide. Otherwise the last column
// is enlarged to 18 pixels and the mosaic keeps the width of the image.
type FixedNumDivider struct {
	NumX, NumY int
	Cut        bool
}

// NewFixedNumDivider returns a new FixedNumDivider.
func NewFixedNumDivider(numX, numY int, cut bool) *FixedNumDivider {
	return &FixedNumDivider{NumX: numX, NumY: numY, Cut: cut}
}

func (divider *FixedNumDivider) spans(lo, hi, count int) []span {
	if count <= 0 {
		return nil
	}
	// more tiles than pixels: tiles of one pixel, the ones outside of the
	// image are rejected by ComputeTiles
	size := IntMax(1, (hi-lo)/count)
	res := make([]span, count)
	for i := range res {
		res[i] = span{lo + i*size, lo + (i+1)*size}
	}
	if last := &res[count-1]; !divider.Cut && hi > last.lo {
		last.hi = hi
	}
	return res
}

// Divide implements ImageDivider.
func (divider *FixedNumDivider) Divide(bounds image.Rectangle) TileDivision {
	if bounds.Empty() {
		return nil
	}
	return grid(divider.spans(bounds.Min.X, bounds.Max.X, divider.NumX),
		divider.spans(bounds.Min.Y, bounds.Max.Y, divider.NumY))
}
