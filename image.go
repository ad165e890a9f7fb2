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
	"image/color"
	"reflect"
	"strings"

	"github.com/nfnt/resize"
)

// SupportedImageFunc decides by the file extension (for example ".jpg") if a
// file is loaded as a database image.
type SupportedImageFunc func(ext string) bool

// JPGAndPNG accepts jpeg and png files.
func JPGAndPNG(ext string) bool {
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg", ".png":
		return true
	default:
		return false
	}
}

// CommonFormats accepts all formats with a registered decoder: jpeg, png,
// gif, bmp, tiff and webp.
func CommonFormats(ext string) bool {
	switch strings.ToLower(ext) {
	case ".gif", ".bmp", ".tif", ".tiff", ".webp":
		return true
	default:
		return JPGAndPNG(ext)
	}
}

// RGB is an opaque 8 bit color. The average color of an image is stored this
// way before it is converted to Lab.
type RGB struct {
	R, G, B uint8
}

// NewRGB returns a new RGB color.
func NewRGB(r, g, b uint8) RGB {
	return RGB{R: r, G: g, B: b}
}

// ConvertRGB drops the alpha channel of c.
func ConvertRGB(c color.Color) RGB {
	rgba := color.RGBAModel.Convert(c).(color.RGBA)
	return RGB{R: rgba.R, G: rgba.G, B: rgba.B}
}

// RGBA implements color.Color.
func (c RGB) RGBA() (r, g, b, a uint32) {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}.RGBA()
}

func (c RGB) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// SubImager is implemented by all image types of the standard library.
type SubImager interface {
	SubImage(r image.Rectangle) image.Image
}

// SubImage returns the part r of img. It fails for image types without a
// SubImage method.
func SubImage(img image.Image, r image.Rectangle) (image.Image, error) {
	imager, ok := img.(SubImager)
	if !ok {
		return nil, fmt.Errorf("Can't create sub image from type %v", reflect.TypeOf(img))
	}
	return imager.SubImage(r), nil
}

// ImageResizer scales an image to exactly width x height pixels.
type ImageResizer interface {
	Resize(width, height uint, img image.Image) image.Image
}

// NfntResizer resizes with github.com/nfnt/resize.
type NfntResizer struct {
	InterP resize.InterpolationFunction
}

// NewNfntResizer returns a new resizer using the interpolation function.
func NewNfntResizer(interP resize.InterpolationFunction) NfntResizer {
	return NfntResizer{interP}
}

// Resize implements ImageResizer.
func (resizer NfntResizer) Resize(width, height uint, img image.Image) image.Image {
	return resize.Resize(width, height, img, resizer.InterP)
}

// interpolations are sorted by quality (and thus by running time).
var interpolations = []struct {
	name   string
	interP resize.InterpolationFunction
}{
	{"NearestNeighbor", resize.NearestNeighbor},
	{"Bilinear", resize.Bilinear},
	{"Bicubic", resize.Bicubic},
	{"MitchellNetravali", resize.MitchellNetravali},
	{"Lanczos2", resize.Lanczos2},
	{"Lanczos3", resize.Lanczos3},
}

// GetInterP returns the interpolation function for a quality between 0
// (nearest neighbor) and 5 (Lanczos3). Larger values are treated as 5.
func GetInterP(quality uint) resize.InterpolationFunction {
	if quality >= uint(len(interpolations)) {
		quality = uint(len(interpolations) - 1)
	}
	return interpolations[quality].interP
}

// InterPString returns the name of an interpolation function.
func InterPString(interP resize.InterpolationFunction) string {
	for _, entry := range interpolations {
		if entry.interP == interP {
			return entry.name
		}
	}
	return fmt.Sprintf("InterpolationFunction(%d)", interP)
}

// DefaultResizer is used where no resizer is given.
var DefaultResizer = NewNfntResizer(resize.MitchellNetravali)

// ImageID identifies an image of an ImageStorage.
type ImageID int

// NoImageID is returned together with an error where an id is expected.
const NoImageID ImageID = -1

// ImageStorage gives access to the database images. The ids of a storage
// are 0, ..., NumImages() - 1. Images are loaded on demand, so a storage
// may contain more images than fit into memory.
//
// LoadImage and LoadConfig return an error for an unknown id or an image that
// can't be decoded.
// Implementations must be safe for concurrent use.
type ImageStorage interface {
	NumImages() ImageID
	LoadImage(id ImageID) (image.Image, error)
	LoadConfig(id ImageID) (image.Config, error)
}

// IDList returns all ids of storage.
func IDList(storage ImageStorage) []ImageID {
	res := make([]ImageID, storage.NumImages())
	for i := range res {
		res[i] = ImageID(i)
	}
	return res
}
