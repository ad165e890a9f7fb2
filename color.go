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
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Lab is a color in the CIE L*a*b* color space. L is the lightness between 0
// and 100, A and B are the chrominance axes (usually between -128 and 127).
//
// Note that go-colorful uses a scale where L is between 0 and 1, Lab always
// uses the "classic" scale. Conversion happens in toColorful and LabFromRGB.
type Lab struct {
	L, A, B float64
}

// Black is the Lab value of RGB (0, 0, 0).
var Black = Lab{}

func (c Lab) String() string {
	return fmt.Sprintf("Lab(%.2f, %.2f, %.2f)", c.L, c.A, c.B)
}

// Valid returns true if all components are finite numbers and the lightness is
// between 0 and 100.
func (c Lab) Valid() bool {
	for _, v := range [...]float64{c.L, c.A, c.B} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return c.L >= 0.0 && c.L <= 100.0
}

func (c Lab) toColorful() colorful.Color {
	return colorful.Lab(c.L/100.0, c.A/100.0, c.B/100.0)
}

// LabFromRGB converts an sRGB color to Lab (D65 white point).
func LabFromRGB(c RGB) Lab {
	col := colorful.Color{
		R: float64(c.R) / 255.0,
		G: float64(c.G) / 255.0,
		B: float64(c.B) / 255.0,
	}
	l, a, b := col.Lab()
	// rounding gives L slightly below 0 for black and above 100 for white
	return Lab{L: math.Max(0, math.Min(100, l*100.0)), A: a * 100.0, B: b * 100.0}
}

// RGB converts the Lab color back to sRGB, colors outside of the gamut are
// clamped.
func (c Lab) RGB() RGB {
	r, g, b := c.toColorful().Clamped().RGB255()
	return RGB{R: r, G: g, B: b}
}

// ColorSample is the aggregated color of a single database image, given in RGB
// and Lab. Samples are computed once (see CreateSamples) and never changed
// afterwards.
type ColorSample struct {
	ID  ImageID
	RGB RGB
	Lab Lab
}

// NewColorSample returns a new sample for the image, the Lab value is computed
// from rgb.
func NewColorSample(id ImageID, rgb RGB) ColorSample {
	return ColorSample{ID: id, RGB: rgb, Lab: LabFromRGB(rgb)}
}

func (s ColorSample) String() string {
	return fmt.Sprintf("sample %d: %v %v", s.ID, s.RGB, s.Lab)
}
