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
	"image"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

var (
	// SampleSize is the width and height database images are resized to before
	// computing their average color.
	SampleSize uint = 32
)

// ComputeAverageColor computes the average color of an image. For an empty
// image black is returned.
func ComputeAverageColor(img image.Image) RGB {
	bounds := img.Bounds()

	// don't do anything for empty images
	if bounds.Empty() {
		return RGB{}
	}
	// just to be sure we use big integers, depending on the image size we might
	// get problems
	var r, g, b uint64
	numPixels := uint64(bounds.Dx() * bounds.Dy())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			rgb := ConvertRGB(img.At(x, y))
			r += uint64(rgb.R)
			g += uint64(rgb.G)
			b += uint64(rgb.B)
		}
	}
	r /= numPixels
	g /= numPixels
	b /= numPixels
	return RGB{R: uint8(r), G: uint8(g), B: uint8(b)}
}

// ComputeSample computes the color sample of a single image.
// If resizer is not nil the image is first resized to SampleSize x
// SampleSize.
func ComputeSample(id ImageID, img image.Image, resizer ImageResizer) ColorSample {
	if resizer != nil && SampleSize > 0 {
		img = resizer.Resize(SampleSize, SampleSize, img)
	}
	return NewColorSample(id, ComputeAverageColor(img))
}

// CreateSamples computes the color samples of the images ids from storage.
// NumRoutines images are processed concurrently.
//
// Images that can't be loaded are logged and skipped, thus the result might
// contain fewer samples than ids. The order of the result is the order of
// ids, so the same input always yields the same samples.
//
// progress is called after each image, it may be nil.
func CreateSamples(ids []ImageID, storage ImageStorage, resizer ImageResizer,
	numRoutines int, progress ProgressFunc) []ColorSample {
	if numRoutines <= 0 {
		numRoutines = 1
	}
	start := time.Now()
	samples := make([]ColorSample, len(ids))
	ok := make([]bool, len(ids))

	jobs := make(chan int, BufferSize)
	done := make(chan bool, BufferSize)

	var wg sync.WaitGroup
	wg.Add(numRoutines)
	for w := 0; w < numRoutines; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				id := ids[i]
				img, loadErr := storage.LoadImage(id)
				if loadErr != nil {
					log.WithFields(log.Fields{
						log.ErrorKey: loadErr,
						"image":      id,
					}).Warn("Can't read image, skipping it")
					done <- false
					continue
				}
				samples[i] = ComputeSample(id, img, resizer)
				ok[i] = true
				done <- true
			}
		}()
	}

	go func() {
		for i := range ids {
			jobs <- i
		}
		close(jobs)
	}()

	skipped := 0
	for i := range ids {
		if !<-done {
			skipped++
		}
		if progress != nil {
			progress(i + 1)
		}
	}
	wg.Wait()

	res := make([]ColorSample, 0, len(ids)-skipped)
	for i, sample := range samples {
		if ok[i] {
			res = append(res, sample)
		}
	}
	log.WithFields(log.Fields{
		"samples":  len(res),
		"skipped":  skipped,
		"duration": time.Since(start),
	}).Info("Computed color samples")
	return res
}
