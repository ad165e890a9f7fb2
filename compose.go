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
	"image/color"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	log "github.com/sirupsen/logrus"
	"golang.org/x/image/draw"
)

var (
	// ImageCacheSize is the default number of scaled tile images a Composer
	// keeps. Must be ≥ 1.
	ImageCacheSize = 15

	// DefaultPlaceholder is painted into tiles whose image can't be read.
	DefaultPlaceholder = color.RGBA{R: 128, G: 128, B: 128, A: 255}
)

// ResizeStrategy scales img to exactly tileWidth x tileHeight. Other than an
// ImageResizer it decides how the image is fit into the tile (stretch, crop
// ...), the resizer only does the scaling.
type ResizeStrategy func(resizer ImageResizer, tileWidth, tileHeight uint, img image.Image) image.Image

// ForceResize stretches img to the tile size.
func ForceResize(resizer ImageResizer, tileWidth, tileHeight uint, img image.Image) image.Image {
	return resizer.Resize(tileWidth, tileHeight, img)
}

// FillResize keeps the aspect ratio: img is scaled to cover the tile and
// the center is cropped. imaging does both steps, resizer is ignored.
func FillResize(resizer ImageResizer, tileWidth, tileHeight uint, img image.Image) image.Image {
	return imaging.Fill(img, int(tileWidth), int(tileHeight), imaging.Center, imaging.Lanczos)
}

// GetResizeStrategy returns the strategy with the given name, "force" or
// "fill".
func GetResizeStrategy(name string) (ResizeStrategy, bool) {
	switch name {
	case "force":
		return ForceResize, true
	case "fill":
		return FillResize, true
	default:
		return nil, false
	}
}

type cacheKey struct {
	id            ImageID
	width, height int
}

// ImageCache stores scaled images by id and size. Tiles of a mosaic usually
// have the same size and neighbouring tiles often get the same image, so
// scaling is skipped for many tiles.
//
// The cache holds at most size images and evicts in insertion order.
// It is safe for concurrent use.
type ImageCache struct {
	m      sync.Mutex
	size   int
	images map[cacheKey]image.Image
	queue  []cacheKey
}

// NewImageCache returns an empty cache for size images, size < 1 is treated
// as 1.
func NewImageCache(size int) *ImageCache {
	if size <= 0 {
		size = 1
	}
	return &ImageCache{
		size:   size,
		images: make(map[cacheKey]image.Image, size),
		queue:  make([]cacheKey, 0, size),
	}
}

// Put stores img unless an image with the same key is already cached.
func (cache *ImageCache) Put(id ImageID, width, height int, img image.Image) {
	key := cacheKey{id, width, height}
	cache.m.Lock()
	defer cache.m.Unlock()
	if _, has := cache.images[key]; has {
		return
	}
	for len(cache.queue) >= cache.size {
		delete(cache.images, cache.queue[0])
		cache.queue = cache.queue[1:]
	}
	cache.queue = append(cache.queue, key)
	cache.images[key] = img
}

// Get returns the cached image or nil.
func (cache *ImageCache) Get(id ImageID, width, height int) image.Image {
	cache.m.Lock()
	defer cache.m.Unlock()
	return cache.images[cacheKey{id, width, height}]
}

// Len returns the number of cached images.
func (cache *ImageCache) Len() int {
	cache.m.Lock()
	defer cache.m.Unlock()
	return len(cache.queue)
}

// Composer pastes the images of an assignment into a new image.
//
// Images that can't be read (for example because the file was removed after
// the palette was computed) don't stop the composition: a warning is logged
// and the tile is filled with Placeholder.
type Composer struct {
	Storage     ImageStorage
	Resizer     ImageResizer
	Strategy    ResizeStrategy
	NumRoutines int
	CacheSize   int
	Placeholder color.Color
}

// NewComposer returns a composer with the default resizer, ForceResize, the
// default cache size and the default placeholder.
func NewComposer(storage ImageStorage, numRoutines int) *Composer {
	if numRoutines <= 0 {
		numRoutines = 1
	}
	return &Composer{
		Storage:     storage,
		Resizer:     DefaultResizer,
		Strategy:    ForceResize,
		NumRoutines: numRoutines,
		CacheSize:   ImageCacheSize,
		Placeholder: DefaultPlaceholder,
	}
}

func (composer *Composer) tileImage(cache *ImageCache, id ImageID, width, height int) (image.Image, error) {
	if img := cache.Get(id, width, height); img != nil {
		return img, nil
	}
	img, err := composer.Storage.LoadImage(id)
	if err != nil {
		return nil, err
	}
	img = composer.Strategy(composer.Resizer, uint(width), uint(height), img)
	cache.Put(id, width, height, img)
	return img, nil
}

// Compose creates the mosaic. The result covers all tiles of the assignment.
// It also returns the number of tiles that were filled with the placeholder.
//
// progress is called after each tile, it may be nil.
func (composer *Composer) Compose(assignment *Assignment, progress ProgressFunc) (*image.RGBA, int) {
	var bounds image.Rectangle
	for _, entry := range assignment.Entries {
		bounds = bounds.Union(entry.Bounds)
	}
	res := image.NewRGBA(bounds)
	if len(assignment.Entries) == 0 {
		return res, 0
	}
	start := time.Now()
	numRoutines := composer.NumRoutines
	if numRoutines <= 0 {
		numRoutines = 1
	}
	var placeholderColor color.Color = DefaultPlaceholder
	if composer.Placeholder != nil {
		placeholderColor = composer.Placeholder
	}
	placeholder := image.NewUniform(placeholderColor)
	cache := NewImageCache(composer.CacheSize)

	jobs := make(chan int, BufferSize)
	done := make(chan bool, BufferSize)

	var wg sync.WaitGroup
	wg.Add(numRoutines)
	for w := 0; w < numRoutines; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				entry := assignment.Entries[i]
				area := entry.Bounds
				img, err := composer.tileImage(cache, entry.Image, area.Dx(), area.Dy())
				if err != nil {
					log.WithFields(log.Fields{
						log.ErrorKey: err,
						"image":      entry.Image,
						"tile":       area,
					}).Warn("Can't read image, using placeholder")
					draw.Draw(res, area, placeholder, image.Point{}, draw.Src)
					done <- false
					continue
				}
				// tiles don't overlap, so routines never write the same pixels
				draw.Draw(res, area, img, img.Bounds().Min, draw.Src)
				done <- true
			}
		}()
	}

	go func() {
		for i := range assignment.Entries {
			jobs <- i
		}
		close(jobs)
	}()

	missing := 0
	for i := range assignment.Entries {
		if !<-done {
			missing++
		}
		if progress != nil {
			progress(i + 1)
		}
	}
	wg.Wait()

	log.WithFields(log.Fields{
		"tiles":    len(assignment.Entries),
		"missing":  missing,
		"duration": time.Since(start),
	}).Info("Composed mosaic")
	return res, missing
}
