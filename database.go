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
	// register decoders for the image formats in the standard library
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"

	"github.com/disintegration/imaging"
	// register additional decoders
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// FSMapper maps image ids to absolute file paths and vice versa. The ids are
// the positions in IDMapping.
//
// A mapper is filled once by Load and then only read. If the directory
// changes the mapper is cleared and loaded again, ids of the old mapping are
// no longer valid then.
type FSMapper struct {
	IDMapping   []string
	NameMapping map[string]ImageID
}

// NewFSMapper returns a new empty mapper.
func NewFSMapper() *FSMapper {
	return &FSMapper{
		IDMapping:   make([]string, 0),
		NameMapping: make(map[string]ImageID),
	}
}

// Clear removes all entries from the mapper.
func (m *FSMapper) Clear() {
	m.IDMapping = make([]string, 0)
	m.NameMapping = make(map[string]ImageID)
}

// Len returns the number of images in the mapper.
func (m *FSMapper) Len() int {
	return len(m.IDMapping)
}

// NumImages returns the number of images as an ImageID.
func (m *FSMapper) NumImages() ImageID {
	return ImageID(len(m.IDMapping))
}

// GetPath returns the path of the image with the given id.
func (m *FSMapper) GetPath(id ImageID) (string, bool) {
	if id < 0 || int(id) >= len(m.IDMapping) {
		return "", false
	}
	return m.IDMapping[id], true
}

// GetID returns the id of the image with the given path.
func (m *FSMapper) GetID(path string) (ImageID, bool) {
	id, has := m.NameMapping[path]
	return id, has
}

// Register adds a path to the mapper and returns its id. If the path is
// already registered the existing id is returned.
func (m *FSMapper) Register(path string) ImageID {
	if id, has := m.NameMapping[path]; has {
		return id
	}
	id := ImageID(len(m.IDMapping))
	m.IDMapping = append(m.IDMapping, path)
	m.NameMapping[path] = id
	return id
}

// Load adds all files from dir accepted by filter. If recursive is true
// subdirectories are visited as well. Paths are stored as absolute paths and
// in lexical order, thus loading the same directory twice yields the same
// ids.
//
// If filter is nil CommonFormats is used.
func (m *FSMapper) Load(dir string, recursive bool, filter SupportedImageFunc) error {
	dir, absErr := filepath.Abs(dir)
	if absErr != nil {
		return absErr
	}
	if filter == nil {
		filter = CommonFormats
	}
	var paths []string
	if recursive {
		walkFunc := func(path string, info os.FileInfo, err error) error {
			switch {
			case err != nil:
				return err
			case !info.IsDir() && filter(filepath.Ext(path)):
				paths = append(paths, path)
				return nil
			default:
				return nil
			}
		}
		if err := filepath.Walk(dir, walkFunc); err != nil {
			return err
		}
	} else {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			if !entry.IsDir() && filter(filepath.Ext(entry.Name())) {
				paths = append(paths, filepath.Join(dir, entry.Name()))
			}
		}
	}
	sort.Strings(paths)
	for _, path := range paths {
		m.Register(path)
	}
	return nil
}

// FSImageDB implements ImageStorage. It uses images stored on the filesystem
// and opens them on demand, the paths are given by a FSMapper.
//
// Images are decoded with imaging, so the EXIF orientation of jpeg files is
// applied.
type FSImageDB struct {
	Mapper *FSMapper
}

// NewFSImageDB returns a new database backed by mapper.
func NewFSImageDB(mapper *FSMapper) *FSImageDB {
	return &FSImageDB{Mapper: mapper}
}

// NumImages implements ImageStorage.
func (db *FSImageDB) NumImages() ImageID {
	return db.Mapper.NumImages()
}

func (db *FSImageDB) path(id ImageID) (string, error) {
	path, ok := db.Mapper.GetPath(id)
	if !ok {
		return "", fmt.Errorf("Invalid image id: Not associated with an image %d", id)
	}
	return path, nil
}

// LoadImage implements ImageStorage.
func (db *FSImageDB) LoadImage(id ImageID) (image.Image, error) {
	path, err := db.path(id)
	if err != nil {
		return nil, err
	}
	return imaging.Open(path, imaging.AutoOrientation(true))
}

// LoadConfig implements ImageStorage.
func (db *FSImageDB) LoadConfig(id ImageID) (image.Config, error) {
	path, err := db.path(id)
	if err != nil {
		return image.Config{}, err
	}
	r, openErr := os.Open(path)
	if openErr != nil {
		return image.Config{}, openErr
	}
	defer r.Close()
	config, _, decodeErr := image.DecodeConfig(r)
	return config, decodeErr
}

// MemoryImageDB implements ImageStorage by keeping all images in memory.
// It is useful for small (generated) datasets and for testing.
type MemoryImageDB struct {
	Images []image.Image
}

// NewMemoryImageDB returns a new database containing images.
func NewMemoryImageDB(images ...image.Image) *MemoryImageDB {
	return &MemoryImageDB{Images: images}
}

// NumImages implements ImageStorage.
func (db *MemoryImageDB) NumImages() ImageID {
	return ImageID(len(db.Images))
}

// LoadImage implements ImageStorage. An image that is nil is considered
// unreadable.
func (db *MemoryImageDB) LoadImage(id ImageID) (image.Image, error) {
	if id < 0 || int(id) >= len(db.Images) {
		return nil, fmt.Errorf("Invalid image id: Not associated with an image %d", id)
	}
	img := db.Images[id]
	if img == nil {
		return nil, fmt.Errorf("Image %d can't be read", id)
	}
	return img, nil
}

// LoadConfig implements ImageStorage.
func (db *MemoryImageDB) LoadConfig(id ImageID) (image.Config, error) {
	img, err := db.LoadImage(id)
	if err != nil {
		return image.Config{}, err
	}
	bounds := img.Bounds()
	return image.Config{
		ColorModel: img.ColorModel(),
		Width:      bounds.Dx(),
		Height:     bounds.Dy(),
	}, nil
}
