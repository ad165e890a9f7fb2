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
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	log "github.com/sirupsen/logrus"
)

// SurveyEntry contains the EXIF information of a single image that is of
// interest for a mosaic dataset.
// Orientation is 0 if the image has no orientation tag.
type SurveyEntry struct {
	Path        string
	Taken       time.Time
	Orientation int
	Model       string
}

// ReadSurveyEntry reads the EXIF data of a jpeg file.
func ReadSurveyEntry(path string) (SurveyEntry, error) {
	res := SurveyEntry{Path: path}
	f, err := os.Open(path)
	if err != nil {
		return res, err
	}
	defer f.Close()
	x, decodeErr := exif.Decode(f)
	if decodeErr != nil {
		return res, decodeErr
	}
	// all tags are optional
	if taken, dateErr := x.DateTime(); dateErr == nil {
		res.Taken = taken
	}
	if tag, tagErr := x.Get(exif.Orientation); tagErr == nil {
		if orientation, intErr := tag.Int(0); intErr == nil {
			res.Orientation = orientation
		}
	}
	if tag, tagErr := x.Get(exif.Model); tagErr == nil {
		if model, strErr := tag.StringVal(); strErr == nil {
			res.Model = strings.TrimSpace(model)
		}
	}
	return res, nil
}

// SurveyResult summarizes the EXIF data of a dataset. Only jpeg files are
// surveyed, other files are counted in Skipped.
//
// Orientations maps the EXIF orientation (1 to 8, 0 for unknown) to the
// number of images, Models the camera models. A rotated image (orientation
// other than 0 or 1) is displayed correctly because images are decoded with
// auto orientation, but it can change the average color of its thumbnail.
type SurveyResult struct {
	Entries      []SurveyEntry
	Skipped      int
	WithoutEXIF  []string
	Orientations map[int]int
	Models       map[string]int
	Earliest     time.Time
	Latest       time.Time
}

func isJPEG(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return true
	default:
		return false
	}
}

// SurveyDataset reads the EXIF data of all jpeg images in the mapper,
// numRoutines files are read concurrently.
// progress is called after each image, it may be nil.
func SurveyDataset(mapper *FSMapper, numRoutines int, progress ProgressFunc) *SurveyResult {
	if numRoutines <= 0 {
		numRoutines = 1
	}
	res := &SurveyResult{
		Orientations: make(map[int]int),
		Models:       make(map[string]int),
	}
	paths := make([]string, 0, mapper.Len())
	for _, path := range mapper.IDMapping {
		if isJPEG(path) {
			paths = append(paths, path)
		} else {
			res.Skipped++
		}
	}

	entries := make([]SurveyEntry, len(paths))
	errs := make([]error, len(paths))

	jobs := make(chan int, BufferSize)
	done := make(chan bool, BufferSize)
	var wg sync.WaitGroup
	wg.Add(numRoutines)
	for w := 0; w < numRoutines; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				entries[i], errs[i] = ReadSurveyEntry(paths[i])
				done <- true
			}
		}()
	}
	go func() {
		for i := range paths {
			jobs <- i
		}
		close(jobs)
	}()
	for i := range paths {
		<-done
		if progress != nil {
			progress(i + 1)
		}
	}
	wg.Wait()

	for i, entry := range entries {
		if errs[i] != nil {
			log.WithFields(log.Fields{
				log.ErrorKey: errs[i],
				"path":       paths[i],
			}).Debug("No EXIF data")
			res.WithoutEXIF = append(res.WithoutEXIF, paths[i])
			continue
		}
		res.Entries = append(res.Entries, entry)
		res.Orientations[entry.Orientation]++
		if entry.Model != "" {
			res.Models[entry.Model]++
		}
		if entry.Taken.IsZero() {
			continue
		}
		if res.Earliest.IsZero() || entry.Taken.Before(res.Earliest) {
			res.Earliest = entry.Taken
		}
		if res.Latest.IsZero() || entry.Taken.After(res.Latest) {
			res.Latest = entry.Taken
		}
	}
	return res
}

// WriteReport writes a human readable summary to w.
func (r *SurveyResult) WriteReport(w io.Writer) {
	fmt.Fprintf(w, "Images with EXIF data: %d\n", len(r.Entries))
	fmt.Fprintf(w, "Images without EXIF data: %d\n", len(r.WithoutEXIF))
	fmt.Fprintf(w, "Skipped (no jpeg): %d\n", r.Skipped)
	if !r.Earliest.IsZero() {
		fmt.Fprintf(w, "Taken between %s and %s\n",
			r.Earliest.Format("2006-01-02"), r.Latest.Format("2006-01-02"))
	}
	orientations := make([]int, 0, len(r.Orientations))
	for o := range r.Orientations {
		orientations = append(orientations, o)
	}
	sort.Ints(orientations)
	fmt.Fprintln(w, "Orientations:")
	for _, o := range orientations {
		fmt.Fprintf(w, "  %d: %d\n", o, r.Orientations[o])
	}
	models := make([]string, 0, len(r.Models))
	for m := range r.Models {
		models = append(models, m)
	}
	sort.Strings(models)
	fmt.Fprintln(w, "Camera models:")
	for _, m := range models {
		fmt.Fprintf(w, "  %s: %d\n", m, r.Models[m])
	}
}
