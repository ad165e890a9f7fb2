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
	"io"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

// BufferSize is the capacity of the job and result channels of the worker
// pools.
var BufferSize = 1000

// ProgressFunc is called by long running operations (sequencing, sampling,
// assigning, compositing) each time an item is done. num is the number of
// items done so far, calls are never concurrent.
type ProgressFunc func(num int)

// ProgressIgnore is a ProgressFunc that does nothing.
func ProgressIgnore(num int) {}

// progressPercent returns the percentage of num of max and false if num
// should not be reported. Every step-th item and the last item are reported,
// a negative step reports every item.
func progressPercent(num, max, step int) (float64, bool) {
	if step == 0 || max == 0 {
		return 0.0, false
	}
	if step > 0 && num%step != 0 && num != max {
		return 0.0, false
	}
	return 100.0 * float64(IntMin(num, max)) / float64(max), true
}

// LoggerProgressFunc returns a ProgressFunc that logs every step-th of max
// items on info level.
func LoggerProgressFunc(prefix string, max, step int) ProgressFunc {
	if prefix == "" {
		prefix = "Progress"
	}
	return func(num int) {
		percent, report := progressPercent(num, max, step)
		if !report {
			return
		}
		log.WithFields(log.Fields{
			"done":    num,
			"total":   max,
			"percent": fmt.Sprintf("%.1f", percent),
		}).Info(prefix)
	}
}

// StdProgressFunc works as LoggerProgressFunc but writes lines of the form
// "prefix: num of max (percent%)" to w.
func StdProgressFunc(w io.Writer, prefix string, max, step int) ProgressFunc {
	if prefix == "" {
		prefix = "Progress"
	}
	return func(num int) {
		percent, report := progressPercent(num, max, step)
		if !report {
			return
		}
		fmt.Fprintf(w, "%s: %d of %d (%.1f%%)\n", prefix, num, max, percent)
	}
}

// parseDimensions parses "AxB". Empty parts are returned as -1 if allowEmpty
// is true and are an error otherwise.
func parseDimensions(s string, allowEmpty bool) (int, int, error) {
	split := strings.Split(s, "x")
	if len(split) != 2 {
		return -1, -1, fmt.Errorf("Invalid dimension format: %s. Expect \"AxB\"", s)
	}
	res := [2]int{-1, -1}
	for i, part := range split {
		part = strings.TrimSpace(part)
		if part == "" && allowEmpty {
			continue
		}
		val, parseErr := strconv.Atoi(part)
		if parseErr != nil {
			return -1, -1, parseErr
		}
		if val <= 0 {
			return -1, -1, fmt.Errorf("Dimensions must be positive, got %d", val)
		}
		res[i] = val
	}
	return res[0], res[1], nil
}

// ParseDimensions parses a string of the form "AxB" where A and B are positive
// integers, for example the number of tiles "40x30".
func ParseDimensions(s string) (int, int, error) {
	return parseDimensions(s, false)
}

// ParseDimensionsEmpty works as ParseDimensions but A and / or B may be
// omitted: "1024x", "x768" and "x" are valid. Omitted values are returned as
// -1.
func ParseDimensionsEmpty(s string) (int, int, error) {
	return parseDimensions(s, true)
}

// KeepRatioHeight returns the height for width s.t. the ratio of
// originalWidth and originalHeight is kept. The original values must be > 0.
func KeepRatioHeight(originalWidth, originalHeight, width int) int {
	return int(float64(originalHeight) / float64(originalWidth) * float64(width))
}

// KeepRatioWidth returns the width for height s.t. the ratio is kept.
func KeepRatioWidth(originalWidth, originalHeight, height int) int {
	return int(float64(originalWidth) / float64(originalHeight) * float64(height))
}
