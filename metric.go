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
	"sort"
	"strings"
	"sync/atomic"
)

// DistanceMetric is a function that compares two Lab colors and returns
// how different they are perceived.
// The smaller the metric value is the more equal the colors are considered.
// Metric values must be ≥ 0 and the metric of a color with itself should be 0.
//
// A DistanceMetric has no state, it must be safe to call it concurrently.
type DistanceMetric func(a, b Lab) float64

// CIEDE2000 is the CIE ΔE 2000 color difference. It is the default metric,
// a value of about 2 is considered barely noticeable.
func CIEDE2000(a, b Lab) float64 {
	// go-colorful scales the result down by 100, just as the Lab values
	return a.toColorful().DistanceCIEDE2000(b.toColorful()) * 100.0
}

// CIE94 is the CIE ΔE 1994 color difference.
func CIE94(a, b Lab) float64 {
	return a.toColorful().DistanceCIE94(b.toColorful()) * 100.0
}

// CIE76 is the euclidean distance in the Lab space (CIE ΔE 1976).
func CIE76(a, b Lab) float64 {
	return a.toColorful().DistanceLab(b.toColorful()) * 100.0
}

// CountingMetric wraps a metric and counts how often it has been called.
// It is safe for concurrent use and is mostly useful for instrumentation and
// tests.
type CountingMetric struct {
	Metric DistanceMetric
	calls  int64
}

// NewCountingMetric returns a new counting metric wrapping m.
func NewCountingMetric(m DistanceMetric) *CountingMetric {
	return &CountingMetric{Metric: m}
}

// Distance calls the wrapped metric and increments the counter.
func (m *CountingMetric) Distance(a, b Lab) float64 {
	atomic.AddInt64(&m.calls, 1)
	return m.Metric(a, b)
}

// Calls returns the number of calls to Distance since the last Reset.
func (m *CountingMetric) Calls() int {
	return int(atomic.LoadInt64(&m.calls))
}

// Reset sets the counter back to 0.
func (m *CountingMetric) Reset() {
	atomic.StoreInt64(&m.calls, 0)
}

// The following variables are used for registering named
// metrics.

var (
	distanceMetrics map[string]DistanceMetric
)

// DefaultMetricName is the name of the metric used if nothing else is
// configured.
const DefaultMetricName = "ciede2000"

// RegisterDistanceMetric is used to register a named distance
// metric. It will only add the metric if the name does not
// exist yet. The result is true if the metric was successfully
// registered and false otherwise.
// Some metrics are registered by default.
// All names must be lowercase strings, the register and get
// methods will always transform a string to lowercase.
//
// All metrics should be registered by an init method.
func RegisterDistanceMetric(name string, metric DistanceMetric) bool {
	name = strings.ToLower(name)
	if _, has := distanceMetrics[name]; has {
		return false
	}
	distanceMetrics[name] = metric
	return true
}

// GetDistanceMetricNames returns a sorted list of all registered named
// distance metrics.
func GetDistanceMetricNames() []string {
	res := make([]string, 0, len(distanceMetrics))
	for key := range distanceMetrics {
		res = append(res, key)
	}
	sort.Strings(res)
	return res
}

// GetDistanceMetric returns a registered distance metric.
// Returns the metric and true on success and nil and false
// otherwise.
func GetDistanceMetric(name string) (DistanceMetric, bool) {
	name = strings.ToLower(name)
	if metric, has := distanceMetrics[name]; has {
		return metric, true
	}
	return nil, false
}

func init() {
	distanceMetrics = make(map[string]DistanceMetric)
	RegisterDistanceMetric("ciede2000", CIEDE2000)
	RegisterDistanceMetric("cie94", CIE94)
	RegisterDistanceMetric("cie76", CIE76)
}
