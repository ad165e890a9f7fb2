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
	"math"
	"reflect"
	"sync"
	"testing"
)

func TestMetricsBasicProperties(t *testing.T) {
	colors := []Lab{
		Black,
		{100, 0, 0},
		{50, 20, -30},
		{72.5, -40, 10},
		{30, 5, 60},
	}
	for _, name := range GetDistanceMetricNames() {
		metric, _ := GetDistanceMetric(name)
		t.Run(name, func(t *testing.T) {
			for _, a := range colors {
				if d := metric(a, a); math.Abs(d) > 1e-9 {
					t.Errorf("distance of %v to itself is %f", a, d)
				}
				for _, b := range colors {
					ab, ba := metric(a, b), metric(b, a)
					if ab < 0 {
						t.Errorf("negative distance %f between %v and %v", ab, a, b)
					}
					if name != "cie94" && math.Abs(ab-ba) > 1e-9 {
						t.Errorf("distance not symmetric for %v and %v: %f != %f", a, b, ab, ba)
					}
				}
			}
		})
	}
}

func TestCIE76Scale(t *testing.T) {
	d := CIE76(Lab{50, 0, 0}, Lab{60, 0, 0})
	if math.Abs(d-10) > 1e-9 {
		t.Errorf("expected distance 10, got %f", d)
	}
}

func TestCIEDE2000Neutral(t *testing.T) {
	// for colors without chroma only the lightness term remains, with
	// weight 1 at L = 50
	d := CIEDE2000(Lab{40, 0, 0}, Lab{60, 0, 0})
	if math.Abs(d-20) > 1e-6 {
		t.Errorf("expected distance 20, got %f", d)
	}
}

func TestMetricRegistry(t *testing.T) {
	expected := []string{"cie76", "cie94", "ciede2000"}
	if got := GetDistanceMetricNames(); !reflect.DeepEqual(got, expected) {
		t.Fatalf("expected metrics %v, got %v", expected, got)
	}
	if _, ok := GetDistanceMetric("CIEDE2000"); !ok {
		t.Error("metric lookup should ignore case")
	}
	if _, ok := GetDistanceMetric("foo"); ok {
		t.Error("found unknown metric foo")
	}
	if RegisterDistanceMetric("cie76", CIEDE2000) {
		t.Error("registered metric cie76 twice")
	}
	if _, ok := GetDistanceMetric(DefaultMetricName); !ok {
		t.Errorf("default metric %s not registered", DefaultMetricName)
	}
}

func TestCountingMetric(t *testing.T) {
	counting := NewCountingMetric(CIE76)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				counting.Distance(Black, Lab{float64(j), 0, 0})
			}
		}()
	}
	wg.Wait()
	if calls := counting.Calls(); calls != 1000 {
		t.Errorf("expected 1000 calls, got %d", calls)
	}
	counting.Reset()
	if calls := counting.Calls(); calls != 0 {
		t.Errorf("expected 0 calls after reset, got %d", calls)
	}
}
