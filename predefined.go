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

// Scripts for the common workflows, run by the CLI with Parameterized.
// All of them take the arguments
//
//	$1 image directory, $2 target image, $3 output, $4 tiles, $5 dimension
//
// $5 may be omitted.

var (
	// RunSimple loads the images, sequences the palette and writes the
	// mosaic. Nothing is cached, so every run sequences again.
	//
	// Example: RunSimple ~/Pictures/ input.jpg output.png 20x30
	RunSimple = `storage load $1
palette create
mosaic $2 $3 $4 $5`

	// RunCached works as RunSimple, but the palette is stored in the image
	// directory. The next run with the same images loads it instead of
	// sequencing again.
	RunCached = `storage load $1
palette cached
mosaic $2 $3 $4 $5`

	// CompareMetrics writes one mosaic per metric, $3 is a directory here.
	CompareMetrics = `storage load $1
samples create
set metric ciede2000
palette create
mosaic $2 $3/mosaic-ciede2000.jpg $4 $5
set metric cie94
palette create
mosaic $2 $3/mosaic-cie94.jpg $4 $5
set metric cie76
palette create
mosaic $2 $3/mosaic-cie76.jpg $4 $5`

	// CompareSearch works as CompareMetrics but compares the search policies
	// with one palette.
	CompareSearch = `storage load $1
palette create
set search bisect
mosaic $2 $3/mosaic-bisect.jpg $4 $5
set search linear
mosaic $2 $3/mosaic-linear.jpg $4 $5
set search kdtree
mosaic $2 $3/mosaic-kdtree.jpg $4 $5`
)

// PredefinedScripts maps the names of the predefined scripts to their code.
var PredefinedScripts = map[string]string{
	"RunSimple":      RunSimple,
	"RunCached":      RunCached,
	"CompareMetrics": CompareMetrics,
	"CompareSearch":  CompareSearch,
}
