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

import "errors"

var (
	// ErrInvalidState is returned when an index is queried that contains no
	// colors at all.
	ErrInvalidState = errors.New("Invalid state: Color index is empty")

	// ErrMalformedTile is returned if a tile has an empty area or its query
	// color is not a valid Lab color. A mosaic is never created with such a
	// tile, it would leave a gap in the result.
	ErrMalformedTile = errors.New("Malformed tile")

	// ErrInvalidSnapshot is returned if a palette created from precomputed
	// data (for example a file) contains duplicate images or invalid colors.
	ErrInvalidSnapshot = errors.New("Invalid palette snapshot")

	// ErrCmdSyntaxErr is returned by a CommandFunc if the syntax for the command
	// is invalid.
	ErrCmdSyntaxErr = errors.New("Invalid command syntax")
)
