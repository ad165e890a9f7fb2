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
	"bufio"
	"fmt"
	"image"
	"io"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

// ExecutorState is shared by all commands of a session. Besides the loaded
// images and the data computed from them it holds the options changed with
// "set".
type ExecutorState struct {
	// WorkingDir is the absolute path relative paths are resolved against.
	WorkingDir string

	// StorageDir is the directory the images in Mapper come from, empty if
	// nothing was loaded.
	StorageDir string

	Mapper     *FSMapper
	ImgStorage *FSImageDB

	// NumRoutines is used by all worker pools.
	NumRoutines int

	// Samples, Palette and Assignment are computed from the images in
	// ImgStorage. Loading other images resets all three to nil.
	Samples []ColorSample

	// PaletteID identifies Palette in snapshot files.
	Palette   *OrderedPalette
	PaletteID string

	// Assignment is reused by "mosaic" as long as the tiles don't change.
	Assignment *Assignment

	Verbose bool

	// In contains the commands, one per line. Out receives all messages.
	In  io.Reader
	Out io.Writer

	// CutMosaic is passed to FixedNumDivider: if true pixels that don't fill
	// a whole tile are dropped, otherwise the last tile in a row / column
	// gets larger.
	CutMosaic bool

	// JPGQuality (1 to 100) is used when the mosaic is written as jpeg.
	JPGQuality int

	InterP resize.InterpolationFunction

	// CacheSize is the capacity of the ImageCache of the composer, values
	// ≤ 0 mean ImageCacheSize.
	CacheSize int

	// Metric is the registered name of the DistanceMetric.
	Metric string

	// Threshold and Fallback are only used by BisectPolicy.
	Search    SearchPolicy
	Threshold float64
	Fallback  float64

	// Resize names the ResizeStrategy.
	Resize string
}

// NewExecutorState returns a state with default options that reads commands
// from in. It panics if the current directory can't be determined.
func NewExecutorState(in io.Reader, out io.Writer) *ExecutorState {
	numRoutines := runtime.NumCPU() * 2
	if numRoutines <= 0 {
		numRoutines = 4
	}
	dir, err := filepath.Abs(".")
	if err != nil {
		panic(fmt.Errorf("Can't determine working directory: %s", err.Error()))
	}
	mapper := NewFSMapper()
	return &ExecutorState{
		WorkingDir:  dir,
		NumRoutines: numRoutines,
		Mapper:      mapper,
		ImgStorage:  NewFSImageDB(mapper),
		Verbose:     true,
		In:          in,
		Out:         out,
		CutMosaic:   false,
		JPGQuality:  100,
		InterP:      resize.Lanczos3,
		CacheSize:   ImageCacheSize,
		Metric:      DefaultMetricName,
		Search:      BisectPolicy,
		Threshold:   DefaultThreshold,
		Fallback:    0,
		Resize:      "force",
	}
}

// GetPath resolves a path entered by the user. A leading ~ is expanded to
// the home directory, relative paths are joined with WorkingDir.
func (state *ExecutorState) GetPath(path string) (string, error) {
	res, pathErr := homedir.Expand(path)
	if pathErr != nil {
		return "", pathErr
	}
	if !filepath.IsAbs(res) {
		res = filepath.Join(state.WorkingDir, res)
	}
	return filepath.Abs(res)
}

// GetMetric returns the distance metric selected by Metric.
func (state *ExecutorState) GetMetric() (DistanceMetric, error) {
	metric, ok := GetDistanceMetric(state.Metric)
	if !ok {
		return nil, fmt.Errorf("Unknown metric \"%s\"", state.Metric)
	}
	return metric, nil
}

// invalidate removes all data computed from the images.
func (state *ExecutorState) invalidate() {
	state.Samples = nil
	state.Palette = nil
	state.PaletteID = ""
	state.Assignment = nil
}

// progress returns a ProgressFunc writing to Out if Verbose is true and nil
// otherwise.
func (state *ExecutorState) progress(prefix string, max int) ProgressFunc {
	if !state.Verbose {
		return nil
	}
	return StdProgressFunc(state.Out, prefix, max, IntMax(1, IntMin(100, max/10)))
}

// CommandFunc executes a command with the given arguments (the command name
// is not included).
type CommandFunc func(state *ExecutorState, args ...string) error

// Command is a CommandFunc together with its help texts.
type Command struct {
	Exec        CommandFunc
	Usage       string
	Description string
}

// CommandMap maps command names to Commands.
type CommandMap map[string]Command

// DefaultCommands contains all commands of the mosaic interpreter, it is
// filled in init.
var DefaultCommands CommandMap

// CommandHandler controls how Execute reacts to the events of a session.
//
// Execute calls Init once to get the state and Start before the first line
// is read. Each line of state.In is surrounded by calls to Before and After.
// A line is parsed with ParseCommand and empty lines are skipped, the first
// word selects the Command.
//
// OnParseErr, OnInvalidCmd (unknown command name) and OnError (the command
// failed) return false to end the session immediately, After is not called
// in this case. A command that was called with wrong arguments returns
// ErrCmdSyntaxErr, OnError can print the usage then.
// OnScanErr is called if reading from state.In fails.
type CommandHandler interface {
	Init() *ExecutorState
	Start(s *ExecutorState)
	Before(s *ExecutorState)
	After(s *ExecutorState)
	OnParseErr(s *ExecutorState, err error) bool
	OnInvalidCmd(s *ExecutorState, cmd string) bool
	OnSuccess(s *ExecutorState, cmd Command)
	OnError(s *ExecutorState, err error, cmd Command) bool
	OnScanErr(s *ExecutorState, err error)
}

// Execute reads and runs commands from the handler's state until the input
// is exhausted or the handler stops the session. Commands are looked up in
// commandMap.
func Execute(handler CommandHandler, commandMap CommandMap) {
	state := handler.Init()
	handler.Start(state)
	scanner := bufio.NewScanner(state.In)
	for scanner.Scan() {
		handler.Before(state)
		if !executeLine(handler, commandMap, state, scanner.Text()) {
			return
		}
		handler.After(state)
	}
	if scanErr := scanner.Err(); scanErr != nil {
		handler.OnScanErr(state, scanErr)
	}
}

// executeLine runs a single line, it returns false if the session should
// end.
func executeLine(handler CommandHandler, commandMap CommandMap, state *ExecutorState, line string) bool {
	words, parseErr := ParseCommand(line)
	switch {
	case parseErr != nil:
		return handler.OnParseErr(state, parseErr)
	case len(words) == 0:
		return true
	}
	cmd, ok := commandMap[words[0]]
	if !ok {
		return handler.OnInvalidCmd(state, words[0])
	}
	if execErr := cmd.Exec(state, words[1:]...); execErr != nil {
		return handler.OnError(state, execErr, cmd)
	}
	handler.OnSuccess(state, cmd)
	return true
}

func parseError(s string, i int) error {
	return fmt.Errorf("Error parsing command line \"%s\" at position %d", s, i)
}

// ParseCommand splits a line into words separated by spaces or tabs.
// A word can be enclosed in double quotes to include whitespace, "" is the
// empty word. \" and \\ insert a quote or a backslash, any other escape
// sequence, an unterminated quote or a quote inside an unquoted word is an
// error.
//
// For example `cd "my pictures"` yields "cd" and "my pictures".
func ParseCommand(s string) ([]string, error) {
	words := make([]string, 0)
	var (
		word    strings.Builder
		inWord  bool
		quoted  bool
		escaped bool
	)
	endWord := func() {
		words = append(words, word.String())
		word.Reset()
		inWord, quoted = false, false
	}
	for i, r := range s {
		switch {
		case escaped:
			if r != '\\' && r != '"' {
				return nil, parseError(s, i)
			}
			word.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped, inWord = true, true
		case quoted:
			if r == '"' {
				endWord()
			} else {
				word.WriteRune(r)
			}
		case r == '"':
			if inWord {
				return nil, parseError(s, i)
			}
			quoted, inWord = true, true
		case r == ' ' || r == '\t':
			if inWord {
				endWord()
			}
		default:
			word.WriteRune(r)
			inWord = true
		}
	}
	if escaped || quoted {
		return nil, parseError(s, len(s))
	}
	if inWord {
		endWord()
	}
	return words, nil
}

// PwdCommand prints the working directory.
func PwdCommand(state *ExecutorState, args ...string) error {
	fmt.Fprintln(state.Out, state.WorkingDir)
	return nil
}

// variable is an option of ExecutorState, it is printed by "stats" and
// changed by "set".
type variable struct {
	get func(state *ExecutorState) interface{}
	set func(state *ExecutorState, value string) error
}

// intInRange parses an integer in [min, max].
func intInRange(name, value string, min, max int) (int, error) {
	val, err := strconv.Atoi(value)
	if err != nil || val < min || val > max {
		return 0, fmt.Errorf("Invalid value for %s: %q is not an integer between %d and %d", name, value, min, max)
	}
	return val, nil
}

func parseBool(name, value string) (bool, error) {
	val, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("Invalid value for %s: %q is not true or false", name, value)
	}
	return val, nil
}

func parseNonNegativeFloat(name, value string) (float64, error) {
	val, err := strconv.ParseFloat(value, 64)
	if err != nil || val < 0 || math.IsNaN(val) {
		return 0, fmt.Errorf("Invalid value for %s: %q is not a number ≥ 0", name, value)
	}
	return val, nil
}

// variables contains the options that can be set, keyed by name.
var variables = map[string]variable{
	"routines": {
		get: func(s *ExecutorState) interface{} { return s.NumRoutines },
		set: func(s *ExecutorState, value string) error {
			val, err := intInRange("routines", value, 1, math.MaxInt32)
			if err == nil {
				s.NumRoutines = val
			}
			return err
		},
	},
	"verbose": {
		get: func(s *ExecutorState) interface{} { return s.Verbose },
		set: func(s *ExecutorState, value string) error {
			val, err := parseBool("verbose", value)
			if err == nil {
				s.Verbose = val
			}
			return err
		},
	},
	"cut": {
		get: func(s *ExecutorState) interface{} { return s.CutMosaic },
		set: func(s *ExecutorState, value string) error {
			val, err := parseBool("cut", value)
			if err == nil {
				s.CutMosaic = val
			}
			return err
		},
	},
	"jpeg-quality": {
		get: func(s *ExecutorState) interface{} { return s.JPGQuality },
		set: func(s *ExecutorState, value string) error {
			val, err := intInRange("jpeg-quality", value, 1, 100)
			if err == nil {
				s.JPGQuality = val
			}
			return err
		},
	},
	"interp": {
		get: func(s *ExecutorState) interface{} { return InterPString(s.InterP) },
		set: func(s *ExecutorState, value string) error {
			val, err := intInRange("interp", value, 0, math.MaxInt32)
			if err == nil {
				s.InterP = GetInterP(uint(val))
			}
			return err
		},
	},
	"cache": {
		get: func(s *ExecutorState) interface{} { return s.CacheSize },
		set: func(s *ExecutorState, value string) error {
			val, err := intInRange("cache", value, math.MinInt32, math.MaxInt32)
			if err == nil {
				s.CacheSize = val
			}
			return err
		},
	},
	"metric": {
		get: func(s *ExecutorState) interface{} { return s.Metric },
		set: func(s *ExecutorState, value string) error {
			if _, ok := GetDistanceMetric(value); !ok {
				return fmt.Errorf("Invalid value for metric, must be one of %s",
					strings.Join(GetDistanceMetricNames(), ", "))
			}
			value = strings.ToLower(value)
			if value != s.Metric {
				if s.Palette != nil {
					fmt.Fprintln(s.Out, "The palette was sequenced with", s.Metric, "run \"palette create\" to use", value)
				}
				s.Assignment = nil
			}
			s.Metric = value
			return nil
		},
	},
	"search": {
		get: func(s *ExecutorState) interface{} { return s.Search },
		set: func(s *ExecutorState, value string) error {
			val, err := ParseSearchPolicy(value)
			if err != nil {
				return fmt.Errorf("Invalid value for search, must be bisect, linear or kdtree: %w", err)
			}
			if val != s.Search {
				s.Assignment = nil
			}
			s.Search = val
			return nil
		},
	},
	"threshold": {
		get: func(s *ExecutorState) interface{} { return s.Threshold },
		set: func(s *ExecutorState, value string) error {
			val, err := parseNonNegativeFloat("threshold", value)
			if err == nil {
				s.Threshold = val
				s.Assignment = nil
			}
			return err
		},
	},
	"fallback": {
		get: func(s *ExecutorState) interface{} { return s.Fallback },
		set: func(s *ExecutorState, value string) error {
			val, err := parseNonNegativeFloat("fallback", value)
			if err == nil {
				s.Fallback = val
				s.Assignment = nil
			}
			return err
		},
	},
	"resize": {
		get: func(s *ExecutorState) interface{} { return s.Resize },
		set: func(s *ExecutorState, value string) error {
			if _, ok := GetResizeStrategy(value); !ok {
				return fmt.Errorf("Invalid value for resize, must be force or fill: %q", value)
			}
			s.Resize = value
			return nil
		},
	},
}

// StatsCommand prints the value of all variables or of the given one.
func StatsCommand(state *ExecutorState, args ...string) error {
	names := args
	if len(names) == 0 {
		for name := range variables {
			names = append(names, name)
		}
		sort.Strings(names)
	}
	for _, name := range names {
		v, has := variables[name]
		if !has {
			return fmt.Errorf("Unknown variable \"%s\"", name)
		}
		fmt.Fprintf(state.Out, "%s ==> %v\n", name, v.get(state))
	}
	return nil
}

// SetVarCommand implements "set <variable> <value>". The variable is not
// changed if value is invalid.
func SetVarCommand(state *ExecutorState, args ...string) error {
	if len(args) != 2 {
		return ErrCmdSyntaxErr
	}
	v, has := variables[args[0]]
	if !has {
		return fmt.Errorf("Unknown variable \"%s\", \"stats\" lists all variables", args[0])
	}
	return v.set(state, args[1])
}

// CdCommand changes the working directory.
func CdCommand(state *ExecutorState, args ...string) error {
	if len(args) != 1 {
		return ErrCmdSyntaxErr
	}
	path, pathErr := state.GetPath(args[0])
	if pathErr != nil {
		return errors.Wrap(pathErr, "Changing directory failed")
	}
	fi, err := os.Stat(path)
	if err != nil {
		return errors.Wrap(err, "Changing directory failed")
	}
	if !fi.IsDir() {
		return fmt.Errorf("cd: %s is not a directory", path)
	}
	state.WorkingDir = path
	return nil
}

// ImageStorageCommand manages the images in the storage.
//
//	storage                       prints the number of images
//	storage list                  prints the path of each image
//	storage load [dir] [recursive] replaces the images by those in dir
//
// load accepts all formats of CommonFormats, dir defaults to the working
// directory. All samples, the palette and the assignment are discarded.
func ImageStorageCommand(state *ExecutorState, args ...string) error {
	switch {
	case len(args) == 0:
		fmt.Fprintln(state.Out, "Images in storage:", state.Mapper.Len())
		return nil
	case args[0] == "list":
		for _, path := range state.Mapper.IDMapping {
			fmt.Fprintf(state.Out, "  %s\n", path)
		}
		fmt.Fprintln(state.Out, state.Mapper.Len(), "images")
		return nil
	case args[0] == "load":
		dir := state.WorkingDir
		var recursive bool
		if len(args) > 2 {
			var boolErr error
			recursive, boolErr = strconv.ParseBool(args[2])
			if boolErr != nil {
				return boolErr
			}
		}
		if len(args) > 1 {
			var pathErr error
			dir, pathErr = state.GetPath(args[1])
			if pathErr != nil {
				return pathErr
			}
		}
		if state.Verbose {
			fmt.Fprintf(state.Out, "Scanning %s (recursive: %v)\n", dir, recursive)
		}
		state.Mapper.Clear()
		state.invalidate()
		state.StorageDir = ""
		if loadErr := state.Mapper.Load(dir, recursive, CommonFormats); loadErr != nil {
			state.Mapper.Clear()
			return loadErr
		}
		state.StorageDir = dir
		fmt.Fprintln(state.Out, "Found", state.Mapper.Len(), "images")
		return nil
	default:
		return ErrCmdSyntaxErr
	}
}

// createSamples computes the samples of all images in the storage.
func createSamples(state *ExecutorState) error {
	numImages := int(state.ImgStorage.NumImages())
	if numImages == 0 {
		return errors.New("No images in storage, use \"storage load\"")
	}
	fmt.Fprintln(state.Out, "Computing color samples for", numImages, "images")
	start := time.Now()
	samples := CreateSamples(IDList(state.ImgStorage), state.ImgStorage,
		NewNfntResizer(state.InterP), state.NumRoutines, state.progress("Samples", numImages))
	state.Samples = samples
	state.Palette = nil
	state.PaletteID = ""
	state.Assignment = nil
	if skipped := numImages - len(samples); skipped > 0 {
		fmt.Fprintln(state.Out, "Skipped", skipped, "images that couldn't be read")
	}
	if state.Verbose {
		fmt.Fprintln(state.Out, "Computed samples in", time.Since(start))
	}
	return nil
}

// SamplesCommand creates the color samples for all images in the storage or
// prints the number of samples.
func SamplesCommand(state *ExecutorState, args ...string) error {
	switch {
	case len(args) == 0:
		fmt.Fprintln(state.Out, "Number of samples:", len(state.Samples))
		return nil
	case args[0] == "create":
		return createSamples(state)
	case args[0] == "list":
		for _, sample := range state.Samples {
			path, _ := state.Mapper.GetPath(sample.ID)
			fmt.Fprintf(state.Out, "  %s %v %s\n", sample.RGB, sample.Lab, path)
		}
		return nil
	default:
		return ErrCmdSyntaxErr
	}
}

// createPalette sequences the samples, they're created if required.
func createPalette(state *ExecutorState) error {
	metric, metricErr := state.GetMetric()
	if metricErr != nil {
		return metricErr
	}
	if state.Samples == nil {
		if err := createSamples(state); err != nil {
			return err
		}
	}
	fmt.Fprintf(state.Out, "Sequencing %d samples with metric %s\n", len(state.Samples), state.Metric)
	start := time.Now()
	sequencer := NewPaletteSequencer(metric, state.NumRoutines)
	palette := sequencer.Sequence(state.Samples, state.progress("Palette", len(state.Samples)))
	state.Palette = palette
	state.PaletteID = uuid.New().String()
	state.Assignment = nil
	if state.Verbose {
		fmt.Fprintln(state.Out, "Sequenced palette in", time.Since(start))
		fmt.Fprintf(state.Out, "Chain length: %.2f\n", palette.ChainLength(metric))
	}
	return nil
}

func savePalette(state *ExecutorState, path string) error {
	if state.Palette == nil {
		return errors.New("No palette computed, use \"palette create\" or \"palette load\"")
	}
	controller, createErr := CreatePaletteFSController(state.Palette, state.Mapper, state.Metric, state.PaletteID)
	if createErr != nil {
		return createErr
	}
	if err := controller.WriteFile(path); err != nil {
		return err
	}
	fmt.Fprintln(state.Out, "Palette saved to", path)
	return nil
}

func loadPalette(state *ExecutorState, path string) error {
	var controller PaletteFSController
	if err := controller.ReadFile(path); err != nil {
		return err
	}
	if additional := controller.AdditionalEntries(state.Mapper); len(additional) > 0 {
		fmt.Fprintln(state.Out, "Ignoring", len(additional), "images that are no longer in the storage")
		controller.Remove(additional)
	}
	if missing := controller.MissingEntries(state.Mapper); len(missing) > 0 {
		return fmt.Errorf("Palette file contains no entry for %d images in the storage, use \"palette create\"", len(missing))
	}
	palette, paletteErr := controller.ToPalette(state.Mapper)
	if paletteErr != nil {
		return paletteErr
	}
	if controller.Metric != "" && controller.Metric != state.Metric {
		fmt.Fprintf(state.Out, "Palette was sequenced with metric %s, switching metric\n", controller.Metric)
		state.Metric = controller.Metric
	}
	state.Samples = palette.Samples()
	state.Palette = palette
	state.PaletteID = controller.ID
	state.Assignment = nil
	fmt.Fprintln(state.Out, "Loaded palette with", palette.Len(), "entries")
	return nil
}

// PaletteCommand creates, saves and loads the ordered palette.
func PaletteCommand(state *ExecutorState, args ...string) error {
	switch {
	case len(args) == 0:
		if state.Palette == nil {
			fmt.Fprintln(state.Out, "No palette")
		} else {
			fmt.Fprintf(state.Out, "Palette %s with %d entries\n", state.PaletteID, state.Palette.Len())
		}
		return nil
	case args[0] == "create":
		return createPalette(state)
	case args[0] == "save" && len(args) == 2:
		path, pathErr := state.GetPath(args[1])
		if pathErr != nil {
			return pathErr
		}
		return savePalette(state, path)
	case args[0] == "load" && len(args) == 2:
		path, pathErr := state.GetPath(args[1])
		if pathErr != nil {
			return pathErr
		}
		return loadPalette(state, path)
	case args[0] == "cached":
		// load if possible, otherwise create and save
		var path string
		if len(args) > 1 {
			var pathErr error
			if path, pathErr = state.GetPath(args[1]); pathErr != nil {
				return pathErr
			}
		} else {
			if state.StorageDir == "" {
				return errors.New("No images in storage, use \"storage load\"")
			}
			path = filepath.Join(state.StorageDir, PaletteFileName(state.Metric, "json.zst"))
		}
		if _, statErr := os.Stat(path); statErr == nil {
			loadErr := loadPalette(state, path)
			if loadErr == nil {
				return nil
			}
			fmt.Fprintln(state.Out, "Can't use cached palette:", loadErr)
		}
		if err := createPalette(state); err != nil {
			return err
		}
		return savePalette(state, path)
	default:
		return ErrCmdSyntaxErr
	}
}

// AssignmentCommand saves and loads the last assignment.
func AssignmentCommand(state *ExecutorState, args ...string) error {
	switch {
	case len(args) == 0:
		if state.Assignment == nil {
			fmt.Fprintln(state.Out, "No assignment")
		} else {
			fmt.Fprintln(state.Out, "Assignment with", state.Assignment.Len(), "tiles")
		}
		return nil
	case len(args) != 2:
		return ErrCmdSyntaxErr
	}
	path, pathErr := state.GetPath(args[1])
	if pathErr != nil {
		return pathErr
	}
	switch args[0] {
	case "save":
		if state.Assignment == nil {
			return errors.New("No assignment computed, use \"mosaic\"")
		}
		controller, createErr := CreateAssignmentFSController(state.Assignment,
			state.Mapper, state.PaletteID, state.Search)
		if createErr != nil {
			return createErr
		}
		if err := controller.WriteFile(path); err != nil {
			return err
		}
		fmt.Fprintln(state.Out, "Assignment saved to", path)
		return nil
	case "load":
		if state.Palette == nil {
			return errors.New("No palette computed, use \"palette create\" or \"palette load\"")
		}
		var controller AssignmentFSController
		if err := controller.ReadFile(path); err != nil {
			return err
		}
		if controller.PaletteID != state.PaletteID {
			return fmt.Errorf("Assignment was computed with palette %s, current palette is %s",
				controller.PaletteID, state.PaletteID)
		}
		assignment, assignmentErr := controller.ToAssignment(state.Mapper)
		if assignmentErr != nil {
			return assignmentErr
		}
		state.Assignment = assignment
		fmt.Fprintln(state.Out, "Loaded assignment with", assignment.Len(), "tiles")
		return nil
	default:
		return ErrCmdSyntaxErr
	}
}

// SurveyCommand prints a summary of the EXIF data of all images in the
// storage or in the given directory (scanned recursively).
func SurveyCommand(state *ExecutorState, args ...string) error {
	mapper := state.Mapper
	if len(args) > 0 {
		dir, pathErr := state.GetPath(args[0])
		if pathErr != nil {
			return pathErr
		}
		mapper = NewFSMapper()
		if err := mapper.Load(dir, true, CommonFormats); err != nil {
			return err
		}
	}
	if mapper.Len() == 0 {
		return errors.New("No images to survey")
	}
	res := SurveyDataset(mapper, state.NumRoutines, state.progress("Survey", mapper.Len()))
	res.WriteReport(state.Out)
	return nil
}

func saveImage(file string, img image.Image, jpgQuality int) error {
	if _, formatErr := imaging.FormatFromFilename(file); formatErr != nil {
		return fmt.Errorf("Unsupported file type: %s", filepath.Ext(file))
	}
	return errors.Wrap(imaging.Save(img, file, imaging.JPEGQuality(jpgQuality)), file)
}

// mosaicDimensions computes the size of the mosaic given the size of the
// query image and the optional dimension argument.
func mosaicDimensions(queryWidth, queryHeight int, dimension string) (int, int, error) {
	if dimension == "" {
		return queryWidth, queryHeight, nil
	}
	mosaicWidth, mosaicHeight, mosaicParseErr := ParseDimensionsEmpty(dimension)
	if mosaicParseErr != nil {
		return -1, -1, mosaicParseErr
	}
	// -1 marks an omitted side
	switch {
	case mosaicWidth < 0 && mosaicHeight < 0:
		mosaicWidth, mosaicHeight = queryWidth, queryHeight
	case mosaicWidth < 0:
		mosaicWidth = KeepRatioWidth(queryWidth, queryHeight, mosaicHeight)
	case mosaicHeight < 0:
		mosaicHeight = KeepRatioHeight(queryWidth, queryHeight, mosaicWidth)
	}
	if mosaicWidth <= 0 || mosaicHeight <= 0 {
		return -1, -1, fmt.Errorf("Mosaic image would be empty, dimensions %dx%d", mosaicWidth, mosaicHeight)
	}
	return mosaicWidth, mosaicHeight, nil
}

// MosaicCommand implements "mosaic <in> <out> <tiles> [dimension]": the
// target image in is divided into tiles, each tile gets an image from the
// palette and the result is written to out.
func MosaicCommand(state *ExecutorState, args ...string) error {
	if len(args) < 3 || len(args) > 4 {
		return ErrCmdSyntaxErr
	}
	if state.Palette == nil {
		return errors.New("No palette computed, use \"palette create\" or \"palette load\"")
	}
	totalStart := time.Now()
	outPath, outPathErr := state.GetPath(args[1])
	if outPathErr != nil {
		return outPathErr
	}
	if _, formatErr := imaging.FormatFromFilename(outPath); formatErr != nil {
		return fmt.Errorf("Unsupported output file %s", args[1])
	}
	tilesX, tilesY, tilesParseErr := ParseDimensions(args[2])
	if tilesParseErr != nil {
		return ErrCmdSyntaxErr
	}
	inPath, inPathErr := state.GetPath(args[0])
	if inPathErr != nil {
		return inPathErr
	}
	metric, metricErr := state.GetMetric()
	if metricErr != nil {
		return metricErr
	}
	strategy, ok := GetResizeStrategy(state.Resize)
	if !ok {
		return fmt.Errorf("Unknown resize strategy \"%s\"", state.Resize)
	}

	if state.Verbose {
		fmt.Fprintln(state.Out, "Target image:", inPath)
	}
	img, openErr := imaging.Open(inPath, imaging.AutoOrientation(true))
	if openErr != nil {
		return errors.Wrap(openErr, inPath)
	}
	queryBounds := img.Bounds()
	if queryBounds.Empty() {
		return fmt.Errorf("%s: image is empty", inPath)
	}
	dimension := ""
	if len(args) > 3 {
		dimension = args[3]
	}
	mosaicWidth, mosaicHeight, dimErr := mosaicDimensions(queryBounds.Dx(), queryBounds.Dy(), dimension)
	if dimErr != nil {
		return dimErr
	}
	resizer := NewNfntResizer(state.InterP)
	target := PrepareTarget(img, mosaicWidth, mosaicHeight, resizer)
	divider := NewFixedNumDivider(tilesX, tilesY, state.CutMosaic)
	dist := divider.Divide(target.Bounds())
	tiles, tilesErr := ComputeTiles(target, dist, state.NumRoutines)
	if tilesErr != nil {
		return tilesErr
	}

	start := time.Now()
	assignment := state.Assignment
	if assignment != nil && assignment.Matches(tiles) {
		fmt.Fprintln(state.Out, "Reusing assignment")
	} else {
		if state.Verbose {
			fmt.Fprintln(state.Out, "Selecting database images for", len(tiles), "tiles")
		}
		index, indexErr := NewColorIndex(state.Search, state.Palette, metric, state.Threshold, state.Fallback)
		if indexErr != nil {
			return indexErr
		}
		assigner := NewMosaicAssigner(index, state.NumRoutines)
		var assignErr error
		assignment, assignErr = assigner.Assign(tiles, state.progress("Tiles", len(tiles)))
		if assignErr != nil {
			return assignErr
		}
		state.Assignment = assignment
		if state.Verbose {
			fmt.Fprintln(state.Out, "Selection took", time.Since(start))
		}
	}

	if state.Verbose {
		fmt.Fprintln(state.Out, "Composing", assignment.Len(), "tiles")
	}
	start = time.Now()
	composer := NewComposer(state.ImgStorage, state.NumRoutines)
	composer.Resizer = resizer
	composer.Strategy = strategy
	if state.CacheSize > 0 {
		composer.CacheSize = state.CacheSize
	}
	mosaic, missing := composer.Compose(assignment, state.progress("Compose", assignment.Len()))
	if missing > 0 {
		fmt.Fprintln(state.Out, missing, "images couldn't be read, used placeholder instead")
	}
	if state.Verbose {
		fmt.Fprintln(state.Out, "Composition of mosaic took", time.Since(start))
	}
	if writeErr := saveImage(outPath, mosaic, state.JPGQuality); writeErr != nil {
		return writeErr
	}
	fmt.Fprintln(state.Out, "Wrote mosaic to", outPath)
	if state.Verbose {
		fmt.Fprintln(state.Out, "Total creation time:", time.Since(totalStart))
	}
	return nil
}

// HelpCommand prints the usage of all commands or the description of a
// single command.
func HelpCommand(state *ExecutorState, args ...string) error {
	if len(args) == 1 {
		cmd, has := DefaultCommands[args[0]]
		if !has {
			return fmt.Errorf("Unknown command \"%s\"", args[0])
		}
		fmt.Fprintln(state.Out, "Usage:", cmd.Usage)
		fmt.Fprintln(state.Out)
		fmt.Fprintln(state.Out, cmd.Description)
		return nil
	}
	names := make([]string, 0, len(DefaultCommands))
	for name := range DefaultCommands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(state.Out, "  %s\n", DefaultCommands[name].Usage)
	}
	return nil
}

func init() {
	DefaultCommands = make(CommandMap)
	DefaultCommands["pwd"] = Command{
		Exec:        PwdCommand,
		Usage:       "pwd",
		Description: "Prints the working directory.",
	}
	DefaultCommands["stats"] = Command{
		Exec:        StatsCommand,
		Usage:       "stats [variable...]",
		Description: "Prints the variables that can be changed with \"set\" (all if none is given).",
	}
	DefaultCommands["set"] = Command{
		Exec:  SetVarCommand,
		Usage: "set <variable> <value>",
		Description: "Set value for a variable. Variables are listed by \"stats\"." +
			" Valid metrics: " + strings.Join(GetDistanceMetricNames(), " ") +
			". Valid search policies: bisect linear kdtree.",
	}
	DefaultCommands["cd"] = Command{
		Exec:        CdCommand,
		Usage:       "cd <dir>",
		Description: "Changes the working directory, relative paths in other commands are resolved against it.",
	}
	DefaultCommands["storage"] = Command{
		Exec:  ImageStorageCommand,
		Usage: "storage [list] or storage load [dir] [recursive]",
		Description: "Without arguments prints the number of images in the storage," +
			" \"list\" prints all their paths.\n\n" +
			"\"load\" replaces the storage by the images found in dir (default is the" +
			" working directory), pass true as third argument to include" +
			" subdirectories. Samples, palette and assignment of the old images are" +
			" discarded: run \"palette cached\" or \"palette load\" afterwards.",
	}
	DefaultCommands["samples"] = Command{
		Exec:  SamplesCommand,
		Usage: "samples [create|list]",
		Description: "Computes the average color of each image in the storage." +
			" Images that can't be read are skipped.",
	}
	DefaultCommands["palette"] = Command{
		Exec:  PaletteCommand,
		Usage: "palette create or palette load <file> or palette save <file> or palette cached [file]",
		Description: "Administrates the ordered palette of the storage images.\n\n" +
			"\"create\" orders the samples s.t. neighbours have similar colors" +
			" (samples are computed if required). This takes quadratic time in the" +
			" number of images, so you should save the palette to a file." +
			" Supported files are .json and .gob, optionally compressed by adding .zst" +
			" (e.g. palette.json.zst).\n\n\"cached\" loads the file if it exists" +
			" and matches the storage, otherwise the palette is created and saved." +
			" The default file is stored in the storage directory.",
	}
	DefaultCommands["assignment"] = Command{
		Exec:  AssignmentCommand,
		Usage: "assignment or assignment save <file> or assignment load <file>",
		Description: "Saves or loads the images selected for the tiles of the last" +
			" mosaic. An assignment can only be loaded for the palette it was" +
			" computed with.",
	}
	DefaultCommands["mosaic"] = Command{
		Exec:  MosaicCommand,
		Usage: "mosaic <in> <out> <tiles> [dimension]",
		Description: "Builds a mosaic of the image in and writes it to out, the" +
			" format is derived from the extension of out. tiles is the grid as" +
			" \"COLSxROWS\", e.g. \"30x20\". dimension is the size of the mosaic," +
			" by default the size of in. One side may be left out to keep the aspect" +
			" ratio of in: \"1024x\" or \"x768\".\n\n" +
			"The tiles are matched against the palette with the current search" +
			" policy. If the tiles are the same as in the previous call the" +
			" assignment is reused.\n\nExample: \"mosaic in.jpg out.jpg 20x30 1024x768\".",
	}
	DefaultCommands["survey"] = Command{
		Exec:  SurveyCommand,
		Usage: "survey [dir]",
		Description: "Prints the EXIF orientations, camera models and dates of" +
			" the jpeg images in the storage (or in dir).",
	}
	DefaultCommands["help"] = Command{
		Exec:        HelpCommand,
		Usage:       "help [command]",
		Description: "Lists all commands or describes a single command.",
	}
}

// writeCmdError reports a failed command to w.
func writeCmdError(w io.Writer, err error, cmd Command) {
	if errors.Is(err, ErrCmdSyntaxErr) {
		fmt.Fprintln(w, "Invalid syntax, usage:", cmd.Usage)
		return
	}
	fmt.Fprintln(w, "Command failed:", err.Error())
}

// ReplHandler is the interactive CommandHandler: it reads from stdin, prints
// a prompt and keeps going after errors.
type ReplHandler struct{}

// Init returns a state reading from stdin.
func (h ReplHandler) Init() *ExecutorState {
	return NewExecutorState(os.Stdin, os.Stdout)
}

func (h ReplHandler) Start(s *ExecutorState) {
	fmt.Fprintln(s.Out, "colormosaic interpreter, type \"help\" for a list of commands")
	fmt.Fprint(s.Out, ">>> ")
}

func (h ReplHandler) Before(s *ExecutorState) {}

func (h ReplHandler) After(s *ExecutorState) {
	fmt.Fprint(s.Out, ">>> ")
}

func (h ReplHandler) OnParseErr(s *ExecutorState, err error) bool {
	fmt.Fprintln(s.Out, "Syntax error:", err)
	return true
}

func (h ReplHandler) OnInvalidCmd(s *ExecutorState, cmd string) bool {
	fmt.Fprintf(s.Out, "Unknown command \"%s\"\n", cmd)
	return true
}

func (h ReplHandler) OnSuccess(s *ExecutorState, cmd Command) {}

func (h ReplHandler) OnError(s *ExecutorState, err error, cmd Command) bool {
	writeCmdError(s.Out, err, cmd)
	return true
}

func (h ReplHandler) OnScanErr(s *ExecutorState, err error) {
	fmt.Fprintln(s.Out, "Reading input failed:", err.Error())
}

// ScriptHandler runs the commands from Source and stops at the first error.
// Errors are written to stderr, the first one is returned by Err.
type ScriptHandler struct {
	Source io.Reader
	err    error
}

// NewScriptHandler returns a handler for the script in source.
func NewScriptHandler(source io.Reader) *ScriptHandler {
	return &ScriptHandler{Source: source}
}

// Err returns the error that stopped the script, nil if all commands
// succeeded.
func (h *ScriptHandler) Err() error {
	return h.err
}

func (h *ScriptHandler) fail(err error) {
	if h.err == nil {
		h.err = err
	}
}

// Init returns a state reading from Source and writing to stdout.
func (h *ScriptHandler) Init() *ExecutorState {
	return NewExecutorState(h.Source, os.Stdout)
}

func (h *ScriptHandler) Start(s *ExecutorState) {}

func (h *ScriptHandler) Before(s *ExecutorState) {}

func (h *ScriptHandler) After(s *ExecutorState) {}

func (h *ScriptHandler) OnParseErr(s *ExecutorState, err error) bool {
	fmt.Fprintln(os.Stderr, "Syntax error:", err)
	h.fail(err)
	return false
}

func (h *ScriptHandler) OnInvalidCmd(s *ExecutorState, cmd string) bool {
	fmt.Fprintf(os.Stderr, "Unknown command \"%s\"\n", cmd)
	h.fail(fmt.Errorf("Unknown command \"%s\"", cmd))
	return false
}

func (h *ScriptHandler) OnSuccess(s *ExecutorState, cmd Command) {}

func (h *ScriptHandler) OnError(s *ExecutorState, err error, cmd Command) bool {
	writeCmdError(os.Stderr, err, cmd)
	if errors.Is(err, ErrCmdSyntaxErr) {
		err = fmt.Errorf("%w, usage: %s", err, cmd.Usage)
	}
	h.fail(err)
	return false
}

func (h *ScriptHandler) OnScanErr(s *ExecutorState, err error) {
	fmt.Fprintln(os.Stderr, "Reading script failed:", err.Error())
	h.fail(err)
}

// ScriptHandlerFromCmds returns a ScriptHandler running lines.
func ScriptHandlerFromCmds(lines []string) *ScriptHandler {
	return NewScriptHandler(ReaderFromCmdLines(lines))
}

// ReaderFromCmdLines joins lines to a script.
func ReaderFromCmdLines(lines []string) io.Reader {
	return strings.NewReader(strings.Join(lines, "\n"))
}

// placeholder matches the script arguments $1, $2, ...
var placeholder = regexp.MustCompile(`\$([0-9]+)`)

// substitute replaces each $i in line by args[i-1]. Placeholders without an
// argument are removed, so scripts can have optional arguments.
func substitute(line string, args []string) string {
	return placeholder.ReplaceAllStringFunc(line, func(m string) string {
		i, err := strconv.Atoi(m[1:])
		if err != nil || i < 1 || i > len(args) {
			return ""
		}
		return args[i-1]
	})
}

// Parameterized reads the script from r and substitutes the placeholders $i
// by args, see ParameterizedFromStrings.
func Parameterized(r io.Reader, args ...string) (io.Reader, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return ParameterizedFromStrings(lines, args...), nil
}

// ParameterizedFromStrings returns a script of the given commands in which
// $1 is replaced by the first argument, $2 by the second and so on. For
// example "palette load $1" loads the palette from the file given as first
// argument.
func ParameterizedFromStrings(commands []string, args ...string) io.Reader {
	lines := make([]string, len(commands))
	for i, line := range commands {
		lines[i] = substitute(line, args)
	}
	return ReaderFromCmdLines(lines)
}
