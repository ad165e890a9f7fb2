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

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/FabianWe/colormosaic"
	"github.com/alecthomas/kong"
	homedir "github.com/mitchellh/go-homedir"
	log "github.com/sirupsen/logrus"
)

// configFile contains default values for the global flags, it's ignored if
// it doesn't exist.
const configFile = "~/.config/colormosaic.json"

// Globals are the flags shared by all commands.
type Globals struct {
	Routines  int     `help:"Number of go routines, 0 means twice the number of CPUs." default:"0"`
	LogLevel  string  `help:"Log level." enum:"debug,info,warn,error" default:"info"`
	Verbose   bool    `help:"Print progress and timing information." default:"true" negatable:""`
	Metric    string  `help:"Distance metric: ciede2000, cie94 or cie76." default:"ciede2000"`
	Search    string  `help:"Search policy: bisect, linear or kdtree." default:"bisect"`
	Threshold float64 `help:"Early exit threshold of the bisection search." default:"2.0"`
	Fallback  float64 `help:"Scan all images if the bisection result is at least this far away, 0 disables it." default:"0"`
	Resize    string  `help:"Resize strategy for tiles." enum:"force,fill" default:"force"`
}

// configuredHandler applies the globals to the initial state of the wrapped
// handler.
type configuredHandler struct {
	colormosaic.CommandHandler
	globals *Globals
}

func (h configuredHandler) Init() *colormosaic.ExecutorState {
	state := h.CommandHandler.Init()
	if h.globals.Routines > 0 {
		state.NumRoutines = h.globals.Routines
	}
	state.Verbose = h.globals.Verbose
	state.Metric = strings.ToLower(h.globals.Metric)
	if policy, err := colormosaic.ParseSearchPolicy(h.globals.Search); err == nil {
		state.Search = policy
	}
	state.Threshold = h.globals.Threshold
	state.Fallback = h.globals.Fallback
	state.Resize = h.globals.Resize
	return state
}

func (g *Globals) validate() error {
	if _, ok := colormosaic.GetDistanceMetric(g.Metric); !ok {
		return fmt.Errorf("Unknown metric \"%s\", valid metrics: %s", g.Metric,
			strings.Join(colormosaic.GetDistanceMetricNames(), ", "))
	}
	if _, err := colormosaic.ParseSearchPolicy(g.Search); err != nil {
		return err
	}
	if g.Threshold < 0 || g.Fallback < 0 {
		return fmt.Errorf("Threshold and fallback must be >= 0")
	}
	return nil
}

func (g *Globals) execute(handler colormosaic.CommandHandler) error {
	if err := g.validate(); err != nil {
		return err
	}
	colormosaic.Execute(configuredHandler{CommandHandler: handler, globals: g}, colormosaic.DefaultCommands)
	if script, ok := handler.(*colormosaic.ScriptHandler); ok {
		return script.Err()
	}
	return nil
}

// ReplCmd starts the interactive interpreter.
type ReplCmd struct{}

func (c *ReplCmd) Run(globals *Globals) error {
	return globals.execute(colormosaic.ReplHandler{})
}

// ScriptCmd runs a script file or one of the predefined scripts.
type ScriptCmd struct {
	Script string   `arg:"" help:"Script file or name of a predefined script (RunSimple, RunCached, CompareMetrics, CompareSearch)."`
	Args   []string `arg:"" optional:"" help:"Values for the placeholders $1, $2, ..."`
}

func (c *ScriptCmd) Run(globals *Globals) error {
	var source io.Reader
	if code, has := colormosaic.PredefinedScripts[c.Script]; has {
		source = strings.NewReader(code)
	} else {
		path, pathErr := homedir.Expand(c.Script)
		if pathErr != nil {
			return pathErr
		}
		f, openErr := os.Open(path)
		if openErr != nil {
			return openErr
		}
		defer f.Close()
		source = f
	}
	parameterized, err := colormosaic.Parameterized(source, c.Args...)
	if err != nil {
		return err
	}
	return globals.execute(colormosaic.NewScriptHandler(parameterized))
}

// quoteArg quotes s for the command parser s.t. paths may contain spaces.
func quoteArg(s string) string {
	return "\"" + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + "\""
}

// RunCmd creates a single mosaic.
type RunCmd struct {
	Dir       string `arg:"" help:"Directory containing the database images." type:"existingdir"`
	In        string `arg:"" help:"Query image." type:"existingfile"`
	Out       string `arg:"" help:"Output file."`
	Tiles     string `arg:"" help:"Number of tiles, for example 30x20."`
	Dimension string `arg:"" optional:"" help:"Size of the mosaic, for example 1024x768, 1024x or x768."`
	Cached    bool   `help:"Store the palette in the image directory and reuse it in the next run."`
}

func (c *RunCmd) Run(globals *Globals) error {
	script := colormosaic.RunSimple
	if c.Cached {
		script = colormosaic.RunCached
	}
	source := colormosaic.ParameterizedFromStrings(strings.Split(script, "\n"),
		quoteArg(c.Dir), quoteArg(c.In), quoteArg(c.Out), c.Tiles, c.Dimension)
	return globals.execute(colormosaic.NewScriptHandler(source))
}

// SurveyCmd prints the EXIF summary of a directory.
type SurveyCmd struct {
	Dir string `arg:"" help:"Directory to scan recursively." type:"existingdir"`
}

func (c *SurveyCmd) Run(globals *Globals) error {
	source := colormosaic.ParameterizedFromStrings([]string{"survey $1"}, quoteArg(c.Dir))
	return globals.execute(colormosaic.NewScriptHandler(source))
}

var cli struct {
	Globals

	Repl   ReplCmd   `cmd:"" default:"1" help:"Start the interactive interpreter."`
	Script ScriptCmd `cmd:"" help:"Run a script."`
	Run    RunCmd    `cmd:"" help:"Create a mosaic."`
	Survey SurveyCmd `cmd:"" help:"Summarize the EXIF data of a dataset."`
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("mosaic"),
		kong.Description("Create photo mosaics from a collection of images."),
		kong.UsageOnError(),
		kong.Configuration(kong.JSON, configFile),
	)
	level, levelErr := log.ParseLevel(cli.LogLevel)
	if levelErr != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	ctx.FatalIfErrorf(ctx.Run(&cli.Globals))
}
