// Package pipeline runs the load → render steps behind every geokit chart.
//
// The CLI `plot` commands and the HTTP API both go through [Runner], so
// input handling, defaults and artifact caching behave the same everywhere.
//
// # Stages
//
//  1. Load: read the discharge ensemble or the data table named by Options
//  2. Render: build the chart and encode it in every requested format
//
// Rendered bytes are cached under a key derived from the input file
// contents and every option that changes the output, so rerunning a plot
// with unchanged inputs is a cache read.
//
// # Usage
//
//	runner := pipeline.NewRunner(c, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Chart:     pipeline.ChartFDC,
//	    Discharge: "data/all_ensemble_q.csv",
//	    Formats:   []string{"png", "pdf"},
//	})
//	if err != nil {
//	    return err
//	}
//	png := result.Artifacts["png"]
package pipeline

import (
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/geokit/pkg/cache"
	"github.com/matzehuels/geokit/pkg/chart"
	"github.com/matzehuels/geokit/pkg/hydro"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultWidth is the default figure width in inches.
	DefaultWidth = 20.0

	// DefaultHeight is the default figure height in inches.
	DefaultHeight = 5.0

	// DefaultDPI is the default raster resolution.
	DefaultDPI = chart.DefaultDPI

	// DefaultBins is the default histogram and density bin count.
	DefaultBins = 20

	// DefaultTTL is how long rendered artifacts stay cached.
	DefaultTTL = 7 * 24 * time.Hour
)

// Chart names.
const (
	ChartHydrograph = "hydrograph"
	ChartFDC        = "fdc"
	ChartHistogram  = "hist"
	ChartScatter    = "scatter"
	ChartDensity    = "density"
)

// Charts lists the supported chart names.
var Charts = []string{ChartHydrograph, ChartFDC, ChartHistogram, ChartScatter, ChartDensity}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for one chart run.
// This struct supports JSON serialization for API requests.
type Options struct {
	Chart string `json:"chart"`

	// Ensemble input (hydrograph, fdc)
	Discharge string   `json:"discharge,omitempty"`
	Params    string   `json:"params,omitempty"`
	Start     string   `json:"start,omitempty"` // YYYY-MM-DD, inclusive
	End       string   `json:"end,omitempty"`   // YYYY-MM-DD, exclusive
	Prefix    string   `json:"prefix,omitempty"`
	Members   bool     `json:"members,omitempty"` // draw individual members
	YMax      float64  `json:"ymax,omitempty"`
	Ticks     float64  `json:"ticks,omitempty"` // hydrograph x tick spacing
	Fields    []string `json:"fields,omitempty"`

	// Table input (hist, scatter, density)
	Input      string `json:"input,omitempty"`
	XCol       string `json:"x,omitempty"`
	YCol       string `json:"y,omitempty"`
	Bins       int    `json:"bins,omitempty"`
	Regression bool   `json:"regression,omitempty"`

	// Output
	Formats []string `json:"formats,omitempty"`
	Width   float64  `json:"width,omitempty"`  // inches
	Height  float64  `json:"height,omitempty"` // inches
	DPI     int      `json:"dpi,omitempty"`
	Refresh bool     `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// InputHash is the content hash of the input files.
	InputHash string

	// Fit holds regression scores for scatter and density charts.
	Fit *hydro.FitStats

	// Stats contains timing and size information.
	Stats Stats

	// CacheHit reports whether every artifact came from the cache.
	CacheHit bool
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Records    int
	LoadTime   time.Duration
	RenderTime time.Duration
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateChart checks that a chart name is supported.
func ValidateChart(name string) error {
	if !slices.Contains(Charts, name) {
		return fmt.Errorf("invalid chart: %q (must be one of: %v)", name, Charts)
	}
	return nil
}

// ValidateFormat checks that a format is supported by the chart package.
func ValidateFormat(format string) error {
	if !slices.Contains(chart.Formats, format) {
		return fmt.Errorf("invalid format: %q (must be one of: %v)", format, chart.Formats)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults.
// Calling it again has no further effect.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := ValidateChart(o.Chart); err != nil {
		return err
	}
	if o.IsEnsemble() {
		if o.Discharge == "" {
			return fmt.Errorf("%s chart needs a discharge file", o.Chart)
		}
	} else {
		if o.Input == "" {
			return fmt.Errorf("%s chart needs an input table", o.Chart)
		}
		if o.XCol == "" {
			return fmt.Errorf("%s chart needs an x column", o.Chart)
		}
		if o.Chart != ChartHistogram && o.YCol == "" {
			return fmt.Errorf("%s chart needs a y column", o.Chart)
		}
	}
	if _, err := o.loadOptions(); err != nil {
		return err
	}

	o.SetRenderDefaults()
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// SetRenderDefaults fills output settings left at zero.
func (o *Options) SetRenderDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{"png"}
	}
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Height == 0 {
		o.Height = DefaultHeight
	}
	if o.DPI == 0 {
		o.DPI = DefaultDPI
	}
	if o.Bins == 0 {
		o.Bins = DefaultBins
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// IsEnsemble reports whether the chart reads a discharge ensemble.
func (o *Options) IsEnsemble() bool {
	return o.Chart == ChartHydrograph || o.Chart == ChartFDC
}

// loadOptions converts the date and field settings for hydro.ReadEnsemble.
func (o *Options) loadOptions() (hydro.LoadOptions, error) {
	lo := hydro.DefaultLoadOptions()
	if o.Start != "" {
		t, err := hydro.ParseTime(o.Start)
		if err != nil {
			return lo, fmt.Errorf("invalid start: %w", err)
		}
		lo.Start = t
	}
	if o.End != "" {
		t, err := hydro.ParseTime(o.End)
		if err != nil {
			return lo, fmt.Errorf("invalid end: %w", err)
		}
		lo.End = t
	}
	if o.Prefix != "" {
		lo.Prefix = o.Prefix
	}
	if len(o.Fields) > 0 {
		lo.Fields = o.Fields
	}
	return lo, nil
}

// ArtifactKeyOpts returns cache key options for one output format.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Chart:  o.Chart,
		Format: format,
		Width:  o.Width,
		Height: o.Height,
		DPI:    o.DPI,
		Options: map[string]string{
			"start":      o.Start,
			"end":        o.End,
			"prefix":     o.Prefix,
			"members":    fmt.Sprint(o.Members),
			"ymax":       fmt.Sprint(o.YMax),
			"ticks":      fmt.Sprint(o.Ticks),
			"x":          o.XCol,
			"y":          o.YCol,
			"bins":       fmt.Sprint(o.Bins),
			"regression": fmt.Sprint(o.Regression),
		},
	}
}
