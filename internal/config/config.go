package config

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/samstevens127/MOLLER-tracking/internal/align"
	"github.com/samstevens127/MOLLER-tracking/internal/fit"
	"github.com/samstevens127/MOLLER-tracking/internal/fsutil"
	"github.com/samstevens127/MOLLER-tracking/internal/gem"
	"github.com/samstevens127/MOLLER-tracking/internal/security"
)

// DefaultConfigPath is where gem-align looks for its configuration when no
// -config flag is given.
const DefaultConfigPath = "config.toml"

// ExampleConfigPath is the annotated example shipped with the repository.
const ExampleConfigPath = "config/gem-align.example.toml"

const maxFileSize = 1 * 1024 * 1024 // 1MB

// Config is the root of config.toml. Every scalar is a pointer so that an
// omitted key falls back to the default reported by its Get* accessor.
type Config struct {
	DataFile  DataFile  `toml:"data_file"`
	Geometry  Geometry  `toml:"geometry"`
	Alignment Alignment `toml:"alignment"`
	Output    Output    `toml:"output"`
	Store     Store     `toml:"store"`
}

// DataFile locates the three per-plane hit files.
type DataFile struct {
	DataPath *string `toml:"data_path"`
	Filename *string `toml:"filename"` // stem; planes read <data_path>/<filename>_x{n}y{n}.txt
}

// Geometry holds the detector constants.
type Geometry struct {
	Depths     []float64 `toml:"depths"`      // plane z positions in mm, upstream first
	StripPitch *float64  `toml:"strip_pitch"` // mm per readout strip
	SVDFloor   *float64  `toml:"svd_floor"`
}

// Alignment holds the descent constants.
type Alignment struct {
	TargetPlane     *int     `toml:"target_plane"` // zero-based plane index
	LearningRate    *float64 `toml:"learning_rate"`
	Tolerance       *float64 `toml:"tolerance"`
	MaxIterations   *int     `toml:"max_iterations"`
	Epsilon         *float64 `toml:"epsilon"`
	ProgressEvery   *int     `toml:"progress_every"`
	ResidualWorkers *int     `toml:"residual_workers"`
}

// Output names the tables and plots written after alignment.
type Output struct {
	Dir            *string  `toml:"dir"`
	ResidualsFile  *string  `toml:"residuals_file"`
	AnglesFile     *string  `toml:"angles_file"`
	CorrectedFile  *string  `toml:"corrected_file"`
	Plots          *bool    `toml:"plots"`
	HistogramRange *float64 `toml:"histogram_range"` // half width in mm
	HistogramBins  *int     `toml:"histogram_bins"`
}

// Store configures the optional run ledger.
type Store struct {
	Path *string `toml:"path"` // empty disables the ledger
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// LoadConfig reads and validates a TOML configuration from the OS filesystem.
func LoadConfig(path string) (*Config, error) {
	return LoadConfigFS(fsutil.OSFileSystem{}, path)
}

// LoadConfigFS reads and validates a TOML configuration. The file must have a
// .toml extension and be under 1MB. Keys that do not map onto a field are
// rejected so that typos do not silently fall back to defaults.
func LoadConfigFS(fsys fsutil.FileSystem, path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".toml" {
		return nil, fmt.Errorf("config file must have .toml extension, got %q", ext)
	}

	info, err := fsys.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := fsys.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config TOML: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the values that are set. The input filename is the only
// required key.
func (c *Config) Validate() error {
	if c.DataFile.GetFilename() == "" {
		return fmt.Errorf("data_file.filename is required")
	}
	if err := security.ValidateFileStem(c.DataFile.GetFilename()); err != nil {
		return fmt.Errorf("data_file.filename: %w", err)
	}

	if c.Geometry.Depths != nil {
		if len(c.Geometry.Depths) != gem.NumPlanes {
			return fmt.Errorf("geometry.depths must have %d entries, got %d", gem.NumPlanes, len(c.Geometry.Depths))
		}
		if err := c.Geometry.GetDepths().Validate(); err != nil {
			return fmt.Errorf("geometry.depths: %w", err)
		}
	}
	if c.Geometry.StripPitch != nil && !positive(*c.Geometry.StripPitch) {
		return fmt.Errorf("geometry.strip_pitch must be positive, got %v", *c.Geometry.StripPitch)
	}

	if err := c.AlignParams().Validate(); err != nil {
		return fmt.Errorf("alignment: %w", err)
	}
	if c.Alignment.ResidualWorkers != nil && *c.Alignment.ResidualWorkers < 1 {
		return fmt.Errorf("alignment.residual_workers must be at least 1, got %d", *c.Alignment.ResidualWorkers)
	}

	if c.Output.HistogramRange != nil && !positive(*c.Output.HistogramRange) {
		return fmt.Errorf("output.histogram_range must be positive, got %v", *c.Output.HistogramRange)
	}
	if c.Output.HistogramBins != nil && *c.Output.HistogramBins < 1 {
		return fmt.Errorf("output.histogram_bins must be at least 1, got %d", *c.Output.HistogramBins)
	}
	for key, name := range map[string]string{
		"residuals_file": c.Output.GetResidualsFile(),
		"angles_file":    c.Output.GetAnglesFile(),
		"corrected_file": c.Output.GetCorrectedFile(),
	} {
		if name == "" {
			return fmt.Errorf("output.%s must not be empty", key)
		}
		if err := security.ValidatePathWithinDirectory(c.Output.Path(name), c.Output.GetDir()); err != nil {
			return fmt.Errorf("output.%s: %w", key, err)
		}
	}
	return nil
}

func positive(v float64) bool { return v > 0 && !math.IsInf(v, 0) }

// AlignParams builds the optimizer parameters, filling unset keys with the
// reference defaults.
func (c *Config) AlignParams() align.Params {
	return align.Params{
		Target:        gem.Plane(c.Alignment.GetTargetPlane()),
		LearningRate:  c.Alignment.GetLearningRate(),
		Tolerance:     c.Alignment.GetTolerance(),
		MaxIterations: c.Alignment.GetMaxIterations(),
		Epsilon:       c.Alignment.GetEpsilon(),
		SVDFloor:      c.Geometry.GetSVDFloor(),
		ProgressEvery: c.Alignment.GetProgressEvery(),
	}
}

// PlaneFiles returns the hit file path of each plane, upstream first.
func (d *DataFile) PlaneFiles() [gem.NumPlanes]string {
	var out [gem.NumPlanes]string
	for i := range out {
		out[i] = filepath.Join(d.GetDataPath(), fmt.Sprintf("%s_x%dy%d.txt", d.GetFilename(), i+1, i+1))
	}
	return out
}

// GetDataPath returns the data_path value or the default.
func (d *DataFile) GetDataPath() string {
	if d.DataPath == nil || *d.DataPath == "" {
		return "."
	}
	return *d.DataPath
}

// GetFilename returns the filename stem; there is no default.
func (d *DataFile) GetFilename() string {
	if d.Filename == nil {
		return ""
	}
	return *d.Filename
}

// GetDepths returns the depths value or the default.
func (g *Geometry) GetDepths() gem.Depths {
	if len(g.Depths) != gem.NumPlanes {
		return gem.DefaultDepths
	}
	var d gem.Depths
	copy(d[:], g.Depths)
	return d
}

// GetStripPitch returns the strip_pitch value or the default.
func (g *Geometry) GetStripPitch() float64 {
	if g.StripPitch == nil {
		return 0.390625
	}
	return *g.StripPitch
}

// GetSVDFloor returns the svd_floor value or the default.
func (g *Geometry) GetSVDFloor() float64 {
	if g.SVDFloor == nil {
		return fit.DefaultSVDFloor
	}
	return *g.SVDFloor
}

// GetTargetPlane returns the target_plane value or the default.
func (a *Alignment) GetTargetPlane() int {
	if a.TargetPlane == nil {
		return int(align.DefaultParams().Target)
	}
	return *a.TargetPlane
}

// GetLearningRate returns the learning_rate value or the default.
func (a *Alignment) GetLearningRate() float64 {
	if a.LearningRate == nil {
		return align.DefaultParams().LearningRate
	}
	return *a.LearningRate
}

// GetTolerance returns the tolerance value or the default.
func (a *Alignment) GetTolerance() float64 {
	if a.Tolerance == nil {
		return align.DefaultParams().Tolerance
	}
	return *a.Tolerance
}

// GetMaxIterations returns the max_iterations value or the default.
func (a *Alignment) GetMaxIterations() int {
	if a.MaxIterations == nil {
		return align.DefaultParams().MaxIterations
	}
	return *a.MaxIterations
}

// GetEpsilon returns the epsilon value or the default.
func (a *Alignment) GetEpsilon() float64 {
	if a.Epsilon == nil {
		return align.DefaultParams().Epsilon
	}
	return *a.Epsilon
}

// GetProgressEvery returns the progress_every value or the default.
func (a *Alignment) GetProgressEvery() int {
	if a.ProgressEvery == nil {
		return align.DefaultParams().ProgressEvery
	}
	return *a.ProgressEvery
}

// GetResidualWorkers returns the residual_workers value or the default.
func (a *Alignment) GetResidualWorkers() int {
	if a.ResidualWorkers == nil {
		return 4
	}
	return *a.ResidualWorkers
}

// GetDir returns the output dir value or the default.
func (o *Output) GetDir() string {
	if o.Dir == nil || *o.Dir == "" {
		return "."
	}
	return *o.Dir
}

// GetResidualsFile returns the residuals_file value or the default.
func (o *Output) GetResidualsFile() string {
	if o.ResidualsFile == nil {
		return "corrected_x_y.txt"
	}
	return *o.ResidualsFile
}

// GetAnglesFile returns the angles_file value or the default.
func (o *Output) GetAnglesFile() string {
	if o.AnglesFile == nil {
		return "angles.txt"
	}
	return *o.AnglesFile
}

// GetCorrectedFile returns the corrected_file value or the default.
func (o *Output) GetCorrectedFile() string {
	if o.CorrectedFile == nil {
		return "corrected_hits.txt"
	}
	return *o.CorrectedFile
}

// GetPlots returns the plots value or the default.
func (o *Output) GetPlots() bool {
	if o.Plots == nil {
		return false
	}
	return *o.Plots
}

// GetHistogramRange returns the histogram_range value or the default.
func (o *Output) GetHistogramRange() float64 {
	if o.HistogramRange == nil {
		return 50
	}
	return *o.HistogramRange
}

// GetHistogramBins returns the histogram_bins value or the default.
func (o *Output) GetHistogramBins() int {
	if o.HistogramBins == nil {
		return 100
	}
	return *o.HistogramBins
}

// Path joins name onto the output directory.
func (o *Output) Path(name string) string {
	return filepath.Join(o.GetDir(), name)
}

// GetPath returns the ledger path; empty means disabled.
func (s *Store) GetPath() string {
	if s.Path == nil {
		return ""
	}
	return *s.Path
}
