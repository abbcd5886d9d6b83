package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/fallsense/internal/classify"
	"github.com/banshee-data/fallsense/internal/cost"
	"github.com/banshee-data/fallsense/internal/keypoints"
	"github.com/banshee-data/fallsense/internal/smoothing"
)

// DefaultConfigPath is the path to the canonical pipeline defaults file.
const DefaultConfigPath = "config/fallsense.defaults.json"

const maxFileSize = 1 * 1024 * 1024 // 1MB

// Config is the root pipeline configuration. Every field is optional; the
// Get* methods supply the built-in defaults for anything left unset, so a
// partial file only overrides what it names.
type Config struct {
	Method        *string  `json:"method,omitempty"`
	TargetRate    *float64 `json:"target_rate,omitempty"`
	WindowSeconds *float64 `json:"window_seconds,omitempty"`
	WarmupSamples *int     `json:"warmup_samples,omitempty"`

	// Thresholds is keyed by method name and merged over the defaults.
	Thresholds map[string]float64 `json:"thresholds,omitempty"`

	AngleWeights  []float64 `json:"angle_weights,omitempty"`
	WindowWeights []float64 `json:"window_weights,omitempty"`

	// Rate policy
	NominalBatchRate *float64 `json:"nominal_batch_rate,omitempty"`
	MinFileRate      *float64 `json:"min_file_rate,omitempty"`
	DefaultLiveRate  *float64 `json:"default_live_rate,omitempty"`

	DegenerateLimit *int     `json:"degenerate_limit,omitempty"`
	DivisionEpsilon *float64 `json:"division_epsilon,omitempty"`

	// Schema replaces the COCO-17 layout when set.
	Schema *keypoints.Schema `json:"schema,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyConfig returns a Config with all fields unset.
func EmptyConfig() *Config {
	return &Config{}
}

// Load reads a Config from a JSON file. The path must have a .json
// extension and the file must be under 1MB.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and its parents. Panics if the file cannot be loaded; intended
// for test setup.
func MustLoadDefaultConfig() *Config {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := Load(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configured values are usable.
func (c *Config) Validate() error {
	if c.Method != nil {
		if _, err := cost.ParseMethod(*c.Method); err != nil {
			return err
		}
	}
	if c.TargetRate != nil && *c.TargetRate <= 0 {
		return fmt.Errorf("target_rate must be positive, got %f", *c.TargetRate)
	}
	if c.WindowSeconds != nil && *c.WindowSeconds <= 0 {
		return fmt.Errorf("window_seconds must be positive, got %f", *c.WindowSeconds)
	}
	if c.WarmupSamples != nil && *c.WarmupSamples < 0 {
		return fmt.Errorf("warmup_samples must be non-negative, got %d", *c.WarmupSamples)
	}
	for name := range c.Thresholds {
		if _, err := cost.ParseMethod(name); err != nil {
			return fmt.Errorf("thresholds: %w", err)
		}
	}
	if c.NominalBatchRate != nil && *c.NominalBatchRate <= 0 {
		return fmt.Errorf("nominal_batch_rate must be positive, got %f", *c.NominalBatchRate)
	}
	if c.MinFileRate != nil && *c.MinFileRate < 0 {
		return fmt.Errorf("min_file_rate must be non-negative, got %f", *c.MinFileRate)
	}
	if c.DefaultLiveRate != nil && *c.DefaultLiveRate < 1 {
		return fmt.Errorf("default_live_rate must be at least 1, got %f", *c.DefaultLiveRate)
	}
	if c.DivisionEpsilon != nil && *c.DivisionEpsilon <= 0 {
		return fmt.Errorf("division_epsilon must be positive, got %g", *c.DivisionEpsilon)
	}

	schema := c.GetSchema()
	if err := schema.Validate(); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	if c.DegenerateLimit != nil && (*c.DegenerateLimit < 1 || *c.DegenerateLimit > schema.NumAngles()) {
		return fmt.Errorf("degenerate_limit must be in [1,%d], got %d", schema.NumAngles(), *c.DegenerateLimit)
	}
	if len(c.AngleWeights) > 0 && len(c.AngleWeights) != schema.NumAngles() {
		return fmt.Errorf("angle_weights has %d entries, schema has %d angles", len(c.AngleWeights), schema.NumAngles())
	}
	if len(c.WindowWeights) > 0 && len(c.WindowWeights) != c.WindowCapacity() {
		return fmt.Errorf("window_weights has %d entries, window holds %d", len(c.WindowWeights), c.WindowCapacity())
	}
	return nil
}

// GetMethod returns the configured cost method or DifferenceMean.
func (c *Config) GetMethod() cost.Method {
	if c.Method == nil {
		return cost.DifferenceMean
	}
	m, err := cost.ParseMethod(*c.Method)
	if err != nil {
		return cost.DifferenceMean
	}
	return m
}

// GetTargetRate returns the sampling rate in samples per second.
func (c *Config) GetTargetRate() float64 {
	if c.TargetRate == nil {
		return 6
	}
	return *c.TargetRate
}

// GetWindowSeconds returns the smoothing window length in seconds.
func (c *Config) GetWindowSeconds() float64 {
	if c.WindowSeconds == nil {
		return 1
	}
	return *c.WindowSeconds
}

// WindowCapacity is the number of costs the smoothing window holds.
func (c *Config) WindowCapacity() int {
	return smoothing.CapacityForRate(c.GetTargetRate(), c.GetWindowSeconds())
}

// GetWarmupSamples returns the warm-up threshold; 0 means the window capacity.
func (c *Config) GetWarmupSamples() int {
	if c.WarmupSamples == nil {
		return 0
	}
	return *c.WarmupSamples
}

// GetThresholds returns the default thresholds with configured overrides applied.
func (c *Config) GetThresholds() classify.Thresholds {
	overrides := make(map[cost.Method]float64, len(c.Thresholds))
	for name, v := range c.Thresholds {
		if m, err := cost.ParseMethod(name); err == nil {
			overrides[m] = v
		}
	}
	return classify.DefaultThresholds().With(overrides)
}

// GetNominalBatchRate returns the frame rate batch mode insists on.
func (c *Config) GetNominalBatchRate() float64 {
	if c.NominalBatchRate == nil {
		return 30
	}
	return *c.NominalBatchRate
}

// GetMinFileRate returns the lowest acceptable rate for file-backed sources.
func (c *Config) GetMinFileRate() float64 {
	if c.MinFileRate == nil {
		return 5
	}
	return *c.MinFileRate
}

// GetDefaultLiveRate returns the rate assumed for live sources that report none.
func (c *Config) GetDefaultLiveRate() float64 {
	if c.DefaultLiveRate == nil {
		return 30
	}
	return *c.DefaultLiveRate
}

// GetDegenerateLimit returns the undefined-angle count at which a frame is skipped.
func (c *Config) GetDegenerateLimit() int {
	if c.DegenerateLimit == nil {
		return 6
	}
	return *c.DegenerateLimit
}

// GetDivisionEpsilon returns the Division method stabiliser.
func (c *Config) GetDivisionEpsilon() float64 {
	if c.DivisionEpsilon == nil {
		return cost.DefaultEpsilon
	}
	return *c.DivisionEpsilon
}

// GetSchema returns the configured keypoint schema or COCO-17.
func (c *Config) GetSchema() keypoints.Schema {
	if c.Schema == nil {
		return keypoints.COCO17()
	}
	return *c.Schema
}
