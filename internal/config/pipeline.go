package config

import (
	"github.com/banshee-data/fallsense/internal/features"
	"github.com/banshee-data/fallsense/internal/stream"
)

// PipelineOptions converts the configuration into driver options. Mode,
// RunID, Pace and Clock are left at their defaults for the caller to set.
func (c *Config) PipelineOptions() stream.Options {
	opts := stream.DefaultOptions()
	opts.Method = c.GetMethod()
	opts.TargetRate = c.GetTargetRate()
	opts.WindowSeconds = c.GetWindowSeconds()
	opts.WarmupSamples = c.GetWarmupSamples()
	opts.Thresholds = c.GetThresholds()
	opts.NominalBatchRate = c.GetNominalBatchRate()
	opts.MinFileRate = c.GetMinFileRate()
	opts.DefaultLiveRate = c.GetDefaultLiveRate()
	opts.DegenerateLimit = c.GetDegenerateLimit()
	opts.Epsilon = c.GetDivisionEpsilon()
	opts.Schema = c.GetSchema()

	opts.AngleWeights = features.DefaultWeights(opts.Schema.NumAngles())
	if len(c.AngleWeights) > 0 {
		opts.AngleWeights = append([]float64(nil), c.AngleWeights...)
	}
	if len(c.WindowWeights) > 0 {
		opts.WindowWeights = append([]float64(nil), c.WindowWeights...)
	}
	return opts
}
