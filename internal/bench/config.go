package bench

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config describes one conv2d layout benchmark run.
type Config struct {
	// InputShape and WeightShape are NCHW / OIHW respectively.
	InputShape  []int `yaml:"input_shape"`
	WeightShape []int `yaml:"weight_shape"`

	Stride   [2]int `yaml:"stride"`
	Padding  [2]int `yaml:"padding"`
	Dilation [2]int `yaml:"dilation"`

	// Warmup iterations run before timing starts.
	Warmup int `yaml:"warmup"`
	// Reps is the number of timed iterations per variant.
	Reps int `yaml:"reps"`

	// Atol and Rtol are the tolerances used when checking that the
	// two layout variants produce the same result.
	Atol float64 `yaml:"atol"`
	Rtol float64 `yaml:"rtol"`

	Seed int64 `yaml:"seed"`
}

// DefaultConfig returns the standard ResNet-style first-layer
// convolution: a [256,3,224,224] input against a [64,3,7,7] weight
// with stride 2 and padding 3.
func DefaultConfig() Config {
	return Config{
		InputShape:  []int{256, 3, 224, 224},
		WeightShape: []int{64, 3, 7, 7},
		Stride:      [2]int{2, 2},
		Padding:     [2]int{3, 3},
		Dilation:    [2]int{1, 1},
		Warmup:      3,
		Reps:        40,
		Atol:        1e-3,
		Rtol:        1e-3,
		Seed:        1,
	}
}

// LoadConfig reads a YAML benchmark config from path, applying
// defaults for any field left unset.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("bench: read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("bench: parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the config's shapes and iteration counts.
func (c Config) Validate() error {
	if len(c.InputShape) != 4 {
		return fmt.Errorf("bench: input_shape must have 4 dims (NCHW), got %v", c.InputShape)
	}
	if len(c.WeightShape) != 4 {
		return fmt.Errorf("bench: weight_shape must have 4 dims (OIHW), got %v", c.WeightShape)
	}
	if c.InputShape[1] != c.WeightShape[1] {
		return fmt.Errorf("bench: input channels %d do not match weight channels %d",
			c.InputShape[1], c.WeightShape[1])
	}
	if c.Reps < 1 {
		return fmt.Errorf("bench: reps must be at least 1, got %d", c.Reps)
	}
	if c.Warmup < 0 {
		return fmt.Errorf("bench: warmup must not be negative, got %d", c.Warmup)
	}
	return nil
}
