package config

import (
	"time"
)

const (
	DefaultBufferSize         = 256
	DefaultOversample         = 8
	DefaultLatencyThresholdMS = 10.0
)

// Session describes one host run. Every field can also be given on the
// command line; explicit flags win over file values.
type Session struct {
	Input   string `yaml:"input" validate:"required"`
	Circuit string `yaml:"circuit" validate:"required"`
	Output  string `yaml:"output" validate:"required"`

	// SampleRate of zero means "use the input's rate".
	SampleRate int `yaml:"sample_rate,omitempty" validate:"min=0,max=768000"`
	BufferSize int `yaml:"buffer_size,omitempty" validate:"min=1,max=65536"`
	Oversample int `yaml:"oversample,omitempty" validate:"min=1,max=256"`

	MeasureLatency     bool    `yaml:"measure_latency,omitempty"`
	LatencyThresholdMS float64 `yaml:"latency_threshold_ms,omitempty" validate:"finite,gt=0"`
	Verbose            bool    `yaml:"verbose,omitempty"`

	Report     string             `yaml:"report,omitempty"`
	Parameters map[string]float64 `yaml:"parameters,omitempty" validate:"omitempty,dive,keys,param_name,endkeys,finite"`
}

// Default returns a session with every optional field at its default.
func Default() *Session {
	return &Session{
		BufferSize:         DefaultBufferSize,
		Oversample:         DefaultOversample,
		LatencyThresholdMS: DefaultLatencyThresholdMS,
	}
}

// LatencyThreshold converts the configured threshold to a duration.
func (s *Session) LatencyThreshold() time.Duration {
	return time.Duration(s.LatencyThresholdMS * float64(time.Millisecond))
}

// SetLatencyThreshold stores d in milliseconds.
func (s *Session) SetLatencyThreshold(d time.Duration) {
	s.LatencyThresholdMS = float64(d) / float64(time.Millisecond)
}
