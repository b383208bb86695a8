// Package perf measures how much of the real-time budget circuit processing
// consumes.
package perf

import (
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultLatencyThreshold is the structural latency above which a report is
// flagged.
const DefaultLatencyThreshold = 10 * time.Millisecond

// Sample is the elapsed time of one process call.
type Sample struct {
	Duration time.Duration
	Frames   int
}

// Monitor collects samples for one stream. It is safe for concurrent use so a
// progress view can read a report while streaming continues.
type Monitor struct {
	sampleRate int
	bufferSize int
	threshold  time.Duration
	now        func() time.Time

	mu      sync.Mutex
	samples []Sample
}

// NewMonitor creates a monitor for a stream at sampleRate with the given
// context buffer size. A non-positive threshold selects the default.
func NewMonitor(sampleRate, bufferSize int, threshold time.Duration) *Monitor {
	if threshold <= 0 {
		threshold = DefaultLatencyThreshold
	}
	return &Monitor{
		sampleRate: sampleRate,
		bufferSize: bufferSize,
		threshold:  threshold,
		now:        time.Now,
	}
}

// Time runs fn and records its elapsed time against frames. The sample is
// recorded even when fn fails.
func (m *Monitor) Time(frames int, fn func() error) error {
	if m == nil {
		return fn()
	}
	start := m.now()
	err := fn()
	m.Record(Sample{Duration: m.now().Sub(start), Frames: frames})
	return err
}

// Record adds a sample.
func (m *Monitor) Record(s Sample) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.samples = append(m.samples, s)
	m.mu.Unlock()
}

// Report summarizes the samples recorded so far.
type Report struct {
	SampleRate int `yaml:"sample_rate"`
	BufferSize int `yaml:"buffer_size"`

	Buffers        int           `yaml:"buffers"`
	Frames         int64         `yaml:"frames"`
	ProcessingTime time.Duration `yaml:"processing_time"`
	AudioDuration  time.Duration `yaml:"audio_duration"`
	RealTimeRatio  float64       `yaml:"real_time_ratio"`
	DSPLoadPercent float64       `yaml:"dsp_load_percent"`
	Overloaded     bool          `yaml:"overloaded"`

	Latency          time.Duration `yaml:"latency"`
	LatencyThreshold time.Duration `yaml:"latency_threshold"`
	LatencyExceeded  bool          `yaml:"latency_exceeded"`

	MinCall    time.Duration `yaml:"min_call"`
	MaxCall    time.Duration `yaml:"max_call"`
	MeanCall   time.Duration `yaml:"mean_call"`
	StdDevCall time.Duration `yaml:"stddev_call"`
	Overruns   int           `yaml:"overruns"`
}

// Latency is the structural latency of one buffer at sampleRate.
func Latency(sampleRate, bufferSize int) time.Duration {
	if sampleRate <= 0 || bufferSize <= 0 {
		return 0
	}
	return time.Duration(float64(bufferSize) / float64(sampleRate) * float64(time.Second))
}

func audioDuration(frames int64, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(frames) / float64(sampleRate) * float64(time.Second))
}

// Report computes the aggregates. With no processing time recorded the ratio
// and load are zero.
func (m *Monitor) Report() Report {
	m.mu.Lock()
	samples := append([]Sample(nil), m.samples...)
	m.mu.Unlock()

	r := Report{
		SampleRate:       m.sampleRate,
		BufferSize:       m.bufferSize,
		Buffers:          len(samples),
		Latency:          Latency(m.sampleRate, m.bufferSize),
		LatencyThreshold: m.threshold,
	}
	r.LatencyExceeded = r.Latency > r.LatencyThreshold

	if len(samples) == 0 {
		return r
	}

	r.MinCall = samples[0].Duration
	for _, s := range samples {
		r.Frames += int64(s.Frames)
		r.ProcessingTime += s.Duration
		if s.Duration < r.MinCall {
			r.MinCall = s.Duration
		}
		if s.Duration > r.MaxCall {
			r.MaxCall = s.Duration
		}
		if s.Duration > audioDuration(int64(s.Frames), m.sampleRate) {
			r.Overruns++
		}
	}

	r.AudioDuration = audioDuration(r.Frames, m.sampleRate)
	if r.ProcessingTime > 0 && r.AudioDuration > 0 {
		r.RealTimeRatio = r.AudioDuration.Seconds() / r.ProcessingTime.Seconds()
		r.DSPLoadPercent = r.ProcessingTime.Seconds() / r.AudioDuration.Seconds() * 100
	}
	r.Overloaded = r.DSPLoadPercent > 100

	mean := float64(r.ProcessingTime) / float64(len(samples))
	var variance float64
	for _, s := range samples {
		d := float64(s.Duration) - mean
		variance += d * d
	}
	variance /= float64(len(samples))
	r.MeanCall = time.Duration(mean)
	r.StdDevCall = time.Duration(math.Sqrt(variance))

	return r
}

// LatencyMillis is the structural latency in fractional milliseconds.
func (r Report) LatencyMillis() float64 {
	return float64(r.Latency) / float64(time.Millisecond)
}

// WriteYAML writes the report as a YAML document.
func (r Report) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(reportDocument{Performance: r}); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return enc.Close()
}

type reportDocument struct {
	Performance Report `yaml:"performance"`
}
