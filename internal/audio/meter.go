package audio

import (
	"math"
	"sync"

	vecmath "github.com/cwbudde/algo-vecmath"
)

// Level is a peak and RMS reading in linear full-scale units.
type Level struct {
	Peak    float64 `yaml:"peak"`
	RMS     float64 `yaml:"rms"`
	Samples int64   `yaml:"samples"`
}

// PeakDBFS is the peak in decibels relative to full scale.
func (l Level) PeakDBFS() float64 { return DBFS(l.Peak) }

// RMSDBFS is the RMS level in decibels relative to full scale.
func (l Level) RMSDBFS() float64 { return DBFS(l.RMS) }

// DBFS converts a linear amplitude; silence is negative infinity.
func DBFS(v float64) float64 {
	if v <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(v)
}

// Meter accumulates peak and mean-square over a whole stream.
type Meter struct {
	mu      sync.Mutex
	scratch []float64
	peak    float64
	sumSq   float64
	samples int64
}

// Observe adds interleaved samples to the running totals.
func (m *Meter) Observe(samples []float32) {
	if m == nil || len(samples) == 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if cap(m.scratch) < len(samples) {
		m.scratch = make([]float64, len(samples))
	}
	x := m.scratch[:len(samples)]
	for i, v := range samples {
		x[i] = float64(v)
	}

	if p := vecmath.MaxAbs(x); p > m.peak {
		m.peak = p
	}
	m.sumSq += vecmath.DotProduct(x, x)
	m.samples += int64(len(x))
}

// Level returns the reading so far.
func (m *Meter) Level() Level {
	if m == nil {
		return Level{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	l := Level{Peak: m.peak, Samples: m.samples}
	if m.samples > 0 {
		l.RMS = math.Sqrt(m.sumSq / float64(m.samples))
	}
	return l
}

type frameSource interface {
	Name() string
	Channels() int
	SampleRate() int
	Read(buf []float32) (int, error)
}

type frameSink interface {
	Name() string
	Channels() int
	Write(buf []float32, frames int) error
}

// MeteredSource measures everything read through it.
type MeteredSource struct {
	frameSource
	Meter *Meter
}

// MeterSource wraps src with a fresh Meter.
func MeterSource(src frameSource) *MeteredSource {
	return &MeteredSource{frameSource: src, Meter: &Meter{}}
}

func (s *MeteredSource) Read(buf []float32) (int, error) {
	n, err := s.frameSource.Read(buf)
	if n > 0 {
		s.Meter.Observe(buf[:n*s.Channels()])
	}
	return n, err
}

// MeteredSink measures everything written through it.
type MeteredSink struct {
	frameSink
	Meter *Meter
}

// MeterSink wraps sink with a fresh Meter.
func MeterSink(sink frameSink) *MeteredSink {
	return &MeteredSink{frameSink: sink, Meter: &Meter{}}
}

func (s *MeteredSink) Write(buf []float32, frames int) error {
	if err := s.frameSink.Write(buf, frames); err != nil {
		return err
	}
	s.Meter.Observe(buf[:frames*s.Channels()])
	return nil
}
