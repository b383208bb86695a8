package audio

import "fmt"

// SliceSource serves interleaved samples held in memory.
type SliceSource struct {
	name       string
	channels   int
	sampleRate int
	samples    []float32
	pos        int
}

// NewSliceSource wraps samples, which must hold whole frames.
func NewSliceSource(name string, channels, sampleRate int, samples []float32) (*SliceSource, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("channel count must be positive, got %d", channels)
	}
	if len(samples)%channels != 0 {
		return nil, fmt.Errorf("%d samples do not divide into %d channels", len(samples), channels)
	}
	return &SliceSource{name: name, channels: channels, sampleRate: sampleRate, samples: samples}, nil
}

func (s *SliceSource) Name() string    { return s.name }
func (s *SliceSource) Channels() int   { return s.channels }
func (s *SliceSource) SampleRate() int { return s.sampleRate }

func (s *SliceSource) Read(buf []float32) (int, error) {
	n := copy(buf[:(len(buf)/s.channels)*s.channels], s.samples[s.pos:])
	s.pos += n
	return n / s.channels, nil
}

// RecordingSink keeps everything written to it.
type RecordingSink struct {
	name     string
	channels int
	Samples  []float32
	Writes   []int
}

func NewRecordingSink(name string, channels int) *RecordingSink {
	return &RecordingSink{name: name, channels: channels}
}

func (s *RecordingSink) Name() string  { return s.name }
func (s *RecordingSink) Channels() int { return s.channels }

func (s *RecordingSink) Write(buf []float32, frames int) error {
	n := frames * s.channels
	if n > len(buf) {
		return fmt.Errorf("buffer holds %d samples, need %d", len(buf), n)
	}
	s.Samples = append(s.Samples, buf[:n]...)
	s.Writes = append(s.Writes, frames)
	return nil
}
