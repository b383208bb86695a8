// Package audio provides the sources and sinks the streaming engine reads
// from and writes to, plus level metering.
package audio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	hosterrors "github.com/mrgeneko/LiveSPICE/pkg/errors"
)

const wavFormatPCM = 1

// Format describes an interleaved integer PCM stream.
type Format struct {
	SampleRate int `yaml:"sample_rate"`
	Channels   int `yaml:"channels"`
	BitDepth   int `yaml:"bit_depth"`
}

func (f Format) validate() error {
	switch {
	case f.SampleRate <= 0:
		return fmt.Errorf("sample rate must be positive, got %d", f.SampleRate)
	case f.Channels <= 0:
		return fmt.Errorf("channel count must be positive, got %d", f.Channels)
	}
	switch f.BitDepth {
	case 8, 16, 24, 32:
		return nil
	default:
		return fmt.Errorf("unsupported bit depth %d", f.BitDepth)
	}
}

// fullScale is the magnitude that maps to 1.0 for a signed bit depth.
func fullScale(bitDepth int) float64 {
	return float64(int64(1) << (bitDepth - 1))
}

// toFloat converts a decoded sample; 8-bit WAV data is unsigned.
func toFloat(v, bitDepth int) float32 {
	if bitDepth == 8 {
		return float32(float64(v-128) / 128)
	}
	return float32(float64(v) / fullScale(bitDepth))
}

func fromFloat(v float32, bitDepth int) int {
	x := float64(v)
	if math.IsNaN(x) {
		x = 0
	}
	x = math.Max(-1, math.Min(1, x))
	if bitDepth == 8 {
		return int(math.Round(x*127)) + 128
	}
	return int(math.Round(x * (fullScale(bitDepth) - 1)))
}

// WAVSource reads PCM frames from a WAV file.
type WAVSource struct {
	path    string
	file    *os.File
	decoder *wav.Decoder
	format  Format
	frames  int64
	scratch *goaudio.IntBuffer
}

// OpenWAV opens path and positions the decoder at the first PCM frame.
func OpenWAV(path string) (*WAVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, hosterrors.NewIOError(path, "open", err)
	}

	src, err := newWAVSource(path, f)
	if err != nil {
		_ = f.Close()
		return nil, hosterrors.NewIOError(path, "open", err)
	}
	return src, nil
}

func newWAVSource(path string, f *os.File) (*WAVSource, error) {
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, errors.New("not a valid WAV file")
	}
	dec.ReadInfo()
	if err := dec.Err(); err != nil {
		return nil, err
	}
	if dec.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("unsupported WAV encoding %d, only integer PCM is supported", dec.WavAudioFormat)
	}

	format := Format{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
	}
	if err := format.validate(); err != nil {
		return nil, err
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, err
	}

	frameBytes := int64(format.Channels * format.BitDepth / 8)
	return &WAVSource{
		path:    path,
		file:    f,
		decoder: dec,
		format:  format,
		frames:  dec.PCMLen() / frameBytes,
		scratch: &goaudio.IntBuffer{Format: &goaudio.Format{NumChannels: format.Channels, SampleRate: format.SampleRate}},
	}, nil
}

// Name returns the file path.
func (s *WAVSource) Name() string { return s.path }

// Format returns the stream layout found in the header.
func (s *WAVSource) Format() Format { return s.format }

func (s *WAVSource) Channels() int   { return s.format.Channels }
func (s *WAVSource) SampleRate() int { return s.format.SampleRate }

// TotalFrames is the frame count announced by the data chunk.
func (s *WAVSource) TotalFrames() int64 { return s.frames }

// Read fills buf with up to len(buf)/Channels() whole frames. A trailing
// partial frame at the end of the file is dropped.
func (s *WAVSource) Read(buf []float32) (int, error) {
	ch := s.format.Channels
	want := (len(buf) / ch) * ch
	got := 0

	for got < want {
		if cap(s.scratch.Data) < want-got {
			s.scratch.Data = make([]int, want-got)
		}
		s.scratch.Data = s.scratch.Data[:want-got]

		n, err := s.decoder.PCMBuffer(s.scratch)
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, err
		}
		for i := 0; i < n; i++ {
			buf[got+i] = toFloat(s.scratch.Data[i], s.format.BitDepth)
		}
		got += n
		if n == 0 || err != nil {
			break
		}
	}

	return got / ch, nil
}

// Close releases the file.
func (s *WAVSource) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// WAVSink writes PCM frames to a new WAV file.
type WAVSink struct {
	path    string
	file    *os.File
	encoder *wav.Encoder
	format  Format
	scratch *goaudio.IntBuffer
	frames  int64
}

// CreateWAV creates or truncates path for writing frames in format.
func CreateWAV(path string, format Format) (*WAVSink, error) {
	if err := format.validate(); err != nil {
		return nil, hosterrors.NewIOError(path, "create", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, hosterrors.NewIOError(path, "create", err)
	}
	return &WAVSink{
		path:    path,
		file:    f,
		encoder: wav.NewEncoder(f, format.SampleRate, format.BitDepth, format.Channels, wavFormatPCM),
		format:  format,
		scratch: &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: format.Channels, SampleRate: format.SampleRate},
			SourceBitDepth: format.BitDepth,
		},
	}, nil
}

// Name returns the file path.
func (s *WAVSink) Name() string { return s.path }

func (s *WAVSink) Channels() int { return s.format.Channels }

// Frames is the number of frames written so far.
func (s *WAVSink) Frames() int64 { return s.frames }

// Write encodes the first frames frames of buf.
func (s *WAVSink) Write(buf []float32, frames int) error {
	if s.file == nil {
		return errors.New("sink already closed")
	}
	n := frames * s.format.Channels
	if n > len(buf) {
		return fmt.Errorf("buffer holds %d samples, need %d", len(buf), n)
	}
	if n == 0 {
		return nil
	}

	if cap(s.scratch.Data) < n {
		s.scratch.Data = make([]int, n)
	}
	s.scratch.Data = s.scratch.Data[:n]
	for i, v := range buf[:n] {
		s.scratch.Data[i] = fromFloat(v, s.format.BitDepth)
	}
	if err := s.encoder.Write(s.scratch); err != nil {
		return err
	}
	s.frames += int64(frames)
	return nil
}

// Close finalizes the header and closes the file. Later calls are no-ops.
func (s *WAVSink) Close() error {
	if s.file == nil {
		return nil
	}
	var encErr error
	if s.frames == 0 {
		// the header is only written with the first buffer
		s.scratch.Data = s.scratch.Data[:0]
		encErr = s.encoder.Write(s.scratch)
	}
	encErr = errors.Join(encErr, s.encoder.Close())
	fileErr := s.file.Close()
	s.file = nil
	if err := errors.Join(encErr, fileErr); err != nil {
		return hosterrors.NewIOError(s.path, "close", err)
	}
	return nil
}
