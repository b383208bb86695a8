// Package engine streams audio from a source through a circuit context into a
// sink, one bounded buffer at a time.
package engine

import (
	"context"
	"fmt"

	"github.com/mrgeneko/LiveSPICE/internal/logger"
	"github.com/mrgeneko/LiveSPICE/internal/perf"
	hosterrors "github.com/mrgeneko/LiveSPICE/pkg/errors"
)

// Source yields interleaved frames. Read fills up to len(buf)/Channels()
// frames and returns how many it wrote; zero means the source is exhausted.
type Source interface {
	Name() string
	Channels() int
	SampleRate() int
	Read(buf []float32) (int, error)
}

// Sink accepts interleaved frames in order.
type Sink interface {
	Name() string
	Channels() int
	Write(buf []float32, frames int) error
}

// Processor is the slice of a circuit context the engine needs.
type Processor interface {
	BufferSize() int
	Process(in, out []float32, frames, channels int) error
}

// Pending applies queued parameter updates between buffers.
type Pending interface {
	ApplyPending() int
}

// Progress is reported after every buffer.
type Progress struct {
	Buffers int
	Frames  int64
}

// Options configures a streaming run.
type Options struct {
	// FrameSize is the number of frames read per buffer. Zero uses the
	// processor's buffer size.
	FrameSize int
	Monitor   *perf.Monitor
	Logger    *logger.Logger
	Pending   Pending
	OnBuffer  func(Progress)
}

// Result counts what was streamed.
type Result struct {
	Buffers int
	Frames  int64
}

// Engine drives the streaming loop.
type Engine struct {
	opts Options
}

// New returns an engine with the supplied options.
func New(opts Options) *Engine {
	return &Engine{opts: opts}
}

const progressLogInterval = 100

// Run streams until the source is exhausted, an error occurs, or ctx is done.
// Each chunk is written to the sink before the next read.
func (e *Engine) Run(ctx context.Context, proc Processor, src Source, sink Sink) (Result, error) {
	var result Result

	channels := src.Channels()
	if sink.Channels() != channels {
		return result, hosterrors.NewConfigMismatch("channels", channels, sink.Channels())
	}
	if channels <= 0 {
		return result, hosterrors.NewConfigMismatch("channels", "at least 1", channels)
	}

	frameSize := e.opts.FrameSize
	if frameSize == 0 {
		frameSize = proc.BufferSize()
	}
	if frameSize <= 0 || frameSize > proc.BufferSize() {
		return result, hosterrors.NewConfigMismatch("frame_size", fmt.Sprintf("1..%d", proc.BufferSize()), frameSize)
	}

	in := make([]float32, frameSize*channels)
	out := make([]float32, frameSize*channels)
	log := e.opts.Logger.WithFields(map[string]any{
		"source":     src.Name(),
		"sink":       sink.Name(),
		"frame_size": frameSize,
		"channels":   channels,
	})
	log.Debug("streaming started")

	for {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("streaming stopped after %d buffers: %w", result.Buffers, err)
		}

		frames, err := src.Read(in)
		if err != nil {
			return result, hosterrors.NewIOError(src.Name(), "read", err)
		}
		if frames == 0 {
			break
		}
		if frames > frameSize {
			return result, hosterrors.NewConfigMismatch("frames_read", frameSize, frames)
		}

		if e.opts.Pending != nil {
			if n := e.opts.Pending.ApplyPending(); n > 0 {
				log.WithFields(map[string]any{"updates": n}).Debug("parameter updates applied")
			}
		}

		err = e.opts.Monitor.Time(frames, func() error {
			return proc.Process(in, out, frames, channels)
		})
		if err != nil {
			return result, hosterrors.NewProcessError(result.Buffers, err)
		}

		if err := sink.Write(out, frames); err != nil {
			return result, hosterrors.NewIOError(sink.Name(), "write", err)
		}

		result.Buffers++
		result.Frames += int64(frames)

		if e.opts.OnBuffer != nil {
			e.opts.OnBuffer(Progress{Buffers: result.Buffers, Frames: result.Frames})
		}
		if result.Buffers%progressLogInterval == 0 {
			log.WithFields(map[string]any{
				"buffers": result.Buffers,
				"frames":  result.Frames,
			}).Debug("streaming progress")
		}
	}

	log.WithFields(map[string]any{
		"buffers": result.Buffers,
		"frames":  result.Frames,
	}).Debug("streaming finished")
	return result, nil
}
