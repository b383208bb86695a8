package circuit

import (
	"errors"
	"fmt"
	"sync"

	hosterrors "github.com/mrgeneko/LiveSPICE/pkg/errors"
)

// ErrContextClosed is returned by every Context operation after Close.
var ErrContextClosed = errors.New("circuit context already cleaned up")

// State is the lifecycle position of a Context.
type State int

const (
	StateUninitialized State = iota
	StateReady
	StateCleaned
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateCleaned:
		return "cleaned"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ContextConfig holds the init arguments. All three must be positive.
type ContextConfig struct {
	SampleRate int
	BufferSize int
	Oversample int
}

// Timestep is the internal simulation step, 1 / (sample rate × oversample).
func (c ContextConfig) Timestep() float64 {
	if c.SampleRate <= 0 || c.Oversample <= 0 {
		return 0
	}
	return 1.0 / float64(c.SampleRate*c.Oversample)
}

func (c ContextConfig) validate() error {
	switch {
	case c.SampleRate <= 0:
		return fmt.Errorf("sample rate must be positive")
	case c.BufferSize <= 0:
		return fmt.Errorf("buffer size must be positive")
	case c.Oversample <= 0:
		return fmt.Errorf("oversample must be positive")
	}
	return nil
}

// Context owns one plugin processing session. Every entry into the plugin is
// serialized, and cleanup runs exactly once.
type Context struct {
	mu     sync.Mutex
	caps   Capabilities
	handle Handle
	config ContextConfig
	state  State
}

// NewContext calls init with cfg and returns the owning Context. The caller
// must Close it on every path.
func (m *Module) NewContext(cfg ContextConfig) (*Context, error) {
	if err := cfg.validate(); err != nil {
		return nil, hosterrors.NewInitError(cfg.SampleRate, cfg.BufferSize, cfg.Oversample, err)
	}

	handle := m.caps.Init(cfg.SampleRate, cfg.BufferSize, cfg.Oversample)
	if handle == nil {
		return nil, hosterrors.NewInitError(cfg.SampleRate, cfg.BufferSize, cfg.Oversample,
			fmt.Errorf("%s returned no context", m.path))
	}

	m.logger.WithFields(map[string]any{
		"module":      m.path,
		"sample_rate": cfg.SampleRate,
		"buffer_size": cfg.BufferSize,
		"oversample":  cfg.Oversample,
	}).Debug("context initialized")

	return &Context{
		caps:   m.caps,
		handle: handle,
		config: cfg,
		state:  StateReady,
	}, nil
}

// Config returns the arguments the context was initialized with.
func (c *Context) Config() ContextConfig { return c.config }

// BufferSize is the largest frame count a single Process call may carry.
func (c *Context) BufferSize() int { return c.config.BufferSize }

// State reports the lifecycle state.
func (c *Context) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Capabilities returns the entry-point table the context was created from.
func (c *Context) Capabilities() Capabilities { return c.caps }

// Process runs one buffer through the plugin. A zero-frame call returns
// without entering the plugin.
func (c *Context) Process(in, out []float32, frames, channels int) error {
	if frames < 0 || channels <= 0 {
		return fmt.Errorf("invalid buffer shape: %d frames, %d channels", frames, channels)
	}
	need := frames * channels
	if len(in) < need || len(out) < need {
		return fmt.Errorf("buffer too small: need %d samples, have in=%d out=%d", need, len(in), len(out))
	}
	if frames > c.config.BufferSize {
		return fmt.Errorf("%d frames exceed the context buffer size %d", frames, c.config.BufferSize)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateReady {
		return ErrContextClosed
	}
	if frames == 0 {
		return nil
	}
	c.caps.Process(c.handle, in[:need], out[:need], frames, channels)
	return nil
}

// SetParameter forwards a clamped value. It reports false when the plugin has
// no set_parameter capability.
func (c *Context) SetParameter(name string, value float64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateReady {
		return false, ErrContextClosed
	}
	if !c.caps.HasSetParameter() {
		return false, nil
	}
	c.caps.SetParameter(c.handle, name, Clamp(value))
	return true, nil
}

// GetParameter returns the plugin's stored value, or 0 when the capability is
// absent or the context is closed.
func (c *Context) GetParameter(name string) float64 {
	if c == nil {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateReady || !c.caps.HasGetParameter() {
		return 0
	}
	return c.caps.GetParameter(c.handle, name)
}

// NumParameters returns the enumerated parameter count, 0 when enumeration is
// unsupported.
func (c *Context) NumParameters() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateReady {
		return 0, ErrContextClosed
	}
	if !c.caps.HasEnumeration() {
		return 0, nil
	}
	n := c.caps.NumParameters(c.handle)
	if n < 0 {
		n = 0
	}
	return n, nil
}

// ParameterName returns the name at index, false outside the enumerated range.
func (c *Context) ParameterName(index int) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateReady {
		return "", false, ErrContextClosed
	}
	if !c.caps.HasEnumeration() || index < 0 || index >= c.caps.NumParameters(c.handle) {
		return "", false, nil
	}
	name, ok := c.caps.ParameterName(c.handle, index)
	return name, ok, nil
}

// Close calls cleanup once. Later calls are no-ops.
func (c *Context) Close() error {
	if c == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateCleaned {
		return nil
	}
	c.caps.Cleanup(c.handle)
	c.handle = nil
	c.state = StateCleaned
	return nil
}
