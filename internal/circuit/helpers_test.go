package circuit

import (
	"sync"
)

// fakePlugin is an in-memory circuit that counts calls and live handles.
type fakePlugin struct {
	mu         sync.Mutex
	names      []string
	live       int
	inits      int
	processed  []int
	cleanups   int
	failInit   bool
	skipOption bool
}

type fakeState struct {
	values map[string]float64
}

func newFakePlugin(names ...string) *fakePlugin {
	return &fakePlugin{names: names}
}

func (p *fakePlugin) capabilities() Capabilities {
	caps := Capabilities{
		Init: func(sampleRate, bufferSize, oversample int) Handle {
			p.mu.Lock()
			defer p.mu.Unlock()
			p.inits++
			if p.failInit {
				return nil
			}
			p.live++
			st := &fakeState{values: make(map[string]float64)}
			for _, n := range p.names {
				st.values[n] = 0.5
			}
			return st
		},
		Process: func(h Handle, in, out []float32, frames, channels int) {
			p.mu.Lock()
			p.processed = append(p.processed, frames)
			p.mu.Unlock()
			copy(out[:frames*channels], in[:frames*channels])
		},
		Cleanup: func(h Handle) {
			p.mu.Lock()
			defer p.mu.Unlock()
			p.cleanups++
			p.live--
		},
	}
	if p.skipOption {
		return caps
	}

	caps.SetParameter = func(h Handle, name string, value float64) {
		st := h.(*fakeState)
		if _, ok := st.values[name]; ok {
			st.values[name] = Clamp(value)
		}
	}
	caps.GetParameter = func(h Handle, name string) float64 {
		return h.(*fakeState).values[name]
	}
	caps.NumParameters = func(Handle) int { return len(p.names) }
	caps.ParameterName = func(_ Handle, index int) (string, bool) {
		if index < 0 || index >= len(p.names) {
			return "", false
		}
		return p.names[index], true
	}
	caps.GetInfo = func() (Info, bool) {
		return Info{Name: "fake", NumInputs: 2, NumOutputs: 2}, true
	}
	return caps
}

type fakeLibrary struct {
	caps   Capabilities
	closed int
}

func (f *fakeLibrary) capabilities() Capabilities { return f.caps }

func (f *fakeLibrary) close() error {
	f.closed++
	return nil
}

func loadFake(p *fakePlugin) (*Module, *Loader) {
	reg := NewRegistry()
	_ = reg.Register("fake", p.capabilities)
	l := NewLoader(reg, nil)
	m, err := l.Load(BuiltinPrefix + "fake")
	if err != nil {
		panic(err)
	}
	return m, l
}
