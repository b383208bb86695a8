package circuit

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/mrgeneko/LiveSPICE/internal/logger"
	hosterrors "github.com/mrgeneko/LiveSPICE/pkg/errors"
)

// library is an opened module whose symbols have been resolved.
type library interface {
	capabilities() Capabilities
	close() error
}

// opener opens a native module at path.
type opener func(path string) (library, error)

type builtinLibrary struct {
	caps Capabilities
}

func (b builtinLibrary) capabilities() Capabilities { return b.caps }
func (b builtinLibrary) close() error               { return nil }

// Loader resolves module paths into Modules and keeps every opened module
// alive until Close.
type Loader struct {
	mu       sync.Mutex
	registry *Registry
	open     opener
	opened   []library
	closed   bool
	logger   *logger.Logger
}

// NewLoader returns a Loader that resolves builtin: paths through registry
// and everything else as a native module.
func NewLoader(registry *Registry, log *logger.Logger) *Loader {
	return &Loader{
		registry: registry,
		open:     openNative,
		logger:   log,
	}
}

// Load opens the module at path and binds its capabilities. Loading the same
// path twice yields two independent Modules.
func (l *Loader) Load(path string) (*Module, error) {
	if strings.TrimSpace(path) == "" {
		return nil, hosterrors.NewLoadError(path, fmt.Errorf("module path is empty"))
	}

	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if closed {
		return nil, hosterrors.NewLoadError(path, fmt.Errorf("loader is closed"))
	}

	lib, err := l.openLibrary(path)
	if err != nil {
		return nil, err
	}

	caps := lib.capabilities()
	if missing := caps.Missing(); len(missing) > 0 {
		if closeErr := lib.close(); closeErr != nil {
			l.logger.Error(closeErr, "release rejected module")
		}
		return nil, hosterrors.NewContractViolation(path, missing)
	}

	l.mu.Lock()
	l.opened = append(l.opened, lib)
	l.mu.Unlock()

	if l.logger.DebugEnabled() {
		l.logger.WithFields(map[string]any{
			"module":   path,
			"optional": strings.Join(caps.Optional(), ","),
		}).Debug("module loaded")
	}

	return &Module{path: path, caps: caps, logger: l.logger}, nil
}

func (l *Loader) openLibrary(path string) (library, error) {
	if name, ok := strings.CutPrefix(path, BuiltinPrefix); ok {
		caps, err := l.registry.Lookup(name)
		if err != nil {
			return nil, hosterrors.NewLoadError(path, err)
		}
		return builtinLibrary{caps: caps}, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, hosterrors.NewLoadError(path, err)
	}
	if info.IsDir() {
		return nil, hosterrors.NewLoadError(path, fmt.Errorf("path is a directory"))
	}

	lib, err := l.open(path)
	if err != nil {
		return nil, hosterrors.NewLoadError(path, err)
	}
	return lib, nil
}

// Close releases every module opened by this Loader. Contexts created from
// those modules must be closed first.
func (l *Loader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	var errs []error
	for _, lib := range l.opened {
		if err := lib.close(); err != nil {
			errs = append(errs, err)
		}
	}
	l.opened = nil
	return errors.Join(errs...)
}

// Module is a loaded circuit with its bound capabilities.
type Module struct {
	path   string
	caps   Capabilities
	logger *logger.Logger
}

// Path returns the descriptor the module was loaded from.
func (m *Module) Path() string { return m.path }

// Capabilities returns the resolved entry-point table.
func (m *Module) Capabilities() Capabilities { return m.caps }

// Info returns the module metadata when the module publishes it.
func (m *Module) Info() (Info, bool) {
	if !m.caps.HasInfo() {
		return Info{}, false
	}
	return m.caps.GetInfo()
}
