// Package control adjusts circuit parameters by name on a live context.
package control

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/mrgeneko/LiveSPICE/internal/circuit"
	"github.com/mrgeneko/LiveSPICE/internal/logger"
)

// Parameter is one enumerated control with its current value.
type Parameter struct {
	Index int     `yaml:"index"`
	Name  string  `yaml:"name"`
	Value float64 `yaml:"value"`
}

// Assignment is a parsed name=value pair.
type Assignment struct {
	Name  string
	Value float64
}

// Controller is bound to exactly one context. Set and Get run on the caller's
// goroutine; Enqueue may be called from anywhere and the queued values are
// applied between buffers by ApplyPending.
type Controller struct {
	ctx    *circuit.Context
	logger *logger.Logger

	names      []string
	enumerated bool

	mu      sync.Mutex
	pending []Assignment
}

// New binds a controller to ctx and enumerates its parameter names once.
func New(ctx *circuit.Context, log *logger.Logger) (*Controller, error) {
	if ctx == nil {
		return nil, errors.New("controller requires a circuit context")
	}

	c := &Controller{ctx: ctx, logger: log}

	if ctx.Capabilities().HasEnumeration() {
		n, err := ctx.NumParameters()
		if err != nil {
			return nil, err
		}
		for i := 0; i < n; i++ {
			name, ok, err := ctx.ParameterName(i)
			if err != nil {
				return nil, err
			}
			if ok {
				c.names = append(c.names, name)
			}
		}
		c.enumerated = true
	}

	return c, nil
}

// Names returns the enumerated parameter names in plugin order.
func (c *Controller) Names() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.names...)
}

// Count is the number of enumerated parameters.
func (c *Controller) Count() int {
	if c == nil {
		return 0
	}
	return len(c.names)
}

// ParameterName returns the name at index, false when out of range.
func (c *Controller) ParameterName(index int) (string, bool) {
	if c == nil || index < 0 || index >= len(c.names) {
		return "", false
	}
	return c.names[index], true
}

// Known reports whether name is an enumerated parameter. Without enumeration
// every name is passed through to the plugin.
func (c *Controller) Known(name string) bool {
	if c == nil {
		return false
	}
	if !c.enumerated {
		return true
	}
	for _, n := range c.names {
		if n == name {
			return true
		}
	}
	return false
}

// Set clamps value to [0,1] and forwards it. Unknown names and plugins
// without set_parameter are logged and otherwise ignored.
func (c *Controller) Set(name string, value float64) error {
	if c == nil {
		return nil
	}

	if !c.Known(name) {
		c.logger.WithFields(map[string]any{"parameter": name}).Warn("unknown parameter ignored")
		return nil
	}

	clamped := circuit.Clamp(value)
	applied, err := c.ctx.SetParameter(name, clamped)
	if err != nil {
		return err
	}
	if !applied {
		c.logger.WithFields(map[string]any{"parameter": name}).Warn("circuit does not accept parameter changes")
		return nil
	}

	fields := map[string]any{"parameter": name, "value": clamped}
	if clamped != value {
		fields["requested"] = value
	}
	c.logger.WithFields(fields).Debug("parameter set")
	return nil
}

// Get returns the current value, 0 for unknown names or a closed context.
func (c *Controller) Get(name string) float64 {
	if c == nil || !c.Known(name) {
		return 0
	}
	return c.ctx.GetParameter(name)
}

// Apply sets every assignment in order.
func (c *Controller) Apply(assignments []Assignment) error {
	for _, a := range assignments {
		if err := c.Set(a.Name, a.Value); err != nil {
			return err
		}
	}
	return nil
}

// Parameters snapshots all enumerated parameters with their values.
func (c *Controller) Parameters() []Parameter {
	if c == nil {
		return nil
	}
	params := make([]Parameter, 0, len(c.names))
	for i, name := range c.names {
		params = append(params, Parameter{Index: i, Name: name, Value: c.ctx.GetParameter(name)})
	}
	return params
}

// Enqueue schedules a change for the next ApplyPending call.
func (c *Controller) Enqueue(name string, value float64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.pending = append(c.pending, Assignment{Name: name, Value: value})
	c.mu.Unlock()
}

// ApplyPending drains the queue and returns how many changes were applied.
func (c *Controller) ApplyPending() int {
	if c == nil {
		return 0
	}

	c.mu.Lock()
	queued := c.pending
	c.pending = nil
	c.mu.Unlock()

	applied := 0
	for _, a := range queued {
		if err := c.Set(a.Name, a.Value); err != nil {
			c.logger.Error(err, "queued parameter change failed")
			continue
		}
		applied++
	}
	return applied
}

// ParseAssignment parses "name=value". Surrounding whitespace is trimmed and
// the value must be a finite number.
func ParseAssignment(raw string) (Assignment, error) {
	name, value, ok := strings.Cut(raw, "=")
	if !ok {
		return Assignment{}, fmt.Errorf("parameter %q must be name=value", raw)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Assignment{}, fmt.Errorf("parameter %q has an empty name", raw)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return Assignment{}, fmt.Errorf("parameter %q: %w", name, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Assignment{}, fmt.Errorf("parameter %q must be finite", name)
	}
	return Assignment{Name: name, Value: v}, nil
}

// ParseAssignments parses each entry, keeping command-line order.
func ParseAssignments(raw []string) ([]Assignment, error) {
	out := make([]Assignment, 0, len(raw))
	for _, r := range raw {
		a, err := ParseAssignment(r)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// FromMap turns a name to value map into assignments sorted by name.
func FromMap(values map[string]float64) []Assignment {
	out := make([]Assignment, 0, len(values))
	for name, v := range values {
		out = append(out, Assignment{Name: name, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
