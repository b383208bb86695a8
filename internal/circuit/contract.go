// Package circuit defines the binary contract a circuit module implements and
// the host-side types that load a module and own its processing contexts.
//
// A circuit module exports up to eight capabilities. init, process and cleanup
// are mandatory; the remaining five are optional and must be checked with the
// Has* methods before use. Audio buffers are flat, channel-interleaved float32
// slices: sample c of frame f lives at index f*channels+c.
package circuit

// Capability names as reported in errors and logs.
const (
	CapInit          = "init"
	CapProcess       = "process"
	CapSetParameter  = "set_parameter"
	CapGetParameter  = "get_parameter"
	CapNumParameters = "num_parameters"
	CapParameterName = "parameter_name"
	CapCleanup       = "cleanup"
	CapGetInfo       = "get_info"
)

// Symbol maps each capability to the symbol a native module exports.
var Symbol = map[string]string{
	CapInit:          "circuit_init",
	CapProcess:       "circuit_process",
	CapSetParameter:  "circuit_set_parameter",
	CapGetParameter:  "circuit_get_parameter",
	CapNumParameters: "circuit_get_num_parameters",
	CapParameterName: "circuit_get_parameter_name",
	CapCleanup:       "circuit_cleanup",
	CapGetInfo:       "circuit_get_info",
}

// Handle is the plugin-owned context state. The host never looks inside it;
// it only passes it back into the capability that created it.
type Handle any

// Info is the descriptive metadata a module may publish. It is readable before
// any context exists and never influences processing.
type Info struct {
	Name                  string `yaml:"name"`
	Description           string `yaml:"description"`
	NumInputs             int    `yaml:"num_inputs"`
	NumOutputs            int    `yaml:"num_outputs"`
	RecommendedOversample int    `yaml:"recommended_oversample"`
	RecommendedIterations int    `yaml:"recommended_iterations"`
}

// Capabilities is the entry-point table resolved from a module. A nil field
// means the module does not provide that capability.
type Capabilities struct {
	// Init returns nil when the plugin cannot allocate its state.
	Init    func(sampleRate, bufferSize, oversample int) Handle
	Process func(h Handle, in, out []float32, frames, channels int)
	Cleanup func(h Handle)

	SetParameter  func(h Handle, name string, value float64)
	GetParameter  func(h Handle, name string) float64
	NumParameters func(h Handle) int
	// ParameterName reports false for an index outside [0, NumParameters).
	ParameterName func(h Handle, index int) (string, bool)
	// GetInfo reports false when the module returns no metadata.
	GetInfo func() (Info, bool)
}

// Missing lists the mandatory capabilities that are absent, in contract order.
func (c Capabilities) Missing() []string {
	var missing []string
	if c.Init == nil {
		missing = append(missing, CapInit)
	}
	if c.Process == nil {
		missing = append(missing, CapProcess)
	}
	if c.Cleanup == nil {
		missing = append(missing, CapCleanup)
	}
	return missing
}

// Optional lists the optional capabilities that are present.
func (c Capabilities) Optional() []string {
	var present []string
	if c.HasSetParameter() {
		present = append(present, CapSetParameter)
	}
	if c.HasGetParameter() {
		present = append(present, CapGetParameter)
	}
	if c.HasEnumeration() {
		present = append(present, CapNumParameters, CapParameterName)
	} else {
		if c.NumParameters != nil {
			present = append(present, CapNumParameters)
		}
		if c.ParameterName != nil {
			present = append(present, CapParameterName)
		}
	}
	if c.HasInfo() {
		present = append(present, CapGetInfo)
	}
	return present
}

func (c Capabilities) HasSetParameter() bool { return c.SetParameter != nil }
func (c Capabilities) HasGetParameter() bool { return c.GetParameter != nil }
func (c Capabilities) HasInfo() bool         { return c.GetInfo != nil }

// HasEnumeration reports whether both num_parameters and parameter_name exist;
// one without the other cannot describe the parameter set.
func (c Capabilities) HasEnumeration() bool {
	return c.NumParameters != nil && c.ParameterName != nil
}

// Clamp bounds a parameter value to the canonical [0, 1] range. NaN maps to 0.
func Clamp(v float64) float64 {
	switch {
	case v != v:
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
