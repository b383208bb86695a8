// Package tube is a small asymmetric tube-style saturation stage compiled into
// the host. It implements the full circuit contract and serves as a reference
// module when no native build is at hand.
package tube

import (
	"github.com/mrgeneko/LiveSPICE/internal/circuit"
)

// Name is the registry key; load it as "builtin:tube".
const Name = "tube"

var parameterNames = [...]string{"Gain", "Distortion", "Volume"}

var defaults = [...]float64{0.5, 0.5, 0.7}

var info = circuit.Info{
	Name:                  "Simple Tube Distortion",
	Description:           "Basic tube emulation for testing",
	NumInputs:             1,
	NumOutputs:            1,
	RecommendedOversample: 8,
	RecommendedIterations: 8,
}

type state struct {
	params     [len(parameterNames)]float64
	oversample int
	lastOutput float64
}

// Capabilities returns a fresh entry-point table for the tube circuit.
func Capabilities() circuit.Capabilities {
	return circuit.Capabilities{
		Init:          initState,
		Process:       process,
		Cleanup:       func(circuit.Handle) {},
		SetParameter:  setParameter,
		GetParameter:  getParameter,
		NumParameters: func(circuit.Handle) int { return len(parameterNames) },
		ParameterName: parameterName,
		GetInfo:       func() (circuit.Info, bool) { return info, true },
	}
}

func initState(sampleRate, bufferSize, oversample int) circuit.Handle {
	if sampleRate <= 0 || bufferSize <= 0 || oversample <= 0 {
		return nil
	}
	return &state{params: defaults, oversample: oversample}
}

func indexOf(name string) int {
	for i, n := range parameterNames {
		if n == name {
			return i
		}
	}
	return -1
}

func setParameter(h circuit.Handle, name string, value float64) {
	s, ok := h.(*state)
	if !ok {
		return
	}
	if i := indexOf(name); i >= 0 {
		s.params[i] = circuit.Clamp(value)
	}
}

func getParameter(h circuit.Handle, name string) float64 {
	s, ok := h.(*state)
	if !ok {
		return 0
	}
	if i := indexOf(name); i >= 0 {
		return s.params[i]
	}
	return 0
}

func parameterName(_ circuit.Handle, index int) (string, bool) {
	if index < 0 || index >= len(parameterNames) {
		return "", false
	}
	return parameterNames[index], true
}

// saturate soft-clips x above threshold in either direction.
func saturate(x, threshold float64) float64 {
	switch {
	case x > threshold:
		over := x - threshold
		return threshold + over/(1+over/threshold)
	case x < -threshold:
		under := x + threshold
		return -threshold + under/(1-under/threshold)
	default:
		return x
	}
}

// process reads the first input channel and writes the result to every
// output channel.
func process(h circuit.Handle, in, out []float32, frames, channels int) {
	s, ok := h.(*state)
	if !ok {
		return
	}

	gain := 0.5 + s.params[0]*9.5
	threshold := 0.1 + s.params[1]*0.9
	volume := s.params[2]

	for f := 0; f < frames; f++ {
		x := float64(in[f*channels])

		var y float64
		for i := 0; i < s.oversample; i++ {
			y = saturate(x*gain, threshold) * volume
			y = 0.5*y + 0.5*s.lastOutput
			s.lastOutput = y
		}
		y /= float64(s.oversample)

		for c := 0; c < channels; c++ {
			out[f*channels+c] = float32(y)
		}
	}
}
