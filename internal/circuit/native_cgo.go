//go:build cgo

package circuit

// #cgo linux LDFLAGS: -ldl
// #include <dlfcn.h>
// #include <stdlib.h>
//
// typedef struct {
//     const char* name;
//     const char* description;
//     int num_inputs;
//     int num_outputs;
//     int recommended_oversample;
//     int recommended_iterations;
// } host_circuit_info;
//
// typedef void* (*host_init_fn)(int, int, int);
// typedef void (*host_process_fn)(void*, const float*, float*, int, int);
// typedef void (*host_set_parameter_fn)(void*, const char*, double);
// typedef double (*host_get_parameter_fn)(void*, const char*);
// typedef int (*host_num_parameters_fn)(void*);
// typedef const char* (*host_parameter_name_fn)(void*, int);
// typedef void (*host_cleanup_fn)(void*);
// typedef const host_circuit_info* (*host_get_info_fn)(void);
//
// static inline void* host_call_init(void* fn, int sample_rate, int buffer_size, int oversample) {
//     return ((host_init_fn)fn)(sample_rate, buffer_size, oversample);
// }
//
// static inline void host_call_process(void* fn, void* ctx, const float* in, float* out, int frames, int channels) {
//     ((host_process_fn)fn)(ctx, in, out, frames, channels);
// }
//
// static inline void host_call_set_parameter(void* fn, void* ctx, const char* name, double value) {
//     ((host_set_parameter_fn)fn)(ctx, name, value);
// }
//
// static inline double host_call_get_parameter(void* fn, void* ctx, const char* name) {
//     return ((host_get_parameter_fn)fn)(ctx, name);
// }
//
// static inline int host_call_num_parameters(void* fn, void* ctx) {
//     return ((host_num_parameters_fn)fn)(ctx);
// }
//
// static inline const char* host_call_parameter_name(void* fn, void* ctx, int index) {
//     return ((host_parameter_name_fn)fn)(ctx, index);
// }
//
// static inline void host_call_cleanup(void* fn, void* ctx) {
//     ((host_cleanup_fn)fn)(ctx);
// }
//
// static inline const host_circuit_info* host_call_get_info(void* fn) {
//     return ((host_get_info_fn)fn)();
// }
//
// static inline void* host_dlopen(const char* path) {
//     return dlopen(path, RTLD_NOW | RTLD_LOCAL);
// }
//
// static inline const char* host_dlerror(void) {
//     return dlerror();
// }
import "C"

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"
)

type nativeLibrary struct {
	once   sync.Once
	handle unsafe.Pointer
	caps   Capabilities
}

func openNative(path string) (library, error) {
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))

	handle := C.host_dlopen(cPath)
	if handle == nil {
		return nil, errors.New(lastDLError("dlopen failed"))
	}

	lib := &nativeLibrary{handle: handle}
	lib.caps = bindNative(handle)
	return lib, nil
}

func (n *nativeLibrary) capabilities() Capabilities { return n.caps }

func (n *nativeLibrary) close() error {
	var err error
	n.once.Do(func() {
		if C.dlclose(n.handle) != 0 {
			err = fmt.Errorf("dlclose: %s", lastDLError("unknown error"))
		}
		n.handle = nil
	})
	return err
}

func lastDLError(fallback string) string {
	msg := C.host_dlerror()
	if msg == nil {
		return fallback
	}
	return C.GoString(msg)
}

func lookupSymbol(handle unsafe.Pointer, capability string) unsafe.Pointer {
	cName := C.CString(Symbol[capability])
	defer C.free(unsafe.Pointer(cName))
	return C.dlsym(handle, cName)
}

func nativeHandle(h Handle) unsafe.Pointer {
	p, _ := h.(unsafe.Pointer)
	return p
}

func floatPtr(buf []float32) *C.float {
	if len(buf) == 0 {
		return nil
	}
	return (*C.float)(unsafe.Pointer(&buf[0]))
}

// bindNative resolves each capability symbol and wraps the ones that exist.
func bindNative(handle unsafe.Pointer) Capabilities {
	var caps Capabilities

	if fn := lookupSymbol(handle, CapInit); fn != nil {
		caps.Init = func(sampleRate, bufferSize, oversample int) Handle {
			ctx := C.host_call_init(fn, C.int(sampleRate), C.int(bufferSize), C.int(oversample))
			if ctx == nil {
				return nil
			}
			return ctx
		}
	}

	if fn := lookupSymbol(handle, CapProcess); fn != nil {
		caps.Process = func(h Handle, in, out []float32, frames, channels int) {
			C.host_call_process(fn, nativeHandle(h), floatPtr(in), floatPtr(out), C.int(frames), C.int(channels))
		}
	}

	if fn := lookupSymbol(handle, CapCleanup); fn != nil {
		caps.Cleanup = func(h Handle) {
			C.host_call_cleanup(fn, nativeHandle(h))
		}
	}

	if fn := lookupSymbol(handle, CapSetParameter); fn != nil {
		caps.SetParameter = func(h Handle, name string, value float64) {
			cName := C.CString(name)
			defer C.free(unsafe.Pointer(cName))
			C.host_call_set_parameter(fn, nativeHandle(h), cName, C.double(value))
		}
	}

	if fn := lookupSymbol(handle, CapGetParameter); fn != nil {
		caps.GetParameter = func(h Handle, name string) float64 {
			cName := C.CString(name)
			defer C.free(unsafe.Pointer(cName))
			return float64(C.host_call_get_parameter(fn, nativeHandle(h), cName))
		}
	}

	if fn := lookupSymbol(handle, CapNumParameters); fn != nil {
		caps.NumParameters = func(h Handle) int {
			return int(C.host_call_num_parameters(fn, nativeHandle(h)))
		}
	}

	if fn := lookupSymbol(handle, CapParameterName); fn != nil {
		caps.ParameterName = func(h Handle, index int) (string, bool) {
			name := C.host_call_parameter_name(fn, nativeHandle(h), C.int(index))
			if name == nil {
				return "", false
			}
			return C.GoString(name), true
		}
	}

	if fn := lookupSymbol(handle, CapGetInfo); fn != nil {
		caps.GetInfo = func() (Info, bool) {
			info := C.host_call_get_info(fn)
			if info == nil {
				return Info{}, false
			}
			return Info{
				Name:                  C.GoString(info.name),
				Description:           C.GoString(info.description),
				NumInputs:             int(info.num_inputs),
				NumOutputs:            int(info.num_outputs),
				RecommendedOversample: int(info.recommended_oversample),
				RecommendedIterations: int(info.recommended_iterations),
			}, true
		}
	}

	return caps
}
