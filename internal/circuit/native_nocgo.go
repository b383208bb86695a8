//go:build !cgo

package circuit

import "errors"

func openNative(string) (library, error) {
	return nil, errors.New("native circuit modules require a cgo-enabled build")
}
