package cache

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable indica una falla de conectividad o de ejecución del
	// batch en el cache. Los callers deben degradar al store durable, no
	// fallar el request.
	ErrUnavailable = errors.New("cache unavailable")

	// ErrNotFound indica que la key no existe en el cache.
	ErrNotFound = errors.New("cache: key not found")
)

// IsUnavailable verifica si el error es ErrUnavailable.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// IsNotFound verifica si el error es ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Unavailable envuelve err como ErrUnavailable preservando la causa.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}
