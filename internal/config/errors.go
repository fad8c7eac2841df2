package config

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)

// WrapKind tags err with a sentinel kind and the operation that failed.
func WrapKind(kind error, op string, err error) error {
	return fmt.Errorf("%w: %s: %w", kind, op, err)
}
