package repository

import (
	"errors"
	"fmt"

	"github.com/okian/scholardash/internal/domain/model"
)

// Sentinel kinds for table loading errors.
var (
	ErrMissingColumn = errors.New("missing column")
	ErrEmptyTable    = errors.New("table has no header")
	ErrUnknownBundle = errors.New("unknown data bundle")
)

// missing marks err as a MissingInput failure so analyses report the data
// as unavailable.
func missing(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", model.ErrMissingInput, op, err)
}
