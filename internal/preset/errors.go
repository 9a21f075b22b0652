package preset

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the codec and the store.
var (
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrJSONInvalid      = errors.New("invalid JSON")
	ErrMalformedPreset  = errors.New("malformed preset")
	ErrNotFound         = errors.New("no such preset")
	// ErrUnknownEffect wraps ErrMalformedPreset: an unknown selector is one
	// way a preset can be malformed, and callers matching on either work.
	ErrUnknownEffect = fmt.Errorf("unknown effect: %w", ErrMalformedPreset)
)
