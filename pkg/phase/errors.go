package phase

import (
	"errors"

	pkgerrors "github.com/pkg/errors"
)

var (
	// ErrConfiguration is returned for a non-positive unit time or repeat count.
	ErrConfiguration = errors.New("invalid phase configuration")

	// ErrIllegalTransition is returned when an operation is not allowed in the
	// current phase. Callers recover by checking the snapshot again.
	ErrIllegalTransition = errors.New("illegal transition")
)

func configErrorf(format string, args ...any) error {
	return pkgerrors.Wrapf(ErrConfiguration, format, args...)
}

// IllegalTransition wraps ErrIllegalTransition with the rejected operation and
// the phase it was attempted in.
func IllegalTransition(op string, from Phase) error {
	return pkgerrors.Wrapf(ErrIllegalTransition, "cannot %s while %s", op, from)
}
