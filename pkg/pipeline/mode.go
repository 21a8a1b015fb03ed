package pipeline

import (
	"strings"

	lperrors "github.com/vnykmshr/logpipe/pkg/common/errors"
)

// Mode selects how consumer and rotator are mapped onto executors.
type Mode string

const (
	// ModeOneExecutor runs consumer and rotator on one shared executor.
	ModeOneExecutor Mode = "one"

	// ModeTwoExecutors gives consumer and rotator an executor each.
	ModeTwoExecutors Mode = "two"
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	return string(m)
}

// ParseMode converts a user supplied value into a Mode.
// Accepted values are "one", "1", "two" and "2", case-insensitive.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "one", "1":
		return ModeOneExecutor, nil
	case "two", "2":
		return ModeTwoExecutors, nil
	}
	return "", lperrors.NewValidationError("pipeline", "mode", s, "unknown executor mode").
		WithHint(`use "one" or "two"`)
}
