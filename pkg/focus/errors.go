package focus

import (
	"errors"
	"fmt"
)

// Errors
var (
	ErrUnknownCommand  = errors.New("unknown command")
	ErrMissingArgument = errors.New("missing argument")
	ErrNotServing      = errors.New("not serving")
)

// ArgumentError reports a malformed argument.
type ArgumentError struct {
	Command string
	Arg     string
	Err     error
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%s: bad argument %q: %v", e.Command, e.Arg, e.Err)
}

// Unwrap returns the parse error.
func (e *ArgumentError) Unwrap() error {
	return e.Err
}
