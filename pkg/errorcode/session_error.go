package errorcode

import "fmt"

// Session stages reported in a SessionError.
const (
	StageRound   = "round"
	StageKey     = "key"
	StageBeacon  = "beacon"
	StageBind    = "bind"
	StageSetup   = "setup"
	StageProve   = "prove"
	StageDecode  = "decode"
	StagePersist = "persist"
)

// SessionError attaches the failing stage and the underlying cause to one of the error codes in this package.
//
// `errors.Cause(err)` from github.com/pkg/errors resolves to `Code`, and so does `errors.Is(err, Code)`, so callers can
// keep comparing against the sentinel errors the same way the service layer always did.
type SessionError struct {
	Code  error
	Stage string
	Err   error
}

// New creates a SessionError. `err` may be nil when the code itself says everything.
func New(code error, stage string, err error) error {
	return &SessionError{Code: code, Stage: stage, Err: err}
}

func (e *SessionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v: %v", e.Stage, e.Code)
	}

	return fmt.Sprintf("%v: %v: %v", e.Stage, e.Code, e.Err)
}

// Cause implements the `causer` interface of github.com/pkg/errors.
func (e *SessionError) Cause() error {
	return e.Code
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

func (e *SessionError) Is(target error) bool {
	return target == e.Code
}
