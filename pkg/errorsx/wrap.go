package errorsx

import "errors"

// ReasonedError tags an error with the reason the HTTP surface and the CLI
// use to pick a status and label. The turn-fatal reasons come from the
// orchestrator; the per-tool reasons stay inside tool result payloads.
type ReasonedError struct {
	Err    error
	Reason ReasonCode
}

func (e ReasonedError) Error() string {
	if e.Err == nil {
		return string(e.Reason)
	}
	return e.Err.Error()
}

func (e ReasonedError) Unwrap() error {
	return e.Err
}

// New creates a reasoned error. An empty message takes the reason's Label,
// so New(ReasonUnauthorized, "") reads "Unauthorized".
func New(reason ReasonCode, message string) error {
	if message == "" {
		message = Label(reason)
	}
	return ReasonedError{Err: errors.New(message), Reason: reason}
}

// Wrap attaches reason to err. The innermost reason wins: an error that
// already carries one, such as a configuration failure passing through the
// orchestrator, is returned unchanged. Wrap(nil, r) is nil.
func Wrap(err error, reason ReasonCode) error {
	if err == nil {
		return nil
	}
	var re ReasonedError
	if errors.As(err, &re) {
		return err
	}
	return ReasonedError{Err: err, Reason: reason}
}

// Reason returns the first reason found in err's chain, or ReasonUnknown.
func Reason(err error) ReasonCode {
	if err == nil {
		return ReasonUnknown
	}
	var re ReasonedError
	if errors.As(err, &re) {
		return re.Reason
	}
	return ReasonUnknown
}

// HasReason reports whether err's reason is reason.
func HasReason(err error, reason ReasonCode) bool {
	return Reason(err) == reason
}
