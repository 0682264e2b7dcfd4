package lifecycle

import "errors"

var (
	ErrNotFound           = errors.New("registration not found")
	ErrForbidden          = errors.New("forbidden")
	ErrNotPayable         = errors.New("registration is not awaiting payment")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrDeadlineExpired    = errors.New("payment deadline expired")
	ErrAlreadyPaid        = errors.New("registration already paid")
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrUnknownTrigger     = errors.New("unknown trigger")
)
