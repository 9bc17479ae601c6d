package groups

import "errors"

var (
	ErrNoSenderKey         = errors.New("no sender key state")
	ErrNoSigningKey        = errors.New("sender key state has no private signing key")
	ErrDuplicateMessage    = errors.New("duplicate sender key message")
	ErrTooFarIntoFuture    = errors.New("sender key message too far into the future")
	ErrDistributionMissing = errors.New("message for unknown distribution id")
)
