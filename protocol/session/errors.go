package session

import "errors"

var (
	ErrNoSession         = errors.New("no session")
	ErrUntrustedIdentity = errors.New("untrusted identity")
	ErrInvalidPreKeyID   = errors.New("invalid pre-key id")
)
