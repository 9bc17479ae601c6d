package record

import "errors"

var (
	ErrNoSenderKeyState = errors.New("no sender key state")
)
