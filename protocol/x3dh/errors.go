package x3dh

import "errors"

var (
	ErrMissingKyberCiphertext = errors.New("kyber pre-key used but no kyber ciphertext")
	ErrUnexpectedKyber        = errors.New("kyber ciphertext without kyber pre-key")
)
