package crypto

import "crypto/sha256"

var (
	DefaultHashFunc = sha256.New
)

const (
	HMACSHA256Size = 32
	// KeySize is the size of every symmetric key, chain key and serialized curve key
	KeySize = 32
)
