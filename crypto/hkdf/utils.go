package hkdf

import (
	"hash"
	"io"

	"github.com/Setheum-Foundation/SignalMetadataKit/configs"
	"github.com/Setheum-Foundation/SignalMetadataKit/crypto"

	"golang.org/x/crypto/hkdf"
)

// New32BytesKeyFromSecret derives a new 32-byte key from a secret using HKDF
func New32BytesKeyFromSecret(secret []byte) ([]byte, error) {
	return DeriveKey(secret, nil, configs.HKDFInfo, crypto.KeySize)
}

// DeriveKey reads n bytes of HKDF-SHA256 output for the given secret, salt and info.
func DeriveKey(secret, salt, info []byte, n int) ([]byte, error) {
	key := make([]byte, n)
	if _, err := KDF(crypto.DefaultHashFunc, secret, salt, info, key); err != nil {
		return nil, err
	}
	return key, nil
}

// KDF to help with the ratchet
func KDF(hash func() hash.Hash, keyMaterial []byte, salt []byte, info []byte, buffer []byte) (int, error) {
	hkdfReader := hkdf.New(hash, keyMaterial, salt, info)
	return io.ReadFull(hkdfReader, buffer)
}
