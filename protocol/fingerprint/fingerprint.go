// Package fingerprint computes safety numbers, which two users compare out of
// band to confirm they hold each other's identity keys.
package fingerprint

import (
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/Setheum-Foundation/SignalMetadataKit/crypto/key_ed25519"
	"github.com/Setheum-Foundation/SignalMetadataKit/protocol/address"
)

const (
	iterations = 5200
	version    = 0
	// Each half of a safety number is six chunks of five digits
	chunks      = 6
	chunkDigits = 5
)

var (
	ErrMissingIdentifier = errors.New("address has no stable identifier")
)

// SafetyNumber returns the 60 digit number for a pair of identities. Both
// sides compute the same number.
func SafetyNumber(localKey key_ed25519.PublicKey, local address.Address, remoteKey key_ed25519.PublicKey, remote address.Address) (string, error) {
	localHalf, err := displayable(localKey, local)
	if err != nil {
		return "", err
	}
	remoteHalf, err := displayable(remoteKey, remote)
	if err != nil {
		return "", err
	}
	if localHalf > remoteHalf {
		localHalf, remoteHalf = remoteHalf, localHalf
	}
	return localHalf + remoteHalf, nil
}

// Format splits a safety number into groups of five digits.
func Format(number string) string {
	var groups []string
	for len(number) > chunkDigits {
		groups = append(groups, number[:chunkDigits])
		number = number[chunkDigits:]
	}
	return strings.Join(append(groups, number), " ")
}

func displayable(key key_ed25519.PublicKey, addr address.Address) (string, error) {
	if err := key.Validate(); err != nil {
		return "", fmt.Errorf("invalid identity key: %w", err)
	}
	id := addr.UUIDString()
	if id == "" {
		id = addr.E164
	}
	if id == "" {
		return "", ErrMissingIdentifier
	}

	// 1. Iterated hash over the key and the identifier
	digest := make([]byte, 0, 2+len(key)+len(id))
	digest = binary.BigEndian.AppendUint16(digest, version)
	digest = append(digest, key...)
	digest = append(digest, id...)
	hash := sha512.New()
	for i := 0; i < iterations; i++ {
		hash.Write(digest)
		hash.Write(key)
		digest = hash.Sum(nil)
		hash.Reset()
	}

	// 2. Five bytes per chunk, reduced to five digits
	var sb strings.Builder
	for i := 0; i < chunks; i++ {
		chunk := digest[i*5 : (i+1)*5]
		num := binary.BigEndian.Uint64(append([]byte{0, 0, 0}, chunk...)) % 100000
		fmt.Fprintf(&sb, "%05d", num)
	}
	return sb.String(), nil
}
