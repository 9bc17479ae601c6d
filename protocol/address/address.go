// Package address holds the participant identifiers routed by the protocol.
package address

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
)

// DeviceID identifies one of a participant's devices.
type DeviceID uint32

// MaxDeviceID is the largest device id that may be exposed publicly; device
// ids travel as uint32 but are surfaced as int32.
const MaxDeviceID DeviceID = math.MaxInt32

var (
	ErrInvalidAddress = errors.New("address must carry a uuid or an e164")
)

// Address identifies a participant by a stable UUID and/or a legacy E164
// phone number. At least one is present.
type Address struct {
	UUID uuid.UUID `json:"uuid"`
	E164 string    `json:"e164,omitempty"`
}

// New parses uuidString (may be empty) and pairs it with e164 (may be empty).
func New(uuidString, e164 string) (Address, error) {
	var a Address
	if uuidString != "" {
		id, err := uuid.Parse(uuidString)
		if err != nil {
			return Address{}, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
		}
		a.UUID = id
	}
	a.E164 = e164
	if err := a.Validate(); err != nil {
		return Address{}, err
	}
	return a, nil
}

// FromUUID builds an address carrying only a UUID.
func FromUUID(id uuid.UUID) Address {
	return Address{UUID: id}
}

func (a Address) HasUUID() bool {
	return a.UUID != uuid.Nil
}

func (a Address) HasE164() bool {
	return a.E164 != ""
}

func (a Address) Validate() error {
	if !a.HasUUID() && !a.HasE164() {
		return ErrInvalidAddress
	}
	return nil
}

// UUIDString returns the UUID as a string, or "" when absent.
func (a Address) UUIDString() string {
	if !a.HasUUID() {
		return ""
	}
	return a.UUID.String()
}

// Matches reports whether either identifier component is present in both
// addresses and equal.
func (a Address) Matches(other Address) bool {
	if a.HasUUID() && other.HasUUID() && a.UUID == other.UUID {
		return true
	}
	return a.HasE164() && other.HasE164() && a.E164 == other.E164
}

// ProtocolAddress resolves the address to a routable name, preferring the UUID.
func (a Address) ProtocolAddress(deviceID DeviceID) (ProtocolAddress, error) {
	switch {
	case a.HasUUID():
		return NewProtocolAddress(a.UUID.String(), deviceID), nil
	case a.HasE164():
		return NewProtocolAddress(a.E164, deviceID), nil
	default:
		return ProtocolAddress{}, ErrInvalidAddress
	}
}

func (a Address) String() string {
	switch {
	case a.HasUUID() && a.HasE164():
		return a.UUID.String() + " (" + a.E164 + ")"
	case a.HasUUID():
		return a.UUID.String()
	default:
		return a.E164
	}
}
