package address

import "fmt"

// ProtocolAddress is the routable (name, device) pair sessions are keyed by.
type ProtocolAddress struct {
	Name     string   `json:"name"`
	DeviceID DeviceID `json:"device_id"`
}

func NewProtocolAddress(name string, deviceID DeviceID) ProtocolAddress {
	return ProtocolAddress{Name: name, DeviceID: deviceID}
}

func (p ProtocolAddress) String() string {
	return fmt.Sprintf("%s.%d", p.Name, p.DeviceID)
}
