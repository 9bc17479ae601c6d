package doubleratchet

import (
	"encoding/json"

	"github.com/Setheum-Foundation/SignalMetadataKit/crypto/key_ed25519"
)

type (
	MsgIndex   uint32
	MsgKey     [32]byte
	RatchetKey [32]byte
)

type Header struct {
	RatchetPub key_ed25519.PublicKey `json:"ratchet_pub"`
	// Pn is the number of messages in previous chain
	Pn MsgIndex `json:"pn"`
	// N is the message number
	N MsgIndex `json:"n"`
}

func UnmarshalHeader(data []byte) (*Header, error) {
	var h Header
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (h *Header) Equals(other *Header) bool {
	if h == nil || other == nil {
		return false
	}
	return h.RatchetPub.Equals(other.RatchetPub) && h.Pn == other.Pn && h.N == other.N
}

func (h *Header) Marshal() ([]byte, error) {
	return json.Marshal(h)
}

// State ref: https://signal.org/docs/specifications/doubleratchet/#state-variables
// The fields are exported so session records can persist the state as JSON.
type State struct {
	// Dhs is the DH Ratchet key pair (the “sending” or “self” ratchet key)
	Dhs key_ed25519.Pair `json:"dhs"`
	// Dhr is the DH Ratchet public key (the “received” or “remote” key)
	// Not initialized at the beginning for Bob
	Dhr key_ed25519.PublicKey `json:"dhr,omitempty"`
	// Rk is the 32-byte Root Key
	Rk RatchetKey `json:"rk"`
	// Cks and Ckr are 32-byte Chain Keys for sending and receiving
	// Cks is not initialized at the beginning for Bob
	// Ckr is not initialized at the beginning for Alice
	Cks *RatchetKey `json:"cks,omitempty"`
	Ckr *RatchetKey `json:"ckr,omitempty"`
	// Ns and Nr are message numbers for sending and receiving
	Ns MsgIndex `json:"ns"`
	Nr MsgIndex `json:"nr"`
	// Pn is the number of messages in previous sending chain
	Pn MsgIndex `json:"pn"`
	// SendRatchetPending is set once a new remote ratchet key arrived; the next
	// Encrypt performs a DH ratchet step before sending
	SendRatchetPending bool `json:"send_ratchet_pending,omitempty"`
	// MkSkipped holds skipped-over message keys, indexed by ratchet public key and message number
	MkSkipped []SkippedKey `json:"mk_skipped,omitempty"`
}

type SkippedKey struct {
	RatchetPub key_ed25519.PublicKey `json:"ratchet_pub"`
	N          MsgIndex              `json:"n"`
	Key        MsgKey                `json:"key"`
}

// Clone returns a deep copy of the state, so a failed decrypt can be discarded.
func (s *State) Clone() *State {
	c := *s
	c.Dhs = key_ed25519.Pair{
		Priv: append(key_ed25519.PrivateKey(nil), s.Dhs.Priv...),
		Pub:  s.Dhs.Pub.Clone(),
	}
	c.Dhr = s.Dhr.Clone()
	if s.Cks != nil {
		cks := *s.Cks
		c.Cks = &cks
	}
	if s.Ckr != nil {
		ckr := *s.Ckr
		c.Ckr = &ckr
	}
	c.MkSkipped = append([]SkippedKey(nil), s.MkSkipped...)
	return &c
}

func (s *State) findSkipped(ratchetPub key_ed25519.PublicKey, n MsgIndex) (int, bool) {
	for i, sk := range s.MkSkipped {
		if sk.N == n && sk.RatchetPub.Equals(ratchetPub) {
			return i, true
		}
	}
	return -1, false
}
