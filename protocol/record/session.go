package record

import (
	"encoding/json"

	"github.com/Setheum-Foundation/SignalMetadataKit/crypto/key_ed25519"
	"github.com/Setheum-Foundation/SignalMetadataKit/protocol/doubleratchet"
)

// maxArchivedStates bounds the previous session states kept after a session is replaced
const maxArchivedStates = 40

// PendingPreKey is what Alice remembers from Bob's bundle until Bob replies;
// while it is set every outgoing message is a pre-key message.
type PendingPreKey struct {
	PreKeyID        *uint32               `json:"pre_key_id,omitempty"`
	SignedPreKeyID  uint32                `json:"signed_pre_key_id"`
	KyberPreKeyID   *uint32               `json:"kyber_pre_key_id,omitempty"`
	KyberCiphertext []byte                `json:"kyber_ciphertext,omitempty"`
	BaseKey         key_ed25519.PublicKey `json:"base_key"`
}

type SessionState struct {
	LocalIdentity        key_ed25519.PublicKey `json:"local_identity"`
	RemoteIdentity       key_ed25519.PublicKey `json:"remote_identity"`
	LocalRegistrationID  uint32                `json:"local_registration_id"`
	RemoteRegistrationID uint32                `json:"remote_registration_id"`
	// AliceBaseKey identifies the key agreement that created this state
	AliceBaseKey key_ed25519.PublicKey `json:"alice_base_key"`
	Ratchet      *doubleratchet.State  `json:"ratchet"`
	Pending      *PendingPreKey        `json:"pending,omitempty"`
}

// Clone returns a deep copy so a failed operation can be thrown away.
func (s *SessionState) Clone() *SessionState {
	c := *s
	c.LocalIdentity = s.LocalIdentity.Clone()
	c.RemoteIdentity = s.RemoteIdentity.Clone()
	c.AliceBaseKey = s.AliceBaseKey.Clone()
	if s.Ratchet != nil {
		c.Ratchet = s.Ratchet.Clone()
	}
	if s.Pending != nil {
		p := *s.Pending
		c.Pending = &p
	}
	return &c
}

// SessionRecord is the current session with a peer device plus the states it replaced.
type SessionRecord struct {
	Current  *SessionState   `json:"current,omitempty"`
	Previous []*SessionState `json:"previous,omitempty"`
}

func NewSessionRecord() *SessionRecord {
	return &SessionRecord{}
}

func DeserializeSessionRecord(data []byte) (*SessionRecord, error) {
	var r SessionRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *SessionRecord) Serialize() ([]byte, error) {
	return json.Marshal(r)
}

func (r *SessionRecord) HasCurrentSession() bool {
	return r != nil && r.Current != nil && r.Current.Ratchet != nil
}

// PromoteState makes state the current one, archiving the previous current state.
func (r *SessionRecord) PromoteState(state *SessionState) {
	if r.Current != nil {
		r.Previous = append([]*SessionState{r.Current}, r.Previous...)
		if len(r.Previous) > maxArchivedStates {
			r.Previous = r.Previous[:maxArchivedStates]
		}
	}
	r.Current = state
}

// PromoteArchived moves the archived state at index i back to current.
func (r *SessionRecord) PromoteArchived(i int) {
	state := r.Previous[i]
	r.Previous = append(r.Previous[:i:i], r.Previous[i+1:]...)
	r.PromoteState(state)
}

// HasBaseKey reports whether any state was created by the key agreement with this base key.
func (r *SessionRecord) HasBaseKey(baseKey key_ed25519.PublicKey) bool {
	if r.Current != nil && r.Current.AliceBaseKey.Equals(baseKey) {
		return true
	}
	for _, s := range r.Previous {
		if s.AliceBaseKey.Equals(baseKey) {
			return true
		}
	}
	return false
}
