package message

import (
	"testing"

	"github.com/Setheum-Foundation/SignalMetadataKit/crypto/key_ed25519"
	"github.com/Setheum-Foundation/SignalMetadataKit/crypto/signer_schnorr"
	"github.com/Setheum-Foundation/SignalMetadataKit/protocol/doubleratchet"
	"github.com/google/uuid"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSignalMessage(t *testing.T) *SignalMessage {
	t.Helper()
	pair, err := key_ed25519.GeneratePair()
	require.NoError(t, err)
	m, err := NewSignalMessage(doubleratchet.Header{RatchetPub: pair.Pub, Pn: 1, N: 7}, []byte("ciphertext"))
	require.NoError(t, err)
	return m
}

func TestSignalMessage(t *testing.T) {
	m := newSignalMessage(t)
	assert.Equal(t, WhisperType, m.Type())

	parsed, err := ParseSignalMessage(m.Serialize())
	require.NoError(t, err)
	assert.True(t, m.Header.Equals(&parsed.Header))
	assert.Equal(t, m.Ciphertext, parsed.Ciphertext)
	assert.Equal(t, m.Serialize(), parsed.Serialize())
}

func TestParseErrors(t *testing.T) {
	good := newSignalMessage(t).Serialize()

	wrongVersion := append([]byte(nil), good...)
	wrongVersion[0] = 0x33
	truncated := good[:len(good)/2]

	tests := []struct {
		name  string
		data  []byte
		parse func([]byte) error
		want  error
	}{
		{"empty signal", nil, func(b []byte) error { _, err := ParseSignalMessage(b); return err }, ErrMessageTooShort},
		{"old version", wrongVersion, func(b []byte) error { _, err := ParseSignalMessage(b); return err }, ErrUnsupportedVersion},
		{"truncated signal", truncated, func(b []byte) error { _, err := ParseSignalMessage(b); return err }, ErrInvalidMessage},
		{"signal as prekey", good, func(b []byte) error { _, err := ParsePreKeySignalMessage(b); return err }, ErrInvalidMessage},
		{"short sender key", []byte{versionByte, '{'}, func(b []byte) error { _, err := ParseSenderKeyMessage(b); return err }, ErrMessageTooShort},
		{"plaintext without marker", good, func(b []byte) error { _, err := ParsePlaintextContent(b); return err }, ErrInvalidMessage},
		{"empty plaintext", nil, func(b []byte) error { _, err := ParsePlaintextContent(b); return err }, ErrMessageTooShort},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.parse(tt.data), tt.want)
		})
	}
}

func TestPreKeySignalMessage(t *testing.T) {
	inner := newSignalMessage(t)
	base, err := key_ed25519.GeneratePair()
	require.NoError(t, err)
	identity, err := key_ed25519.GeneratePair()
	require.NoError(t, err)

	preKeyID := uint32(9)
	kyberID := uint32(4)
	m, err := NewPreKeySignalMessage(PreKeySignalMessage{
		RegistrationID:  1234,
		PreKeyID:        &preKeyID,
		SignedPreKeyID:  2,
		KyberPreKeyID:   &kyberID,
		KyberCiphertext: []byte("kyber"),
		BaseKey:         base.Pub,
		IdentityKey:     identity.Pub,
	}, inner)
	require.NoError(t, err)
	assert.Equal(t, PreKeyType, m.Type())

	parsed, err := ParsePreKeySignalMessage(m.Serialize())
	require.NoError(t, err)
	assert.Equal(t, uint32(1234), parsed.RegistrationID)
	require.NotNil(t, parsed.PreKeyID)
	assert.Equal(t, preKeyID, *parsed.PreKeyID)
	assert.True(t, parsed.BaseKey.Equals(base.Pub))
	assert.Equal(t, inner.Serialize(), parsed.SignalMessage().Serialize())

	// A kyber ciphertext without its pre-key id is rejected
	m2, err := NewPreKeySignalMessage(PreKeySignalMessage{
		SignedPreKeyID:  2,
		KyberCiphertext: []byte("kyber"),
		BaseKey:         base.Pub,
		IdentityKey:     identity.Pub,
	}, inner)
	require.NoError(t, err)
	_, err = ParsePreKeySignalMessage(m2.Serialize())
	assert.ErrorIs(t, err, ErrInvalidMessage)
}

func TestSenderKeyMessage(t *testing.T) {
	signing, err := key_ed25519.GeneratePair()
	require.NoError(t, err)
	other, err := key_ed25519.GeneratePair()
	require.NoError(t, err)
	distID := uuid.New()

	m, err := NewSenderKeyMessage(distID, 11, 3, []byte("group ciphertext"), signing.Priv)
	require.NoError(t, err)
	assert.Equal(t, SenderKeyType, m.Type())

	parsed, err := ParseSenderKeyMessage(m.Serialize())
	require.NoError(t, err)
	assert.Equal(t, distID, parsed.DistributionID)
	assert.Equal(t, uint32(11), parsed.ChainID)
	assert.Equal(t, uint32(3), parsed.Iteration)
	assert.NoError(t, parsed.VerifySignature(signing.Pub))
	assert.ErrorIs(t, parsed.VerifySignature(other.Pub), signer_schnorr.ErrInvalidSignature)

	tampered := append([]byte(nil), m.Serialize()...)
	tampered[len(tampered)-SignatureSize-2] ^= 0x01
	if parsedTampered, err := ParseSenderKeyMessage(tampered); err == nil {
		assert.Error(t, parsedTampered.VerifySignature(signing.Pub))
	}
}

func TestSenderKeyDistributionMessage(t *testing.T) {
	signing, err := key_ed25519.GeneratePair()
	require.NoError(t, err)
	distID := uuid.New()

	m, err := NewSenderKeyDistributionMessage(distID, 5, 0, make([]byte, 32), signing.Pub)
	require.NoError(t, err)
	parsed, err := ParseSenderKeyDistributionMessage(m.Serialize())
	require.NoError(t, err)
	assert.Equal(t, distID, parsed.DistributionID)
	assert.True(t, parsed.SigningKey.Equals(signing.Pub))

	bad, err := NewSenderKeyDistributionMessage(distID, 5, 0, make([]byte, 5), signing.Pub)
	require.NoError(t, err)
	_, err = ParseSenderKeyDistributionMessage(bad.Serialize())
	assert.ErrorIs(t, err, ErrInvalidMessage)
}

func TestPlaintextContentDecryptionError(t *testing.T) {
	original := newSignalMessage(t)
	dem, err := NewDecryptionErrorMessage(original.Serialize(), WhisperType, 1700000000000, 3)
	require.NoError(t, err)
	assert.True(t, dem.RatchetKey.Equals(original.Header.RatchetPub))

	pc, err := PlaintextContentFromDecryptionError(dem)
	require.NoError(t, err)
	assert.Equal(t, PlaintextContentType, pc.Type())

	parsed, err := ParsePlaintextContent(pc.Serialize())
	require.NoError(t, err)
	assert.Equal(t, pc.Body(), parsed.Body())

	got, err := parsed.DecryptionError()
	require.NoError(t, err)
	assert.Equal(t, uint64(1700000000000), got.Timestamp)
	assert.Equal(t, uint32(3), got.DeviceID)

	_, err = NewPlaintextContent([]byte("just bytes")).DecryptionError()
	assert.ErrorIs(t, err, ErrNotDecryptionError)

	_, err = NewDecryptionErrorMessage(nil, CiphertextMessageType(42), 1, 1)
	assert.ErrorIs(t, err, ErrInvalidMessage)
}

func TestTypeString(t *testing.T) {
	assert.Equal(t, "whisper", WhisperType.String())
	assert.Equal(t, "unknown(42)", CiphertextMessageType(42).String())
}
