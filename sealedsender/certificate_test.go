package sealedsender_test

import (
	"testing"

	"github.com/Setheum-Foundation/SignalMetadataKit/crypto/key_ed25519"
	"github.com/Setheum-Foundation/SignalMetadataKit/crypto/signer_schnorr"
	"github.com/Setheum-Foundation/SignalMetadataKit/protocol/address"
	"github.com/Setheum-Foundation/SignalMetadataKit/protocol/message"
	"github.com/Setheum-Foundation/SignalMetadataKit/sealedsender"
	"github.com/google/uuid"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSenderCertificate(t *testing.T) {
	tc := newTrustChain(t)
	identity, err := key_ed25519.GeneratePair()
	require.NoError(t, err)
	sender := address.Address{UUID: uuid.New(), E164: "+14155550100"}

	cert := tc.certify(t, sender, 7, identity.Pub, expiration)
	parsed, err := sealedsender.DeserializeSenderCertificate(cert.Serialize())
	require.NoError(t, err)
	assert.Equal(t, sender, parsed.Sender())
	assert.Equal(t, uint32(7), parsed.SenderDeviceID())
	assert.Equal(t, expiration, parsed.Expiration())
	assert.True(t, identity.Pub.Equals(parsed.Key()))
	assert.Equal(t, uint32(1), parsed.Signer().KeyID())

	tests := []struct {
		name    string
		root    key_ed25519.PublicKey
		at      uint64
		wantErr error
	}{
		{"valid", tc.root.Pub, validAt, nil},
		{"valid at expiration", tc.root.Pub, expiration, nil},
		{"expired", tc.root.Pub, expiration + 1, sealedsender.ErrCertificateExpired},
		{"wrong trust root", tc.server.Pub, validAt, signer_schnorr.ErrInvalidSignature},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := parsed.Validate(tt.root, tt.at)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, sealedsender.ErrInvalidCertificate)
		})
	}
}

func TestSenderCertificateSignedByOtherServer(t *testing.T) {
	tc := newTrustChain(t)
	identity, err := key_ed25519.GeneratePair()
	require.NoError(t, err)
	impostor, err := key_ed25519.GeneratePair()
	require.NoError(t, err)

	// Chains to the trust root, but signed with a key the server certificate does not name
	cert, err := sealedsender.NewSenderCertificate(address.FromUUID(uuid.New()), 1, identity.Pub, expiration, tc.serverCrt, impostor.Priv)
	require.NoError(t, err)
	assert.ErrorIs(t, cert.Validate(tc.root.Pub, validAt), sealedsender.ErrInvalidCertificate)
}

func TestRevokedServerCertificate(t *testing.T) {
	tc := newTrustChain(t)
	revoked, err := sealedsender.NewServerCertificate(0xDEADC357, tc.server.Pub, tc.root.Priv)
	require.NoError(t, err)
	assert.ErrorIs(t, revoked.Validate(tc.root.Pub), sealedsender.ErrRevokedCertificate)

	identity, err := key_ed25519.GeneratePair()
	require.NoError(t, err)
	cert, err := sealedsender.NewSenderCertificate(address.FromUUID(uuid.New()), 1, identity.Pub, expiration, revoked, tc.server.Priv)
	require.NoError(t, err)

	err = sealedsender.NewTrustRootValidator(tc.root.Pub).Validate(cert, validAt)
	assert.ErrorIs(t, err, sealedsender.ErrRevokedCertificate)
	assert.ErrorIs(t, err, sealedsender.ErrInvalidCertificate)
}

func TestTrustRootValidator(t *testing.T) {
	tc, other := newTrustChain(t), newTrustChain(t)
	identity, err := key_ed25519.GeneratePair()
	require.NoError(t, err)
	cert := tc.certify(t, address.FromUUID(uuid.New()), 1, identity.Pub, expiration)

	assert.NoError(t, sealedsender.NewTrustRootValidator(other.root.Pub, tc.root.Pub).Validate(cert, validAt))
	assert.ErrorIs(t, sealedsender.NewTrustRootValidator(other.root.Pub).Validate(cert, validAt), sealedsender.ErrInvalidCertificate)
	assert.ErrorIs(t, sealedsender.NewTrustRootValidator().Validate(cert, validAt), sealedsender.ErrInvalidCertificate)
	assert.ErrorIs(t, sealedsender.NewTrustRootValidator(tc.root.Pub).Validate(nil, validAt), sealedsender.ErrInvalidCertificate)

	err = sealedsender.NewTrustRootValidator(other.root.Pub, tc.root.Pub).Validate(cert, expiration+1)
	assert.ErrorIs(t, err, sealedsender.ErrCertificateExpired)
}

func TestDeserializeSenderCertificateErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"not json", []byte("certificate")},
		{"empty body", []byte(`{"certificate":"e30=","signature":""}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sealedsender.DeserializeSenderCertificate(tt.data)
			assert.ErrorIs(t, err, sealedsender.ErrInvalidCertificate)
		})
	}
}

func TestUnidentifiedSenderMessageContent(t *testing.T) {
	tc := newTrustChain(t)
	identity, err := key_ed25519.GeneratePair()
	require.NoError(t, err)
	cert := tc.certify(t, address.FromUUID(uuid.New()), 1, identity.Pub, expiration)

	content, err := sealedsender.NewUnidentifiedSenderMessageContent(message.WhisperType, cert, []byte("inner"), sealedsender.ContentHint(42), nil)
	require.NoError(t, err)
	assert.NotNil(t, content.GroupID())
	assert.Empty(t, content.GroupID())

	parsed, err := sealedsender.DeserializeUnidentifiedSenderMessageContent(content.Serialize())
	require.NoError(t, err)
	assert.Equal(t, message.WhisperType, parsed.MsgType())
	assert.Equal(t, []byte("inner"), parsed.Contents())
	assert.Equal(t, sealedsender.ContentHint(42), parsed.ContentHint(), "unknown hints pass through")
	assert.NotNil(t, parsed.GroupID())
	assert.Equal(t, cert.Serialize(), parsed.SenderCertificate().Serialize())

	_, err = sealedsender.NewUnidentifiedSenderMessageContent(message.WhisperType, nil, []byte("inner"), sealedsender.ContentHintDefault, nil)
	assert.ErrorIs(t, err, sealedsender.ErrInvalidArgument)
}
