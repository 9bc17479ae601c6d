package session

import (
	"context"
	"testing"

	"github.com/Setheum-Foundation/SignalMetadataKit/crypto/key_ed25519"
	"github.com/Setheum-Foundation/SignalMetadataKit/crypto/signer_schnorr"
	"github.com/Setheum-Foundation/SignalMetadataKit/protocol/address"
	"github.com/Setheum-Foundation/SignalMetadataKit/protocol/doubleratchet"
	"github.com/Setheum-Foundation/SignalMetadataKit/protocol/message"
	"github.com/Setheum-Foundation/SignalMetadataKit/protocol/record"
	"github.com/Setheum-Foundation/SignalMetadataKit/store"
	"github.com/Setheum-Foundation/SignalMetadataKit/store/memory"
	"github.com/google/uuid"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type device struct {
	addr  address.ProtocolAddress
	store *store.KVStore
}

func newDevice(t *testing.T, regID uint32) *device {
	t.Helper()
	ctx := context.Background()

	identity, err := key_ed25519.GeneratePair()
	require.NoError(t, err)
	st := store.NewKVStore(memory.New(), identity, regID)

	preKeys, err := record.GeneratePreKeys(1, 2)
	require.NoError(t, err)
	for i := range preKeys {
		require.NoError(t, st.StorePreKey(ctx, preKeys[i].ID, &preKeys[i]))
	}
	signed, err := record.GenerateSignedPreKey(identity, 1, 1000)
	require.NoError(t, err)
	require.NoError(t, st.StoreSignedPreKey(ctx, signed.ID, signed))
	kyber, err := record.GenerateKyberPreKey(identity, 1, 1000)
	require.NoError(t, err)
	require.NoError(t, st.StoreKyberPreKey(ctx, kyber.ID, kyber))

	return &device{addr: address.NewProtocolAddress(uuid.NewString(), 1), store: st}
}

func (d *device) bundle(t *testing.T, withPreKey, withKyber bool) *PreKeyBundle {
	t.Helper()
	var preKeyID, kyberID *uint32
	if withPreKey {
		id := uint32(1)
		preKeyID = &id
	}
	if withKyber {
		id := uint32(1)
		kyberID = &id
	}
	b, err := NewBundle(context.Background(), d.store, d.addr.DeviceID, preKeyID, 1, kyberID)
	require.NoError(t, err)
	return b
}

func (d *device) decrypt(t *testing.T, from *device, msg message.CiphertextMessage) ([]byte, error) {
	t.Helper()
	ctx := context.Background()
	switch msg.Type() {
	case message.PreKeyType:
		parsed, err := message.ParsePreKeySignalMessage(msg.Serialize())
		require.NoError(t, err)
		return DecryptPreKey(ctx, from.addr, parsed, d.store, d.store, d.store, d.store, d.store)
	case message.WhisperType:
		parsed, err := message.ParseSignalMessage(msg.Serialize())
		require.NoError(t, err)
		return DecryptSignal(ctx, from.addr, parsed, d.store, d.store)
	}
	t.Fatalf("unexpected type %s", msg.Type())
	return nil, nil
}

func TestSessionExchange(t *testing.T) {
	tests := []struct {
		name       string
		withPreKey bool
		withKyber  bool
	}{
		{"signed pre-key only", false, false},
		{"with one-time pre-key", true, false},
		{"with kyber pre-key", false, true},
		{"with both", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			alice, bob := newDevice(t, 1), newDevice(t, 2)

			require.NoError(t, ProcessPreKeyBundle(ctx, bob.addr, bob.bundle(t, tt.withPreKey, tt.withKyber), alice.store, alice.store))

			// Alice sends pre-key messages until Bob replies
			first, err := Encrypt(ctx, []byte("hello bob"), bob.addr, alice.store, alice.store)
			require.NoError(t, err)
			assert.Equal(t, message.PreKeyType, first.Type())
			second, err := Encrypt(ctx, []byte("are you there"), bob.addr, alice.store, alice.store)
			require.NoError(t, err)
			assert.Equal(t, message.PreKeyType, second.Type())

			pt, err := bob.decrypt(t, alice, first)
			require.NoError(t, err)
			assert.Equal(t, []byte("hello bob"), pt)

			// The second message reuses the session built for the first
			pt, err = bob.decrypt(t, alice, second)
			require.NoError(t, err)
			assert.Equal(t, []byte("are you there"), pt)

			_, err = bob.store.LoadPreKey(ctx, 1)
			if tt.withPreKey {
				assert.ErrorIs(t, err, store.ErrNotFound, "one-time pre-key is consumed")
			} else {
				assert.NoError(t, err)
			}
			kyber, err := bob.store.LoadKyberPreKey(ctx, 1)
			require.NoError(t, err)
			assert.Equal(t, tt.withKyber, kyber.Used)

			reply, err := Encrypt(ctx, []byte("hi alice"), alice.addr, bob.store, bob.store)
			require.NoError(t, err)
			assert.Equal(t, message.WhisperType, reply.Type())
			pt, err = alice.decrypt(t, bob, reply)
			require.NoError(t, err)
			assert.Equal(t, []byte("hi alice"), pt)

			next, err := Encrypt(ctx, []byte("great"), bob.addr, alice.store, alice.store)
			require.NoError(t, err)
			assert.Equal(t, message.WhisperType, next.Type())
			pt, err = bob.decrypt(t, alice, next)
			require.NoError(t, err)
			assert.Equal(t, []byte("great"), pt)

			remote, err := bob.store.GetIdentity(ctx, alice.addr)
			require.NoError(t, err)
			assert.True(t, remote.Equals(alice.identity(t)))
		})
	}
}

func (d *device) identity(t *testing.T) key_ed25519.PublicKey {
	pair, err := d.store.GetIdentityKeyPair(context.Background())
	require.NoError(t, err)
	return pair.Pub
}

func TestProcessBundleRejectsBadSignature(t *testing.T) {
	ctx := context.Background()
	alice, bob := newDevice(t, 1), newDevice(t, 2)

	b := bob.bundle(t, true, true)
	b.SignedPreKeySig = append([]byte(nil), b.KyberPreKeySig...)
	err := ProcessPreKeyBundle(ctx, bob.addr, b, alice.store, alice.store)
	assert.ErrorIs(t, err, signer_schnorr.ErrInvalidSignature)

	_, err = alice.store.LoadSession(ctx, bob.addr)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUntrustedIdentity(t *testing.T) {
	ctx := context.Background()
	alice, bob, mallory := newDevice(t, 1), newDevice(t, 2), newDevice(t, 3)

	require.NoError(t, ProcessPreKeyBundle(ctx, bob.addr, bob.bundle(t, false, false), alice.store, alice.store))

	// Mallory's bundle presented under Bob's address
	err := ProcessPreKeyBundle(ctx, bob.addr, mallory.bundle(t, false, false), alice.store, alice.store)
	assert.ErrorIs(t, err, ErrUntrustedIdentity)
}

func TestEncryptWithoutSession(t *testing.T) {
	alice, bob := newDevice(t, 1), newDevice(t, 2)
	_, err := Encrypt(context.Background(), []byte("x"), bob.addr, alice.store, alice.store)
	assert.ErrorIs(t, err, ErrNoSession)

	msg, err := message.NewSignalMessage(newHeader(t), []byte("ciphertext"))
	require.NoError(t, err)
	_, err = DecryptSignal(context.Background(), alice.addr, msg, bob.store, bob.store)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestFailedPreKeyDecryptCommitsNothing(t *testing.T) {
	ctx := context.Background()
	alice, bob := newDevice(t, 1), newDevice(t, 2)
	require.NoError(t, ProcessPreKeyBundle(ctx, bob.addr, bob.bundle(t, true, true), alice.store, alice.store))

	out, err := Encrypt(ctx, []byte("hello"), bob.addr, alice.store, alice.store)
	require.NoError(t, err)
	msg, err := message.ParsePreKeySignalMessage(out.Serialize())
	require.NoError(t, err)

	inner := msg.SignalMessage()
	tampered, err := message.NewSignalMessage(inner.Header, append([]byte{inner.Ciphertext[0] ^ 0xff}, inner.Ciphertext[1:]...))
	require.NoError(t, err)
	bad, err := message.NewPreKeySignalMessage(*msg, tampered)
	require.NoError(t, err)

	_, err = DecryptPreKey(ctx, alice.addr, bad, bob.store, bob.store, bob.store, bob.store, bob.store)
	assert.Error(t, err)

	_, err = bob.store.LoadSession(ctx, alice.addr)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = bob.store.LoadPreKey(ctx, 1)
	assert.NoError(t, err, "pre-key kept after failed decrypt")
	kyber, err := bob.store.LoadKyberPreKey(ctx, 1)
	require.NoError(t, err)
	assert.False(t, kyber.Used)

	// The untouched message still decrypts
	pt, err := DecryptPreKey(ctx, alice.addr, msg, bob.store, bob.store, bob.store, bob.store, bob.store)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), pt)
}

func TestMissingPreKey(t *testing.T) {
	ctx := context.Background()
	alice, bob := newDevice(t, 1), newDevice(t, 2)
	require.NoError(t, ProcessPreKeyBundle(ctx, bob.addr, bob.bundle(t, true, false), alice.store, alice.store))
	out, err := Encrypt(ctx, []byte("hello"), bob.addr, alice.store, alice.store)
	require.NoError(t, err)

	require.NoError(t, bob.store.RemovePreKey(ctx, 1))
	_, err = bob.decrypt(t, alice, out)
	assert.ErrorIs(t, err, ErrInvalidPreKeyID)

	missing := uint32(77)
	_, err = NewBundle(ctx, bob.store, 1, &missing, 1, nil)
	assert.ErrorIs(t, err, ErrInvalidPreKeyID)
}

func newHeader(t *testing.T) doubleratchet.Header {
	t.Helper()
	pair, err := key_ed25519.GeneratePair()
	require.NoError(t, err)
	return doubleratchet.Header{RatchetPub: pair.Pub}
}
