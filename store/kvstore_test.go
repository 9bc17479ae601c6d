package store_test

import (
	"context"
	"testing"

	"github.com/Setheum-Foundation/SignalMetadataKit/crypto/key_ed25519"
	"github.com/Setheum-Foundation/SignalMetadataKit/protocol/address"
	"github.com/Setheum-Foundation/SignalMetadataKit/protocol/record"
	"github.com/Setheum-Foundation/SignalMetadataKit/store"
	"github.com/Setheum-Foundation/SignalMetadataKit/store/memory"
	"github.com/google/uuid"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKVStore(t *testing.T) (*store.KVStore, key_ed25519.Pair) {
	t.Helper()
	identity, err := key_ed25519.GeneratePair()
	require.NoError(t, err)
	return store.NewKVStore(memory.New(), identity, 4242), identity
}

func TestLocalIdentity(t *testing.T) {
	s, identity := newKVStore(t)
	ctx := context.Background()

	pair, err := s.GetIdentityKeyPair(ctx)
	require.NoError(t, err)
	assert.Equal(t, identity, pair)

	regID, err := s.GetLocalRegistrationID(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(4242), regID)
}

func TestTrustOnFirstUse(t *testing.T) {
	s, _ := newKVStore(t)
	ctx := context.Background()
	bob := address.NewProtocolAddress(uuid.NewString(), 1)

	first, err := key_ed25519.GeneratePair()
	require.NoError(t, err)
	second, err := key_ed25519.GeneratePair()
	require.NoError(t, err)

	_, err = s.GetIdentity(ctx, bob)
	assert.ErrorIs(t, err, store.ErrNotFound)

	trusted, err := s.IsTrustedIdentity(ctx, bob, first.Pub, store.Sending)
	require.NoError(t, err)
	assert.True(t, trusted, "unknown identities are trusted")

	replaced, err := s.SaveIdentity(ctx, bob, first.Pub)
	require.NoError(t, err)
	assert.False(t, replaced)

	replaced, err = s.SaveIdentity(ctx, bob, first.Pub)
	require.NoError(t, err)
	assert.False(t, replaced)

	trusted, err = s.IsTrustedIdentity(ctx, bob, second.Pub, store.Receiving)
	require.NoError(t, err)
	assert.False(t, trusted, "a changed identity is not trusted")

	replaced, err = s.SaveIdentity(ctx, bob, second.Pub)
	require.NoError(t, err)
	assert.True(t, replaced)

	got, err := s.GetIdentity(ctx, bob)
	require.NoError(t, err)
	assert.True(t, got.Equals(second.Pub))
}

func TestSessions(t *testing.T) {
	s, _ := newKVStore(t)
	ctx := context.Background()
	bob := address.NewProtocolAddress(uuid.NewString(), 2)

	_, err := s.LoadSession(ctx, bob)
	assert.ErrorIs(t, err, store.ErrNotFound)

	rec := record.NewSessionRecord()
	rec.PromoteState(&record.SessionState{RemoteRegistrationID: 9})
	require.NoError(t, s.StoreSession(ctx, bob, rec))

	got, err := s.LoadSession(ctx, bob)
	require.NoError(t, err)
	require.NotNil(t, got.Current)
	assert.Equal(t, uint32(9), got.Current.RemoteRegistrationID)

	// Other devices of the same user have their own session
	_, err = s.LoadSession(ctx, address.NewProtocolAddress(bob.Name, 3))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPreKeys(t *testing.T) {
	s, identity := newKVStore(t)
	ctx := context.Background()

	preKeys, err := record.GeneratePreKeys(1, 2)
	require.NoError(t, err)
	for i := range preKeys {
		require.NoError(t, s.StorePreKey(ctx, preKeys[i].ID, &preKeys[i]))
	}
	got, err := s.LoadPreKey(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, preKeys[1].KeyPair, got.KeyPair)
	require.NoError(t, s.RemovePreKey(ctx, 2))
	_, err = s.LoadPreKey(ctx, 2)
	assert.ErrorIs(t, err, store.ErrNotFound)

	signed, err := record.GenerateSignedPreKey(identity, 7, 1000)
	require.NoError(t, err)
	require.NoError(t, s.StoreSignedPreKey(ctx, 7, signed))
	gotSigned, err := s.LoadSignedPreKey(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, signed.Signature, gotSigned.Signature)

	kyber, err := record.GenerateKyberPreKey(identity, 8, 1000)
	require.NoError(t, err)
	require.NoError(t, s.StoreKyberPreKey(ctx, 8, kyber))
	require.NoError(t, s.MarkKyberPreKeyUsed(ctx, 8))
	gotKyber, err := s.LoadKyberPreKey(ctx, 8)
	require.NoError(t, err)
	assert.True(t, gotKyber.Used)
	assert.ErrorIs(t, s.MarkKyberPreKeyUsed(ctx, 99), store.ErrNotFound)
}

func TestSenderKeys(t *testing.T) {
	s, _ := newKVStore(t)
	ctx := context.Background()
	alice := address.NewProtocolAddress(uuid.NewString(), 1)
	distID := uuid.New()

	_, err := s.LoadSenderKey(ctx, alice, distID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	rec := record.NewSenderKeyRecord()
	rec.AddState(&record.SenderKeyState{ChainID: 5})
	require.NoError(t, s.StoreSenderKey(ctx, alice, distID, rec))

	got, err := s.LoadSenderKey(ctx, alice, distID)
	require.NoError(t, err)
	state, err := got.CurrentState()
	require.NoError(t, err)
	assert.Equal(t, uint32(5), state.ChainID)

	_, err = s.LoadSenderKey(ctx, alice, uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}
