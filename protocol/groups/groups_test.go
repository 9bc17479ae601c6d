package groups

import (
	"context"
	"testing"

	"github.com/Setheum-Foundation/SignalMetadataKit/crypto/key_ed25519"
	"github.com/Setheum-Foundation/SignalMetadataKit/crypto/signer_schnorr"
	"github.com/Setheum-Foundation/SignalMetadataKit/protocol/address"
	"github.com/Setheum-Foundation/SignalMetadataKit/protocol/message"
	"github.com/Setheum-Foundation/SignalMetadataKit/store"
	"github.com/Setheum-Foundation/SignalMetadataKit/store/memory"
	"github.com/google/uuid"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *store.KVStore {
	t.Helper()
	identity, err := key_ed25519.GeneratePair()
	require.NoError(t, err)
	return store.NewKVStore(memory.New(), identity, 1)
}

func setup(t *testing.T) (address.ProtocolAddress, uuid.UUID, *store.KVStore, *store.KVStore) {
	t.Helper()
	ctx := context.Background()
	alice := address.NewProtocolAddress(uuid.NewString(), 1)
	distID := uuid.New()
	aliceStore, bobStore := newStore(t), newStore(t)

	skdm, err := NewDistributionMessage(ctx, alice, distID, aliceStore)
	require.NoError(t, err)
	parsed, err := message.ParseSenderKeyDistributionMessage(skdm.Serialize())
	require.NoError(t, err)
	require.NoError(t, ProcessDistributionMessage(ctx, alice, parsed, bobStore))
	return alice, distID, aliceStore, bobStore
}

func TestGroupRoundTrip(t *testing.T) {
	ctx := context.Background()
	alice, distID, aliceStore, bobStore := setup(t)

	for _, text := range []string{"first", "second", "third"} {
		msg, err := Encrypt(ctx, alice, distID, []byte(text), aliceStore)
		require.NoError(t, err)
		assert.Equal(t, message.SenderKeyType, msg.Type())

		pt, err := Decrypt(ctx, alice, msg.Serialize(), bobStore)
		require.NoError(t, err)
		assert.Equal(t, []byte(text), pt)
	}
}

func TestDistributionMessageIsStable(t *testing.T) {
	ctx := context.Background()
	alice := address.NewProtocolAddress(uuid.NewString(), 1)
	distID := uuid.New()
	st := newStore(t)

	first, err := NewDistributionMessage(ctx, alice, distID, st)
	require.NoError(t, err)
	second, err := NewDistributionMessage(ctx, alice, distID, st)
	require.NoError(t, err)
	assert.Equal(t, first.ChainID, second.ChainID)
	assert.True(t, first.SigningKey.Equals(second.SigningKey))
}

func TestOutOfOrderAndDuplicate(t *testing.T) {
	ctx := context.Background()
	alice, distID, aliceStore, bobStore := setup(t)

	var msgs [][]byte
	for i := 0; i < 4; i++ {
		msg, err := Encrypt(ctx, alice, distID, []byte{byte(i)}, aliceStore)
		require.NoError(t, err)
		msgs = append(msgs, msg.Serialize())
	}

	for _, i := range []int{3, 1, 0, 2} {
		pt, err := Decrypt(ctx, alice, msgs[i], bobStore)
		require.NoError(t, err)
		assert.Equal(t, []byte{byte(i)}, pt)
	}

	_, err := Decrypt(ctx, alice, msgs[1], bobStore)
	assert.ErrorIs(t, err, ErrDuplicateMessage)
}

func TestDecryptFailures(t *testing.T) {
	ctx := context.Background()
	alice, distID, aliceStore, bobStore := setup(t)

	msg, err := Encrypt(ctx, alice, distID, []byte("hello"), aliceStore)
	require.NoError(t, err)

	t.Run("unknown sender", func(t *testing.T) {
		stranger := address.NewProtocolAddress(uuid.NewString(), 1)
		_, err := Decrypt(ctx, stranger, msg.Serialize(), bobStore)
		assert.ErrorIs(t, err, ErrDistributionMissing)
	})

	t.Run("bad signature", func(t *testing.T) {
		forged := append([]byte(nil), msg.Serialize()...)
		forged[len(forged)-1] ^= 0x01
		_, err := Decrypt(ctx, alice, forged, bobStore)
		assert.ErrorIs(t, err, signer_schnorr.ErrInvalidSignature)
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := Decrypt(ctx, alice, msg.Serialize()[:10], bobStore)
		assert.ErrorIs(t, err, message.ErrMessageTooShort)
	})

	t.Run("receiver cannot send", func(t *testing.T) {
		_, err := Encrypt(ctx, alice, distID, []byte("x"), bobStore)
		assert.ErrorIs(t, err, ErrNoSigningKey)
	})

	t.Run("no chain", func(t *testing.T) {
		_, err := Encrypt(ctx, alice, uuid.New(), []byte("x"), aliceStore)
		assert.ErrorIs(t, err, ErrNoSenderKey)
	})

	// Failures above did not consume the key
	pt, err := Decrypt(ctx, alice, msg.Serialize(), bobStore)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), pt)
}

func TestTooFarIntoFuture(t *testing.T) {
	ctx := context.Background()
	alice, distID, aliceStore, bobStore := setup(t)

	rec, err := aliceStore.LoadSenderKey(ctx, alice, distID)
	require.NoError(t, err)
	rec.States[0].ChainKey.Iteration = maxForwardJumps + 1
	require.NoError(t, aliceStore.StoreSenderKey(ctx, alice, distID, rec))

	msg, err := Encrypt(ctx, alice, distID, []byte("late"), aliceStore)
	require.NoError(t, err)
	_, err = Decrypt(ctx, alice, msg.Serialize(), bobStore)
	assert.ErrorIs(t, err, ErrTooFarIntoFuture)
}
