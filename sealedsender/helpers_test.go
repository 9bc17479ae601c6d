package sealedsender_test

import (
	"context"
	"testing"

	"github.com/Setheum-Foundation/SignalMetadataKit/crypto/key_ed25519"
	"github.com/Setheum-Foundation/SignalMetadataKit/protocol/address"
	"github.com/Setheum-Foundation/SignalMetadataKit/protocol/record"
	"github.com/Setheum-Foundation/SignalMetadataKit/protocol/session"
	"github.com/Setheum-Foundation/SignalMetadataKit/sealedsender"
	"github.com/Setheum-Foundation/SignalMetadataKit/store"
	"github.com/Setheum-Foundation/SignalMetadataKit/store/memory"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/stretchr/testify/require"
)

const (
	expiration = uint64(2_000_000)
	validAt    = uint64(1_000_000)
)

type trustChain struct {
	root      key_ed25519.Pair
	server    key_ed25519.Pair
	serverCrt *sealedsender.ServerCertificate
}

func newTrustChain(t *testing.T) *trustChain {
	t.Helper()
	root, err := key_ed25519.GeneratePair()
	require.NoError(t, err)
	server, err := key_ed25519.GeneratePair()
	require.NoError(t, err)
	crt, err := sealedsender.NewServerCertificate(1, server.Pub, root.Priv)
	require.NoError(t, err)
	return &trustChain{root: root, server: server, serverCrt: crt}
}

func (tc *trustChain) validator() *sealedsender.TrustRootValidator {
	return sealedsender.NewTrustRootValidator(tc.root.Pub)
}

func (tc *trustChain) certify(t *testing.T, addr address.Address, deviceID uint32, key key_ed25519.PublicKey, expires uint64) *sealedsender.SenderCertificate {
	t.Helper()
	crt, err := sealedsender.NewSenderCertificate(addr, deviceID, key, expires, tc.serverCrt, tc.server.Priv)
	require.NoError(t, err)
	return crt
}

type party struct {
	addr     address.Address
	deviceID uint32
	proto    address.ProtocolAddress
	identity key_ed25519.Pair
	regID    uint32
	store    *store.KVStore
	cipher   *sealedsender.Cipher
	hook     *test.Hook
}

func newParty(t *testing.T, addr address.Address, deviceID, regID uint32) *party {
	t.Helper()
	ctx := context.Background()

	identity, err := key_ed25519.GeneratePair()
	require.NoError(t, err)
	st := store.NewKVStore(memory.New(), identity, regID)

	preKeys, err := record.GeneratePreKeys(1, 1)
	require.NoError(t, err)
	require.NoError(t, st.StorePreKey(ctx, preKeys[0].ID, &preKeys[0]))
	signed, err := record.GenerateSignedPreKey(identity, 1, 1000)
	require.NoError(t, err)
	require.NoError(t, st.StoreSignedPreKey(ctx, signed.ID, signed))
	kyber, err := record.GenerateKyberPreKey(identity, 1, 1000)
	require.NoError(t, err)
	require.NoError(t, st.StoreKyberPreKey(ctx, kyber.ID, kyber))

	proto, err := addr.ProtocolAddress(address.DeviceID(deviceID))
	require.NoError(t, err)

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return &party{
		addr:     addr,
		deviceID: deviceID,
		proto:    proto,
		identity: identity,
		regID:    regID,
		store:    st,
		cipher:   sealedsender.NewCipher(sealedsender.StoresFrom(st), sealedsender.WithLogger(logger)),
		hook:     hook,
	}
}

func newUser(t *testing.T, regID uint32) *party {
	return newParty(t, address.FromUUID(uuid.New()), 1, regID)
}

// connect gives from a session with to, built from to's pre-key bundle.
func connect(t *testing.T, from, to *party) {
	t.Helper()
	ctx := context.Background()
	preKeyID, kyberID := uint32(1), uint32(1)
	bundle, err := session.NewBundle(ctx, to.store, to.proto.DeviceID, &preKeyID, 1, &kyberID)
	require.NoError(t, err)
	require.NoError(t, session.ProcessPreKeyBundle(ctx, to.proto, bundle, from.store, from.store))
}

func (p *party) decrypt(t *testing.T, sealed []byte, tc *trustChain) (*sealedsender.DecryptResult, error) {
	t.Helper()
	return p.cipher.Decrypt(context.Background(), sealed, tc.validator(), validAt, p.addr, p.deviceID)
}
