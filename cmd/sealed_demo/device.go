package main

import (
	"context"
	"fmt"

	"github.com/Setheum-Foundation/SignalMetadataKit/configs"
	"github.com/Setheum-Foundation/SignalMetadataKit/crypto/key_ed25519"
	"github.com/Setheum-Foundation/SignalMetadataKit/protocol/address"
	"github.com/Setheum-Foundation/SignalMetadataKit/protocol/record"
	"github.com/Setheum-Foundation/SignalMetadataKit/protocol/session"
	"github.com/Setheum-Foundation/SignalMetadataKit/sealedsender"
	"github.com/Setheum-Foundation/SignalMetadataKit/store"
	"github.com/Setheum-Foundation/SignalMetadataKit/store/memory"
	"github.com/Setheum-Foundation/SignalMetadataKit/store/redisstore"
	"github.com/Setheum-Foundation/SignalMetadataKit/store/sqlstore"
	"github.com/google/uuid"
)

// openBackend returns the backend selected by configs.StoreBackend and a func releasing it.
func openBackend(ctx context.Context) (store.Backend, func() error, error) {
	switch configs.StoreBackend {
	case "memory":
		return memory.New(), func() error { return nil }, nil
	case "redis":
		b, err := redisstore.Open(ctx, configs.RedisAddress)
		if err != nil {
			return nil, nil, err
		}
		return b, b.Close, nil
	case "sqlite":
		b, err := sqlstore.Open(sqlstore.DriverSQLite, configs.SQLDataSource)
		if err != nil {
			return nil, nil, err
		}
		return b, b.Close, nil
	case "postgres":
		b, err := sqlstore.Open(sqlstore.DriverPostgres, configs.SQLDataSource)
		if err != nil {
			return nil, nil, err
		}
		return b, b.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", configs.StoreBackend)
	}
}

type device struct {
	name   string
	addr   address.Address
	proto  address.ProtocolAddress
	key    key_ed25519.Pair
	store  *store.KVStore
	cipher *sealedsender.Cipher
	cert   *sealedsender.SenderCertificate
}

func newDevice(ctx context.Context, name string, backend store.Backend, regID uint32, issuer *issuer) (*device, error) {
	key, err := key_ed25519.GeneratePair()
	if err != nil {
		return nil, err
	}
	addr := address.FromUUID(uuid.New())
	proto, err := addr.ProtocolAddress(1)
	if err != nil {
		return nil, err
	}
	st := store.NewKVStore(store.Prefixed(backend, addr.UUIDString()+":"), key, regID)

	// 1. Publish pre-keys
	preKeys, err := record.GeneratePreKeys(1, 1)
	if err != nil {
		return nil, err
	}
	if err := st.StorePreKey(ctx, preKeys[0].ID, &preKeys[0]); err != nil {
		return nil, err
	}
	signed, err := record.GenerateSignedPreKey(key, 1, issuer.now)
	if err != nil {
		return nil, err
	}
	if err := st.StoreSignedPreKey(ctx, signed.ID, signed); err != nil {
		return nil, err
	}
	kyber, err := record.GenerateKyberPreKey(key, 1, issuer.now)
	if err != nil {
		return nil, err
	}
	if err := st.StoreKyberPreKey(ctx, kyber.ID, kyber); err != nil {
		return nil, err
	}

	// 2. Get a sender certificate
	cert, err := issuer.certify(addr, uint32(proto.DeviceID), key.Pub)
	if err != nil {
		return nil, err
	}

	return &device{
		name:   name,
		addr:   addr,
		proto:  proto,
		key:    key,
		store:  st,
		cipher: sealedsender.NewCipher(sealedsender.StoresFrom(st), sealedsender.WithLogger(logger)),
		cert:   cert,
	}, nil
}

// connect starts a session from d to peer using peer's published bundle.
func (d *device) connect(ctx context.Context, peer *device) error {
	preKeyID, kyberID := uint32(1), uint32(1)
	bundle, err := session.NewBundle(ctx, peer.store, peer.proto.DeviceID, &preKeyID, 1, &kyberID)
	if err != nil {
		return err
	}
	return session.ProcessPreKeyBundle(ctx, peer.proto, bundle, d.store, d.store)
}

func (d *device) send(ctx context.Context, to *device, plaintext []byte) ([]byte, error) {
	return d.cipher.Encrypt(ctx, to.addr, int32(to.proto.DeviceID), plaintext, sealedsender.ContentHintResendable, nil, d.cert)
}

func (d *device) receive(ctx context.Context, sealed []byte, issuer *issuer) (*sealedsender.DecryptResult, error) {
	return d.cipher.Decrypt(ctx, sealed, issuer.validator, issuer.now, d.addr, uint32(d.proto.DeviceID))
}

// issuer plays the certificate service: a trust root and one server key.
type issuer struct {
	now       uint64
	server    key_ed25519.Pair
	serverCrt *sealedsender.ServerCertificate
	validator sealedsender.CertificateValidator
}

func newIssuer(now uint64) (*issuer, error) {
	root, err := key_ed25519.GeneratePair()
	if err != nil {
		return nil, err
	}
	server, err := key_ed25519.GeneratePair()
	if err != nil {
		return nil, err
	}
	crt, err := sealedsender.NewServerCertificate(1, server.Pub, root.Priv)
	if err != nil {
		return nil, err
	}
	return &issuer{
		now:       now,
		server:    server,
		serverCrt: crt,
		validator: sealedsender.NewTrustRootValidator(root.Pub),
	}, nil
}

func (i *issuer) certify(addr address.Address, deviceID uint32, key key_ed25519.PublicKey) (*sealedsender.SenderCertificate, error) {
	const day = 24 * 60 * 60 * 1000
	return sealedsender.NewSenderCertificate(addr, deviceID, key, i.now+day, i.serverCrt, i.server.Priv)
}
