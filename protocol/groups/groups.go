// Package groups is the sender key cipher: each member distributes one
// signed hash chain per distribution id and encrypts group messages once.
package groups

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/Setheum-Foundation/SignalMetadataKit/crypto/aes256"
	"github.com/Setheum-Foundation/SignalMetadataKit/crypto/key_ed25519"
	"github.com/Setheum-Foundation/SignalMetadataKit/protocol/address"
	"github.com/Setheum-Foundation/SignalMetadataKit/protocol/message"
	"github.com/Setheum-Foundation/SignalMetadataKit/protocol/record"
	"github.com/Setheum-Foundation/SignalMetadataKit/store"
	"github.com/google/uuid"
)

// NewDistributionMessage returns the local sender chain for distributionID,
// creating it on first use. The result is sent to each member over a pairwise session.
func NewDistributionMessage(ctx context.Context, sender address.ProtocolAddress, distributionID uuid.UUID, st store.SenderKeyStore) (*message.SenderKeyDistributionMessage, error) {
	rec, err := loadOrNew(ctx, st, sender, distributionID)
	if err != nil {
		return nil, err
	}

	if len(rec.States) == 0 {
		state, err := newSendingState()
		if err != nil {
			return nil, err
		}
		rec.AddState(state)
		if err := st.StoreSenderKey(ctx, sender, distributionID, rec); err != nil {
			return nil, err
		}
	}

	state, err := rec.CurrentState()
	if err != nil {
		return nil, err
	}
	return message.NewSenderKeyDistributionMessage(distributionID, state.ChainID, state.ChainKey.Iteration, state.ChainKey.Seed, state.SigningKey.Pub)
}

func newSendingState() (*record.SenderKeyState, error) {
	var idBytes [4]byte
	if _, err := rand.Read(idBytes[:]); err != nil {
		return nil, err
	}
	seed, err := aes256.NewKey()
	if err != nil {
		return nil, err
	}
	signing, err := key_ed25519.GeneratePair()
	if err != nil {
		return nil, err
	}
	return &record.SenderKeyState{
		ChainID:    binary.BigEndian.Uint32(idBytes[:]) & 0x7fffffff,
		ChainKey:   record.SenderChainKey{Seed: seed},
		SigningKey: signing,
	}, nil
}

// ProcessDistributionMessage stores the chain a member sent us.
func ProcessDistributionMessage(ctx context.Context, sender address.ProtocolAddress, skdm *message.SenderKeyDistributionMessage, st store.SenderKeyStore) error {
	rec, err := loadOrNew(ctx, st, sender, skdm.DistributionID)
	if err != nil {
		return err
	}
	added := rec.AddState(&record.SenderKeyState{
		ChainID: skdm.ChainID,
		ChainKey: record.SenderChainKey{
			Iteration: skdm.Iteration,
			Seed:      append([]byte(nil), skdm.ChainKey...),
		},
		SigningKey: key_ed25519.Pair{Pub: skdm.SigningKey.Clone()},
	})
	if !added {
		return nil
	}
	return st.StoreSenderKey(ctx, sender, skdm.DistributionID, rec)
}

// Encrypt encrypts plaintext with the local sender chain for distributionID.
func Encrypt(ctx context.Context, sender address.ProtocolAddress, distributionID uuid.UUID, plaintext []byte, st store.SenderKeyStore) (*message.SenderKeyMessage, error) {
	rec, err := st.LoadSenderKey(ctx, sender, distributionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNoSenderKey, distributionID)
	}
	if err != nil {
		return nil, err
	}
	state, err := rec.CurrentState()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoSenderKey, distributionID)
	}
	if len(state.SigningKey.Priv) == 0 {
		return nil, ErrNoSigningKey
	}

	mk := messageKey(state.ChainKey)
	key, iv, err := expand(mk)
	if err != nil {
		return nil, err
	}
	ciphertext, err := aes256.Encrypt(plaintext, key, iv)
	if err != nil {
		return nil, err
	}
	msg, err := message.NewSenderKeyMessage(distributionID, state.ChainID, mk.Iteration, ciphertext, state.SigningKey.Priv)
	if err != nil {
		return nil, err
	}

	state.ChainKey = nextChainKey(state.ChainKey)
	if err := st.StoreSenderKey(ctx, sender, distributionID, rec); err != nil {
		return nil, err
	}
	return msg, nil
}

// Decrypt verifies and decrypts a serialized SenderKeyMessage from sender.
func Decrypt(ctx context.Context, sender address.ProtocolAddress, ciphertext []byte, st store.SenderKeyStore) ([]byte, error) {
	msg, err := message.ParseSenderKeyMessage(ciphertext)
	if err != nil {
		return nil, err
	}

	rec, err := st.LoadSenderKey(ctx, sender, msg.DistributionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s from %s", ErrDistributionMissing, msg.DistributionID, sender)
	}
	if err != nil {
		return nil, err
	}
	state, err := rec.StateForChainID(msg.ChainID)
	if err != nil {
		return nil, fmt.Errorf("%w: chain %d from %s", ErrNoSenderKey, msg.ChainID, sender)
	}
	if err := msg.VerifySignature(state.SigningKey.Pub); err != nil {
		return nil, err
	}

	mk, err := messageKeyFor(state, msg.Iteration)
	if err != nil {
		return nil, err
	}
	key, iv, err := expand(mk)
	if err != nil {
		return nil, err
	}
	plaintext, err := aes256.Decrypt(msg.Ciphertext, key, iv)
	if err != nil {
		return nil, err
	}

	if err := st.StoreSenderKey(ctx, sender, msg.DistributionID, rec); err != nil {
		return nil, err
	}
	return plaintext, nil
}

func loadOrNew(ctx context.Context, st store.SenderKeyStore, sender address.ProtocolAddress, distributionID uuid.UUID) (*record.SenderKeyRecord, error) {
	rec, err := st.LoadSenderKey(ctx, sender, distributionID)
	if errors.Is(err, store.ErrNotFound) {
		return record.NewSenderKeyRecord(), nil
	}
	return rec, err
}
