// Package session runs pairwise sessions: X3DH bootstrap from a pre-key
// bundle, then the double ratchet. Records are only written back once an
// operation has fully succeeded.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/Setheum-Foundation/SignalMetadataKit/crypto/key_ed25519"
	"github.com/Setheum-Foundation/SignalMetadataKit/protocol/address"
	"github.com/Setheum-Foundation/SignalMetadataKit/protocol/doubleratchet"
	"github.com/Setheum-Foundation/SignalMetadataKit/protocol/message"
	"github.com/Setheum-Foundation/SignalMetadataKit/protocol/record"
	"github.com/Setheum-Foundation/SignalMetadataKit/protocol/x3dh"
	"github.com/Setheum-Foundation/SignalMetadataKit/store"
)

// ProcessPreKeyBundle starts a new session with remote as Alice. Until remote
// replies, Encrypt produces pre-key messages.
func ProcessPreKeyBundle(ctx context.Context, remote address.ProtocolAddress, bundle *PreKeyBundle, sessions store.SessionStore, identities store.IdentityKeyStore) error {
	// 1. Check the remote identity
	trusted, err := identities.IsTrustedIdentity(ctx, remote, bundle.IdentityKey, store.Sending)
	if err != nil {
		return err
	}
	if !trusted {
		return fmt.Errorf("%w: %s", ErrUntrustedIdentity, remote)
	}

	ours, err := identities.GetIdentityKeyPair(ctx)
	if err != nil {
		return err
	}
	regID, err := identities.GetLocalRegistrationID(ctx)
	if err != nil {
		return err
	}

	// 2. Key agreement, which verifies the bundle signatures
	initiation, err := x3dh.PerformKeyAgreement(bundle.received(), ours.Priv)
	if err != nil {
		return fmt.Errorf("failed to process bundle of %s: %w", remote, err)
	}

	// 3. Init the ratchet against the signed pre-key
	var sk doubleratchet.RatchetKey
	copy(sk[:], initiation.SharedKey)
	ratchet, err := doubleratchet.InitAlice(sk, bundle.SignedPreKey)
	if err != nil {
		return err
	}

	state := &record.SessionState{
		LocalIdentity:        ours.Pub,
		RemoteIdentity:       bundle.IdentityKey,
		LocalRegistrationID:  regID,
		RemoteRegistrationID: bundle.RegistrationID,
		AliceBaseKey:         initiation.BaseKey,
		Ratchet:              ratchet.CurrentState,
		Pending: &record.PendingPreKey{
			PreKeyID:        bundle.PreKeyID,
			SignedPreKeyID:  bundle.SignedPreKeyID,
			KyberPreKeyID:   bundle.KyberPreKeyID,
			KyberCiphertext: initiation.KyberCiphertext,
			BaseKey:         initiation.BaseKey,
		},
	}

	// 4. Store the session and the identity
	rec, err := loadOrNew(ctx, sessions, remote)
	if err != nil {
		return err
	}
	rec.PromoteState(state)
	if err := sessions.StoreSession(ctx, remote, rec); err != nil {
		return err
	}
	_, err = identities.SaveIdentity(ctx, remote, bundle.IdentityKey)
	return err
}

// Encrypt advances the sending chain of the session with remote.
func Encrypt(ctx context.Context, plaintext []byte, remote address.ProtocolAddress, sessions store.SessionStore, identities store.IdentityKeyStore) (message.CiphertextMessage, error) {
	rec, err := sessions.LoadSession(ctx, remote)
	if errors.Is(err, store.ErrNotFound) || (err == nil && !rec.HasCurrentSession()) {
		return nil, fmt.Errorf("%w with %s", ErrNoSession, remote)
	}
	if err != nil {
		return nil, err
	}
	state := rec.Current.Clone()

	trusted, err := identities.IsTrustedIdentity(ctx, remote, state.RemoteIdentity, store.Sending)
	if err != nil {
		return nil, err
	}
	if !trusted {
		return nil, fmt.Errorf("%w: %s", ErrUntrustedIdentity, remote)
	}

	dr, err := doubleratchet.Resume(state.Ratchet)
	if err != nil {
		return nil, err
	}
	header, ciphertext, err := dr.Encrypt(plaintext, associatedData(state.LocalIdentity, state.RemoteIdentity), false)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt for %s: %w", remote, err)
	}
	state.Ratchet = dr.CurrentState

	signalMessage, err := message.NewSignalMessage(*header, ciphertext)
	if err != nil {
		return nil, err
	}
	var out message.CiphertextMessage = signalMessage
	if p := state.Pending; p != nil {
		out, err = message.NewPreKeySignalMessage(message.PreKeySignalMessage{
			RegistrationID:  state.LocalRegistrationID,
			PreKeyID:        p.PreKeyID,
			SignedPreKeyID:  p.SignedPreKeyID,
			KyberPreKeyID:   p.KyberPreKeyID,
			KyberCiphertext: p.KyberCiphertext,
			BaseKey:         p.BaseKey,
			IdentityKey:     state.LocalIdentity,
		}, signalMessage)
		if err != nil {
			return nil, err
		}
	}

	rec.Current = state
	if err := sessions.StoreSession(ctx, remote, rec); err != nil {
		return nil, err
	}
	return out, nil
}

// DecryptSignal decrypts a message on an existing session, trying archived
// states when the current one does not match.
func DecryptSignal(ctx context.Context, remote address.ProtocolAddress, msg *message.SignalMessage, sessions store.SessionStore, identities store.IdentityKeyStore) ([]byte, error) {
	rec, err := sessions.LoadSession(ctx, remote)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w with %s", ErrNoSession, remote)
	}
	if err != nil {
		return nil, err
	}

	plaintext, state, err := decryptWithRecord(rec, msg)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt message from %s: %w", remote, err)
	}

	trusted, err := identities.IsTrustedIdentity(ctx, remote, state.RemoteIdentity, store.Receiving)
	if err != nil {
		return nil, err
	}
	if !trusted {
		return nil, fmt.Errorf("%w: %s", ErrUntrustedIdentity, remote)
	}
	if _, err := identities.SaveIdentity(ctx, remote, state.RemoteIdentity); err != nil {
		return nil, err
	}
	if err := sessions.StoreSession(ctx, remote, rec); err != nil {
		return nil, err
	}
	return plaintext, nil
}

// DecryptPreKey decrypts the first messages of a session. A new session is
// built unless one with the same base key already exists; the one-time
// pre-key is removed and the kyber pre-key marked used only after success.
func DecryptPreKey(
	ctx context.Context,
	remote address.ProtocolAddress,
	msg *message.PreKeySignalMessage,
	sessions store.SessionStore,
	identities store.IdentityKeyStore,
	preKeys store.PreKeyStore,
	signedPreKeys store.SignedPreKeyStore,
	kyberPreKeys store.KyberPreKeyStore,
) ([]byte, error) {
	// 1. Check the remote identity
	trusted, err := identities.IsTrustedIdentity(ctx, remote, msg.IdentityKey, store.Receiving)
	if err != nil {
		return nil, err
	}
	if !trusted {
		return nil, fmt.Errorf("%w: %s", ErrUntrustedIdentity, remote)
	}

	rec, err := loadOrNew(ctx, sessions, remote)
	if err != nil {
		return nil, err
	}

	// 2. A repeated base key belongs to a session we already built
	if rec.HasBaseKey(msg.BaseKey) {
		plaintext, _, err := decryptWithRecord(rec, msg.SignalMessage())
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt pre-key message from %s: %w", remote, err)
		}
		if err := sessions.StoreSession(ctx, remote, rec); err != nil {
			return nil, err
		}
		return plaintext, nil
	}

	// 3. Build Bob's side of the session
	state, err := respond(ctx, msg, identities, preKeys, signedPreKeys, kyberPreKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to build session with %s: %w", remote, err)
	}
	plaintext, err := decryptWithState(state, msg.SignalMessage())
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt pre-key message from %s: %w", remote, err)
	}

	// 4. Commit
	rec.PromoteState(state)
	if err := sessions.StoreSession(ctx, remote, rec); err != nil {
		return nil, err
	}
	if _, err := identities.SaveIdentity(ctx, remote, msg.IdentityKey); err != nil {
		return nil, err
	}
	if msg.PreKeyID != nil {
		if err := preKeys.RemovePreKey(ctx, *msg.PreKeyID); err != nil {
			return nil, err
		}
	}
	if msg.KyberPreKeyID != nil {
		if err := kyberPreKeys.MarkKyberPreKeyUsed(ctx, *msg.KyberPreKeyID); err != nil {
			return nil, err
		}
	}
	return plaintext, nil
}

func respond(
	ctx context.Context,
	msg *message.PreKeySignalMessage,
	identities store.IdentityKeyStore,
	preKeys store.PreKeyStore,
	signedPreKeys store.SignedPreKeyStore,
	kyberPreKeys store.KyberPreKeyStore,
) (*record.SessionState, error) {
	ours, err := identities.GetIdentityKeyPair(ctx)
	if err != nil {
		return nil, err
	}
	regID, err := identities.GetLocalRegistrationID(ctx)
	if err != nil {
		return nil, err
	}

	signed, err := signedPreKeys.LoadSignedPreKey(ctx, msg.SignedPreKeyID)
	if err != nil {
		return nil, preKeyErr("signed pre-key", msg.SignedPreKeyID, err)
	}
	keys := &x3dh.ResponderKeys{
		IdentityKey:  ours.Priv,
		SignedPreKey: signed.KeyPair.Priv,
	}
	if msg.PreKeyID != nil {
		pk, err := preKeys.LoadPreKey(ctx, *msg.PreKeyID)
		if err != nil {
			return nil, preKeyErr("pre-key", *msg.PreKeyID, err)
		}
		keys.OneTimePreKey = pk.KeyPair.Priv
	}
	if msg.KyberPreKeyID != nil {
		kpk, err := kyberPreKeys.LoadKyberPreKey(ctx, *msg.KyberPreKeyID)
		if err != nil {
			return nil, preKeyErr("kyber pre-key", *msg.KyberPreKeyID, err)
		}
		keys.KyberPreKey = kpk.KeyPair.Priv
	}

	sharedKey, err := x3dh.RespondKeyAgreement(keys, &x3dh.ReceivedInitiation{
		IdentityKey:     msg.IdentityKey,
		BaseKey:         msg.BaseKey,
		KyberCiphertext: msg.KyberCiphertext,
	})
	if err != nil {
		return nil, err
	}

	var sk doubleratchet.RatchetKey
	copy(sk[:], sharedKey)
	return &record.SessionState{
		LocalIdentity:        ours.Pub,
		RemoteIdentity:       msg.IdentityKey,
		LocalRegistrationID:  regID,
		RemoteRegistrationID: msg.RegistrationID,
		AliceBaseKey:         msg.BaseKey,
		Ratchet:              doubleratchet.InitBob(sk, signed.KeyPair).CurrentState,
	}, nil
}

// decryptWithRecord tries the current state, then the archived ones. The
// record is updated in memory on success; the returned state is its new current state.
func decryptWithRecord(rec *record.SessionRecord, msg *message.SignalMessage) ([]byte, *record.SessionState, error) {
	if !rec.HasCurrentSession() {
		return nil, nil, ErrNoSession
	}

	state := rec.Current.Clone()
	plaintext, firstErr := decryptWithState(state, msg)
	if firstErr == nil {
		// The peer answered, so later messages no longer need the pre-key data
		state.Pending = nil
		rec.Current = state
		return plaintext, state, nil
	}

	for i, previous := range rec.Previous {
		state := previous.Clone()
		plaintext, err := decryptWithState(state, msg)
		if err != nil {
			continue
		}
		state.Pending = nil
		rec.Previous[i] = state
		rec.PromoteArchived(i)
		return plaintext, state, nil
	}
	return nil, nil, firstErr
}

func decryptWithState(state *record.SessionState, msg *message.SignalMessage) ([]byte, error) {
	dr, err := doubleratchet.Resume(state.Ratchet)
	if err != nil {
		return nil, ErrNoSession
	}
	plaintext, err := dr.Decrypt(msg.Header, msg.Ciphertext, associatedData(state.RemoteIdentity, state.LocalIdentity))
	if err != nil {
		return nil, err
	}
	state.Ratchet = dr.CurrentState
	return plaintext, nil
}

// associatedData is the sender identity followed by the receiver identity.
func associatedData(sender, receiver key_ed25519.PublicKey) []byte {
	ad := make([]byte, 0, len(sender)+len(receiver))
	ad = append(ad, sender...)
	return append(ad, receiver...)
}

func loadOrNew(ctx context.Context, sessions store.SessionStore, remote address.ProtocolAddress) (*record.SessionRecord, error) {
	rec, err := sessions.LoadSession(ctx, remote)
	if errors.Is(err, store.ErrNotFound) {
		return record.NewSessionRecord(), nil
	}
	return rec, err
}
