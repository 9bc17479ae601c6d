package sealedsender

import (
	"context"
	"errors"
	"fmt"

	"github.com/Setheum-Foundation/SignalMetadataKit/configs"
	"github.com/Setheum-Foundation/SignalMetadataKit/crypto/key_ed25519"
	"github.com/Setheum-Foundation/SignalMetadataKit/protocol/address"
	"github.com/Setheum-Foundation/SignalMetadataKit/protocol/groups"
	"github.com/Setheum-Foundation/SignalMetadataKit/protocol/message"
	"github.com/Setheum-Foundation/SignalMetadataKit/protocol/session"
	"github.com/Setheum-Foundation/SignalMetadataKit/store"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Stores are the collaborators a Cipher reads and writes. A nil store is
// only an error for the operations that need it.
type Stores struct {
	Sessions      store.SessionStore
	Identities    store.IdentityKeyStore
	PreKeys       store.PreKeyStore
	SignedPreKeys store.SignedPreKeyStore
	KyberPreKeys  store.KyberPreKeyStore
	SenderKeys    store.SenderKeyStore
}

// StoresFrom uses st for everything.
func StoresFrom(st store.ProtocolStore) Stores {
	return Stores{
		Sessions:      st,
		Identities:    st,
		PreKeys:       st,
		SignedPreKeys: st,
		KyberPreKeys:  st,
		SenderKeys:    st,
	}
}

// Cipher seals and unseals messages for one local device. It holds no
// locks; callers serialize use of the same stores.
type Cipher struct {
	stores Stores
	logger *logrus.Logger
}

type Option func(*Cipher)

func WithLogger(logger *logrus.Logger) Option {
	return func(c *Cipher) {
		c.logger = logger
	}
}

func NewCipher(stores Stores, opts ...Option) *Cipher {
	c := &Cipher{stores: stores}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logrus.New()
		if level, err := logrus.ParseLevel(configs.LogLevel); err == nil {
			c.logger.SetLevel(level)
		}
	}
	return c
}

// Encrypt runs the pairwise session with recipient's device and seals the
// result to that device. deviceID must be positive.
func (c *Cipher) Encrypt(ctx context.Context, recipient address.Address, deviceID int32, paddedPlaintext []byte, hint ContentHint, groupID []byte, senderCert *SenderCertificate) ([]byte, error) {
	if deviceID <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDeviceID, deviceID)
	}
	if senderCert == nil {
		return nil, fmt.Errorf("%w: nil sender certificate", ErrInvalidArgument)
	}
	if c.stores.Sessions == nil || c.stores.Identities == nil {
		return nil, ErrMissingStore
	}
	ctx = orBackground(ctx)

	remote, err := recipient.ProtocolAddress(address.DeviceID(deviceID))
	if err != nil {
		return nil, err
	}
	destIdentity, err := c.identityOf(ctx, remote)
	if err != nil {
		return nil, err
	}
	ours, err := c.stores.Identities.GetIdentityKeyPair(ctx)
	if err != nil {
		return nil, err
	}

	ciphertext, err := session.Encrypt(ctx, paddedPlaintext, remote, c.stores.Sessions, c.stores.Identities)
	if err != nil {
		return nil, err
	}
	content, err := NewUnidentifiedSenderMessageContent(ciphertext.Type(), senderCert, ciphertext.Serialize(), hint, groupID)
	if err != nil {
		return nil, err
	}
	return Seal(destIdentity, content, ours)
}

// MultiRecipientEncrypt encrypts once with the sender key of distributionID
// and seals the result to every recipient. Each recipient must already have
// an identity and a session, or nothing is produced. A nil ctx is replaced
// by context.Background().
func (c *Cipher) MultiRecipientEncrypt(ctx context.Context, recipients []address.ProtocolAddress, paddedPlaintext []byte, senderCert *SenderCertificate, groupID []byte, distributionID uuid.UUID, hint ContentHint) ([]byte, error) {
	if len(recipients) == 0 {
		return nil, ErrNoRecipients
	}
	if senderCert == nil {
		return nil, fmt.Errorf("%w: nil sender certificate", ErrInvalidArgument)
	}
	if c.stores.Sessions == nil || c.stores.Identities == nil || c.stores.SenderKeys == nil {
		return nil, ErrMissingStore
	}
	ctx = orBackground(ctx)

	sender, err := senderCert.Sender().ProtocolAddress(address.DeviceID(senderCert.SenderDeviceID()))
	if err != nil {
		return nil, err
	}

	// 1. Resolve every recipient before touching the sender key
	resolved := make([]Recipient, 0, len(recipients))
	for _, r := range recipients {
		identity, err := c.identityOf(ctx, r)
		if err != nil {
			return nil, err
		}
		rec, err := c.stores.Sessions.LoadSession(ctx, r)
		if errors.Is(err, store.ErrNotFound) || (err == nil && !rec.HasCurrentSession()) {
			return nil, fmt.Errorf("%w with %s", session.ErrNoSession, r)
		}
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, Recipient{
			Address:        r,
			RegistrationID: rec.Current.RemoteRegistrationID,
			IdentityKey:    identity,
		})
	}
	ours, err := c.stores.Identities.GetIdentityKeyPair(ctx)
	if err != nil {
		return nil, err
	}

	// 2. Encrypt and seal
	skm, err := groups.Encrypt(ctx, sender, distributionID, paddedPlaintext, c.stores.SenderKeys)
	if err != nil {
		return nil, err
	}
	content, err := NewUnidentifiedSenderMessageContent(message.SenderKeyType, senderCert, skm.Serialize(), hint, groupID)
	if err != nil {
		return nil, err
	}
	return SealMultiRecipient(resolved, content, ours)
}

// Unseal opens the outer envelope with the local identity key, without
// validating or decrypting anything inside.
func (c *Cipher) Unseal(ctx context.Context, sealed []byte) (*UnidentifiedSenderMessageContent, error) {
	if c.stores.Identities == nil {
		return nil, ErrMissingStore
	}
	ours, err := c.stores.Identities.GetIdentityKeyPair(orBackground(ctx))
	if err != nil {
		return nil, err
	}
	return Unseal(sealed, ours)
}

// Decrypt unseals, authenticates and decrypts a message received by the
// local device. Errors before the sender certificate is recovered are
// returned as is; ErrSelfSend is returned for the local device's own
// messages; anything later is a *KnownSenderError.
func (c *Cipher) Decrypt(ctx context.Context, sealed []byte, validator CertificateValidator, timestamp uint64, localAddress address.Address, localDeviceID uint32) (*DecryptResult, error) {
	if timestamp == 0 {
		return nil, ErrInvalidTimestamp
	}
	if validator == nil {
		return nil, ErrMissingValidator
	}
	ctx = orBackground(ctx)

	// Unattributed stage
	content, err := c.Unseal(ctx, sealed)
	if err != nil {
		return nil, err
	}
	cert := content.SenderCertificate()
	if cert.Sender().Matches(localAddress) && cert.SenderDeviceID() == localDeviceID {
		c.logger.WithField("device", localDeviceID).Info("dropping message sent by this device")
		return nil, ErrSelfSend
	}

	// Attributed stage
	result, err := c.decryptContent(ctx, content, validator, timestamp)
	if err != nil {
		kerr := newKnownSenderError(content, err)
		c.logger.WithFields(logrus.Fields{
			"sender": kerr.Sender.String(),
			"device": kerr.DeviceID,
			"type":   kerr.Type.String(),
		}).WithError(err).Warn("failed to decrypt sealed sender message")
		return nil, kerr
	}
	c.logger.WithFields(logrus.Fields{
		"sender": result.Sender.String(),
		"device": result.DeviceID,
		"type":   result.MessageType.String(),
	}).Debug("decrypted sealed sender message")
	return result, nil
}

func (c *Cipher) decryptContent(ctx context.Context, content *UnidentifiedSenderMessageContent, validator CertificateValidator, timestamp uint64) (*DecryptResult, error) {
	cert := content.SenderCertificate()
	if err := validator.Validate(cert, timestamp); err != nil {
		if !errors.Is(err, ErrInvalidCertificate) {
			err = fmt.Errorf("%w: %w", ErrInvalidCertificate, err)
		}
		return nil, err
	}

	plaintext, msgType, err := c.decryptInner(ctx, content)
	if err != nil {
		return nil, err
	}
	return &DecryptResult{
		Sender:        cert.Sender(),
		DeviceID:      int32(cert.SenderDeviceID()),
		PaddedMessage: plaintext,
		MessageType:   msgType,
	}, nil
}

func (c *Cipher) decryptInner(ctx context.Context, content *UnidentifiedSenderMessageContent) ([]byte, MessageType, error) {
	cert := content.SenderCertificate()
	deviceID := address.DeviceID(cert.SenderDeviceID())
	if deviceID > address.MaxDeviceID {
		return nil, 0, fmt.Errorf("%w: %d", ErrDeviceIDOutOfRange, deviceID)
	}
	remote, err := cert.Sender().ProtocolAddress(deviceID)
	if err != nil {
		return nil, 0, err
	}
	msgType, err := messageTypeOf(content.MsgType())
	if err != nil {
		return nil, 0, err
	}

	var plaintext []byte
	switch msgType {
	case MessageTypeWhisper:
		if c.stores.Sessions == nil || c.stores.Identities == nil {
			return nil, 0, ErrMissingStore
		}
		msg, err := message.ParseSignalMessage(content.Contents())
		if err != nil {
			return nil, 0, err
		}
		plaintext, err = session.DecryptSignal(ctx, remote, msg, c.stores.Sessions, c.stores.Identities)
		if err != nil {
			return nil, 0, err
		}
	case MessageTypePreKey:
		if c.stores.Sessions == nil || c.stores.Identities == nil || c.stores.PreKeys == nil ||
			c.stores.SignedPreKeys == nil || c.stores.KyberPreKeys == nil {
			return nil, 0, ErrMissingStore
		}
		msg, err := message.ParsePreKeySignalMessage(content.Contents())
		if err != nil {
			return nil, 0, err
		}
		plaintext, err = session.DecryptPreKey(ctx, remote, msg, c.stores.Sessions, c.stores.Identities,
			c.stores.PreKeys, c.stores.SignedPreKeys, c.stores.KyberPreKeys)
		if err != nil {
			return nil, 0, err
		}
	case MessageTypeSenderKey:
		if c.stores.SenderKeys == nil {
			return nil, 0, ErrMissingStore
		}
		plaintext, err = groups.Decrypt(ctx, remote, content.Contents(), c.stores.SenderKeys)
		if err != nil {
			return nil, 0, err
		}
	case MessageTypePlaintext:
		pc, err := message.ParsePlaintextContent(content.Contents())
		if err != nil {
			return nil, 0, err
		}
		plaintext = pc.Body()
	default:
		return nil, 0, &UnhandledMessageTypeError{Type: content.MsgType()}
	}
	return plaintext, msgType, nil
}

func (c *Cipher) identityOf(ctx context.Context, remote address.ProtocolAddress) (key_ed25519.PublicKey, error) {
	identity, err := c.stores.Identities.GetIdentity(ctx, remote)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNoIdentity, remote)
	}
	return identity, err
}

func orBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
