package doubleratchet

import (
	"github.com/Setheum-Foundation/SignalMetadataKit/crypto"
	"github.com/Setheum-Foundation/SignalMetadataKit/crypto/aes256"
	"github.com/Setheum-Foundation/SignalMetadataKit/crypto/dh25519"
	"github.com/Setheum-Foundation/SignalMetadataKit/crypto/hkdf"
	"github.com/Setheum-Foundation/SignalMetadataKit/crypto/hmac"
	"github.com/Setheum-Foundation/SignalMetadataKit/crypto/key_ed25519"
)

var (
	// Salts must be unique for each KDF invocation
	HKDFSaltKDF_RK = []byte("RootKey")
	HKDFSaltAES    = []byte("MessageKey")
)

// doubleRatchetUtils is the interface is defined in
// https://signal.org/docs/specifications/doubleratchet/#external-functions
type doubleRatchetUtils interface {
	// generateDH returns a new Diffie-Hellman key pair
	generateDH() (*key_ed25519.Pair, error)

	// dh returns the output from the Diffie-Hellman calculation
	dh(privKey key_ed25519.PrivateKey, pubKey key_ed25519.PublicKey) (*RatchetKey, error)

	// kdfRk returns a pair (32-byte root key, 32-byte chain key) as the output of applying a
	// KDF keyed by a 32-byte root key rk to a Diffie-Hellman output dh_out.
	kdfRk(rk RatchetKey, dhOut RatchetKey) (rootKey *RatchetKey, chainKey *RatchetKey, err error)

	// kdfCk returns a pair (32-byte chain key, 32-byte message key) as the output of applying a
	// KDF keyed by a 32-byte chain key ck to some constant.
	kdfCk(ck RatchetKey) (chainKey *RatchetKey, messageKey *MsgKey, err error)

	// encrypt returns the AEAD encryption of plaintext with message key mk
	encrypt(mk MsgKey, plaintext []byte, associatedData []byte) (ciphertext []byte, err error)

	// decrypt returns the AEAD decryption of ciphertext with message key mk
	decrypt(mk MsgKey, ciphertext []byte, associatedData []byte) (plaintext []byte, err error)

	// header creates a new message header
	header(ratchetPub key_ed25519.PublicKey, chainLen MsgIndex, msgNum MsgIndex) (Header, error)

	// concat encodes a message header into a parseable byte sequence, prepending the ad byte
	concat(ad []byte, header Header) ([]byte, error)
}

// doubleRatchetUtilsImpl implements the doubleRatchetUtils interface.
// Defined in https://signal.org/docs/specifications/doubleratchet/#recommended-cryptographic-algorithms
type doubleRatchetUtilsImpl struct{}

func newDoubleRatchetUtils() doubleRatchetUtils {
	return &doubleRatchetUtilsImpl{}
}

func (dr *doubleRatchetUtilsImpl) generateDH() (*key_ed25519.Pair, error) {
	pair, err := key_ed25519.GeneratePair()
	if err != nil {
		return nil, err
	}
	return &pair, nil
}

func (dr *doubleRatchetUtilsImpl) dh(privKey key_ed25519.PrivateKey, pubKey key_ed25519.PublicKey) (*RatchetKey, error) {
	secret, err := dh25519.GetSharedSecret(privKey, pubKey)
	if err != nil {
		return nil, err
	}
	if len(secret) != 32 {
		return nil, ErrInvalidSecretLength
	}
	var secret32 RatchetKey
	copy(secret32[:], secret)
	return &secret32, nil
}

func (dr *doubleRatchetUtilsImpl) kdfRk(rk RatchetKey, dhOut RatchetKey) (*RatchetKey, *RatchetKey, error) {
	buffer := make([]byte, 64)
	if n, err := hkdf.KDF(crypto.DefaultHashFunc, dhOut[:], rk[:], HKDFSaltKDF_RK, buffer); err != nil {
		return nil, nil, err
	} else if n != 64 {
		return nil, nil, ErrInvalidSecretLength
	}
	var rootKey32, chainKey32 RatchetKey
	copy(rootKey32[:], buffer[:32])
	copy(chainKey32[:], buffer[32:])
	return &rootKey32, &chainKey32, nil
}

func (dr *doubleRatchetUtilsImpl) kdfCk(ck RatchetKey) (*RatchetKey, *MsgKey, error) {
	messageKey := hmac.Hash(crypto.DefaultHashFunc, ck[:], []byte{0x01})
	if len(messageKey) != 32 {
		return nil, nil, ErrInvalidSecretLength
	}
	chainKey := hmac.Hash(crypto.DefaultHashFunc, ck[:], []byte{0x02})
	if len(chainKey) != 32 {
		return nil, nil, ErrInvalidSecretLength
	}
	var chainKey32 RatchetKey
	var messageKey32 MsgKey
	copy(chainKey32[:], chainKey)
	copy(messageKey32[:], messageKey)
	return &chainKey32, &messageKey32, nil
}

// messageKeys expands a message key into the AES key, HMAC key and IV.
func messageKeys(mk MsgKey) (encKey, authKey [32]byte, iv [16]byte, err error) {
	key := make([]byte, 80)
	if n, err := hkdf.KDF(crypto.DefaultHashFunc, mk[:], nil, HKDFSaltAES, key); err != nil {
		return encKey, authKey, iv, err
	} else if n != 80 {
		return encKey, authKey, iv, ErrInvalidSecretLength
	}
	copy(encKey[:], key[:32])
	copy(authKey[:], key[32:64])
	copy(iv[:], key[64:])
	return encKey, authKey, iv, nil
}

func (dr *doubleRatchetUtilsImpl) encrypt(mk MsgKey, plaintext []byte, associatedData []byte) ([]byte, error) {
	encKey, authKey, iv, err := messageKeys(mk)
	if err != nil {
		return nil, err
	}

	ciphertext, err := aes256.Encrypt(plaintext, encKey, iv)
	if err != nil {
		return nil, err
	}

	// HMAC input is the associated_data prepended to the ciphertext
	tag := hmac.Hash(crypto.DefaultHashFunc, authKey[:], macInput(associatedData, ciphertext))
	return append(ciphertext, tag...), nil
}

func (dr *doubleRatchetUtilsImpl) decrypt(mk MsgKey, ciphertext []byte, associatedData []byte) ([]byte, error) {
	if len(ciphertext) < crypto.HMACSHA256Size+16 {
		return nil, ErrCiphertextTooShort
	}
	encKey, authKey, iv, err := messageKeys(mk)
	if err != nil {
		return nil, err
	}

	body := ciphertext[:len(ciphertext)-crypto.HMACSHA256Size]
	gotTag := ciphertext[len(ciphertext)-crypto.HMACSHA256Size:]

	// Verify the tag before touching the ciphertext
	tag := hmac.Hash(crypto.DefaultHashFunc, authKey[:], macInput(associatedData, body))
	if !hmac.Equal(tag, gotTag) {
		return nil, ErrInvalidTag
	}

	return aes256.Decrypt(body, encKey, iv)
}

func (dr *doubleRatchetUtilsImpl) header(ratchetPub key_ed25519.PublicKey, chainLen MsgIndex, msgNum MsgIndex) (Header, error) {
	return Header{
		RatchetPub: ratchetPub,
		Pn:         chainLen,
		N:          msgNum,
	}, nil
}

func (dr *doubleRatchetUtilsImpl) concat(ad []byte, header Header) ([]byte, error) {
	headerBytes, err := header.Marshal()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(ad)+len(headerBytes))
	out = append(out, ad...)
	return append(out, headerBytes...), nil
}

func macInput(associatedData, ciphertext []byte) []byte {
	out := make([]byte, 0, len(associatedData)+len(ciphertext))
	out = append(out, associatedData...)
	return append(out, ciphertext...)
}
