package doubleratchet

import (
	"github.com/Setheum-Foundation/SignalMetadataKit/crypto/key_ed25519"
)

const (
	// maxSkip is the constant specifying the maximum number of message keys that can be skipped in a single chain
	maxSkip = 1000
	// maxStoredSkipped bounds the skipped keys kept across all chains; the oldest are evicted first
	maxStoredSkipped = 2000
)

var (
	utils = newDoubleRatchetUtils()
)

// https://signal.org/docs/specifications/doubleratchet/#encrypting-messages and
// https://signal.org/docs/specifications/doubleratchet/#decrypting-messages
type DoubleRatchet struct {
	CurrentState *State
}

// Resume wraps a previously persisted state.
func Resume(state *State) (*DoubleRatchet, error) {
	if state == nil {
		return nil, ErrNilState
	}
	return &DoubleRatchet{CurrentState: state}, nil
}

// InitAlice initializes the Double Ratchet for the sender
func InitAlice(sk RatchetKey, bobDHPubKey key_ed25519.PublicKey) (*DoubleRatchet, error) {
	// Init Dhs
	dhs, err := utils.generateDH()
	if err != nil {
		return nil, err
	}

	// Init Dhr
	dhr := bobDHPubKey.Clone()

	// Init Rk, Cks
	kdfRkInput, err := utils.dh(dhs.Priv, dhr)
	if err != nil {
		return nil, err
	}
	rk, cks, err := utils.kdfRk(sk, *kdfRkInput)
	if err != nil {
		return nil, err
	}

	return &DoubleRatchet{
		CurrentState: &State{
			Dhs: *dhs,
			Dhr: dhr,
			Rk:  *rk,
			Cks: cks,
			// Ckr, Ns, Nr, Pn, MkSkipped are init as zero values
		},
	}, nil
}

// InitBob initializes the Double Ratchet for the receiver
func InitBob(sk RatchetKey, bobDHKeyPair key_ed25519.Pair) *DoubleRatchet {
	return &DoubleRatchet{
		CurrentState: &State{
			Dhs: bobDHKeyPair,
			Rk:  sk,
			// Dhr, Cks, Ckr, Ns, Nr, Pn, MkSkipped are init as zero values
		},
	}
}

// Encrypt is the exported function that performs a symmetric-key ratchet step, then encrypts the message with the
// resulting message key. In addition to the message’s plaintext it takes an AD byte sequence which is prepended
// to the header to form the associated data for the underlying AEAD encryption.
//
// A DH ratchet step runs first when forwardDHRatchet is true, when no sending
// chain exists yet, or when a new remote ratchet key was received since the
// last send. The state is only updated when encryption succeeds.
func (dr *DoubleRatchet) Encrypt(plaintext []byte, associatedData []byte, forwardDHRatchet bool) (*Header, []byte, error) {
	newState := dr.CurrentState.Clone()

	// 0. Perform a DH ratchet step if needed
	if forwardDHRatchet || newState.Cks == nil || newState.SendRatchetPending {
		if newState.Dhr == nil {
			return nil, nil, ErrNoSendingChain
		}
		if err := dhRatchetSendChain(newState); err != nil {
			return nil, nil, err
		}
	}

	// 1. Generate current message key & update chain key
	cks, mk, err := utils.kdfCk(*newState.Cks)
	if err != nil {
		return nil, nil, err
	}
	newState.Cks = cks

	// 2. Create header
	header, err := utils.header(newState.Dhs.Pub.Clone(), newState.Pn, newState.Ns)
	if err != nil {
		return nil, nil, err
	}

	// 3. Update State.Ns
	newState.Ns++

	// 4. Encrypt plaintext w/ header + associatedData
	ad, err := utils.concat(associatedData, header)
	if err != nil {
		return nil, nil, err
	}
	ciphertext, err := utils.encrypt(*mk, plaintext, ad)
	if err != nil {
		return nil, nil, err
	}

	dr.CurrentState = newState
	return &header, ciphertext, nil
}

// Decrypt is the exported function that decrypts messages. It does the following:
// • If the message corresponds to a skipped message key this function decrypts the message,
// deletes the message key, and returns.
// • Otherwise, if a new ratchet key has been received this function stores any skipped message keys from the
// receiving chain and performs a DH ratchet step to replace the receiving chain.
// • This function then stores any skipped message keys from the current receiving chain, performs a symmetric-key
// ratchet step to derive the relevant message key and next chain key, and decrypts the message.
// If an error is returned (e.g. message authentication failure) the message is discarded and changes to
// the State object are discarded. Otherwise, accept the decrypted plaintext and store changes to the State object.
func (dr *DoubleRatchet) Decrypt(header Header, ciphertext []byte, associatedData []byte) ([]byte, error) {
	// If no error occurs, dr.CurrentState will be replaced with newState
	newState := dr.CurrentState.Clone()

	// 1. Try to decrypt with skipped message keys
	plaintext, found, err := trySkippedMessageKeys(newState, &header, ciphertext, associatedData)
	if err != nil {
		return nil, err
	}
	if found {
		dr.CurrentState = newState
		return plaintext, nil
	}

	// 2. If a new ratchet key has been received, save skipped message keys from the receiving chain and
	// perform a DH ratchet step
	if newState.Dhr == nil {
		if err := dhRatchetReceiveChain(newState, &header); err != nil {
			return nil, err
		}
	} else if !header.RatchetPub.Equals(newState.Dhr) {
		if err := skipMessageKeys(newState, header.Pn); err != nil {
			return nil, err
		}
		if err := dhRatchetReceiveChain(newState, &header); err != nil {
			return nil, err
		}
	}
	if newState.Ckr == nil {
		return nil, ErrNoReceivingChain
	}

	// 3. Store skipped message keys from the current receiving chain if needed
	if err := skipMessageKeys(newState, header.N); err != nil {
		return nil, err
	}

	// 4. Get message key
	ckr, mk, err := utils.kdfCk(*newState.Ckr)
	if err != nil {
		return nil, err
	}
	newState.Ckr = ckr
	newState.Nr++

	// 5. Decrypt
	adHeader, err := utils.concat(associatedData, header)
	if err != nil {
		return nil, err
	}
	plaintext, err = utils.decrypt(*mk, ciphertext, adHeader)
	if err != nil {
		return nil, err
	}

	// 6. Update State
	dr.CurrentState = newState
	return plaintext, nil
}

// MaxSkip returns the constant specifying the maximum number of message keys that can be skipped in a single chain
func (dr *DoubleRatchet) MaxSkip() MsgIndex {
	return maxSkip
}

func skipMessageKeys(newState *State, until MsgIndex) error {
	if newState.Nr+maxSkip < until {
		return ErrSkippingTooManyKeys
	}

	if newState.Ckr != nil {
		for newState.Nr < until {
			ckr, mk, err := utils.kdfCk(*newState.Ckr)
			if err != nil {
				return err
			}
			newState.Ckr = ckr
			newState.MkSkipped = append(newState.MkSkipped, SkippedKey{
				RatchetPub: newState.Dhr.Clone(),
				N:          newState.Nr,
				Key:        *mk,
			})
			newState.Nr++
		}
		if excess := len(newState.MkSkipped) - maxStoredSkipped; excess > 0 {
			newState.MkSkipped = newState.MkSkipped[excess:]
		}
	}
	return nil
}

func trySkippedMessageKeys(newState *State, header *Header, ciphertext, AD []byte) ([]byte, bool, error) {
	i, exists := newState.findSkipped(header.RatchetPub, header.N)
	if !exists {
		return nil, false, nil
	}
	mk := newState.MkSkipped[i].Key
	newState.MkSkipped = append(newState.MkSkipped[:i], newState.MkSkipped[i+1:]...)

	adHeader, err := utils.concat(AD, *header)
	if err != nil {
		return nil, false, err
	}
	plaintext, err := utils.decrypt(mk, ciphertext, adHeader)
	if err != nil {
		return nil, false, err
	}
	return plaintext, true, nil
}

func dhRatchetReceiveChain(newState *State, header *Header) error {
	newState.Nr = 0
	newState.Dhr = header.RatchetPub.Clone()

	dhOut, err := utils.dh(newState.Dhs.Priv, newState.Dhr)
	if err != nil {
		return err
	}

	rk, ckr, err := utils.kdfRk(newState.Rk, *dhOut)
	if err != nil {
		return err
	}
	newState.Rk = *rk
	newState.Ckr = ckr
	newState.SendRatchetPending = true
	return nil
}

func dhRatchetSendChain(newState *State) error {
	newState.Pn = newState.Ns
	newState.Ns = 0

	dhs, err := utils.generateDH()
	if err != nil {
		return err
	}
	newState.Dhs = *dhs

	dhOut, err := utils.dh(newState.Dhs.Priv, newState.Dhr)
	if err != nil {
		return err
	}

	rk, cks, err := utils.kdfRk(newState.Rk, *dhOut)
	if err != nil {
		return err
	}
	newState.Rk = *rk
	newState.Cks = cks
	newState.SendRatchetPending = false
	return nil
}
