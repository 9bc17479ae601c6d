package groups

import (
	"github.com/Setheum-Foundation/SignalMetadataKit/configs"
	"github.com/Setheum-Foundation/SignalMetadataKit/crypto"
	"github.com/Setheum-Foundation/SignalMetadataKit/crypto/hkdf"
	"github.com/Setheum-Foundation/SignalMetadataKit/crypto/hmac"
	"github.com/Setheum-Foundation/SignalMetadataKit/protocol/record"
)

// maxForwardJumps bounds how many iterations a single message may skip
const maxForwardJumps = 25000

var (
	messageKeySeed = []byte{0x01}
	chainKeySeed   = []byte{0x02}
)

func nextChainKey(ck record.SenderChainKey) record.SenderChainKey {
	return record.SenderChainKey{
		Iteration: ck.Iteration + 1,
		Seed:      hmac.Hash(crypto.DefaultHashFunc, ck.Seed, chainKeySeed),
	}
}

func messageKey(ck record.SenderChainKey) record.SenderMessageKey {
	return record.SenderMessageKey{
		Iteration: ck.Iteration,
		Seed:      hmac.Hash(crypto.DefaultHashFunc, ck.Seed, messageKeySeed),
	}
}

// expand derives the AES key and IV of a message key.
func expand(mk record.SenderMessageKey) (key [32]byte, iv [16]byte, err error) {
	out, err := hkdf.DeriveKey(mk.Seed, nil, configs.HKDFInfoSenderKey, 48)
	if err != nil {
		return key, iv, err
	}
	copy(iv[:], out[:16])
	copy(key[:], out[16:])
	return key, iv, nil
}

// messageKeyFor returns the key for iteration, moving the chain forward and
// keeping the keys it skips.
func messageKeyFor(state *record.SenderKeyState, iteration uint32) (record.SenderMessageKey, error) {
	ck := state.ChainKey
	if iteration < ck.Iteration {
		if mk, ok := state.RemoveMessageKey(iteration); ok {
			return mk, nil
		}
		return record.SenderMessageKey{}, ErrDuplicateMessage
	}
	if iteration-ck.Iteration > maxForwardJumps {
		return record.SenderMessageKey{}, ErrTooFarIntoFuture
	}
	for ck.Iteration < iteration {
		state.AddMessageKey(messageKey(ck))
		ck = nextChainKey(ck)
	}
	state.ChainKey = nextChainKey(ck)
	return messageKey(ck), nil
}
