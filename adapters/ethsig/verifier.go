// Package ethsig implements the cryptographic capabilities of the protocol
// with go-ethereum primitives: personal-sign verification of wallet
// assertions and the service co-signature over the packed action tuple.
package ethsig

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/crosswalk-games/pointbridge/ports"
)

// personalHash applies the EIP-191 "Ethereum Signed Message" prefix before
// hashing, matching what wallets do for personal_sign.
func personalHash(data []byte) []byte {
	prefix := fmt.Sprintf("\x19Ethereum Signed Message:\n%d", len(data))
	return crypto.Keccak256([]byte(prefix), data)
}

// PersonalSignVerifier verifies personal_sign signatures by recovering the
// signer address and comparing it to the claimed wallet.
type PersonalSignVerifier struct{}

// NewPersonalSignVerifier returns the verification capability used by the
// verifier service.
func NewPersonalSignVerifier() ports.AddressVerifier {
	return PersonalSignVerifier{}
}

func (PersonalSignVerifier) VerifySignature(message, signature, walletAddress string) (bool, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return false, fmt.Errorf("failed to decode signature: %w", err)
	}
	if len(sig) != crypto.SignatureLength {
		return false, fmt.Errorf("signature must be %d bytes, got %d", crypto.SignatureLength, len(sig))
	}

	// Wallets emit V as 27/28; go-ethereum recovery expects 0/1.
	recSig := make([]byte, len(sig))
	copy(recSig, sig)
	if recSig[crypto.RecoveryIDOffset] >= 27 {
		recSig[crypto.RecoveryIDOffset] -= 27
	}

	pubKey, err := crypto.SigToPub(personalHash([]byte(message)), recSig)
	if err != nil {
		return false, fmt.Errorf("failed to recover public key: %w", err)
	}

	recovered := crypto.PubkeyToAddress(*pubKey)
	return recovered == common.HexToAddress(walletAddress), nil
}
