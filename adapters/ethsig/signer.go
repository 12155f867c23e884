package ethsig

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/crosswalk-games/pointbridge/core"
	"github.com/crosswalk-games/pointbridge/ports"
)

// ApprovalSigner co-signs action tuples with the service's private key.
type ApprovalSigner struct {
	key *ecdsa.PrivateKey
}

// NewApprovalSigner wraps the process-wide signing key. The key is loaded
// once at startup and must never be logged or echoed in responses.
func NewApprovalSigner(key *ecdsa.PrivateKey) *ApprovalSigner {
	return &ApprovalSigner{key: key}
}

var _ ports.ApprovalSigner = (*ApprovalSigner)(nil)

// Address returns the address downstream verifiers recover from approvals.
func (s *ApprovalSigner) Address() common.Address {
	return crypto.PubkeyToAddress(s.key.PublicKey)
}

// SignAction packs the canonical tuple, hashes it and produces a detached
// personal-sign signature over the 32-byte hash. The returned signature is
// hex encoded with V in {27, 28}.
func (s *ApprovalSigner) SignAction(walletAddress string, action core.Action, amount, nextNonce int64, ledgerAddress string) (string, error) {
	hash := HashAction(walletAddress, action, amount, nextNonce, ledgerAddress)

	sig, err := crypto.Sign(personalHash(hash), s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign action hash: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27

	return hexutil.Encode(sig), nil
}

// PackAction builds the deterministic byte encoding of the approval tuple:
// tightly packed string/string/uint256/uint256/string, addresses lowercased.
// The order and types are part of the wire contract; any consumer must
// reconstruct the identical tuple to verify the approval downstream.
func PackAction(walletAddress string, action core.Action, amount, nextNonce int64, ledgerAddress string) []byte {
	var buf []byte
	buf = append(buf, []byte(strings.ToLower(walletAddress))...)
	buf = append(buf, []byte(action)...)
	buf = append(buf, packUint256(amount)...)
	buf = append(buf, packUint256(nextNonce)...)
	buf = append(buf, []byte(strings.ToLower(ledgerAddress))...)
	return buf
}

// HashAction is the keccak256 of the packed tuple.
func HashAction(walletAddress string, action core.Action, amount, nextNonce int64, ledgerAddress string) []byte {
	return crypto.Keccak256(PackAction(walletAddress, action, amount, nextNonce, ledgerAddress))
}

// RecoverActionSigner recovers the address that co-signed the given tuple.
func RecoverActionSigner(signature, walletAddress string, action core.Action, amount, nextNonce int64, ledgerAddress string) (common.Address, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to decode signature: %w", err)
	}
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("signature must be %d bytes, got %d", crypto.SignatureLength, len(sig))
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	hash := HashAction(walletAddress, action, amount, nextNonce, ledgerAddress)
	pubKey, err := crypto.SigToPub(personalHash(hash), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pubKey), nil
}

// SignMessage produces a personal-sign signature over an arbitrary message.
// This is the wallet side of the assertion handshake, exposed for tooling
// and tests.
func SignMessage(key *ecdsa.PrivateKey, message string) (string, error) {
	sig, err := crypto.Sign(personalHash([]byte(message)), key)
	if err != nil {
		return "", fmt.Errorf("failed to sign message: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig), nil
}

func packUint256(v int64) []byte {
	return common.LeftPadBytes(new(big.Int).SetInt64(v).Bytes(), 32)
}
