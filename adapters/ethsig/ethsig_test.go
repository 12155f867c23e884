package ethsig

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crosswalk-games/pointbridge/core"
)

const ledger = "0xCcCCccccCCCCcCCCCCCcCcCccCcCCCcCcccccccC"

func TestVerifySignatureRoundTrip(t *testing.T) {
	goodKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	badKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	message := "crosswalk:1700000000000"
	signature, err := SignMessage(goodKey, message)
	require.NoError(t, err)

	goodAddress := crypto.PubkeyToAddress(goodKey.PublicKey).Hex()
	badAddress := crypto.PubkeyToAddress(badKey.PublicKey).Hex()

	verifier := NewPersonalSignVerifier()

	isValid, err := verifier.VerifySignature(message, signature, goodAddress)
	require.NoError(t, err)
	assert.True(t, isValid)

	isValid, err = verifier.VerifySignature(message, signature, badAddress)
	require.NoError(t, err)
	assert.False(t, isValid)

	// A different message signed by the same key does not verify.
	isValid, err = verifier.VerifySignature("crosswalk:1700000000001", signature, goodAddress)
	require.NoError(t, err)
	assert.False(t, isValid)
}

func TestVerifySignatureMalformed(t *testing.T) {
	verifier := NewPersonalSignVerifier()

	_, err := verifier.VerifySignature("msg", "not-hex", "0xabc")
	assert.Error(t, err)

	_, err = verifier.VerifySignature("msg", "0x0102", "0xabc")
	assert.Error(t, err)
}

func TestPackActionDeterminism(t *testing.T) {
	wallet := "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B"

	first := PackAction(wallet, core.ActionMint, 100, 6, ledger)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, PackAction(wallet, core.ActionMint, 100, 6, ledger))
		assert.Equal(t, HashAction(wallet, core.ActionMint, 100, 6, ledger), HashAction(wallet, core.ActionMint, 100, 6, ledger))
	}

	// string/string/uint256/uint256/string with lowercased addresses.
	expectedLen := len("0xab5801a7d398351b8be11c439e05c5b3259aec9b") + len("mint") + 32 + 32 + len(ledger)
	assert.Len(t, first, expectedLen)

	// Any tuple change produces different bytes.
	assert.NotEqual(t, first, PackAction(wallet, core.ActionBurn, 100, 6, ledger))
	assert.NotEqual(t, first, PackAction(wallet, core.ActionMint, 101, 6, ledger))
	assert.NotEqual(t, first, PackAction(wallet, core.ActionMint, 100, 7, ledger))
}

func TestSignActionRecoversSigner(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := NewApprovalSigner(key)

	wallet := "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B"

	signature, err := signer.SignAction(wallet, core.ActionMint, 100, 6, ledger)
	require.NoError(t, err)

	recovered, err := RecoverActionSigner(signature, wallet, core.ActionMint, 100, 6, ledger)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), recovered)

	// Tampering with the tuple recovers a different address.
	recovered, err = RecoverActionSigner(signature, wallet, core.ActionMint, 200, 6, ledger)
	require.NoError(t, err)
	assert.NotEqual(t, signer.Address(), recovered)
}
