package core

// Action is a balance-changing operation on the external point ledger.
type Action string

const (
	ActionMint Action = "mint"
	ActionBurn Action = "burn"
)

// Valid reports whether the action is one of the recognized kinds.
func (a Action) Valid() bool {
	return a == ActionMint || a == ActionBurn
}

// ActionRequest asks the signer service to authorize advancing the wallet's
// action nonce by one while applying Action of size Amount. The embedded
// assertion is re-verified under the API window at signing time.
type ActionRequest struct {
	WalletAddress string
	Action        Action
	Amount        int64 // positive
	CurrentNonce  int64 // non-negative; authoritative nonce lives on the ledger
	Auth          AuthAssertion
}

// ActionApproval is the signer's attestation that
// (wallet, action, amount, nextNonce, ledger) is authorized.
// NextNonce is always CurrentNonce+1. The approval is ephemeral and is
// redeemed exactly once by the external ledger.
type ActionApproval struct {
	Signature string
	NextNonce int64
}
