package ports

import "github.com/crosswalk-games/pointbridge/core"

// AddressVerifier is the external cryptographic capability the verifier
// delegates to: did this wallet address sign this exact message?
type AddressVerifier interface {
	VerifySignature(message, signature, walletAddress string) (bool, error)
}

// ApprovalSigner produces the service's detached co-signature over the
// canonical action tuple. The packed byte order and types are part of the
// wire contract; downstream verifiers reconstruct the identical tuple.
type ApprovalSigner interface {
	SignAction(walletAddress string, action core.Action, amount, nextNonce int64, ledgerAddress string) (string, error)
}
