package ports

import (
	"context"
	"time"
)

// ApprovalStore records which nonces the signer has handed out, keyed by
// wallet. It is a best-effort audit trail: the external ledger remains the
// sole authority on accepted nonces, so failures here never block signing.
type ApprovalStore interface {
	// RecordIssued marks nextNonce as issued for the wallet and reports
	// whether an approval for the same (wallet, nonce) pair had already
	// been recorded within the retention window.
	RecordIssued(ctx context.Context, walletAddress string, nextNonce int64, retention time.Duration) (alreadyIssued bool, err error)
}
