package ports

import (
	"context"

	"github.com/crosswalk-games/pointbridge/core"
)

// AssertionVerifier validates a wallet-signed assertion against a window.
// Implemented in-process by the verifier service and over HTTP by the
// API client adapter.
type AssertionVerifier interface {
	Verify(assertion core.AuthAssertion, kind core.WindowKind) error
}

// ActionApprover turns a validated action request into a signed approval.
type ActionApprover interface {
	SignAction(ctx context.Context, req core.ActionRequest) (core.ActionApproval, error)
}
