package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/crosswalk-games/pointbridge/core"
	"github.com/crosswalk-games/pointbridge/ports"
)

// SignerService validates action requests, re-verifies the embedded auth
// assertion under the API window, and co-signs the canonical action tuple.
// It is stateless: the authoritative nonce ledger lives outside this
// system; the approval store and event publisher are best-effort.
type SignerService struct {
	cfg      *core.Config
	verifier ports.AssertionVerifier
	signer   ports.ApprovalSigner
	store    ports.ApprovalStore
	eventPub ports.EventPublisher
	logger   *zap.Logger
}

// NewSignerService creates a new signer service. Store and event publisher
// may be nil; a missing signing capability is a configuration fault.
func NewSignerService(
	cfg *core.Config,
	verifier ports.AssertionVerifier,
	signer ports.ApprovalSigner,
	store ports.ApprovalStore,
	eventPub ports.EventPublisher,
	logger *zap.Logger,
) (*SignerService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if verifier == nil {
		return nil, fmt.Errorf("%w: assertion verifier is required", core.ErrConfiguration)
	}
	if signer == nil {
		return nil, fmt.Errorf("%w: approval signer is required", core.ErrConfiguration)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SignerService{
		cfg:      cfg,
		verifier: verifier,
		signer:   signer,
		store:    store,
		eventPub: eventPub,
		logger:   logger,
	}, nil
}

var _ ports.ActionApprover = (*SignerService)(nil)

// SignAction validates the request and returns a signed approval advancing
// the wallet's nonce by exactly one. Validation order: wallet, action,
// amount, nonce, auth presence, then signature re-verification with the
// API window. No cryptographic work happens before the cheap checks pass.
func (s *SignerService) SignAction(ctx context.Context, req core.ActionRequest) (core.ActionApproval, error) {
	if !common.IsHexAddress(req.WalletAddress) {
		return core.ActionApproval{}, core.ErrInvalidWallet
	}
	if !req.Action.Valid() {
		return core.ActionApproval{}, fmt.Errorf("%w: must be %q or %q", core.ErrInvalidAction, core.ActionMint, core.ActionBurn)
	}
	if req.Amount <= 0 {
		return core.ActionApproval{}, fmt.Errorf("%w: must be a positive number", core.ErrInvalidAmount)
	}
	if req.CurrentNonce < 0 {
		return core.ActionApproval{}, fmt.Errorf("%w: must be a non-negative number", core.ErrInvalidNonce)
	}

	// The wire carries only the assertion's signature, message and
	// timestamp; it is bound to the requesting wallet here.
	assertion := req.Auth
	assertion.WalletAddress = req.WalletAddress
	if !assertion.Complete() {
		return core.ActionApproval{}, core.ErrMissingAuthData
	}

	if err := s.verifier.Verify(assertion, core.WindowAPI); err != nil {
		return core.ActionApproval{}, fmt.Errorf("%w: %v", core.ErrAuthenticationFailed, err)
	}

	nextNonce := req.CurrentNonce + 1

	signature, err := s.signer.SignAction(req.WalletAddress, req.Action, req.Amount, nextNonce, s.cfg.LedgerAddress)
	if err != nil {
		return core.ActionApproval{}, fmt.Errorf("failed to sign action: %w", err)
	}

	s.recordIssued(ctx, req, nextNonce)

	return core.ActionApproval{
		Signature: signature,
		NextNonce: nextNonce,
	}, nil
}

// recordIssued writes the best-effort audit trail and publishes the
// approval event. Neither failure blocks the approval: the external ledger
// owns nonce truth and rejects replays on redemption.
func (s *SignerService) recordIssued(ctx context.Context, req core.ActionRequest, nextNonce int64) {
	wallet := strings.ToLower(req.WalletAddress)

	if s.store != nil {
		already, err := s.store.RecordIssued(ctx, wallet, nextNonce, s.cfg.APIWindow)
		if err != nil {
			s.logger.Warn("failed to record issued approval",
				zap.String("wallet", wallet),
				zap.Int64("next_nonce", nextNonce),
				zap.Error(err),
			)
		} else if already {
			s.logger.Warn("duplicate approval issued for nonce",
				zap.String("wallet", wallet),
				zap.Int64("next_nonce", nextNonce),
			)
		}
	}

	if s.eventPub != nil {
		if err := s.eventPub.PublishApproval(ctx, wallet, req.Action, req.Amount, nextNonce); err != nil {
			s.logger.Warn("failed to publish approval event", zap.Error(err))
		}
	}
}
