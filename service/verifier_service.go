package service

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/crosswalk-games/pointbridge/core"
	"github.com/crosswalk-games/pointbridge/ports"
)

// VerifierService validates wallet-signed auth assertions against an expiry
// window and the canonical message template, delegating the cryptographic
// check to the AddressVerifier capability.
type VerifierService struct {
	cfg    *core.Config
	crypto ports.AddressVerifier
	logger *zap.Logger

	now func() time.Time
}

// NewVerifierService creates a new verifier service
func NewVerifierService(cfg *core.Config, crypto ports.AddressVerifier, logger *zap.Logger) (*VerifierService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if crypto == nil {
		return nil, fmt.Errorf("%w: address verifier is required", core.ErrConfiguration)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VerifierService{
		cfg:    cfg,
		crypto: crypto,
		logger: logger,
		now:    time.Now,
	}, nil
}

var _ ports.AssertionVerifier = (*VerifierService)(nil)

// Verify checks the assertion in order: expiry window, future-timestamp
// skew, canonical message template, then the cryptographic signature.
// It short-circuits on the first failure. Boundary timestamps (exactly at
// the window edge or exactly at now+skew) are accepted.
func (s *VerifierService) Verify(assertion core.AuthAssertion, kind core.WindowKind) error {
	window := s.cfg.Window(kind)
	now := s.now().UnixMilli()

	if assertion.Timestamp < now-window.Milliseconds() {
		return fmt.Errorf("%w: timestamp is older than %s", core.ErrExpiredAssertion, window)
	}

	if assertion.Timestamp > now+core.ClockSkew.Milliseconds() {
		return core.ErrFutureTimestamp
	}

	expected := core.CanonicalMessage(s.cfg.AppID, assertion.Timestamp)
	if assertion.Message != expected {
		return fmt.Errorf("%w: expected %q", core.ErrMessageMismatch, expected)
	}

	isValid, err := s.crypto.VerifySignature(assertion.Message, assertion.Signature, assertion.WalletAddress)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrVerificationFailed, err)
	}
	if !isValid {
		return core.ErrVerificationFailed
	}

	s.logger.Debug("auth assertion verified",
		zap.String("wallet", assertion.WalletAddress),
		zap.String("window", kind.String()),
	)

	return nil
}
