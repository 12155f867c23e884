package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crosswalk-games/pointbridge/core"
)

const testLedger = "0xCcCCccccCCCCcCCCCCCcCcCccCcCCCcCcccccccC"

// stubCrypto stands in for the external verify capability.
type stubCrypto struct {
	result bool
	err    error
	calls  int
}

func (s *stubCrypto) VerifySignature(message, signature, walletAddress string) (bool, error) {
	s.calls++
	return s.result, s.err
}

func newTestVerifier(t *testing.T, appID string, crypto *stubCrypto, nowMilli int64) *VerifierService {
	t.Helper()
	cfg := &core.Config{
		AppID:             appID,
		LedgerAddress:     testLedger,
		InteractiveWindow: 300000 * time.Millisecond,
		APIWindow:         3600000 * time.Millisecond,
	}
	v, err := NewVerifierService(cfg, crypto, zap.NewNop())
	require.NoError(t, err)
	v.now = func() time.Time { return time.UnixMilli(nowMilli) }
	return v
}

func assertion(wallet, appID string, ts int64) core.AuthAssertion {
	return core.AuthAssertion{
		WalletAddress: wallet,
		Signature:     "0xsig",
		Message:       core.CanonicalMessage(appID, ts),
		Timestamp:     ts,
	}
}

func TestVerifyWithinWindow(t *testing.T) {
	crypto := &stubCrypto{result: true}

	// 299s elapsed against a 300s window.
	v := newTestVerifier(t, "app", crypto, 1700000299000)
	err := v.Verify(assertion("0xabc", "app", 1700000000000), core.WindowInteractive)
	assert.NoError(t, err)
	assert.Equal(t, 1, crypto.calls)
}

func TestVerifyExpired(t *testing.T) {
	crypto := &stubCrypto{result: true}

	// 301s elapsed against a 300s window.
	v := newTestVerifier(t, "app", crypto, 1700000301000)
	err := v.Verify(assertion("0xabc", "app", 1700000000000), core.WindowInteractive)
	assert.ErrorIs(t, err, core.ErrExpiredAssertion)
	assert.Equal(t, 0, crypto.calls, "no cryptographic work on expired assertion")
}

func TestVerifyExpiryBoundaryInclusive(t *testing.T) {
	const ts = 1700000000000

	// Exactly window old: accepted.
	v := newTestVerifier(t, "app", &stubCrypto{result: true}, ts+300000)
	assert.NoError(t, v.Verify(assertion("0xabc", "app", ts), core.WindowInteractive))

	// One millisecond past the window: rejected.
	v = newTestVerifier(t, "app", &stubCrypto{result: true}, ts+300001)
	assert.ErrorIs(t, v.Verify(assertion("0xabc", "app", ts), core.WindowInteractive), core.ErrExpiredAssertion)
}

func TestVerifyFutureTimestamp(t *testing.T) {
	const now = 1700000000000

	// Exactly at the skew tolerance: accepted.
	v := newTestVerifier(t, "app", &stubCrypto{result: true}, now)
	assert.NoError(t, v.Verify(assertion("0xabc", "app", now+60000), core.WindowInteractive))

	// One millisecond beyond: rejected before any crypto work.
	crypto := &stubCrypto{result: true}
	v = newTestVerifier(t, "app", crypto, now)
	err := v.Verify(assertion("0xabc", "app", now+60001), core.WindowInteractive)
	assert.ErrorIs(t, err, core.ErrFutureTimestamp)
	assert.Equal(t, 0, crypto.calls)
}

func TestVerifyMessageMismatch(t *testing.T) {
	crypto := &stubCrypto{result: true}
	v := newTestVerifier(t, "app", crypto, 1700000001000)

	a := assertion("0xabc", "app", 1700000000000)
	a.Message = "other:1700000000000"

	err := v.Verify(a, core.WindowInteractive)
	assert.ErrorIs(t, err, core.ErrMessageMismatch)
	assert.Equal(t, 0, crypto.calls, "template mismatch short-circuits before crypto")
}

func TestVerifyCryptoFailure(t *testing.T) {
	v := newTestVerifier(t, "app", &stubCrypto{result: false}, 1700000001000)
	err := v.Verify(assertion("0xabc", "app", 1700000000000), core.WindowInteractive)
	assert.ErrorIs(t, err, core.ErrVerificationFailed)

	v = newTestVerifier(t, "app", &stubCrypto{err: errors.New("boom")}, 1700000001000)
	err = v.Verify(assertion("0xabc", "app", 1700000000000), core.WindowInteractive)
	assert.ErrorIs(t, err, core.ErrVerificationFailed)
}

func TestVerifyDualWindows(t *testing.T) {
	const ts = 1700000000000

	// 30 minutes old: too old for the interactive window, fine for API.
	now := ts + (30 * time.Minute).Milliseconds()

	v := newTestVerifier(t, "app", &stubCrypto{result: true}, now)
	assert.ErrorIs(t, v.Verify(assertion("0xabc", "app", ts), core.WindowInteractive), core.ErrExpiredAssertion)
	assert.NoError(t, v.Verify(assertion("0xabc", "app", ts), core.WindowAPI))
}
