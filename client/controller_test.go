package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crosswalk-games/pointbridge/bridge"
	"github.com/crosswalk-games/pointbridge/core"
)

const testWallet = "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B"

type fakeVerifier struct {
	err error
}

func (f *fakeVerifier) Verify(_ core.AuthAssertion, _ core.WindowKind) error {
	return f.err
}

type fakeApprover struct {
	err   error
	calls []core.ActionRequest
}

func (f *fakeApprover) SignAction(_ context.Context, req core.ActionRequest) (core.ActionApproval, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return core.ActionApproval{}, f.err
	}
	return core.ActionApproval{Signature: "0xapproval", NextNonce: req.CurrentNonce + 1}, nil
}

// parentHarness is the host-page side of the bridge in tests.
type parentHarness struct {
	endpoint *bridge.Endpoint

	mu       sync.Mutex
	received []*bridge.Message
}

func newParentHarness(t *bridge.Endpoint) *parentHarness {
	h := &parentHarness{endpoint: t}
	t.AddListener(func(m *bridge.Message) {
		h.mu.Lock()
		h.received = append(h.received, m)
		h.mu.Unlock()
	})
	return h
}

func (h *parentHarness) messages() []*bridge.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*bridge.Message, len(h.received))
	copy(out, h.received)
	return out
}

func (h *parentHarness) sendAuth(t *testing.T, nonce, points int64) {
	t.Helper()
	msg, err := bridge.NewMessage(bridge.TypeAuth, bridge.AuthPayload{
		GameName:      "crosswalk",
		WalletAddress: testWallet,
		Signature:     "0xsig",
		Message:       "crosswalk:1700000000000",
		Timestamp:     1700000000000,
		CurrentNonce:  nonce,
		GamePoints:    points,
	})
	require.NoError(t, err)
	require.NoError(t, h.endpoint.Send(msg))
}

func (h *parentHarness) sendUpdate(t *testing.T, nonce, points int64) {
	t.Helper()
	msg, err := bridge.NewMessage(bridge.TypeUpdate, bridge.UpdatePayload{
		CurrentNonce: &nonce,
		GamePoints:   &points,
	})
	require.NoError(t, err)
	require.NoError(t, h.endpoint.Send(msg))
}

func (h *parentHarness) sendError(t *testing.T, code, message string) {
	t.Helper()
	msg, err := bridge.NewMessage(bridge.TypeError, bridge.ErrorPayload{Code: code, Message: message})
	require.NoError(t, err)
	require.NoError(t, h.endpoint.Send(msg))
}

type recorder struct {
	mu            sync.Mutex
	notifications []Notification
}

func (r *recorder) record(n Notification) {
	r.mu.Lock()
	r.notifications = append(r.notifications, n)
	r.mu.Unlock()
}

func (r *recorder) countErr(target error) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, n := range r.notifications {
		if n.Err != nil && errors.Is(n.Err, target) {
			count++
		}
	}
	return count
}

func setup(t *testing.T, verifier *fakeVerifier, approver *fakeApprover, opts ...ControllerOption) (*Controller, *parentHarness, *recorder) {
	t.Helper()
	parentT, childT := bridge.Pipe()
	parentEnd := bridge.NewEndpoint(parentT)
	childEnd := bridge.NewEndpoint(childT)

	harness := newParentHarness(parentEnd)
	rec := &recorder{}

	opts = append([]ControllerOption{WithNotify(rec.record)}, opts...)
	c := NewController("crosswalk", childEnd, verifier, approver, opts...)
	t.Cleanup(c.Stop)
	require.NoError(t, c.Start())

	return c, harness, rec
}

func TestStartSendsReady(t *testing.T) {
	c, harness, _ := setup(t, &fakeVerifier{}, &fakeApprover{})

	assert.Equal(t, core.StateWaiting, c.State())

	msgs := harness.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, bridge.TypeReady, msgs[0].Type)

	var p bridge.ReadyPayload
	require.NoError(t, msgs[0].DecodePayload(&p))
	assert.Equal(t, "crosswalk", p.GameName)
}

func TestAuthFlowReachesVerified(t *testing.T) {
	c, harness, _ := setup(t, &fakeVerifier{}, &fakeApprover{})

	harness.sendAuth(t, 5, 1000)

	assert.Equal(t, core.StateVerified, c.State())
	wallet, nonce, points := c.Session()
	assert.Equal(t, testWallet, wallet)
	assert.Equal(t, int64(5), nonce)
	assert.Equal(t, int64(1000), points)
}

func TestFailedVerificationAllowsRetry(t *testing.T) {
	verifier := &fakeVerifier{err: core.ErrExpiredAssertion}
	c, harness, rec := setup(t, verifier, &fakeApprover{})

	harness.sendAuth(t, 5, 1000)
	assert.Equal(t, core.StateAuth, c.State())
	assert.Equal(t, 1, rec.countErr(core.ErrExpiredAssertion))

	// A fresh auth after the wallet re-signs goes through.
	verifier.err = nil
	harness.sendAuth(t, 5, 1000)
	assert.Equal(t, core.StateVerified, c.State())
}

func TestMintSendsApprovalAndAppliesUpdate(t *testing.T) {
	approver := &fakeApprover{}
	c, harness, _ := setup(t, &fakeVerifier{}, approver)

	harness.sendAuth(t, 5, 1000)
	require.NoError(t, c.Mint(context.Background(), 100))

	assert.Equal(t, core.StateWaitingUpdate, c.State())

	require.Len(t, approver.calls, 1)
	req := approver.calls[0]
	assert.Equal(t, core.ActionMint, req.Action)
	assert.Equal(t, int64(100), req.Amount)
	assert.Equal(t, int64(5), req.CurrentNonce)
	assert.Equal(t, testWallet, req.WalletAddress)

	msgs := harness.messages()
	require.Len(t, msgs, 2) // ready + mint
	assert.Equal(t, bridge.TypeMint, msgs[1].Type)

	var p bridge.ActionPayload
	require.NoError(t, msgs[1].DecodePayload(&p))
	assert.Equal(t, "0xapproval", p.Signature)
	assert.Equal(t, int64(6), p.NextNonce)
	assert.Equal(t, int64(100), p.Amount)

	harness.sendUpdate(t, 6, 1100)
	assert.Equal(t, core.StateVerified, c.State())
	_, nonce, points := c.Session()
	assert.Equal(t, int64(6), nonce)
	assert.Equal(t, int64(1100), points)
}

func TestBurnUsesBurnMessage(t *testing.T) {
	c, harness, _ := setup(t, &fakeVerifier{}, &fakeApprover{})

	harness.sendAuth(t, 0, 500)
	require.NoError(t, c.Burn(context.Background(), 50))

	msgs := harness.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, bridge.TypeBurn, msgs[1].Type)
}

func TestSecondActionWhileInFlightIsRejected(t *testing.T) {
	approver := &fakeApprover{}
	c, harness, _ := setup(t, &fakeVerifier{}, approver)

	harness.sendAuth(t, 5, 1000)
	require.NoError(t, c.Mint(context.Background(), 100))

	err := c.Mint(context.Background(), 100)
	assert.ErrorIs(t, err, core.ErrActionInFlight)
	err = c.Burn(context.Background(), 10)
	assert.ErrorIs(t, err, core.ErrActionInFlight)

	// Never queued: the signer saw exactly one request.
	assert.Len(t, approver.calls, 1)
}

func TestActionRequiresVerifiedState(t *testing.T) {
	c, _, _ := setup(t, &fakeVerifier{}, &fakeApprover{})

	err := c.Mint(context.Background(), 100)
	assert.ErrorIs(t, err, core.ErrInvalidState)
}

func TestSignerFailureReturnsToVerified(t *testing.T) {
	approver := &fakeApprover{err: core.ErrInvalidAmount}
	c, harness, _ := setup(t, &fakeVerifier{}, approver)

	harness.sendAuth(t, 5, 1000)

	err := c.Mint(context.Background(), 100)
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
	assert.Equal(t, core.StateVerified, c.State())

	// No action message went out.
	assert.Len(t, harness.messages(), 1)
}

func TestErrorMessageResolvesAction(t *testing.T) {
	c, harness, rec := setup(t, &fakeVerifier{}, &fakeApprover{})

	harness.sendAuth(t, 5, 1000)
	require.NoError(t, c.Mint(context.Background(), 100))

	harness.sendError(t, "INSUFFICIENT_FUNDS", "not enough points")
	assert.Equal(t, core.StateVerified, c.State())

	rec.mu.Lock()
	last := rec.notifications[len(rec.notifications)-1]
	rec.mu.Unlock()
	require.Error(t, last.Err)
	assert.Contains(t, last.Err.Error(), "INSUFFICIENT_FUNDS")

	// Nonce unchanged: the action was rejected.
	_, nonce, _ := c.Session()
	assert.Equal(t, int64(5), nonce)
}

func TestTimeoutFiresExactlyOnceAndLateUpdateIsIgnored(t *testing.T) {
	c, harness, rec := setup(t, &fakeVerifier{}, &fakeApprover{},
		WithUpdateTimeout(30*time.Millisecond))

	harness.sendAuth(t, 5, 1000)
	require.NoError(t, c.Mint(context.Background(), 100))
	assert.Equal(t, core.StateWaitingUpdate, c.State())

	require.Eventually(t, func() bool {
		return c.State() == core.StateVerified
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, 1, rec.countErr(core.ErrUpdateTimeout))

	// A late-arriving update for the timed-out action changes nothing.
	harness.sendUpdate(t, 6, 1100)
	_, nonce, points := c.Session()
	assert.Equal(t, int64(5), nonce)
	assert.Equal(t, int64(1000), points)

	// Still exactly one timeout notification.
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 1, rec.countErr(core.ErrUpdateTimeout))
}

func TestEarlyUpdateCancelsDeadline(t *testing.T) {
	c, harness, rec := setup(t, &fakeVerifier{}, &fakeApprover{},
		WithUpdateTimeout(40*time.Millisecond))

	harness.sendAuth(t, 5, 1000)
	require.NoError(t, c.Mint(context.Background(), 100))
	harness.sendUpdate(t, 6, 1100)

	// The cancelled timer never fires.
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, 0, rec.countErr(core.ErrUpdateTimeout))
	assert.Equal(t, core.StateVerified, c.State())
}

func TestActionCycleRepeats(t *testing.T) {
	c, harness, _ := setup(t, &fakeVerifier{}, &fakeApprover{})

	harness.sendAuth(t, 5, 1000)

	for i := int64(0); i < 3; i++ {
		require.NoError(t, c.Mint(context.Background(), 10))
		harness.sendUpdate(t, 6+i, 1000+10*(i+1))
		require.Equal(t, core.StateVerified, c.State())
	}

	_, nonce, _ := c.Session()
	assert.Equal(t, int64(8), nonce)
}

func TestStartTwiceFails(t *testing.T) {
	c, _, _ := setup(t, &fakeVerifier{}, &fakeApprover{})
	assert.ErrorIs(t, c.Start(), core.ErrInvalidState)
}
