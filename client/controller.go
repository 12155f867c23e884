// Package client drives the game-side flow across the bridge: announce
// readiness, receive and verify the wallet's auth assertion, request signed
// mint/burn approvals, and wait for the ledger authority's confirmation.
package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/crosswalk-games/pointbridge/bridge"
	"github.com/crosswalk-games/pointbridge/core"
	"github.com/crosswalk-games/pointbridge/ports"
)

// DefaultUpdateTimeout bounds the wait for an update/error after an action
// message is sent.
const DefaultUpdateTimeout = 30 * time.Second

// Notification is delivered to the controller's callback on every state
// change. Err is set when the transition was caused by a failure (signer
// rejection, ledger error, confirmation timeout).
type Notification struct {
	State core.ControllerState
	Err   error
}

// Controller is the client-side state machine. One wallet session per
// instance; transitions are serialized and each inbound event is processed
// to completion before the next. At most one action is in flight.
type Controller struct {
	gameName string
	endpoint *bridge.Endpoint
	verifier ports.AssertionVerifier
	approver ports.ActionApprover
	logger   *zap.Logger
	notify   func(Notification)
	timeout  time.Duration

	mu            sync.Mutex
	state         core.ControllerState
	walletAddress string
	currentNonce  int64
	gamePoints    int64
	assertion     core.AuthAssertion
	pending       *pendingAction
	generation    uint64
	unsubscribe   func()
}

// pendingAction is the cancellation token for the in-flight action. The
// generation guards against a stale timer firing after the action already
// resolved.
type pendingAction struct {
	action     core.Action
	generation uint64
	timer      *time.Timer
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithNotify sets the state-change callback. The callback runs inside the
// transition and must not call back into the controller.
func WithNotify(fn func(Notification)) ControllerOption {
	return func(c *Controller) { c.notify = fn }
}

// WithUpdateTimeout overrides the confirmation deadline.
func WithUpdateTimeout(d time.Duration) ControllerOption {
	return func(c *Controller) { c.timeout = d }
}

// WithControllerLogger sets the controller logger.
func WithControllerLogger(logger *zap.Logger) ControllerOption {
	return func(c *Controller) { c.logger = logger }
}

// NewController creates a controller bound to one bridge endpoint.
func NewController(
	gameName string,
	endpoint *bridge.Endpoint,
	verifier ports.AssertionVerifier,
	approver ports.ActionApprover,
	opts ...ControllerOption,
) *Controller {
	c := &Controller{
		gameName: gameName,
		endpoint: endpoint,
		verifier: verifier,
		approver: approver,
		logger:   zap.NewNop(),
		timeout:  DefaultUpdateTimeout,
		state:    core.StateWaiting,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start subscribes to the bridge and announces readiness.
func (c *Controller) Start() error {
	c.mu.Lock()
	if c.unsubscribe != nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: controller already started", core.ErrInvalidState)
	}
	c.unsubscribe = c.endpoint.AddListener(c.handleMessage)
	c.mu.Unlock()

	msg, err := bridge.NewMessage(bridge.TypeReady, bridge.ReadyPayload{GameName: c.gameName})
	if err != nil {
		return err
	}
	return c.endpoint.Send(msg)
}

// Stop unsubscribes from the bridge and cancels any pending deadline.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
	if c.pending != nil {
		c.pending.timer.Stop()
		c.pending = nil
	}
}

// State returns the current controller state.
func (c *Controller) State() core.ControllerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session returns the captured wallet address, nonce and points.
func (c *Controller) Session() (walletAddress string, currentNonce, gamePoints int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.walletAddress, c.currentNonce, c.gamePoints
}

// Mint requests a signed mint approval and forwards it to the ledger
// authority over the bridge.
func (c *Controller) Mint(ctx context.Context, amount int64) error {
	return c.act(ctx, core.ActionMint, amount)
}

// Burn requests a signed burn approval and forwards it to the ledger
// authority over the bridge.
func (c *Controller) Burn(ctx context.Context, amount int64) error {
	return c.act(ctx, core.ActionBurn, amount)
}

func (c *Controller) act(ctx context.Context, action core.Action, amount int64) error {
	c.mu.Lock()

	if c.pending != nil {
		c.mu.Unlock()
		return core.ErrActionInFlight
	}
	if c.state != core.StateVerified {
		c.mu.Unlock()
		return fmt.Errorf("%w: action requires a verified session, state is %s", core.ErrInvalidState, c.state)
	}

	if action == core.ActionBurn {
		c.setState(core.StateBurning, nil)
	} else {
		c.setState(core.StateMinting, nil)
	}

	req := core.ActionRequest{
		WalletAddress: c.walletAddress,
		Action:        action,
		Amount:        amount,
		CurrentNonce:  c.currentNonce,
		Auth:          c.assertion,
	}
	c.mu.Unlock()

	approval, err := c.approver.SignAction(ctx, req)

	c.mu.Lock()
	if err != nil {
		c.setState(core.StateVerified, err)
		c.mu.Unlock()
		return err
	}

	msg, merr := bridge.NewMessage(bridge.MessageType(action), bridge.ActionPayload{
		GameName:      c.gameName,
		WalletAddress: c.walletAddress,
		Signature:     approval.Signature,
		Amount:        amount,
		NextNonce:     approval.NextNonce,
	})
	if merr != nil {
		c.setState(core.StateVerified, merr)
		c.mu.Unlock()
		return merr
	}

	// Arm the deadline before sending so a synchronous reply finds the
	// pending action in place. Arming always supersedes any prior token.
	c.generation++
	gen := c.generation
	c.pending = &pendingAction{
		action:     action,
		generation: gen,
		timer:      time.AfterFunc(c.timeout, func() { c.onTimeout(gen) }),
	}
	c.setState(core.StateWaitingUpdate, nil)
	c.mu.Unlock()

	if serr := c.endpoint.Send(msg); serr != nil {
		c.mu.Lock()
		c.clearPending()
		c.setState(core.StateVerified, serr)
		c.mu.Unlock()
		return serr
	}
	return nil
}

func (c *Controller) handleMessage(msg *bridge.Message) {
	switch msg.Type {
	case bridge.TypeAuth:
		c.handleAuth(msg)
	case bridge.TypeUpdate:
		c.handleUpdate(msg)
	case bridge.TypeError:
		c.handleError(msg)
	default:
		// ready/mint/burn are not addressed to this side
	}
}

func (c *Controller) handleAuth(msg *bridge.Message) {
	var p bridge.AuthPayload
	if err := msg.DecodePayload(&p); err != nil {
		c.logger.Warn("discarding malformed auth message", zap.Error(err))
		return
	}
	if p.WalletAddress == "" {
		c.logger.Warn("discarding auth message without wallet address")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case core.StateMinting, core.StateBurning, core.StateWaitingUpdate:
		c.logger.Warn("ignoring auth message while action is in flight")
		return
	}

	c.walletAddress = p.WalletAddress
	c.currentNonce = p.CurrentNonce
	c.gamePoints = p.GamePoints
	c.assertion = core.AuthAssertion{
		WalletAddress: p.WalletAddress,
		Signature:     p.Signature,
		Message:       p.Message,
		Timestamp:     p.Timestamp,
	}

	c.setState(core.StateAuth, nil)
	c.setState(core.StateVerifying, nil)

	if err := c.verifier.Verify(c.assertion, core.WindowInteractive); err != nil {
		c.logger.Warn("auth assertion rejected", zap.Error(err))
		// Back to auth: a fresh auth message can retry.
		c.setState(core.StateAuth, err)
		return
	}

	c.setState(core.StateVerified, nil)
}

func (c *Controller) handleUpdate(msg *bridge.Message) {
	var p bridge.UpdatePayload
	if err := msg.DecodePayload(&p); err != nil {
		c.logger.Warn("discarding malformed update message", zap.Error(err))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending == nil {
		c.logger.Debug("ignoring update with no action in flight")
		return
	}
	c.clearPending()

	if p.CurrentNonce != nil {
		c.currentNonce = *p.CurrentNonce
	}
	if p.GamePoints != nil {
		c.gamePoints = *p.GamePoints
	}

	c.setState(core.StateVerified, nil)
}

func (c *Controller) handleError(msg *bridge.Message) {
	var p bridge.ErrorPayload
	if err := msg.DecodePayload(&p); err != nil {
		c.logger.Warn("discarding malformed error message", zap.Error(err))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending == nil {
		c.logger.Debug("ignoring error with no action in flight",
			zap.String("code", p.Code))
		return
	}
	action := c.pending.action
	c.clearPending()

	c.setState(core.StateVerified, fmt.Errorf("ledger rejected %s: %s: %s", action, p.Code, p.Message))
}

// onTimeout fires when the confirmation deadline elapses. A stale timer
// whose generation no longer matches the pending action is a no-op.
func (c *Controller) onTimeout(generation uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending == nil || c.pending.generation != generation {
		return
	}
	c.pending = nil

	c.setState(core.StateVerified, core.ErrUpdateTimeout)
}

// clearPending cancels the deadline timer. Callers hold c.mu.
func (c *Controller) clearPending() {
	if c.pending != nil {
		c.pending.timer.Stop()
		c.pending = nil
	}
}

// setState transitions and notifies. Callers hold c.mu.
func (c *Controller) setState(state core.ControllerState, err error) {
	c.state = state
	if err != nil {
		c.logger.Info("controller transition",
			zap.String("state", string(state)), zap.Error(err))
	}
	if c.notify != nil {
		c.notify(Notification{State: state, Err: err})
	}
}
