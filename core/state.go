package core

// ControllerState is the client controller's position in the
// ready → auth → verify → act → await-confirmation flow.
type ControllerState string

const (
	StateWaiting       ControllerState = "waiting"
	StateAuth          ControllerState = "auth"
	StateVerifying     ControllerState = "verifying"
	StateVerified      ControllerState = "verified"
	StateMinting       ControllerState = "minting"
	StateBurning       ControllerState = "burning"
	StateWaitingUpdate ControllerState = "waiting_update"
)
