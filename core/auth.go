package core

import "fmt"

// AuthAssertion is a wallet-signed proof that the wallet holder recently
// signed the canonical message for its own timestamp. Timestamps are Unix
// milliseconds, matching the wire format used by the game bridge.
type AuthAssertion struct {
	WalletAddress string // Ethereum address that produced the signature
	Signature     string // Hex-encoded 65-byte signature
	Message       string // Must equal CanonicalMessage(appID, Timestamp)
	Timestamp     int64  // Unix milliseconds at signing time
}

// Complete reports whether all assertion fields are present.
func (a AuthAssertion) Complete() bool {
	return a.WalletAddress != "" && a.Signature != "" && a.Message != "" && a.Timestamp != 0
}

// CanonicalMessage builds the exact string a wallet must sign to prove
// recent key control, e.g. "crosswalk:1700000000000". Consumers recompute
// it from the assertion's own timestamp; any deviation invalidates the
// assertion regardless of cryptographic validity.
func CanonicalMessage(appID string, timestamp int64) string {
	return fmt.Sprintf("%s:%d", appID, timestamp)
}

// WindowKind selects which expiry window an assertion is checked against.
type WindowKind int

const (
	// WindowInteractive is the short window used for the initial
	// login-style verification.
	WindowInteractive WindowKind = iota

	// WindowAPI is the long window used when an assertion is reused to
	// authorize a later action-signing call.
	WindowAPI
)

func (k WindowKind) String() string {
	if k == WindowAPI {
		return "api"
	}
	return "interactive"
}
