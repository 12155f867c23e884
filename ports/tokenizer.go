package ports

// SessionTokenizer issues and validates short-lived session tokens handed
// out after a successful interactive signature verification.
type SessionTokenizer interface {
	// IssueSession creates a session token bound to the wallet address.
	IssueSession(walletAddress string) (string, error)

	// ValidateSession checks the token and returns the bound wallet address.
	ValidateSession(token string) (string, error)
}
