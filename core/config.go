package core

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

const (
	// DefaultInteractiveWindow is the default expiry for login-style checks.
	DefaultInteractiveWindow = 5 * time.Minute

	// DefaultAPIWindow is the default expiry when an assertion is reused
	// to authorize an action-signing call.
	DefaultAPIWindow = 60 * time.Minute

	// ClockSkew is the fixed tolerance for timestamps that sit in the
	// future relative to the verifier's clock. Not configurable.
	ClockSkew = time.Minute
)

// Config carries the deployment-level protocol settings. It is passed
// explicitly at construction; business logic never reads the environment.
type Config struct {
	// AppID is the canonical app identifier used in the message template.
	AppID string

	// LedgerAddress is the point ledger contract included in the packed
	// approval tuple.
	LedgerAddress string

	InteractiveWindow time.Duration
	APIWindow         time.Duration
}

// Validate checks the config and fills in default windows.
func (c *Config) Validate() error {
	if c.AppID == "" {
		return fmt.Errorf("%w: app id is required", ErrConfiguration)
	}
	if c.LedgerAddress == "" {
		return fmt.Errorf("%w: ledger address is required", ErrConfiguration)
	}
	if !common.IsHexAddress(c.LedgerAddress) {
		return fmt.Errorf("%w: ledger address is not a valid address", ErrConfiguration)
	}
	if c.InteractiveWindow <= 0 {
		c.InteractiveWindow = DefaultInteractiveWindow
	}
	if c.APIWindow <= 0 {
		c.APIWindow = DefaultAPIWindow
	}
	return nil
}

// Window returns the duration configured for the given kind.
func (c *Config) Window(kind WindowKind) time.Duration {
	if kind == WindowAPI {
		return c.APIWindow
	}
	return c.InteractiveWindow
}
