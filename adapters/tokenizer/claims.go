package tokenizer

import "github.com/golang-jwt/jwt/v5"

// SessionClaims are the standard claims for session tokens; the wallet
// address travels in the subject.
type SessionClaims struct {
	jwt.RegisteredClaims
}
