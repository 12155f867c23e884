// Package bridge is the bidirectional, listener-based message channel
// between the host page and the embedded game surface. Messages are tagged,
// timestamped and fanned out to every registered listener; delivery is
// fire-and-forget with no acknowledgement or ordering guarantee.
package bridge

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// MessageType tags a bridge message. The set is closed: inbound messages
// with an unknown tag are treated as unrecognized and never reach listeners.
type MessageType string

const (
	TypeReady  MessageType = "ready"
	TypeAuth   MessageType = "auth"
	TypeUpdate MessageType = "update"
	TypeError  MessageType = "error"
	TypeMint   MessageType = "mint"
	TypeBurn   MessageType = "burn"
)

// Known reports whether the type is one of the recognized message kinds.
func (t MessageType) Known() bool {
	switch t {
	case TypeReady, TypeAuth, TypeUpdate, TypeError, TypeMint, TypeBurn:
		return true
	}
	return false
}

// Message is the envelope crossing the bridge. Created by the sender,
// copied across the boundary, never mutated after send.
type Message struct {
	ID        string          `json:"id,omitempty"`
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
	Origin    string          `json:"origin,omitempty"`
}

// NewMessage builds an envelope around the given payload.
func NewMessage(t MessageType, payload any) (*Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return &Message{
		ID:      uuid.New().String(),
		Type:    t,
		Payload: raw,
	}, nil
}

// DecodePayload unmarshals the payload into the typed shape for the
// message's kind.
func (m *Message) DecodePayload(v any) error {
	if len(m.Payload) == 0 {
		return fmt.Errorf("message %q has no payload", m.Type)
	}
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("failed to decode %q payload: %w", m.Type, err)
	}
	return nil
}

// decode parses a raw inbound frame. Anything that is not a JSON object
// with a string "type" field is malformed and gets dropped by the endpoint.
func decode(raw []byte) (*Message, error) {
	msg := &Message{}
	if err := json.Unmarshal(raw, msg); err != nil {
		return nil, fmt.Errorf("not a valid message object: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("message has no type field")
	}
	return msg, nil
}

// ReadyPayload announces the game surface is loaded. Child to parent.
type ReadyPayload struct {
	GameName string `json:"gameName"`
}

// AuthPayload hands the wallet's auth assertion and current ledger view to
// the game. Parent to child.
type AuthPayload struct {
	GameName      string `json:"gameName"`
	WalletAddress string `json:"walletAddress"`
	Signature     string `json:"signature"`
	Message       string `json:"message"`
	Timestamp     int64  `json:"timestamp"`
	CurrentNonce  int64  `json:"currentNonce,omitempty"`
	GamePoints    int64  `json:"gamePoints,omitempty"`
}

// ActionPayload carries a signed mint or burn approval. Child to parent.
type ActionPayload struct {
	GameName      string `json:"gameName"`
	WalletAddress string `json:"walletAddress"`
	Signature     string `json:"signature"`
	Amount        int64  `json:"amount"`
	NextNonce     int64  `json:"nextNonce"`
}

// UpdatePayload confirms a prior mint or burn. Parent to child. Fields are
// optional: absent values leave the game's view unchanged.
type UpdatePayload struct {
	CurrentNonce *int64 `json:"currentNonce,omitempty"`
	GamePoints   *int64 `json:"gamePoints,omitempty"`
}

// ErrorPayload rejects a prior mint or burn. Parent to child.
type ErrorPayload struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details,omitempty"`
}
