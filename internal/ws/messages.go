package ws

import (
	"bytes"
	"encoding/json"
	"fmt"
	"matchlobby/internal/services/session"
)

// Envelope wraps every inbound WS frame.
type Envelope struct {
	Event string          `json:"event"`          // e.g. "joinSession"
	Body  json.RawMessage `json:"body,omitempty"` // positional args: ["<sessionId>"]
}

// outbound is an Envelope with a single decoded payload.
type outbound struct {
	Event string `json:"event"`
	Body  any    `json:"body,omitempty"`
}

// ──────────────────────────── Request DTOs ─────────────────────────

type claimIdentityArgs struct {
	Name string `validate:"required"`
}

func (a *claimIdentityArgs) UnmarshalJSON(b []byte) error { return decodeArgs(b, &a.Name) }

type createSessionArgs struct {
	Identity string `validate:"required"`
	Variant  string
}

// A non-string variant falls back to the standard board.
func (a *createSessionArgs) UnmarshalJSON(b []byte) error {
	var variant any
	if err := decodeArgs(b, &a.Identity, &variant); err != nil {
		return err
	}
	a.Variant, _ = variant.(string)
	return nil
}

// sessionArgs is the body for joinSession, setReady and setUnready.
type sessionArgs struct {
	SessionID string `validate:"required"`
}

func (a *sessionArgs) UnmarshalJSON(b []byte) error { return decodeArgs(b, &a.SessionID) }

type applyMoveArgs struct {
	SessionID string          `validate:"required"`
	History   []session.Board `validate:"min=1"`
	MoveIndex int             `validate:"gte=0"`
}

func (a *applyMoveArgs) UnmarshalJSON(b []byte) error {
	return decodeArgs(b, &a.SessionID, &a.History, &a.MoveIndex)
}

type noArgs struct{}

func (*noArgs) UnmarshalJSON([]byte) error { return nil }

// decodeArgs spreads a JSON array over dst in order. Missing trailing args
// keep their zero value; a bare value counts as the first arg.
func decodeArgs(data []byte, dst ...any) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) || len(dst) == 0 {
		return nil
	}
	if data[0] != '[' {
		return json.Unmarshal(data, dst[0])
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for i := 0; i < len(dst) && i < len(raw); i++ {
		if err := json.Unmarshal(raw[i], dst[i]); err != nil {
			return fmt.Errorf("arg %d: %w", i, err)
		}
	}
	return nil
}
