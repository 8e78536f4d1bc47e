package session

import "strings"

// ConnContext is the per-connection state the engine keeps between events.
type ConnContext struct {
	ID        string
	Identity  string
	SessionID string
}

func newConnContext(id string) *ConnContext { return &ConnContext{ID: id} }

// ClaimIdentity sets the identity once. Empty names and second claims are
// ignored; it reports whether the claim took effect.
func (c *ConnContext) ClaimIdentity(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" || c.Identity != "" {
		return false
	}
	c.Identity = name
	return true
}

func (c *ConnContext) EnterSession(id string) { c.SessionID = id }

// ExitSession clears the session reference and returns what it was.
func (c *ConnContext) ExitSession() string {
	id := c.SessionID
	c.SessionID = ""
	return id
}

func (c *ConnContext) InSession() bool { return c.SessionID != "" }
