// Package conversation implements the conversation core (spec §4.8): a
// stateless request/response abstraction the voice backend calls once per
// turn to turn a user transcript into assistant text.
package conversation

import (
	"context"
	"fmt"
	"sync/atomic"
)

// Core is the conversation core contract: respond(userText, instructions?)
// → assistantText, deterministic for a fixed input sequence when the
// implementation requires it (§4.8; the golden replay harness K depends
// on this for ReferenceCore).
type Core interface {
	Respond(ctx context.Context, userText, instructions string) (string, error)
}

// ReferenceCore is the deterministic default: a short turn-indexed
// acknowledgment, stable across runs given the same call sequence, which
// is what makes replay runs (§8 S6) reproducible.
type ReferenceCore struct {
	turn atomic.Int64
}

// NewReferenceCore creates a fresh reference core with its turn counter at
// zero.
func NewReferenceCore() *ReferenceCore {
	return &ReferenceCore{}
}

// Respond never errors and never blocks on I/O.
func (c *ReferenceCore) Respond(_ context.Context, userText, instructions string) (string, error) {
	turn := c.turn.Add(1)
	if instructions != "" {
		return fmt.Sprintf("Turn %d: %s", turn, instructions), nil
	}
	return fmt.Sprintf("Turn %d: you said %q", turn, userText), nil
}
