// Package reasoner is the boundary to the external generative model.
//
// Defines a Reasoner interface and an eino-backed implementation for
// OpenAI-compatible chat endpoints. Consumers depend on the interface so the
// model vendor can change, and tests can substitute canned replies.
package reasoner

import (
	"context"
	"errors"
)

// ErrEmptyReply is returned when the model answers without any content.
var ErrEmptyReply = errors.New("reasoner: empty reply")

// Prompt is a fully assembled request: a fixed directive plus the user's
// content.
type Prompt struct {
	System string
	User   string
}

// Instruction renders the prompt as a single instruction string, for models
// that accept only one message.
func (p Prompt) Instruction() string {
	if p.User == "" {
		return p.System
	}
	return p.System + "\n\n" + p.User
}

// Reasoner completes a prompt with a single model call. Implementations must
// honour ctx cancellation and must not retry.
type Reasoner interface {
	Complete(ctx context.Context, p Prompt) (string, error)
}

// Func adapts an ordinary function to the Reasoner interface.
type Func func(ctx context.Context, p Prompt) (string, error)

// Complete calls f.
func (f Func) Complete(ctx context.Context, p Prompt) (string, error) {
	return f(ctx, p)
}
