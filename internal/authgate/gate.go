// Copyright (c) 2026 Tessera Team
// Tessera - two-factor authentication code manager
// This source code is licensed under the MIT license found in the LICENSE file.

// package authgate defines the contract with the platform authentication
// collaborator (biometric prompt, PIN, OS keyring unlock). Tessera only
// depends on the interface; concrete gates are platform glue supplied by
// the embedding application.
package authgate

import "context"

// Factor identifies an available authentication factor.
type Factor string

const (
	FactorBiometric Factor = "biometric"
	FactorPIN       Factor = "pin"
)

// Gate is the platform authentication capability.
type Gate interface {
	// IsSupported reports whether the platform offers any gating at all.
	IsSupported() bool
	// AvailableFactors returns the enrolled factors.
	AvailableFactors() []Factor
	// Authenticate prompts the user and reports success.
	Authenticate(ctx context.Context, prompt string) (bool, error)
}

// Authorize runs the session authentication policy: when the gate is
// unsupported or no factors are enrolled, the session is treated as
// authenticated by default. This fail-open behavior is a deliberate design
// choice (usability over lockout on gate-less platforms) and is documented
// here rather than silently assumed.
func Authorize(ctx context.Context, g Gate, prompt string) (bool, error) {
	if g == nil || !g.IsSupported() || len(g.AvailableFactors()) == 0 {
		return true, nil
	}
	return g.Authenticate(ctx, prompt)
}

// Noop is the default gate for platforms without an authentication
// capability. It reports unsupported, which makes Authorize fail open.
type Noop struct{}

func (Noop) IsSupported() bool                                  { return false }
func (Noop) AvailableFactors() []Factor                         { return nil }
func (Noop) Authenticate(context.Context, string) (bool, error) { return true, nil }
