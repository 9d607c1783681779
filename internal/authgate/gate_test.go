// Copyright (c) 2026 Tessera Team
// Tessera - two-factor authentication code manager
// This source code is licensed under the MIT license found in the LICENSE file.

package authgate

import (
	"context"
	"errors"
	"testing"
)

// stubGate is a scriptable Gate for policy tests.
type stubGate struct {
	supported bool
	factors   []Factor
	allow     bool
	err       error
	prompts   []string
}

func (g *stubGate) IsSupported() bool          { return g.supported }
func (g *stubGate) AvailableFactors() []Factor { return g.factors }
func (g *stubGate) Authenticate(_ context.Context, prompt string) (bool, error) {
	g.prompts = append(g.prompts, prompt)
	return g.allow, g.err
}

func TestAuthorize_FailOpen(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name string
		gate Gate
	}{
		{"nil gate", nil},
		{"unsupported", &stubGate{supported: false}},
		{"no factors enrolled", &stubGate{supported: true, factors: nil}},
		{"noop", Noop{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := Authorize(ctx, tc.gate, "unlock")
			if err != nil {
				t.Fatalf("Authorize: %v", err)
			}
			if !ok {
				t.Fatalf("expected fail-open authorization")
			}
		})
	}
}

func TestAuthorize_DelegatesWhenGated(t *testing.T) {
	ctx := context.Background()
	g := &stubGate{supported: true, factors: []Factor{FactorBiometric}, allow: true}

	ok, err := Authorize(ctx, g, "unlock tessera")
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if !ok {
		t.Fatalf("expected success from allowing gate")
	}
	if len(g.prompts) != 1 || g.prompts[0] != "unlock tessera" {
		t.Fatalf("prompt not forwarded: %v", g.prompts)
	}
}

func TestAuthorize_DeniesAndErrors(t *testing.T) {
	ctx := context.Background()

	g := &stubGate{supported: true, factors: []Factor{FactorPIN}, allow: false}
	ok, err := Authorize(ctx, g, "unlock")
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if ok {
		t.Fatalf("denying gate reported authorized")
	}

	wantErr := errors.New("sensor offline")
	g = &stubGate{supported: true, factors: []Factor{FactorBiometric}, err: wantErr}
	ok, err = Authorize(ctx, g, "unlock")
	if !errors.Is(err, wantErr) {
		t.Fatalf("gate error not propagated: %v", err)
	}
	if ok {
		t.Fatalf("errored gate reported authorized")
	}
}
