// Copyright (c) 2026 Tessera Team
// Tessera - two-factor authentication code manager
// This source code is licensed under the MIT license found in the LICENSE file.

package state

import "testing"

func TestPasswordCache_SetGetClear(t *testing.T) {
	defer PasswordCache.Clear()

	if got := PasswordCache.Get(); got != nil {
		t.Fatalf("fresh cache returned %v", got)
	}

	PasswordCache.Set([]byte("secret"))
	got := PasswordCache.Get()
	if string(got) != "secret" {
		t.Fatalf("Get = %q", got)
	}

	// The cache stores and returns copies; mutating either side must not
	// affect the cached value.
	got[0] = 'x'
	if string(PasswordCache.Get()) != "secret" {
		t.Fatalf("returned slice aliases the cache")
	}

	src := []byte("other")
	PasswordCache.Set(src)
	src[0] = 'x'
	if string(PasswordCache.Get()) != "other" {
		t.Fatalf("cache aliases the caller's slice")
	}

	PasswordCache.Clear()
	if got := PasswordCache.Get(); got != nil {
		t.Fatalf("cache not cleared: %v", got)
	}
}

func TestPasswordCache_SetNil(t *testing.T) {
	defer PasswordCache.Clear()

	PasswordCache.Set([]byte("secret"))
	PasswordCache.Set(nil)
	if got := PasswordCache.Get(); got != nil {
		t.Fatalf("Set(nil) did not clear: %v", got)
	}
}
