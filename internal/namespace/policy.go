package namespace

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
)

// Policy is the persisted, policy-relevant state of a namespace (spec
// §3: public/password/maxsize/used_bytes). The password is never
// persisted in cleartext — only its bcrypt digest.
type Policy struct {
	Public       bool   `json:"public"`
	PasswordHash []byte `json:"password_hash,omitempty"`
	MaxSize      uint64 `json:"maxsize"`
	UsedBytes    uint64 `json:"used_bytes"`
}

func policyPath(dir string) string {
	return filepath.Join(dir, "policy.json")
}

// loadPolicy reads a namespace's policy.json, returning a fresh public,
// password-less, unbounded policy if it doesn't exist yet (brand new
// namespace): a namespace is usable immediately after creation, before
// any NSSET call narrows it.
func loadPolicy(dir string) (Policy, error) {
	raw, err := os.ReadFile(policyPath(dir))
	if os.IsNotExist(err) {
		return Policy{Public: true}, nil
	}
	if err != nil {
		return Policy{}, fmt.Errorf("namespace: read policy %s: %w", dir, err)
	}

	var p Policy
	if err := json.Unmarshal(raw, &p); err != nil {
		return Policy{}, fmt.Errorf("namespace: parse policy %s: %w", dir, err)
	}
	return p, nil
}

// savePolicy atomically rewrites a namespace's policy.json, so a crash
// mid-write never leaves a torn policy record (spec SPEC_FULL §3.2).
func savePolicy(dir string, p Policy) error {
	raw, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("namespace: marshal policy: %w", err)
	}

	if err := atomic.WriteFile(policyPath(dir), bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("namespace: atomic write policy %s: %w", dir, err)
	}
	return nil
}
