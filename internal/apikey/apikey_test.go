package apikey

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"resume-roaster/internal/roast"
)

func TestFileStoreRoundTripAndPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roaster", "settings.json")
	store := NewFileStore(path)

	if _, err := store.Load(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.Save("sk-or-v1-abc"); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Load()
	if err != nil || got != "sk-or-v1-abc" {
		t.Fatalf("load: %q %v", got, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if raw["openRouterApiKey"] != "sk-or-v1-abc" {
		t.Fatalf("unexpected file contents: %s", data)
	}
	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat: %v", err)
		}
		if info.Mode().Perm() != 0o600 {
			t.Fatalf("expected 0600, got %v", info.Mode().Perm())
		}
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := store.Load(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after clear, got %v", err)
	}
}

func TestFileStoreKeepsOtherSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte(`{"theme":"dark"}`), 0o600); err != nil {
		t.Fatalf("seed: %v", err)
	}
	store := NewFileStore(path)
	if err := store.Save("k1"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Save("k2"); err != nil {
		t.Fatalf("save: %v", err)
	}
	data, _ := os.ReadFile(path)
	var raw map[string]string
	_ = json.Unmarshal(data, &raw)
	if raw["theme"] != "dark" || raw[StorageKey] != "k2" {
		t.Fatalf("unexpected contents: %s", data)
	}
}

func TestManagerLoadSetClear(t *testing.T) {
	m := NewManager(&MemoryStore{})
	if err := m.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if !m.NeedsPrompt() {
		t.Fatalf("expected prompt to be needed without a key")
	}
	if err := m.Set("   "); !errors.Is(err, ErrEmptyKey) {
		t.Fatalf("expected ErrEmptyKey, got %v", err)
	}
	if err := m.Set("  sk-123  "); err != nil {
		t.Fatalf("set: %v", err)
	}
	if m.Key() != "sk-123" || m.NeedsPrompt() {
		t.Fatalf("unexpected key %q", m.Key())
	}
	if err := m.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if m.Key() != "" {
		t.Fatalf("expected cleared key")
	}
}

func TestShouldPrompt(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "insufficient credit", err: roast.ErrInsufficientCredit, want: true},
		{name: "unconfigured", err: roast.ErrUnconfigured, want: true},
		{name: "unauthorized", err: &roast.Error{Kind: roast.KindProviderError, Status: 401, Message: "No auth credentials found"}, want: true},
		{name: "rate limited", err: &roast.Error{Kind: roast.KindProviderError, Status: 429, Message: "insufficient patience"}, want: false},
		{name: "timeout", err: roast.ErrTimeout, want: false},
		{name: "plain error mentioning credit", err: errors.New("Insufficient Credit"), want: false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldPrompt(tt.err); got != tt.want {
				t.Fatalf("ShouldPrompt(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestEnsurePromptsOnceAndSaves(t *testing.T) {
	store := &MemoryStore{}
	m := NewManager(store)
	calls := 0
	prompt := PrompterFunc(func(context.Context) (string, error) {
		calls++
		return "sk-new", nil
	})

	for i := 0; i < 2; i++ {
		key, err := m.Ensure(context.Background(), prompt)
		if err != nil || key != "sk-new" {
			t.Fatalf("ensure: %q %v", key, err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected one prompt, got %d", calls)
	}
	if saved, _ := store.Load(); saved != "sk-new" {
		t.Fatalf("expected key saved, got %q", saved)
	}
}

func TestEnsureWithoutPrompter(t *testing.T) {
	m := NewManager(nil)
	if _, err := m.Ensure(context.Background(), nil); !errors.Is(err, roast.ErrUnconfigured) {
		t.Fatalf("expected unconfigured, got %v", err)
	}
}
