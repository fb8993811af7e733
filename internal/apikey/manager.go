package apikey

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"resume-roaster/internal/roast"
	"resume-roaster/internal/shared/telemetry"
)

// ErrEmptyKey rejects blank credentials.
var ErrEmptyKey = errors.New("api key must not be empty")

// Prompter asks the user for a credential.
type Prompter interface {
	PromptAPIKey(ctx context.Context) (string, error)
}

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(ctx context.Context) (string, error)

func (f PrompterFunc) PromptAPIKey(ctx context.Context) (string, error) { return f(ctx) }

// Manager owns the locally stored provider key. The key is handed out only
// through Key, never through shared globals.
type Manager struct {
	mu    sync.RWMutex
	store Store
	key   string
}

// NewManager wraps store.
func NewManager(store Store) *Manager {
	if store == nil {
		store = &MemoryStore{}
	}
	return &Manager{store: store}
}

// Load reads the saved key. A missing key is not an error; NeedsPrompt
// reports it instead.
func (m *Manager) Load() error {
	key, err := m.store.Load()
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	m.mu.Lock()
	m.key = strings.TrimSpace(key)
	m.mu.Unlock()
	return nil
}

// Set trims and saves key.
func (m *Manager) Set(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmptyKey
	}
	if err := m.store.Save(key); err != nil {
		return err
	}
	m.mu.Lock()
	m.key = key
	m.mu.Unlock()
	telemetry.Info("apikey.saved", map[string]any{"key_suffix": suffix(key)})
	return nil
}

// Clear forgets the key locally and in the store.
func (m *Manager) Clear() error {
	if err := m.store.Clear(); err != nil {
		return err
	}
	m.mu.Lock()
	m.key = ""
	m.mu.Unlock()
	return nil
}

// Key returns the current key or "".
func (m *Manager) Key() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.key
}

func (m *Manager) NeedsPrompt() bool {
	return m.Key() == ""
}

// ShouldPrompt reports whether err points at the credential: exhausted
// credit, a missing key, or a rejected one.
func ShouldPrompt(err error) bool {
	if err == nil {
		return false
	}
	switch roast.KindOf(err) {
	case roast.KindInsufficientCredit, roast.KindUnconfigured:
		return true
	case roast.KindProviderError:
		status := roast.StatusOf(err)
		return status == http.StatusUnauthorized || status == http.StatusForbidden
	default:
		return false
	}
}

// ShouldPrompt is the method form of the package-level check.
func (m *Manager) ShouldPrompt(err error) bool {
	return ShouldPrompt(err)
}

// Ensure returns the stored key, prompting for and saving one when none is set.
func (m *Manager) Ensure(ctx context.Context, p Prompter) (string, error) {
	if key := m.Key(); key != "" {
		return key, nil
	}
	if p == nil {
		return "", roast.ErrUnconfigured
	}
	key, err := p.PromptAPIKey(ctx)
	if err != nil {
		return "", err
	}
	if err := m.Set(key); err != nil {
		return "", err
	}
	return m.Key(), nil
}

func suffix(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return "…" + key[len(key)-4:]
}
