// Package auth stores per-store browser sessions (cookies captured after an
// operator cleared a site's challenges) so later crawls can reuse them.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zalando/go-keyring"

	"github.com/law-makers/weeklyad/internal/dom"
)

const (
	// KeyringService is the service name sessions are stored under.
	KeyringService = "weeklyad"
	// FallbackDir is the directory below $HOME used when no keyring is available.
	FallbackDir = ".weeklyad/sessions"

	manifestKey = "_manifest"
)

var (
	// ErrNoSession is returned when a store has no saved session.
	ErrNoSession = errors.New("no saved session")
	// ErrSessionExpired is returned for sessions whose cookies have all lapsed.
	ErrSessionExpired = errors.New("session expired")
)

// Session is the cookie set saved for one store.
type Session struct {
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Cookies   []Cookie  `json:"cookies"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Cookie is a stored browser cookie.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite,omitempty"`
}

// NewSession builds a session for store, expiring with its longest-lived cookie.
func NewSession(store, url string, cookies []Cookie) *Session {
	s := &Session{
		Name:      strings.ToLower(store),
		URL:       url,
		Cookies:   cookies,
		CreatedAt: time.Now(),
	}
	var maxExpires float64
	for _, c := range cookies {
		if c.Expires > maxExpires {
			maxExpires = c.Expires
		}
	}
	if maxExpires > 0 {
		s.ExpiresAt = time.Unix(int64(maxExpires), 0)
	}
	return s
}

// Expired reports whether the session has lapsed at t.
func (s *Session) Expired(t time.Time) bool {
	return !s.ExpiresAt.IsZero() && t.After(s.ExpiresAt)
}

// DOMCookies converts the session for installation into a page.
func (s *Session) DOMCookies() []dom.Cookie {
	out := make([]dom.Cookie, len(s.Cookies))
	for i, c := range s.Cookies {
		out[i] = dom.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
			SameSite: c.SameSite,
			Expires:  c.Expires,
		}
	}
	return out
}

// FromDOM converts cookies read back from a page.
func FromDOM(cookies []dom.Cookie) []Cookie {
	out := make([]Cookie, len(cookies))
	for i, c := range cookies {
		out[i] = Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: c.SameSite,
		}
	}
	return out
}

// Vault saves sessions in the OS keyring, or as files when the
// keyring is unusable (Codespaces, CI) or a directory is given.
type Vault struct {
	dir string

	once    sync.Once
	useFile bool
}

// NewVault returns a keyring-backed vault with the default file fallback.
func NewVault() *Vault {
	return &Vault{}
}

// NewFileVault returns a vault that always stores sessions as files in dir.
func NewFileVault(dir string) *Vault {
	v := &Vault{dir: dir, useFile: true}
	v.once.Do(func() {})
	return v
}

func (v *Vault) fileBased() bool {
	v.once.Do(func() {
		if os.Getenv("CODESPACES") != "" || os.Getenv("CI") != "" {
			v.useFile = true
			return
		}
		// Probe the keyring once; headless Linux often has none.
		const probe = "_probe_"
		if err := keyring.Set(KeyringService, probe, "ok"); err != nil {
			v.useFile = true
			return
		}
		keyring.Delete(KeyringService, probe)
	})
	return v.useFile
}

func (v *Vault) sessionDir() (string, error) {
	dir := v.dir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, FallbackDir)
	}
	return dir, os.MkdirAll(dir, 0700)
}

func (v *Vault) sessionPath(name string) (string, error) {
	dir, err := v.sessionDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name+".json"), nil
}

func checkName(name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "", fmt.Errorf("session name cannot be empty")
	}
	if name == manifestKey || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid session name %q", name)
	}
	return name, nil
}

// Save stores s under s.Name, replacing any previous session of that name.
func (v *Vault) Save(s *Session) error {
	name, err := checkName(s.Name)
	if err != nil {
		return err
	}
	s.Name = name

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to serialize session: %w", err)
	}

	if v.fileBased() {
		path, err := v.sessionPath(name)
		if err != nil {
			return fmt.Errorf("failed to get session path: %w", err)
		}
		if err := os.WriteFile(path, data, 0600); err != nil {
			return fmt.Errorf("failed to save session file: %w", err)
		}
		return nil
	}

	if err := keyring.Set(KeyringService, name, string(data)); err != nil {
		return fmt.Errorf("failed to save to keyring: %w", err)
	}
	return v.updateManifest(name, true)
}

// Load returns the session saved for name. Expired sessions are reported with
// ErrSessionExpired alongside the session itself.
func (v *Vault) Load(name string) (*Session, error) {
	name, err := checkName(name)
	if err != nil {
		return nil, err
	}

	var data []byte
	if v.fileBased() {
		path, err := v.sessionPath(name)
		if err != nil {
			return nil, fmt.Errorf("failed to get session path: %w", err)
		}
		data, err = os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", name, ErrNoSession)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load session file: %w", err)
		}
	} else {
		raw, err := keyring.Get(KeyringService, name)
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", name, ErrNoSession)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load from keyring: %w", err)
		}
		data = []byte(raw)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to deserialize session: %w", err)
	}
	if s.Expired(time.Now()) {
		return &s, fmt.Errorf("%s: %w", name, ErrSessionExpired)
	}
	return &s, nil
}

// Delete removes the session saved for name. Deleting a missing session is
// not an error.
func (v *Vault) Delete(name string) error {
	name, err := checkName(name)
	if err != nil {
		return err
	}

	if v.fileBased() {
		path, err := v.sessionPath(name)
		if err != nil {
			return fmt.Errorf("failed to get session path: %w", err)
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete session file: %w", err)
		}
		return nil
	}

	if err := keyring.Delete(KeyringService, name); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return v.updateManifest(name, false)
}

// List returns the names of all saved sessions, sorted.
func (v *Vault) List() ([]string, error) {
	if v.fileBased() {
		dir, err := v.sessionDir()
		if err != nil {
			return nil, err
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, err
		}
		var names []string
		for _, e := range entries {
			if !e.IsDir() && filepath.Ext(e.Name()) == ".json" {
				names = append(names, strings.TrimSuffix(e.Name(), ".json"))
			}
		}
		slices.Sort(names)
		return names, nil
	}

	raw, err := keyring.Get(KeyringService, manifestKey)
	if err != nil {
		return []string{}, nil
	}
	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		return nil, fmt.Errorf("failed to deserialize manifest: %w", err)
	}
	slices.Sort(names)
	return names, nil
}

// updateManifest keeps the keyring's list of session names current, since
// keyrings cannot be enumerated.
func (v *Vault) updateManifest(name string, add bool) error {
	names, _ := v.List()
	names = slices.DeleteFunc(names, func(s string) bool { return s == name })
	if add {
		names = append(names, name)
	}

	data, err := json.Marshal(names)
	if err != nil {
		return err
	}
	return keyring.Set(KeyringService, manifestKey, string(data))
}

// Cookies returns the stored cookies for a store ready for a page, or nil when
// there is no usable session.
func (v *Vault) Cookies(store string) []dom.Cookie {
	s, err := v.Load(store)
	switch {
	case errors.Is(err, ErrNoSession):
		return nil
	case err != nil:
		log.Warn().Err(err).Str("store", store).Msg("Stored session not used")
		return nil
	}
	log.Debug().Str("store", store).Int("cookies", len(s.Cookies)).Msg("Using stored session")
	return s.DOMCookies()
}
