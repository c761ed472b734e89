package session

import (
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// CredentialStore persists the session token. An expired credential must
// behave as an absent one.
type CredentialStore interface {
	Token() (string, bool)
	Put(token string, expiresAt time.Time) error
	Clear()
}

// MemoryCredentials keeps the credential in process memory.
type MemoryCredentials struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time

	Now func() time.Time // mockable
}

func NewMemoryCredentials() *MemoryCredentials {
	return &MemoryCredentials{Now: time.Now}
}

func (mc *MemoryCredentials) Token() (string, bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if mc.token == "" || mc.Now().After(mc.expiresAt) {
		return "", false
	}
	return mc.token, true
}

func (mc *MemoryCredentials) Put(token string, expiresAt time.Time) error {
	mc.mu.Lock()
	mc.token = token
	mc.expiresAt = expiresAt
	mc.mu.Unlock()
	return nil
}

func (mc *MemoryCredentials) Clear() {
	mc.mu.Lock()
	mc.token = ""
	mc.expiresAt = time.Time{}
	mc.mu.Unlock()
}

// FileCredentials persists the credential as a mode-0600 JSON file, for the
// CLI and other long-lived local processes.
type FileCredentials struct {
	mu   sync.Mutex
	path string
}

func NewFileCredentials(path string) *FileCredentials {
	return &FileCredentials{path: path}
}

type storedCredential struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (fc *FileCredentials) Token() (string, bool) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	data, err := ioutil.ReadFile(fc.path)
	if err != nil {
		return "", false
	}
	var cred storedCredential
	if err := json.Unmarshal(data, &cred); err != nil || cred.Token == "" {
		return "", false
	}
	if time.Now().After(cred.ExpiresAt) {
		_ = os.Remove(fc.path)
		return "", false
	}
	return cred.Token, true
}

func (fc *FileCredentials) Put(token string, expiresAt time.Time) error {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	data, err := json.Marshal(storedCredential{Token: token, ExpiresAt: expiresAt})
	if err != nil {
		return errors.Wrap(err, "encoding credential")
	}
	if err := os.MkdirAll(filepath.Dir(fc.path), 0700); err != nil {
		return errors.Wrap(err, "creating credential dir")
	}
	return errors.Wrap(ioutil.WriteFile(fc.path, data, 0600), "writing credential file")
}

func (fc *FileCredentials) Clear() {
	fc.mu.Lock()
	_ = os.Remove(fc.path)
	fc.mu.Unlock()
}
