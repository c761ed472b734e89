package session

import (
	"context"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/zubacap/zubacap-go/core"
	"github.com/zubacap/zubacap-go/core/identity"
)

type (
	// AuthGateway is the slice of the backend the store authenticates through.
	AuthGateway interface {
		Login(ctx context.Context, identifier, password string) (identity.Session, error)
		Register(ctx context.Context, na identity.NewAccount) (identity.Session, error)
		Me(ctx context.Context) (identity.Identity, error)
	}

	// Store is the single source of truth for the current identity. It is an
	// explicitly constructed object: create one at application start, pass it
	// by reference, tear it down at exit.
	Store struct {
		gw       AuthGateway
		creds    CredentialStore
		validate *validator.Validate
		ttl      time.Duration

		mu       sync.RWMutex
		identity *identity.Identity
		loaded   bool
	}
)

func NewStore(gw AuthGateway, creds CredentialStore, validate *validator.Validate, conf *core.Config) *Store {
	return &Store{
		gw:       gw,
		creds:    creds,
		validate: validate,
		ttl:      conf.Session.CredentialTTL,
	}
}

// Initialize restores a previous session: if a persisted, unexpired
// credential exists, it fetches the full identity; any failure (expired or
// revoked credential, unreachable backend) clears the credential and leaves
// the store signed out. It never fails: the store always ends up
// loading-complete.
func (st *Store) Initialize(ctx context.Context) {
	defer func() {
		st.mu.Lock()
		st.loaded = true
		st.mu.Unlock()
	}()

	if _, ok := st.creds.Token(); !ok {
		return
	}
	me, err := st.gw.Me(ctx)
	if err != nil {
		st.creds.Clear()
		return
	}
	st.setIdentity(&me)
}

// Login exchanges credentials for a session. On success the token is
// persisted with the configured expiry and the identity is cached. On
// failure the error carries the backend's message when it has one and the
// store's state is left unchanged.
func (st *Store) Login(ctx context.Context, identifier, password string) error {
	form := identity.Credentials{Identifier: identifier, Password: password}
	if err := form.Validate(st.validate); err != nil {
		return err
	}

	sess, err := st.gw.Login(ctx, form.Identifier, form.Password)
	if err != nil {
		return core.NewValidationError(errors.New(userMessage(err, "unable to sign in")))
	}
	return st.open(sess)
}

// Register creates an account; same contract as Login. The optional
// invitation code on the account is associated by the backend at creation.
func (st *Store) Register(ctx context.Context, na identity.NewAccount) error {
	if err := na.Validate(st.validate); err != nil {
		return err
	}

	sess, err := st.gw.Register(ctx, na)
	if err != nil {
		return core.NewValidationError(errors.New(userMessage(err, "unable to create account")))
	}
	return st.open(sess)
}

func (st *Store) open(sess identity.Session) error {
	expiresAt := time.Now().Add(st.ttl)
	// never outlive the token itself
	if exp, ok := TokenExpiry(sess.Token); ok && exp.Before(expiresAt) {
		expiresAt = exp
	}
	if err := st.creds.Put(sess.Token, expiresAt); err != nil {
		return errors.Wrap(err, "persisting credential")
	}
	st.setIdentity(&sess.User)
	return nil
}

// Logout clears the persisted credential and the cached identity
// unconditionally. It never fails.
func (st *Store) Logout() {
	st.creds.Clear()
	st.setIdentity(nil)
}

// SessionExpired invalidates the cached identity after the gateway evicted
// the credential on a 401. Wire it to the gateway's session-expiry signal.
func (st *Store) SessionExpired() {
	st.setIdentity(nil)
}

// Identity returns the cached identity, when signed in.
func (st *Store) Identity() (identity.Identity, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	if st.identity == nil {
		return identity.Identity{}, false
	}
	return *st.identity, true
}

// IsAuthenticated is true iff an identity is cached.
func (st *Store) IsAuthenticated() bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.identity != nil
}

// Loaded reports whether Initialize has completed.
func (st *Store) Loaded() bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.loaded
}

func (st *Store) setIdentity(id *identity.Identity) {
	st.mu.Lock()
	st.identity = id
	st.mu.Unlock()
}

type apiMessenger interface {
	APIMessage() string
}

// userMessage extracts a user-facing message from a gateway failure,
// falling back to a generic one.
func userMessage(err error, fallback string) string {
	if m, ok := errors.Cause(err).(apiMessenger); ok && m.APIMessage() != "" {
		return m.APIMessage()
	}
	return fallback
}
