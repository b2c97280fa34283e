package client

import (
	"context"
	"errors"
	"sync"
)

// Status is the session lifecycle state. A session starts in StatusLoading
// and leaves it exactly once, during Initialize, regardless of outcome.
type Status string

const (
	StatusLoading       Status = "loading"
	StatusAnonymous     Status = "anonymous"
	StatusAuthenticated Status = "authenticated"
)

// State is an immutable snapshot of the session.
type State struct {
	Status  Status
	Profile *Profile
}

// IdentityProvider completes a third-party login and returns a provider
// token the API can exchange. Sessions without a provider configured fail
// social logins fast instead of reaching for the network.
type IdentityProvider interface {
	Authenticate(ctx context.Context, provider string) (token string, err error)
}

// Session owns the authentication lifecycle: restoring a saved credential
// at startup, logging in and out, and notifying observers on every
// transition.
type Session struct {
	api   *Client
	creds CredentialStore
	idp   IdentityProvider

	mu        sync.Mutex
	state     State
	observers []func(State)
}

type SessionOption func(*Session)

// WithIdentityProvider enables social logins.
func WithIdentityProvider(idp IdentityProvider) SessionOption {
	return func(s *Session) { s.idp = idp }
}

func NewSession(api *Client, creds CredentialStore, opts ...SessionOption) *Session {
	s := &Session{
		api:   api,
		creds: creds,
		state: State{Status: StatusLoading},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current snapshot.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// OnChange registers an observer called after every state transition. The
// callback runs synchronously; keep it cheap.
func (s *Session) OnChange(fn func(State)) {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	observers := make([]func(State), len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	for _, fn := range observers {
		fn(state)
	}
}

// Initialize restores a saved credential, if any. With no saved credential
// the session settles into anonymous without touching the network. A saved
// credential is only as good as its probe: any failed who-am-I call, a
// server rejection or a network error alike, discards it so the next run
// starts clean. Transport failures still surface the error to the caller.
func (s *Session) Initialize(ctx context.Context) error {
	token, err := s.creds.Load()
	if err != nil {
		if !errors.Is(err, ErrNoCredential) {
			s.setState(State{Status: StatusAnonymous})
			return err
		}
		s.setState(State{Status: StatusAnonymous})
		return nil
	}

	s.api.SetToken(token)
	profile, err := s.api.Me(ctx)
	if err != nil {
		s.api.ClearToken()
		_ = s.creds.Clear()
		s.setState(State{Status: StatusAnonymous})
		if IsKind(err, ErrTransport) {
			return err
		}
		return nil
	}

	s.setState(State{Status: StatusAuthenticated, Profile: profile})
	return nil
}

// Login performs a password login and transitions to authenticated.
func (s *Session) Login(ctx context.Context, email, password string) (*Profile, error) {
	resp, err := s.api.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.adoptToken(ctx, resp.AccessToken)
}

// LoginWithToken adopts a token obtained out of band, such as from a
// magic-link exchange or an OTP confirmation.
func (s *Session) LoginWithToken(ctx context.Context, token string) (*Profile, error) {
	return s.adoptToken(ctx, token)
}

// SocialLogin authenticates through the configured identity provider. It
// fails immediately when no provider is configured.
func (s *Session) SocialLogin(ctx context.Context, provider string) (*Profile, error) {
	if s.idp == nil {
		return nil, errf(ErrInvalidInput, "no identity provider configured")
	}
	token, err := s.idp.Authenticate(ctx, provider)
	if err != nil {
		return nil, &Error{Kind: ErrTransport, Message: "identity provider", Err: err}
	}
	return s.adoptToken(ctx, token)
}

func (s *Session) adoptToken(ctx context.Context, token string) (*Profile, error) {
	s.api.SetToken(token)

	profile, err := s.api.Me(ctx)
	if err != nil {
		s.api.ClearToken()
		return nil, err
	}

	// A failed save just means the session won't survive a restart.
	_ = s.creds.Save(token)

	s.setState(State{Status: StatusAuthenticated, Profile: profile})
	return profile, nil
}

// Logout clears the credential and returns the session to anonymous. It
// never fails the caller for a storage hiccup.
func (s *Session) Logout() {
	s.api.ClearToken()
	_ = s.creds.Clear()
	s.setState(State{Status: StatusAnonymous})
}

// LandingRoute is the route the app should show right after login, chosen
// by role.
func (s *Session) LandingRoute() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Status != StatusAuthenticated || s.state.Profile == nil {
		return "/login"
	}
	switch s.state.Profile.Role {
	case "superadmin", "developer", "admin":
		return "/admin"
	case "staff":
		return "/dashboard"
	}
	return "/"
}
