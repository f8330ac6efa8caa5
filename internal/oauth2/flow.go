package oauth2

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mrlokans/bookcatalog/internal/entities"
)

// FlowResult contains the result of a completed OAuth2 flow
type FlowResult struct {
	Credential *entities.Credential
	Account    *AccountInfo
	Scope      string
}

type pendingAuth struct {
	codeVerifier string
	redirectURL  string
	createdAt    time.Time
}

// FlowHandler runs the browser redirect flow. It remembers the PKCE verifier
// of every started flow by state until the callback arrives or it expires.
type FlowHandler struct {
	provider Provider
	store    CredentialStore
	ttl      time.Duration
	now      func() time.Time

	mu      sync.Mutex
	pending map[string]pendingAuth
}

// NewFlowHandler creates a new OAuth2 flow handler. store may be nil when the
// caller persists the credential itself.
func NewFlowHandler(provider Provider, store CredentialStore) *FlowHandler {
	return &FlowHandler{
		provider: provider,
		store:    store,
		ttl:      10 * time.Minute,
		now:      time.Now,
		pending:  make(map[string]pendingAuth),
	}
}

// StartWebFlow returns the authorization URL and the state to expect on callback.
func (h *FlowHandler) StartWebFlow(redirectURL string) (authURL, state string, err error) {
	authURL, codeVerifier, state, err := h.provider.BuildAuthURL(redirectURL)
	if err != nil {
		return "", "", fmt.Errorf("build auth URL: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.gcLocked()
	h.pending[state] = pendingAuth{
		codeVerifier: codeVerifier,
		redirectURL:  redirectURL,
		createdAt:    h.now(),
	}

	return authURL, state, nil
}

// CompleteWebFlow exchanges the callback code, fetches the account profile
// and stores the credential. Each state can be completed once.
func (h *FlowHandler) CompleteWebFlow(ctx context.Context, state, code string) (*FlowResult, error) {
	h.mu.Lock()
	p, ok := h.pending[state]
	delete(h.pending, state)
	h.mu.Unlock()

	if !ok || h.now().Sub(p.createdAt) > h.ttl {
		return nil, ErrStateMismatch
	}
	if code == "" {
		return nil, fmt.Errorf("no authorization code received")
	}

	tokenResp, err := h.provider.ExchangeCode(ctx, code, p.codeVerifier, p.redirectURL)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	account, err := h.provider.GetAccountInfo(ctx, tokenResp.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("get account info: %w", err)
	}

	result := &FlowResult{
		Credential: tokenResp.Credential(),
		Account:    account,
		Scope:      tokenResp.Scope,
	}

	if h.store != nil {
		if err := h.store.SaveCredential(result.Credential); err != nil {
			return nil, fmt.Errorf("save credential: %w", err)
		}
	}

	return result, nil
}

func (h *FlowHandler) gcLocked() {
	for state, p := range h.pending {
		if h.now().Sub(p.createdAt) > h.ttl {
			delete(h.pending, state)
		}
	}
}
