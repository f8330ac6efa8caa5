package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mrlokans/bookcatalog/internal/apperr"
	"github.com/mrlokans/bookcatalog/internal/catalog"
	"github.com/mrlokans/bookcatalog/internal/entities"
	"github.com/mrlokans/bookcatalog/internal/id"
	"github.com/mrlokans/bookcatalog/internal/localstore"
	"github.com/mrlokans/bookcatalog/internal/oauth2"
	"github.com/mrlokans/bookcatalog/internal/sheets"
	"github.com/mrlokans/bookcatalog/internal/syncer"
	"github.com/mrlokans/bookcatalog/internal/validation"
)

// ErrGoogleUnavailable is returned when Google sign-in is not configured.
var ErrGoogleUnavailable = errors.New("google sign-in is not configured")

// Config describes the remote store used by google sessions.
type Config struct {
	SpreadsheetID string
	// Sheets overrides the sheet title per kind; missing kinds use the default title.
	Sheets        map[entities.Kind]string
	SheetsBaseURL string
	SheetsRate    float64
	RedirectURL   string
	RefreshMargin time.Duration
}

func (c Config) sheet(kind entities.Kind) string {
	if name := c.Sheets[kind]; name != "" {
		return name
	}
	return kind.DefaultSheet()
}

// Option configures a Manager.
type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// Manager signs users in and out and holds the one active Session.
type Manager struct {
	store     *localstore.Store
	provider  oauth2.Provider
	flow      *oauth2.FlowHandler
	validator *validation.Validator
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time

	mu      sync.Mutex
	current *Session
}

// NewManager creates a Manager. provider may be nil, in which case only
// local sign-in is available.
func NewManager(store *localstore.Store, provider oauth2.Provider, cfg Config, opts ...Option) *Manager {
	m := &Manager{
		store:     store,
		provider:  provider,
		validator: validation.New(),
		cfg:       cfg,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("component", "session")
	if cfg.RefreshMargin == 0 {
		m.cfg.RefreshMargin = 5 * time.Minute
	}
	if provider != nil {
		m.flow = oauth2.NewFlowHandler(provider, store)
	}
	return m
}

// GoogleEnabled reports whether google sign-in and the remote store can be used.
func (m *Manager) GoogleEnabled() bool {
	return m.provider != nil && m.cfg.SpreadsheetID != ""
}

// Current returns the active session, or nil.
func (m *Manager) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Active returns the active session or apperr.ErrNotSignedIn.
func (m *Manager) Active() (*Session, error) {
	if s := m.Current(); s != nil {
		return s, nil
	}
	return nil, apperr.ErrNotSignedIn
}

// LocalSignIn is the local fallback sign-in form.
type LocalSignIn struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required"`
}

// SignInLocal starts a LocalOnly session. A session already active is
// signed out first.
func (m *Manager) SignInLocal(ctx context.Context, in LocalSignIn) (*Session, map[entities.Kind]syncer.Status, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if err := m.validator.Validate(in); err != nil {
		return nil, nil, err
	}

	now := m.now()
	user := entities.UserSession{
		ID:         fmt.Sprintf("local_%d", now.UnixMilli()),
		Name:       in.Name,
		Email:      in.Email,
		Avatar:     AvatarURL(in.Name),
		LoginDate:  now,
		AuthMethod: entities.AuthMethodLocal,
	}
	return m.start(ctx, user)
}

// BeginGoogle returns the consent page URL and the state the callback must carry.
func (m *Manager) BeginGoogle() (authURL, state string, err error) {
	if !m.GoogleEnabled() {
		return "", "", ErrGoogleUnavailable
	}
	return m.flow.StartWebFlow(m.cfg.RedirectURL)
}

// CompleteGoogle finishes the consent flow, stores the credential and
// starts a RemoteBacked session.
func (m *Manager) CompleteGoogle(ctx context.Context, state, code string) (*Session, map[entities.Kind]syncer.Status, error) {
	if !m.GoogleEnabled() {
		return nil, nil, ErrGoogleUnavailable
	}

	result, err := m.flow.CompleteWebFlow(ctx, state, code)
	if err != nil {
		return nil, nil, fmt.Errorf("complete google sign-in: %w", err)
	}

	account := result.Account
	user := entities.UserSession{
		ID:          account.ID,
		Name:        account.Name,
		Email:       account.Email,
		Avatar:      account.Picture,
		LoginDate:   m.now(),
		AuthMethod:  entities.AuthMethodGoogle,
		AccessToken: result.Credential.AccessToken,
		TokenExpiry: result.Credential.ExpiresAt,
	}
	if user.Name == "" {
		user.Name = account.Email
	}
	if user.Avatar == "" {
		user.Avatar = AvatarURL(user.Name)
	}

	return m.start(ctx, user)
}

// Restore resumes the session persisted by a previous run. A google session
// whose token has expired and cannot be refreshed is discarded.
func (m *Manager) Restore(ctx context.Context) (*Session, map[entities.Kind]syncer.Status, error) {
	user := m.store.LoadSession()
	if user == nil {
		return nil, nil, nil
	}

	if user.IsGoogle() {
		cred, err := m.store.LoadCredential()
		if err != nil {
			m.logger.Warn("load stored credential", "error", err)
		}
		if !m.usable(cred) {
			m.logger.Info("stored google session expired, signing out", "user_id", user.ID)
			m.discard(ctx, nil, false)
			return nil, nil, nil
		}
		user.AccessToken = cred.AccessToken
		user.TokenExpiry = cred.ExpiresAt
	}

	return m.start(ctx, *user)
}

func (m *Manager) usable(cred *entities.Credential) bool {
	if cred == nil {
		return false
	}
	if cred.RefreshToken != "" {
		return true
	}
	return cred.ExpiresAt != nil && m.now().Before(*cred.ExpiresAt)
}

// SignOut revokes the google token, clears the stored credential and the
// session key, and drops the in-memory collections. Cached collections stay.
func (m *Manager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	sess := m.current
	m.current = nil
	m.mu.Unlock()

	return m.discard(ctx, sess, true)
}

// RefreshToken refreshes the active google session's token when it
// expires within the configured margin. A failed refresh forces sign-out.
func (m *Manager) RefreshToken(ctx context.Context) (bool, error) {
	sess := m.Current()
	if sess == nil || sess.tokens == nil {
		return false, nil
	}

	refreshed, err := sess.tokens.RefreshIfExpiring(ctx, m.cfg.RefreshMargin)
	if err != nil {
		m.logger.Warn("token refresh failed, signing out", "user_id", sess.User.ID, "error", err)
		m.forceSignOut(sess)
		return false, errors.Join(apperr.ErrSessionInvalidated, err)
	}
	return refreshed, nil
}

func (m *Manager) start(ctx context.Context, user entities.UserSession) (*Session, map[entities.Kind]syncer.Status, error) {
	m.replace(ctx, user)

	sess, err := m.build(user)
	if err != nil {
		return nil, nil, err
	}
	if err := m.store.SaveSession(&user); err != nil {
		return nil, nil, fmt.Errorf("save session: %w", err)
	}

	m.mu.Lock()
	m.current = sess
	m.mu.Unlock()

	m.logger.Info("session started", "user_id", user.ID, "auth_method", user.AuthMethod, "state", sess.State().String())

	// Not under m.mu: an invalidated credential signs out from inside the load.
	statuses := sess.LoadAll(ctx)

	m.mu.Lock()
	alive := m.current == sess
	m.mu.Unlock()
	if !alive {
		return nil, statuses, apperr.ErrSessionInvalidated
	}
	return sess, statuses, nil
}

func (m *Manager) build(user entities.UserSession) (*Session, error) {
	handle, err := id.Generate("ses")
	if err != nil {
		return nil, fmt.Errorf("session handle: %w", err)
	}

	sess := &Session{
		Handle:     handle,
		User:       user,
		taxonomies: make(map[entities.Kind]*catalog.Taxonomies, len(entities.TaxonomyKinds)),
	}

	var client *sheets.Client
	if user.IsGoogle() && m.GoogleEnabled() {
		sess.tokens = oauth2.NewStoredTokenSource(m.provider, m.store,
			oauth2.WithRefreshMargin(m.cfg.RefreshMargin),
			oauth2.WithClock(m.now))
		client = m.sheetsClient(sess.tokens)
	}
	remote := func(kind entities.Kind) syncer.Remote {
		if client == nil {
			return nil
		}
		return sheets.NewTable(client, m.cfg.sheet(kind), kind)
	}
	onInvalidated := func() { m.forceSignOut(sess) }

	owner := catalog.Owner{ID: user.ID, Name: user.Name}

	bookCoord := syncer.NewCoordinator(syncer.BookCodec, syncer.BookLocal(m.store), remote(entities.KindBook), user.ID, m.logger)
	bookCoord.OnInvalidated(onInvalidated)
	sess.Books = catalog.NewBooks(owner, bookCoord, m.validator, catalog.WithClock(m.now))

	for _, kind := range entities.TaxonomyKinds {
		coord := syncer.NewCoordinator(syncer.TaxonomyCodec(kind), syncer.TaxonomyLocal(m.store, kind), remote(kind), user.ID, m.logger)
		coord.OnInvalidated(onInvalidated)
		sess.taxonomies[kind] = catalog.NewTaxonomies(kind, owner, coord, sess.Books, catalog.WithClock(m.now))
	}

	return sess, nil
}

func (m *Manager) sheetsClient(tokens oauth2.TokenSource) *sheets.Client {
	opts := []sheets.Option{sheets.WithLogger(m.logger)}
	if m.cfg.SheetsBaseURL != "" {
		opts = append(opts, sheets.WithBaseURL(m.cfg.SheetsBaseURL))
	}
	if m.cfg.SheetsRate > 0 {
		opts = append(opts, sheets.WithRateLimit(m.cfg.SheetsRate, 1))
	}
	return sheets.NewClient(m.cfg.SpreadsheetID, tokens, opts...)
}

// forceSignOut ends sess after its credential was lost. The token is
// already unusable, so it is not revoked.
func (m *Manager) forceSignOut(sess *Session) {
	m.mu.Lock()
	if m.current != sess {
		m.mu.Unlock()
		return
	}
	m.current = nil
	m.mu.Unlock()

	m.logger.Warn("google session invalidated, signed out", "user_id", sess.User.ID)
	if err := m.discard(context.Background(), sess, false); err != nil {
		m.logger.Warn("forced sign out", "error", err)
	}
}

// replace ends the active session before next starts. The credential is
// kept when next is a google session: the consent flow already stored it.
func (m *Manager) replace(ctx context.Context, next entities.UserSession) {
	m.mu.Lock()
	prev := m.current
	m.current = nil
	m.mu.Unlock()
	if prev == nil {
		return
	}

	prev.clear()
	if prev.User.IsGoogle() && !next.IsGoogle() {
		if err := m.dropCredential(ctx, true); err != nil {
			m.logger.Warn("drop previous credential", "error", err)
		}
	}
	m.logger.Info("session replaced", "user_id", prev.User.ID)
}

func (m *Manager) discard(ctx context.Context, sess *Session, revoke bool) error {
	var errs []error

	if err := m.dropCredential(ctx, revoke && sess != nil && sess.User.IsGoogle()); err != nil {
		errs = append(errs, err)
	}
	if sess != nil {
		sess.clear()
		m.logger.Info("signed out", "user_id", sess.User.ID)
	}
	if err := m.store.ClearSession(); err != nil {
		errs = append(errs, fmt.Errorf("clear session: %w", err))
	}

	return errors.Join(errs...)
}

func (m *Manager) dropCredential(ctx context.Context, revoke bool) error {
	if revoke && m.provider != nil {
		if cred, err := m.store.LoadCredential(); err == nil && cred != nil {
			if err := m.provider.Revoke(ctx, cred.AccessToken); err != nil {
				m.logger.Warn("revoke google token", "error", err)
			}
		}
	}

	if err := m.store.ClearCredential(); err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}
	return nil
}
