package entrypoint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookcatalog/internal/apperr"
	"github.com/mrlokans/bookcatalog/internal/auth"
	"github.com/mrlokans/bookcatalog/internal/config"
	"github.com/mrlokans/bookcatalog/internal/crypto"
	"github.com/mrlokans/bookcatalog/internal/database"
	"github.com/mrlokans/bookcatalog/internal/database/settings"
	"github.com/mrlokans/bookcatalog/internal/entities"
	http_controllers "github.com/mrlokans/bookcatalog/internal/http"
	"github.com/mrlokans/bookcatalog/internal/localstore"
	"github.com/mrlokans/bookcatalog/internal/logger"
	"github.com/mrlokans/bookcatalog/internal/metadata"
	"github.com/mrlokans/bookcatalog/internal/oauth2"
	"github.com/mrlokans/bookcatalog/internal/oauth2/providers"
	"github.com/mrlokans/bookcatalog/internal/scheduler"
	"github.com/mrlokans/bookcatalog/internal/session"
	"github.com/mrlokans/bookcatalog/internal/tasks"
)

const csrfKeyInfo = "bookcatalog csrf"

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// NewLogger builds the process logger from the global config and installs
// it as the slog default.
func NewLogger(cfg config.Global) *slog.Logger {
	l := logger.New(logger.Config{Format: cfg.LogFormat, Level: cfg.LogLevel})
	slog.SetDefault(l)
	return l
}

// Serve runs the HTTP server until SIGINT or SIGTERM, then shuts it down
// within the configured timeout.
func Serve(router *gin.Engine, cfg *config.Config, log *slog.Logger, onShutdown ShutdownFunc) error {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case sig := <-quit:
		log.Info("shutting down", "signal", sig.String(), "timeout", timeout)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop background work first (task queue, scheduler)
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	log.Info("server exited")
	return nil
}

// OpenStore opens the local database and the encrypted key/value store on
// top of it. The caller closes the returned database.
func OpenStore(cfg *config.Config, log *slog.Logger) (*database.Database, *localstore.Store, error) {
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	encryptor, err := crypto.ResolveEncryptor(crypto.KeyConfig{
		EncodedKey: cfg.Crypto.TokenEncryptionKey,
		Secret:     cfg.Auth.SessionSecret,
		KeyFile:    cfg.Crypto.KeyFile,
	}, log)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("resolve encryption key: %w", err)
	}

	return db, localstore.New(settings.NewRepository(db.DB), encryptor, log), nil
}

// NewSessionManager builds the session manager, with Google sign-in only
// when the client and spreadsheet ids are configured.
func NewSessionManager(cfg *config.Config, store *localstore.Store, log *slog.Logger) *session.Manager {
	var provider oauth2.Provider
	if cfg.Google.Configured() {
		provider = providers.NewGoogleProvider(cfg.Google.ClientID, cfg.Google.ClientSecret)
	} else {
		log.Warn("google sign-in disabled: set GOOGLE_CLIENT_ID and GOOGLE_SPREADSHEET_ID to enable it, local sign-in stays available")
	}

	return session.NewManager(store, provider, session.Config{
		SpreadsheetID: cfg.Google.SpreadsheetID,
		Sheets: map[entities.Kind]string{
			entities.KindBook:     cfg.Google.BooksSheet,
			entities.KindLibrary:  cfg.Google.LibrariesSheet,
			entities.KindCategory: cfg.Google.CategoriesSheet,
			entities.KindKeyword:  cfg.Google.KeywordsSheet,
		},
		SheetsRate:    cfg.Google.SheetsRate,
		RedirectURL:   cfg.Google.RedirectURL,
		RefreshMargin: cfg.OAuth2.RefreshMargin,
	}, session.WithLogger(log))
}

// NewLookup builds the OpenLibrary then Google Books lookup chain.
func NewLookup(cfg config.Metadata, log *slog.Logger) *metadata.Lookup {
	return metadata.Default(log,
		metadata.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		metadata.WithRateInterval(cfg.RateInterval),
	)
}

// csrfSecret derives the CSRF key from the session secret, or generates a
// random one that lasts until restart.
func csrfSecret(cfg config.Auth, log *slog.Logger) ([]byte, error) {
	if cfg.SessionSecret != "" {
		return crypto.DeriveKey(cfg.SessionSecret, csrfKeyInfo)
	}
	log.Info("generated CSRF secret, set AUTH_SESSION_SECRET to persist it")
	return crypto.GenerateKeyBytes()
}

func Run(cfg *config.Config, version string) error {
	log := NewLogger(cfg.Global)
	log.Info("starting book catalog", "version", version)

	db, store, err := OpenStore(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("close database", "error", err)
		}
	}()

	manager := NewSessionManager(cfg, store, log)
	if sess, statuses, err := manager.Restore(context.Background()); err != nil {
		log.Warn("restore session", "error", err)
	} else if sess != nil {
		log.Info("session restored", "user_id", sess.User.ID, "state", sess.State().String(), "statuses", statuses)
	}

	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("get sql db for sessions: %w", err)
	}
	cookies, err := auth.NewSessionManager(sqlDB, cfg.Auth)
	if err != nil {
		return fmt.Errorf("init cookie sessions: %w", err)
	}

	var secret []byte
	if cfg.Auth.CSRFEnabled {
		if secret, err = csrfSecret(cfg.Auth, log); err != nil {
			return fmt.Errorf("csrf secret: %w", err)
		}
	}

	lookup := NewLookup(cfg.Metadata, log)
	enricher := metadata.NewEnricher(lookup)

	// Background work stops when the server shuts down
	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	var taskClient *tasks.Client
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.Database.Path, tasks.Config{
			Workers:         cfg.Tasks.Workers,
			ReleaseAfter:    cfg.Tasks.ReleaseAfter,
			CleanupInterval: cfg.Tasks.CleanupInterval,
		}, log)
		if err != nil {
			return fmt.Errorf("init task queue: %w", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Error("close task client", "error", err)
			}
		}()

		resolve := activeBooks(manager)
		taskClient.Register(
			tasks.NewEnrichBookQueue(enricher, resolve, log),
			tasks.NewEnrichAllBooksQueue(enricher, resolve, log),
		)
		go taskClient.Start(bgCtx)
	} else {
		log.Info("task queue disabled, enrichment runs inline")
	}

	var refresh *scheduler.TokenRefreshScheduler
	if cfg.OAuth2.RefreshEnabled && manager.GoogleEnabled() {
		if err := scheduler.ValidateSchedule(cfg.OAuth2.RefreshSchedule); err != nil {
			return fmt.Errorf("oauth2 refresh schedule: %w", err)
		}
		refresh = scheduler.NewTokenRefreshScheduler(manager, cfg.OAuth2.RefreshSchedule, log)
		if err := refresh.Start(bgCtx); err != nil {
			return fmt.Errorf("start token refresh: %w", err)
		}
		// A restored token may expire before the first tick.
		if sess := manager.Current(); sess != nil && sess.User.IsGoogle() {
			refresh.RunNow()
		}
	}

	router := http_controllers.NewRouter(http_controllers.RouterConfig{
		Sessions:      manager,
		Cookies:       cookies,
		Database:      db,
		CSRFSecret:    secret,
		SecureCookies: cfg.Auth.SecureCookies,
		Lookup:        lookup,
		Enricher:      enricher,
		TaskClient:    taskClient,
		Version:       version,
	})

	onShutdown := func(ctx context.Context) {
		if refresh != nil {
			refresh.Stop()
		}
		if taskClient != nil {
			taskClient.Stop(ctx)
		}
		bgCancel()
	}

	return Serve(router, cfg, log, onShutdown)
}

// activeBooks resolves a queued task's owner to the live collection. Tasks
// of a user who is no longer signed in resolve to ErrNotSignedIn.
func activeBooks(manager *session.Manager) tasks.BooksResolver {
	return func(userID string) (metadata.BookLister, error) {
		sess, err := manager.Active()
		if err != nil {
			return nil, err
		}
		if sess.User.ID != userID {
			return nil, apperr.ErrNotSignedIn
		}
		return sess.Books, nil
	}
}
