// Package scheduler runs periodic background jobs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateSchedule checks a 5-field cron expression or an "@every" descriptor.
func ValidateSchedule(schedule string) error {
	_, err := parser.Parse(schedule)
	return err
}

// TokenRefresher refreshes the active session's credential when it is close
// to expiry, signing the session out when that fails.
type TokenRefresher interface {
	RefreshToken(ctx context.Context) (bool, error)
}

// TokenRefreshScheduler proactively refreshes the google token so remote
// calls rarely hit a 401.
type TokenRefreshScheduler struct {
	refresher TokenRefresher
	schedule  string
	timeout   time.Duration
	logger    *slog.Logger

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

func NewTokenRefreshScheduler(refresher TokenRefresher, schedule string, logger *slog.Logger) *TokenRefreshScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenRefreshScheduler{
		refresher: refresher,
		schedule:  schedule,
		timeout:   30 * time.Second,
		logger:    logger.With("component", "scheduler", "job", "token_refresh"),
		cron:      cron.New(cron.WithParser(parser)),
	}
}

// Start schedules the refresh job. The scheduler stops when ctx is done.
func (s *TokenRefreshScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if err := ValidateSchedule(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.schedule, err)
	}

	entryID, err := s.cron.AddFunc(s.schedule, s.runRefresh)
	if err != nil {
		return fmt.Errorf("schedule token refresh: %w", err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true
	s.logger.Info("scheduler started", "schedule", s.schedule)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop waits for a running refresh to complete.
func (s *TokenRefreshScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	<-s.cron.Stop().Done()
	s.cron.Remove(s.entryID)

	if s.cancelFunc != nil {
		s.cancelFunc()
		s.cancelFunc = nil
	}
	s.isRunning = false
	s.logger.Info("scheduler stopped")
}

// RunNow triggers an immediate refresh check.
func (s *TokenRefreshScheduler) RunNow() {
	go s.runRefresh()
}

func (s *TokenRefreshScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRunTime returns when the next check will occur.
func (s *TokenRefreshScheduler) NextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

func (s *TokenRefreshScheduler) runRefresh() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	refreshed, err := s.refresher.RefreshToken(ctx)
	switch {
	case err != nil:
		s.logger.Warn("token refresh failed", "error", err)
	case refreshed:
		s.logger.Info("token refreshed")
	default:
		s.logger.Debug("token still valid")
	}
}
