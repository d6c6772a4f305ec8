package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ericfisherdev/configpanel/internal/domain/model"
	"github.com/ericfisherdev/configpanel/internal/domain/port/driven"
)

// refreshRequest represents a manual parse trigger for one repo.
type refreshRequest struct {
	repoID string
	done   chan error
}

// ParseService periodically resolves the latest revision of every config
// repo's material and records the outcome as the repo's last-parse state.
// Materials the revision source does not support are skipped and keep their
// never-parsed state.
type ParseService struct {
	source    driven.RevisionSource
	store     driven.ConfigRepoStore
	interval  time.Duration
	refreshCh chan refreshRequest
}

// NewParseService creates a ParseService with all required dependencies.
func NewParseService(source driven.RevisionSource, store driven.ConfigRepoStore, interval time.Duration) *ParseService {
	return &ParseService{
		source:    source,
		store:     store,
		interval:  interval,
		refreshCh: make(chan refreshRequest),
	}
}

// Start begins the parse loop. It runs an immediate pass, then parses on the
// configured interval, and listens for manual trigger_update requests. Start
// blocks until the context is canceled.
func (s *ParseService) Start(ctx context.Context) {
	if err := s.parseAll(ctx); err != nil {
		slog.Error("initial parse pass failed", "error", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("parse service stopped")
			return
		case <-ticker.C:
			if err := s.parseAll(ctx); err != nil {
				slog.Error("parse pass failed", "error", err)
			}
		case req := <-s.refreshCh:
			req.done <- s.handleRefresh(ctx, req)
		}
	}
}

// TriggerUpdate parses a single repo immediately, bypassing the parse
// interval. It blocks until the parse completes or the context is canceled.
// Returns driven.ErrConfigRepoNotFound for an unknown repo id.
func (s *ParseService) TriggerUpdate(ctx context.Context, repoID string) error {
	done := make(chan error, 1)
	req := refreshRequest{
		repoID: repoID,
		done:   done,
	}

	select {
	case s.refreshCh <- req:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// parseAll runs one parse pass over every registered repo.
func (s *ParseService) parseAll(ctx context.Context) error {
	start := time.Now()

	repos, err := s.store.ListAll(ctx)
	if err != nil {
		return err
	}

	var parsed, skipped, failed int
	for _, repo := range repos {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		switch err := s.parseRepo(ctx, repo); {
		case err == errMaterialSkipped:
			skipped++
		case err != nil:
			slog.Error("repo parse failed", "repo", repo.ID, "error", err)
			failed++
		default:
			parsed++
		}
	}

	slog.Info("parse pass complete",
		"repos", len(repos),
		"parsed", parsed,
		"skipped", skipped,
		"failed", failed,
		"duration", time.Since(start).Round(time.Millisecond),
	)

	return nil
}

// errMaterialSkipped distinguishes "no revision source" from real failures
// inside parseAll's bookkeeping. Never returned to callers.
var errMaterialSkipped = errors.New("material skipped")

// parseRepo resolves the repo's latest revision and records the outcome.
// A resolution failure is recorded as an unsuccessful parse that keeps the
// last known revision; only store errors propagate.
func (s *ParseService) parseRepo(ctx context.Context, repo model.ConfigRepo) error {
	if !s.source.Supports(repo.Material) {
		slog.Debug("no revision source for material",
			"repo", repo.ID,
			"type", string(repo.Material.Type),
		)
		return errMaterialSkipped
	}

	lastParse := model.LastParse{ParsedAt: time.Now().UTC()}

	revision, err := s.source.LatestRevision(ctx, repo.Material)
	if err != nil {
		lastParse.Success = false
		lastParse.Error = err.Error()
		if repo.LastParse != nil {
			lastParse.Revision = repo.LastParse.Revision
		}
		slog.Warn("revision resolution failed", "repo", repo.ID, "error", err)
	} else {
		lastParse.Success = true
		lastParse.Revision = revision
	}

	return s.store.SetLastParse(ctx, repo.ID, lastParse)
}

// handleRefresh parses the single repo named by the request.
func (s *ParseService) handleRefresh(ctx context.Context, req refreshRequest) error {
	repo, err := s.store.GetByID(ctx, req.repoID)
	if err != nil {
		return err
	}
	if repo == nil {
		return fmt.Errorf("trigger update %s: %w", req.repoID, driven.ErrConfigRepoNotFound)
	}

	if err := s.parseRepo(ctx, *repo); err != nil && err != errMaterialSkipped {
		return err
	}
	return nil
}
