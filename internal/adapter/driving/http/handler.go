// Package httphandler implements the JSON admin API driving adapter.
package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ericfisherdev/configpanel/internal/application"
	"github.com/ericfisherdev/configpanel/internal/domain/model"
	"github.com/ericfisherdev/configpanel/internal/domain/port/driven"
)

// Handler is the HTTP driving adapter that serves the config repo REST API.
type Handler struct {
	repoStore driven.ConfigRepoStore
	repoSvc   *application.RepoService
	parseSvc  *application.ParseService
	logger    *slog.Logger
}

// NewHandler creates a Handler with all required dependencies. parseSvc may
// be nil, in which case creates do not trigger an immediate parse and
// trigger_update is unavailable.
func NewHandler(
	repoStore driven.ConfigRepoStore,
	repoSvc *application.RepoService,
	parseSvc *application.ParseService,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		repoStore: repoStore,
		repoSvc:   repoSvc,
		parseSvc:  parseSvc,
		logger:    logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/config_repos", h.ListConfigRepos)
	mux.HandleFunc("POST /api/v1/config_repos", h.CreateConfigRepo)
	mux.HandleFunc("GET /api/v1/config_repos/{id}", h.GetConfigRepo)
	mux.HandleFunc("PUT /api/v1/config_repos/{id}", h.UpdateConfigRepo)
	mux.HandleFunc("DELETE /api/v1/config_repos/{id}", h.DeleteConfigRepo)
	mux.HandleFunc("POST /api/v1/config_repos/{id}/trigger_update", h.TriggerUpdate)
	mux.HandleFunc("GET /api/v1/health", h.Health)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// ListConfigRepos returns all registered config repos.
func (h *Handler) ListConfigRepos(w http.ResponseWriter, r *http.Request) {
	repos, err := h.repoStore.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list config repos", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]ConfigRepoResponse, 0, len(repos))
	for _, repo := range repos {
		resp = append(resp, toConfigRepoResponse(repo))
	}

	writeJSON(w, http.StatusOK, ConfigReposResponse{ConfigRepos: resp})
}

// GetConfigRepo returns a single config repo by id.
func (h *Handler) GetConfigRepo(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	repo, err := h.repoStore.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get config repo", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if repo == nil {
		writeError(w, http.StatusNotFound, "config repo not found")
		return
	}

	writeJSON(w, http.StatusOK, toConfigRepoResponse(*repo))
}

// CreateConfigRepo registers a new config repo and triggers an async first
// parse so the admin widget shows a result without waiting for the interval.
func (h *Handler) CreateConfigRepo(w http.ResponseWriter, r *http.Request) {
	repo, ok := h.decodeRepo(w, r, "")
	if !ok {
		return
	}

	created, err := h.repoSvc.Create(r.Context(), repo)
	if err != nil {
		h.writeServiceError(w, repo.ID, err)
		return
	}

	// Fire-and-forget async parse with background context since the HTTP
	// request context will be cancelled after the response is sent.
	if h.parseSvc != nil {
		go func() {
			if err := h.parseSvc.TriggerUpdate(context.Background(), created.ID); err != nil {
				h.logger.Error("async parse after create failed", "id", created.ID, "error", err)
			}
		}()
	}

	writeJSON(w, http.StatusCreated, toConfigRepoResponse(created))
}

// UpdateConfigRepo replaces an existing config repo.
func (h *Handler) UpdateConfigRepo(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	repo, ok := h.decodeRepo(w, r, id)
	if !ok {
		return
	}

	updated, err := h.repoSvc.Update(r.Context(), repo)
	if err != nil {
		h.writeServiceError(w, id, err)
		return
	}

	writeJSON(w, http.StatusOK, toConfigRepoResponse(updated))
}

// DeleteConfigRepo removes a config repo from the registry.
func (h *Handler) DeleteConfigRepo(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.repoStore.Remove(r.Context(), id); err != nil {
		if errors.Is(err, driven.ErrConfigRepoNotFound) {
			writeError(w, http.StatusNotFound, "config repo not found")
			return
		}
		h.logger.Error("failed to delete config repo", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// TriggerUpdate parses a config repo immediately, bypassing the interval.
func (h *Handler) TriggerUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if h.parseSvc == nil {
		writeError(w, http.StatusServiceUnavailable, "parse service unavailable")
		return
	}

	if err := h.parseSvc.TriggerUpdate(r.Context(), id); err != nil {
		if errors.Is(err, driven.ErrConfigRepoNotFound) {
			writeError(w, http.StatusNotFound, "config repo not found")
			return
		}
		h.logger.Error("trigger update failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusAccepted, MessageResponse{Message: "update triggered"})
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// decodeRepo decodes a config repo request body. pathID, when non-empty, must
// match the body id (the body id may be omitted). Material codec errors are
// client errors: unknown types and conflicting password fields map to 422,
// malformed JSON to 400.
func (h *Handler) decodeRepo(w http.ResponseWriter, r *http.Request, pathID string) (model.ConfigRepo, bool) {
	var req ConfigRepoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		switch {
		case errors.Is(err, model.ErrUnknownMaterialType):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, model.ErrConflictingPassword):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			writeError(w, http.StatusBadRequest, "invalid request body")
		}
		return model.ConfigRepo{}, false
	}

	if pathID != "" {
		if req.ID != "" && req.ID != pathID {
			writeError(w, http.StatusUnprocessableEntity, "id in body does not match id in path")
			return model.ConfigRepo{}, false
		}
		req.ID = pathID
	}

	return model.ConfigRepo{
		ID:            req.ID,
		PluginID:      req.PluginID,
		Material:      req.Material,
		Configuration: req.Configuration,
	}, true
}

// writeServiceError maps RepoService errors to HTTP statuses.
func (h *Handler) writeServiceError(w http.ResponseWriter, id string, err error) {
	switch {
	case errors.Is(err, application.ErrValidation):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, driven.ErrEncryptionKeyNotSet):
		writeError(w, http.StatusUnprocessableEntity, "cannot accept a plaintext password: no encryption key configured")
	case errors.Is(err, driven.ErrConfigRepoAlreadyExists):
		writeError(w, http.StatusConflict, "config repo already exists")
	case errors.Is(err, driven.ErrConfigRepoNotFound):
		writeError(w, http.StatusNotFound, "config repo not found")
	default:
		h.logger.Error("config repo write failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
