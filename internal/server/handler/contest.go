package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/majorbet/internal/domain"
	"github.com/alanyoungcy/majorbet/internal/platform/backend"
	"github.com/alanyoungcy/majorbet/internal/service"
)

// ContestService is what the contest handler reads and triggers.
type ContestService interface {
	Status(ctx context.Context) (domain.ContestStatus, error)
	Teams(ctx context.Context) ([]domain.Team, error)
	Sync(ctx context.Context) (service.SyncResult, error)
}

// ContestHandler serves the synced contest state and the sync trigger.
type ContestHandler struct {
	contests ContestService
	logger   *slog.Logger
}

// NewContestHandler creates a ContestHandler.
func NewContestHandler(contests ContestService, logger *slog.Logger) *ContestHandler {
	return &ContestHandler{contests: contests, logger: logHandler(logger, "contest")}
}

// GetStatus returns the synced status. Before the first sync it reports an
// empty Open contest.
// GET /api/status
func (h *ContestHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.contests.Status(r.Context())
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		h.logger.ErrorContext(r.Context(), "handler: get status failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load status")
		return
	}
	writeJSON(w, http.StatusOK, backend.NewStatusRecord(st))
}

// GetTeams returns every team ordered by id.
// GET /api/teams
func (h *ContestHandler) GetTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.contests.Teams(r.Context())
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		h.logger.ErrorContext(r.Context(), "handler: get teams failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load teams")
		return
	}
	out := make([]backend.TeamRecord, 0, len(teams))
	for _, t := range teams {
		out = append(out, backend.NewTeamRecord(t))
	}
	writeJSON(w, http.StatusOK, out)
}

type syncResponse struct {
	Message  string `json:"message"`
	Status   int    `json:"status"`
	Teams    int    `json:"teams"`
	Changed  bool   `json:"changed"`
	Previous *int   `json:"previous_status,omitempty"`
}

// Sync copies the ledger state now.
// GET|POST /api/sync
func (h *ContestHandler) Sync(w http.ResponseWriter, r *http.Request) {
	res, err := h.contests.Sync(r.Context())
	if err != nil {
		status := errorStatus(err)
		if status == http.StatusInternalServerError {
			status = http.StatusBadGateway
		}
		h.logger.WarnContext(r.Context(), "handler: sync failed", slog.String("error", err.Error()))
		writeError(w, status, err.Error())
		return
	}
	resp := syncResponse{
		Message: "Synced successfully",
		Status:  int(res.Status.Code),
		Teams:   res.Teams,
		Changed: res.Changed,
	}
	if res.Previous != nil {
		prev := int(*res.Previous)
		resp.Previous = &prev
	}
	writeJSON(w, http.StatusOK, resp)
}
