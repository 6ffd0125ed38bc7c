package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tgexam/backend/internal/export"
	"github.com/tgexam/backend/internal/model"
	"github.com/tgexam/backend/internal/registry"
	"github.com/tgexam/backend/internal/response"
	"github.com/tgexam/backend/internal/store"
)

// AdminHandler serves the key-protected reporting surface.
type AdminHandler struct {
	registry *registry.Registry
	log      zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(reg *registry.Registry, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		registry: reg,
		log:      log.With().Str("component", "admin_handler").Logger(),
	}
}

// ListResults returns result rows as JSON, optionally filtered.
// GET /api/v1/admin/results?from=&to=&candidate=&tg_id=
func (h *AdminHandler) ListResults(c *gin.Context) {
	filter, ok := parseResultFilter(c)
	if !ok {
		return
	}

	rows, err := h.registry.ListResults(c.Request.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("list results failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if rows == nil {
		rows = []model.ResultRecord{}
	}
	response.Success(c, http.StatusOK, gin.H{"results": rows, "count": len(rows)})
}

// ExportCSV streams the result log as a CSV attachment.
// GET /api/v1/admin/results.csv?from=&to=&candidate=&tg_id=
func (h *AdminHandler) ExportCSV(c *gin.Context) {
	filter, ok := parseResultFilter(c)
	if !ok {
		return
	}

	rows, err := h.registry.ListResults(c.Request.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("list results for export failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	out, err := export.CSV(rows)
	if err != nil {
		h.log.Error().Err(err).Msg("render csv failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="results.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", out)
}

// ListSessions returns the live session records, most recent first.
// GET /api/v1/admin/sessions
func (h *AdminHandler) ListSessions(c *gin.Context) {
	sessions, err := h.registry.RecentSessions(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("list sessions failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if sessions == nil {
		sessions = []model.SessionRecord{}
	}
	response.Success(c, http.StatusOK, gin.H{"sessions": sessions, "count": len(sessions)})
}

// DeleteResult removes one result row by id.
// DELETE /api/v1/admin/results/:id
func (h *AdminHandler) DeleteResult(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	found, err := h.registry.DeleteResult(c.Request.Context(), id)
	if err != nil {
		h.log.Error().Err(err).Str("result_id", id).Msg("delete result failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if !found {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// parseResultFilter reads the shared query parameters of the reporting
// endpoints. On a malformed timestamp it writes the error response itself.
func parseResultFilter(c *gin.Context) (store.ResultFilter, bool) {
	filter := store.ResultFilter{
		Candidate: c.Query("candidate"),
		TGID:      c.Query("tg_id"),
	}
	for _, q := range []struct {
		name string
		dst  **int64
	}{
		{"from", &filter.FromTS},
		{"to", &filter.ToTS},
	} {
		raw := c.Query(q.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
				map[string]string{q.name: "must be an epoch-milliseconds integer"})
			return store.ResultFilter{}, false
		}
		*q.dst = &v
	}
	return filter, true
}
