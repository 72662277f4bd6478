// Package http provides the HTTP handler for reading audit records.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	auditDomain "github.com/allisson/provision/internal/audit/domain"
	auditUseCase "github.com/allisson/provision/internal/audit/usecase"
	"github.com/allisson/provision/internal/httputil"
)

// RecordResponse represents an audit record in API responses.
type RecordResponse struct {
	ID        string         `json:"id"`
	EventType string         `json:"event_type"`
	Actor     string         `json:"actor"`
	ProjectID string         `json:"project_id"`
	SessionID string         `json:"session_id"`
	Outcome   string         `json:"outcome"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// ListResponse wraps a page of audit records.
type ListResponse struct {
	Records []RecordResponse `json:"records"`
	Offset  int              `json:"offset"`
	Limit   int              `json:"limit"`
}

// AuditHandler serves the project audit trail.
type AuditHandler struct {
	audit  auditUseCase.UseCase
	logger *slog.Logger
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(audit auditUseCase.UseCase, logger *slog.Logger) *AuditHandler {
	return &AuditHandler{audit: audit, logger: logger}
}

// ListHandler returns a project's audit records, newest first.
// GET /v1/projects/:project_id/audit
func (h *AuditHandler) ListHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	records, err := h.audit.List(c.Request.Context(), c.Param("project_id"), offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, mapRecordsToResponse(records, offset, limit))
}

func mapRecordsToResponse(records []*auditDomain.Record, offset, limit int) ListResponse {
	response := ListResponse{
		Records: make([]RecordResponse, 0, len(records)),
		Offset:  offset,
		Limit:   limit,
	}
	for _, record := range records {
		response.Records = append(response.Records, RecordResponse{
			ID:        record.ID.String(),
			EventType: string(record.EventType),
			Actor:     record.Actor,
			ProjectID: record.ProjectID,
			SessionID: record.SessionID.String(),
			Outcome:   record.Outcome,
			Metadata:  record.Metadata,
			CreatedAt: record.CreatedAt,
		})
	}
	return response
}
