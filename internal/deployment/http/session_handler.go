// Package http provides HTTP handlers for deployment session management.
package http

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	deploymentDomain "github.com/allisson/provision/internal/deployment/domain"
	"github.com/allisson/provision/internal/deployment/http/dto"
	deploymentUseCase "github.com/allisson/provision/internal/deployment/usecase"
	"github.com/allisson/provision/internal/httputil"
	customValidation "github.com/allisson/provision/internal/validation"
)

// SessionHandler handles HTTP requests for deployment sessions. Every
// mutating call returns the resulting session snapshot.
type SessionHandler struct {
	sessionUseCase deploymentUseCase.SessionUseCase
	logger         *slog.Logger
}

// NewSessionHandler creates a new session handler with required dependencies.
func NewSessionHandler(
	sessionUseCase deploymentUseCase.SessionUseCase,
	logger *slog.Logger,
) *SessionHandler {
	return &SessionHandler{
		sessionUseCase: sessionUseCase,
		logger:         logger,
	}
}

// sessionID parses the :id path parameter.
func sessionID(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("session id must be a valid UUID")
	}
	return id, nil
}

// CreateHandler opens a draft session for the calling user.
// POST /v1/sessions
func (h *SessionHandler) CreateHandler(c *gin.Context) {
	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	session, err := h.sessionUseCase.Create(
		c.Request.Context(),
		httputil.CallerID(c),
		req.ProjectID,
		req.Provider,
	)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapSessionToResponse(session))
}

// GetHandler returns the session snapshot.
// GET /v1/sessions/:id
func (h *SessionHandler) GetHandler(c *gin.Context) {
	id, err := sessionID(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	session, err := h.sessionUseCase.Get(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapSessionToResponse(session))
}

// AddResourceHandler appends a resource spec to the session.
// POST /v1/sessions/:id/resources
func (h *SessionHandler) AddResourceHandler(c *gin.Context) {
	id, err := sessionID(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	var req dto.AddResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	session, err := h.sessionUseCase.AddResource(c.Request.Context(), id, deploymentDomain.ResourceSpec{
		Type:              req.Type,
		Config:            req.Config,
		EstimatedUnitCost: req.EstimatedUnitCost,
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapSessionToResponse(session))
}

// RemoveResourceHandler removes the first resource of the given type.
// DELETE /v1/sessions/:id/resources/:type
func (h *SessionHandler) RemoveResourceHandler(c *gin.Context) {
	id, err := sessionID(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	session, err := h.sessionUseCase.RemoveResource(c.Request.Context(), id, c.Param("type"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapSessionToResponse(session))
}

// SubmitHandler validates the change-set and runs a plan.
// POST /v1/sessions/:id/submit
func (h *SessionHandler) SubmitHandler(c *gin.Context) {
	id, err := sessionID(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	session, err := h.sessionUseCase.Submit(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapSessionToResponse(session))
}

// ApproveHandler reserves quota and starts the apply.
// POST /v1/sessions/:id/approve
func (h *SessionHandler) ApproveHandler(c *gin.Context) {
	id, err := sessionID(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	session, err := h.sessionUseCase.Approve(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusAccepted, dto.MapSessionToResponse(session))
}

// CancelHandler aborts a non-applying session.
// POST /v1/sessions/:id/cancel
func (h *SessionHandler) CancelHandler(c *gin.Context) {
	id, err := sessionID(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	session, err := h.sessionUseCase.Cancel(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapSessionToResponse(session))
}

// StreamHandler streams apply output as server-sent events, ending with a
// terminal status event.
// GET /v1/sessions/:id/stream
func (h *SessionHandler) StreamHandler(c *gin.Context) {
	id, err := sessionID(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	// Subscribe before reading the state: an apply that finishes between
	// the two steps then still delivers its terminal result here instead
	// of closing a topic nobody watches.
	stream, cancel := h.sessionUseCase.Subscribe(id)
	defer cancel()

	// Surface unknown sessions as 404 before committing to the stream.
	session, err := h.sessionUseCase.Get(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	// A session already settled has no stream to wait on; report its state
	// and end.
	if session.State.Terminal() {
		c.SSEvent("status", string(session.State))
		return
	}

	c.Stream(func(w io.Writer) bool {
		select {
		case msg, ok := <-stream:
			if !ok {
				return false
			}
			if msg.Done {
				status := "failed"
				if msg.Result != nil && msg.Result.Success {
					status = "applied"
				}
				c.SSEvent("status", status)
				return false
			}
			c.SSEvent("line", msg.Line)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// ExportHandler issues a single-use vault token for the session's bundle.
// POST /v1/sessions/:id/export
func (h *SessionHandler) ExportHandler(c *gin.Context) {
	id, err := sessionID(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	token, err := h.sessionUseCase.Export(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.ExportResponse{Token: token})
}
