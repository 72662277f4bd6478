// Package http provides the HTTP handler for redeeming export tokens.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/provision/internal/httputil"
	vaultUseCase "github.com/allisson/provision/internal/vault/usecase"
)

// ExportHandler redeems single-use export tokens.
type ExportHandler struct {
	vault  vaultUseCase.Vault
	logger *slog.Logger
}

// NewExportHandler creates a new export handler.
func NewExportHandler(vault vaultUseCase.Vault, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{vault: vault, logger: logger}
}

// RedeemHandler returns the payload for a token and consumes it. Unknown and
// expired tokens both yield 404.
// GET /v1/exports/:token
func (h *ExportHandler) RedeemHandler(c *gin.Context) {
	payload, err := h.vault.Redeem(c.Request.Context(), c.Param("token"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusOK, "application/json", payload)
}
