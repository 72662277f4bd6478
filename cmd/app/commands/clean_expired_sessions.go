package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	deploymentUseCase "github.com/allisson/provision/internal/deployment/usecase"
)

// RunCleanExpiredSessions transitions deployment sessions past their TTL to
// the expired state, releasing any quota reservations they hold.
//
// Requirements: Database must be migrated and accessible.
func RunCleanExpiredSessions(
	ctx context.Context,
	sessions deploymentUseCase.SessionUseCase,
	logger *slog.Logger,
	writer io.Writer,
	format string,
) error {
	logger.Info("expiring overdue sessions")

	count, err := sessions.ExpireDue(ctx, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to expire sessions: %w", err)
	}

	// Output result based on format
	if format == "json" {
		result := map[string]interface{}{"count": count}
		jsonBytes, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Fprintln(writer, string(jsonBytes))
	} else {
		fmt.Fprintf(writer, "Expired %d session(s)\n", count)
	}

	logger.Info("cleanup completed", slog.Int("count", count))

	return nil
}
