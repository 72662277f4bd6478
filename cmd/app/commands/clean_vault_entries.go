package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	vaultUseCase "github.com/allisson/provision/internal/vault/usecase"
)

// RunCleanVaultEntries purges expired vault entries and any orphaned export
// artifacts they left behind.
func RunCleanVaultEntries(
	ctx context.Context,
	vault vaultUseCase.Vault,
	logger *slog.Logger,
	writer io.Writer,
	format string,
) error {
	logger.Info("purging expired vault entries")

	count, err := vault.Sweep(ctx, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to sweep vault: %w", err)
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
		fmt.Fprintf(writer, "Purged %d expired vault entries\n", count)
	}

	logger.Info("sweep completed", slog.Int("count", count))

	return nil
}
