// Package export writes audit-log entries to Parquet files for offline
// compliance review. Exported rows contain what the store contains: masked
// messages for unblocked turns, so an export never widens exposure.
package export

import (
	"context"
	"fmt"
	"os"

	"github.com/segmentio/parquet-go"
	"go.uber.org/zap"

	"github.com/yourusername/chatguard/internal/audit"
)

// Row is the Parquet layout of one audit entry.
type Row struct {
	ID        int64  `parquet:"id"`
	UserID    string `parquet:"user_id"`
	Message   string `parquet:"message"`
	Response  string `parquet:"response"`
	Filtered  bool   `parquet:"filtered"`
	CreatedAt int64  `parquet:"created_at_unix_ms"`
}

// Exporter pulls entries from the audit store and writes Parquet files.
type Exporter struct {
	store  audit.Store
	logger *zap.Logger
}

// NewExporter creates an exporter over the given store.
func NewExporter(store audit.Store, logger *zap.Logger) *Exporter {
	return &Exporter{store: store, logger: logger}
}

// ExportUser writes up to limit of the user's newest entries to outputPath
// and returns the number of rows written.
func (e *Exporter) ExportUser(ctx context.Context, userID string, limit int, outputPath string) (int, error) {
	entries, err := e.store.ListByUser(ctx, userID, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to read audit entries: %w", err)
	}

	n, err := WriteFile(outputPath, entries)
	if err != nil {
		return 0, err
	}

	e.logger.Info("Audit export written",
		zap.String("user_id", userID),
		zap.String("output", outputPath),
		zap.Int("rows", n),
	)
	return n, nil
}

// WriteFile writes entries to a Parquet file, creating or truncating it.
func WriteFile(path string, entries []audit.Entry) (int, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	writer := parquet.NewWriter(file, parquet.SchemaOf(Row{}))
	for _, entry := range entries {
		row := Row{
			ID:        entry.ID,
			UserID:    entry.UserID,
			Message:   entry.Message,
			Response:  entry.Response,
			Filtered:  entry.Filtered,
			CreatedAt: entry.CreatedAt.UnixMilli(),
		}
		if err := writer.Write(&row); err != nil {
			return 0, fmt.Errorf("failed to write row %d: %w", entry.ID, err)
		}
	}
	if err := writer.Close(); err != nil {
		return 0, fmt.Errorf("failed to finalize Parquet file: %w", err)
	}

	return len(entries), nil
}
