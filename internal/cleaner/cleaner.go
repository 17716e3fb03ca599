package cleaner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/conorfennell/lessonseed/internal/storage"
)

// Store is the part of storage.Store needed to clear a table.
type Store interface {
	CountRows(ctx context.Context, table string) (int64, error)
	DeleteAll(ctx context.Context, table string) (int64, error)
}

// Clear deletes every row of table with a single request and returns how
// many rows were removed. Failures are logged and returned; there is no retry.
func Clear(ctx context.Context, store Store, table string, logger *slog.Logger) (int64, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := storage.ValidateTable(table); err != nil {
		return 0, err
	}

	logger.Info("Starting to delete all rows", "table", table)
	removed, err := store.DeleteAll(ctx, table)
	if err != nil {
		logger.Error("Error deleting rows", "table", table, "error", err)
		return 0, fmt.Errorf("clear %s: %w", table, err)
	}
	logger.Info("Successfully deleted all rows", "table", table, "deleted", removed)
	return removed, nil
}

// Confirm warns that table is about to be emptied and asks for a yes/no
// answer on in. Only "yes" in any case confirms; only the line terminator is
// stripped, so " yes" declines like anything else, including end of input.
func Confirm(in io.Reader, out io.Writer, table string, rows int64) (bool, error) {
	if rows >= 0 {
		fmt.Fprintf(out, "WARNING: This will delete ALL %d rows from the table '%s'\n", rows, table)
	} else {
		fmt.Fprintf(out, "WARNING: This will delete ALL rows from the table '%s'\n", table)
	}
	fmt.Fprint(out, "Are you sure you want to continue? (yes/no): ")

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read confirmation: %w", err)
	}
	if strings.ToLower(strings.TrimRight(line, "\r\n")) != "yes" {
		fmt.Fprintln(out, "Operation cancelled.")
		return false, nil
	}
	return true, nil
}
