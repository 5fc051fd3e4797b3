package linecount

import (
	"io"
	"log/slog"
)

// SafeClose closes c and logs a warning if that fails. It's safe to use in
// deferred statements for report writers.
func SafeClose(logger *slog.Logger, c io.Closer, what string) {
	if err := c.Close(); err != nil {
		logger.Warn("closing "+what, "error", err)
	}
}
