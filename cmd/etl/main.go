package main

import (
	"errors"
	"log/slog"
	"os"

	"github.com/couchcryptid/flood-activation-etl/internal/domain"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps a command error to a process exit status. Output write
// failures get their own status so wrappers can tell them apart.
func exitCode(err error) int {
	var pf *domain.PersistFault
	if errors.As(err, &pf) {
		return 2
	}
	return 1
}
