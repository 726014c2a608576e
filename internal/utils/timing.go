package utils

import (
	"time"

	"github.com/rs/zerolog"
)

// OperationTimer provides a defer-friendly way to measure operation duration.
// Runs slower than threshold are logged as warnings.
//
// Usage:
//
//	defer utils.OperationTimer("refresh_all", time.Minute, log)()
func OperationTimer(operation string, threshold time.Duration, log zerolog.Logger) func() {
	start := time.Now()

	return func() {
		duration := time.Since(start)

		if threshold > 0 && duration > threshold {
			log.Warn().
				Str("operation", operation).
				Dur("duration", duration).
				Dur("threshold", threshold).
				Msg("Slow operation detected")
			return
		}

		log.Debug().
			Str("operation", operation).
			Dur("duration_ms", duration).
			Msg("Operation completed")
	}
}
