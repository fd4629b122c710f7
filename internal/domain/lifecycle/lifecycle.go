// Package lifecycle holds the shared bounds for process start and stop hooks.
package lifecycle

import "time"

// DefaultTimeout bounds every fx OnStart/OnStop hook and graceful shutdown.
const DefaultTimeout = 10 * time.Second
