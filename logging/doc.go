// Package logging provides a tiny abstraction over slog so the rest of the
// codebase depends on a minimal interface (Logger) while deployments can plug
// any structured logger.
package logging
