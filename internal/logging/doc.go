// Package logging provides the leveled logger used across media-derive.
//
// Levels, from most to least verbose:
//   - DEBUG: per-request derivative and thumbnail decisions
//   - INFO: startup, configuration and generation summaries
//   - WARN: recoverable problems such as thumbnail fallbacks
//   - ERROR: failed generations and filesystem errors
//
// The initial level comes from the DEBUG or LOG_LEVEL environment variables.
// Callers holding an explicit configuration may override it with SetLevel.
package logging
