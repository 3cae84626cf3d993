// Structured logging wiring.
//
// folio itself is silent; the original Rust source calls tracing::info!
// on mutating paths (see db.rs's try_insert). zap.Logger is the pack's
// idiomatic analogue — edirooss-zmux-server's processmgr.NewProcessManager
// takes the same approach of defaulting to zap.NewNop() so a caller that
// doesn't wire a real logger pays nothing. The functional-options
// mechanism (Option/With...) that attaches it follows the
// Option func(*config) / WithMemSize pattern in
// oarkflow-velocity's LSM database constructor.
package alexdb

import "go.uber.org/zap"

// Option configures a Store at construction time.
type Option func(*Store)

// WithLogger attaches a structured logger. The default is a no-op
// logger so callers that don't care about observability pay nothing.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}
