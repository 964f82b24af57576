package repositories

import (
	"context"

	"tusflow/internal/domain/entities"
)

// LedgerRepository is D1: the best-effort audit trail of finalized
// uploads. Implementations must never block or fail the finalize path
// that calls them — failures are logged by the caller, not returned as
// protocol errors.
type LedgerRepository interface {
	RecordCompletion(ctx context.Context, record entities.UploadRecord) error
}
