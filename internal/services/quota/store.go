// Package quota enforces the per-identity daily image limit.
package quota

import (
	"context"

	"github.com/phambaophuc/alt-text-relay/internal/models"
)

// Store persists quota records keyed by caller identity.
//
// IncrementWithReset must be atomic per identity: the record is reset to
// {count: 0, day: day} when its day differs, then incremented by n only if
// the new count stays within limit. The returned bool reports whether the
// increment was applied; the returned record is the state after the call.
type Store interface {
	Get(ctx context.Context, identity string) (models.QuotaRecord, bool, error)
	Set(ctx context.Context, record models.QuotaRecord) error
	IncrementWithReset(ctx context.Context, identity, day string, n, limit int) (models.QuotaRecord, bool, error)
	// Sweep removes records whose day is not today and returns how many were removed.
	Sweep(ctx context.Context, today string) (int, error)
	Close() error
}
