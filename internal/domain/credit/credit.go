// Package credit models store credit as an append-only list of signed
// movements. A movement with a SiteID belongs to that site's pool; one
// without belongs to the general pool.
package credit

import (
	"context"
	"time"
)

type Movement struct {
	ID            string
	CustomerID    int64
	SiteID        *int64
	TransactionID string
	Amount        int64
	CreatedAt     time.Time
}

type Repository interface {
	// Balance sums the site pool when siteID is set, the general pool
	// otherwise.
	Balance(ctx context.Context, customerID int64, siteID *int64) (int64, error)
	Add(ctx context.Context, m *Movement) error
}
