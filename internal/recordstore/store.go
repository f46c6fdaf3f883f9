// Package recordstore provides row-oriented access to durable storage for
// profiles, scans and appointments. Callers get filtered reads, inserts and
// count queries; no multi-row transactional guarantee is offered.
package recordstore

import "context"

// Row is one stored record in column-name keyed form.
type Row map[string]any

// Filter matches rows by column equality. A nil or empty filter matches all
// rows of the table.
type Filter map[string]any

// Store is the durable storage contract consumed by the repositories.
type Store interface {
	Query(ctx context.Context, table string, filter Filter) ([]Row, error)
	Insert(ctx context.Context, table string, row Row) (Row, error)
	Update(ctx context.Context, table string, filter Filter, changes Row) (int64, error)
	Count(ctx context.Context, table string, filter Filter) (int64, error)
}

// Table names known to the store.
const (
	TableCredentials  = "credentials"
	TableProfiles     = "profiles"
	TableEyeScans     = "eye_scans"
	TableAppointments = "appointments"
)
