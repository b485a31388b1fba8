package syncx

import (
	"context"
	"database/sql"
	"time"
)

// Event is one durable audit record, e.g. SubmissionRecorded or
// AssessmentDeleted. Key is the natural key of the affected entity.
type Event struct {
	Seq       int64
	SiteID    string
	Type      string
	Key       string
	DataJSON  string
	CreatedAt int64
}

// Execer is satisfied by *sql.DB and *sql.Tx so events can be appended
// inside the transaction that produced them.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// AppendTx appends one event on the given connection or transaction, so an
// event can ride the same tx as the rows it describes.
func AppendTx(ctx context.Context, tx Execer, e Event) error {
	site := e.SiteID
	if site == "" {
		site = "local"
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO event_log (site_id, typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		site, e.Type, e.Key, e.DataJSON, time.Now().Unix())
	return err
}
