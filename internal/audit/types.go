package audit

import (
	"context"
	"time"
)

// Entry is one chat turn in the audit log. Message holds what was actually
// sent upstream and persisted: the masked text for unblocked messages, the
// raw text for blocked ones (nothing left the system in that case). Entries
// are immutable once appended, except for deletion by id.
type Entry struct {
	ID        int64     `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Message   string    `db:"message" json:"message"`
	Response  string    `db:"response" json:"response"`
	Filtered  bool      `db:"filtered" json:"filtered"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Store is the append-only audit log contract. Append assigns a
// monotonically increasing unique id and must be atomic under concurrent
// calls; ListByUser returns entries newest-first truncated to limit;
// DeleteByID is idempotent and reports whether an entry was removed.
type Store interface {
	Append(ctx context.Context, entry *Entry) (int64, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]Entry, error)
	DeleteByID(ctx context.Context, id int64) (bool, error)
	Close() error
}
