package audit

import "context"

// Store persists trail entries. Append is the only write; no update or
// delete path exists.
type Store interface {
	Append(ctx context.Context, entry *Entry) error
	// Query returns entries matching the filter in insert order, starting
	// after the given entry id, up to limit rows. The returned cursor is the
	// id of the last entry, empty when the page is empty.
	Query(ctx context.Context, f Filter, limit int, afterID string) ([]Entry, string, error)
}
