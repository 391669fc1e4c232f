package thread

import (
	"sort"
	"time"
)

// SortOrder selects created_at ordering for list operations.
type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// DefaultListLimit bounds list operations when the caller sends no limit.
const DefaultListLimit = 20

// MaxListLimit is the "effectively all items" bound used when hydrating a
// full thread.
const MaxListLimit = 1000

// ListQuery captures the shared cursor-pagination inputs.
type ListQuery struct {
	Limit int
	After string
	Order SortOrder
}

// Normalize applies defaults for zero values.
func (q ListQuery) Normalize() ListQuery {
	if q.Limit <= 0 {
		q.Limit = DefaultListLimit
	}
	if q.Order != OrderDesc {
		q.Order = OrderAsc
	}
	return q
}

// Page is a bounded, cursor-paginated slice of a larger ordered collection.
// HasMore implies After is set; After is the id of the last returned element.
type Page[T any] struct {
	Object  string  `json:"object"` // always "list"
	Data    []T     `json:"data"`
	HasMore bool    `json:"has_more"`
	After   *string `json:"after,omitempty"`
}

// EmptyPage returns a page with no data and no continuation.
func EmptyPage[T any]() Page[T] {
	return Page[T]{Object: "list", Data: []T{}}
}

// Paginate applies the universal list contract to src: stable sort by
// created_at per q.Order (ties keep insertion order — two items created in
// the same tick must not reorder, and the cursor relies on position, not on
// timestamp comparison), window starting after the cursor, limit+1 probe for
// has_more. An unknown cursor restarts from the beginning rather than
// erroring; stale cursors from deleted entries degrade to a full relist.
func Paginate[T any](src []T, id func(T) string, createdAt func(T) time.Time, q ListQuery) Page[T] {
	q = q.Normalize()

	sorted := make([]T, len(src))
	copy(sorted, src)
	sort.SliceStable(sorted, func(a, b int) bool {
		if q.Order == OrderDesc {
			return createdAt(sorted[a]).After(createdAt(sorted[b]))
		}
		return createdAt(sorted[a]).Before(createdAt(sorted[b]))
	})

	start := 0
	if q.After != "" {
		for idx := range sorted {
			if id(sorted[idx]) == q.After {
				start = idx + 1
				break
			}
		}
	}

	end := start + q.Limit + 1
	if end > len(sorted) {
		end = len(sorted)
	}
	window := sorted[start:end]

	page := EmptyPage[T]()
	if len(window) > q.Limit {
		page.HasMore = true
		window = window[:q.Limit]
	}
	page.Data = append(page.Data, window...)
	if page.HasMore && len(page.Data) > 0 {
		last := id(page.Data[len(page.Data)-1])
		page.After = &last
	}
	return page
}
