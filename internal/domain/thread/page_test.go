package thread_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/chatkit-dev/chat-api/internal/domain/thread"
)

type entry struct {
	id        string
	createdAt time.Time
}

func fixedEntries(n int) []entry {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	entries := make([]entry, 0, n)
	for i := 0; i < n; i++ {
		entries = append(entries, entry{
			id:        fmt.Sprintf("e_%d", i+1),
			createdAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	return entries
}

func paginate(src []entry, q thread.ListQuery) thread.Page[entry] {
	return thread.Paginate(src,
		func(e entry) string { return e.id },
		func(e entry) time.Time { return e.createdAt },
		q)
}

func TestPaginateWindowing(t *testing.T) {
	entries := fixedEntries(5)

	tests := []struct {
		name        string
		query       thread.ListQuery
		wantIDs     []string
		wantHasMore bool
		wantAfter   string
	}{
		{
			name:        "first page ascending",
			query:       thread.ListQuery{Limit: 2},
			wantIDs:     []string{"e_1", "e_2"},
			wantHasMore: true,
			wantAfter:   "e_2",
		},
		{
			name:        "second page via cursor",
			query:       thread.ListQuery{Limit: 2, After: "e_2"},
			wantIDs:     []string{"e_3", "e_4"},
			wantHasMore: true,
			wantAfter:   "e_4",
		},
		{
			name:        "final page has no cursor",
			query:       thread.ListQuery{Limit: 2, After: "e_4"},
			wantIDs:     []string{"e_5"},
			wantHasMore: false,
		},
		{
			name:        "descending order",
			query:       thread.ListQuery{Limit: 3, Order: thread.OrderDesc},
			wantIDs:     []string{"e_5", "e_4", "e_3"},
			wantHasMore: true,
			wantAfter:   "e_3",
		},
		{
			name:        "limit equal to size is exhaustive",
			query:       thread.ListQuery{Limit: 5},
			wantIDs:     []string{"e_1", "e_2", "e_3", "e_4", "e_5"},
			wantHasMore: false,
		},
		{
			name:        "unknown cursor restarts from the beginning",
			query:       thread.ListQuery{Limit: 2, After: "e_deleted"},
			wantIDs:     []string{"e_1", "e_2"},
			wantHasMore: true,
			wantAfter:   "e_2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := paginate(entries, tt.query)

			if page.Object != "list" {
				t.Errorf("object = %q, want %q", page.Object, "list")
			}
			if len(page.Data) != len(tt.wantIDs) {
				t.Fatalf("got %d entries, want %d", len(page.Data), len(tt.wantIDs))
			}
			for i, want := range tt.wantIDs {
				if page.Data[i].id != want {
					t.Errorf("data[%d] = %q, want %q", i, page.Data[i].id, want)
				}
			}
			if page.HasMore != tt.wantHasMore {
				t.Errorf("has_more = %v, want %v", page.HasMore, tt.wantHasMore)
			}
			if tt.wantHasMore {
				if page.After == nil || *page.After != tt.wantAfter {
					t.Errorf("after = %v, want %q", page.After, tt.wantAfter)
				}
			} else if page.After != nil {
				t.Errorf("after = %q, want unset", *page.After)
			}
		})
	}
}

func TestPaginateFullWalkVisitsEverythingOnce(t *testing.T) {
	entries := fixedEntries(23)

	seen := make(map[string]int)
	after := ""
	for steps := 0; ; steps++ {
		if steps > 30 {
			t.Fatal("pagination did not terminate")
		}
		page := paginate(entries, thread.ListQuery{Limit: 4, After: after})
		for _, e := range page.Data {
			seen[e.id]++
		}
		if !page.HasMore {
			break
		}
		if page.After == nil {
			t.Fatal("has_more set without an after cursor")
		}
		after = *page.After
	}

	if len(seen) != len(entries) {
		t.Fatalf("walk visited %d distinct entries, want %d", len(seen), len(entries))
	}
	for id, count := range seen {
		if count != 1 {
			t.Errorf("entry %s visited %d times", id, count)
		}
	}
}

func TestPaginateEqualTimestampsKeepInsertionOrder(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	entries := []entry{
		{id: "e_a", createdAt: at},
		{id: "e_b", createdAt: at},
		{id: "e_c", createdAt: at},
	}

	first := paginate(entries, thread.ListQuery{Limit: 2})
	if first.Data[0].id != "e_a" || first.Data[1].id != "e_b" {
		t.Fatalf("first page = %q,%q; want e_a,e_b", first.Data[0].id, first.Data[1].id)
	}

	second := paginate(entries, thread.ListQuery{Limit: 2, After: "e_b"})
	if len(second.Data) != 1 || second.Data[0].id != "e_c" {
		t.Fatalf("cursor after e_b should yield e_c, got %+v", second.Data)
	}
}

func TestPaginateEmptySource(t *testing.T) {
	page := paginate(nil, thread.ListQuery{})
	if len(page.Data) != 0 || page.HasMore || page.After != nil {
		t.Errorf("empty source should yield empty page, got %+v", page)
	}
	if page.Data == nil {
		t.Error("data should serialize as [], not null")
	}
}

func TestListQueryNormalize(t *testing.T) {
	q := thread.ListQuery{}.Normalize()
	if q.Limit != thread.DefaultListLimit {
		t.Errorf("limit = %d, want %d", q.Limit, thread.DefaultListLimit)
	}
	if q.Order != thread.OrderAsc {
		t.Errorf("order = %q, want asc", q.Order)
	}

	q = thread.ListQuery{Limit: 7, Order: thread.OrderDesc}.Normalize()
	if q.Limit != 7 || q.Order != thread.OrderDesc {
		t.Errorf("explicit values must survive normalization, got %+v", q)
	}
}
