package generate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func workItems(specs ...ItemSpec) []*WorkItem {
	items := make([]*WorkItem, len(specs))
	for i, s := range specs {
		items[i] = newWorkItem(s, time.Time{})
	}
	return items
}

func popAll(q *readyQueue) []string {
	var ids []string
	for w := q.pop(); w != nil; w = q.pop() {
		ids = append(ids, w.ID)
	}
	return ids
}

func TestReadySet_SeedsOnlyUnblockedItems(t *testing.T) {
	rs := newReadySet(workItems(
		ItemSpec{ID: "p", Priority: 100},
		ItemSpec{ID: "c", Dependencies: []string{"p"}},
		ItemSpec{ID: "q", Priority: 100},
	))

	assert.Equal(t, 2, rs.queue.len())
	assert.Equal(t, []string{"p", "q"}, popAll(&rs.queue))
}

func TestReadySet_CompleteReleasesDependents(t *testing.T) {
	items := workItems(
		ItemSpec{ID: "p"},
		ItemSpec{ID: "q"},
		ItemSpec{ID: "c1", Dependencies: []string{"p"}},
		ItemSpec{ID: "both", Dependencies: []string{"p", "q"}},
	)
	rs := newReadySet(items)

	assert.Equal(t, []string{"c1"}, rs.complete("p"))
	assert.Equal(t, []string{"both"}, rs.complete("q"))
	assert.Empty(t, rs.complete("q"), "completing twice releases nothing")
}

func TestReadyQueue_RequeueGoesToBackOfTier(t *testing.T) {
	items := workItems(
		ItemSpec{ID: "a", Priority: 5},
		ItemSpec{ID: "b", Priority: 5},
		ItemSpec{ID: "c", Priority: 1},
	)
	rs := newReadySet(items)

	first := rs.queue.pop()
	assert.Equal(t, "a", first.ID)
	rs.queue.push(first)

	assert.Equal(t, []string{"b", "a", "c"}, popAll(&rs.queue))
}
