package dedupe

import (
	"context"
	"errors"
	"testing"

	"taskbrief/internal/task"
)

func mkTask(id, url, created string) task.Task {
	t := task.Task{ID: id, Title: "task " + id, ListID: "list1", CreatedAt: created, Body: url}
	t.RefreshURLs()
	return t
}

func TestFindDuplicatesGroupsByCanonicalURL(t *testing.T) {
	tasks := []task.Task{
		mkTask("a", "https://www.example.com/page/", "2025-01-01T00:00:00Z"),
		mkTask("b", "https://example.com/page?utm_source=x", "2025-01-02T00:00:00Z"),
		mkTask("c", "https://unique.org/solo", "2025-01-03T00:00:00Z"),
	}

	groups := FindDuplicates(tasks)
	if len(groups) != 1 {
		t.Fatalf("groups=%d, want 1", len(groups))
	}
	if groups[0].URL != "https://example.com/page" {
		t.Fatalf("group url=%q", groups[0].URL)
	}
	if len(groups[0].Tasks) != 2 {
		t.Fatalf("group size=%d, want 2", len(groups[0].Tasks))
	}
}

func TestFindDuplicatesMultiURLTaskInMultipleGroups(t *testing.T) {
	multi := task.Task{ID: "m", ListID: "l", Body: "https://one.com/a https://two.com/b"}
	multi.RefreshURLs()
	tasks := []task.Task{
		multi,
		mkTask("x", "https://one.com/a", "2025-01-01T00:00:00Z"),
		mkTask("y", "https://two.com/b", "2025-01-01T00:00:00Z"),
	}

	groups := FindDuplicates(tasks)
	if len(groups) != 2 {
		t.Fatalf("groups=%d, want 2", len(groups))
	}
}

func TestResolveKeepsNewest(t *testing.T) {
	g := Group{URL: "https://example.com/x", Tasks: []task.Task{
		mkTask("day1", "https://example.com/x", "2025-03-01T09:00:00Z"),
		mkTask("day3", "https://example.com/x", "2025-03-03T09:00:00Z"),
		mkTask("day2", "https://example.com/x", "2025-03-02T09:00:00Z"),
	}}

	keeper, removable := Resolve(g)
	if keeper.ID != "day3" {
		t.Fatalf("keeper=%s, want day3", keeper.ID)
	}
	if len(removable) != 2 {
		t.Fatalf("removable=%d, want 2", len(removable))
	}
}

func TestResolveMissingCreatedSortsLast(t *testing.T) {
	g := Group{Tasks: []task.Task{
		mkTask("nodate", "https://example.com/x", ""),
		mkTask("dated", "https://example.com/x", "2020-01-01T00:00:00Z"),
		mkTask("garbage", "https://example.com/x", "not-a-date"),
	}}

	keeper, removable := Resolve(g)
	if keeper.ID != "dated" {
		t.Fatalf("keeper=%s, want dated", keeper.ID)
	}
	// 无时间戳的保持相遇顺序 / undated tasks keep encounter order
	if removable[0].ID != "nodate" || removable[1].ID != "garbage" {
		t.Fatalf("removable order=%s,%s", removable[0].ID, removable[1].ID)
	}
}

func TestResolveTieBreakFirstSeenWins(t *testing.T) {
	same := "2025-05-05T12:00:00Z"
	g := Group{Tasks: []task.Task{
		mkTask("first", "https://example.com/x", same),
		mkTask("second", "https://example.com/x", same),
	}}

	keeper, _ := Resolve(g)
	if keeper.ID != "first" {
		t.Fatalf("keeper=%s, tie should keep first-seen", keeper.ID)
	}
}

type fakeDeleter struct {
	deleted []string
	failOn  map[string]bool
}

func (f *fakeDeleter) DeleteTask(_ context.Context, _ string, taskID string) error {
	if f.failOn[taskID] {
		return errors.New("boom")
	}
	f.deleted = append(f.deleted, taskID)
	return nil
}

func TestPurgeCountsAndContinuesOnFailure(t *testing.T) {
	groups := []Group{
		{Tasks: []task.Task{
			mkTask("keep1", "https://example.com/x", "2025-02-02T00:00:00Z"),
			mkTask("del1", "https://example.com/x", "2025-02-01T00:00:00Z"),
			mkTask("del2", "https://example.com/x", "2025-01-31T00:00:00Z"),
		}},
		{Tasks: []task.Task{
			mkTask("keep2", "https://example.com/y", "2025-02-02T00:00:00Z"),
			mkTask("del3", "https://example.com/y", "2025-02-01T00:00:00Z"),
		}},
	}
	d := &fakeDeleter{failOn: map[string]bool{"del1": true}}

	stats := Purge(context.Background(), d, groups, false)
	if stats.Deleted != 2 || stats.Failed != 1 || stats.Skipped != 0 {
		t.Fatalf("stats=%+v", stats)
	}
	if len(d.deleted) != 2 {
		t.Fatalf("deleted=%v", d.deleted)
	}
}

func TestPurgeDryRunSkips(t *testing.T) {
	groups := []Group{{Tasks: []task.Task{
		mkTask("keep", "https://example.com/x", "2025-02-02T00:00:00Z"),
		mkTask("del", "https://example.com/x", "2025-02-01T00:00:00Z"),
	}}}
	d := &fakeDeleter{}

	stats := Purge(context.Background(), d, groups, true)
	if stats.Skipped != 1 || stats.Deleted != 0 || stats.Failed != 0 {
		t.Fatalf("stats=%+v", stats)
	}
	if len(d.deleted) != 0 {
		t.Fatalf("dry run must not delete, got %v", d.deleted)
	}
}
