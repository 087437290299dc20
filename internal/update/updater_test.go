package update

import (
	"context"
	"errors"
	"testing"
	"time"

	"taskbrief/internal/analyze"
	"taskbrief/internal/rank"
	"taskbrief/internal/task"
)

type fakePatcher struct {
	calls  []map[string]any
	failOn string
}

func (f *fakePatcher) UpdateTask(ctx context.Context, listID, taskID string, updates map[string]any) error {
	if taskID == f.failOn {
		return errors.New("boom")
	}
	f.calls = append(f.calls, updates)
	return nil
}

func TestImportanceForScore(t *testing.T) {
	cases := []struct {
		score float64
		want  task.Importance
	}{
		{90, task.ImportanceHigh},
		{75, task.ImportanceHigh},
		{74.9, task.ImportanceNormal},
		{40, task.ImportanceNormal},
		{39.9, task.ImportanceLow},
		{0, task.ImportanceLow},
	}
	for _, c := range cases {
		if got := ImportanceForScore(c.score); got != c.want {
			t.Errorf("ImportanceForScore(%v)=%q, want %q", c.score, got, c.want)
		}
	}
}

func item(id, listID string, score float64) rank.Item {
	return rank.Item{
		Task:  task.Task{ID: id, ListID: listID, Title: "t"},
		Score: score,
	}
}

func TestApplyPatchesImportance(t *testing.T) {
	p := &fakePatcher{}
	u := New(p)

	stats := u.Apply(context.Background(), []rank.Item{item("t1", "l1", 80)}, false)
	if stats.Updated != 1 {
		t.Fatalf("stats=%+v", stats)
	}
	if p.calls[0]["importance"] != "high" {
		t.Fatalf("updates=%v", p.calls[0])
	}
}

func TestApplyDryRunSkips(t *testing.T) {
	p := &fakePatcher{}
	stats := New(p).Apply(context.Background(), []rank.Item{item("t1", "l1", 80)}, true)
	if stats.Skipped != 1 || len(p.calls) != 0 {
		t.Fatalf("stats=%+v calls=%d", stats, len(p.calls))
	}
}

func TestApplyContinuesAfterFailure(t *testing.T) {
	p := &fakePatcher{failOn: "bad"}
	stats := New(p).Apply(context.Background(), []rank.Item{
		item("bad", "l1", 50),
		item("good", "l1", 50),
	}, false)
	if stats.Failed != 1 || stats.Updated != 1 {
		t.Fatalf("stats=%+v", stats)
	}
}

func TestApplySkipsTasksWithoutIDs(t *testing.T) {
	p := &fakePatcher{}
	stats := New(p).Apply(context.Background(), []rank.Item{item("t1", "", 50)}, false)
	if stats.Skipped != 1 {
		t.Fatalf("stats=%+v", stats)
	}
}

func TestScoreInTitleReplacesOldPrefix(t *testing.T) {
	p := &fakePatcher{}
	u := New(p)
	u.ShowScoreInTitle = true

	it := item("t1", "l1", 62.4)
	it.Task.Title = "[58] Review draft"
	u.Apply(context.Background(), []rank.Item{it}, false)

	if got := p.calls[0]["title"]; got != "[62] Review draft" {
		t.Fatalf("title=%q", got)
	}
}

func TestUrgentTaskWithoutDueDateGetsTomorrow(t *testing.T) {
	p := &fakePatcher{}
	u := New(p)
	u.Now = func() time.Time { return time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC) }

	it := item("t1", "l1", 80)
	it.Analysis = analyze.Result{Urgency: analyze.UrgencyCritical}
	u.Apply(context.Background(), []rank.Item{it}, false)

	due, ok := p.calls[0]["dueDateTime"].(map[string]string)
	if !ok {
		t.Fatalf("no dueDateTime in %v", p.calls[0])
	}
	if due["dateTime"] != "2025-06-16T10:00:00" {
		t.Fatalf("dateTime=%q", due["dateTime"])
	}
}

func TestTaskWithDueDateNotTouched(t *testing.T) {
	p := &fakePatcher{}
	it := item("t1", "l1", 80)
	it.Task.DueDate = "2025-07-01"
	it.Analysis = analyze.Result{Urgency: analyze.UrgencyCritical}
	New(p).Apply(context.Background(), []rank.Item{it}, false)

	if _, has := p.calls[0]["dueDateTime"]; has {
		t.Fatalf("dueDateTime should not be set: %v", p.calls[0])
	}
}
