package rank

import (
	"testing"
	"time"

	"taskbrief/internal/analyze"
	"taskbrief/internal/task"
)

var testNow = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func testScorer() *Scorer {
	s := NewScorer(DefaultWeights())
	s.Now = func() time.Time { return testNow }
	return s
}

func TestDeadlineScoreTiers(t *testing.T) {
	cases := []struct {
		due  string
		want float64
	}{
		{"", 20},
		{"not a date", 20},
		{"2025-06-10", 100}, // overdue
		{"2025-06-15", 90},  // today
		{"2025-06-17", 80},  // within 3 days
		{"2025-06-21", 70},  // within 7 days
		{"2025-06-28", 50},  // within 14 days
		{"2025-07-10", 35},  // within 30 days
		{"2025-12-01", 20},  // far out
	}
	for _, c := range cases {
		if got := deadlineScore(c.due, testNow); got != c.want {
			t.Errorf("deadlineScore(%q)=%v, want %v", c.due, got, c.want)
		}
	}
}

func TestRecencyScoreTiers(t *testing.T) {
	cases := []struct {
		created string
		want    float64
	}{
		{"", 50},
		{"2025-06-15T09:00:00Z", 100},
		{"2025-06-13", 80},
		{"2025-06-09", 60},
		{"2025-05-20", 40},
		{"2024-01-01", 20},
	}
	for _, c := range cases {
		if got := recencyScore(c.created, testNow); got != c.want {
			t.Errorf("recencyScore(%q)=%v, want %v", c.created, got, c.want)
		}
	}
}

func TestImportanceScore(t *testing.T) {
	if got := importanceScore(task.ImportanceHigh); got != 100 {
		t.Fatalf("high=%v", got)
	}
	if got := importanceScore(task.ImportanceLow); got != 25 {
		t.Fatalf("low=%v", got)
	}
	if got := importanceScore(task.Importance("weird")); got != 50 {
		t.Fatalf("unknown=%v, want 50", got)
	}
}

func TestCategoryScoreCapped(t *testing.T) {
	// urgent base 95 * critical 1.2 would be 114
	if got := categoryScore(analyze.CategoryUrgent, analyze.UrgencyCritical); got != 100 {
		t.Fatalf("urgent/critical=%v, want capped 100", got)
	}
	if got := categoryScore(analyze.CategoryReading, analyze.UrgencyLow); got != 32 {
		t.Fatalf("reading/low=%v, want 32", got)
	}
	if got := categoryScore(analyze.Category("made-up"), analyze.UrgencyMedium); got != 50 {
		t.Fatalf("unknown category=%v, want other base 50", got)
	}
}

func TestScoreWeightedComposite(t *testing.T) {
	s := testScorer()
	tk := task.Task{
		Title:      "apply for visa",
		DueDate:    "2025-06-15",
		CreatedAt:  "2025-06-15T08:00:00Z",
		Importance: task.ImportanceHigh,
	}
	a := analyze.Result{PriorityScore: 90, Category: analyze.CategoryApply, Urgency: analyze.UrgencyHigh}

	score, f := s.Score(tk, a)
	// 90*0.40 + 90*0.25 + 100*0.15 + 100*0.10 + 93.5*0.10 = 92.85
	if score != 92.85 {
		t.Fatalf("score=%v, want 92.85 (factors %+v)", score, f)
	}
}

func TestScoreNormalizesWeights(t *testing.T) {
	s := testScorer()
	// doubled weights must produce the same score
	s.Weights = Weights{AIPriority: 0.80, DeadlineUrgency: 0.50, Recency: 0.30, Importance: 0.20, Category: 0.20}
	tk := task.Task{DueDate: "2025-06-15", CreatedAt: "2025-06-15", Importance: task.ImportanceHigh}
	a := analyze.Result{PriorityScore: 90, Category: analyze.CategoryApply, Urgency: analyze.UrgencyHigh}
	score, _ := s.Score(tk, a)
	if score != 92.85 {
		t.Fatalf("score=%v, want normalized 92.85", score)
	}
}

func TestRankSortsDescendingStable(t *testing.T) {
	s := testScorer()
	low := Item{Task: task.Task{ID: "low"}, Analysis: analyze.Result{PriorityScore: 10, Category: analyze.CategoryRoutine, Urgency: analyze.UrgencyLow}}
	high := Item{Task: task.Task{ID: "high"}, Analysis: analyze.Result{PriorityScore: 95, Category: analyze.CategoryUrgent, Urgency: analyze.UrgencyCritical}}
	twinA := Item{Task: task.Task{ID: "twinA"}, Analysis: analyze.Result{PriorityScore: 50, Category: analyze.CategoryOther, Urgency: analyze.UrgencyMedium}}
	twinB := Item{Task: task.Task{ID: "twinB"}, Analysis: analyze.Result{PriorityScore: 50, Category: analyze.CategoryOther, Urgency: analyze.UrgencyMedium}}

	ranked := s.Rank([]Item{low, twinA, high, twinB})
	gotOrder := []string{ranked[0].Task.ID, ranked[1].Task.ID, ranked[2].Task.ID, ranked[3].Task.ID}
	want := []string{"high", "twinA", "twinB", "low"}
	for i := range want {
		if gotOrder[i] != want[i] {
			t.Fatalf("order=%v, want %v", gotOrder, want)
		}
	}
}

func TestCategorizeBuckets(t *testing.T) {
	s := testScorer()

	cases := []struct {
		name string
		item Item
		want Timeframe
	}{
		{
			name: "high score lands today",
			item: Item{Task: task.Task{DueDate: "2025-06-16", Importance: task.ImportanceHigh, CreatedAt: "2025-06-15"},
				Analysis: analyze.Result{PriorityScore: 95, Category: analyze.CategoryUrgent, Urgency: analyze.UrgencyCritical}},
			want: TimeframeToday,
		},
		{
			name: "due today lands today regardless of score",
			item: Item{Task: task.Task{DueDate: "2025-06-15", Importance: task.ImportanceLow, CreatedAt: "2024-01-01"},
				Analysis: analyze.Result{PriorityScore: 5, Category: analyze.CategoryRoutine, Urgency: analyze.UrgencyLow}},
			want: TimeframeToday,
		},
		{
			name: "due within week lands this_week",
			item: Item{Task: task.Task{DueDate: "2025-06-20", Importance: task.ImportanceLow, CreatedAt: "2024-01-01"},
				Analysis: analyze.Result{PriorityScore: 5, Category: analyze.CategoryRoutine, Urgency: analyze.UrgencyLow}},
			want: TimeframeThisWeek,
		},
		{
			name: "waiting tag lands waiting",
			item: Item{Task: task.Task{Importance: task.ImportanceLow, CreatedAt: "2024-01-01"},
				Analysis: analyze.Result{PriorityScore: 5, Category: analyze.CategoryRoutine, Urgency: analyze.UrgencyLow, Tags: []string{"waiting"}}},
			want: TimeframeWaiting,
		},
		{
			name: "overdue low score falls through to later",
			item: Item{Task: task.Task{DueDate: "2025-05-01", Importance: task.ImportanceLow, CreatedAt: "2024-01-01"},
				Analysis: analyze.Result{PriorityScore: 5, Category: analyze.CategoryRoutine, Urgency: analyze.UrgencyLow}},
			want: TimeframeLater,
		},
		{
			name: "everything else lands later",
			item: Item{Task: task.Task{Importance: task.ImportanceLow, CreatedAt: "2024-01-01"},
				Analysis: analyze.Result{PriorityScore: 5, Category: analyze.CategoryRoutine, Urgency: analyze.UrgencyLow}},
			want: TimeframeLater,
		},
	}
	for _, c := range cases {
		ranked := s.Rank([]Item{c.item})
		if got := ranked[0].Timeframe; got != c.want {
			t.Errorf("%s: timeframe=%q score=%v, want %q", c.name, got, ranked[0].Score, c.want)
		}
	}
}

func TestByTimeframePreservesRankOrder(t *testing.T) {
	s := testScorer()
	a := Item{Task: task.Task{ID: "a", Importance: task.ImportanceLow, CreatedAt: "2024-01-01"},
		Analysis: analyze.Result{PriorityScore: 30, Category: analyze.CategoryRoutine, Urgency: analyze.UrgencyLow}}
	b := Item{Task: task.Task{ID: "b", Importance: task.ImportanceLow, CreatedAt: "2024-01-01"},
		Analysis: analyze.Result{PriorityScore: 40, Category: analyze.CategoryRoutine, Urgency: analyze.UrgencyLow}}

	buckets := ByTimeframe(s.Rank([]Item{a, b}))
	later := buckets[TimeframeLater]
	if len(later) != 2 || later[0].Task.ID != "b" {
		t.Fatalf("later bucket=%v", later)
	}
}
