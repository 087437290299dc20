package report

import (
	"net/smtp"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"taskbrief/internal/analyze"
	"taskbrief/internal/rank"
	"taskbrief/internal/task"
)

var briefNow = time.Date(2025, 6, 18, 9, 0, 0, 0, time.UTC) // a Wednesday

func sampleRanked() []rank.Item {
	return []rank.Item{
		{
			Task:      task.Task{Title: "Apply for research position", DueDate: "2025-06-18", ListName: "Career"},
			Analysis:  analyze.Result{Summary: "Submit the application.", Category: analyze.CategoryApply, Urgency: analyze.UrgencyHigh, EstimatedTimeMinutes: 60, SuggestedAction: "Fill the form"},
			Score:     88.5,
			Timeframe: rank.TimeframeToday,
		},
		{
			Task:      task.Task{Title: "Read ML paper"},
			Analysis:  analyze.Result{Category: analyze.CategoryReading, Urgency: analyze.UrgencyLow},
			Score:     45.2,
			Timeframe: rank.TimeframeLater,
		},
		{
			Task:      task.Task{Title: "Review policy draft"},
			Analysis:  analyze.Result{Category: analyze.CategoryReview, Urgency: analyze.UrgencyMedium},
			Score:     65.0,
			Timeframe: rank.TimeframeThisWeek,
		},
	}
}

func TestBriefRenderHasParseableCounts(t *testing.T) {
	w := NewBriefWriter(t.TempDir())
	content := w.Render(sampleRanked(), briefNow)

	for _, want := range []string{
		"**Total Tasks Analyzed:** 3",
		"**Focus Today:** 1",
		"**This Week:** 1",
		"**Later:** 1",
		"### 1. Apply for research position",
		"**Priority Score:** 88.5/100",
		"**List:** Career",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("brief missing %q", want)
		}
	}
}

func TestBriefWriteCreatesDatedFile(t *testing.T) {
	dir := t.TempDir()
	w := NewBriefWriter(dir)
	w.Now = func() time.Time { return briefNow }

	path, err := w.Write(sampleRanked())
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if filepath.Base(path) != "daily_brief_2025-06-18.md" {
		t.Fatalf("path=%q", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("brief file missing: %v", err)
	}
}

// writeBriefFor 生成指定日期的简报文件 / helper to seed a brief file.
func writeBriefFor(t *testing.T, dir string, day time.Time, ranked []rank.Item) {
	t.Helper()
	w := NewBriefWriter(dir)
	w.Now = func() time.Time { return day }
	if _, err := w.Write(ranked); err != nil {
		t.Fatalf("seed brief for %s: %v", day.Format("2006-01-02"), err)
	}
}

func TestTrendsRoundTripFromBriefs(t *testing.T) {
	dir := t.TempDir()
	monday := time.Date(2025, 6, 16, 8, 0, 0, 0, time.UTC)

	writeBriefFor(t, dir, monday, sampleRanked())
	writeBriefFor(t, dir, monday.AddDate(0, 0, 2), sampleRanked()[:2])

	a := NewTrendsAnalyzer(dir)
	a.Now = func() time.Time { return monday.AddDate(0, 0, 4) } // Friday same week

	got := a.AnalyzeWeek(0)
	if got.TotalBriefs != 2 {
		t.Fatalf("TotalBriefs=%d", got.TotalBriefs)
	}
	if got.WeekStart != "2025-06-16" || got.WeekEnd != "2025-06-22" {
		t.Fatalf("week range %s..%s", got.WeekStart, got.WeekEnd)
	}
	if got.Stats.TotalTasksTracked != 3 {
		t.Fatalf("TotalTasksTracked=%d", got.Stats.TotalTasksTracked)
	}
	// 3 tasks on Monday, 2 on Wednesday
	if got.Completion.NetTasksAdded != -1 || got.Completion.Trend != "decreasing" {
		t.Fatalf("completion=%+v", got.Completion)
	}
	if got.Priority.HighCount != 2 {
		t.Fatalf("HighCount=%d, want 2 (88.5 twice)", got.Priority.HighCount)
	}
	// apply 和 reading 各出现两次 / apply and reading appear in both briefs
	want := []CategoryCount{{"apply", 2}, {"reading", 2}, {"review", 1}}
	if !reflect.DeepEqual(got.Categories, want) {
		t.Fatalf("Categories=%v, want %v", got.Categories, want)
	}
}

func TestTrendsFindsThemes(t *testing.T) {
	dir := t.TempDir()
	monday := time.Date(2025, 6, 16, 8, 0, 0, 0, time.UTC)
	writeBriefFor(t, dir, monday, sampleRanked())

	a := NewTrendsAnalyzer(dir)
	a.Now = func() time.Time { return monday }

	got := a.AnalyzeWeek(0)
	if len(got.TopThemes) == 0 {
		t.Fatal("expected at least one theme from sample titles")
	}
	found := false
	for _, theme := range got.TopThemes {
		if theme.Theme == "Career/Jobs" {
			found = true
		}
	}
	if !found {
		t.Fatalf("themes=%v, want Career/Jobs", got.TopThemes)
	}
}

func TestTrendsEmptyWeek(t *testing.T) {
	a := NewTrendsAnalyzer(t.TempDir())
	a.Now = func() time.Time { return briefNow }
	got := a.AnalyzeWeek(0)
	if got.TotalBriefs != 0 {
		t.Fatalf("TotalBriefs=%d", got.TotalBriefs)
	}
	// report must still render without panicking
	if !strings.Contains(a.Report(0), "Weekly Task Analytics Report") {
		t.Fatal("report header missing")
	}
}

func TestWeeklyReportRenders(t *testing.T) {
	dir := t.TempDir()
	monday := time.Date(2025, 6, 16, 8, 0, 0, 0, time.UTC)
	writeBriefFor(t, dir, monday, sampleRanked())
	writeBriefFor(t, dir, monday.AddDate(0, 0, 1), sampleRanked())

	a := NewTrendsAnalyzer(dir)
	a.Now = func() time.Time { return monday.AddDate(0, 0, 3) }

	path, err := a.WriteReport(0)
	if err != nil {
		t.Fatalf("WriteReport: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	report := string(data)
	for _, want := range []string{"### Task Volume", "### Priority Distribution", "## Category Breakdown", "- **Apply:** 2 tasks", "## Daily Breakdown", "| 2025-06-16 |", "## Key Insights"} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestMailerSendsBriefWithTopTasks(t *testing.T) {
	dir := t.TempDir()
	w := NewBriefWriter(dir)
	w.Now = func() time.Time { return briefNow }
	path, err := w.Write(sampleRanked())
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	var gotAddr string
	var gotTo []string
	var gotMsg []byte
	m := NewMailer("smtp.example.com", 587, "me@example.com", "you@example.com", "secret")
	m.Now = func() time.Time { return briefNow }
	m.send = func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, msg
		return nil
	}

	if err := m.SendDailyBrief(path, sampleRanked()); err != nil {
		t.Fatalf("SendDailyBrief: %v", err)
	}
	if gotAddr != "smtp.example.com:587" {
		t.Fatalf("addr=%q", gotAddr)
	}
	if len(gotTo) != 1 || gotTo[0] != "you@example.com" {
		t.Fatalf("to=%v", gotTo)
	}
	body := string(gotMsg)
	for _, want := range []string{"Subject: Your Daily Task Brief - June 18, 2025", "TOP PRIORITIES", "[88.5] Apply for research position", "**Total Tasks Analyzed:** 3"} {
		if !strings.Contains(body, want) {
			t.Errorf("mail missing %q", want)
		}
	}
}

func TestMailerMissingBriefFile(t *testing.T) {
	m := NewMailer("smtp.example.com", 587, "a@b.c", "d@e.f", "p")
	m.send = func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error { return nil }
	if err := m.SendDailyBrief(filepath.Join(t.TempDir(), "nope.md"), nil); err == nil {
		t.Fatal("expected error for missing brief")
	}
}
