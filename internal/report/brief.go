// Package report 生成每日简报、周报与邮件通知
// Package report renders the daily brief, the weekly analytics report,
// and the email notifications built from them.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"taskbrief/internal/rank"
)

// BriefWriter 将分桶后的任务写成 markdown 简报
// BriefWriter renders categorized tasks into the daily markdown brief.
// The field labels below are load-bearing: the weekly analyzer parses
// them back out of saved briefs.
type BriefWriter struct {
	OutputDir string
	Now       func() time.Time
}

func NewBriefWriter(outputDir string) *BriefWriter {
	return &BriefWriter{OutputDir: outputDir, Now: time.Now}
}

// BriefPath 某一天的简报文件路径 / BriefPath is the file for one day.
func (w *BriefWriter) BriefPath(day time.Time) string {
	return filepath.Join(w.OutputDir, fmt.Sprintf("daily_brief_%s.md", day.Format("2006-01-02")))
}

// Write 渲染并保存当日简报,返回文件路径
// Write renders today's brief and saves it, returning the path.
func (w *BriefWriter) Write(ranked []rank.Item) (string, error) {
	now := time.Now()
	if w.Now != nil {
		now = w.Now()
	}
	content := w.Render(ranked, now)

	if err := os.MkdirAll(w.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := w.BriefPath(now)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write brief: %w", err)
	}
	return path, nil
}

// Render 生成简报 markdown / Render produces the brief markdown.
func (w *BriefWriter) Render(ranked []rank.Item, now time.Time) string {
	buckets := rank.ByTimeframe(ranked)

	var b strings.Builder
	fmt.Fprintf(&b, "# Daily Task Brief - %s\n\n", now.Format("2006-01-02"))
	fmt.Fprintf(&b, "**Generated:** %s\n\n", now.Format("2006-01-02 15:04:05"))
	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "**Total Tasks Analyzed:** %d\n", len(ranked))
	fmt.Fprintf(&b, "**Focus Today:** %d\n", len(buckets[rank.TimeframeToday]))
	fmt.Fprintf(&b, "**This Week:** %d\n", len(buckets[rank.TimeframeThisWeek]))
	fmt.Fprintf(&b, "**Waiting:** %d\n", len(buckets[rank.TimeframeWaiting]))
	fmt.Fprintf(&b, "**Later:** %d\n\n", len(buckets[rank.TimeframeLater]))
	b.WriteString("---\n\n")

	sections := []struct {
		title string
		tf    rank.Timeframe
	}{
		{"Focus Today", rank.TimeframeToday},
		{"This Week", rank.TimeframeThisWeek},
		{"Waiting On", rank.TimeframeWaiting},
		{"Later", rank.TimeframeLater},
	}
	for _, sec := range sections {
		items := buckets[sec.tf]
		if len(items) == 0 {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n", sec.title)
		for i, it := range items {
			writeTask(&b, i+1, it)
		}
	}

	b.WriteString("---\n\n")
	b.WriteString("*Generated by taskbrief*\n")
	return b.String()
}

func writeTask(b *strings.Builder, n int, it rank.Item) {
	fmt.Fprintf(b, "### %d. %s\n\n", n, it.Task.Title)
	fmt.Fprintf(b, "**Priority Score:** %.1f/100\n", it.Score)
	if it.Analysis.Category != "" {
		fmt.Fprintf(b, "**Category:** %s", it.Analysis.Category)
		if it.Analysis.Urgency != "" {
			fmt.Fprintf(b, " (%s urgency)", it.Analysis.Urgency)
		}
		b.WriteString("\n")
	}
	if it.Task.DueDate != "" {
		fmt.Fprintf(b, "**Due:** %s\n", it.Task.DueDate)
	}
	if it.Analysis.EstimatedTimeMinutes > 0 {
		fmt.Fprintf(b, "**Estimated Time:** %d min\n", it.Analysis.EstimatedTimeMinutes)
	}
	if it.Task.ListName != "" {
		fmt.Fprintf(b, "**List:** %s\n", it.Task.ListName)
	}
	if it.Analysis.Summary != "" {
		fmt.Fprintf(b, "\n%s\n", it.Analysis.Summary)
	}
	if it.Analysis.SuggestedAction != "" {
		fmt.Fprintf(b, "\n**Next step:** %s\n", it.Analysis.SuggestedAction)
	}
	if it.Analysis.WhyItMatters != "" {
		fmt.Fprintf(b, "\n**Why it matters:** %s\n", it.Analysis.WhyItMatters)
	}
	b.WriteString("\n")
}
