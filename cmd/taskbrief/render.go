package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"taskbrief/internal/dedupe"
	"taskbrief/internal/orchestrator"
	"taskbrief/internal/rank"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	scoreStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	urgentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
)

func time2h(hours int) time.Duration {
	return time.Duration(hours) * time.Hour
}

// printRunSummary 终端输出前五任务和统计
// printRunSummary prints the top tasks and run counters.
func printRunSummary(ranked []rank.Item, stats orchestrator.RunStats) {
	fmt.Println()
	fmt.Println(headerStyle.Render("TOP PRIORITIES"))
	for i, it := range ranked {
		if i >= 5 {
			break
		}
		score := scoreStyle.Render(fmt.Sprintf("[%.1f]", it.Score))
		line := fmt.Sprintf("%d. %s %s", i+1, score, it.Task.Title)
		if it.Timeframe == rank.TimeframeToday {
			line += " " + urgentStyle.Render("(today)")
		}
		fmt.Println(line)
	}

	fmt.Println()
	fmt.Println(mutedStyle.Render(fmt.Sprintf(
		"tasks=%d analyzed=%d cached=%d fallbacks=%d evicted=%d",
		stats.TasksFetched, stats.Analyzed, stats.CacheHits, stats.Fallbacks, stats.CacheEvicted)))
	if stats.BriefPath != "" {
		fmt.Printf("\nFull brief: %s\n", stats.BriefPath)
	}
}

// printDuplicates 列出重复任务组 / printDuplicates lists duplicate groups.
func printDuplicates(groups []dedupe.Group) {
	fmt.Println(headerStyle.Render(fmt.Sprintf("Found %d duplicate groups", len(groups))))
	for _, g := range groups {
		fmt.Printf("\n%s\n", mutedStyle.Render(g.URL))
		keeper, removable := dedupe.Resolve(g)
		fmt.Printf("  keep:   %s\n", keeper.Title)
		for _, t := range removable {
			fmt.Printf("  delete: %s (%s)\n", t.Title, t.ListName)
		}
	}
}

// showLatestBrief 用 Glamour 渲染最近一份简报
// showLatestBrief renders the newest daily brief with Glamour.
func showLatestBrief(outputDir string) error {
	matches, err := filepath.Glob(filepath.Join(outputDir, "daily_brief_*.md"))
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return fmt.Errorf("no daily briefs in %s; run `taskbrief run` first", outputDir)
	}
	sort.Strings(matches)
	latest := matches[len(matches)-1]

	data, err := os.ReadFile(latest)
	if err != nil {
		return fmt.Errorf("read brief: %w", err)
	}

	fmt.Println(renderMarkdown(string(data), 100))
	return nil
}

// renderMarkdown 渲染失败时退回原文 / falls back to the raw text.
func renderMarkdown(content string, width int) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content
	}
	rendered, err := r.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(rendered, "\n")
}
