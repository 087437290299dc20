package report

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// 从已保存的简报里反解统计数字
// The analyzer re-parses numbers out of saved daily briefs, so the
// patterns here must track the BriefWriter output.
var (
	totalPattern    = regexp.MustCompile(`\*\*Total Tasks Analyzed:\*\*\s*(\d+)`)
	focusPattern    = regexp.MustCompile(`\*\*Focus Today:\*\*\s*(\d+)`)
	weekPattern     = regexp.MustCompile(`\*\*This Week:\*\*\s*(\d+)`)
	laterPattern    = regexp.MustCompile(`\*\*Later:\*\*\s*(\d+)`)
	scorePattern    = regexp.MustCompile(`\*\*Priority Score:\*\*\s*(\d+\.?\d*)/100`)
	titlePattern    = regexp.MustCompile(`(?m)^###\s+\d+\.\s+(.+)$`)
	categoryPattern = regexp.MustCompile(`\*\*Category:\*\*\s*([a-z_]+)`)
)

// themeKeywords 主题关键词表 / recurring-theme keyword patterns.
var themeKeywords = []struct {
	Theme    string
	Patterns []*regexp.Regexp
}{
	{"AI/Machine Learning", compileAll(`(?i)\bAI\b`, `(?i)\bML\b`, `(?i)machine learning`, `(?i)deep learning`, `(?i)neural`, `(?i)LLM`, `(?i)GPT`)},
	{"Research", compileAll(`(?i)research`, `(?i)paper`, `(?i)study`, `(?i)analysis`, `(?i)findings`, `(?i)publication`)},
	{"Career/Jobs", compileAll(`(?i)application`, `(?i)\bjob\b`, `(?i)position`, `(?i)interview`, `(?i)apply`)},
	{"Regulation/Policy", compileAll(`(?i)regulation`, `(?i)policy`, `(?i)compliance`, `(?i)governance`)},
	{"Startups", compileAll(`(?i)startup`, `(?i)co-founder`, `(?i)entrepreneur`, `(?i)venture`, `(?i)founder`)},
	{"Reading/Media", compileAll(`(?i)\bread\b`, `(?i)article`, `(?i)\bwatch\b`, `(?i)video`, `(?i)webinar`)},
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(p))
	}
	return out
}

// dailyBrief 一天的简报内容 / one day's brief file and its content.
type dailyBrief struct {
	Date    string
	Content string
}

// TaskStats 周任务量统计 / weekly task volume statistics.
type TaskStats struct {
	TotalTasksTracked int
	AvgTasksPerDay    float64
	AvgFocusTasks     float64
	AvgWeeklyTasks    float64
	LaterCount        int
}

// PriorityDistribution 分数分布 / priority score distribution.
type PriorityDistribution struct {
	AvgPriority  float64
	HighCount    int
	MediumCount  int
	LowCount     int
	HighestScore float64
	LowestScore  float64
}

// CompletionInsights 首尾两天对比出的完成趋势
// CompletionInsights compares the first and last brief of the week.
type CompletionInsights struct {
	TasksAtWeekStart   int
	TasksAtWeekEnd     int
	NetTasksAdded      int
	EstimatedCompleted int
	Trend              string
}

// ThemeCount 主题及其出现次数 / a theme and its task count.
type ThemeCount struct {
	Theme string
	Count int
}

// CategoryCount 类别及其任务数 / an analysis category and its task count.
type CategoryCount struct {
	Category string
	Count    int
}

// DayBreakdown 单日统计 / per-day counts for the breakdown table.
type DayBreakdown struct {
	Date       string
	TotalTasks int
	FocusTasks int
	WeekTasks  int
}

// WeekAnalytics 一周的完整分析结果 / the full weekly analysis.
type WeekAnalytics struct {
	WeekStart   string
	WeekEnd     string
	TotalBriefs int
	Stats       TaskStats
	Priority    PriorityDistribution
	Completion  CompletionInsights
	TopThemes   []ThemeCount
	Categories  []CategoryCount
	Daily       []DayBreakdown
}

// TrendsAnalyzer 从每日简报聚合周趋势
// TrendsAnalyzer aggregates weekly trends out of saved daily briefs.
type TrendsAnalyzer struct {
	OutputDir string
	Now       func() time.Time
}

func NewTrendsAnalyzer(outputDir string) *TrendsAnalyzer {
	return &TrendsAnalyzer{OutputDir: outputDir, Now: time.Now}
}

// AnalyzeWeek 分析某一周,weeksBack=0 表示本周
// AnalyzeWeek analyzes one week. weeksBack 0 is the current week, 1
// the previous, and so on. Weeks start on Monday.
func (a *TrendsAnalyzer) AnalyzeWeek(weeksBack int) WeekAnalytics {
	now := time.Now()
	if a.Now != nil {
		now = a.Now()
	}
	// Monday 为一周起点 / Monday-based week start
	offset := (int(now.Weekday()) + 6) % 7
	weekStart := now.AddDate(0, 0, -(offset + weeksBack*7))
	weekEnd := weekStart.AddDate(0, 0, 6)

	briefs := a.briefsInRange(weekStart, weekEnd)
	out := WeekAnalytics{
		WeekStart:   weekStart.Format("2006-01-02"),
		WeekEnd:     weekEnd.Format("2006-01-02"),
		TotalBriefs: len(briefs),
	}
	if len(briefs) == 0 {
		return out
	}

	out.Stats = analyzeStats(briefs)
	out.Priority = analyzePriorities(briefs)
	out.Completion = analyzeCompletion(briefs)
	out.TopThemes = extractThemes(briefs)
	out.Categories = analyzeCategories(briefs)
	out.Daily = dailyBreakdown(briefs)
	return out
}

func (a *TrendsAnalyzer) briefsInRange(start, end time.Time) []dailyBrief {
	w := &BriefWriter{OutputDir: a.OutputDir}
	var briefs []dailyBrief
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		data, err := os.ReadFile(w.BriefPath(day))
		if err != nil {
			continue
		}
		briefs = append(briefs, dailyBrief{
			Date:    day.Format("2006-01-02"),
			Content: string(data),
		})
	}
	return briefs
}

func firstInt(re *regexp.Regexp, content string) (int, bool) {
	m := re.FindStringSubmatch(content)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

func analyzeStats(briefs []dailyBrief) TaskStats {
	var stats TaskStats
	var totalSum, focusSum, weekSum int
	for _, b := range briefs {
		if n, ok := firstInt(totalPattern, b.Content); ok {
			totalSum += n
			if n > stats.TotalTasksTracked {
				stats.TotalTasksTracked = n
			}
		}
		if n, ok := firstInt(focusPattern, b.Content); ok {
			focusSum += n
		}
		if n, ok := firstInt(weekPattern, b.Content); ok {
			weekSum += n
		}
		if n, ok := firstInt(laterPattern, b.Content); ok && n > stats.LaterCount {
			stats.LaterCount = n
		}
	}
	days := float64(len(briefs))
	stats.AvgTasksPerDay = round1(float64(totalSum) / days)
	stats.AvgFocusTasks = round1(float64(focusSum) / days)
	stats.AvgWeeklyTasks = round1(float64(weekSum) / days)
	return stats
}

func analyzePriorities(briefs []dailyBrief) PriorityDistribution {
	var scores []float64
	for _, b := range briefs {
		for _, m := range scorePattern.FindAllStringSubmatch(b.Content, -1) {
			if s, err := strconv.ParseFloat(m[1], 64); err == nil {
				scores = append(scores, s)
			}
		}
	}
	if len(scores) == 0 {
		return PriorityDistribution{}
	}

	dist := PriorityDistribution{HighestScore: scores[0], LowestScore: scores[0]}
	var sum float64
	for _, s := range scores {
		sum += s
		switch {
		case s >= 80:
			dist.HighCount++
		case s >= 60:
			dist.MediumCount++
		default:
			dist.LowCount++
		}
		if s > dist.HighestScore {
			dist.HighestScore = s
		}
		if s < dist.LowestScore {
			dist.LowestScore = s
		}
	}
	dist.AvgPriority = round1(sum / float64(len(scores)))
	return dist
}

func analyzeCompletion(briefs []dailyBrief) CompletionInsights {
	if len(briefs) < 2 {
		return CompletionInsights{Trend: "insufficient_data"}
	}
	first, _ := firstInt(totalPattern, briefs[0].Content)
	last, _ := firstInt(totalPattern, briefs[len(briefs)-1].Content)
	net := last - first

	trend := "stable"
	if net > 0 {
		trend = "increasing"
	} else if net < 0 {
		trend = "decreasing"
	}
	completed := 0
	if net < 0 {
		completed = -net
	}
	return CompletionInsights{
		TasksAtWeekStart:   first,
		TasksAtWeekEnd:     last,
		NetTasksAdded:      net,
		EstimatedCompleted: completed,
		Trend:              trend,
	}
}

// extractThemes 统计标题中的主题词并取前五
// extractThemes counts theme keywords across task titles. Each title
// counts once per theme. Returns the top five.
func extractThemes(briefs []dailyBrief) []ThemeCount {
	counts := make(map[string]int)
	for _, b := range briefs {
		for _, m := range titlePattern.FindAllStringSubmatch(b.Content, -1) {
			title := m[1]
			for _, tk := range themeKeywords {
				for _, re := range tk.Patterns {
					if re.MatchString(title) {
						counts[tk.Theme]++
						break
					}
				}
			}
		}
	}

	themes := make([]ThemeCount, 0, len(counts))
	for theme, count := range counts {
		themes = append(themes, ThemeCount{Theme: theme, Count: count})
	}
	sort.SliceStable(themes, func(i, j int) bool {
		if themes[i].Count != themes[j].Count {
			return themes[i].Count > themes[j].Count
		}
		return themes[i].Theme < themes[j].Theme
	})
	if len(themes) > 5 {
		themes = themes[:5]
	}
	return themes
}

// analyzeCategories 按简报中的类别行计数
// analyzeCategories counts the category label of every task entry across
// the week's briefs, sorted by count.
func analyzeCategories(briefs []dailyBrief) []CategoryCount {
	counts := make(map[string]int)
	for _, b := range briefs {
		for _, m := range categoryPattern.FindAllStringSubmatch(b.Content, -1) {
			counts[m[1]]++
		}
	}

	out := make([]CategoryCount, 0, len(counts))
	for category, count := range counts {
		out = append(out, CategoryCount{Category: category, Count: count})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	return out
}

func dailyBreakdown(briefs []dailyBrief) []DayBreakdown {
	out := make([]DayBreakdown, 0, len(briefs))
	for _, b := range briefs {
		day := DayBreakdown{Date: b.Date}
		day.TotalTasks, _ = firstInt(totalPattern, b.Content)
		day.FocusTasks, _ = firstInt(focusPattern, b.Content)
		day.WeekTasks, _ = firstInt(weekPattern, b.Content)
		out = append(out, day)
	}
	return out
}

// Report 渲染周报 markdown / Report renders the weekly report.
func (a *TrendsAnalyzer) Report(weeksBack int) string {
	analytics := a.AnalyzeWeek(weeksBack)
	now := time.Now()
	if a.Now != nil {
		now = a.Now()
	}

	var b strings.Builder
	b.WriteString("# Weekly Task Analytics Report\n\n")
	fmt.Fprintf(&b, "**Week:** %s to %s\n", analytics.WeekStart, analytics.WeekEnd)
	fmt.Fprintf(&b, "**Generated:** %s\n\n", now.Format("2006-01-02 15:04:05"))
	b.WriteString("---\n\n## Summary\n\n")

	if analytics.TotalBriefs > 0 {
		s := analytics.Stats
		b.WriteString("### Task Volume\n")
		fmt.Fprintf(&b, "- **Total Tasks Tracked:** %d\n", s.TotalTasksTracked)
		fmt.Fprintf(&b, "- **Average Tasks per Day:** %.1f\n", s.AvgTasksPerDay)
		fmt.Fprintf(&b, "- **Average Focus Tasks:** %.1f/day\n", s.AvgFocusTasks)
		fmt.Fprintf(&b, "- **Average Weekly Tasks:** %.1f/day\n", s.AvgWeeklyTasks)
		fmt.Fprintf(&b, "- **Tasks in 'Later' Bucket:** %d\n\n", s.LaterCount)

		c := analytics.Completion
		b.WriteString("### Completion Insights\n")
		fmt.Fprintf(&b, "- **Tasks at Week Start:** %d\n", c.TasksAtWeekStart)
		fmt.Fprintf(&b, "- **Tasks at Week End:** %d\n", c.TasksAtWeekEnd)
		fmt.Fprintf(&b, "- **Net Change:** %+d tasks\n", c.NetTasksAdded)
		fmt.Fprintf(&b, "- **Estimated Completed:** %d tasks\n", c.EstimatedCompleted)
		fmt.Fprintf(&b, "- **Trend:** %s\n\n", titleCase(c.Trend))

		p := analytics.Priority
		b.WriteString("### Priority Distribution\n")
		fmt.Fprintf(&b, "- **Average Priority Score:** %.1f/100\n", p.AvgPriority)
		fmt.Fprintf(&b, "- **High Priority (80+):** %d tasks\n", p.HighCount)
		fmt.Fprintf(&b, "- **Medium Priority (60-79):** %d tasks\n", p.MediumCount)
		fmt.Fprintf(&b, "- **Low Priority (<60):** %d tasks\n\n", p.LowCount)
	}

	if len(analytics.TopThemes) > 0 {
		b.WriteString("## Trending Themes\n\n")
		for i, theme := range analytics.TopThemes {
			fmt.Fprintf(&b, "%d. **%s** - %d tasks\n", i+1, theme.Theme, theme.Count)
		}
		b.WriteString("\n")
	}

	if len(analytics.Categories) > 0 {
		b.WriteString("## Category Breakdown\n\n")
		for _, c := range analytics.Categories {
			fmt.Fprintf(&b, "- **%s:** %d tasks\n", titleCase(c.Category), c.Count)
		}
		b.WriteString("\n")
	}

	if len(analytics.Daily) > 0 {
		b.WriteString("## Daily Breakdown\n\n")
		b.WriteString("| Date | Total Tasks | Focus | This Week |\n")
		b.WriteString("|------|-------------|-------|-----------|\n")
		for _, day := range analytics.Daily {
			fmt.Fprintf(&b, "| %s | %d | %d | %d |\n", day.Date, day.TotalTasks, day.FocusTasks, day.WeekTasks)
		}
		b.WriteString("\n")
	}

	b.WriteString("---\n\n## Key Insights\n\n")
	for _, insight := range insights(analytics) {
		fmt.Fprintf(&b, "- %s\n", insight)
	}
	b.WriteString("\n*Generated by taskbrief - Weekly Analytics*\n")
	return b.String()
}

// WriteReport 保存周报并返回路径 / WriteReport saves the weekly report.
func (a *TrendsAnalyzer) WriteReport(weeksBack int) (string, error) {
	now := time.Now()
	if a.Now != nil {
		now = a.Now()
	}
	content := a.Report(weeksBack)
	if err := os.MkdirAll(a.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := fmt.Sprintf("%s/weekly_report_%s.md", a.OutputDir, now.Format("2006-01-02"))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write weekly report: %w", err)
	}
	return path, nil
}

func insights(a WeekAnalytics) []string {
	var out []string

	if a.Stats.LaterCount > 0 && a.Stats.TotalTasksTracked > 0 {
		pct := float64(a.Stats.LaterCount) / float64(a.Stats.TotalTasksTracked) * 100
		if pct > 80 {
			out = append(out, fmt.Sprintf("**Backlog heavy:** %.0f%% of tasks are in 'Later', consider archiving low-value items", pct))
		}
	}
	if a.Completion.NetTasksAdded > 5 {
		out = append(out, fmt.Sprintf("**High intake week:** added %d net tasks this week", a.Completion.NetTasksAdded))
	} else if a.Completion.NetTasksAdded < -5 {
		out = append(out, fmt.Sprintf("**Progress week:** cleared %d net tasks from the backlog", -a.Completion.NetTasksAdded))
	}
	if len(a.TopThemes) > 0 {
		out = append(out, fmt.Sprintf("**Top focus area:** %s is trending (%d tasks this week)", a.TopThemes[0].Theme, a.TopThemes[0].Count))
	}
	if a.TotalBriefs > 0 {
		if a.Priority.HighCount == 0 {
			out = append(out, "**No urgent items:** no high-priority (80+) tasks, good time for deep work")
		} else if a.Priority.HighCount > 10 {
			out = append(out, fmt.Sprintf("**High urgency load:** %d high-priority tasks, consider time-blocking", a.Priority.HighCount))
		}
		if a.Stats.AvgFocusTasks < 1 {
			out = append(out, "**Low daily focus:** most tasks sit below the focus threshold")
		}
	}
	if len(out) == 0 {
		out = append(out, "No notable patterns this week")
	}
	return out
}

func round1(f float64) float64 {
	return float64(int(f*10+0.5)) / 10
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
