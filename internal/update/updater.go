// Package update 将分析结果回写到任务源
// Package update writes analysis outcomes back to the task source:
// importance derived from the composite score, and an optional due
// date for urgent tasks that have none.
package update

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"time"

	"taskbrief/internal/analyze"
	"taskbrief/internal/rank"
	"taskbrief/internal/task"
)

// Patcher 任务更新接口 / Patcher applies field updates to a task.
type Patcher interface {
	UpdateTask(ctx context.Context, listID, taskID string, updates map[string]any) error
}

// Stats 批量更新统计 / Stats counts the outcome of a batch update.
type Stats struct {
	Updated int
	Failed  int
	Skipped int
}

func (s Stats) String() string {
	return fmt.Sprintf("updated=%d failed=%d skipped=%d", s.Updated, s.Failed, s.Skipped)
}

// Updater 按评分回写任务字段
// Updater maps scores onto task fields and applies them.
type Updater struct {
	Patcher Patcher
	// ShowScoreInTitle 在标题前加 [分数] / prefix titles with the score
	ShowScoreInTitle bool
	Now              func() time.Time
}

func New(p Patcher) *Updater {
	return &Updater{Patcher: p, Now: time.Now}
}

// ImportanceForScore 综合分映射到重要度
// ImportanceForScore maps a composite score to the importance field.
func ImportanceForScore(score float64) task.Importance {
	switch {
	case score >= 75:
		return task.ImportanceHigh
	case score >= 40:
		return task.ImportanceNormal
	default:
		return task.ImportanceLow
	}
}

var scorePrefix = regexp.MustCompile(`^\[[\d.]+\]\s*`)

// updatesFor 计算单个任务需要回写的字段
// updatesFor builds the field patch for one ranked item.
func (u *Updater) updatesFor(it rank.Item) map[string]any {
	updates := map[string]any{
		"importance": string(ImportanceForScore(it.Score)),
	}

	if u.ShowScoreInTitle {
		clean := scorePrefix.ReplaceAllString(it.Task.Title, "")
		updates["title"] = fmt.Sprintf("[%.0f] %s", it.Score, clean)
	}

	// 紧急且无截止日期的任务补上明天 / urgent tasks without a due date
	// get one set to tomorrow
	if it.Task.DueDate == "" &&
		(it.Analysis.Urgency == analyze.UrgencyCritical || it.Analysis.Urgency == analyze.UrgencyHigh) {
		now := time.Now()
		if u.Now != nil {
			now = u.Now()
		}
		updates["dueDateTime"] = map[string]string{
			"dateTime": now.AddDate(0, 0, 1).Format("2006-01-02T15:04:05"),
			"timeZone": "UTC",
		}
	}
	return updates
}

// Apply 批量回写,失败的任务记录日志后继续
// Apply patches every ranked item. Dry runs count items as skipped;
// failures are logged and counted without stopping the batch.
func (u *Updater) Apply(ctx context.Context, ranked []rank.Item, dryRun bool) Stats {
	var stats Stats
	for _, it := range ranked {
		if it.Task.ListID == "" || it.Task.ID == "" {
			log.Printf("update: skip task %q without list or task id", truncate(it.Task.Title, 50))
			stats.Skipped++
			continue
		}
		updates := u.updatesFor(it)
		if dryRun {
			log.Printf("update: dry run, would set %v on task %s", updates, it.Task.ID)
			stats.Skipped++
			continue
		}
		if err := u.Patcher.UpdateTask(ctx, it.Task.ListID, it.Task.ID, updates); err != nil {
			log.Printf("update: task %s: %v", it.Task.ID, err)
			stats.Failed++
			continue
		}
		stats.Updated++
	}
	return stats
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
