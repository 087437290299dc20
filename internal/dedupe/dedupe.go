// Package dedupe finds tasks that share a URL and removes the older copies.
package dedupe

import (
	"context"
	"log"
	"sort"

	"taskbrief/internal/task"
	"taskbrief/internal/urlnorm"
)

// Deleter 删除任务的最小接口，由任务源适配器实现。
// Deleter is the minimal surface needed to remove a task from its source list.
type Deleter interface {
	DeleteTask(ctx context.Context, listID, taskID string) error
}

// Group 共享同一规范化 URL 的一组任务 / Group is a set of tasks sharing one
// canonical URL. Order is the encounter order of the input slice.
type Group struct {
	URL   string
	Tasks []task.Task
}

// Stats aggregates the outcome of a purge pass.
type Stats struct {
	Deleted int `json:"deleted"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// FindDuplicates 按规范化 URL 分组，仅保留大小 >=2 的组。
// FindDuplicates groups tasks by canonical URL and keeps only groups of two or
// more. A task with several URLs participates in each matching group
// independently. Group order follows first encounter of each URL.
func FindDuplicates(tasks []task.Task) []Group {
	byURL := map[string]*Group{}
	var order []string

	for _, t := range tasks {
		for _, raw := range t.URLs {
			u := urlnorm.Normalize(raw)
			g, ok := byURL[u]
			if !ok {
				g = &Group{URL: u}
				byURL[u] = g
				order = append(order, u)
			}
			g.Tasks = append(g.Tasks, t)
		}
	}

	var out []Group
	for _, u := range order {
		if g := byURL[u]; len(g.Tasks) >= 2 {
			out = append(out, *g)
		}
	}
	return out
}

// Resolve 选出保留者（created_at 最新）；时间缺失或不可解析视为最旧。
// Resolve picks the keeper (newest created_at) and the removable remainder.
// Missing or unparseable created_at sorts last (treated as oldest); equal
// timestamps keep encounter order, so the first-seen task wins among ties.
func Resolve(group Group) (keeper task.Task, removable []task.Task) {
	sorted := append([]task.Task(nil), group.Tasks...)
	sort.SliceStable(sorted, func(i, j int) bool {
		ti, iok := task.ParseWhen(sorted[i].CreatedAt)
		tj, jok := task.ParseWhen(sorted[j].CreatedAt)
		if iok != jok {
			return iok
		}
		if !iok {
			return false
		}
		return ti.After(tj)
	})
	return sorted[0], sorted[1:]
}

// Purge 删除每组中除保留者以外的任务；单条删除失败不阻断其余处理。
// Purge deletes the removable tasks of every group. dryRun reports the
// would-be outcome without deleting. A single failed deletion is counted and
// logged but never blocks the remaining groups.
func Purge(ctx context.Context, deleter Deleter, groups []Group, dryRun bool) Stats {
	var stats Stats
	for _, g := range groups {
		keeper, removable := Resolve(g)
		log.Printf("duplicate url %s: keeping %q (%s), %d removable",
			truncate(g.URL, 60), truncate(keeper.Title, 50), keeper.CreatedAt, len(removable))

		for _, t := range removable {
			if dryRun {
				stats.Skipped++
				continue
			}
			if err := deleter.DeleteTask(ctx, t.ListID, t.ID); err != nil {
				stats.Failed++
				log.Printf("delete duplicate %s (%q): %v", t.ID, truncate(t.Title, 50), err)
				continue
			}
			stats.Deleted++
		}
	}
	return stats
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
