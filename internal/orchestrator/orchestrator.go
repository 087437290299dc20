// Package orchestrator 串联完整的任务分析流水线
// Package orchestrator runs the full pipeline: fetch tasks, resolve
// duplicates, enrich with linked page content, analyze, score, bucket,
// and write the daily brief plus the optional side effects.
package orchestrator

import (
	"context"
	"fmt"
	"log"

	"taskbrief/internal/analyze"
	"taskbrief/internal/cache"
	"taskbrief/internal/dedupe"
	"taskbrief/internal/fetch"
	"taskbrief/internal/rank"
	"taskbrief/internal/task"
	"taskbrief/internal/update"
)

// TaskSource 任务来源 / TaskSource lists and deletes tasks.
type TaskSource interface {
	AllTasks(ctx context.Context, includeCompleted bool) ([]task.Task, error)
	DeleteTask(ctx context.Context, listID, taskID string) error
}

// Cache 分析结果缓存 / Cache stores analysis results between runs.
type Cache interface {
	Get(taskID, title string, urls []string) (analyze.Result, bool)
	Set(taskID, title string, urls []string, result analyze.Result) error
	Cleanup(activeIDs []string) (int, error)
	Stats() cache.Stats
}

// ContentExtractor 链接内容提取 / ContentExtractor fetches linked pages.
type ContentExtractor interface {
	ExtractAll(ctx context.Context, urls []string) []fetch.Page
}

// BriefSink 简报输出 / BriefSink persists the rendered brief.
type BriefSink interface {
	Write(ranked []rank.Item) (string, error)
}

// TaskWriter 回写任务 / TaskWriter applies updates to the task source.
type TaskWriter interface {
	Apply(ctx context.Context, ranked []rank.Item, dryRun bool) update.Stats
}

// Options 控制可选阶段 / Options toggles the optional stages.
type Options struct {
	ResolveDuplicates bool
	DryRun            bool
	UpdateTasks       bool
}

// Pipeline 流水线及其协作者 / Pipeline wires the collaborators together.
type Pipeline struct {
	Source    TaskSource
	Extractor ContentExtractor
	Analyzer  analyze.Analyzer
	Cache     Cache // nil disables caching
	Scorer    *rank.Scorer
	Brief     BriefSink
	Writer    TaskWriter // nil disables write-back
}

// RunStats 单次运行的统计 / RunStats summarizes one pipeline run.
type RunStats struct {
	TasksFetched     int
	DuplicatesFound  int
	DuplicatesPurged int
	Analyzed         int
	CacheHits        int
	Fallbacks        int
	CacheEvicted     int
	BriefPath        string
	Updated          int
	UpdateFailed     int
}

// Run 执行一次完整流水线
// Run executes the pipeline once and returns the ranked items plus
// run statistics. Analysis failures degrade to fallback results; only
// source and output errors abort the run.
func (p *Pipeline) Run(ctx context.Context, opts Options) ([]rank.Item, RunStats, error) {
	var stats RunStats

	tasks, err := p.Source.AllTasks(ctx, false)
	if err != nil {
		return nil, stats, fmt.Errorf("fetch tasks: %w", err)
	}
	stats.TasksFetched = len(tasks)
	log.Printf("orchestrator: fetched %d tasks", len(tasks))

	if len(tasks) == 0 {
		return nil, stats, nil
	}

	if opts.ResolveDuplicates {
		tasks, err = p.resolveDuplicates(ctx, tasks, opts.DryRun, &stats)
		if err != nil {
			return nil, stats, err
		}
	}

	items := p.analyzeAll(ctx, tasks, &stats)

	if p.Cache != nil {
		active := make([]string, 0, len(tasks))
		for _, t := range tasks {
			active = append(active, t.ID)
		}
		evicted, err := p.Cache.Cleanup(active)
		if err != nil {
			log.Printf("orchestrator: cache cleanup: %v", err)
		}
		stats.CacheEvicted = evicted
		cs := p.Cache.Stats()
		log.Printf("orchestrator: cache hits=%d misses=%d evicted=%d", cs.Hits, cs.Misses, evicted)
	}

	ranked := p.Scorer.Rank(items)

	if p.Brief != nil {
		path, err := p.Brief.Write(ranked)
		if err != nil {
			return ranked, stats, fmt.Errorf("write brief: %w", err)
		}
		stats.BriefPath = path
	}

	if opts.UpdateTasks && p.Writer != nil {
		applied := p.Writer.Apply(ctx, ranked, opts.DryRun)
		stats.Updated = applied.Updated
		stats.UpdateFailed = applied.Failed
	}

	return ranked, stats, nil
}

// resolveDuplicates 解析并清除重复任务,然后重新拉取
// resolveDuplicates purges duplicate tasks and refetches the list so
// downstream stages see the surviving set.
func (p *Pipeline) resolveDuplicates(ctx context.Context, tasks []task.Task, dryRun bool, stats *RunStats) ([]task.Task, error) {
	groups := dedupe.FindDuplicates(tasks)
	stats.DuplicatesFound = len(groups)
	if len(groups) == 0 {
		return tasks, nil
	}

	purge := dedupe.Purge(ctx, p.Source, groups, dryRun)
	stats.DuplicatesPurged = purge.Deleted
	log.Printf("orchestrator: duplicates: %d groups, deleted %d, failed %d, skipped %d",
		len(groups), purge.Deleted, purge.Failed, purge.Skipped)

	if dryRun || purge.Deleted == 0 {
		return tasks, nil
	}

	refreshed, err := p.Source.AllTasks(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("refetch after dedupe: %w", err)
	}
	return refreshed, nil
}

// analyzeAll 逐个任务走缓存或 AI 分析
// analyzeAll resolves each task's analysis through the cache or the
// AI provider. A provider failure for one task yields the fallback
// result and never stops the batch.
func (p *Pipeline) analyzeAll(ctx context.Context, tasks []task.Task, stats *RunStats) []rank.Item {
	items := make([]rank.Item, 0, len(tasks))
	for _, t := range tasks {
		items = append(items, rank.Item{Task: t, Analysis: p.analyzeOne(ctx, t, stats)})
	}
	return items
}

func (p *Pipeline) analyzeOne(ctx context.Context, t task.Task, stats *RunStats) analyze.Result {
	if p.Cache != nil {
		if result, ok := p.Cache.Get(t.ID, t.Title, t.URLs); ok {
			stats.CacheHits++
			return result
		}
	}

	content := ""
	if p.Extractor != nil && len(t.URLs) > 0 {
		content = fetch.Combined(p.Extractor.ExtractAll(ctx, t.URLs))
	}

	result, err := p.Analyzer.Analyze(ctx, t, content)
	if err != nil {
		log.Printf("orchestrator: analyze task %s (%q): %v", t.ID, truncate(t.Title, 50), err)
		stats.Fallbacks++
		return analyze.Fallback(t)
	}
	stats.Analyzed++

	if p.Cache != nil {
		if err := p.Cache.Set(t.ID, t.Title, t.URLs, result); err != nil {
			log.Printf("orchestrator: cache task %s (%q): %v", t.ID, truncate(t.Title, 50), err)
		}
	}
	return result
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
