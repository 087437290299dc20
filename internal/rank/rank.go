// Package rank 计算任务优先级分数并分配时间框架
// Package rank turns an analyzed task into a composite priority score
// and assigns it to a timeframe bucket. Scores combine five weighted
// factors; weights are normalized so callers can tune them freely.
package rank

import (
	"math"
	"sort"
	"time"

	"taskbrief/internal/analyze"
	"taskbrief/internal/task"
)

// Timeframe 时间框架桶 / Timeframe buckets for the daily brief.
type Timeframe string

const (
	TimeframeToday    Timeframe = "today"
	TimeframeThisWeek Timeframe = "this_week"
	TimeframeWaiting  Timeframe = "waiting"
	TimeframeLater    Timeframe = "later"
)

// Weights 五个评分因子的权重 / Weights for the five scoring factors.
type Weights struct {
	AIPriority      float64
	DeadlineUrgency float64
	Recency         float64
	Importance      float64
	Category        float64
}

// DefaultWeights 默认权重配置 / DefaultWeights is the stock tuning.
func DefaultWeights() Weights {
	return Weights{
		AIPriority:      0.40,
		DeadlineUrgency: 0.25,
		Recency:         0.15,
		Importance:      0.10,
		Category:        0.10,
	}
}

// normalized 权重和不为 1 时按比例缩放
// normalized rescales the weights so they sum to 1. A zero sum falls
// back to the defaults.
func (w Weights) normalized() Weights {
	sum := w.AIPriority + w.DeadlineUrgency + w.Recency + w.Importance + w.Category
	if sum == 0 {
		return DefaultWeights()
	}
	if sum == 1 {
		return w
	}
	return Weights{
		AIPriority:      w.AIPriority / sum,
		DeadlineUrgency: w.DeadlineUrgency / sum,
		Recency:         w.Recency / sum,
		Importance:      w.Importance / sum,
		Category:        w.Category / sum,
	}
}

// categoryBase 各分类的基础分 / base scores per analysis category.
var categoryBase = map[analyze.Category]float64{
	analyze.CategoryUrgent:    95,
	analyze.CategoryApply:     85,
	analyze.CategoryContact:   80,
	analyze.CategoryImportant: 80,
	analyze.CategoryReview:    65,
	analyze.CategoryPlanning:  60,
	analyze.CategoryResearch:  55,
	analyze.CategoryReading:   40,
	analyze.CategoryWatch:     35,
	analyze.CategoryRoutine:   30,
	analyze.CategoryOther:     50,
}

// urgencyMultiplier 紧急度乘数 / multiplier applied to the category base.
var urgencyMultiplier = map[analyze.Urgency]float64{
	analyze.UrgencyCritical: 1.2,
	analyze.UrgencyHigh:     1.1,
	analyze.UrgencyMedium:   1.0,
	analyze.UrgencyLow:      0.8,
}

// Scorer 组合因子打分器,now 可注入以便测试
// Scorer computes composite scores. The clock is injectable for tests.
type Scorer struct {
	Weights Weights
	Now     func() time.Time
}

func NewScorer(w Weights) *Scorer {
	return &Scorer{Weights: w, Now: time.Now}
}

// Item 排序后的任务及其评分明细
// Item carries a task, its analysis, and the scoring breakdown.
type Item struct {
	Task      task.Task
	Analysis  analyze.Result
	Score     float64
	Factors   Factors
	Timeframe Timeframe
}

// Factors 各因子的原始分 / raw per-factor scores before weighting.
type Factors struct {
	AIPriority      float64
	DeadlineUrgency float64
	Recency         float64
	Importance      float64
	Category        float64
}

// Score 计算单个任务的综合分,保留两位小数
// Score computes the weighted composite for one task, rounded to two
// decimals.
func (s *Scorer) Score(t task.Task, a analyze.Result) (float64, Factors) {
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	f := Factors{
		AIPriority:      a.PriorityScore,
		DeadlineUrgency: deadlineScore(t.DueDate, now),
		Recency:         recencyScore(t.CreatedAt, now),
		Importance:      importanceScore(t.Importance),
		Category:        categoryScore(a.Category, a.Urgency),
	}
	w := s.Weights.normalized()
	total := f.AIPriority*w.AIPriority +
		f.DeadlineUrgency*w.DeadlineUrgency +
		f.Recency*w.Recency +
		f.Importance*w.Importance +
		f.Category*w.Category
	return math.Round(total*100) / 100, f
}

// daysBetween 按日历日计算天数差 / calendar-day difference, from→to.
func daysBetween(from, to time.Time) int {
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f).Hours() / 24)
}

// deadlineScore 截止日期越近分越高,过期最高
// deadlineScore rises as the due date approaches; overdue tops the
// scale. Missing or unparseable dates score the floor.
func deadlineScore(dueDate string, now time.Time) float64 {
	due, ok := task.ParseWhen(dueDate)
	if !ok {
		return 20
	}
	days := daysBetween(now, due)
	switch {
	case days < 0:
		return 100
	case days == 0:
		return 90
	case days <= 3:
		return 80
	case days <= 7:
		return 70
	case days <= 14:
		return 50
	case days <= 30:
		return 35
	default:
		return 20
	}
}

// recencyScore 新任务分高,久置任务分低
// recencyScore favors freshly created tasks over stale ones.
func recencyScore(createdAt string, now time.Time) float64 {
	created, ok := task.ParseWhen(createdAt)
	if !ok {
		return 50
	}
	days := daysBetween(created, now)
	switch {
	case days <= 0:
		return 100
	case days <= 3:
		return 80
	case days <= 7:
		return 60
	case days <= 30:
		return 40
	default:
		return 20
	}
}

func importanceScore(imp task.Importance) float64 {
	switch imp {
	case task.ImportanceHigh:
		return 100
	case task.ImportanceNormal:
		return 50
	case task.ImportanceLow:
		return 25
	default:
		return 50
	}
}

// categoryScore 基础分乘以紧急度,封顶 100
// categoryScore multiplies the category base by the urgency factor,
// capped at 100.
func categoryScore(cat analyze.Category, urg analyze.Urgency) float64 {
	base, ok := categoryBase[cat]
	if !ok {
		base = categoryBase[analyze.CategoryOther]
	}
	mult, ok := urgencyMultiplier[urg]
	if !ok {
		mult = 1.0
	}
	return math.Min(base*mult, 100)
}

// Rank 打分并按分数降序稳定排序
// Rank scores every pair and sorts descending by score. The sort is
// stable so equal scores keep input order.
func (s *Scorer) Rank(pairs []Item) []Item {
	ranked := make([]Item, len(pairs))
	copy(ranked, pairs)
	for i := range ranked {
		ranked[i].Score, ranked[i].Factors = s.Score(ranked[i].Task, ranked[i].Analysis)
		ranked[i].Timeframe = s.categorize(ranked[i])
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

// categorize 按首个命中的规则分桶
// categorize assigns the bucket using the first matching rule.
func (s *Scorer) categorize(it Item) Timeframe {
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	dueDays, dueOK := -1, false
	if due, ok := task.ParseWhen(it.Task.DueDate); ok {
		dueDays, dueOK = daysBetween(now, due), true
	}

	// 日期规则只看今天和未来七天,逾期任务靠分数说话
	// The date clauses match today and the next seven days only; an
	// overdue date already raised the deadline factor, it does not
	// force a bucket on its own.
	switch {
	case it.Score >= 80 || (dueOK && dueDays == 0):
		return TimeframeToday
	case it.Score >= 60 || (dueOK && dueDays >= 0 && dueDays <= 7):
		return TimeframeThisWeek
	case it.Analysis.HasTag("waiting") || it.Analysis.HasTag("blocked"):
		return TimeframeWaiting
	default:
		return TimeframeLater
	}
}

// ByTimeframe 按桶分组,保持排名顺序
// ByTimeframe groups ranked items by bucket, preserving rank order.
func ByTimeframe(ranked []Item) map[Timeframe][]Item {
	out := make(map[Timeframe][]Item)
	for _, it := range ranked {
		out[it.Timeframe] = append(out[it.Timeframe], it)
	}
	return out
}
