package analyze

import (
	"encoding/json"
	"fmt"
	"strings"

	"taskbrief/internal/task"
)

// Category AI 给出的任务类别 / Category is the AI-assigned task category.
type Category string

const (
	CategoryUrgent    Category = "urgent"
	CategoryApply     Category = "apply"
	CategoryContact   Category = "contact"
	CategoryImportant Category = "important"
	CategoryReview    Category = "review"
	CategoryPlanning  Category = "planning"
	CategoryResearch  Category = "research"
	CategoryReading   Category = "reading"
	CategoryWatch     Category = "watch"
	CategoryRoutine   Category = "routine"
	CategoryOther     Category = "other"
)

// Urgency AI 给出的紧迫级别 / Urgency is the AI-assigned urgency level.
type Urgency string

const (
	UrgencyCritical Urgency = "critical"
	UrgencyHigh     Urgency = "high"
	UrgencyMedium   Urgency = "medium"
	UrgencyLow      Urgency = "low"
)

// Result 一条任务的 AI 分析结果 / Result is the AI-derived annotation of one
// task. PriorityScore is the model's own opinion and only one input to the
// composite score.
type Result struct {
	Summary              string   `json:"summary"`
	PriorityScore        float64  `json:"priority_score"`
	PriorityReasoning    string   `json:"priority_reasoning"`
	EstimatedTimeMinutes int      `json:"estimated_time_minutes"`
	Tags                 []string `json:"tags"`
	Category             Category `json:"category"`
	Urgency              Urgency  `json:"urgency_level"`
	SuggestedAction      string   `json:"suggested_action"`
	KeyInsights          []string `json:"key_insights"`
	WhyItMatters         string   `json:"why_it_matters"`
}

// HasTag reports whether the result carries the given tag.
func (r Result) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if strings.EqualFold(strings.TrimSpace(t), tag) {
			return true
		}
	}
	return false
}

// Fallback 当 AI 调用失败时使用的兜底分析 / Fallback is the analysis
// substituted when the provider call fails; it keeps the run alive with a
// neutral priority.
func Fallback(t task.Task) Result {
	title := strings.TrimSpace(t.Title)
	if title == "" {
		title = "Unknown task"
	}
	if len(title) > 80 {
		title = title[:80]
	}
	return Result{
		Summary:              fmt.Sprintf("Review and complete: %s", title),
		PriorityScore:        50,
		PriorityReasoning:    "AI analysis unavailable - default priority assigned",
		EstimatedTimeMinutes: 30,
		Tags:                 []string{"untagged"},
		Category:             CategoryOther,
		Urgency:              UrgencyMedium,
		SuggestedAction:      "Review this task and determine next steps",
		KeyInsights:          []string{"Task requires review", "No additional analysis available"},
		WhyItMatters:         "This task needs attention",
	}
}

// parseResult 从模型回复中截取首个 JSON 对象并解析；失败返回错误由调用方兜底。
// parseResult extracts the first {...} object from a model reply and decodes
// it. Callers substitute Fallback on error.
func parseResult(reply string) (Result, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return Result{}, fmt.Errorf("no JSON object in reply")
	}
	var r Result
	if err := json.Unmarshal([]byte(reply[start:end+1]), &r); err != nil {
		return Result{}, fmt.Errorf("decode analysis: %w", err)
	}
	r.normalize()
	return r, nil
}

// normalize clamps model output into the documented value ranges so a sloppy
// reply can never poison the scorer.
func (r *Result) normalize() {
	if r.PriorityScore < 0 {
		r.PriorityScore = 0
	}
	if r.PriorityScore > 100 {
		r.PriorityScore = 100
	}
	if r.EstimatedTimeMinutes <= 0 {
		r.EstimatedTimeMinutes = 30
	}
	switch Category(strings.ToLower(strings.TrimSpace(string(r.Category)))) {
	case CategoryUrgent, CategoryApply, CategoryContact, CategoryImportant,
		CategoryReview, CategoryPlanning, CategoryResearch, CategoryReading,
		CategoryWatch, CategoryRoutine:
		r.Category = Category(strings.ToLower(strings.TrimSpace(string(r.Category))))
	default:
		r.Category = CategoryOther
	}
	switch Urgency(strings.ToLower(strings.TrimSpace(string(r.Urgency)))) {
	case UrgencyCritical, UrgencyHigh, UrgencyLow:
		r.Urgency = Urgency(strings.ToLower(strings.TrimSpace(string(r.Urgency))))
	default:
		r.Urgency = UrgencyMedium
	}
}
