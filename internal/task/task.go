package task

import (
	"regexp"
	"sort"
	"strings"
	"time"
)

// Status 任务状态 / Status is the task lifecycle state.
type Status string

const (
	StatusNotStarted Status = "notStarted"
	StatusInProgress Status = "inProgress"
	StatusCompleted  Status = "completed"
)

// Importance 用户设定的重要性 / Importance is the user-set importance level.
type Importance string

const (
	ImportanceLow    Importance = "low"
	ImportanceNormal Importance = "normal"
	ImportanceHigh   Importance = "high"
)

// Task 单条待办的规范化表示 / Task is the normalized representation of one to-do item.
// URLs 永远由 (title, body) 在加载时派生，不单独修改。
// URLs is always derived from (title, body) at load time and never mutated on its own.
type Task struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Body       string     `json:"body"`
	Status     Status     `json:"status"`
	Importance Importance `json:"importance"`
	CreatedAt  string     `json:"created_at"`
	DueDate    string     `json:"due_date,omitempty"`
	ListID     string     `json:"list_id"`
	ListName   string     `json:"list_name"`
	URLs       []string   `json:"urls,omitempty"`
}

var urlPattern = regexp.MustCompile(`https?://[^\s<>"{}|\\^` + "`" + `\[\]]+`)

// ExtractURLs 从标题和正文中提取去重后的 URL 列表（保持首次出现顺序）。
// ExtractURLs returns the deduplicated URLs found in title and body, in
// first-seen order.
func ExtractURLs(title, body string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, text := range []string{title, body} {
		for _, u := range urlPattern.FindAllString(text, -1) {
			if _, ok := seen[u]; ok {
				continue
			}
			seen[u] = struct{}{}
			out = append(out, u)
		}
	}
	return out
}

// RefreshURLs 根据当前 title/body 重新计算 URLs 字段。
// RefreshURLs recomputes the URLs field from the current title and body.
func (t *Task) RefreshURLs() {
	t.URLs = ExtractURLs(t.Title, t.Body)
}

// SortedURLs returns a sorted copy of the task's URL set, used for
// fingerprinting.
func (t Task) SortedURLs() []string {
	out := append([]string(nil), t.URLs...)
	sort.Strings(out)
	return out
}

// NormalizeStatus maps arbitrary input to a known status, defaulting to
// notStarted.
func NormalizeStatus(s string) Status {
	switch strings.TrimSpace(s) {
	case string(StatusInProgress):
		return StatusInProgress
	case string(StatusCompleted):
		return StatusCompleted
	default:
		return StatusNotStarted
	}
}

// NormalizeImportance maps arbitrary input to a known importance, defaulting
// to normal.
func NormalizeImportance(s string) Importance {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(ImportanceLow):
		return ImportanceLow
	case string(ImportanceHigh):
		return ImportanceHigh
	default:
		return ImportanceNormal
	}
}

// timestampLayouts 按顺序尝试的时间戳格式（Graph API 返回的几种变体）。
// timestampLayouts are tried in order; they cover the variants the source
// system emits.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.9999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseWhen 容错解析时间戳；解析失败返回零值和 false，从不报错。
// ParseWhen parses a timestamp tolerantly; on failure it returns the zero
// time and false, never an error.
func ParseWhen(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
