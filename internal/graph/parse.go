package graph

import (
	"encoding/json"
	"fmt"
	"strings"

	"taskbrief/internal/task"
)

// graphTask Graph API 的任务 JSON 形状
// graphTask mirrors the To Do task resource shape on the wire.
type graphTask struct {
	ID              string         `json:"id"`
	Title           string         `json:"title"`
	Status          string         `json:"status"`
	Importance      string         `json:"importance"`
	CreatedDateTime string         `json:"createdDateTime"`
	Body            *graphBody     `json:"body,omitempty"`
	DueDateTime     *graphDateTime `json:"dueDateTime,omitempty"`
}

type graphBody struct {
	Content     string `json:"content"`
	ContentType string `json:"contentType"`
}

type graphDateTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone,omitempty"`
}

// parseTask 将 Graph JSON 转为内部任务类型
// parseTask converts a raw Graph task into the internal Task, running
// URL extraction over the title and body.
func parseTask(raw json.RawMessage) (task.Task, error) {
	var gt graphTask
	if err := json.Unmarshal(raw, &gt); err != nil {
		return task.Task{}, fmt.Errorf("decode task: %w", err)
	}
	if gt.ID == "" {
		return task.Task{}, fmt.Errorf("task has no id")
	}

	t := task.Task{
		ID:         gt.ID,
		Title:      gt.Title,
		Status:     task.NormalizeStatus(gt.Status),
		Importance: task.NormalizeImportance(gt.Importance),
		CreatedAt:  gt.CreatedDateTime,
	}
	if gt.Body != nil {
		t.Body = gt.Body.Content
	}
	if gt.DueDateTime != nil {
		t.DueDate = gt.DueDateTime.DateTime
	}
	t.RefreshURLs()
	return t, nil
}

// encodeTask 构造创建任务的请求体
// encodeTask builds the request body for task creation.
func encodeTask(t task.Task) map[string]any {
	body := map[string]any{
		"title": t.Title,
	}
	if t.Importance != "" {
		body["importance"] = string(t.Importance)
	}
	if strings.TrimSpace(t.Body) != "" {
		body["body"] = map[string]string{
			"content":     t.Body,
			"contentType": "text",
		}
	}
	if strings.TrimSpace(t.DueDate) != "" {
		body["dueDateTime"] = map[string]string{
			"dateTime": t.DueDate,
			"timeZone": "UTC",
		}
	}
	return body
}
