package analyze

import (
	"fmt"
	"strings"

	"taskbrief/internal/task"
)

// contentTokenBudget caps how much fetched web content rides along in the
// analysis prompt.
const contentTokenBudget = 1024

const systemPrompt = "You are a task analysis expert. Respond only with valid JSON."

const responseSchema = `Please analyze this task and provide the following in valid JSON format:

{
  "summary": "One-sentence summary of what this task is about",
  "priority_score": <number 0-100, where 100 is highest priority>,
  "priority_reasoning": "Brief explanation of the priority score",
  "estimated_time_minutes": <estimated time to complete in minutes>,
  "tags": ["topic1", "topic2", "topic3"],
  "category": "one of: urgent, apply, contact, important, review, planning, research, reading, watch, routine, other",
  "urgency_level": "one of: critical, high, medium, low",
  "suggested_action": "Next action to take (imperative form)",
  "key_insights": ["insight1", "insight2", "insight3"],
  "why_it_matters": "One sentence explaining why this task matters"
}

Respond ONLY with the JSON object, no additional text.`

// buildPrompt 组装分析提示词；网页内容按 token 预算截断。
// buildPrompt assembles the analysis prompt; fetched content is truncated to
// the token budget before inclusion.
func buildPrompt(t task.Task, content string) string {
	var b strings.Builder
	b.WriteString("Analyze this task and provide structured insights in JSON format.\n\n")
	fmt.Fprintf(&b, "Task Title: %s\n", orDefault(t.Title, "No title"))
	fmt.Fprintf(&b, "Task Description: %s\n", orDefault(t.Body, "No description"))
	fmt.Fprintf(&b, "Due Date: %s\n", orDefault(t.DueDate, "Not set"))
	fmt.Fprintf(&b, "Current Importance: %s\n", t.Importance)
	fmt.Fprintf(&b, "Status: %s\n", t.Status)

	if content = strings.TrimSpace(content); content != "" {
		truncated := getTokenizer().truncate(content, contentTokenBudget)
		if truncated != content {
			truncated += "..."
		}
		fmt.Fprintf(&b, "\nLinked Content:\n%s\n", truncated)
	}

	b.WriteString("\n")
	b.WriteString(responseSchema)
	return b.String()
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
