package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"taskbrief/internal/task"
)

const defaultGraphBase = "https://graph.microsoft.com/v1.0"

// TokenSource 提供访问令牌 / TokenSource supplies access tokens.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client Microsoft To Do 的 REST 客户端
// Client talks to the Microsoft To Do endpoints under /me/todo.
type Client struct {
	baseURL string
	tokens  TokenSource
	http    *http.Client
}

func NewClient(tokens TokenSource) *Client {
	return &Client{
		baseURL: defaultGraphBase,
		tokens:  tokens,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// TaskList 任务列表元数据 / TaskList is a To Do list.
type TaskList struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

type listPage struct {
	Value    []TaskList `json:"value"`
	NextLink string     `json:"@odata.nextLink"`
}

type taskPage struct {
	Value    []json.RawMessage `json:"value"`
	NextLink string            `json:"@odata.nextLink"`
}

// Lists 获取所有任务列表 / Lists returns every To Do list.
func (c *Client) Lists(ctx context.Context) ([]TaskList, error) {
	var out []TaskList
	next := c.baseURL + "/me/todo/lists"
	for next != "" {
		var page listPage
		if err := c.get(ctx, next, &page); err != nil {
			return nil, fmt.Errorf("fetch task lists: %w", err)
		}
		out = append(out, page.Value...)
		next = page.NextLink
	}
	return out, nil
}

// ListByName 按名称查找列表,找不到时可选创建
// ListByName finds a list by display name, optionally creating it.
func (c *Client) ListByName(ctx context.Context, name string, create bool) (TaskList, error) {
	lists, err := c.Lists(ctx)
	if err != nil {
		return TaskList{}, err
	}
	for _, l := range lists {
		if strings.EqualFold(l.DisplayName, name) {
			return l, nil
		}
	}
	if !create {
		return TaskList{}, fmt.Errorf("list %q not found", name)
	}
	return c.CreateList(ctx, name)
}

// CreateList 创建任务列表 / CreateList creates a new To Do list.
func (c *Client) CreateList(ctx context.Context, name string) (TaskList, error) {
	var created TaskList
	err := c.send(ctx, http.MethodPost, c.baseURL+"/me/todo/lists",
		map[string]string{"displayName": name}, &created)
	if err != nil {
		return TaskList{}, fmt.Errorf("create list %q: %w", name, err)
	}
	return created, nil
}

// Tasks 获取单个列表中的任务,可选 OData 过滤
// Tasks returns the tasks of one list, following @odata.nextLink
// pages. filter is an optional OData $filter expression.
func (c *Client) Tasks(ctx context.Context, listID, filter string) ([]task.Task, error) {
	endpoint := fmt.Sprintf("%s/me/todo/lists/%s/tasks", c.baseURL, url.PathEscape(listID))
	if filter != "" {
		endpoint += "?$filter=" + url.QueryEscape(filter)
	}

	var out []task.Task
	next := endpoint
	for next != "" {
		var page taskPage
		if err := c.get(ctx, next, &page); err != nil {
			return nil, fmt.Errorf("fetch tasks of list %s: %w", listID, err)
		}
		for _, raw := range page.Value {
			t, err := parseTask(raw)
			if err != nil {
				log.Printf("graph: skip unparseable task in list %s: %v", listID, err)
				continue
			}
			out = append(out, t)
		}
		next = page.NextLink
	}
	return out, nil
}

// AllTasks 获取所有列表的任务并打上列表标签
// AllTasks collects tasks from every list and tags each with its list
// id and name. Completed tasks are excluded unless asked for.
func (c *Client) AllTasks(ctx context.Context, includeCompleted bool) ([]task.Task, error) {
	lists, err := c.Lists(ctx)
	if err != nil {
		return nil, err
	}

	filter := ""
	if !includeCompleted {
		filter = "status ne 'completed'"
	}

	var all []task.Task
	for _, l := range lists {
		tasks, err := c.Tasks(ctx, l.ID, filter)
		if err != nil {
			return nil, err
		}
		for i := range tasks {
			tasks[i].ListID = l.ID
			tasks[i].ListName = l.DisplayName
		}
		all = append(all, tasks...)
	}
	return all, nil
}

// CreateTask 在指定列表创建任务 / CreateTask creates a task in a list.
func (c *Client) CreateTask(ctx context.Context, listID string, t task.Task) (task.Task, error) {
	endpoint := fmt.Sprintf("%s/me/todo/lists/%s/tasks", c.baseURL, url.PathEscape(listID))
	var raw json.RawMessage
	if err := c.send(ctx, http.MethodPost, endpoint, encodeTask(t), &raw); err != nil {
		return task.Task{}, fmt.Errorf("create task in list %s: %w", listID, err)
	}
	created, err := parseTask(raw)
	if err != nil {
		return task.Task{}, fmt.Errorf("parse created task: %w", err)
	}
	created.ListID = listID
	return created, nil
}

// UpdateTask 更新任务字段 / UpdateTask patches fields of a task.
func (c *Client) UpdateTask(ctx context.Context, listID, taskID string, updates map[string]any) error {
	endpoint := fmt.Sprintf("%s/me/todo/lists/%s/tasks/%s",
		c.baseURL, url.PathEscape(listID), url.PathEscape(taskID))
	if err := c.send(ctx, http.MethodPatch, endpoint, updates, nil); err != nil {
		return fmt.Errorf("update task %s: %w", taskID, err)
	}
	return nil
}

// DeleteTask 删除任务 / DeleteTask removes a task from a list.
func (c *Client) DeleteTask(ctx context.Context, listID, taskID string) error {
	endpoint := fmt.Sprintf("%s/me/todo/lists/%s/tasks/%s",
		c.baseURL, url.PathEscape(listID), url.PathEscape(taskID))
	if err := c.send(ctx, http.MethodDelete, endpoint, nil, nil); err != nil {
		return fmt.Errorf("delete task %s: %w", taskID, err)
	}
	return nil
}

// MoveTask 先建后删实现跨列表移动
// MoveTask copies the task into the destination list and then deletes
// the original. A failure after the copy leaves a duplicate, which is
// reported distinctly so the caller can clean up.
func (c *Client) MoveTask(ctx context.Context, t task.Task, destListID string) (task.Task, error) {
	created, err := c.CreateTask(ctx, destListID, t)
	if err != nil {
		return task.Task{}, fmt.Errorf("move task %s: copy failed: %w", t.ID, err)
	}
	if err := c.DeleteTask(ctx, t.ListID, t.ID); err != nil {
		return created, fmt.Errorf("move task %s: copied to %s but delete of original failed: %w",
			t.ID, destListID, err)
	}
	return created, nil
}

func (c *Client) get(ctx context.Context, endpoint string, v any) error {
	return c.send(ctx, http.MethodGet, endpoint, nil, v)
}

func (c *Client) send(ctx context.Context, method, endpoint string, body, v any) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("acquire token: %w", err)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("graph API %s %s: status %d: %s",
			method, endpoint, resp.StatusCode, truncateBody(data))
	}
	if v != nil && len(data) > 0 {
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func truncateBody(data []byte) string {
	const max = 200
	s := strings.TrimSpace(string(data))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
