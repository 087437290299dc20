// Package cache 提供基于 SQLite 的分析结果缓存
// Package cache persists AI analysis results in SQLite so unchanged
// tasks never pay for a second model call. Entries are keyed by task
// id and invalidated through a content fingerprint.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"taskbrief/internal/analyze"

	_ "modernc.org/sqlite"
)

// Store 基于 SQLite (WAL 模式) 的缓存实现
// Store is the SQLite-backed analysis cache with WAL mode enabled.
type Store struct {
	db   *sql.DB
	path string

	// TTL 为零时仅按指纹失效 / zero TTL disables time-based expiry
	TTL time.Duration

	hits   int
	misses int
}

// Open 创建并初始化缓存数据库
// Open creates and initializes the cache database.
func Open(dbPath string) (*Store, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("cache db path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// 启用 WAL 模式和优化 PRAGMA / Enable WAL and performance PRAGMAs
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("exec %q: %w", p, err)
		}
	}

	s := &Store{db: db, path: dbPath}
	if err := s.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

func (s *Store) ensureSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS analyses (
		task_id     TEXT PRIMARY KEY,
		fingerprint TEXT NOT NULL,
		analysis    TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close 关闭数据库连接 / Close the database connection
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Fingerprint 由标题和排序后的 URL 列表导出
// Fingerprint derives the invalidation key from the task title and its
// URL set. URLs are sorted so extraction order does not matter. The
// title is length-prefixed so a newline in it cannot read as a URL
// boundary.
func Fingerprint(title string, urls []string) string {
	sorted := make([]string, len(urls))
	copy(sorted, urls)
	sort.Strings(sorted)

	h := sha256.New()
	fmt.Fprintf(h, "%d:%s", len(title), title)
	for _, u := range sorted {
		h.Write([]byte{'\n'})
		h.Write([]byte(u))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get 命中时返回缓存的分析结果,指纹不匹配视为未命中
// Get returns the cached result for the task when the stored
// fingerprint matches the current one. Any mismatch, absence, or
// expired entry is a miss.
func (s *Store) Get(taskID, title string, urls []string) (analyze.Result, bool) {
	var (
		storedFP  string
		payload   string
		updatedAt string
	)
	err := s.db.QueryRow(
		`SELECT fingerprint, analysis, updated_at FROM analyses WHERE task_id = ?`,
		taskID,
	).Scan(&storedFP, &payload, &updatedAt)
	if err != nil {
		s.misses++
		return analyze.Result{}, false
	}
	if storedFP != Fingerprint(title, urls) {
		s.misses++
		return analyze.Result{}, false
	}
	if s.TTL > 0 {
		when, err := time.Parse(time.RFC3339, updatedAt)
		if err != nil || time.Since(when) > s.TTL {
			s.misses++
			return analyze.Result{}, false
		}
	}

	var result analyze.Result
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		s.misses++
		return analyze.Result{}, false
	}
	s.hits++
	return result, true
}

// Set 写入或覆盖缓存条目,后写者胜
// Set stores the analysis for the task, replacing any previous entry.
func (s *Store) Set(taskID, title string, urls []string, result analyze.Result) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO analyses (task_id, fingerprint, analysis, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(task_id) DO UPDATE SET
			fingerprint = excluded.fingerprint,
			analysis    = excluded.analysis,
			updated_at  = excluded.updated_at`,
		taskID, Fingerprint(title, urls), string(payload), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upsert analysis: %w", err)
	}
	return nil
}

// Cleanup 删除不在活跃任务集合中的条目,返回删除数量
// Cleanup removes entries whose task id is not in the active set and
// reports how many were dropped.
func (s *Store) Cleanup(activeIDs []string) (int, error) {
	active := make(map[string]bool, len(activeIDs))
	for _, id := range activeIDs {
		active[id] = true
	}

	rows, err := s.db.Query(`SELECT task_id FROM analyses`)
	if err != nil {
		return 0, fmt.Errorf("list cached tasks: %w", err)
	}
	var stale []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return 0, fmt.Errorf("scan task id: %w", err)
		}
		if !active[id] {
			stale = append(stale, id)
		}
	}
	if err := rows.Close(); err != nil {
		return 0, err
	}

	for _, id := range stale {
		if _, err := s.db.Exec(`DELETE FROM analyses WHERE task_id = ?`, id); err != nil {
			return 0, fmt.Errorf("delete stale entry %s: %w", id, err)
		}
	}
	return len(stale), nil
}

// Stats 报告本次进程内的命中统计
// Stats reports hit counters for the current process.
type Stats struct {
	Hits   int
	Misses int
}

func (s *Store) Stats() Stats {
	return Stats{Hits: s.hits, Misses: s.misses}
}
