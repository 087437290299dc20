package task

import "testing"

func TestExtractURLs(t *testing.T) {
	title := "Read https://example.com/article?id=1 soon"
	body := "context: https://example.com/article?id=1 and https://other.org/page"

	urls := ExtractURLs(title, body)
	if len(urls) != 2 {
		t.Fatalf("ExtractURLs count=%d, want 2: %v", len(urls), urls)
	}
	if urls[0] != "https://example.com/article?id=1" {
		t.Fatalf("urls[0]=%q, first-seen order broken", urls[0])
	}
	if urls[1] != "https://other.org/page" {
		t.Fatalf("urls[1]=%q", urls[1])
	}
}

func TestExtractURLsNone(t *testing.T) {
	if urls := ExtractURLs("plain title", "plain body"); len(urls) != 0 {
		t.Fatalf("expected no urls, got %v", urls)
	}
}

func TestRefreshURLsIsDerived(t *testing.T) {
	tk := Task{Title: "see https://a.com/x", Body: ""}
	tk.RefreshURLs()
	if len(tk.URLs) != 1 || tk.URLs[0] != "https://a.com/x" {
		t.Fatalf("URLs=%v", tk.URLs)
	}
	tk.Title = "no link anymore"
	tk.RefreshURLs()
	if len(tk.URLs) != 0 {
		t.Fatalf("URLs should follow title/body, got %v", tk.URLs)
	}
}

func TestSortedURLsCopies(t *testing.T) {
	tk := Task{URLs: []string{"b", "a"}}
	sorted := tk.SortedURLs()
	if sorted[0] != "a" || sorted[1] != "b" {
		t.Fatalf("SortedURLs=%v", sorted)
	}
	if tk.URLs[0] != "b" {
		t.Fatalf("SortedURLs must not mutate the task, URLs=%v", tk.URLs)
	}
}

func TestParseWhen(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"2025-09-01T10:00:00Z", true},
		{"2025-09-01T10:00:00.1234567", true},
		{"2025-09-01T10:00:00", true},
		{"2025-09-01", true},
		{"", false},
		{"not a date", false},
	}
	for _, c := range cases {
		if _, ok := ParseWhen(c.in); ok != c.ok {
			t.Fatalf("ParseWhen(%q) ok=%v, want %v", c.in, ok, c.ok)
		}
	}
}

func TestNormalizeImportance(t *testing.T) {
	if NormalizeImportance("HIGH") != ImportanceHigh {
		t.Fatal("HIGH should normalize to high")
	}
	if NormalizeImportance("") != ImportanceNormal {
		t.Fatal("empty should normalize to normal")
	}
	if NormalizeImportance("whatever") != ImportanceNormal {
		t.Fatal("unknown should normalize to normal")
	}
}
