package analyze

import (
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// tokenizer 带启发式回退的 token 计数器 / tokenizer counts tokens with
// tiktoken when available and a character heuristic otherwise (offline
// environments may lack the BPE cache).
type tokenizer struct {
	encoder  *tiktoken.Tiktoken
	fallback bool
	mu       sync.RWMutex
}

var (
	defaultTokenizer     *tokenizer
	defaultTokenizerOnce sync.Once
)

func getTokenizer() *tokenizer {
	defaultTokenizerOnce.Do(func() {
		t := &tokenizer{}
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			t.fallback = true
		} else {
			t.encoder = enc
		}
		defaultTokenizer = t
	})
	return defaultTokenizer
}

func (t *tokenizer) count(text string) int {
	if text == "" {
		return 0
	}
	if t.fallback {
		return heuristicTokenCount(text)
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.encoder.Encode(text, nil, nil))
}

// truncate cuts text down to at most maxTokens tokens.
func (t *tokenizer) truncate(text string, maxTokens int) string {
	if maxTokens <= 0 || text == "" {
		return ""
	}
	if t.fallback {
		// ~4 chars per token for mostly-English web content
		limit := maxTokens * 4
		runes := []rune(text)
		if len(runes) <= limit {
			return text
		}
		return string(runes[:limit])
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	tokens := t.encoder.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	return t.encoder.Decode(tokens[:maxTokens])
}

func heuristicTokenCount(text string) int {
	estimate := len([]rune(text)) / 4
	if estimate < 1 {
		estimate = 1
	}
	return estimate
}
