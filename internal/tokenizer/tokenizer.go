// Package tokenizer estimates input token counts with the cl100k_base
// encoding. The estimate feeds cost accounting only; it is never used to
// validate requests.
package tokenizer

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Counter counts tokens for text. The encoding is loaded lazily; if it
// cannot be loaded the counter falls back to a chars/4 estimate so
// accounting degrades rather than failing.
type Counter struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
	err  error
}

var defaultCounter = &Counter{}

// Count returns the token count of text under the default counter.
// Deterministic for identical input.
func Count(text string) int {
	return defaultCounter.Count(text)
}

func (c *Counter) Count(text string) int {
	c.init()
	if c.err != nil || c.enc == nil {
		return len(text) / 4
	}
	return len(c.enc.Encode(text, nil, nil))
}

func (c *Counter) init() {
	c.once.Do(func() {
		// cl100k_base covers the GPT-4/Claude model families.
		c.enc, c.err = tiktoken.GetEncoding("cl100k_base")
	})
}
