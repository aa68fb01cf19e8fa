package llm

import (
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/tiktoken-go/tokenizer"
)

// TokenCounter counts cl100k_base tokens. The zero value is ready to use.
type TokenCounter struct {
	once  sync.Once
	codec tokenizer.Codec
}

// Count returns the number of tokens in text, or a length-based estimate
// when the codec is unavailable.
func (c *TokenCounter) Count(text string) int {
	c.once.Do(func() {
		codec, err := tokenizer.Get(tokenizer.Cl100kBase)
		if err != nil {
			log.Warn().Err(err).Msg("Tokenizer unavailable, estimating token counts")
			return
		}
		c.codec = codec
	})
	if text == "" {
		return 0
	}
	if c.codec == nil {
		return (len(text) + 3) / 4
	}
	ids, _, err := c.codec.Encode(text)
	if err != nil {
		return (len(text) + 3) / 4
	}
	return len(ids)
}
