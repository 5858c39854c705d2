// Package tokens estimates how much of the model's context window a conversation uses.
//
// Gemini's tokenizer is not available offline, so counts use an OpenAI BPE
// encoding and are only good enough for the run-settings panel.
package tokens

import (
	"fmt"

	"github.com/go-go-golems/gemchat/pkg/conversation"
	"github.com/pkg/errors"
	"github.com/tiktoken-go/tokenizer"
)

// ContextWindow is the fixed limit displayed next to the count.
const ContextWindow = 1_048_576

const DefaultEncoding = tokenizer.Cl100kBase

type Counter struct {
	codec tokenizer.Codec
}

func NewCounter(encoding tokenizer.Encoding) (*Counter, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	codec, err := tokenizer.Get(encoding)
	if err != nil {
		return nil, errors.Wrapf(err, "error creating tokenizer %s", encoding)
	}
	return &Counter{codec: codec}, nil
}

func (c *Counter) Count(text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	ids, _, err := c.codec.Encode(text)
	if err != nil {
		return 0, errors.Wrap(err, "error encoding input")
	}
	return len(ids), nil
}

// CountConversation sums the tokens of the system prompt and every message.
func (c *Counter) CountConversation(conv *conversation.Conversation) (int, error) {
	if conv == nil {
		return 0, nil
	}
	total, err := c.Count(conv.SystemPrompt)
	if err != nil {
		return 0, err
	}
	for _, m := range conv.Messages {
		n, err := c.Count(m.Content)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// FormatUsage renders "used / limit" with thousands separators, e.g. "0 / 1,048,576".
func FormatUsage(used int) string {
	return fmt.Sprintf("%s / %s", groupThousands(used), groupThousands(ContextWindow))
}

func groupThousands(n int) string {
	if n < 0 {
		return "-" + groupThousands(-n)
	}
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	head := len(s) % 3
	if head == 0 {
		head = 3
	}
	ret := s[:head]
	for i := head; i < len(s); i += 3 {
		ret += "," + s[i:i+3]
	}
	return ret
}
