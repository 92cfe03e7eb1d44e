package ollama

import (
	"encoding/json"
	"fmt"
	"iter"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// Parser turns a newline-delimited /api/generate body into text.
//
// Ollama emits one JSON object per line even when stream=false is
// requested, and the last line of a cut-off stream is often truncated.
// A line that does not decode is skipped; it never fails the call.
type Parser struct {
	// Repair runs undecodable lines through jsonrepair before giving up
	// on them, which recovers most truncated trailing chunks.
	Repair bool

	// OnSkip, if set, is called for every non-blank line that was dropped.
	OnSkip func(line string, err error)
}

// Aggregate is Parser{}.Aggregate.
func Aggregate(body string) string {
	return Parser{}.Aggregate(body)
}

// Chunks yields the decodable chunks of body in line order.
func (p Parser) Chunks(body string) iter.Seq[GenerateChunk] {
	return func(yield func(GenerateChunk) bool) {
		for line := range strings.Lines(body) {
			line = strings.TrimRight(line, "\r\n")
			if strings.TrimSpace(line) == "" {
				continue
			}
			chunk, err := p.decode(line)
			if err != nil {
				if p.OnSkip != nil {
					p.OnSkip(line, err)
				}
				continue
			}
			if !yield(chunk) {
				return
			}
		}
	}
}

// Texts returns the trimmed, non-empty response text of every chunk in body.
func (p Parser) Texts(body string) []string {
	return collectTexts(p.Chunks(body))
}

// Aggregate joins Texts(body) with single spaces. A body with no usable
// chunk yields "".
func (p Parser) Aggregate(body string) string {
	return joinTexts(p.Texts(body))
}

// collectTexts trims every chunk's text. Chunks that are empty after
// trimming (Ollama's final done chunk, whitespace-only tokens) are left
// out so that the join never produces two spaces in a row.
func collectTexts(chunks iter.Seq[GenerateChunk]) []string {
	var out []string
	for chunk := range chunks {
		if t := strings.TrimSpace(chunk.Response); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func joinTexts(texts []string) string {
	return strings.TrimSpace(strings.Join(texts, " "))
}

func (p Parser) decode(line string) (GenerateChunk, error) {
	chunk, err := decodeChunk([]byte(line))
	if err == nil || !p.Repair {
		return chunk, err
	}
	repaired, rerr := jsonrepair.JSONRepair(line)
	if rerr != nil {
		return GenerateChunk{}, err
	}
	chunk, rerr = decodeChunk([]byte(repaired))
	if rerr != nil {
		return GenerateChunk{}, err
	}
	return chunk, nil
}

// decodeChunk accepts a line only if it is a JSON object carrying both
// "response" (string) and "done" (bool) under exactly those key names.
// encoding/json alone would accept missing fields and case-folded keys.
func decodeChunk(data []byte) (GenerateChunk, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return GenerateChunk{}, err
	}

	var response *string
	if err := requireField(fields, "response", &response); err != nil {
		return GenerateChunk{}, err
	}
	if response == nil {
		return GenerateChunk{}, fmt.Errorf("field %q is null", "response")
	}
	var done *bool
	if err := requireField(fields, "done", &done); err != nil {
		return GenerateChunk{}, err
	}
	if done == nil {
		return GenerateChunk{}, fmt.Errorf("field %q is null", "done")
	}

	chunk := GenerateChunk{Response: *response, Done: *done}
	// Informational only; a malformed value does not drop the chunk.
	if raw, ok := fields["model"]; ok {
		_ = json.Unmarshal(raw, &chunk.Model)
	}
	if raw, ok := fields["created_at"]; ok {
		_ = json.Unmarshal(raw, &chunk.CreatedAt)
	}
	return chunk, nil
}

func requireField(fields map[string]json.RawMessage, key string, out any) error {
	raw, ok := fields[key]
	if !ok {
		return fmt.Errorf("missing field %q", key)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("field %q: %w", key, err)
	}
	return nil
}
