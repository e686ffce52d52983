// Package chunker splits extracted document text into token-bounded,
// boundary-respecting, overlapping segments sized for embedding and
// retrieval.
package chunker

import (
	"regexp"
	"strings"
)

// Options controls how text is segmented.
type Options struct {
	// MaxTokens is the per-chunk token budget.
	MaxTokens int

	// OverlapTokens is how much trailing context from the previous
	// chunk is prefixed onto each subsequent chunk. <= 0 disables
	// overlap.
	OverlapTokens int

	// RespectBoundaries splits on blank-line paragraph boundaries when
	// true; otherwise the whole text is treated as one block.
	RespectBoundaries bool
}

var (
	paragraphRe = regexp.MustCompile(`\n\s*\n`)
	sentenceRe  = regexp.MustCompile(`([.!?])\s+`)
)

// EstimateTokens returns a rough token count for text, using the ~4
// characters per token heuristic common to GPT-style tokenizers. No
// tokenizer dependency is worth carrying for a bound this loose.
func EstimateTokens(text string) int {
	return len(text) / 4
}

// Split chunks text according to opts. Text that fits within
// opts.MaxTokens is returned as a single trimmed chunk; empty or
// whitespace-only input yields nil. Paragraphs are packed greedily up
// to the character budget; a paragraph that alone exceeds the budget is
// force-split on sentence-ending punctuation. Each chunk after the
// first is prefixed with the tail of its predecessor so retrieval does
// not fall off a cliff at chunk boundaries.
func Split(text string, opts Options) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	if EstimateTokens(text) <= opts.MaxTokens {
		return []string{trimmed}
	}

	maxChars := opts.MaxTokens * 4
	overlapChars := opts.OverlapTokens * 4

	var blocks []string
	if opts.RespectBoundaries {
		blocks = paragraphRe.Split(text, -1)
	} else {
		blocks = []string{text}
	}

	var chunks []string
	current := ""

	for _, block := range blocks {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}

		if len(current)+len(block)+2 <= maxChars {
			if current == "" {
				current = block
			} else {
				current = current + "\n\n" + block
			}
			continue
		}

		if current != "" {
			chunks = append(chunks, strings.TrimSpace(current))
		}

		if len(block) > maxChars {
			// Single paragraph over budget: fall back to sentences.
			current = ""
			for _, sent := range splitSentences(block) {
				if len(current)+len(sent)+1 <= maxChars {
					if current == "" {
						current = sent
					} else {
						current = current + " " + sent
					}
				} else {
					if current != "" {
						chunks = append(chunks, strings.TrimSpace(current))
					}
					current = sent
				}
			}
		} else {
			current = block
		}
	}

	if strings.TrimSpace(current) != "" {
		chunks = append(chunks, strings.TrimSpace(current))
	}

	if overlapChars > 0 && len(chunks) > 1 {
		overlapped := make([]string, 0, len(chunks))
		overlapped = append(overlapped, chunks[0])
		for i := 1; i < len(chunks); i++ {
			prev := chunks[i-1]
			tail := prev
			if len(prev) > overlapChars {
				tail = prev[len(prev)-overlapChars:]
			}
			overlapped = append(overlapped, tail+"\n\n"+chunks[i])
		}
		return overlapped
	}

	return chunks
}

// splitSentences splits a block on sentence-ending punctuation followed
// by whitespace, keeping the terminator with the sentence.
func splitSentences(block string) []string {
	parts := sentenceRe.Split(block, -1)
	terms := sentenceRe.FindAllStringSubmatch(block, -1)

	sentences := make([]string, 0, len(parts))
	for i, p := range parts {
		if i < len(terms) {
			p += terms[i][1]
		}
		if strings.TrimSpace(p) != "" {
			sentences = append(sentences, p)
		}
	}
	return sentences
}
