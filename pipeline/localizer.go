package pipeline

import "strings"

// Policy selects how a parsed answer is mapped back onto retrieved pages.
type Policy string

const (
	// PolicyAnchor follows the model's quote to a single best page.
	PolicyAnchor Policy = "anchor"
	// PolicySpread ignores the quote and spreads evidence over the top
	// hits, trading quote precision for corroborating coverage on
	// comparison questions.
	PolicySpread Policy = "spread"
)

const (
	// Quotes this short match everywhere and anchor nothing.
	minQuoteLength = 5

	anchorSnippetLength = 300
	spreadSnippetLength = 200
	spreadHitCount      = 3
)

// EvidenceTarget is a hit selected for rendering together with the snippet
// to highlight on its page.
type EvidenceTarget struct {
	Hit     RetrievalHit
	Snippet string
}

// Localize maps the answer draft back onto the retrieved hits according to
// the configured policy. An empty result is valid and means no visual
// evidence can be produced.
func Localize(draft AnswerDraft, hits []RetrievalHit, policy Policy) []EvidenceTarget {
	if len(hits) == 0 {
		return nil
	}
	if policy == PolicySpread {
		return localizeSpread(hits)
	}
	return localizeAnchor(draft, hits)
}

func localizeAnchor(draft AnswerDraft, hits []RetrievalHit) []EvidenceTarget {
	quote := strings.TrimSpace(draft.QuoteText)
	if len(quote) > minQuoteLength {
		for _, hit := range hits {
			if containsNormalized(hit.Chunk.Text, quote) {
				return []EvidenceTarget{{Hit: hit, Snippet: normalizeWhitespace(quote)}}
			}
		}
	}

	// Quote missing or not found anywhere: prefer the first hit beyond
	// page 1 so cover and title pages don't become the anchor.
	anchor := hits[0]
	for _, hit := range hits {
		if hit.Chunk.PageNumber > 1 {
			anchor = hit
			break
		}
	}
	return []EvidenceTarget{{Hit: anchor, Snippet: leadingSnippet(anchor.Chunk.Text, anchorSnippetLength)}}
}

func localizeSpread(hits []RetrievalHit) []EvidenceTarget {
	limit := spreadHitCount
	if len(hits) < limit {
		limit = len(hits)
	}

	type pageKey struct {
		doc  string
		page int
	}
	seen := make(map[pageKey]struct{}, limit)

	targets := make([]EvidenceTarget, 0, limit)
	for _, hit := range hits[:limit] {
		key := pageKey{doc: hit.Chunk.SourceDocID.String(), page: hit.Chunk.PageNumber}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		targets = append(targets, EvidenceTarget{
			Hit:     hit,
			Snippet: leadingSnippet(hit.Chunk.Text, spreadSnippetLength),
		})
	}
	return targets
}

// containsNormalized reports whether needle occurs in haystack under
// case-insensitive, whitespace-collapsed comparison. Chunk text keeps the
// PDF's line breaks while model quotes come back on one line, so raw
// substring search would miss almost every real quote.
func containsNormalized(haystack, needle string) bool {
	return strings.Contains(
		strings.ToLower(normalizeWhitespace(haystack)),
		strings.ToLower(normalizeWhitespace(needle)),
	)
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// leadingSnippet returns the first max characters of text with whitespace
// collapsed, cut at a rune boundary.
func leadingSnippet(text string, max int) string {
	normalized := normalizeWhitespace(text)
	runes := []rune(normalized)
	if len(runes) <= max {
		return normalized
	}
	return string(runes[:max])
}
