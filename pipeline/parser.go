package pipeline

import "strings"

const (
	answerHeader = "ANSWER:"
	quoteHeader  = "QUOTE:"

	// Extracted answers shorter than this are assumed to be parsing
	// casualties and replaced with the full raw output.
	minAnswerLength = 10
)

// ParseAnswer extracts the answer and supporting quote from raw model
// output. It tolerates every observed deviation from the requested format
// and never fails: worst case the whole raw text becomes the answer and the
// quote stays empty.
func ParseAnswer(raw string) AnswerDraft {
	text := strings.TrimSpace(raw)
	if text == "" {
		return AnswerDraft{}
	}

	var answer, quote string

	ansIdx := strings.Index(text, answerHeader)
	quoteIdx := strings.Index(text, quoteHeader)

	switch {
	case ansIdx >= 0 && quoteIdx > ansIdx:
		answer = strings.TrimSpace(text[ansIdx+len(answerHeader) : quoteIdx])
		quote = strings.TrimSpace(text[quoteIdx+len(quoteHeader):])
	case quoteIdx >= 0:
		// The model dropped the ANSWER header or emitted it after QUOTE.
		rest := text[quoteIdx+len(quoteHeader):]
		if tailIdx := strings.Index(rest, answerHeader); tailIdx >= 0 {
			quote = strings.TrimSpace(rest[:tailIdx])
			answer = strings.TrimSpace(rest[tailIdx+len(answerHeader):])
		} else {
			before := strings.ReplaceAll(text[:quoteIdx], answerHeader, "")
			answer = strings.TrimSpace(before)
			quote = strings.TrimSpace(rest)
		}
	default:
		answer = text
	}

	if len(answer) < minAnswerLength {
		answer = text
	}

	return AnswerDraft{
		AnswerText: answer,
		QuoteText:  trimQuoteDecoration(quote),
	}
}

// trimQuoteDecoration strips the brackets and quotation marks models tend to
// wrap the quote in when echoing the requested format literally.
func trimQuoteDecoration(quote string) string {
	quote = strings.TrimSpace(quote)
	if strings.HasPrefix(quote, "[") && strings.HasSuffix(quote, "]") {
		quote = quote[1 : len(quote)-1]
	}
	quote = strings.Trim(quote, "\"“”")
	return strings.TrimSpace(quote)
}
