package pipeline

import (
	"fmt"
	"strings"
)

const promptInstructions = `You are Al-Muwathiq, a Shariah compliance assistant.
Your goal is to answer the user's question using the provided Context.

INSTRUCTIONS:
1. Answer strictly based on the Context below.
2. If the user asks for a definition, you MUST use descriptions of "nature", "concept", or "components" as the definition.
3. If the user asks for a comparison (e.g. "difference between X and Y"), you MUST synthesize the answer by finding the definition of X and the definition of Y in the text, even if they are in different documents.
4. Do not say "I cannot find a specific ruling" unless the Context is completely empty or unrelated.`

const promptOutputContract = `Also, pick the SINGLE best short quote (approx 10-20 words) from the Context that proves your answer.
Return your response in this exact format:
ANSWER: [Your answer]
QUOTE: [The quote]`

// BuildPrompt assembles the full generation prompt: instruction block,
// indexed context entries in hit order, the question, and the ANSWER/QUOTE
// output contract. Pure data transformation, no model calls.
func BuildPrompt(question string, hits []RetrievalHit) string {
	var sb strings.Builder
	sb.WriteString(promptInstructions)
	sb.WriteString("\n\nContext:\n")
	for i, hit := range hits {
		sb.WriteString(fmt.Sprintf("[Source %d] (Page %d): %s\n\n", i, hit.Chunk.PageNumber, hit.Chunk.Text))
	}
	sb.WriteString("Question: ")
	sb.WriteString(question)
	sb.WriteString("\n\n")
	sb.WriteString(promptOutputContract)
	return sb.String()
}
