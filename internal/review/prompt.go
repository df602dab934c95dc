package review

import "strings"

const instructions = `You are a strict industry-research report auditor.

Task: decide whether each item under REVIEW CANDIDATES is grounded in
the SOURCE FACTS below.

Rules:
1. If the item is a reasonable summary or paraphrase of the source
   facts, mark it "pass".
2. If the source facts never mention it, mark it "suspect" (likely a
   leftover template line or an error).
Output your verdict for every candidate directly, one per line.`

// BuildPrompt assembles the review request. The reference text is cut
// to maxContextRunes so oversized documents still fit the model's
// context window; candidates are expected to be pre-truncated by the
// caller.
func BuildPrompt(referenceText string, candidates []string, maxContextRunes int) string {
	var sb strings.Builder
	sb.WriteString(instructions)
	sb.WriteString("\n\nSOURCE FACTS:\n")
	sb.WriteString(truncateRunes(referenceText, maxContextRunes))
	sb.WriteString("\n\nREVIEW CANDIDATES:\n")
	for _, c := range candidates {
		sb.WriteString("- ")
		sb.WriteString(c)
		sb.WriteString("\n")
	}
	return sb.String()
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
