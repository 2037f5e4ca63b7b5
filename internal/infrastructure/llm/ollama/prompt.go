package ollama

import (
	"fmt"
	"strings"

	"github.com/plenumlab/speechqa/internal/core/domain"
)

func buildClassificationPrompt(question string) string {
	const maxSnippet = 2000
	snippet := question
	if len(snippet) > maxSnippet {
		snippet = snippet[:maxSnippet]
	}

	return `You classify questions about German parliamentary debates.
Return strict JSON object with keys:
intent ("simple" or "complex"), question_type ("fact", "summary", "comparison", "trend" or "change"),
years (array of integers), organizations (array of strings), persons (array of strings), topics (array of strings).
No markdown, no extra keys.

Question:
` + snippet
}

func buildAnswerPrompt(question string, evidence []domain.EvidenceUnit) string {
	return fmt.Sprintf(`Answer the question about parliamentary debates using only the numbered evidence below.
Reference evidence with bracketed numbers, e.g. [3]. Use every evidence unit at least once.
Close with a "## Synthesis" section summarizing the overall picture.
If the evidence is insufficient, say so directly.

Question:
%s

Evidence:
%s`, question, renderEvidence(evidence))
}

// buildCorrectionPrompt renders one structured correction into a targeted
// revision instruction instead of concatenating prose onto the old prompt.
func buildCorrectionPrompt(question string, evidence []domain.EvidenceUnit, previous string, correction domain.CorrectionPayload) string {
	var instruction strings.Builder
	switch correction.Kind {
	case domain.CorrectionMissingUnits:
		instruction.WriteString("The previous answer never referenced these evidence units: ")
		for i, n := range correction.MissingUnits {
			if i > 0 {
				instruction.WriteString(", ")
			}
			fmt.Fprintf(&instruction, "[%d]", n)
		}
		instruction.WriteString(". Rewrite the answer so each of them is discussed and referenced.")
	case domain.CorrectionMissingDetail:
		instruction.WriteString("The previous answer omitted these required details entirely: ")
		instruction.WriteString(strings.Join(correction.DetailPhrases, ", "))
		instruction.WriteString(". Rewrite the answer so each detail is covered.")
	case domain.CorrectionDroppedDetail:
		instruction.WriteString("The previous answer mentions these details but drops them from the synthesis section: ")
		instruction.WriteString(strings.Join(correction.DetailPhrases, ", "))
		instruction.WriteString(". Rewrite the synthesis so they are included.")
		if len(correction.EvidenceSentences) > 0 {
			instruction.WriteString("\nSource sentences:\n")
			for _, sentence := range correction.EvidenceSentences {
				fmt.Fprintf(&instruction, "- %s\n", sentence)
			}
		}
	default:
		instruction.WriteString("Revise the previous answer to fully cover the evidence.")
	}

	return fmt.Sprintf(`Revise the answer below. Keep what is correct, fix only the listed gap.
Keep bracketed evidence references and the "## Synthesis" section.

%s

Question:
%s

Evidence:
%s
Previous answer:
%s`, instruction.String(), question, renderEvidence(evidence), previous)
}

func renderEvidence(evidence []domain.EvidenceUnit) string {
	var b strings.Builder
	for idx, unit := range evidence {
		fmt.Fprintf(&b, "[%d] year=%d organization=%s speaker=%s score=%.3f\n%s\n\n",
			idx+1,
			unit.Year,
			unit.Organization,
			unit.Speaker,
			unit.Score,
			unit.Text,
		)
	}
	return b.String()
}
