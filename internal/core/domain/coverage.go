package domain

// CoverageReport summarizes how completely a generated answer used the
// evidence pool it was given.
type CoverageReport struct {
	TotalEvidence  int      `json:"total_evidence_count"`
	ReferencedIDs  []int    `json:"referenced_ids"`
	MissingIDs     []int    `json:"missing_ids"`
	MissingDetails []string `json:"missing_required_details"`
	Regenerations  int      `json:"regenerations"`
	GapAccepted    bool     `json:"gap_accepted"`
}

type CorrectionKind string

const (
	// CorrectionMissingUnits lists evidence indices the answer never cited.
	CorrectionMissingUnits CorrectionKind = "missing_units"
	// CorrectionMissingDetail names required phrases absent from the whole answer.
	CorrectionMissingDetail CorrectionKind = "missing_detail"
	// CorrectionDroppedDetail names phrases acknowledged in the answer body but
	// dropped from the synthesis section.
	CorrectionDroppedDetail CorrectionKind = "dropped_detail"
)

// CorrectionPayload is the structured input of one regeneration attempt.
// Retry logic carries this instead of re-concatenating corrective prose into
// the prior prompt.
type CorrectionPayload struct {
	Kind              CorrectionKind `json:"kind"`
	MissingUnits      []int          `json:"missing_units,omitempty"`
	DetailPhrases     []string       `json:"detail_phrases,omitempty"`
	EvidenceSentences []string       `json:"evidence_sentences,omitempty"`
}
