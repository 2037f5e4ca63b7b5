package domain

// EvidenceUnit is one retrieved speech span with similarity score and source
// metadata. Owned by its RetrievalResult and immutable after creation.
type EvidenceUnit struct {
	ID           string  `json:"id"`
	Text         string  `json:"text"`
	Score        float64 `json:"score"`
	Year         int     `json:"year"`
	Organization string  `json:"organization"`
	Speaker      string  `json:"speaker"`
	Date         string  `json:"date"`
	Source       string  `json:"source"`
}

// RetrievalResult carries the merged, score-descending evidence for one
// sub-question. A result with zero evidence is valid and distinct from a
// failed retrieval call.
type RetrievalResult struct {
	SubQuestion   SubQuestion    `json:"sub_question"`
	Evidence      []EvidenceUnit `json:"evidence"`
	YearHistogram map[int]int    `json:"year_histogram"`
	Method        string         `json:"method"`
}

// SearchFilter scopes one search call. Year 0 means unfiltered.
type SearchFilter struct {
	Year         int    `json:"year,omitempty"`
	Organization string `json:"organization,omitempty"`
	Person       string `json:"person,omitempty"`
}
