package domain

import "time"

// AskRequest is one incoming question with optional hard filters.
type AskRequest struct {
	Question     string `json:"question"`
	Organization string `json:"organization,omitempty"`
	Person       string `json:"person,omitempty"`
	TopK         int    `json:"top_k,omitempty"`
}

// AskResult is the full outcome of one pipeline run.
type AskResult struct {
	RunID            string                `json:"run_id"`
	Question         string                `json:"question"`
	Intent           Intent                `json:"intent"`
	QuestionType     QuestionType          `json:"question_type"`
	Answer           string                `json:"answer"`
	Evidence         []EvidenceUnit        `json:"evidence"`
	SubQuestionCount int                   `json:"sub_question_count"`
	Gate             RelevanceGateDecision `json:"gate"`
	Coverage         CoverageReport        `json:"coverage"`
}

// AskRun is the audit-log row persisted for each pipeline run.
type AskRun struct {
	ID            string
	Question      string
	Intent        Intent
	QuestionType  QuestionType
	SubQuestions  int
	EvidenceCount int
	Regenerations int
	CoverageGap   bool
	Outcome       string
	Duration      time.Duration
	CreatedAt     time.Time
}
