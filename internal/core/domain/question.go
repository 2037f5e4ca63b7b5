package domain

import "time"

type Intent string

const (
	IntentSimple  Intent = "simple"
	IntentComplex Intent = "complex"
)

type QuestionType string

const (
	TypeFact       QuestionType = "fact"
	TypeSummary    QuestionType = "summary"
	TypeComparison QuestionType = "comparison"
	TypeTrend      QuestionType = "trend"
	TypeChange     QuestionType = "change"
)

// Question is immutable once created; components derive from it, never mutate it.
type Question struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Language  string    `json:"language"`
	CreatedAt time.Time `json:"created_at"`
}

// ExtractedParameters holds the structured view of a question. When IsDiscrete
// is set, SpecificYears lists exactly the years the question names and must
// never be expanded to a contiguous range.
type ExtractedParameters struct {
	StartYear     int      `json:"start_year"`
	EndYear       int      `json:"end_year"`
	SpecificYears []int    `json:"specific_years"`
	IsDiscrete    bool     `json:"is_discrete"`
	Organizations []string `json:"organizations"`
	Persons       []string `json:"persons"`
	Topics        []string `json:"topics"`
}

// Years returns the retrieval partitions this question spans: the discrete
// years when set, otherwise the contiguous [StartYear, EndYear] range.
func (p ExtractedParameters) Years() []int {
	if len(p.SpecificYears) > 0 {
		out := make([]int, len(p.SpecificYears))
		copy(out, p.SpecificYears)
		return out
	}
	if p.StartYear == 0 || p.EndYear < p.StartYear {
		return nil
	}
	out := make([]int, 0, p.EndYear-p.StartYear+1)
	for y := p.StartYear; y <= p.EndYear; y++ {
		out = append(out, y)
	}
	return out
}

// YearSpan is the width of the addressed time range in years.
func (p ExtractedParameters) YearSpan() int {
	years := p.Years()
	if len(years) == 0 {
		return 0
	}
	minY, maxY := years[0], years[0]
	for _, y := range years[1:] {
		if y < minY {
			minY = y
		}
		if y > maxY {
			maxY = y
		}
	}
	return maxY - minY
}

// ClassifierVerdict is the structured output of the probabilistic intent
// classifier. Deterministic extraction always wins over it on conflict.
type ClassifierVerdict struct {
	Intent        Intent       `json:"intent"`
	QuestionType  QuestionType `json:"question_type"`
	Years         []int        `json:"years"`
	Organizations []string     `json:"organizations"`
	Persons       []string     `json:"persons"`
	Topics        []string     `json:"topics"`
}
