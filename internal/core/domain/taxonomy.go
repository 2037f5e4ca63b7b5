package domain

// Tag weights are feedback-adjustable but always stay inside this range.
const (
	MinTagWeight = 0.5
	MaxTagWeight = 3.0
)

// TaxonomyTag is a leaf of the concept graph. Keywords drive matching,
// QueryTemplates drive expansion-query generation ({organization} and {year}
// placeholders), ActiveYears/Organizations drive overlap scoring.
type TaxonomyTag struct {
	ID             string   `yaml:"id" json:"id"`
	Name           string   `yaml:"name" json:"name"`
	Keywords       []string `yaml:"keywords" json:"keywords"`
	QueryTemplates []string `yaml:"query_templates" json:"query_templates"`
	ActiveYears    []int    `yaml:"active_years" json:"active_years"`
	Organizations  []string `yaml:"organizations" json:"organizations"`
	Weight         float64  `yaml:"weight" json:"weight"`
}

type TaxonomyDimension struct {
	ID   string        `yaml:"id" json:"id"`
	Name string        `yaml:"name" json:"name"`
	Tags []TaxonomyTag `yaml:"tags" json:"tags"`
}

type TaxonomyTopic struct {
	ID         string   `yaml:"id" json:"id"`
	Name       string   `yaml:"name" json:"name"`
	Keywords   []string `yaml:"keywords" json:"keywords"`
	Dimensions []string `yaml:"dimensions" json:"dimensions"`
}

// TaxonomyGraph is the process-wide topic -> dimension -> tag relation.
type TaxonomyGraph struct {
	Topics     []TaxonomyTopic     `yaml:"topics" json:"topics"`
	Dimensions []TaxonomyDimension `yaml:"dimensions" json:"dimensions"`
}

// ClampTagWeight keeps a weight inside [MinTagWeight, MaxTagWeight].
func ClampTagWeight(w float64) float64 {
	if w < MinTagWeight {
		return MinTagWeight
	}
	if w > MaxTagWeight {
		return MaxTagWeight
	}
	return w
}

type ExpansionLevel string

const (
	ExpansionNone      ExpansionLevel = "none"
	ExpansionDimension ExpansionLevel = "dimension"
	ExpansionTag       ExpansionLevel = "tag"
)

// RelevanceGateDecision records whether and how far retrieval is widened
// through the taxonomy.
type RelevanceGateDecision struct {
	Triggered        bool           `json:"triggered"`
	Level            ExpansionLevel `json:"level"`
	Score            int            `json:"score"`
	Reasons          []string       `json:"reasons"`
	ExpansionQueries []string       `json:"expansion_queries"`
}

// TagFeedback is one user signal about an expansion tag's usefulness,
// consumed by the weight-update worker.
type TagFeedback struct {
	TagID   string `json:"tag_id"`
	Helpful bool   `json:"helpful"`
}
