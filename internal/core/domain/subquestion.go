package domain

type RetrievalStrategy string

const (
	StrategySingleYear RetrievalStrategy = "single_year"
	StrategyMultiYear  RetrievalStrategy = "multi_year"
)

// SubQuestion is one scoped retrieval target. TargetYear is set (non-zero)
// if and only if Strategy is single_year. FromExpansion marks questions
// injected by the relevance gate rather than the decomposer.
type SubQuestion struct {
	Text          string            `json:"text"`
	TargetYear    int               `json:"target_year,omitempty"`
	TargetOrg     string            `json:"target_org,omitempty"`
	Strategy      RetrievalStrategy `json:"retrieval_strategy"`
	FromExpansion bool              `json:"from_expansion,omitempty"`
}

type VariantStrategy string

const (
	VariantVerbatim         VariantStrategy = "verbatim"
	VariantKeywordExtracted VariantStrategy = "keyword_extracted"
	VariantActionAugmented  VariantStrategy = "action_augmented"
)

// QueryVariant is ephemeral: built and discarded within one retrieval call.
type QueryVariant struct {
	Text     string          `json:"text"`
	Strategy VariantStrategy `json:"strategy"`
}
