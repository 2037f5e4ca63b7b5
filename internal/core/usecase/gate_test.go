package usecase

import (
	"strings"
	"testing"

	"github.com/plenumlab/speechqa/internal/core/domain"
	"github.com/plenumlab/speechqa/internal/taxonomy"
)

func testGraph() *domain.TaxonomyGraph {
	return &domain.TaxonomyGraph{
		Topics: []domain.TaxonomyTopic{
			{
				ID:         "klimapolitik",
				Name:       "Klimapolitik",
				Keywords:   []string{"klima", "energiewende"},
				Dimensions: []string{"klima-massnahmen"},
			},
		},
		Dimensions: []domain.TaxonomyDimension{
			{
				ID:   "klima-massnahmen",
				Name: "Klimapolitische Maßnahmen",
				Tags: []domain.TaxonomyTag{
					{
						ID:             "kohleausstieg",
						Name:           "Kohleausstieg",
						Keywords:       []string{"kohleausstieg", "kohlekraftwerk"},
						QueryTemplates: []string{"Kohleausstieg Position {organization} {year}", "Kohleausstieg Debatte {year}"},
						ActiveYears:    []int{2018, 2019, 2020},
						Organizations:  []string{"SPD", "BÜNDNIS 90/DIE GRÜNEN"},
						Weight:         1.0,
					},
					{
						ID:             "tempolimit",
						Name:           "Tempolimit",
						Keywords:       []string{"tempolimit"},
						QueryTemplates: []string{"Tempolimit Debatte {year}"},
						ActiveYears:    []int{2019, 2020},
						Weight:         1.0,
					},
				},
			},
		},
	}
}

func newTestGate(t *testing.T, cfg GateConfig) *RelevanceGate {
	t.Helper()
	return NewRelevanceGate(taxonomy.NewStore(testGraph()), cfg)
}

func complexParams() domain.ExtractedParameters {
	return domain.ExtractedParameters{
		SpecificYears: []int{2018, 2019, 2020},
		StartYear:     2018,
		EndYear:       2020,
		Organizations: []string{"SPD", "BÜNDNIS 90/DIE GRÜNEN"},
		Topics:        []string{"Klimapolitik"},
	}
}

func TestGateNoSignalsNoExpansion(t *testing.T) {
	gate := newTestGate(t, GateConfig{})

	decision := gate.Evaluate(
		domain.Question{Text: "Wann tagt der Bundestag?"},
		domain.IntentSimple,
		domain.TypeFact,
		domain.ExtractedParameters{},
	)

	if decision.Triggered || decision.Level != domain.ExpansionNone || decision.Score != 0 {
		t.Fatalf("expected no expansion, got %+v", decision)
	}
}

func TestGateDimensionLevelBelowThreshold(t *testing.T) {
	gate := newTestGate(t, GateConfig{ExpansionThreshold: 5})

	decision := gate.Evaluate(
		domain.Question{Text: "Position der SPD zur Pflege"},
		domain.IntentComplex,
		domain.TypeSummary,
		domain.ExtractedParameters{Organizations: []string{"SPD"}},
	)

	if !decision.Triggered || decision.Level != domain.ExpansionDimension {
		t.Fatalf("expected dimension-level expansion, got %+v", decision)
	}
	if len(decision.ExpansionQueries) != 0 {
		t.Fatalf("dimension level must not emit tag queries")
	}
}

func TestGateTagLevelEmitsExpansionQueries(t *testing.T) {
	gate := newTestGate(t, GateConfig{ExpansionThreshold: 5})

	decision := gate.Evaluate(
		domain.Question{Text: "Wie stand die SPD zum Kohleausstieg 2018 im Vergleich zu 2020?"},
		domain.IntentComplex,
		domain.TypeComparison,
		complexParams(),
	)

	if decision.Level != domain.ExpansionTag {
		t.Fatalf("expected tag-level expansion, score = %d, got %+v", decision.Score, decision)
	}
	if len(decision.ExpansionQueries) == 0 {
		t.Fatalf("tag level must emit expansion queries")
	}
	for _, q := range decision.ExpansionQueries {
		if strings.Contains(q, "{organization}") || strings.Contains(q, "{year}") {
			t.Fatalf("unrendered placeholder in query %q", q)
		}
	}
}

func TestGateScoringIsDeterministic(t *testing.T) {
	gate := newTestGate(t, GateConfig{})
	question := domain.Question{Text: "Wie stand die SPD zum Kohleausstieg 2018 im Vergleich zu 2020?"}

	first := gate.Evaluate(question, domain.IntentComplex, domain.TypeComparison, complexParams())
	for i := 0; i < 5; i++ {
		again := gate.Evaluate(question, domain.IntentComplex, domain.TypeComparison, complexParams())
		if again.Score != first.Score || len(again.ExpansionQueries) != len(first.ExpansionQueries) {
			t.Fatalf("gate output changed between runs: %+v vs %+v", first, again)
		}
		for j := range first.ExpansionQueries {
			if first.ExpansionQueries[j] != again.ExpansionQueries[j] {
				t.Fatalf("expansion query order changed between runs")
			}
		}
	}
}

func TestGateScoringIsMonotonic(t *testing.T) {
	gate := newTestGate(t, GateConfig{})
	question := domain.Question{Text: "Position zur Pflege"}

	base := gate.Evaluate(question, domain.IntentSimple, domain.TypeSummary, domain.ExtractedParameters{})
	withIntent := gate.Evaluate(question, domain.IntentComplex, domain.TypeSummary, domain.ExtractedParameters{})
	withOrgs := gate.Evaluate(question, domain.IntentComplex, domain.TypeSummary, domain.ExtractedParameters{
		Organizations: []string{"SPD", "FDP"},
	})

	if withIntent.Score < base.Score {
		t.Fatalf("adding the intent signal lowered the score: %d -> %d", base.Score, withIntent.Score)
	}
	if withOrgs.Score < withIntent.Score {
		t.Fatalf("adding the org signal lowered the score: %d -> %d", withIntent.Score, withOrgs.Score)
	}
}

func TestGateTagWeightInfluencesSelection(t *testing.T) {
	graph := testGraph()
	// Push tempolimit's weight up so it outranks kohleausstieg for a
	// question matching both only via year overlap.
	graph.Dimensions[0].Tags[1].Weight = 3.0
	graph.Dimensions[0].Tags[0].Weight = 0.5
	gate := NewRelevanceGate(taxonomy.NewStore(graph), GateConfig{ExpansionThreshold: 1, TagCap: 1})

	decision := gate.Evaluate(
		domain.Question{Text: "Welche klimapolitischen Debatten gab es 2019 und 2020 mit konkreten Beispielen?"},
		domain.IntentComplex,
		domain.TypeSummary,
		domain.ExtractedParameters{
			SpecificYears: []int{2019, 2020},
			StartYear:     2019,
			EndYear:       2020,
			Topics:        []string{"Klimapolitik"},
		},
	)

	if decision.Level != domain.ExpansionTag {
		t.Fatalf("expected tag-level expansion, got %+v", decision)
	}
	for _, q := range decision.ExpansionQueries {
		if !strings.Contains(q, "Tempolimit") {
			t.Fatalf("highest-weighted tag must win the cap, got query %q", q)
		}
	}
}

func TestGateQueryCapHolds(t *testing.T) {
	gate := newTestGate(t, GateConfig{ExpansionThreshold: 1, QueryCap: 3})

	decision := gate.Evaluate(
		domain.Question{Text: "Wie stand die SPD zum Kohleausstieg 2018 im Vergleich zu 2020?"},
		domain.IntentComplex,
		domain.TypeComparison,
		complexParams(),
	)

	if len(decision.ExpansionQueries) > 3 {
		t.Fatalf("expansion queries exceed cap: %d", len(decision.ExpansionQueries))
	}
}
