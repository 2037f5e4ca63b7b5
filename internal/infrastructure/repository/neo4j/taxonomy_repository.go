// Package neo4j persists the concept taxonomy as a property graph:
// (:Topic)-[:HAS_DIMENSION]->(:Dimension)-[:HAS_TAG]->(:Tag).
package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/plenumlab/speechqa/internal/core/domain"
)

type TaxonomyRepository struct {
	driver   neo4j.DriverWithContext
	database string
}

func NewTaxonomyRepository(driver neo4j.DriverWithContext, database string) *TaxonomyRepository {
	if database == "" {
		database = "neo4j"
	}
	return &TaxonomyRepository{driver: driver, database: database}
}

func Connect(ctx context.Context, uri, user, password string) (neo4j.DriverWithContext, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("verify neo4j connectivity: %w", err)
	}
	return driver, nil
}

func (r *TaxonomyRepository) Load(ctx context.Context) (*domain.TaxonomyGraph, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: r.database,
		AccessMode:   neo4j.AccessModeRead,
	})
	defer session.Close(ctx)

	graph, err := neo4j.ExecuteRead(ctx, session, func(tx neo4j.ManagedTransaction) (*domain.TaxonomyGraph, error) {
		topics, err := loadTopics(ctx, tx)
		if err != nil {
			return nil, err
		}
		dimensions, err := loadDimensions(ctx, tx)
		if err != nil {
			return nil, err
		}
		return &domain.TaxonomyGraph{Topics: topics, Dimensions: dimensions}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("load taxonomy: %w", err)
	}
	return graph, nil
}

func loadTopics(ctx context.Context, tx neo4j.ManagedTransaction) ([]domain.TaxonomyTopic, error) {
	result, err := tx.Run(ctx, `
MATCH (t:Topic)
OPTIONAL MATCH (t)-[:HAS_DIMENSION]->(d:Dimension)
RETURN t.id AS id, t.name AS name, t.keywords AS keywords, collect(d.id) AS dimensions
ORDER BY id
`, nil)
	if err != nil {
		return nil, err
	}

	var topics []domain.TaxonomyTopic
	for result.Next(ctx) {
		record := result.Record()
		topics = append(topics, domain.TaxonomyTopic{
			ID:         stringValue(record, "id"),
			Name:       stringValue(record, "name"),
			Keywords:   stringSlice(record, "keywords"),
			Dimensions: stringSlice(record, "dimensions"),
		})
	}
	return topics, result.Err()
}

func loadDimensions(ctx context.Context, tx neo4j.ManagedTransaction) ([]domain.TaxonomyDimension, error) {
	result, err := tx.Run(ctx, `
MATCH (d:Dimension)
OPTIONAL MATCH (d)-[:HAS_TAG]->(tag:Tag)
RETURN d.id AS id, d.name AS name,
	collect({
		id: tag.id, name: tag.name, keywords: tag.keywords,
		query_templates: tag.query_templates, active_years: tag.active_years,
		organizations: tag.organizations, weight: tag.weight
	}) AS tags
ORDER BY id
`, nil)
	if err != nil {
		return nil, err
	}

	var dimensions []domain.TaxonomyDimension
	for result.Next(ctx) {
		record := result.Record()
		dimensions = append(dimensions, domain.TaxonomyDimension{
			ID:   stringValue(record, "id"),
			Name: stringValue(record, "name"),
			Tags: tagSlice(record),
		})
	}
	return dimensions, result.Err()
}

// Persist replaces the stored graph with the given one. Tag weights travel
// with the graph, so feedback-adjusted weights survive restarts.
func (r *TaxonomyRepository) Persist(ctx context.Context, graph *domain.TaxonomyGraph) error {
	if graph == nil {
		return fmt.Errorf("nil taxonomy graph")
	}

	session := r.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: r.database,
		AccessMode:   neo4j.AccessModeWrite,
	})
	defer session.Close(ctx)

	_, err := neo4j.ExecuteWrite(ctx, session, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, topic := range graph.Topics {
			if _, err := tx.Run(ctx, `
MERGE (t:Topic {id: $id})
SET t.name = $name, t.keywords = $keywords
`, map[string]any{
				"id":       topic.ID,
				"name":     topic.Name,
				"keywords": topic.Keywords,
			}); err != nil {
				return nil, err
			}
		}

		for _, dim := range graph.Dimensions {
			if _, err := tx.Run(ctx, `
MERGE (d:Dimension {id: $id})
SET d.name = $name
`, map[string]any{"id": dim.ID, "name": dim.Name}); err != nil {
				return nil, err
			}

			for _, tag := range dim.Tags {
				if _, err := tx.Run(ctx, `
MATCH (d:Dimension {id: $dimension_id})
MERGE (tag:Tag {id: $id})
SET tag.name = $name, tag.keywords = $keywords, tag.query_templates = $query_templates,
	tag.active_years = $active_years, tag.organizations = $organizations, tag.weight = $weight
MERGE (d)-[:HAS_TAG]->(tag)
`, map[string]any{
					"dimension_id":    dim.ID,
					"id":              tag.ID,
					"name":            tag.Name,
					"keywords":        tag.Keywords,
					"query_templates": tag.QueryTemplates,
					"active_years":    intsToInt64(tag.ActiveYears),
					"organizations":   tag.Organizations,
					"weight":          domain.ClampTagWeight(tag.Weight),
				}); err != nil {
					return nil, err
				}
			}
		}

		for _, topic := range graph.Topics {
			for _, dimID := range topic.Dimensions {
				if _, err := tx.Run(ctx, `
MATCH (t:Topic {id: $topic_id}), (d:Dimension {id: $dimension_id})
MERGE (t)-[:HAS_DIMENSION]->(d)
`, map[string]any{"topic_id": topic.ID, "dimension_id": dimID}); err != nil {
					return nil, err
				}
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("persist taxonomy: %w", err)
	}
	return nil
}

func stringValue(record *neo4j.Record, key string) string {
	v, ok := record.Get(key)
	if !ok || v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

func stringSlice(record *neo4j.Record, key string) []string {
	v, ok := record.Get(key)
	if !ok || v == nil {
		return nil
	}
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func tagSlice(record *neo4j.Record) []domain.TaxonomyTag {
	v, ok := record.Get("tags")
	if !ok || v == nil {
		return nil
	}
	raw, ok := v.([]any)
	if !ok {
		return nil
	}

	tags := make([]domain.TaxonomyTag, 0, len(raw))
	for _, item := range raw {
		props, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id, _ := props["id"].(string)
		if id == "" {
			// collect() emits one all-null map for tagless dimensions.
			continue
		}
		name, _ := props["name"].(string)
		weight, _ := props["weight"].(float64)
		tags = append(tags, domain.TaxonomyTag{
			ID:             id,
			Name:           name,
			Keywords:       anySlice(props["keywords"]),
			QueryTemplates: anySlice(props["query_templates"]),
			ActiveYears:    anyIntSlice(props["active_years"]),
			Organizations:  anySlice(props["organizations"]),
			Weight:         domain.ClampTagWeight(weight),
		})
	}
	return tags
}

func anySlice(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func anyIntSlice(v any) []int {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]int, 0, len(raw))
	for _, item := range raw {
		if n, ok := item.(int64); ok {
			out = append(out, int(n))
		}
	}
	return out
}

func intsToInt64(values []int) []int64 {
	out := make([]int64, len(values))
	for i, v := range values {
		out[i] = int64(v)
	}
	return out
}
