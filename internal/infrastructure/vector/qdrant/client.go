package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/plenumlab/speechqa/internal/core/domain"
)

// Client searches the speech corpus collection over the qdrant HTTP API.
// Indexing is owned by the ingestion pipeline; this side only reads.
type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
}

func New(baseURL, collection string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) Search(
	ctx context.Context,
	vector []float32,
	filter domain.SearchFilter,
	topK int,
) ([]domain.EvidenceUnit, error) {
	if topK <= 0 {
		topK = 10
	}

	reqBody := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	if must := buildMustFilter(filter); len(must) > 0 {
		reqBody["filter"] = map[string]any{"must": must}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("qdrant search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if msg := strings.TrimSpace(string(respBody)); msg != "" {
			return nil, fmt.Errorf("qdrant search status: %s: %s", resp.Status, msg)
		}
		return nil, fmt.Errorf("qdrant search status: %s", resp.Status)
	}

	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := make([]domain.EvidenceUnit, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		unit, ok := unitFromPayload(r.Score, r.Payload)
		if !ok {
			// Malformed points are dropped at this boundary instead of
			// letting half-empty units flow downstream.
			continue
		}
		out = append(out, unit)
	}
	return out, nil
}

func buildMustFilter(filter domain.SearchFilter) []map[string]any {
	must := make([]map[string]any, 0, 3)
	if filter.Year != 0 {
		must = append(must, map[string]any{
			"key":   "year",
			"match": map[string]any{"value": filter.Year},
		})
	}
	if filter.Organization != "" {
		must = append(must, map[string]any{
			"key":   "organization",
			"match": map[string]any{"value": filter.Organization},
		})
	}
	if filter.Person != "" {
		must = append(must, map[string]any{
			"key":   "speaker",
			"match": map[string]any{"value": filter.Person},
		})
	}
	return must
}

// unitFromPayload validates the point at the retrieval boundary: a unit
// without id or year cannot participate in merging or stratification.
func unitFromPayload(score float64, payload map[string]any) (domain.EvidenceUnit, bool) {
	unit := domain.EvidenceUnit{
		ID:           getStringPayload(payload, "speech_id"),
		Text:         getStringPayload(payload, "text"),
		Year:         getIntPayload(payload, "year"),
		Organization: getStringPayload(payload, "organization"),
		Speaker:      getStringPayload(payload, "speaker"),
		Date:         getStringPayload(payload, "date"),
		Source:       getStringPayload(payload, "source"),
		Score:        score,
	}
	if unit.ID == "" || unit.Year == 0 {
		return domain.EvidenceUnit{}, false
	}
	return unit, true
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func getIntPayload(payload map[string]any, key string) int {
	switch v := payload[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	default:
		return 0
	}
}
