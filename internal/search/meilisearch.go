// Package search mirrors reservations into a Meilisearch index for free-text
// lookups over channel and rate plan.
package search

import (
	"fmt"
	"strings"

	"github.com/meilisearch/meilisearch-go"

	"resale-admin/internal/models"
)

const defaultIndex = "reservations"

// maxHits bounds one id lookup. InitIndex raises the index's maxTotalHits to
// match, otherwise Meilisearch stops at 1000.
const maxHits = 10000

// Document is the indexed shape of a reservation.
type Document struct {
	ID           string `json:"id"`
	PropertyID   string `json:"property_id"`
	PropertyName string `json:"property_name"`
	Source       string `json:"source"`
	ExternalID   string `json:"external_id,omitempty"`
	RatePlan     string `json:"rate_plan,omitempty"`
	Nationality  string `json:"nationality,omitempty"`
	Status       string `json:"status,omitempty"`
	// CheckInDay is yyyymmdd so date ranges filter numerically.
	CheckInDay int `json:"check_in_day,omitempty"`
}

// NewDocument converts a reservation.
func NewDocument(r models.Reservation) Document {
	d := Document{
		ID:           r.ID,
		PropertyID:   r.PropertyID,
		PropertyName: r.PropertyName,
		Source:       r.Source,
		ExternalID:   r.ExternalKey(),
		RatePlan:     r.RatePlan,
		Nationality:  r.Nationality,
	}
	if r.Status != nil {
		d.Status = *r.Status
	}
	if r.CheckIn != nil {
		d.CheckInDay = dayNumber(*r.CheckIn)
	}
	return d
}

type SearchClient struct {
	client *meilisearch.Client
	index  string
}

func NewSearchClient(host, apiKey, index string) *SearchClient {
	client := meilisearch.NewClient(meilisearch.ClientConfig{
		Host:   host,
		APIKey: apiKey,
	})
	if index == "" {
		index = defaultIndex
	}
	return &SearchClient{
		client: client,
		index:  index,
	}
}

// InitIndex creates the index and configures its attributes.
func (s *SearchClient) InitIndex() error {
	_, err := s.client.CreateIndex(&meilisearch.IndexConfig{
		Uid:        s.index,
		PrimaryKey: "id",
	})
	// Ignore error if index already exists
	if err != nil && !strings.Contains(err.Error(), "index_already_exists") {
		return err
	}

	_, err = s.client.Index(s.index).UpdateSearchableAttributes(&[]string{
		"source",
		"rate_plan",
	})
	if err != nil {
		return err
	}

	_, err = s.client.Index(s.index).UpdatePagination(&meilisearch.Pagination{
		MaxTotalHits: maxHits,
	})
	if err != nil {
		return err
	}

	_, err = s.client.Index(s.index).UpdateFilterableAttributes(&[]string{
		"property_id",
		"source",
		"status",
		"check_in_day",
	})
	return err
}

// IndexReservations adds or replaces the documents of rs.
func (s *SearchClient) IndexReservations(rs []models.Reservation) error {
	if len(rs) == 0 {
		return nil
	}
	docs := make([]Document, len(rs))
	for i, r := range rs {
		docs[i] = NewDocument(r)
	}
	_, err := s.client.Index(s.index).AddDocuments(docs, "id")
	return err
}

// Clear removes every document, used by the dataset reset.
func (s *SearchClient) Clear() error {
	_, err := s.client.Index(s.index).DeleteAllDocuments()
	return err
}

// SearchIDs returns the ids of reservations matching query and the
// structured part of f. f.Search is ignored in favor of query.
func (s *SearchClient) SearchIDs(query string, f models.ReservationFilter) ([]string, error) {
	req := &meilisearch.SearchRequest{
		Limit:                maxHits,
		AttributesToRetrieve: []string{"id"},
	}
	if filter := BuildFilter(f); filter != "" {
		req.Filter = filter
	}

	res, err := s.client.Index(s.index).Search(query, req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	ids := make([]string, 0, len(res.Hits))
	for _, hit := range res.Hits {
		m, ok := hit.(map[string]interface{})
		if !ok {
			continue
		}
		if id, ok := m["id"].(string); ok && id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Healthy reports whether the server answers.
func (s *SearchClient) Healthy() bool {
	return s.client.IsHealthy()
}
