package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"resale-admin/internal/models"
	"resale-admin/internal/store"
	"resale-admin/internal/week"
)

// Searcher resolves free-text queries to reservation ids.
type Searcher interface {
	SearchIDs(query string, f models.ReservationFilter) ([]string, error)
}

// ReservationHandler handles reservation listing
type ReservationHandler struct {
	repo     store.ReservationRepository
	searcher Searcher
}

// NewReservationHandler creates a new reservation handler. searcher may be nil.
func NewReservationHandler(repo store.ReservationRepository, searcher Searcher) *ReservationHandler {
	return &ReservationHandler{repo: repo, searcher: searcher}
}

// parseFilter reads property_id, source, from, to and q.
func parseFilter(c *gin.Context) (models.ReservationFilter, error) {
	f := models.ReservationFilter{
		PropertyID: strings.TrimSpace(c.Query("property_id")),
		Source:     strings.TrimSpace(c.Query("source")),
		Search:     strings.TrimSpace(c.Query("q")),
	}
	if s := c.Query("from"); s != "" {
		t, ok := week.ParseDate(s)
		if !ok {
			return f, fmt.Errorf("invalid from date: %q", s)
		}
		f.From = &t
	}
	if s := c.Query("to"); s != "" {
		t, ok := week.ParseDate(s)
		if !ok {
			return f, fmt.Errorf("invalid to date: %q", s)
		}
		f.To = &t
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return f, errors.New("from must not be after to")
	}
	return f, nil
}

// fetchReservations loads the reservations matching f. When a searcher is
// configured its hits narrow the candidates, and f is still applied to them so
// q keeps its substring meaning over source and rate plan.
func fetchReservations(ctx context.Context, repo store.ReservationRepository, searcher Searcher, f models.ReservationFilter) ([]models.Reservation, error) {
	if searcher == nil || f.Search == "" {
		return repo.ListReservations(ctx, f)
	}

	ids, err := searcher.SearchIDs(f.Search, f)
	if err != nil {
		log.Printf("Search unavailable, falling back to in-process filter: %v", err)
		return repo.ListReservations(ctx, f)
	}

	structured := f
	structured.Search = ""
	rs, err := repo.ListReservations(ctx, structured)
	if err != nil {
		return nil, err
	}

	hits := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		hits[id] = struct{}{}
	}
	matched := rs[:0]
	for i := range rs {
		if _, ok := hits[rs[i].ID]; ok && f.Matches(&rs[i]) {
			matched = append(matched, rs[i])
		}
	}
	return matched, nil
}

// ListReservations returns reservations matching the query filter
func (h *ReservationHandler) ListReservations(c *gin.Context) {
	f, err := parseFilter(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	rs, err := fetchReservations(c.Request.Context(), h.repo, h.searcher, f)
	if err != nil {
		respondError(c, err)
		return
	}

	total := len(rs)
	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			badRequest(c, "invalid limit")
			return
		}
		if limit > 0 && limit < len(rs) {
			rs = rs[:limit]
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"reservations": rs,
		"count":        len(rs),
		"total":        total,
	})
}
