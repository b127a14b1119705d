package aggregator

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"

	"github.com/listboard/gateway/internal/observability"
	"github.com/listboard/gateway/internal/util"
)

// DashboardStats are derived purely from already-fetched data; no
// further downstream calls are made to compute them.
type DashboardStats struct {
	TotalLists     int             `json:"total_lists"`
	ActiveLists    int             `json:"active_lists"`
	CompletedLists int             `json:"completed_lists"`
	EstimatedTotal float64         `json:"estimated_total"`
	ItemCount      json.RawMessage `json:"item_count"`
}

// DashboardData is the composite dashboard payload.
type DashboardData struct {
	User        json.RawMessage   `json:"user"`
	Stats       DashboardStats    `json:"stats"`
	RecentLists []json.RawMessage `json:"recent_lists"`
}

// Dashboard assembles the dashboard view. The policy is all-or-nothing:
// the bearer credential is validated against the user backend before
// anything else, and any sub-call failure fails the whole endpoint —
// no partial dashboard is ever returned.
func (a *Aggregator) Dashboard(ctx context.Context, token string) (int, util.Envelope) {
	if token == "" {
		return http.StatusUnauthorized, util.Fail(util.ErrMissingToken.Error())
	}

	user, err := a.client.GetData(ctx, userService, validatePath, token)
	if err != nil {
		a.logger.Warn("dashboard credential validation failed", observability.Error(err))
		return http.StatusUnauthorized, util.Fail(util.ErrInvalidToken.Error())
	}

	// Past the credential gate both fetches are attempted regardless
	// of each other's outcome.
	var (
		wg        sync.WaitGroup
		listsData json.RawMessage
		listsErr  error
		countData json.RawMessage
		countErr  error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		listsData, listsErr = a.client.GetData(ctx, listService, listsPath, token)
	}()
	go func() {
		defer wg.Done()
		countData, countErr = a.client.GetData(ctx, itemService, itemCountPath, token)
	}()
	wg.Wait()

	if listsErr != nil {
		a.logger.Error("dashboard lists fetch failed", observability.Error(listsErr))
		return http.StatusInternalServerError,
			util.Fail("failed to build dashboard: " + listsErr.Error())
	}
	if countErr != nil {
		a.logger.Error("dashboard item count fetch failed", observability.Error(countErr))
		return http.StatusInternalServerError,
			util.Fail("failed to build dashboard: " + countErr.Error())
	}

	lists, err := decodeLists(listsData)
	if err != nil {
		a.logger.Error("dashboard lists payload malformed", observability.Error(err))
		return http.StatusInternalServerError,
			util.Fail("failed to build dashboard: malformed lists payload")
	}

	data := DashboardData{
		User:        user,
		Stats:       computeStats(lists, countData),
		RecentLists: recentLists(lists, 5),
	}
	return http.StatusOK, util.Success(data)
}

// computeStats derives list statistics locally.
func computeStats(lists []ListSummary, itemCount json.RawMessage) DashboardStats {
	stats := DashboardStats{
		TotalLists: len(lists),
		ItemCount:  itemCount,
	}
	for _, ls := range lists {
		switch ls.Status {
		case listStatusActive:
			stats.ActiveLists++
		case listStatusCompleted:
			stats.CompletedLists++
		}
		stats.EstimatedTotal += ls.EstimatedTotal
	}
	return stats
}

// recentLists projects the n most recently updated lists, verbatim.
func recentLists(lists []ListSummary, n int) []json.RawMessage {
	sorted := make([]ListSummary, len(lists))
	copy(sorted, lists)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].UpdatedAt.After(sorted[j].UpdatedAt)
	})

	if len(sorted) > n {
		sorted = sorted[:n]
	}
	out := make([]json.RawMessage, len(sorted))
	for i, ls := range sorted {
		out[i] = ls.Raw
	}
	return out
}
