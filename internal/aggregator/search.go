package aggregator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/listboard/gateway/internal/observability"
	"github.com/listboard/gateway/internal/util"
)

// Section is one named slice of a search response. Exactly one of
// Results and Error is set.
type Section struct {
	Results json.RawMessage `json:"results,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// SearchData is the composite search payload. The lists section is
// present only when the caller supplied a credential.
type SearchData struct {
	Query string   `json:"query"`
	Items *Section `json:"items,omitempty"`
	Lists *Section `json:"lists,omitempty"`
}

// Search runs a global search. Unlike the dashboard, the policy is
// partial-tolerant: each sub-query's failure is captured in its own
// section and the response still reports overall success with
// whichever sections succeeded.
func (a *Aggregator) Search(ctx context.Context, query, token string) (int, util.Envelope) {
	if query == "" {
		return http.StatusBadRequest, util.Fail("missing required query parameter q")
	}

	data := SearchData{Query: query}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		data.Items = a.searchItems(ctx, query)
	}()

	if token != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			data.Lists = a.searchLists(ctx, query, token)
		}()
	}
	wg.Wait()

	return http.StatusOK, util.Success(data)
}

// searchItems queries the item backend, capturing failure into the
// section rather than propagating it.
func (a *Aggregator) searchItems(ctx context.Context, query string) *Section {
	path := itemQueryPath + "?q=" + url.QueryEscape(query)
	results, err := a.client.GetData(ctx, itemService, path, "")
	if err != nil {
		a.logger.Warn("item search failed", observability.Error(err))
		return &Section{Error: err.Error()}
	}
	return &Section{Results: results}
}

// searchLists fetches the caller's lists and filters them client-side
// by case-insensitive substring match on the name.
func (a *Aggregator) searchLists(ctx context.Context, query, token string) *Section {
	listsData, err := a.client.GetData(ctx, listService, listsPath, token)
	if err != nil {
		a.logger.Warn("list search failed", observability.Error(err))
		return &Section{Error: err.Error()}
	}

	lists, err := decodeLists(listsData)
	if err != nil {
		a.logger.Warn("list search payload malformed", observability.Error(err))
		return &Section{Error: "malformed lists payload"}
	}

	needle := strings.ToLower(query)
	matches := make([]json.RawMessage, 0, len(lists))
	for _, ls := range lists {
		if strings.Contains(strings.ToLower(ls.Name), needle) {
			matches = append(matches, ls.Raw)
		}
	}

	results, err := json.Marshal(matches)
	if err != nil {
		return &Section{Error: "failed to encode list matches"}
	}
	return &Section{Results: results}
}
