package aggregator

import (
	"encoding/json"
	"time"

	"github.com/listboard/gateway/internal/observability"
)

// Downstream service names and paths the aggregator depends on.
const (
	userService = "user-service"
	itemService = "item-service"
	listService = "list-service"

	validatePath  = "/auth/validate"
	listsPath     = "/lists"
	itemCountPath = "/items/count"
	itemQueryPath = "/items/search"
)

// Aggregator drives multi-backend round trips for composite endpoints.
type Aggregator struct {
	client *Client
	logger observability.Logger
}

// New creates an aggregator on top of the given downstream client.
func New(client *Client, logger observability.Logger) *Aggregator {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Aggregator{client: client, logger: logger}
}

// ListSummary is the slice of a list record the dashboard statistics
// are computed from. Unknown backend fields are ignored.
type ListSummary struct {
	ID             int             `json:"id"`
	Name           string          `json:"name"`
	Status         string          `json:"status"`
	EstimatedTotal float64         `json:"estimated_total"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Raw            json.RawMessage `json:"-"`
}

// List statuses recognised by the dashboard statistics.
const (
	listStatusActive    = "active"
	listStatusCompleted = "completed"
)

// decodeLists unpacks a lists payload preserving each entry verbatim
// for relay alongside the parsed summary fields.
func decodeLists(data json.RawMessage) ([]ListSummary, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, err
	}

	lists := make([]ListSummary, 0, len(raws))
	for _, raw := range raws {
		var ls ListSummary
		if err := json.Unmarshal(raw, &ls); err != nil {
			return nil, err
		}
		ls.Raw = raw
		lists = append(lists, ls)
	}
	return lists, nil
}
