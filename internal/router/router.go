// Package router resolves inbound request paths to downstream service
// names via a static path-prefix table.
package router

import (
	"sort"
	"strings"
)

// Route binds a path prefix to a logical service name. The prefix is
// stripped before forwarding.
type Route struct {
	Prefix  string
	Service string
}

// Table is an immutable ordered prefix table. Longer prefixes win so
// that /api/items/export and /api/items can coexist.
type Table struct {
	routes []Route
}

// NewTable builds a table from the given routes.
func NewTable(routes []Route) *Table {
	sorted := make([]Route, len(routes))
	copy(sorted, routes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Prefix) > len(sorted[j].Prefix)
	})
	return &Table{routes: sorted}
}

// DefaultTable returns the gateway's static routing table.
func DefaultTable() *Table {
	return NewTable([]Route{
		{Prefix: "/api/auth", Service: "user-service"},
		{Prefix: "/api/users", Service: "user-service"},
		{Prefix: "/api/items", Service: "item-service"},
		{Prefix: "/api/lists", Service: "list-service"},
	})
}

// Match returns the route whose prefix matches the path at a segment
// boundary, or false if no route matches.
func (t *Table) Match(path string) (Route, bool) {
	for _, route := range t.routes {
		if matchesPrefix(path, route.Prefix) {
			return route, true
		}
	}
	return Route{}, false
}

// Routes returns a copy of the table's routes.
func (t *Table) Routes() []Route {
	out := make([]Route, len(t.routes))
	copy(out, t.routes)
	return out
}

// StripPrefix removes the route's prefix from the path, yielding the
// downstream path. The result always starts with a slash.
func (r Route) StripPrefix(path string) string {
	stripped := strings.TrimPrefix(path, r.Prefix)
	if !strings.HasPrefix(stripped, "/") {
		stripped = "/" + stripped
	}
	return stripped
}

// matchesPrefix checks a prefix match at a path segment boundary.
func matchesPrefix(path, prefix string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	if len(path) == len(prefix) {
		return true
	}
	return strings.HasSuffix(prefix, "/") || path[len(prefix)] == '/'
}
