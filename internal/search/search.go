// Package search backs the admin UI's jump-to-context box: it finds
// categories, courses, modules and blocks by display name so an admin
// can land on the right registry node without walking the tree.
package search

// Result is a single context hit returned to the caller.
type Result struct {
	ContextID int64  `json:"contextid"`
	Level     int    `json:"contextlevel"`
	Name      string `json:"name"`
}

// Query describes a search request.
type Query struct {
	Text   string
	Limit  int
	Offset int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a context search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// ContextRecord is the data we index for a context.
type ContextRecord struct {
	ContextID int64  `json:"contextid"`
	Level     int    `json:"contextlevel"`
	Name      string `json:"name"`
}
