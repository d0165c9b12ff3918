// Package models holds the request and response shapes shared by the server and CLI.
package models

// FilterRequest is the body of a filter application request.
// Args follow Input positionally, as in a template binding.
type FilterRequest struct {
	Input any   `json:"input"`
	Args  []any `json:"args,omitempty"`
}

// FilterResult is the outcome of applying a filter.
type FilterResult struct {
	Filter string `json:"filter"`
	Input  string `json:"input"`
	Output string `json:"output"`
}

// FilterInfo describes a registered filter.
type FilterInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// FilterList is the response for listing filters.
type FilterList struct {
	Filters []FilterInfo `json:"filters"`
}
