package web

import (
	"github.com/joestump/refselect/internal/db"
	"github.com/joestump/refselect/internal/gitref"
	"github.com/joestump/refselect/internal/plugin"
)

// --- API Request Types ---

// APIPluginRequest is a plugin envelope plus the calling plugin's ID.
type APIPluginRequest struct {
	PluginID string `json:"plugin_id"`
	plugin.Request
}

// --- API Response Wrappers ---

// APISelectionsResponse wraps a list of selections for JSON API responses.
type APISelectionsResponse struct {
	Selections []APISelection `json:"selections"`
}

// APIRefsResponse wraps parsed references.
type APIRefsResponse struct {
	Refs []gitref.NamedReference `json:"refs"`
}

// APIError is the body of every non-2xx JSON response.
type APIError struct {
	Error string `json:"error"`
}

// APIMalformedRefError names the reference that aborted a selection.
type APIMalformedRefError struct {
	Error string `json:"error"`
	Ref   string `json:"ref"`
}

// --- API Resource Types ---

// APISelection is the JSON representation of an audited selection.
type APISelection struct {
	ID          int64   `json:"id"`
	PluginID    string  `json:"plugin_id"`
	URL         string  `json:"url"`
	Pattern     string  `json:"pattern"`
	Status      string  `json:"status"`
	BranchCount int     `json:"branch_count"`
	Error       *string `json:"error"`
	CreatedAt   string  `json:"created_at"`
}

// --- Conversion Helpers ---

func toAPISelection(s db.Selection) APISelection {
	return APISelection{
		ID:          s.ID,
		PluginID:    s.PluginID,
		URL:         s.URL,
		Pattern:     s.Pattern,
		Status:      s.Status,
		BranchCount: s.BranchCount,
		Error:       s.Error,
		CreatedAt:   s.CreatedAt,
	}
}

func toAPISelections(selections []db.Selection) []APISelection {
	result := make([]APISelection, len(selections))
	for i, s := range selections {
		result[i] = toAPISelection(s)
	}
	return result
}
