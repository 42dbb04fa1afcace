package models

// CircularRef locates a circular by source and id.
type CircularRef struct {
	Source string `json:"source"`
	ID     string `json:"id"`
}

// ProductHit is a product search match, with a best-effort pointer to one
// circular whose analysis references it.
type ProductHit struct {
	Product
	RelatedCircular *CircularRef `json:"related_circular,omitempty"`
}

// ClientHit is a client search match, same related-circular semantics.
type ClientHit struct {
	Client
	RelatedCircular *CircularRef `json:"related_circular,omitempty"`
}

// SearchResults holds the three capped result lists for one search term.
type SearchResults struct {
	Circulars []Circular   `json:"circulars"`
	Products  []ProductHit `json:"products"`
	Clients   []ClientHit  `json:"clients"`
}

// EmptySearchResults returns a result set with empty (not nil) lists so the
// JSON shape is stable for sub-threshold terms.
func EmptySearchResults() *SearchResults {
	return &SearchResults{
		Circulars: []Circular{},
		Products:  []ProductHit{},
		Clients:   []ClientHit{},
	}
}
