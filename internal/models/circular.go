package models

// Circular is a regulatory notice as stored in a {source}_circulars
// collection. Documents are created by the ingestion pipeline and are
// read-only from this service's perspective.
type Circular struct {
	ID          string `bson:"_id" json:"id"`
	Title       string `bson:"title" json:"title"`
	Date        string `bson:"date" json:"date"` // display string, e.g. "29-12-2021" or "Dec 29, 2021"
	Description string `bson:"description,omitempty" json:"description,omitempty"`
	DocumentURL string `bson:"document_url,omitempty" json:"document_url,omitempty"`
	PDFURL      string `bson:"pdf_url,omitempty" json:"pdf_url,omitempty"`
	Priority    bool   `bson:"priority,omitempty" json:"priority,omitempty"`

	// Written by the ingestion pipeline alongside the display fields.
	// DateSort is the ISO day key used for server-side range filters;
	// SearchableTitle is the lowercased title backing the search index.
	DateSort        string `bson:"date_sort,omitempty" json:"-"`
	SearchableTitle string `bson:"searchable_title,omitempty" json:"-"`

	// Source is the registry key of the collection the document came from.
	// Populated by the services, never stored.
	Source string `bson:"-" json:"source,omitempty"`
}

// CircularPage is one fixed-size slice of a source's circulars, newest first.
type CircularPage struct {
	Items      []Circular `json:"items"`
	Page       int        `json:"page"`
	TotalPages int        `json:"total_pages"`
	Total      int        `json:"total"`
}
