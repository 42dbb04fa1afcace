package models

// CircularDetail is the denormalized single-item view: circular fields,
// analysis fields, and the resolved client/product lists merged into one
// object. Built on demand, cached in memory, never persisted.
type CircularDetail struct {
	ID          string `json:"id"`
	Source      string `json:"source"`
	Title       string `json:"title"`
	Date        string `json:"date"`
	Description string `json:"description,omitempty"`
	DocumentURL string `json:"document_url,omitempty"`
	PDFURL      string `json:"pdf_url,omitempty"`
	Priority    bool   `json:"priority,omitempty"`

	Summary        string                    `json:"summary,omitempty"`
	ImportantDates []ImportantDate           `json:"important_dates,omitempty"`
	Categories     map[string]CategoryDetail `json:"categories,omitempty"`
	PastReferences []PastCircularRef         `json:"past_circular_references,omitempty"`

	ImpactedClients  []Client          `json:"impacted_clients"`
	ImpactedProducts []ImpactedProduct `json:"impacted_products"`
}

// ComposeDetail merges a circular with its analysis and the resolved
// references. The circular is the base and the analysis overlays it: where
// both sides can supply a value (the summary text), the analysis wins,
// since it is the enrichment.
func ComposeDetail(source string, c *Circular, a *Analysis, clients []Client, products []ImpactedProduct) *CircularDetail {
	d := &CircularDetail{
		ID:          c.ID,
		Source:      source,
		Title:       c.Title,
		Date:        c.Date,
		Description: c.Description,
		DocumentURL: c.DocumentURL,
		PDFURL:      c.PDFURL,
		Priority:    c.Priority,

		Summary:        c.Description,
		ImportantDates: a.ImportantDates,
		Categories:     a.Categories,
		PastReferences: a.PastReferences,

		ImpactedClients:  clients,
		ImpactedProducts: products,
	}
	if a.Summary != "" {
		d.Summary = a.Summary
	}
	if d.ImpactedClients == nil {
		d.ImpactedClients = []Client{}
	}
	if d.ImpactedProducts == nil {
		d.ImpactedProducts = []ImpactedProduct{}
	}
	return d
}
