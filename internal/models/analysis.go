package models

// Analysis is the enrichment document attached to exactly one circular.
// It lives in {source}_circular_analysis under the same id as its parent.
type Analysis struct {
	ID               string                    `bson:"_id" json:"id"`
	Summary          string                    `bson:"summary,omitempty" json:"summary,omitempty"`
	ImportantDates   []ImportantDate           `bson:"important_dates,omitempty" json:"important_dates,omitempty"`
	Categories       map[string]CategoryDetail `bson:"categories,omitempty" json:"categories,omitempty"`
	ImpactedClients  []string                  `bson:"impacted_clients,omitempty" json:"impacted_clients,omitempty"`
	ImpactedProducts []ImpactedProductRef      `bson:"impacted_products,omitempty" json:"impacted_products,omitempty"`
	PastReferences   []PastCircularRef         `bson:"past_circular_references,omitempty" json:"past_circular_references,omitempty"`
}

// ImportantDate is a deadline or milestone called out by the enrichment.
type ImportantDate struct {
	Description string `bson:"description" json:"description"`
	Date        string `bson:"date" json:"date"`
}

// CategoryDetail is the supporting detail for one assigned category.
type CategoryDetail struct {
	Reason     string  `bson:"reason,omitempty" json:"reason,omitempty"`
	Confidence float64 `bson:"confidence,omitempty" json:"confidence,omitempty"`
}

// ImpactedProductRef points at a product document and carries the impact
// description, which belongs to the analysis, not the product.
type ImpactedProductRef struct {
	ProductID         string `bson:"product_id" json:"product_id"`
	ImpactDescription string `bson:"impact_description,omitempty" json:"impact_description,omitempty"`
}

// PastCircularRef links a circular to an earlier one it supersedes or amends.
type PastCircularRef struct {
	Reference     string `bson:"reference" json:"reference"`
	Date          string `bson:"date,omitempty" json:"date,omitempty"`
	Relationship  string `bson:"relationship,omitempty" json:"relationship,omitempty"`
	DeltaAnalysis string `bson:"delta_analysis,omitempty" json:"delta_analysis,omitempty"`
	PriorSummary  string `bson:"prior_summary,omitempty" json:"prior_summary,omitempty"`
	URL           string `bson:"url,omitempty" json:"url,omitempty"`
}
