package models

// Client is an external entity potentially affected by a circular.
type Client struct {
	ID       string `bson:"_id" json:"id"`
	Name     string `bson:"client_name" json:"client_name"`
	Category string `bson:"category,omitempty" json:"category,omitempty"`
	URL      string `bson:"url,omitempty" json:"url,omitempty"`
}

// Product is an internal offering potentially affected by a circular.
type Product struct {
	ID              string `bson:"_id" json:"id"`
	Title           string `bson:"title" json:"title"`
	URL             string `bson:"url,omitempty" json:"url,omitempty"`
	SearchableTitle string `bson:"searchable_title,omitempty" json:"-"`
}

// ImpactedProduct is a product resolved through an analysis reference,
// carrying the per-circular impact description from the analysis entry.
type ImpactedProduct struct {
	Product
	ImpactDescription string `json:"impact_description,omitempty"`
}
