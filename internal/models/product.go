package models

// Product is a catalog entry. The price is the display string the venue
// maintains ("$3.00"); it is parsed to a numeric base price at the catalog
// boundary and never trusted from order payloads.
type Product struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price string `json:"price"`
}
