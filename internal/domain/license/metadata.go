package license

// Metadata is the audit record attached to a license at issuance.
type Metadata struct {
	PurchaseMethod          string `json:"purchaseMethod,omitempty"`
	Notes                   string `json:"notes,omitempty"`
	OriginalPriceAtIssuance string `json:"originalPriceAtIssuance,omitempty"`
	Tier                    Tier   `json:"licenseType,omitempty"`
}
