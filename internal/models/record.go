package models

// RawRecord is the adapter-agnostic shape every source produces: one
// indicator observation as the upstream reported it, before locale
// normalization. DateFallback carries a secondary date literal used
// when DateLiteral is absent or malformed.
type RawRecord struct {
	Indicator    string `json:"indicator"`
	Description  string `json:"description,omitempty"`
	DateLiteral  string `json:"date_literal"`
	DateFallback string `json:"date_fallback,omitempty"`
	ValueLiteral string `json:"value_literal"`
}
