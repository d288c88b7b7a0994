package request

// AppendEventRequest is the body of POST /api/instrument/{key}/event.
// Cost is optional and overrides quantity * price. Name and Class are used only when the
// instrument has no ledger yet.
type AppendEventRequest struct {
	Date     string   `json:"date"`
	Action   string   `json:"action"`
	Quantity float64  `json:"quantity"`
	Price    float64  `json:"price"`
	Cost     *float64 `json:"cost,omitempty"`
	Exchange string   `json:"exchange,omitempty"`
	Remark   string   `json:"remark,omitempty"`
	Tax      float64  `json:"tax,omitempty"`
	Charges  float64  `json:"charges,omitempty"`
	Name     string   `json:"name,omitempty"`
	Class    string   `json:"class,omitempty"`
}

// FingerprintRequest is the body of POST /api/instrument/{key}/fingerprint.
type FingerprintRequest struct {
	Date     string  `json:"date"`
	Action   string  `json:"action"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
}
