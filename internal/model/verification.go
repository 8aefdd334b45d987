package model

// VerificationResult is the one-shot outcome of a ticket scan.  It is never
// stored by the box office; each scan produces a fresh value.
type VerificationResult struct {
	Success      bool     `json:"success"`
	Message      string   `json:"message"`
	CustomerName string   `json:"customer_name,omitempty"`
	Seats        []string `json:"seats,omitempty"`
	EventName    string   `json:"event_name,omitempty"`
}
