package models

// GlobalErrorKey groups case-level validation errors that are not tied to a
// specific student slot.
const GlobalErrorKey = "__global"

// ValidationResult is the outcome of one synchronous validation pass over a
// case draft. Errors is keyed by student LocalID or GlobalErrorKey;
// BlockingReason is the single highest-priority message, empty when valid.
type ValidationResult struct {
	IsValid        bool                `json:"is_valid"`
	Errors         map[string][]string `json:"errors"`
	BlockingReason string              `json:"blocking_reason,omitempty"`
}

// StudentErrors returns the error list collected for one slot.
func (r ValidationResult) StudentErrors(localID string) []string {
	if r.Errors == nil {
		return nil
	}
	return r.Errors[localID]
}
