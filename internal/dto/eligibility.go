package dto

// Eligibility reason codes
const (
	ReasonDocumentCompliance = "document_compliance"
	ReasonOJTInactive        = "ojt_inactive"
	ReasonPoorStanding       = "poor_standing"
	ReasonSystemError        = "system_error"
)

// Redirect hints. Opaque tokens the caller maps to its own destinations.
const (
	HintDocuments  = "documents"
	HintOJTProfile = "ojt_profile"
	HintStanding   = "standing"
	HintRetryLater = "retry_later"
)

// EligibilityResult gate decision
type EligibilityResult struct {
	Allowed       bool              `json:"allowed"`
	ReasonCode    string            `json:"reason_code,omitempty"`
	Message       string            `json:"message"`
	RedirectHint  string            `json:"redirect_hint,omitempty"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Detail        EligibilityDetail `json:"detail"`
}

// EligibilityDetail the three sub-evaluations, for display and audit
type EligibilityDetail struct {
	Compliance ComplianceDetail `json:"compliance"`
	Period     PeriodDetail     `json:"ojt_period"`
	Standing   StandingDetail   `json:"standing"`
}

// ComplianceDetail document compliance snapshot. Error is set when the
// lookup failed, which is distinct from being non-compliant.
type ComplianceDetail struct {
	Compliant bool   `json:"compliant"`
	Required  int    `json:"required"`
	Approved  int    `json:"approved"`
	Ratio     string `json:"ratio"` // percent, 2dp
	Error     string `json:"error,omitempty"`
}

// PeriodDetail OJT period snapshot
type PeriodDetail struct {
	Active    bool   `json:"active"`
	StartDate string `json:"start_date,omitempty"`
	Status    string `json:"status,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Error     string `json:"error,omitempty"`
}

// StandingDetail disciplinary standing snapshot
type StandingDetail struct {
	GoodStanding   bool   `json:"good_standing"`
	ViolationCount int    `json:"violation_count"`
	Error          string `json:"error,omitempty"`
}
