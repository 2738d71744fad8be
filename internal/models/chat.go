package models

// Intent labels a user utterance.
type Intent string

const (
	IntentAction Intent = "action"
	IntentFAQ    Intent = "faq"
	// IntentUnknown is reported when the utterance matched an action trigger
	// but no concrete action could be routed.
	IntentUnknown Intent = "unknown"
)

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	SessionID     string `json:"session_id,omitempty"`
	UserText      string `json:"user_text"`
	AccountID     string `json:"account_id,omitempty"`
	CardLast4     string `json:"card_last4,omitempty"`
	Authenticated bool   `json:"authenticated"`
}

// ChatResponse is the body returned for every chat request. Exactly one of
// Response (FAQ path), ActionResult (executed action), or Status (needs_auth)
// is populated beyond SessionID and Intent.
type ChatResponse struct {
	SessionID    string         `json:"session_id"`
	Intent       Intent         `json:"intent"`
	Response     *Answer        `json:"response,omitempty"`
	Status       string         `json:"status,omitempty"`
	ActionResult map[string]any `json:"action_result,omitempty"`
}

// StatusNeedsAuth is returned when an action is requested without
// authentication or without an account ID. It is a normal outcome requiring
// caller follow-up, not an error.
const StatusNeedsAuth = "needs_auth"

// Answer is the structured result of grounded answer synthesis.
type Answer struct {
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
}
