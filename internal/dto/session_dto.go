package dto

// OpenSessionRequest starts a session for an admin with an LLM credential.
type OpenSessionRequest struct {
	AdminID string `json:"admin_id" validate:"required,max=64"`
	APIKey  string `json:"api_key" validate:"required"`
}

// SwitchSessionRequest re-initialises an existing session for another admin or credential.
type SwitchSessionRequest struct {
	AdminID string `json:"admin_id" validate:"required,max=64"`
	APIKey  string `json:"api_key" validate:"required"`
}

// QueryRequest carries one natural-language question.
type QueryRequest struct {
	Question string `json:"question"`
}

// QueryResponse carries the agent's answer.
type QueryResponse struct {
	SessionID string `json:"session_id"`
	Answer    string `json:"answer"`
}

// AdminResponse describes an admin available for sessions.
type AdminResponse struct {
	AdminID string `json:"admin_id"`
	Name    string `json:"name"`
	Scope   string `json:"scope"`
}

// HistoryMeta summarises a history listing.
type HistoryMeta struct {
	Turns int `json:"turns"`
}
