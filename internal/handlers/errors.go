package handlers

// ErrorResponse is the JSON body of every non-2xx response
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Details map[string]interface{} `json:"details,omitempty"`
}
