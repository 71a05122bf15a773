package response

type APIResponse[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    T      `json:"data,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// StageErrorResponse is returned when a pipeline stage aborts.
type StageErrorResponse struct {
	Error        string `json:"error"`
	Stage        int    `json:"stage"`
	Kind         string `json:"kind"`
	MissingTable string `json:"missing_table,omitempty"`
	Details      string `json:"details"`
}
