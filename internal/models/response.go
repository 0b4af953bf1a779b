package models

// Response is the envelope for every operator API reply. Exactly one of
// Message or Error is set, matching Success.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// SuccessResponse wraps a payload for a successful operator request.
func SuccessResponse(data interface{}, message string) Response {
	return Response{
		Success: true,
		Message: message,
		Data:    data,
	}
}

// ErrorResponse reports a failed operator request.
func ErrorResponse(err string) Response {
	return Response{
		Success: false,
		Error:   err,
	}
}
