package backtest

// Response is the envelope returned to HTTP and WebSocket clients.
type Response struct {
	ID      string  `json:"id,omitempty"`
	Success bool    `json:"success"`
	Data    *Report `json:"data,omitempty"`
	Error   string  `json:"error,omitempty"`
	Kind    string  `json:"kind,omitempty"`
}

// NewResponse wraps the outcome of Runner.Run.
func NewResponse(id string, rep *Report, err error) Response {
	if err != nil {
		return Response{ID: id, Error: err.Error(), Kind: Kind(err)}
	}
	return Response{ID: id, Success: true, Data: rep}
}
