package handlers

import "net/http"

// PingResponse is the health check body.
// swagger:model PingResponse
type PingResponse struct {
	// default: pong!
	Ping string `json:"ping"`
}

// NewPingHandler returns a liveness handler.
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} handlers.PingResponse
// @Router /ping [get]
func NewPingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, PingResponse{Ping: "pong!"})
	}
}
