package controller

import (
	"net/http"

	"github.com/go-jose/go-jose/v4/json"
	"github.com/gorilla/mux"
)

// HandleXPSummary returns a user's XP standing across archived polls and
// verifications.
func (c *Controller) HandleXPSummary(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]

	summary, err := c.App.DB.SummarizeXP(r.Context(), username)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	_ = json.NewEncoder(w).Encode(summary)
}
