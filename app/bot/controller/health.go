package controller

import (
	"net/http"

	"github.com/go-jose/go-jose/v4/json"
)

// HandleHealth reports the state of every dependency the bot needs to run.
// Degraded dependencies return 503 so orchestration can restart the pod.
func (c *Controller) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	checks := map[string]string{
		"discord":    "ok",
		"clickhouse": "ok",
		"redis":      "ok",
	}
	healthy := true

	if !c.App.Discord.Ready() {
		checks["discord"] = "not ready"
		healthy = false
	}
	if err := c.App.DB.Health(ctx); err != nil {
		checks["clickhouse"] = err.Error()
		healthy = false
	}
	if err := c.App.RedisClient.Health(ctx); err != nil {
		checks["redis"] = err.Error()
		healthy = false
	}

	if !healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(checks)
}
