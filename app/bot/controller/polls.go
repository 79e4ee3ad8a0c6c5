package controller

import (
	"errors"
	"net/http"

	"github.com/go-jose/go-jose/v4/json"
	"github.com/gorilla/mux"
	"github.com/smallstreet/megabot/pkg/poll"
	"go.uber.org/zap"
)

// HandleCreatePoll posts a new poll outside the monthly schedule.
func (c *Controller) HandleCreatePoll(w http.ResponseWriter, r *http.Request) {
	p, err := c.App.Orchestrator.CreatePoll(r.Context())
	if err != nil {
		if errors.Is(err, poll.ErrResolveInProgress) {
			w.WriteHeader(http.StatusConflict)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "poll creation already in progress"})
			return
		}
		c.App.Logger.Error("Manual poll creation failed", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(p)
}

// HandlePollDetail returns the archived poll row, plus a live tally while the
// poll is still accepting votes.
func (c *Controller) HandlePollDetail(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	row, err := c.App.DB.GetPollRow(r.Context(), id)
	if err != nil {
		if errors.Is(err, poll.ErrPollNotFound) {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "poll not found"})
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	resp := struct {
		Poll  any         `json:"poll"`
		Tally *poll.Tally `json:"tally,omitempty"`
	}{Poll: row}

	if row.State != string(poll.StateResolved) {
		tally, err := c.App.Orchestrator.Aggregator.Aggregate(r.Context(), row.ChannelID, id)
		if err != nil {
			// The archived row is still worth returning.
			c.App.Logger.Warn("Live tally failed", zap.String("poll_id", id), zap.Error(err))
		} else {
			resp.Tally = tally
		}
	}

	_ = json.NewEncoder(w).Encode(resp)
}

// HandleResolvePoll triggers resolution for one poll.
func (c *Controller) HandleResolvePoll(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	res, err := c.App.Orchestrator.Resolve(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, poll.ErrPollNotFound):
			w.WriteHeader(http.StatusNotFound)
		case errors.Is(err, poll.ErrAlreadyResolved):
			w.WriteHeader(http.StatusConflict)
		case errors.Is(err, poll.ErrResolveInProgress):
			w.WriteHeader(http.StatusConflict)
		default:
			c.App.Logger.Error("Manual poll resolution failed",
				zap.String("poll_id", id), zap.Error(err))
			w.WriteHeader(http.StatusInternalServerError)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	_ = json.NewEncoder(w).Encode(res)
}

// HandlePollRewards lists the archived reward records of a poll.
func (c *Controller) HandlePollRewards(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	rewards, err := c.App.DB.PollRewards(r.Context(), id)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	_ = json.NewEncoder(w).Encode(rewards)
}
