package api

import (
	"net/http"
)

// HandleLatestBlocks returns the newest blocks. count is the head block number.
func (c *Controller) HandleLatestBlocks(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 10)
	if err != nil {
		writeError(w, r, err)
		return
	}
	env, err := c.svc.LatestBlocks(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, latest(env, formatBlock))
}

// HandleLatestTransactions returns the newest transactions with an estimated count.
func (c *Controller) HandleLatestTransactions(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 10)
	if err != nil {
		writeError(w, r, err)
		return
	}
	env, err := c.svc.LatestTransactions(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, latest(env, formatTransaction))
}

// HandleStats returns chain-wide counters. The transaction total is estimated.
func (c *Controller) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := c.svc.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, formatStats(stats))
}
