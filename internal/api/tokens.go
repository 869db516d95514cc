package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/vietddude/explorer/internal/query"
)

// HandleToken returns token metadata with its holder count.
func (c *Controller) HandleToken(w http.ResponseWriter, r *http.Request) {
	detail, err := c.svc.TokenDetail(r.Context(), mux.Vars(r)["address"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, formatTokenDetail(detail))
}

// HandleTokenHolders returns holders of a fungible token, largest balance first.
func (c *Controller) HandleTokenHolders(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	pageNum, limit, err := pageParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	env, err := c.svc.TokenHolders(r.Context(), address, pageNum, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	info, err := c.svc.Token(r.Context(), address)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := paged(env, formatHolder)
	token := formatToken(info)
	resp.Token = &token
	writeJSON(w, http.StatusOK, resp)
}

// HandleTokenBalance returns one holder's balance of a fungible token.
func (c *Controller) HandleTokenBalance(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	res, err := c.svc.TokenBalance(r.Context(), vars["address"], vars["holder"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, formatBalance(res))
}

// HandleTokenTransfers lists a token's transfers newest first. Supports holder, direction
// and an AIP-160 filter expression.
func (c *Controller) HandleTokenTransfers(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	pageNum, limit, err := pageParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	q := r.URL.Query()
	env, err := c.svc.TokenTransfers(r.Context(), query.TransferListRequest{
		Asset:     address,
		Holder:    q.Get("holder"),
		Direction: q.Get("direction"),
		Filter:    q.Get("filter"),
		Page:      pageNum,
		Limit:     limit,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	info, err := c.svc.Token(r.Context(), address)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := paged(env, formatTransfer)
	token := formatToken(info)
	resp.Token = &token
	writeJSON(w, http.StatusOK, resp)
}

// HandleLatestTokenTransfers returns a token's newest transfers with an estimated count.
func (c *Controller) HandleLatestTokenTransfers(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 10)
	if err != nil {
		writeError(w, r, err)
		return
	}
	env, err := c.svc.LatestTokenTransfers(r.Context(), mux.Vars(r)["address"], limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, latest(env, formatTransfer))
}
