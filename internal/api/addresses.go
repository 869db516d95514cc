package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/vietddude/explorer/internal/core/domain"
	"github.com/vietddude/explorer/internal/query"
)

// HandleAddressTransactions lists the transactions an address sent or received.
func (c *Controller) HandleAddressTransactions(w http.ResponseWriter, r *http.Request) {
	pageNum, limit, err := pageParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	env, err := c.svc.AddressTransactions(r.Context(), mux.Vars(r)["address"], pageNum, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, paged(env, formatTransaction))
}

// HandleAddressTokenTransfers lists the fungible transfers of an address.
func (c *Controller) HandleAddressTokenTransfers(w http.ResponseWriter, r *http.Request) {
	c.addressTransfers(w, r, domain.AssetFungible, "token")
}

// HandleAddressNFTTransfers lists the non-fungible transfers of an address.
func (c *Controller) HandleAddressNFTTransfers(w http.ResponseWriter, r *http.Request) {
	c.addressTransfers(w, r, domain.AssetNonFungible, "collection")
}

// addressTransfers serves both transfer listings. assetParam names the query parameter that
// narrows to one contract.
func (c *Controller) addressTransfers(w http.ResponseWriter, r *http.Request, kind domain.AssetKind, assetParam string) {
	pageNum, limit, err := pageParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	q := r.URL.Query()
	env, err := c.svc.AddressTransfers(r.Context(), kind, query.TransferListRequest{
		Asset:     q.Get(assetParam),
		Holder:    mux.Vars(r)["address"],
		Direction: q.Get("direction"),
		Filter:    q.Get("filter"),
		Page:      pageNum,
		Limit:     limit,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, paged(env, formatAddressTransfer))
}

// HandleAddressTokenBalances returns every fungible balance of an address.
func (c *Controller) HandleAddressTokenBalances(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	pageNum, limit, err := pageParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	env, err := c.svc.HolderTokenBalances(r.Context(), address, pageNum, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	// The service has already validated and normalized the address.
	holder, _ := domain.ParseAddress("address", address)
	writeJSON(w, http.StatusOK, paged(env, formatTokenBalance(holder)))
}

// HandleAddressNFTs returns the NFTs an address owns. ?collection= narrows to one collection.
func (c *Controller) HandleAddressNFTs(w http.ResponseWriter, r *http.Request) {
	pageNum, limit, err := pageParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var collection *string
	if v := r.URL.Query().Get("collection"); v != "" {
		collection = &v
	}

	env, err := c.svc.HolderNFTs(r.Context(), mux.Vars(r)["address"], collection, pageNum, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, paged(env, formatNFT))
}

// HandleCollectionOwners returns the owner of every token of a collection.
func (c *Controller) HandleCollectionOwners(w http.ResponseWriter, r *http.Request) {
	pageNum, limit, err := pageParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	env, err := c.svc.CollectionOwners(r.Context(), mux.Vars(r)["address"], pageNum, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, paged(env, formatNFT))
}

type ownerResponse struct {
	nftDTO
	Warnings []domain.IntegrityWarning `json:"warnings,omitempty"`
}

// HandleTokenOwner returns the current owner of one token.
func (c *Controller) HandleTokenOwner(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	res, err := c.svc.TokenOwner(r.Context(), vars["address"], vars["tokenId"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ownerResponse{nftDTO: formatNFT(res.TokenOwner), Warnings: res.Warnings})
}
