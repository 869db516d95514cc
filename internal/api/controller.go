// Package api exposes the query service over HTTP.
package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vietddude/explorer/internal/core/domain"
	"github.com/vietddude/explorer/internal/core/page"
	"github.com/vietddude/explorer/internal/health"
	"github.com/vietddude/explorer/internal/query"
)

// Controller holds the dependencies of the HTTP handlers.
type Controller struct {
	svc         *query.Service
	health      *health.Handler
	corsOrigins []string
	logger      *slog.Logger
}

// NewController returns a new controller.
func NewController(svc *query.Service, healthHandler *health.Handler, corsOrigins []string, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		svc:         svc,
		health:      healthHandler,
		corsOrigins: corsOrigins,
		logger:      logger.With("component", "api"),
	}
}

// NewRouter returns a new router with every route registered.
func (c *Controller) NewRouter() *mux.Router {
	r := mux.NewRouter()
	r.Use(withRequestID, withLogging(c.logger), withCORS(c.corsOrigins))

	if c.health != nil {
		r.HandleFunc("/health", c.health.HandleHealth).Methods(http.MethodGet)
		r.HandleFunc("/health/detailed", c.health.HandleDetailed).Methods(http.MethodGet)
	}
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	// Static segments first so "latest" is not taken for a path variable.
	api.HandleFunc("/blocks/latest", c.HandleLatestBlocks).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/transactions/latest", c.HandleLatestTransactions).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/stats", c.HandleStats).Methods(http.MethodGet, http.MethodOptions)

	api.HandleFunc("/tokens/{address}", c.HandleToken).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/tokens/{address}/holders", c.HandleTokenHolders).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/tokens/{address}/holders/{holder}", c.HandleTokenBalance).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/tokens/{address}/transfers/latest", c.HandleLatestTokenTransfers).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/tokens/{address}/transfers", c.HandleTokenTransfers).Methods(http.MethodGet, http.MethodOptions)

	api.HandleFunc("/addresses/{address}/token-balances", c.HandleAddressTokenBalances).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/addresses/{address}/nfts", c.HandleAddressNFTs).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/addresses/{address}/transactions", c.HandleAddressTransactions).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/addresses/{address}/token-transfers", c.HandleAddressTokenTransfers).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/addresses/{address}/nft-transfers", c.HandleAddressNFTTransfers).Methods(http.MethodGet, http.MethodOptions)

	api.HandleFunc("/collections/{address}/owners", c.HandleCollectionOwners).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/collections/{address}/tokens/{tokenId}/owner", c.HandleTokenOwner).Methods(http.MethodGet, http.MethodOptions)

	return r
}

// pageParams reads page and limit. Absent values take the defaults; range checks are left to
// the query layer.
func pageParams(r *http.Request) (int, int, error) {
	pageNum, err := intParam(r, "page", 1)
	if err != nil {
		return 0, 0, err
	}
	limit, err := intParam(r, "limit", page.DefaultLimit)
	if err != nil {
		return 0, 0, err
	}
	return pageNum, limit, nil
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &domain.ValidationError{Field: name, Reason: "must be an integer"}
	}
	return n, nil
}
