package queryapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/bookmart/nestable-sdk-go/pkg/journal"
	"github.com/bookmart/nestable-sdk-go/pkg/nestable"
	"github.com/bookmart/nestable-sdk-go/pkg/shared"
)

// SlowRequestThreshold marks requests logged at warn level.
const SlowRequestThreshold = 500 * time.Millisecond

type Options struct {
	Logger  *zerolog.Logger
	Journal EventLog
}

// Server answers queries against the native registries of a directory.
type Server struct {
	directory *nestable.Directory
	journal   EventLog
	logger    zerolog.Logger
	router    *mux.Router
}

// NewServer builds the router for directory.
func NewServer(directory *nestable.Directory, options Options) *Server {
	logger := zerolog.Nop()
	if options.Logger != nil {
		logger = *options.Logger
	}

	server := &Server{
		directory: directory,
		journal:   options.Journal,
		logger:    logger,
		router:    mux.NewRouter(),
	}

	server.router.Use(server.requestLogger)
	server.router.HandleFunc("/health", server.health).Methods(http.MethodGet)
	server.router.HandleFunc("/registries", server.listRegistries).Methods(http.MethodGet)
	server.router.HandleFunc("/registries/{registry}/tokens/{id}", server.getToken).Methods(http.MethodGet)
	server.router.HandleFunc("/registries/{registry}/accounts/{account}/balance", server.getBalance).Methods(http.MethodGet)
	server.router.HandleFunc("/registries/{registry}/assets/{id}", server.getAsset).Methods(http.MethodGet)
	server.router.HandleFunc("/registries/{registry}/events", server.listEvents).Methods(http.MethodGet)
	server.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})
	return server
}

func (server *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	server.router.ServeHTTP(w, r)
}

func (server *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"generation": server.directory.Generation(),
	})
}

func (server *Server) listRegistries(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, RegistriesResponse{
		Registries: server.directory.Registries(),
		Generation: server.directory.Generation(),
	})
}

func (server *Server) getToken(w http.ResponseWriter, r *http.Request) {
	registry, ok := server.registryFor(w, r)
	if !ok {
		return
	}
	tokenID, err := parseID(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "token id must be a positive integer")
		return
	}

	view, err := registry.Token(r.Context(), nestable.TokenID(tokenID))
	if err != nil {
		server.writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{
		Registry:        registry.ID(),
		TokenID:         view.ID,
		Owner:           view.Owner,
		DirectOwner:     view.DirectOwner,
		ActiveChildren:  view.ActiveChildren,
		PendingChildren: view.PendingChildren,
		ActiveAssets:    view.ActiveAssets,
		Priorities:      view.Priorities,
		PendingAssets:   view.PendingAssets,
		Approved:        view.Approved,
		TokenURI:        view.TokenURI,
		Generation:      view.Generation,
	})
}

func (server *Server) getBalance(w http.ResponseWriter, r *http.Request) {
	registry, ok := server.registryFor(w, r)
	if !ok {
		return
	}
	account, err := nestable.NormalizeAccount(mux.Vars(r)["account"])
	if err != nil {
		server.writeFailure(w, err)
		return
	}
	balance, err := registry.BalanceOf(r.Context(), account)
	if err != nil {
		server.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceResponse{Registry: registry.ID(), Account: account, Balance: balance})
}

func (server *Server) getAsset(w http.ResponseWriter, r *http.Request) {
	registry, ok := server.registryFor(w, r)
	if !ok {
		return
	}
	assetID, err := parseID(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "asset id must be a positive integer")
		return
	}
	reference, err := registry.AssetEntry(r.Context(), nestable.AssetID(assetID))
	if err != nil {
		server.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AssetResponse{Registry: registry.ID(), AssetID: nestable.AssetID(assetID), Reference: reference})
}

func (server *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	if server.journal == nil {
		writeError(w, http.StatusNotFound, "no event journal attached")
		return
	}
	registry, ok := server.registryFor(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	var after int64
	if raw := query.Get("after"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "after must be a non-negative integer")
			return
		}
		after = parsed
	}
	limit := journal.DefaultPageSize
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > journal.DefaultPageSize {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = parsed
	}

	entries, err := server.journal.Events(r.Context(), registry.ID(), after, limit)
	if err != nil {
		server.writeFailure(w, err)
		return
	}
	next := after
	if len(entries) > 0 {
		next = entries[len(entries)-1].Seq
	}
	writeJSON(w, http.StatusOK, EventsResponse{Registry: registry.ID(), Events: entries, Next: next})
}

func (server *Server) registryFor(w http.ResponseWriter, r *http.Request) (*nestable.Registry, bool) {
	id, err := nestable.NormalizeRegistryID(mux.Vars(r)["registry"])
	if err != nil {
		server.writeFailure(w, err)
		return nil, false
	}
	registry, err := server.directory.Registry(id)
	if err != nil {
		server.writeFailure(w, err)
		return nil, false
	}
	return registry, true
}

func (server *Server) writeFailure(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	var (
		unknownToken    nestable.UnknownTokenError
		unknownAsset    nestable.UnknownAssetError
		unknownRegistry nestable.UnknownRegistryError
		invalid         shared.InvalidIdentifierError
		depth           nestable.ResolutionDepthExceededError
	)
	switch {
	case errors.As(err, &unknownToken), errors.As(err, &unknownAsset), errors.As(err, &unknownRegistry):
		return http.StatusNotFound
	case errors.As(err, &invalid):
		return http.StatusBadRequest
	case errors.As(err, &depth):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func parseID(raw string) (uint64, error) {
	parsed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	if parsed == 0 {
		return 0, strconv.ErrRange
	}
	return parsed, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// requestLogger logs every request with its status and duration.
func (server *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(recorder, r)

		duration := time.Since(started)
		event := server.logger.Debug()
		switch {
		case recorder.statusCode >= 500:
			event = server.logger.Error()
		case recorder.statusCode >= 400 || duration > SlowRequestThreshold:
			event = server.logger.Warn()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.statusCode).
			Dur("duration", duration).
			Msg("query served")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (recorder *statusRecorder) WriteHeader(code int) {
	recorder.statusCode = code
	recorder.ResponseWriter.WriteHeader(code)
}
