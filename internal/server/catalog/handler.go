package catalog

import (
	"bytes"
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/go-logr/logr"

	"github.com/xdavidwu/openapi-conformance/internal/schema"
	"github.com/xdavidwu/openapi-conformance/internal/server"
	"github.com/xdavidwu/openapi-conformance/internal/server/middlewares"
)

// Handler serves the current catalog; Swap replaces it atomically.
type Handler struct {
	catalog atomic.Pointer[Catalog]
}

func NewHandler(c *Catalog) *Handler {
	h := &Handler{}
	h.catalog.Store(c)
	return h
}

func (h *Handler) Catalog() *Catalog {
	return h.catalog.Load()
}

func (h *Handler) Swap(c *Catalog) {
	h.catalog.Store(c)
}

// Register mounts the validation endpoints. Any tokens guard validation with
// pre-shared bearer tokens.
func (h *Handler) Register(mux *http.ServeMux, tokens []string, maxBody int64) {
	var validate http.Handler = middlewares.DrainBody(http.HandlerFunc(h.validate), maxBody)
	if len(tokens) > 0 {
		validate = middlewares.AuthnWithPreShared(validate, tokens)
	}
	mux.Handle("POST /validate/{document}/{schema}",
		middlewares.Instrument(middlewares.LogWithIdentifier(validate), "validate", http.MethodPost))
	mux.Handle("GET /schemas/{document}/{schema}",
		middlewares.Instrument(middlewares.LogWithIdentifier(http.HandlerFunc(h.resolved)), "schemas", http.MethodGet))
}

func (h *Handler) validate(w http.ResponseWriter, r *http.Request) {
	log := logr.FromContextOrDiscard(r.Context())
	documentKey, name := r.PathValue("document"), r.PathValue("schema")

	instance, err := schema.DecodeInstance(bytes.NewReader(server.BodyFromContext(r.Context())))
	if err != nil {
		server.WriteError(w, http.StatusUnprocessableEntity, "request body is not json")
		return
	}

	result, err := h.Catalog().Validate(documentKey, name, instance)
	if err != nil {
		writeLookupError(w, r, err)
		return
	}
	middlewares.ObserveValidation(documentKey, result.Conformant)
	if !result.Conformant {
		log.Info("instance does not conform", "document", documentKey, "schema", name, "violations", len(result.Violations))
		server.WriteJSON(w, http.StatusUnprocessableEntity, result)
		return
	}
	server.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) resolved(w http.ResponseWriter, r *http.Request) {
	resolved, err := h.Catalog().Resolved(r.PathValue("document"), r.PathValue("schema"))
	if err != nil {
		writeLookupError(w, r, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, resolved)
}

func writeLookupError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ErrNotFound) {
		server.WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	logr.FromContextOrDiscard(r.Context()).Error(err, "cannot serve broken schema")
	server.WriteJSON(w, http.StatusInternalServerError, server.ErrorResponse{
		Message:   err.Error(),
		RequestId: server.IdFromContext(r.Context()),
	})
}
