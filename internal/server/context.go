package server

import (
	"context"
	"encoding/json"
	"net/http"
)

type ctxKey string

var (
	ctxBody = ctxKey("body")
	ctxId   = ctxKey("id")
)

func ContextWithId(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxId, id)
}

func ContextWithBody(ctx context.Context, body []byte) context.Context {
	return context.WithValue(ctx, ctxBody, body)
}

func IdFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxId).(string)
	return id
}

// BodyFromContext returns the drained request body, nil when it was not
// drained.
func BodyFromContext(ctx context.Context) []byte {
	body, _ := ctx.Value(ctxBody).([]byte)
	return body
}

type ErrorResponse struct {
	Message string `json:"error"`
	// RequestId lets clients quote a failed request when reporting it.
	RequestId string `json:"request_id,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	body, _ := json.Marshal(v)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

func WriteError(w http.ResponseWriter, status int, msg string) {
	if msg == "" {
		msg = http.StatusText(status)
	}
	WriteJSON(w, status, ErrorResponse{Message: msg})
}
