package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/flashkv/flashkv/internal/engine"
	"github.com/flashkv/flashkv/internal/kverrors"
)

type handler struct {
	eng *engine.Engine
	log *zap.SugaredLogger
}

// message mirrors the original's response envelope: at most one of
// Value or Error is populated; a successful delete populates neither.
type message struct {
	Value *string `json:"value,omitempty"`
	Error *string `json:"error,omitempty"`
}

func strPtr(s string) *string { return &s }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func statusForErr(err error) int {
	switch {
	case errors.Is(err, kverrors.ErrInvalidKey):
		return http.StatusBadRequest
	case errors.Is(err, kverrors.ErrNotFound):
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}

type setRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (h *handler) set(w http.ResponseWriter, r *http.Request) {
	var req setRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, message{Error: strPtr("malformed request body")})
		return
	}

	if err := h.eng.Set([]byte(req.Key), []byte(req.Value)); err != nil {
		h.log.Debugw("set failed", "key", req.Key, "err", err)
		writeJSON(w, statusForErr(err), message{Error: strPtr(err.Error())})
		return
	}

	writeJSON(w, http.StatusOK, message{Value: strPtr(req.Value)})
}

type getRequest struct {
	Key string `json:"key"`
}

func (h *handler) get(w http.ResponseWriter, r *http.Request) {
	var req getRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, message{Error: strPtr("malformed request body")})
		return
	}

	value, err := h.eng.Get([]byte(req.Key))
	if err != nil {
		if errors.Is(err, kverrors.ErrNotFound) {
			writeJSON(w, http.StatusOK, message{Error: strPtr("Key not found")})
			return
		}
		h.log.Debugw("get failed", "key", req.Key, "err", err)
		writeJSON(w, statusForErr(err), message{Error: strPtr(err.Error())})
		return
	}

	writeJSON(w, http.StatusOK, message{Value: strPtr(string(value))})
}

type deleteRequest struct {
	Key string `json:"key"`
}

func (h *handler) delete(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, message{Error: strPtr("malformed request body")})
		return
	}

	if err := h.eng.Delete([]byte(req.Key)); err != nil {
		h.log.Debugw("delete failed", "key", req.Key, "err", err)
		writeJSON(w, statusForErr(err), message{Error: strPtr(err.Error())})
		return
	}

	writeJSON(w, http.StatusOK, message{})
}
