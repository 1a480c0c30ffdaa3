// Package httpapi implements the server side of the UPass REST
// contract over chi. Field names, canonical signed messages and status
// codes are load-bearing: they must match every deployed client.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/upass-project/upass/internal/common"
	"github.com/upass-project/upass/internal/cryptox"
	"github.com/upass-project/upass/internal/logging"
	"github.com/upass-project/upass/internal/server/auth"
	"github.com/upass-project/upass/internal/server/storage"
)

const (
	maxUsernameLength = 64
	// maxBlobBytes bounds the encrypted payload; the request body limit
	// adds headroom for the envelope fields.
	maxBlobBytes = 1024 * 1024
	maxBodyBytes = maxBlobBytes + 64*1024
)

// signedRequest mirrors the client's authentication envelope.
type signedRequest struct {
	PublicKey       string `json:"public_key"`
	SigningKey      string `json:"signing_key"`
	Timestamp       int64  `json:"timestamp"`
	Signature       string `json:"signature"`
	VaultBlob       string `json:"vault_blob,omitempty"`
	CreateIfMissing *bool  `json:"create_if_missing,omitempty"`
}

func (r signedRequest) credentials() auth.Credentials {
	return auth.Credentials{
		PublicKey:  r.PublicKey,
		SigningKey: r.SigningKey,
		Timestamp:  r.Timestamp,
		Signature:  r.Signature,
	}
}

// Handler serves the vault endpoints.
type Handler struct {
	store     storage.Store
	logger    logging.Logger
	tolerance time.Duration
}

func NewHandler(store storage.Store, logger logging.Logger, tolerance time.Duration) *Handler {
	return &Handler{store: store, logger: logger, tolerance: tolerance}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// validUsername applies the shared account identifier rules.
func validUsername(username string) bool {
	if username == "" || len(username) > maxUsernameLength {
		return false
	}
	for _, r := range username {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// username extracts and validates the path parameter, writing a 400 on
// failure.
func (h *Handler) username(w http.ResponseWriter, r *http.Request) (string, bool) {
	username := chi.URLParam(r, "username")
	if !validUsername(username) {
		writeError(w, http.StatusBadRequest, "invalid username")
		return "", false
	}
	return username, true
}

// decode reads the signed request body within the size limit.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (signedRequest, bool) {
	var req signedRequest
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return signedRequest{}, false
	}
	return req, true
}

// writeAuthError maps verification failures onto 400/401.
func writeAuthError(w http.ResponseWriter, err error) {
	if errors.Is(err, common.ErrValidation) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeError(w, http.StatusUnauthorized, "authentication failed")
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error(r.Context(), "storage failure", "error", err.Error())
	writeError(w, http.StatusInternalServerError, "internal error")
}

// Health reports liveness. No auth, no storage round-trip.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Exists reports whether a vault exists for the username. Public by
// design: registration needs it before any key material exists.
func (h *Handler) Exists(w http.ResponseWriter, r *http.Request) {
	username, ok := h.username(w, r)
	if !ok {
		return
	}

	exists, err := h.store.Exists(r.Context(), username)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"exists": exists})
}

// Retrieve returns the encrypted vault blob after signature
// verification against the stored public key.
func (h *Handler) Retrieve(w http.ResponseWriter, r *http.Request) {
	username, ok := h.username(w, r)
	if !ok {
		return
	}
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	rec, err := h.store.Get(r.Context(), username)
	if errors.Is(err, common.ErrNotFound) {
		writeError(w, http.StatusNotFound, "vault not found")
		return
	}
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	if rec.PublicKey != req.PublicKey {
		writeError(w, http.StatusUnauthorized, "authentication failed")
		return
	}
	if err := auth.Verify(req.credentials(), cryptox.RetrieveMessage(req.Timestamp), h.tolerance); err != nil {
		writeAuthError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"vault_blob": rec.Blob})
}

// Save stores the encrypted vault blob. A first save must set
// create_if_missing, so a vault deleted from another device is never
// silently recreated; an existing vault is only writable by the key
// that created it.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	username, ok := h.username(w, r)
	if !ok {
		return
	}
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	if req.VaultBlob == "" {
		writeError(w, http.StatusBadRequest, "missing vault blob")
		return
	}
	if len(req.VaultBlob) > maxBlobBytes {
		writeError(w, http.StatusBadRequest, "vault blob too large")
		return
	}

	rec, err := h.store.Get(r.Context(), username)
	switch {
	case errors.Is(err, common.ErrNotFound):
		if req.CreateIfMissing == nil || !*req.CreateIfMissing {
			writeError(w, http.StatusNotFound, "vault not found")
			return
		}
	case err != nil:
		h.internalError(w, r, err)
		return
	default:
		if rec.PublicKey != req.PublicKey {
			writeError(w, http.StatusConflict, "public key mismatch")
			return
		}
	}

	if err := auth.Verify(req.credentials(), cryptox.SaveMessage(req.VaultBlob, req.Timestamp), h.tolerance); err != nil {
		writeAuthError(w, err)
		return
	}

	err = h.store.Put(r.Context(), &storage.Record{
		Username:  username,
		PublicKey: req.PublicKey,
		Blob:      req.VaultBlob,
	})
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	h.logger.Info(r.Context(), "vault saved", "username", username)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Delete removes the vault permanently.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	username, ok := h.username(w, r)
	if !ok {
		return
	}
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	rec, err := h.store.Get(r.Context(), username)
	if errors.Is(err, common.ErrNotFound) {
		writeError(w, http.StatusNotFound, "vault not found")
		return
	}
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	if rec.PublicKey != req.PublicKey {
		writeError(w, http.StatusUnauthorized, "authentication failed")
		return
	}
	if err := auth.Verify(req.credentials(), cryptox.DeleteMessage(req.Timestamp), h.tolerance); err != nil {
		writeAuthError(w, err)
		return
	}

	if err := h.store.Delete(r.Context(), username); err != nil {
		h.internalError(w, r, err)
		return
	}

	h.logger.Info(r.Context(), "vault deleted", "username", username)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
