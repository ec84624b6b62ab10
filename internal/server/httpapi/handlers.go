package httpapi

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/termbind/internal/common"
	"github.com/dmitrijs2005/termbind/internal/server/services"
)

type directoryLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type directoryLoginResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
	Secret  string `json:"secret,omitempty"`
}

type nasCredentialsResponse struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type signatureLoginRequest struct {
	PublicKey string `json:"publicKey"`
	Challenge string `json:"challenge"`
	Signature string `json:"signature"`
}

type signatureLoginResponse struct {
	Token string `json:"token"`
}

type pairingRequestRequest struct {
	PublicKey  string `json:"publicKey"`
	SupportsV2 bool   `json:"supportsV2"`
}

type pairingRequestResponse struct {
	State    string `json:"state"`
	Token    string `json:"token,omitempty"`
	Response string `json:"response,omitempty"`
}

type pairingStatusResponse struct {
	State      string `json:"state"`
	SupportsV2 bool   `json:"supportsV2"`
}

type pairingResponseRequest struct {
	PublicKey string `json:"publicKey"`
	Response  string `json:"response"`
}

type successResponse struct {
	Success bool `json:"success"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError maps service sentinels onto HTTP statuses. Anything
// unrecognized is reported as an internal error without detail.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrMalformedKey),
		errors.Is(err, common.ErrInvalidCredentials),
		errors.Is(err, common.ErrUnauthorized),
		errors.Is(err, common.ErrInvalidToken):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
	case errors.Is(err, common.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return false
	}
	return true
}

func (srv *Server) handleDirectoryLogin(w http.ResponseWriter, r *http.Request) {
	var req directoryLoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	token, secret, err := srv.auth.DirectoryLogin(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			writeJSON(w, http.StatusUnauthorized, directoryLoginResponse{Success: false})
			return
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, directoryLoginResponse{Success: true, Token: token, Secret: secret})
}

func (srv *Server) handleNASCredentials(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, common.ErrInvalidToken)
		return
	}

	username := r.URL.Query().Get("username")
	if username == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "username is required"})
		return
	}

	user, password, err := srv.auth.NASCredentials(r.Context(), claims.AccountID, username)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, nasCredentialsResponse{Username: user, Password: password})
}

func (srv *Server) handleSignatureLogin(w http.ResponseWriter, r *http.Request) {
	var req signatureLoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	publicKey, err := base64.StdEncoding.DecodeString(req.PublicKey)
	if err != nil {
		writeError(w, common.ErrMalformedKey)
		return
	}
	challenge, err := base64.StdEncoding.DecodeString(req.Challenge)
	if err != nil {
		writeError(w, common.ErrInvalidCredentials)
		return
	}
	signature, err := base64.StdEncoding.DecodeString(req.Signature)
	if err != nil {
		writeError(w, common.ErrInvalidCredentials)
		return
	}

	token, err := srv.auth.SignatureLogin(r.Context(), publicKey, challenge, signature)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, signatureLoginResponse{Token: token})
}

// decodePairingKey parses the hex public key used by the pairing endpoints.
// Length is validated again by the service; this only rejects non-hex input.
func decodePairingKey(s string) ([]byte, error) {
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, common.ErrMalformedKey
	}
	return key, nil
}

func (srv *Server) handlePairingRequest(svc *services.PairingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req pairingRequestRequest
		if !decodeBody(w, r, &req) {
			return
		}

		publicKey, err := decodePairingKey(req.PublicKey)
		if err != nil {
			writeError(w, err)
			return
		}

		res, err := svc.Request(r.Context(), publicKey, req.SupportsV2)
		if err != nil {
			writeError(w, err)
			return
		}

		body := pairingRequestResponse{State: string(res.State), Token: res.Token}
		if res.Response != nil {
			body.Response = base64.StdEncoding.EncodeToString(res.Response)
		}
		writeJSON(w, http.StatusOK, body)
	}
}

func (srv *Server) handlePairingStatus(svc *services.PairingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		publicKey, err := decodePairingKey(r.URL.Query().Get("publicKey"))
		if err != nil {
			writeError(w, err)
			return
		}

		res, err := svc.Status(r.Context(), publicKey)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, pairingStatusResponse{State: string(res.State), SupportsV2: res.SupportsV2})
	}
}

func (srv *Server) handlePairingResponse(svc *services.PairingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFromContext(r.Context())
		if !ok {
			writeError(w, common.ErrInvalidToken)
			return
		}

		var req pairingResponseRequest
		if !decodeBody(w, r, &req) {
			return
		}

		publicKey, err := decodePairingKey(req.PublicKey)
		if err != nil {
			writeError(w, err)
			return
		}
		response, err := base64.StdEncoding.DecodeString(req.Response)
		if err != nil || len(response) == 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed response payload"})
			return
		}

		if err := svc.Respond(r.Context(), claims.AccountID, publicKey, response); err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, successResponse{Success: true})
	}
}
