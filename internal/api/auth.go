package api

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/nerrad567/gray-logic-airzone/internal/auth"
)

// loginRequest is the request body for POST /auth/login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginResponse is the response body for POST /auth/login.
type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// handleLogin authenticates the configured admin account and returns a
// JWT access token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	// Constant-time comparison so response timing reveals nothing about
	// which credential was wrong.
	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(s.secCfg.Admin.Username))
	passOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(s.secCfg.Admin.Password))
	if userOK&passOK != 1 {
		writeUnauthorized(w, "invalid credentials")
		return
	}

	ttl := s.secCfg.JWT.AccessTokenTTL
	if ttl <= 0 {
		ttl = 15 // default 15 minutes
	}

	token, err := auth.GenerateAccessToken(req.Username, auth.RoleAdmin, s.secCfg.JWT.Secret, ttl)
	if err != nil {
		s.logger.Error("failed to generate access token", "error", err)
		writeInternalError(w, "failed to generate token")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   ttl * 60, // seconds
	})
}
