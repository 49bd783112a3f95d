package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/dmitrijs2005/keygate/internal/common"
	"github.com/dmitrijs2005/keygate/internal/server/models"
	"github.com/dmitrijs2005/keygate/internal/server/services"
)

// Request and response bodies. Field names are part of the wire contract.

type signUpRequest struct {
	Username            string `json:"username"`
	Salt                string `json:"salt"`
	SigningPublicKey    string `json:"signingPublicKey"`
	EncryptionPublicKey string `json:"encryptionPublicKey"`
}

type signUpResponse struct {
	ID              string                 `json:"id"`
	Username        string                 `json:"username"`
	TwoFactorSecret models.TwoFactorSecret `json:"twoFactorSecret"`
}

type setup2FARequest struct {
	Username string `json:"username"`
	Token    string `json:"token"`
}

type setup2FAResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type signInRequest struct {
	Username  string `json:"username"`
	Signature string `json:"signature"`
}

type signInResponse struct {
	ID              string                  `json:"id"`
	Username        string                  `json:"username,omitempty"`
	TempToken       string                  `json:"tempToken,omitempty"`
	TwoFactorSecret *models.TwoFactorSecret `json:"twoFactorSecret,omitempty"`
}

type verifySignIn2FARequest struct {
	TempToken      string `json:"tempToken"`
	TwoFactorToken string `json:"twoFactorToken"`
}

type refreshTokensRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type tokenPairResponse struct {
	ID           string `json:"id"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

type userResponse struct {
	ID              string                 `json:"id"`
	Username        string                 `json:"username"`
	TwoFactorSecret models.TwoFactorSecret `json:"twoFactorSecret"`
	CreatedAt       int64                  `json:"createdAt"`
	UpdatedAt       int64                  `json:"updatedAt"`
}

type deleteUserResponse struct {
	ID string `json:"id"`
}

type userPublicResponse struct {
	Salt            string `json:"salt"`
	SigninChallenge string `json:"signinChallenge"`
}

type errorResponse struct {
	Code common.Code `json:"code"`
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(r, w, common.ErrBadRequest)
		return
	}

	res, err := s.auth.SignUp(r.Context(), req.Username, req.Salt, req.SigningPublicKey, req.EncryptionPublicKey)
	if err != nil {
		s.writeError(r, w, err)
		return
	}

	s.writeJSON(r, w, signUpResponse{
		ID:              res.ID,
		Username:        res.Username,
		TwoFactorSecret: res.TwoFactorSecret,
	})
}

func (s *Server) handleSetup2FA(w http.ResponseWriter, r *http.Request) {
	var req setup2FARequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(r, w, common.ErrBadRequest)
		return
	}

	res, err := s.auth.Setup2FA(r.Context(), req.Username, req.Token)
	if err != nil {
		s.writeError(r, w, err)
		return
	}

	s.writeJSON(r, w, setup2FAResponse{ID: res.ID, Username: res.Username})
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(r, w, common.ErrBadRequest)
		return
	}

	res, err := s.auth.SignIn(r.Context(), req.Username, req.Signature)
	if err != nil {
		s.writeError(r, w, err)
		return
	}

	if res.TwoFactorRequired {
		s.writeJSON(r, w, signInResponse{ID: res.ID, TempToken: res.TempToken})
		return
	}

	s.writeJSON(r, w, signInResponse{
		ID:              res.ID,
		Username:        res.Username,
		TwoFactorSecret: res.TwoFactorSecret,
	})
}

func (s *Server) handleVerifySignIn2FA(w http.ResponseWriter, r *http.Request) {
	var req verifySignIn2FARequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(r, w, common.ErrBadRequest)
		return
	}

	pair, err := s.auth.VerifySignIn2FA(r.Context(), req.TempToken, req.TwoFactorToken)
	if err != nil {
		s.writeError(r, w, err)
		return
	}

	s.writeTokenPair(r, w, pair)
}

func (s *Server) handleRefreshTokens(w http.ResponseWriter, r *http.Request) {
	var req refreshTokensRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(r, w, common.ErrBadRequest)
		return
	}

	pair, err := s.auth.RefreshTokens(r.Context(), req.RefreshToken)
	if err != nil {
		s.writeError(r, w, err)
		return
	}

	s.writeTokenPair(r, w, pair)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())

	info, err := s.auth.GetUser(r.Context(), userID)
	if err != nil {
		s.writeError(r, w, err)
		return
	}

	s.writeJSON(r, w, userResponse{
		ID:              info.ID,
		Username:        info.Username,
		TwoFactorSecret: info.TwoFactorSecret,
		CreatedAt:       info.CreatedAt,
		UpdatedAt:       info.UpdatedAt,
	})
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())

	id, err := s.auth.DeleteUser(r.Context(), userID)
	if err != nil {
		s.writeError(r, w, err)
		return
	}

	s.writeJSON(r, w, deleteUserResponse{ID: id})
}

func (s *Server) handleGetUserPublic(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")

	info, err := s.auth.GetUserPublic(r.Context(), username)
	if err != nil {
		s.writeError(r, w, err)
		return
	}

	s.writeJSON(r, w, userPublicResponse{Salt: info.Salt, SigninChallenge: info.SigninChallenge})
}

func (s *Server) writeTokenPair(r *http.Request, w http.ResponseWriter, pair *services.TokenPair) {
	s.writeJSON(r, w, tokenPairResponse{
		ID:           pair.ID,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	})
}

func (s *Server) writeJSON(r *http.Request, w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error(r.Context(), "error writing response", "error", err)
	}
}

// writeError maps a service error to its public code and status. Internal
// error text never reaches the client.
func (s *Server) writeError(r *http.Request, w http.ResponseWriter, err error) {
	code := common.CodeOf(err)
	if code == common.CodeInternal {
		s.logger.Error(r.Context(), "internal error", "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code.HTTPStatus())
	if err := json.NewEncoder(w).Encode(errorResponse{Code: code}); err != nil {
		s.logger.Error(r.Context(), "error writing response", "error", err)
	}
}
