package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/cfsage/memoria/internal/auth"
	"github.com/cfsage/memoria/internal/store"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		s.respondError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("hash password", "error", err)
		s.respondError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	user, err := s.deps.DB.CreateUser(r.Context(), req.Email, hash)
	if errors.Is(err, store.ErrEmailTaken) {
		s.respondError(w, http.StatusBadRequest, "Email already registered")
		return
	}
	if err != nil {
		s.logger.Error("create user", "error", err)
		s.respondError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{
		"email":   user.Email,
		"message": "User created successfully",
	})
}

// token implements password login with a form-encoded username/password
// body, returning a bearer token.
func (s *Server) token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid form body")
		return
	}
	email := r.PostFormValue("username")
	password := r.PostFormValue("password")

	user, err := s.deps.DB.GetUserByEmail(r.Context(), email)
	if err != nil || !auth.VerifyPassword(user.PasswordHash, password) {
		w.Header().Set("WWW-Authenticate", "Bearer")
		s.respondError(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}

	token, err := s.deps.Auth.MintToken(user.Email)
	if err != nil {
		s.logger.Error("mint token", "error", err)
		s.respondError(w, http.StatusInternalServerError, "login failed")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{
		"access_token": token,
		"token_type":   "bearer",
	})
}
