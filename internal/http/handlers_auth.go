package http

import (
	"net/http"
	"strings"

	"fintrack/internal/services"
)

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name" validate:"max=100"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type googleRequest struct {
	IDToken string `json:"idToken" validate:"required,notblank"`
}

type profileRequest struct {
	Name      *string `json:"name" validate:"omitempty,max=100"`
	FirstName *string `json:"firstName" validate:"omitempty,max=100"`
	LastName  *string `json:"lastName" validate:"omitempty,max=100"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		respondError(w, r, "register", err)
		return
	}

	session, err := s.svc.Auth.Register(r.Context(), services.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     sanitizeInput(req.Name),
	})
	if err != nil {
		respondError(w, r, "register", err)
		return
	}
	NewResponse().Status(http.StatusCreated).Data(session).Write(w)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		respondError(w, r, "login", err)
		return
	}

	session, err := s.svc.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondError(w, r, "login", err)
		return
	}
	NewResponse().Data(map[string]any{
		"user":  session.User,
		"token": session.Token,
	}).Write(w)
}

func (s *Server) handleGoogleSignIn(w http.ResponseWriter, r *http.Request) {
	var req googleRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		respondError(w, r, "google_sign_in", err)
		return
	}

	session, err := s.svc.Auth.GoogleSignIn(r.Context(), strings.TrimSpace(req.IDToken))
	if err != nil {
		respondError(w, r, "google_sign_in", err)
		return
	}
	NewResponse().Data(session).Write(w)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.svc.Auth.Me(r.Context(), callerID(r))
	if err != nil {
		respondError(w, r, "me", err)
		return
	}
	NewResponse().Data(user).Write(w)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		respondError(w, r, "update_profile", err)
		return
	}

	user, err := s.svc.Auth.UpdateProfile(r.Context(), callerID(r), services.ProfileInput{
		Name:      sanitizePtr(req.Name),
		FirstName: sanitizePtr(req.FirstName),
		LastName:  sanitizePtr(req.LastName),
	})
	if err != nil {
		respondError(w, r, "update_profile", err)
		return
	}
	NewResponse().Data(user).Write(w)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	ownerID := callerID(r)
	if err := s.svc.Auth.DeleteAccount(r.Context(), ownerID); err != nil {
		respondError(w, r, "delete_account", err)
		return
	}
	s.InvalidateStats(ownerID)
	NewResponse().Message("Account permanently deleted").Write(w)
}
