package http

import (
	"net/http"

	"projex/internal/core"
	applog "projex/internal/log"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in core.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	in.Name = sanitizeInput(in.Name)
	in.Email = sanitizeInput(in.Email)

	res, err := s.deps.Users.Register(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx := r.Context()
	applog.FromContext(ctx).InfoContext(ctx, "User registered",
		applog.FieldUserID, res.User.ID,
		applog.FieldRole, res.User.Role)
	NewJSONResponse().Status(http.StatusCreated).Token(res.Token).Write(w, r)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := s.deps.Users.Login(r.Context(), sanitizeInput(in.Email), in.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Token(res.Token).User(res.User).Write(w, r)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, id *core.Identity) {
	u, err := s.deps.Users.Profile(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(u).Write(w, r)
}

func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request, id *core.Identity) {
	var in core.ProfileUpdate
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	in.Name = sanitizeInput(in.Name)
	in.Email = sanitizeInput(in.Email)

	u, err := s.deps.Users.UpdateProfile(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(u).Write(w, r)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request, id *core.Identity) {
	var in changePasswordRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.deps.Users.ChangePassword(r.Context(), id, in.CurrentPassword, in.NewPassword); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Message("Password updated successfully").Write(w, r)
}
