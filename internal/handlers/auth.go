package handlers

import (
	"net/http"

	"github.com/herzod/shelfview-cinema/internal/session"
)

type credentialsRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type sessionResponse struct {
	Token string      `json:"token"`
	User  sessionUser `json:"user"`
}

type sessionUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := h.readJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	token, sess, err := h.auth.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, sessionResponse{
		Token: token,
		User:  sessionUser{ID: sess.UserID, Email: sess.Email},
	})
}

func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := h.readJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	token, sess, err := h.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, sessionResponse{
		Token: token,
		User:  sessionUser{ID: sess.UserID, Email: sess.Email},
	})
}

func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	h.auth.SignOut(r.Context(), sess)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	h.writeJSON(w, http.StatusOK, sessionUser{ID: sess.UserID, Email: sess.Email})
}
