package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// OpenSession starts an anonymous session.
func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	token, err := h.sessions.Open()
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.setSessionCookie(w, token)
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeToken(e, token, "") })
}

// GetSession returns the metadata of the caller's session.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	info, err := h.sessions.Info(h.token(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeInfo(e, info) })
}

// Login authenticates the caller. A current anonymous session is upgraded in
// place; otherwise a new token is issued and set as the session cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var identifier, secret string
	err := readObject(w, r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "identifier":
			identifier, err = d.Str()
		case "secret":
			secret, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	if err == nil && (identifier == "" || secret == "") {
		err = invalidBody(errors.New("identifier and secret are required"))
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	token, err := h.sessions.Login(r.Context(), h.token(r), identifier, secret)
	if err != nil {
		writeError(w, r, err)
		return
	}
	identityID, err := h.sessions.Identity(token)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.setSessionCookie(w, token)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeToken(e, token, identityID) })
}

// Logout saves the cart and history for the identity and ends the session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	err := h.sessions.Logout(h.token(r))
	h.clearSessionCookie(w)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
