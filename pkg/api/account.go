package api

import (
	"net/http"

	log "github.com/sirupsen/logrus"
)

func (api *API) signupHandler(w http.ResponseWriter, r *http.Request) {
	sID := shorten(GetRequestID(r.Context()))

	if err := api.parseForm(w, r); err != nil {
		fail(w, "signupHandler", sID, err)
		return
	}

	image, err := api.media.Save(r, "profileImage")
	if err != nil {
		fail(w, "signupHandler", sID, err)
		return
	}

	token, user, err := api.auth.Register(r.Context(), r.FormValue("email"), r.FormValue("password"), image)
	if err != nil {
		api.discard(image, sID)
		fail(w, "signupHandler", sID, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, TokenResponse{Token: token}); err != nil {
		log.Errorf("[signupHandler][%s] failed to encode response data: %v", sID, err)
		return
	}
	log.Infof("[signupHandler][%s] registered user %s", sID, user.ID.Hex())
}

func (api *API) loginHandler(w http.ResponseWriter, r *http.Request) {
	sID := shorten(GetRequestID(r.Context()))

	if err := api.parseForm(w, r); err != nil {
		fail(w, "loginHandler", sID, err)
		return
	}

	token, user, err := api.auth.Authenticate(r.Context(), r.FormValue("email"), r.FormValue("password"))
	if err != nil {
		fail(w, "loginHandler", sID, err)
		return
	}

	resp := LoginResponse{Token: token, User: newUserResponse(user)}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		log.Errorf("[loginHandler][%s] failed to encode response data: %v", sID, err)
		return
	}
	log.Debugf("[loginHandler][%s] response sent to: %v", sID, r.RemoteAddr)
}

func (api *API) userHandler(w http.ResponseWriter, r *http.Request) {
	sID := shorten(GetRequestID(r.Context()))

	user, err := api.auth.User(r.Context(), GetUserID(r.Context()))
	if err != nil {
		fail(w, "userHandler", sID, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, newUserResponse(user)); err != nil {
		log.Errorf("[userHandler][%s] failed to encode response data: %v", sID, err)
		return
	}
	log.Debugf("[userHandler][%s] response sent to: %v", sID, r.RemoteAddr)
}
