package server

import (
	"net/http"

	"github.com/korima-app/korima/internal/briefing"
	"github.com/korima-app/korima/internal/google"
	"github.com/korima-app/korima/internal/logging"
)

// RootMessage is returned by GET /.
const RootMessage = "Korima backend is up and ready to connect to your calendar."

type rootResponse struct {
	Message string `json:"message"`
}

type authURLResponse struct {
	AuthorizationURL string `json:"authorization_url"`
}

type briefingResponse struct {
	Focus *briefing.Briefing `json:"focus"`
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, rootResponse{Message: RootMessage})
}

// handleAuthURL starts a login by handing out Google's consent URL.
func (s *Server) handleAuthURL(w http.ResponseWriter, _ *http.Request) {
	authURL, err := s.auth.AuthorizationURL()
	if err != nil {
		s.logger.Error("Failed to build authorization URL", logging.Err(err))
		writeInternalError(w)
		return
	}
	writeJSON(w, http.StatusOK, authURLResponse{AuthorizationURL: authURL})
}

// handleCallback completes a login. The exchanged credential replaces any
// previous one and the browser is sent back to the frontend.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	cred, err := s.auth.Exchange(r.Context(), google.CallbackFromQuery(r.URL.Query()))
	if err != nil {
		kind := google.AuthExchangeUnavailable
		if authErr, ok := google.AsAuthError(err); ok {
			kind = authErr.Kind
		}
		writeError(w, kind.HTTPStatus(), kind.Message(), string(kind))
		return
	}

	if err := s.store.Save(r.Context(), s.account, cred); err != nil {
		s.logger.Error("Failed to store credential", logging.Account(s.account), logging.Err(err))
		writeInternalError(w)
		return
	}

	s.logger.Info("Google account connected", logging.Account(s.account))
	http.Redirect(w, r, s.frontendURL, http.StatusTemporaryRedirect)
}

func (s *Server) handleDailyBriefing(w http.ResponseWriter, r *http.Request) {
	b, err := s.briefings.Daily(r.Context())
	if err != nil {
		kind := briefing.KindUpstreamUnavailable
		if bErr, ok := briefing.AsError(err); ok {
			kind = bErr.Kind
		}
		writeError(w, kind.HTTPStatus(), kind.Message(), string(kind))
		return
	}
	writeJSON(w, http.StatusOK, briefingResponse{Focus: b})
}
