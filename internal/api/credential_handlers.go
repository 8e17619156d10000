package api

import (
	"net/http"

	"github.com/listenupapp/bookcatalog/internal/credentials"
	catalogerrors "github.com/listenupapp/bookcatalog/internal/errors"
	"github.com/listenupapp/bookcatalog/internal/http/response"
)

// CredentialsRequest is the session produced by a login.
type CredentialsRequest struct {
	Token  string `json:"token" validate:"required"`
	UserID string `json:"userId" validate:"required"`
}

// handlePutCredentials stores the session token and user id.
func (s *Server) handlePutCredentials(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := s.decodeBody(r, &req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	if err := credentials.Save(r.Context(), s.creds, req.Token, req.UserID); err != nil {
		response.HandleError(w, catalogerrors.Wrap(err, catalogerrors.CodeInternal, "credential store unavailable"), s.logger)
		return
	}

	s.logger.Info("Credentials stored", "user_id", req.UserID)
	response.NoContent(w)
}

// handleDeleteCredentials logs the session out.
func (s *Server) handleDeleteCredentials(w http.ResponseWriter, r *http.Request) {
	if err := credentials.Clear(r.Context(), s.creds); err != nil {
		response.HandleError(w, catalogerrors.Wrap(err, catalogerrors.CodeInternal, "credential store unavailable"), s.logger)
		return
	}

	s.logger.Info("Credentials cleared")
	response.NoContent(w)
}
