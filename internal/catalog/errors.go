package catalog

import (
	"context"
	"errors"
	"net/http"

	"github.com/listenupapp/bookcatalog/internal/bookapi"
	catalogerrors "github.com/listenupapp/bookcatalog/internal/errors"
)

// Messages surfaced in the error slot.
const (
	MessageGeneric       = "No data available"
	MessageNoToken       = "No token available"
	MessageNoUserID      = "No user ID available"
	MessageTitleRequired = "book title is required"
)

// toCoded classifies err into a coded error carrying a user-facing message.
func toCoded(err error) *catalogerrors.Error {
	var coded *catalogerrors.Error
	if errors.As(err, &coded) {
		return coded
	}

	switch {
	case errors.Is(err, bookapi.ErrTransport),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return catalogerrors.Wrap(err, catalogerrors.CodeTransport, MessageGeneric)
	case errors.Is(err, bookapi.ErrDecode):
		return catalogerrors.Wrap(err, catalogerrors.CodeDecode, MessageGeneric)
	}

	switch status := bookapi.StatusCode(err); {
	case status == http.StatusNotFound:
		return catalogerrors.Wrap(err, catalogerrors.CodeNotFound, MessageGeneric)
	case status != 0:
		return catalogerrors.Wrap(err, catalogerrors.CodeUpstream, MessageGeneric)
	}

	return catalogerrors.Wrap(err, catalogerrors.CodeInternal, MessageGeneric)
}

// withServerMessage is toCoded, preferring the message from a JSON error reply.
func withServerMessage(err error) *catalogerrors.Error {
	coded := toCoded(err)

	var se *bookapi.StatusError
	if !errors.As(err, &se) || se.ServerMessage == "" {
		return coded
	}
	out := *coded
	out.Message = se.ServerMessage
	return &out
}
