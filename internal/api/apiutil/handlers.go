package apiutil

import (
	"bytes"
	"context"
	"net/http"

	"github.com/a-h/templ"
	"github.com/rs/zerolog/log"
)

type HandlerError struct {
	Status  int
	Message string
	Err     error
}

func (e HandlerError) Error() string {
	return e.Message
}

func (e HandlerError) Unwrap() error {
	return e.Err
}

// WriteHandlerError logs err and writes its status and message. Errors that are
// not a HandlerError become a 500.
func WriteHandlerError(w http.ResponseWriter, r *http.Request, err error) {
	herr, ok := err.(HandlerError)
	if !ok {
		herr = HandlerError{Status: http.StatusInternalServerError, Message: "Internal Server Error", Err: err}
	}
	event := log.Ctx(r.Context()).Warn()
	if herr.Status >= http.StatusInternalServerError {
		event = log.Ctx(r.Context()).Error()
	}
	event.Err(herr.Err).Int("status", herr.Status).Msg(herr.Message)
	http.Error(w, herr.Message, herr.Status)
}

// RenderHTMLComponent renders component into a buffer before writing so a
// template failure still produces a clean 500. headers are set on success.
// It returns false when rendering failed and the error response was written.
func RenderHTMLComponent(ctx context.Context, w http.ResponseWriter, component templ.Component, headers map[string]string, logMsg, errMsg string) bool {
	return RenderHTMLComponentStatus(ctx, w, http.StatusOK, component, headers, logMsg, errMsg)
}

func RenderHTMLComponentStatus(ctx context.Context, w http.ResponseWriter, status int, component templ.Component, headers map[string]string, logMsg, errMsg string) bool {
	var buf bytes.Buffer
	if err := component.Render(ctx, &buf); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg(logMsg)
		http.Error(w, errMsg, http.StatusInternalServerError)
		return false
	}
	for key, value := range headers {
		w.Header().Set(key, value)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("Failed to write response")
	}
	return true
}
