package handler

import (
	"net/http"

	"github.com/opuslink/opuslink/internal/errHandler"
	"github.com/opuslink/opuslink/internal/response"
	"github.com/opuslink/opuslink/internal/version"
)

type healthCheckHandler struct {
	err *errHandler.ErrorHandler
}

func NewHealthCheckHandler(err *errHandler.ErrorHandler) *healthCheckHandler {
	return &healthCheckHandler{
		err: err,
	}
}

func (h *healthCheckHandler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	message := "Up and grateful"

	data := map[string]string{
		"version": version.Get(),
	}
	err := response.JSONOkResponse(w, data, message, nil)
	if err != nil {
		h.err.ServerError(w, r, err)
	}
}
