package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// CreateGroupRequest handles POST /v1/groups/:id/requests.
func (h *RequestHandler) CreateGroupRequest(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return unauthorized(c)
	}
	gr, err := h.Requests.CreateGroupRequest(c.Request().Context(), p, c.Param("id"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, groupRequestView(gr))
}

// AcceptGroupRequest handles PUT /v1/group-requests/:id/accept.
func (h *RequestHandler) AcceptGroupRequest(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return unauthorized(c)
	}
	gr, err := h.Requests.AcceptGroupRequest(c.Request().Context(), p, c.Param("id"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, groupRequestView(gr))
}

// RejectGroupRequest handles PUT /v1/group-requests/:id/reject.
func (h *RequestHandler) RejectGroupRequest(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return unauthorized(c)
	}
	gr, err := h.Requests.RejectGroupRequest(c.Request().Context(), p, c.Param("id"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, groupRequestView(gr))
}
