package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/connectsphere/booking-core/internal/model"
	"github.com/connectsphere/booking-core/internal/service"
)

// RequestService is implemented by *service.RequestManager.
type RequestService interface {
	Create(ctx context.Context, p model.Principal, in service.CreateRequestInput) (*model.MentorshipRequest, error)
	Get(ctx context.Context, p model.Principal, id string) (*model.MentorshipRequest, error)
	ListMine(ctx context.Context, p model.Principal) ([]*model.MentorshipRequest, error)
	ListForMentor(ctx context.Context, p model.Principal) ([]*model.MentorshipRequest, error)
	Accept(ctx context.Context, p model.Principal, id string, confirm bool) (*model.MentorshipRequest, error)
	Reject(ctx context.Context, p model.Principal, id string) (*model.MentorshipRequest, error)
	CreateGroupRequest(ctx context.Context, p model.Principal, groupID string) (*model.GroupRequest, error)
	AcceptGroupRequest(ctx context.Context, p model.Principal, id string) (*model.GroupRequest, error)
	RejectGroupRequest(ctx context.Context, p model.Principal, id string) (*model.GroupRequest, error)
}

// RequestHandler exposes the mentorship and group request workflow.  All
// routes sit behind JWTAuth.
type RequestHandler struct {
	Requests RequestService
	Log      *zap.Logger
}

func NewRequestHandler(requests RequestService, log *zap.Logger) *RequestHandler {
	if requests == nil {
		panic("nil request service passed to NewRequestHandler")
	}
	return &RequestHandler{Requests: requests, Log: log}
}

type createRequestBody struct {
	MentorID string `json:"mentor_id" validate:"required"`
	Day      string `json:"day" validate:"required"`
	TimeSlot string `json:"time_slot" validate:"required"`
}

type acceptBody struct {
	Confirm bool `json:"confirm"`
}

// Create handles POST /v1/requests.
func (h *RequestHandler) Create(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return unauthorized(c)
	}
	var body createRequestBody
	if msg := bind(c, &body); msg != nil {
		return c.JSON(http.StatusBadRequest, msg)
	}
	req, err := h.Requests.Create(c.Request().Context(), p, service.CreateRequestInput{
		MentorID: body.MentorID,
		Day:      body.Day,
		TimeSlot: body.TimeSlot,
	})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, requestView(req))
}

// Get handles GET /v1/requests/:id.
func (h *RequestHandler) Get(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return unauthorized(c)
	}
	req, err := h.Requests.Get(c.Request().Context(), p, c.Param("id"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, requestView(req))
}

// ListMine handles GET /v1/my-requests.
func (h *RequestHandler) ListMine(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return unauthorized(c)
	}
	rs, err := h.Requests.ListMine(c.Request().Context(), p)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"requests": requestViews(rs)})
}

// ListForMentor handles GET /v1/mentor/requests.
func (h *RequestHandler) ListForMentor(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return unauthorized(c)
	}
	rs, err := h.Requests.ListForMentor(c.Request().Context(), p)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"requests": requestViews(rs)})
}

// Accept handles PUT /v1/requests/:id/accept.  Without {"confirm": true}
// an accept that would withdraw the requester's other requests for the same
// slot answers 409 with the list of those requests.
func (h *RequestHandler) Accept(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return unauthorized(c)
	}
	var body acceptBody
	if msg := bind(c, &body); msg != nil {
		return c.JSON(http.StatusBadRequest, msg)
	}
	req, err := h.Requests.Accept(c.Request().Context(), p, c.Param("id"), body.Confirm)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, requestView(req))
}

// Reject handles PUT /v1/requests/:id/reject.
func (h *RequestHandler) Reject(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return unauthorized(c)
	}
	req, err := h.Requests.Reject(c.Request().Context(), p, c.Param("id"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, requestView(req))
}
