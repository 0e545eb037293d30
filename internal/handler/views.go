package handler

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/connectsphere/booking-core/internal/model"
	"github.com/connectsphere/booking-core/internal/service"
)

func requestView(r *model.MentorshipRequest) echo.Map {
	v := echo.Map{
		"id":             r.ID,
		"mentor_id":      r.MentorID,
		"user_id":        r.UserID,
		"day":            r.Slot.Day,
		"time_slot":      r.Slot.TimeSlot,
		"price_minor":    r.PriceMinor,
		"currency":       r.Currency,
		"is_accepted":    r.IsAccepted,
		"payment_status": r.PaymentStatus,
		"created_at":     r.CreatedAt.Format(time.RFC3339),
	}
	if r.AcceptedAt != nil {
		v["accepted_at"] = r.AcceptedAt.Format(time.RFC3339)
	}
	return v
}

func requestViews(rs []*model.MentorshipRequest) []echo.Map {
	out := make([]echo.Map, 0, len(rs))
	for _, r := range rs {
		out = append(out, requestView(r))
	}
	return out
}

func collaborationView(c *model.Collaboration) echo.Map {
	return echo.Map{
		"id":           c.ID,
		"mentor_id":    c.MentorID,
		"user_id":      c.UserID,
		"day":          c.Slot.Day,
		"time_slot":    c.Slot.TimeSlot,
		"price_minor":  c.PriceMinor,
		"currency":     c.Currency,
		"start_date":   c.StartDate.Format(time.RFC3339),
		"end_date":     c.EndDate.Format(time.RFC3339),
		"payment":      c.Payment,
		"payment_ref":  c.PaymentRef,
		"is_cancelled": c.IsCancelled,
		"is_completed": c.IsCompleted,
	}
}

func groupRequestView(g *model.GroupRequest) echo.Map {
	return echo.Map{
		"id":                g.ID,
		"group_id":          g.GroupID,
		"user_id":           g.UserID,
		"status":            g.Status,
		"payment_status":    g.PaymentStatus,
		"amount_paid_minor": g.AmountPaidMinor,
		"created_at":        g.CreatedAt.Format(time.RFC3339),
	}
}

func outcomeView(o *service.PaymentOutcome) echo.Map {
	v := echo.Map{
		"status":     o.Status,
		"attempt_id": o.AttemptID,
		"intent_id":  o.IntentID,
	}
	if o.ClientSecret != "" {
		v["client_secret"] = o.ClientSecret
	}
	if o.Collaboration != nil {
		v["collaboration"] = collaborationView(o.Collaboration)
	}
	if o.GroupRequest != nil {
		v["group_request"] = groupRequestView(o.GroupRequest)
	}
	return v
}
