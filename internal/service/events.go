package service

import (
	"context"
	"errors"

	"refurb-store-api/internal/model"
	"refurb-store-api/internal/repository"
	"refurb-store-api/pkg/validator"
)

// Websocket event types.
const (
	EventSaleRecorded   = "sale_recorded"
	EventSaleUpdated    = "sale_updated"
	EventStockUpdate    = "stock_update"
	EventProductChanged = "product_changed"
)

// Notifier fans events out to connected dashboards. The websocket hub
// implements it.
type Notifier interface {
	Publish(eventType string, data interface{})
}

// ReportInvalidator drops cached reports after a write that changes them.
type ReportInvalidator interface {
	Invalidate(ctx context.Context)
}

type nopNotifier struct{}

func (nopNotifier) Publish(string, interface{}) {}

type nopInvalidator struct{}

func (nopInvalidator) Invalidate(context.Context) {}

// actor is the user block attached to websocket events.
func actor(p model.Principal) map[string]interface{} {
	return map[string]interface{}{
		"id":    p.UserID,
		"name":  p.Name,
		"email": p.Email,
	}
}

// validate runs struct tags and reports the first failure.
func validate(req interface{}) error {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return validationFailed(errs[0].FailedField, errs[0].Tag)
	}
	return nil
}

func authorize(p model.Principal, privilege string) error {
	if !p.Can(privilege) {
		return forbidden(privilege)
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
