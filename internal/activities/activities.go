package activities

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/cx-tal-miterani/booking-ledger/internal/events"
	"github.com/cx-tal-miterani/booking-ledger/internal/ledger"
	"github.com/cx-tal-miterani/booking-ledger/internal/models"
)

// Registered activity names
const (
	LoadBookingSummaryName = "LoadBookingSummary"
	SendBookingNoticeName  = "SendBookingNotice"
)

// BookingLoader reads a denormalized booking. Both ledger stores satisfy it.
type BookingLoader interface {
	BookingView(ctx context.Context, id uuid.UUID) (*models.BookingView, error)
}

// BookingSummary is what a notice is rendered from
type BookingSummary struct {
	BookingID       string `json:"booking_id"`
	Reference       string `json:"reference"`
	Status          string `json:"status"`
	UserName        string `json:"user_name,omitempty"`
	UserEmail       string `json:"user_email,omitempty"`
	FlightNumber    string `json:"flight_number,omitempty"`
	AirlineName     string `json:"airline_name,omitempty"`
	Route           string `json:"route,omitempty"`
	DepartureTime   string `json:"departure_time,omitempty"`
	TotalPassengers int    `json:"total_passengers"`
	TotalAmount     string `json:"total_amount"`
}

// SendBookingNoticeInput is the input for SendBookingNotice
type SendBookingNoticeInput struct {
	Event   events.Type    `json:"event"`
	Summary BookingSummary `json:"summary"`
}

// SendBookingNoticeOutput is the output of SendBookingNotice
type SendBookingNoticeOutput struct {
	Sent    bool   `json:"sent"`
	Subject string `json:"subject,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// Activities holds the dependencies of the notification activities
type Activities struct {
	Bookings BookingLoader
	Mailer   Mailer
}

// LoadBookingSummary loads the booking an event refers to. Without a loader
// the summary is built from the event alone. A booking that no longer exists
// is a non-retryable failure.
func (a *Activities) LoadBookingSummary(ctx context.Context, e events.Event) (*BookingSummary, error) {
	logger := activity.GetLogger(ctx)

	if a.Bookings == nil {
		logger.Debug("No booking loader, summarising from event", "bookingID", e.BookingID)
		return summaryFromEvent(e), nil
	}

	view, err := a.Bookings.BookingView(ctx, e.BookingID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return nil, temporal.NewNonRetryableApplicationError(
				fmt.Sprintf("booking %s not found", e.BookingID), "BookingNotFound", err)
		}
		return nil, fmt.Errorf("failed to load booking: %w", err)
	}

	logger.Info("Loaded booking", "bookingID", view.ID, "reference", view.Reference)
	return &BookingSummary{
		BookingID:       view.ID.String(),
		Reference:       view.Reference,
		Status:          string(view.Status),
		UserName:        view.UserName,
		UserEmail:       view.UserEmail,
		FlightNumber:    view.FlightNumber,
		AirlineName:     view.AirlineName,
		Route:           view.OriginCode + "-" + view.DestinationCode,
		DepartureTime:   view.DepartureTime.UTC().Format("2006-01-02 15:04 MST"),
		TotalPassengers: view.TotalPassengers,
		TotalAmount:     view.TotalAmount.StringFixed(2),
	}, nil
}

// SendBookingNotice renders and sends one notice to the booking owner
func (a *Activities) SendBookingNotice(ctx context.Context, input SendBookingNoticeInput) (*SendBookingNoticeOutput, error) {
	logger := activity.GetLogger(ctx)

	if input.Summary.UserEmail == "" {
		logger.Info("No recipient for notice", "reference", input.Summary.Reference)
		return &SendBookingNoticeOutput{Reason: "no recipient"}, nil
	}

	notice, ok := Render(input.Event, input.Summary)
	if !ok {
		return &SendBookingNoticeOutput{Reason: "no notice for " + string(input.Event)}, nil
	}

	if err := a.Mailer.Send(ctx, notice); err != nil {
		return nil, fmt.Errorf("failed to send notice: %w", err)
	}

	logger.Info("Notice sent", "reference", input.Summary.Reference, "to", notice.To, "subject", notice.Subject)
	return &SendBookingNoticeOutput{Sent: true, Subject: notice.Subject}, nil
}

func summaryFromEvent(e events.Event) *BookingSummary {
	return &BookingSummary{
		BookingID:       e.BookingID.String(),
		Reference:       e.Reference,
		TotalPassengers: e.TotalPassengers,
		TotalAmount:     e.TotalAmount.StringFixed(2),
	}
}
