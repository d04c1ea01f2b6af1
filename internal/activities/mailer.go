package activities

import (
	"context"
	"fmt"
	"strings"

	"github.com/cx-tal-miterani/booking-ledger/internal/events"
	"github.com/cx-tal-miterani/booking-ledger/internal/logger"
)

// Notice is one rendered message
type Notice struct {
	To      string
	Name    string
	Subject string
	Body    string
}

// Mailer delivers notices
type Mailer interface {
	Send(ctx context.Context, n Notice) error
}

// LogMailer writes notices to the log instead of delivering them
type LogMailer struct {
	log *logger.Logger
}

func NewLogMailer(log *logger.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(ctx context.Context, n Notice) error {
	m.log.Info("NOTIFY", n.Subject, "to", n.To, "name", n.Name)
	return nil
}

// Render builds the notice for a booking event. It reports false for event
// types that do not notify the owner.
func Render(t events.Type, s BookingSummary) (Notice, bool) {
	var subject, lead string
	switch t {
	case events.BookingCreated:
		subject = fmt.Sprintf("Booking %s confirmed", s.Reference)
		lead = "Your booking is confirmed."
	case events.BookingUpdated:
		subject = fmt.Sprintf("Booking %s updated", s.Reference)
		lead = "Your booking has been changed."
	case events.BookingCancelled:
		subject = fmt.Sprintf("Booking %s cancelled", s.Reference)
		lead = "Your booking has been cancelled."
	default:
		return Notice{}, false
	}

	var b strings.Builder
	if s.UserName != "" {
		fmt.Fprintf(&b, "Hello %s,\n\n", s.UserName)
	}
	b.WriteString(lead + "\n\n")
	fmt.Fprintf(&b, "Reference: %s\n", s.Reference)
	if s.FlightNumber != "" {
		fmt.Fprintf(&b, "Flight: %s %s (%s)\n", s.AirlineName, s.FlightNumber, s.Route)
		fmt.Fprintf(&b, "Departure: %s\n", s.DepartureTime)
	}
	fmt.Fprintf(&b, "Passengers: %d\n", s.TotalPassengers)
	fmt.Fprintf(&b, "Total: %s\n", s.TotalAmount)

	return Notice{To: s.UserEmail, Name: s.UserName, Subject: subject, Body: b.String()}, true
}
