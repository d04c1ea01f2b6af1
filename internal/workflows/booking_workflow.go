package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/cx-tal-miterani/booking-ledger/internal/activities"
	"github.com/cx-tal-miterani/booking-ledger/internal/events"
)

const (
	// ActivityTimeout bounds each notification activity
	ActivityTimeout = 30 * time.Second
	// MaxActivityAttempts is the maximum number of attempts per activity
	MaxActivityAttempts = 3
)

// NotificationResult is the result of the notification workflow
type NotificationResult struct {
	BookingID string      `json:"booking_id"`
	Reference string      `json:"reference,omitempty"`
	Event     events.Type `json:"event"`
	Sent      bool        `json:"sent"`
	Subject   string      `json:"subject,omitempty"`
	Skipped   string      `json:"skipped,omitempty"`
}

// BookingNotificationWorkflow notifies the booking owner about one committed
// booking change. Deleted bookings have nothing left to load, so they are
// skipped.
func BookingNotificationWorkflow(ctx workflow.Context, e events.Event) (*NotificationResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Notification workflow started", "bookingID", e.BookingID, "event", e.Type)

	result := &NotificationResult{BookingID: e.BookingID.String(), Reference: e.Reference, Event: e.Type}
	if !e.Type.IsBooking() || e.Type == events.BookingDeleted {
		result.Skipped = "no notice for " + string(e.Type)
		return result, nil
	}

	activityOpts := workflow.ActivityOptions{
		StartToCloseTimeout: ActivityTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    MaxActivityAttempts,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, activityOpts)

	var summary activities.BookingSummary
	if err := workflow.ExecuteActivity(ctx, activities.LoadBookingSummaryName, e).Get(ctx, &summary); err != nil {
		logger.Error("Failed to load booking", "bookingID", e.BookingID, "error", err)
		return nil, err
	}

	var sent activities.SendBookingNoticeOutput
	err := workflow.ExecuteActivity(ctx, activities.SendBookingNoticeName, activities.SendBookingNoticeInput{
		Event:   e.Type,
		Summary: summary,
	}).Get(ctx, &sent)
	if err != nil {
		logger.Error("Failed to send notice", "reference", summary.Reference, "error", err)
		return nil, err
	}

	result.Reference = summary.Reference
	result.Sent = sent.Sent
	result.Subject = sent.Subject
	result.Skipped = sent.Reason
	logger.Info("Notification workflow completed", "reference", summary.Reference, "sent", sent.Sent)
	return result, nil
}
