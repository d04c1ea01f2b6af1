package events

import (
	"context"
	"fmt"

	"go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"

	"github.com/cx-tal-miterani/booking-ledger/internal/logger"
)

// NotificationWorkflowName is the registered name of the worker's booking
// notification workflow
const NotificationWorkflowName = "BookingNotificationWorkflow"

// WorkflowPublisher starts one notification workflow per booking event.
// Flight events are ignored.
type WorkflowPublisher struct {
	client    client.Client
	taskQueue string
	log       *logger.Logger
}

func NewWorkflowPublisher(c client.Client, taskQueue string, log *logger.Logger) *WorkflowPublisher {
	return &WorkflowPublisher{client: c, taskQueue: taskQueue, log: log}
}

func (p *WorkflowPublisher) Publish(ctx context.Context, e Event) error {
	if !e.Type.IsBooking() {
		return nil
	}

	options := client.StartWorkflowOptions{
		ID:                    "booking-notification-" + e.ID.String(),
		TaskQueue:             p.taskQueue,
		WorkflowIDReusePolicy: enums.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
	}

	run, err := p.client.ExecuteWorkflow(ctx, options, NotificationWorkflowName, e)
	if err != nil {
		return fmt.Errorf("failed to start notification workflow: %w", err)
	}

	p.log.Info("TEMPORAL", "notification workflow started",
		"workflow_id", run.GetID(), "run_id", run.GetRunID(), "type", e.Type, "booking_id", e.BookingID)
	return nil
}
