package tasks

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/Srujan0798/Rest-iN-U-sub003/internal/domain"
)

// Task type names.
const (
	// TypeBidAudit appends an accepted bid to the durable audit trail.
	TypeBidAudit = "auction:bid_audit"

	// TypeNotifyDispatch hands an event to the notification collaborator,
	// fire-and-forget.
	TypeNotifyDispatch = "notify:dispatch"

	// TypeAuctionSweep is the periodic scheduler entry that activates and
	// closes auctions against their start/end times.
	TypeAuctionSweep = "auction:sweep"
)

// BidAuditPayload carries one accepted bid to the persistence worker.
type BidAuditPayload struct {
	Bid domain.Bid `json:"bid"`
}

func NewBidAuditTask(bid domain.Bid) (*asynq.Task, error) {
	payload, err := json.Marshal(BidAuditPayload{Bid: bid})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeBidAudit, payload, asynq.Queue("critical")), nil
}

// NotificationPayload describes one notification for the external
// dispatcher.
type NotificationPayload struct {
	Identity string          `json:"identity"`
	Kind     string          `json:"kind"`
	Data     json.RawMessage `json:"data,omitempty"`
}

func NewNotificationTask(identity, kind string, data interface{}) (*asynq.Task, error) {
	var raw json.RawMessage
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		raw = encoded
	}
	payload, err := json.Marshal(NotificationPayload{Identity: identity, Kind: kind, Data: raw})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeNotifyDispatch, payload, asynq.Queue("low")), nil
}

func NewAuctionSweepTask() *asynq.Task {
	return asynq.NewTask(TypeAuctionSweep, nil, asynq.Queue("default"))
}

// AsynqEnqueuer adapts *asynq.Client to the narrow enqueue interface the
// services consume.
type AsynqEnqueuer struct {
	client *asynq.Client
}

func NewAsynqEnqueuer(client *asynq.Client) *AsynqEnqueuer {
	if client == nil {
		panic("asynq client cannot be nil for AsynqEnqueuer")
	}
	return &AsynqEnqueuer{client: client}
}

func (e *AsynqEnqueuer) Enqueue(ctx context.Context, task *asynq.Task) error {
	_, err := e.client.EnqueueContext(ctx, task)
	return err
}
