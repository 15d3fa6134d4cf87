package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// Job types carried in JobMessage.JobType.
const (
	JobTypeWarmCache   = "warm_cache"
	JobTypeHealthCheck = "health_check"
)

// healthCheckCity is looked up by health_check jobs to verify provider connectivity.
const healthCheckCity = "London"

// Dispatch errors that redelivery cannot fix.
var (
	ErrUnknownJobType = errors.New("unknown job type")
	ErrInvalidMessage = errors.New("invalid job message")
)

// JobMessage is the payload published to the worker topic.
type JobMessage struct {
	JobType string `json:"job_type"`

	// Cities overrides the configured warm targets for a single run.
	Cities []string `json:"cities,omitempty"`
}

// Dispatcher runs the job named by a message payload.
type Dispatcher struct {
	warmJob *WarmJob
	logger  zerolog.Logger
}

// NewDispatcher creates a dispatcher for the given warm job.
func NewDispatcher(warmJob *WarmJob, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{warmJob: warmJob, logger: logger}
}

// Handle decodes data and runs the job it names.
func (d *Dispatcher) Handle(ctx context.Context, data []byte) error {
	var msg JobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	switch msg.JobType {
	case JobTypeWarmCache:
		return d.handleWarmCache(ctx, msg)
	case JobTypeHealthCheck:
		return d.handleHealthCheck(ctx)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownJobType, msg.JobType)
	}
}

func (d *Dispatcher) handleWarmCache(ctx context.Context, msg JobMessage) error {
	var result *WarmResult
	if len(msg.Cities) > 0 {
		result = d.warmJob.RunCities(ctx, msg.Cities)
	} else {
		result = d.warmJob.Run(ctx)
	}

	// Unknown cities will not resolve on redelivery.
	transient := 0
	for _, e := range result.Errors {
		if !e.NotFound {
			transient++
		}
	}
	if transient > result.Successful {
		return fmt.Errorf("too many warm failures: %d/%d", transient, result.TotalCities)
	}
	return nil
}

func (d *Dispatcher) handleHealthCheck(ctx context.Context) error {
	d.logger.Debug().Msg("running health check")

	result := d.warmJob.RunCities(ctx, []string{healthCheckCity})
	if len(result.Errors) > 0 {
		return fmt.Errorf("health check failed: %s", result.Errors[0].Error)
	}
	if result.Successful == 0 {
		return errors.New("health check did not run")
	}

	d.logger.Debug().Msg("health check passed")
	return nil
}

// PubSubHandler receives job messages from a Pub/Sub subscription.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	dispatcher       *Dispatcher
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	Dispatcher       *Dispatcher
	Logger           zerolog.Logger
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	// A warm run is already concurrent; keep few messages in flight.
	subscriber.ReceiveSettings.MaxOutstandingMessages = 2
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		dispatcher:       cfg.Dispatcher,
		logger:           cfg.Logger,
	}, nil
}

// Start begins processing Pub/Sub messages. It blocks until ctx is done.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		h.handleMessage(ctx, msg)
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

func (h *PubSubHandler) handleMessage(ctx context.Context, msg *pubsub.Message) {
	startTime := time.Now()

	logger := h.logger.With().
		Str("message_id", msg.ID).
		Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
		Logger()

	logger.Debug().Msg("received pubsub message")

	err := h.dispatcher.Handle(ctx, msg.Data)
	switch {
	case errors.Is(err, ErrUnknownJobType), errors.Is(err, ErrInvalidMessage):
		logger.Warn().Err(err).Msg("ignoring message")
		msg.Ack() // Ack bad messages to prevent redelivery
		return
	case err != nil:
		logger.Error().Err(err).Msg("job failed")
		msg.Nack()
		return
	}

	logger.Info().
		Dur("duration", time.Since(startTime)).
		Msg("job completed successfully")

	msg.Ack()
}
