package store

import (
	"context"
	"errors"
	"time"

	"fleetroute/internal/model"
)

// Store is the persistence interface used by the API server. Both the
// in-memory and the Postgres implementation satisfy it; the server picks one
// at startup based on configuration.
type Store interface {
	// Instances
	CreateInstance(ctx context.Context, tenantID string, in model.InstanceIn) (model.InstanceRec, error)
	GetInstance(ctx context.Context, tenantID, id string) (model.InstanceRec, error)
	ListInstances(ctx context.Context, tenantID, cursor string, limit int) ([]model.InstanceRec, string, error)
	DeleteInstance(ctx context.Context, tenantID, id string) error

	// Solve jobs
	CreateSolveJob(ctx context.Context, job model.SolveJob) error
	UpdateSolveJob(ctx context.Context, job model.SolveJob) error
	GetSolveJob(ctx context.Context, tenantID, id string) (model.SolveJob, error)
	ListSolveJobs(ctx context.Context, tenantID, status, cursor string, limit int) ([]model.SolveJob, string, error)

	// Subscriptions
	CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error)
	GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error)
	ListSubscriptions(ctx context.Context, tenantID, cursor string, limit int) ([]model.Subscription, string, error)
	DeleteSubscription(ctx context.Context, tenantID, id string) error

	// Webhook deliveries
	EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error)
	FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error)
	MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error
	FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error

	// Health
	Ping(ctx context.Context) error
}

var ErrNotFound = errors.New("not found")
