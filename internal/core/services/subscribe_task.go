package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/IANDYI/tracking-sync/internal/adapters/metrics"
	"github.com/IANDYI/tracking-sync/internal/core/domain"
	"github.com/IANDYI/tracking-sync/internal/core/ports"
	"github.com/IANDYI/tracking-sync/internal/core/validator"
)

// SubscribeTask is the long-running consumer of cross-service sync and
// delete events. For every delivery it validates each candidate entity,
// performs an idempotent upsert (or a cascading delete) and decides the
// acknowledgment: a message is acknowledged only after a successful
// persistence attempt or a definitive validation skip, so transient store
// unavailability leads to redelivery rather than loss.
type SubscribeTask struct {
	bus          ports.EventBus
	activities   ports.PhysicalActivityRepository
	sleeps       ports.SleepRepository
	weights      ports.WeightRepository
	bodyFats     ports.BodyFatRepository
	logs         ports.LogRepository
	environments ports.EnvironmentRepository
	logger       *zap.Logger

	mu      sync.Mutex
	running bool
}

// NewSubscribeTask wires the task against the event bus and the record
// repositories.
func NewSubscribeTask(
	bus ports.EventBus,
	activities ports.PhysicalActivityRepository,
	sleeps ports.SleepRepository,
	weights ports.WeightRepository,
	bodyFats ports.BodyFatRepository,
	logs ports.LogRepository,
	environments ports.EnvironmentRepository,
	logger *zap.Logger,
) *SubscribeTask {
	return &SubscribeTask{
		bus:          bus,
		activities:   activities,
		sleeps:       sleeps,
		weights:      weights,
		bodyFats:     bodyFats,
		logs:         logs,
		environments: environments,
		logger:       logger,
	}
}

// Run subscribes to every recognized event kind and transitions the task to
// running. Calling Run while running is a no-op.
func (t *SubscribeTask) Run() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return nil
	}

	subscriptions := map[string]ports.MessageHandler{
		QueuePhysicalActivitySync: t.handlePhysicalActivitySync,
		QueueSleepSync:            t.handleSleepSync,
		QueueWeightSync:           t.handleWeightSync,
		QueueLogSync:              t.handleLogSync,
		QueueUserDelete:           t.handleUserDelete,
		QueueInstitutionDelete:    t.handleInstitutionDelete,
	}
	for queue, handler := range subscriptions {
		if err := t.bus.Subscribe(queue, handler); err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", queue, err)
		}
	}

	t.running = true
	t.logger.Info("subscribe task running")
	return nil
}

// Stop unsubscribes all channels and transitions the task to stopped.
// In-flight handlers complete before their consumers shut down; callers
// needing a deadline wrap Stop externally.
func (t *SubscribeTask) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return nil
	}

	queues := []string{
		QueuePhysicalActivitySync,
		QueueSleepSync,
		QueueWeightSync,
		QueueLogSync,
		QueueUserDelete,
		QueueInstitutionDelete,
	}
	for _, queue := range queues {
		if err := t.bus.Unsubscribe(queue); err != nil {
			t.logger.Warn("failed to unsubscribe", zap.String("queue", queue), zap.Error(err))
		}
	}

	t.running = false
	t.logger.Info("subscribe task stopped")
	return nil
}

// IsRunning reports the task state.
func (t *SubscribeTask) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

func (t *SubscribeTask) handlePhysicalActivitySync(ctx context.Context, body []byte) ports.Action {
	return t.handleSync(ctx, EventPhysicalActivitySave, body,
		func(env *Envelope) json.RawMessage { return env.PhysicalActivity },
		func(ctx context.Context, item json.RawMessage) error {
			var activity domain.PhysicalActivity
			if err := json.Unmarshal(item, &activity); err != nil {
				return domain.NewValidationError("Physical Activity is not parseable...", err.Error())
			}
			if err := validator.ValidatePhysicalActivity(&activity); err != nil {
				return err
			}
			return t.upsertActivity(ctx, &activity)
		})
}

func (t *SubscribeTask) handleSleepSync(ctx context.Context, body []byte) ports.Action {
	return t.handleSync(ctx, EventSleepSave, body,
		func(env *Envelope) json.RawMessage { return env.Sleep },
		func(ctx context.Context, item json.RawMessage) error {
			var sleep domain.Sleep
			if err := json.Unmarshal(item, &sleep); err != nil {
				return domain.NewValidationError("Sleep is not parseable...", err.Error())
			}
			if err := validator.ValidateSleep(&sleep); err != nil {
				return err
			}
			return t.upsertSleep(ctx, &sleep)
		})
}

func (t *SubscribeTask) handleWeightSync(ctx context.Context, body []byte) ports.Action {
	return t.handleSync(ctx, EventWeightSave, body,
		func(env *Envelope) json.RawMessage { return env.Weight },
		func(ctx context.Context, item json.RawMessage) error {
			var weight domain.Weight
			if err := json.Unmarshal(item, &weight); err != nil {
				return domain.NewValidationError("Weight is not parseable...", err.Error())
			}
			if err := validator.ValidateWeight(&weight); err != nil {
				return err
			}
			return t.upsertWeight(ctx, &weight)
		})
}

func (t *SubscribeTask) handleLogSync(ctx context.Context, body []byte) ports.Action {
	return t.handleSync(ctx, EventLogSave, body,
		func(env *Envelope) json.RawMessage { return env.Log },
		func(ctx context.Context, item json.RawMessage) error {
			var logRecord domain.Log
			if err := json.Unmarshal(item, &logRecord); err != nil {
				return domain.NewValidationError("Log is not parseable...", err.Error())
			}
			if err := validator.ValidateLog(&logRecord); err != nil {
				return err
			}
			return t.upsertLog(ctx, &logRecord)
		})
}

// handleSync implements the shared per-delivery discipline of the sync
// events: decode the envelope, process each candidate independently, skip
// invalid ones, and requeue the whole delivery if any candidate hit a
// transient persistence failure. Upserts keep the redelivery of already
// persisted siblings harmless.
func (t *SubscribeTask) handleSync(
	ctx context.Context,
	eventName string,
	body []byte,
	payload func(*Envelope) json.RawMessage,
	apply func(context.Context, json.RawMessage) error,
) ports.Action {
	start := time.Now()
	defer func() {
		metrics.SyncMessageDuration.WithLabelValues(eventName).Observe(time.Since(start).Seconds())
	}()

	env, err := decodeEnvelope(body, eventName)
	if err != nil {
		t.logger.Warn("dropping malformed event message",
			zap.String("event", eventName), zap.Error(err))
		metrics.SyncMessagesTotal.WithLabelValues(eventName, metrics.OutcomeDropped).Inc()
		return ports.ActionDrop
	}

	items, err := splitPayload(payload(env))
	if err != nil {
		t.logger.Warn("dropping event message without entity payload",
			zap.String("event", eventName), zap.Error(err))
		metrics.SyncMessagesTotal.WithLabelValues(eventName, metrics.OutcomeDropped).Inc()
		return ports.ActionDrop
	}

	requeue := false
	for _, item := range items {
		err := apply(ctx, item)
		switch {
		case err == nil:
			metrics.SyncMessagesTotal.WithLabelValues(eventName, metrics.OutcomePersisted).Inc()
		case isTransientPersistence(err):
			t.logger.Warn("persistence unavailable, delivery will be requeued",
				zap.String("event", eventName), zap.Error(err))
			requeue = true
		default:
			// Validation failure on one candidate never rejects the batch.
			t.logger.Warn("skipping invalid record",
				zap.String("event", eventName), zap.Error(err))
			metrics.SyncMessagesTotal.WithLabelValues(eventName, metrics.OutcomeSkipped).Inc()
		}
	}

	if requeue {
		metrics.SyncMessagesTotal.WithLabelValues(eventName, metrics.OutcomeRequeued).Inc()
		return ports.ActionRequeue
	}
	return ports.ActionAck
}

func (t *SubscribeTask) handleUserDelete(ctx context.Context, body []byte) ports.Action {
	return t.handleDelete(ctx, EventUserDelete, body,
		func(env *Envelope) json.RawMessage { return env.User },
		func(ctx context.Context, childID string) error {
			// Fan out across every collection owned by the child. Zero
			// matching rows in any of them is success.
			if err := t.activities.RemoveAllByChild(ctx, childID); err != nil {
				return err
			}
			if err := t.sleeps.RemoveAllByChild(ctx, childID); err != nil {
				return err
			}
			if err := t.weights.RemoveAllByChild(ctx, childID); err != nil {
				return err
			}
			if err := t.bodyFats.RemoveAllByChild(ctx, childID); err != nil {
				return err
			}
			return t.logs.RemoveAllByChild(ctx, childID)
		})
}

func (t *SubscribeTask) handleInstitutionDelete(ctx context.Context, body []byte) ports.Action {
	return t.handleDelete(ctx, EventInstitutionDelete, body,
		func(env *Envelope) json.RawMessage { return env.Institution },
		func(ctx context.Context, institutionID string) error {
			return t.environments.RemoveAllByInstitution(ctx, institutionID)
		})
}

func (t *SubscribeTask) handleDelete(
	ctx context.Context,
	eventName string,
	body []byte,
	payload func(*Envelope) json.RawMessage,
	remove func(context.Context, string) error,
) ports.Action {
	start := time.Now()
	defer func() {
		metrics.SyncMessageDuration.WithLabelValues(eventName).Observe(time.Since(start).Seconds())
	}()

	env, err := decodeEnvelope(body, eventName)
	if err != nil {
		t.logger.Warn("dropping malformed event message",
			zap.String("event", eventName), zap.Error(err))
		metrics.SyncMessagesTotal.WithLabelValues(eventName, metrics.OutcomeDropped).Inc()
		return ports.ActionDrop
	}

	var subject subjectRef
	if err := json.Unmarshal(payload(env), &subject); err != nil || subject.ID == "" {
		t.logger.Warn("dropping delete event without subject id",
			zap.String("event", eventName))
		metrics.SyncMessagesTotal.WithLabelValues(eventName, metrics.OutcomeDropped).Inc()
		return ports.ActionDrop
	}
	if err := validator.ValidateObjectID(subject.ID, "id"); err != nil {
		t.logger.Warn("skipping delete event with invalid subject id",
			zap.String("event", eventName), zap.String("subject_id", subject.ID))
		metrics.SyncMessagesTotal.WithLabelValues(eventName, metrics.OutcomeSkipped).Inc()
		return ports.ActionAck
	}

	if err := remove(ctx, subject.ID); err != nil {
		if isTransientPersistence(err) {
			t.logger.Warn("cascade delete deferred, delivery will be requeued",
				zap.String("event", eventName), zap.String("subject_id", subject.ID), zap.Error(err))
			metrics.SyncMessagesTotal.WithLabelValues(eventName, metrics.OutcomeRequeued).Inc()
			return ports.ActionRequeue
		}
		t.logger.Error("cascade delete failed",
			zap.String("event", eventName), zap.String("subject_id", subject.ID), zap.Error(err))
		metrics.SyncMessagesTotal.WithLabelValues(eventName, metrics.OutcomeRequeued).Inc()
		return ports.ActionRequeue
	}

	t.logger.Info("cascade delete applied",
		zap.String("event", eventName), zap.String("subject_id", subject.ID))
	metrics.SyncMessagesTotal.WithLabelValues(eventName, metrics.OutcomePersisted).Inc()
	return ports.ActionAck
}

// upsertActivity persists an activity keyed by (child_id, start_time).
// Redelivery of the same logical record resolves to a no-op.
func (t *SubscribeTask) upsertActivity(ctx context.Context, activity *domain.PhysicalActivity) error {
	exists, err := t.activities.CheckExist(ctx, activity)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	_, err = t.activities.Create(ctx, activity)
	return ignoreConflict(err)
}

func (t *SubscribeTask) upsertSleep(ctx context.Context, sleep *domain.Sleep) error {
	exists, err := t.sleeps.CheckExist(ctx, sleep)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	_, err = t.sleeps.Create(ctx, sleep)
	return ignoreConflict(err)
}

// upsertWeight persists a weight and, when the payload carries a body fat
// percentage, the associated body fat record. The weight then references the
// body fat by id without owning its lifecycle.
func (t *SubscribeTask) upsertWeight(ctx context.Context, weight *domain.Weight) error {
	if weight.BodyFat != nil {
		bodyFat := &domain.BodyFat{
			ChildID:   weight.ChildID,
			Timestamp: weight.Timestamp,
			Value:     weight.BodyFat,
			Unit:      "%",
		}
		exists, err := t.bodyFats.CheckExist(ctx, bodyFat)
		if err != nil {
			return err
		}
		if !exists {
			created, err := t.bodyFats.Create(ctx, bodyFat)
			if err != nil {
				if ignoreConflict(err) != nil {
					return err
				}
			} else {
				weight.BodyFatID = created.ID
			}
		}
		if weight.BodyFatID == "" {
			query := ports.NewQuery()
			query.Filters["child_id"] = bodyFat.ChildID
			query.Filters["timestamp"] = bodyFat.Timestamp
			if found, err := t.bodyFats.FindOne(ctx, query); err == nil {
				weight.BodyFatID = found.ID
			}
		}
	}

	exists, err := t.weights.CheckExist(ctx, weight)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	_, err = t.weights.Create(ctx, weight)
	return ignoreConflict(err)
}

// upsertLog overwrites the value when the day's log already exists: daily
// totals are replaced, not duplicated.
func (t *SubscribeTask) upsertLog(ctx context.Context, logRecord *domain.Log) error {
	exists, err := t.logs.CheckExist(ctx, logRecord)
	if err != nil {
		return err
	}
	if exists {
		_, err = t.logs.UpdateValue(ctx, logRecord)
		var notFound *domain.NotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	_, err = t.logs.Create(ctx, logRecord)
	return ignoreConflict(err)
}

// ignoreConflict treats a duplicate natural key as the harmless outcome of a
// concurrent or redelivered upsert.
func ignoreConflict(err error) error {
	var conflict *domain.ConflictError
	if errors.As(err, &conflict) {
		return nil
	}
	return err
}

// isTransientPersistence reports whether the store failure should keep the
// delivery unacknowledged for redelivery. Validation and conflict outcomes
// are definitive; unavailability and unexpected repository failures are not.
func isTransientPersistence(err error) bool {
	if errors.Is(err, domain.ErrUnavailable) {
		return true
	}
	var repoErr *domain.RepositoryError
	return errors.As(err, &repoErr)
}
