// Package app holds the order use cases. Order placement is a workflow
// across the catalog service and the local store:
//
//	RECEIVED -> RESERVING_STOCK -> STOCK_RESERVED -> PERSISTING -> COMMITTED
//	                            \-> STOCK_REJECTED             \-> FAILED
//
// Under the saga policy a rejection or a persistence failure is followed by
// COMPENSATING/COMPENSATED, which returns every reserved unit to the catalog.
// Under the default policy reserved units stay decremented.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/jcmexdev/disqueria/internal/coordinator"
	"github.com/jcmexdev/disqueria/internal/coordinator/sagalog"
	"github.com/jcmexdev/disqueria/internal/orders-service/domain"
	"github.com/jcmexdev/disqueria/internal/pkg/apperr"
	"github.com/jcmexdev/disqueria/internal/pkg/commands"
	"github.com/jcmexdev/disqueria/internal/pkg/telemetry"
)

var errCompensationIncomplete = errors.New("reserved stock was not fully restored")

// State is a workflow state as recorded in the saga log.
type State = sagalog.Status

const (
	StateReceived       State = "RECEIVED"
	StateReservingStock State = "RESERVING_STOCK"
	StateStockReserved  State = "STOCK_RESERVED"
	StateStockRejected  State = "STOCK_REJECTED"
	StatePersisting     State = "PERSISTING"
	StateCommitted      State = "COMMITTED"
	StateFailed         State = sagalog.StatusFailed
	StateCompensating   State = sagalog.StatusCompensating
	StateCompensated    State = sagalog.StatusCompensated
)

type Config struct {
	Policy coordinator.Policy
	// StepTimeout bounds every remote stock call. Zero means no bound
	// beyond the caller's context.
	StepTimeout time.Duration
}

type Workflow struct {
	catalog commands.Sender
	store   domain.Store
	log     sagalog.Repository
	cfg     Config
	now     func() time.Time
}

// NewWorkflow wires the workflow. log may be nil.
func NewWorkflow(catalog commands.Sender, store domain.Store, log sagalog.Repository, cfg Config) *Workflow {
	if cfg.Policy == "" {
		cfg.Policy = coordinator.CompensationNone
	}
	return &Workflow{
		catalog: catalog,
		store:   store,
		log:     log,
		cfg:     cfg,
		now:     time.Now,
	}
}

// CreateOrder reserves stock for every item, one item at a time and in
// request order, then persists the order. The first reservation failure
// aborts the order and is returned unchanged. No order is stored unless
// every reservation succeeded.
func (w *Workflow) CreateOrder(ctx context.Context, userID string, items []domain.OrderItem) (domain.Order, error) {
	if err := validate(userID, items); err != nil {
		return domain.Order{}, err
	}

	ctx, span := otel.Tracer("disqueria/orders").Start(ctx, "create_order workflow")
	defer span.End()

	order := domain.NewOrder(userID, items, w.now())
	span.SetAttributes(
		attribute.String("order.id", order.ID),
		attribute.Int("order.items", len(order.Items)),
		attribute.String("order.compensation", string(w.cfg.Policy)),
	)

	w.transition(ctx, order.ID, StateReceived, receivedPayload(ctx, userID, items), nil)

	steps := make([]coordinator.Step, len(order.Items))
	for i, item := range order.Items {
		steps[i] = coordinator.NewDecreaseStockStep(w.catalog, i, item.AlbumID, item.Quantity)
	}
	saga := coordinator.NewOrchestrator(order.ID, steps,
		coordinator.WithPolicy(w.cfg.Policy),
		coordinator.WithStepTimeout(w.cfg.StepTimeout),
		coordinator.WithLog(w.log),
	)

	w.transition(ctx, order.ID, StateReservingStock, "", nil)
	if err := saga.Start(ctx); err != nil {
		cause := err
		var stepErr *coordinator.StepError
		if errors.As(err, &stepErr) {
			cause = stepErr.Err
		}
		w.transition(ctx, order.ID, StateStockRejected, "", cause)
		if w.cfg.Policy == coordinator.CompensationSaga && stepErr != nil && stepErr.Index > 0 {
			if stepErr.Compensated {
				w.transition(ctx, order.ID, StateCompensated, "", nil)
			} else {
				w.transition(ctx, order.ID, StateFailed, "", errCompensationIncomplete)
			}
		}
		span.SetStatus(codes.Error, cause.Error())
		return domain.Order{}, cause
	}
	w.transition(ctx, order.ID, StateStockReserved, "", nil)

	w.transition(ctx, order.ID, StatePersisting, "", nil)
	if err := w.store.Create(ctx, order); err != nil {
		w.transition(ctx, order.ID, StateFailed, "", err)
		if w.cfg.Policy == coordinator.CompensationSaga {
			w.transition(ctx, order.ID, StateCompensating, "", nil)
			if saga.Rollback(ctx, err) {
				w.transition(ctx, order.ID, StateCompensated, "", nil)
			}
		} else {
			slog.WarnContext(ctx, "order not persisted, reserved stock stays decremented",
				"order_id", order.ID,
				"reserved", saga.Applied(),
			)
		}
		span.SetStatus(codes.Error, err.Error())
		return domain.Order{}, fmt.Errorf("persist order %s: %w", order.ID, err)
	}

	w.transition(ctx, order.ID, StateCommitted, "", nil)
	return order, nil
}

// UserOrders lists the orders of userID with their items.
func (w *Workflow) UserOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	if userID == "" {
		return nil, apperr.Validation("userId is required")
	}
	return w.store.ListByUser(ctx, userID)
}

func validate(userID string, items []domain.OrderItem) error {
	if userID == "" {
		return apperr.Validation("userId is required")
	}
	if len(items) == 0 {
		return apperr.Validation("items must not be empty")
	}
	for i, item := range items {
		if item.AlbumID == "" {
			return apperr.Validation("items[%d].albumId is required", i)
		}
		if item.Quantity < 1 {
			return apperr.Validation("items[%d].quantity must be at least 1", i)
		}
		if item.Price < 0 {
			return apperr.Validation("items[%d].price must not be negative", i)
		}
	}
	return nil
}

// receivedPayload renders the request as it arrived on the wire.
func receivedPayload(ctx context.Context, userID string, items []domain.OrderItem) string {
	lines := make([]commands.OrderLine, len(items))
	for i, item := range items {
		lines[i] = commands.OrderLine{AlbumID: item.AlbumID, Quantity: item.Quantity, Price: item.Price}
	}
	payload, err := json.Marshal(commands.CreateOrderPayload{UserID: userID, Items: lines})
	if err != nil {
		slog.WarnContext(ctx, "could not encode order request for the saga log", "error", err)
		return ""
	}
	return string(payload)
}

func (w *Workflow) transition(ctx context.Context, orderID string, state State, payload string, cause error) {
	attrs := []any{"order_id", orderID, "state", state}
	if cause != nil {
		attrs = append(attrs, "error", cause)
	}
	slog.InfoContext(ctx, "order workflow transition", attrs...)

	switch state {
	case StateCommitted, StateStockRejected, StateFailed, StateCompensated:
		telemetry.RecordWorkflow(string(state))
	}

	if w.log == nil {
		return
	}
	var errs []string
	if cause != nil {
		errs = []string{cause.Error()}
	}
	if err := w.log.Save(ctx, sagalog.NewEntry(ctx, orderID, state, "", payload, errs)); err != nil {
		slog.WarnContext(ctx, "could not write saga log", "order_id", orderID, "error", err)
	}
}
