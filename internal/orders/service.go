package orders

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/occasionbuddy/occasionbuddy-backend/internal/toasts"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/config"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/db/models"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/enums"
	pkgerrors "github.com/occasionbuddy/occasionbuddy-backend/pkg/errors"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/logger"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/outbox"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/outbox/payloads"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/pagination"
)

const (
	bookingDateLayout = "2006-01-02"
	maxNoteLength     = 1000
)

// Service exposes customer booking flows and admin order management.
type Service interface {
	CreateOrder(ctx context.Context, userID uuid.UUID, input CreateOrderInput) (*OrderDTO, error)
	ListMyOrders(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error)
	GetMyOrder(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error)
	ListOrders(ctx context.Context, input AdminListInput) (*OrderList, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*OrderDTO, error)
}

// ServiceParams wires the order service dependencies.
type ServiceParams struct {
	Repo     Repository
	Tx       txRunner
	Outbox   outbox.Emitter
	Products productChecker
	Profiles profileLoader
	Policy   enums.TransitionPolicy
	Metrics  transitionObserver
	Toasts   toasts.Notifier
	Logger   *logger.Logger
	Now      func() time.Time
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outbox.Emitter
	products productChecker
	profiles profileLoader
	policy   enums.TransitionPolicy
	metrics  transitionObserver
	toasts   toasts.Notifier
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds an order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product checker required")
	}
	if params.Profiles == nil {
		return nil, fmt.Errorf("profile loader required")
	}
	policy := params.Policy
	if policy == "" {
		policy = enums.TransitionPolicyPermissive
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:     params.Repo,
		tx:       params.Tx,
		outbox:   params.Outbox,
		products: params.Products,
		profiles: params.Profiles,
		policy:   policy,
		metrics:  params.Metrics,
		toasts:   params.Toasts,
		logg:     params.Logger,
		now:      now,
	}, nil
}

// PolicyFromConfig maps the configured transition policy string onto the enum.
func PolicyFromConfig(cfg config.OrdersConfig) enums.TransitionPolicy {
	if cfg.StrictTransitions() {
		return enums.TransitionPolicyStrict
	}
	return enums.TransitionPolicyPermissive
}

func (s *service) CreateOrder(ctx context.Context, userID uuid.UUID, input CreateOrderInput) (*OrderDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	date, lat, lng, note, err := validateCreate(input)
	if err != nil {
		return nil, err
	}

	exists, err := s.products.Exists(ctx, input.ProductID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check product")
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	profile, err := s.profiles.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user profile")
	}

	order := &models.Order{
		UserID:       userID,
		UserName:     profile.Name,
		UserEmail:    profile.Email,
		UserMobileNo: profile.MobileNo,
		ProductID:    input.ProductID,
		Date:         date,
		LocationLat:  lat,
		LocationLng:  lng,
		Note:         note,
		Status:       enums.OrderStatusPending,
	}

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert order")
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: userID, Role: profile.Role},
			Data: payloads.OrderCreatedEvent{
				OrderID:   order.ID,
				UserID:    userID,
				ProductID: order.ProductID,
				Date:      order.Date,
				Status:    order.Status,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order_created")
		}
		return nil
	}); err != nil {
		return nil, err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"order_id":   order.ID.String(),
			"product_id": order.ProductID.String(),
		}), "orders.created")
	}
	if s.toasts != nil {
		s.toasts.Notify(ctx, userID, enums.ToastKindSuccess, "Booking placed successfully!")
	}

	dto := FromModel(order)
	return &dto, nil
}

func (s *service) ListMyOrders(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListByUser(ctx, userID, cursor, params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return toPage(rows, params.Limit), nil
}

func (s *service) GetMyOrder(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindForUser(ctx, userID, orderID)
	if err != nil {
		return nil, mapLoadError(err)
	}
	dto := FromModel(order)
	return &dto, nil
}

func (s *service) ListOrders(ctx context.Context, input AdminListInput) (*OrderList, error) {
	var status *enums.OrderStatus
	if strings.TrimSpace(input.Status) != "" {
		parsed, err := enums.ParseOrderStatus(strings.TrimSpace(input.Status))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		status = &parsed
	}
	cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, status, cursor, input.Pagination.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return toPage(rows, input.Pagination.Limit), nil
}

// UpdateStatus applies an admin status change. Re-setting the current status
// succeeds without emitting an event. Concurrent updates are last-write-wins.
func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*OrderDTO, error) {
	next, err := enums.ParseOrderStatus(strings.TrimSpace(input.Status))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "status must be one of pending, confirmed, completed, cancelled")
	}

	var (
		updated *models.Order
		from    enums.OrderStatus
		changed bool
	)
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			return mapLoadError(err)
		}
		from = order.Status
		if from == next {
			updated = order
			return nil
		}
		if !s.policy.Allows(from, next) {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "order cannot move from %s to %s", from, next)
		}

		at := s.now().UTC()
		if err := repo.UpdateStatus(ctx, order.ID, next, at); err != nil {
			return mapLoadError(err)
		}
		order.Status = next
		order.UpdatedAt = at

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorUserID, Role: enums.UserRoleAdmin},
			OccurredAt:    at,
			Data: payloads.OrderStatusChangedEvent{
				OrderID:    order.ID,
				UserID:     order.UserID,
				ProductID:  order.ProductID,
				Date:       order.Date,
				FromStatus: from,
				ToStatus:   next,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order_status_changed")
		}
		updated = order
		changed = true
		return nil
	}); err != nil {
		return nil, err
	}

	if changed {
		if s.metrics != nil {
			s.metrics.ObserveTransition(from, next)
		}
		if s.logg != nil {
			s.logg.Info(s.logg.WithFields(ctx, map[string]any{
				"order_id":    updated.ID.String(),
				"from_status": string(from),
				"to_status":   string(next),
			}), "orders.status_changed")
		}
		if s.toasts != nil {
			s.toasts.Notify(ctx, input.ActorUserID, enums.ToastKindInfo, fmt.Sprintf("Order status updated to %s", next))
		}
	}

	dto := FromModel(updated)
	return &dto, nil
}

func validateCreate(input CreateOrderInput) (date string, lat, lng float64, note string, err error) {
	if input.ProductID == uuid.Nil {
		return "", 0, 0, "", pkgerrors.New(pkgerrors.CodeValidation, "productId is required")
	}
	date = strings.TrimSpace(input.Date)
	if date == "" {
		return "", 0, 0, "", pkgerrors.New(pkgerrors.CodeValidation, "date is required")
	}
	if _, perr := time.Parse(bookingDateLayout, date); perr != nil {
		return "", 0, 0, "", pkgerrors.New(pkgerrors.CodeValidation, "date must be formatted as YYYY-MM-DD")
	}
	if input.Location == nil || input.Location.Latitude == nil || input.Location.Longitude == nil {
		return "", 0, 0, "", pkgerrors.New(pkgerrors.CodeValidation, "location with latitude and longitude is required")
	}
	lat, lng = *input.Location.Latitude, *input.Location.Longitude
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return "", 0, 0, "", pkgerrors.New(pkgerrors.CodeValidation, "latitude must be between -90 and 90")
	}
	if math.IsNaN(lng) || lng < -180 || lng > 180 {
		return "", 0, 0, "", pkgerrors.New(pkgerrors.CodeValidation, "longitude must be between -180 and 180")
	}
	note = strings.TrimSpace(input.Note)
	if utf8.RuneCountInString(note) > maxNoteLength {
		return "", 0, 0, "", pkgerrors.Newf(pkgerrors.CodeValidation, "note must be at most %d characters", maxNoteLength)
	}
	return date, lat, lng, note, nil
}

func mapLoadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	var typed *pkgerrors.Error
	if errors.As(err, &typed) {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}
