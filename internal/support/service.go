package support

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/occasionbuddy/occasionbuddy-backend/internal/toasts"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/db/models"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/enums"
	pkgerrors "github.com/occasionbuddy/occasionbuddy-backend/pkg/errors"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/logger"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/outbox"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/outbox/payloads"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/pagination"
)

// Service exposes customer tickets and the admin resolve/reopen flow.
type Service interface {
	CreateTicket(ctx context.Context, userID uuid.UUID, input CreateTicketInput) (*TicketDTO, error)
	ListMyTickets(ctx context.Context, userID uuid.UUID, params pagination.Params) (*TicketList, error)
	ListTickets(ctx context.Context, input AdminListInput) (*TicketList, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*TicketDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ServiceParams struct {
	Repo   *Repository
	Tx     txRunner
	Outbox outbox.Emitter
	Toasts toasts.Notifier
	Logger *logger.Logger
	Now    func() time.Time
}

type service struct {
	repo   *Repository
	tx     txRunner
	outbox outbox.Emitter
	toasts toasts.Notifier
	logg   *logger.Logger
	now    func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("support repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:   params.Repo,
		tx:     params.Tx,
		outbox: params.Outbox,
		toasts: params.Toasts,
		logg:   params.Logger,
		now:    now,
	}, nil
}

func (s *service) CreateTicket(ctx context.Context, userID uuid.UUID, input CreateTicketInput) (*TicketDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	title := strings.TrimSpace(input.Title)
	message := strings.TrimSpace(input.Message)
	if title == "" || message == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title and message are required")
	}

	ticket := &models.SupportTicket{
		UserID:  userID,
		Title:   title,
		Message: message,
		Status:  enums.TicketStatusOpen,
	}
	if err := s.repo.Create(ctx, ticket); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert support ticket")
	}
	if s.toasts != nil {
		s.toasts.Notify(ctx, userID, enums.ToastKindSuccess, "Support ticket submitted successfully!")
	}
	dto := FromModel(ticket)
	return &dto, nil
}

func (s *service) ListMyTickets(ctx context.Context, userID uuid.UUID, params pagination.Params) (*TicketList, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListByUser(ctx, userID, cursor, params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list support tickets")
	}
	return toPage(rows, params.Limit), nil
}

func (s *service) ListTickets(ctx context.Context, input AdminListInput) (*TicketList, error) {
	var status *enums.TicketStatus
	if raw := strings.TrimSpace(input.Status); raw != "" {
		parsed, err := enums.ParseTicketStatus(raw)
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
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list support tickets")
	}
	return toPage(rows, input.Pagination.Limit), nil
}

// UpdateStatus toggles between open and resolved. Setting the current status is a no-op.
func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*TicketDTO, error) {
	next, err := enums.ParseTicketStatus(strings.TrimSpace(input.Status))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "status must be open or resolved")
	}

	var (
		ticket  *models.SupportTicket
		from    enums.TicketStatus
		changed bool
	)
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := repo.FindByID(ctx, input.TicketID)
		if err != nil {
			return mapLoadError(err)
		}
		ticket = loaded
		from = loaded.Status
		if from == next {
			return nil
		}

		at := s.now().UTC()
		if err := repo.UpdateStatus(ctx, loaded.ID, next, at); err != nil {
			return mapLoadError(err)
		}
		loaded.Status = next
		loaded.UpdatedAt = at

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSupportTicketStatusChanged,
			AggregateType: enums.AggregateSupportTicket,
			AggregateID:   loaded.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorUserID, Role: enums.UserRoleAdmin},
			OccurredAt:    at,
			Data: payloads.SupportTicketStatusChangedEvent{
				TicketID:   loaded.ID,
				UserID:     loaded.UserID,
				Title:      loaded.Title,
				FromStatus: from,
				ToStatus:   next,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit support_ticket_status_changed")
		}
		changed = true
		return nil
	}); err != nil {
		return nil, err
	}

	if changed {
		if s.logg != nil {
			s.logg.Info(s.logg.WithFields(ctx, map[string]any{
				"ticket_id":   ticket.ID.String(),
				"from_status": string(from),
				"to_status":   string(next),
			}), "support.status_changed")
		}
		if s.toasts != nil {
			s.toasts.Notify(ctx, input.ActorUserID, enums.ToastKindInfo, fmt.Sprintf("Ticket marked as %s", next))
		}
	}
	dto := FromModel(ticket)
	return &dto, nil
}

func mapLoadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "support ticket not found")
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load support ticket")
}
