package support

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/occasionbuddy/occasionbuddy-backend/internal/toasts"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/db"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/db/dbtest"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/db/models"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/enums"
	pkgerrors "github.com/occasionbuddy/occasionbuddy-backend/pkg/errors"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/outbox"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/outbox/payloads"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/pagination"
)

func setup(t *testing.T) (Service, *gorm.DB, *toasts.Hub, uuid.UUID) {
	t.Helper()
	conn := dbtest.Open(t)
	user := &models.User{Name: "A", Email: "a@x.com", MobileNo: "1", Role: enums.UserRoleUser, PasswordHash: "h"}
	require.NoError(t, conn.Create(user).Error)

	hub := toasts.NewHub(0, nil)
	t.Cleanup(hub.Close)
	clock := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	svc, err := NewService(ServiceParams{
		Repo:   NewRepository(conn),
		Tx:     db.NewFromConn(conn),
		Outbox: outbox.NewService(outbox.NewRepository(conn), nil),
		Toasts: hub,
		Now:    func() time.Time { return clock },
	})
	require.NoError(t, err)
	return svc, conn, hub, user.ID
}

func TestCreateTicketRequiresFields(t *testing.T) {
	svc, _, hub, userID := setup(t)
	ctx := context.Background()

	_, err := svc.CreateTicket(ctx, userID, CreateTicketInput{Title: " ", Message: "help"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = svc.CreateTicket(ctx, userID, CreateTicketInput{Title: "help", Message: ""})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	ticket, err := svc.CreateTicket(ctx, userID, CreateTicketInput{Title: "Late cake", Message: "Where is it?"})
	require.NoError(t, err)
	assert.Equal(t, enums.TicketStatusOpen, ticket.Status)

	queued := hub.Queue(userID.String()).List()
	require.Len(t, queued, 1)
	assert.Equal(t, enums.ToastKindSuccess, queued[0].Kind)

	mine, err := svc.ListMyTickets(ctx, userID, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, mine.Items, 1)
	assert.Equal(t, "Late cake", mine.Items[0].Title)
}

func TestUpdateStatusTogglesAndEmits(t *testing.T) {
	svc, conn, _, userID := setup(t)
	ctx := context.Background()
	adminID := uuid.New()

	ticket, err := svc.CreateTicket(ctx, userID, CreateTicketInput{Title: "Help", Message: "Please"})
	require.NoError(t, err)

	resolved, err := svc.UpdateStatus(ctx, UpdateStatusInput{TicketID: ticket.ID, Status: "resolved", ActorUserID: adminID})
	require.NoError(t, err)
	assert.Equal(t, enums.TicketStatusResolved, resolved.Status)
	assert.True(t, resolved.UpdatedAt.Equal(time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)))

	reopened, err := svc.UpdateStatus(ctx, UpdateStatusInput{TicketID: ticket.ID, Status: "open", ActorUserID: adminID})
	require.NoError(t, err)
	assert.Equal(t, enums.TicketStatusOpen, reopened.Status)

	_, err = svc.UpdateStatus(ctx, UpdateStatusInput{TicketID: ticket.ID, Status: "open", ActorUserID: adminID})
	require.NoError(t, err)

	var rows []models.OutboxEvent
	require.NoError(t, conn.Order("created_at ASC").Find(&rows).Error)
	require.Len(t, rows, 2)
	env, _, err := outbox.DecodeEnvelope(rows[0].Payload)
	require.NoError(t, err)
	var payload payloads.SupportTicketStatusChangedEvent
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, userID, payload.UserID)
	assert.Equal(t, enums.TicketStatusResolved, payload.ToStatus)

	_, err = svc.UpdateStatus(ctx, UpdateStatusInput{TicketID: ticket.ID, Status: "closed"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = svc.UpdateStatus(ctx, UpdateStatusInput{TicketID: uuid.New(), Status: "open"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListTicketsFiltersByStatus(t *testing.T) {
	svc, _, _, userID := setup(t)
	ctx := context.Background()

	a, err := svc.CreateTicket(ctx, userID, CreateTicketInput{Title: "a", Message: "a"})
	require.NoError(t, err)
	_, err = svc.CreateTicket(ctx, userID, CreateTicketInput{Title: "b", Message: "b"})
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, UpdateStatusInput{TicketID: a.ID, Status: "resolved"})
	require.NoError(t, err)

	resolved, err := svc.ListTickets(ctx, AdminListInput{Status: "resolved"})
	require.NoError(t, err)
	require.Len(t, resolved.Items, 1)
	assert.Equal(t, a.ID, resolved.Items[0].ID)

	all, err := svc.ListTickets(ctx, AdminListInput{})
	require.NoError(t, err)
	assert.Len(t, all.Items, 2)

	_, err = svc.ListTickets(ctx, AdminListInput{Status: "pending"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
