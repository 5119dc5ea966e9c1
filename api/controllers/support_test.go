package controllers

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/occasionbuddy/occasionbuddy-backend/internal/support"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/enums"
	pkgerrors "github.com/occasionbuddy/occasionbuddy-backend/pkg/errors"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/pagination"
)

type stubSupportService struct {
	createFn       func(ctx context.Context, userID uuid.UUID, input support.CreateTicketInput) (*support.TicketDTO, error)
	listMineFn     func(ctx context.Context, userID uuid.UUID, params pagination.Params) (*support.TicketList, error)
	listFn         func(ctx context.Context, input support.AdminListInput) (*support.TicketList, error)
	updateStatusFn func(ctx context.Context, input support.UpdateStatusInput) (*support.TicketDTO, error)
}

func (s *stubSupportService) CreateTicket(ctx context.Context, userID uuid.UUID, input support.CreateTicketInput) (*support.TicketDTO, error) {
	return s.createFn(ctx, userID, input)
}

func (s *stubSupportService) ListMyTickets(ctx context.Context, userID uuid.UUID, params pagination.Params) (*support.TicketList, error) {
	return s.listMineFn(ctx, userID, params)
}

func (s *stubSupportService) ListTickets(ctx context.Context, input support.AdminListInput) (*support.TicketList, error) {
	return s.listFn(ctx, input)
}

func (s *stubSupportService) UpdateStatus(ctx context.Context, input support.UpdateStatusInput) (*support.TicketDTO, error) {
	return s.updateStatusFn(ctx, input)
}

func TestCreateSupportTicket(t *testing.T) {
	userID := uuid.New()
	svc := &stubSupportService{createFn: func(_ context.Context, uid uuid.UUID, input support.CreateTicketInput) (*support.TicketDTO, error) {
		assert.Equal(t, userID, uid)
		assert.Equal(t, "Late delivery", input.Title)
		return &support.TicketDTO{ID: uuid.New(), UserID: uid, Title: input.Title, Message: input.Message, Status: enums.TicketStatusOpen}, nil
	}}

	rec := serve(t, CreateSupportTicket(svc, testLogger()), http.MethodPost, "/api/v1/support-tickets",
		`{"title":"Late delivery","message":"Cake never arrived"}`, withUser(userID.String()))

	require.Equal(t, http.StatusCreated, rec.Code)
	var dto support.TicketDTO
	decodeData(t, rec, &dto)
	assert.Equal(t, enums.TicketStatusOpen, dto.Status)
}

func TestCreateSupportTicketRejectsBeforeService(t *testing.T) {
	svc := &stubSupportService{createFn: func(context.Context, uuid.UUID, support.CreateTicketInput) (*support.TicketDTO, error) {
		t.Fatal("service should not be called")
		return nil, nil
	}}
	handler := CreateSupportTicket(svc, testLogger())

	rec := serve(t, handler, http.MethodPost, "/api/v1/support-tickets", `{"title":"Late delivery"}`, withUser(uuid.NewString()))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, rec))

	rec = serve(t, handler, http.MethodPost, "/api/v1/support-tickets", `{"title":"a","message":"b"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminListSupportTicketsForwardsStatusFilter(t *testing.T) {
	svc := &stubSupportService{listFn: func(_ context.Context, input support.AdminListInput) (*support.TicketList, error) {
		assert.Equal(t, "resolved", input.Status)
		return &support.TicketList{}, nil
	}}

	rec := serve(t, AdminListSupportTickets(svc, testLogger()), http.MethodGet, "/api/admin/v1/support-tickets?status=%20resolved%20", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminUpdateSupportTicketStatus(t *testing.T) {
	actorID := uuid.New()
	ticketID := uuid.New()
	svc := &stubSupportService{updateStatusFn: func(_ context.Context, input support.UpdateStatusInput) (*support.TicketDTO, error) {
		assert.Equal(t, ticketID, input.TicketID)
		assert.Equal(t, actorID, input.ActorUserID)
		if input.Status != string(enums.TicketStatusResolved) {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid ticket status %q", input.Status)
		}
		return &support.TicketDTO{ID: ticketID, Status: enums.TicketStatusResolved}, nil
	}}
	handler := AdminUpdateSupportTicketStatus(svc, testLogger())
	target := "/api/admin/v1/support-tickets/" + ticketID.String() + "/status"

	rec := serve(t, handler, http.MethodPatch, target, `{"status":"resolved"}`,
		withUser(actorID.String()), withParam("ticketId", ticketID.String()))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, handler, http.MethodPatch, target, `{"status":"escalated"}`,
		withUser(actorID.String()), withParam("ticketId", ticketID.String()))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, handler, http.MethodPatch, target, `{"status":"resolved"}`,
		withUser(actorID.String()), withParam("ticketId", "not-a-uuid"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
