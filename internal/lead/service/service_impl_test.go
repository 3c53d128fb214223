package service

import (
	"context"
	"net/http"
	"testing"

	auditdomain "github.com/smallbiznis/leadbilling/internal/audit/domain"
	"github.com/smallbiznis/leadbilling/internal/lead/domain"
	"github.com/smallbiznis/leadbilling/internal/providers/leadapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type repoMock struct {
	mock.Mock
}

func (m *repoMock) ListByPartner(ctx context.Context, partnerID string) ([]domain.Lead, error) {
	args := m.Called(ctx, partnerID)
	leads, _ := args.Get(0).([]domain.Lead)
	return leads, args.Error(1)
}

func (m *repoMock) RejectCancellation(ctx context.Context, leadID, partnerID, reason string) (domain.Lead, error) {
	args := m.Called(ctx, leadID, partnerID, reason)
	return args.Get(0).(domain.Lead), args.Error(1)
}

type auditMock struct {
	mock.Mock
}

func (m *auditMock) Record(ctx context.Context, entry auditdomain.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *auditMock) List(context.Context, auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	return auditdomain.ListAuditLogResponse{}, nil
}

func TestListByPartnerMapsMissingPartner(t *testing.T) {
	repo := &repoMock{}
	repo.On("ListByPartner", mock.Anything, "p404").
		Return(nil, &leadapi.StoreError{Operation: "partner.leads", Status: http.StatusNotFound})

	svc := New(Params{Log: zap.NewNop(), Repo: repo})
	_, err := svc.ListByPartner(context.Background(), "p404")
	assert.ErrorIs(t, err, domain.ErrPartnerUnknown)

	_, err = svc.ListByPartner(context.Background(), "  ")
	assert.ErrorIs(t, err, domain.ErrInvalidPartner)
}

func TestRejectCancellationRecordsAudit(t *testing.T) {
	repo := &repoMock{}
	repo.On("RejectCancellation", mock.Anything, "l1", "p1", "customer confirmed").
		Return(domain.Lead{ID: "l1"}, nil)

	audit := &auditMock{}
	audit.On("Record", mock.Anything, auditdomain.Entry{
		Action:     auditdomain.ActionCancellationRejected,
		TargetType: auditdomain.TargetLead,
		TargetID:   "l1",
		PartnerID:  "p1",
		Metadata:   map[string]any{"reason": "customer confirmed"},
	}).Return(nil)

	svc := New(Params{Log: zap.NewNop(), Repo: repo, AuditSvc: audit})
	lead, err := svc.RejectCancellation(context.Background(), domain.RejectCancellationRequest{
		LeadID:    " l1 ",
		PartnerID: "p1",
		Reason:    " customer confirmed ",
	})
	require.NoError(t, err)
	assert.Equal(t, "l1", lead.ID)
	repo.AssertExpectations(t)
	audit.AssertExpectations(t)
}

func TestRejectCancellationValidatesIDs(t *testing.T) {
	repo := &repoMock{}
	svc := New(Params{Log: zap.NewNop(), Repo: repo})

	_, err := svc.RejectCancellation(context.Background(), domain.RejectCancellationRequest{PartnerID: "p1"})
	assert.ErrorIs(t, err, domain.ErrInvalidLead)

	_, err = svc.RejectCancellation(context.Background(), domain.RejectCancellationRequest{LeadID: "l1"})
	assert.ErrorIs(t, err, domain.ErrInvalidPartner)
	repo.AssertNotCalled(t, "RejectCancellation", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRejectCancellationKeepsStoreMessageOnNotFound(t *testing.T) {
	repo := &repoMock{}
	repo.On("RejectCancellation", mock.Anything, "l1", "p1", "").
		Return(domain.Lead{}, &leadapi.StoreError{Operation: "lead.cancel_reject", Status: http.StatusNotFound, Message: "No cancellation request pending"})

	svc := New(Params{Log: zap.NewNop(), Repo: repo})
	_, err := svc.RejectCancellation(context.Background(), domain.RejectCancellationRequest{LeadID: "l1", PartnerID: "p1"})
	require.ErrorIs(t, err, domain.ErrNotFound)

	storeErr, ok := leadapi.AsStoreError(err)
	require.True(t, ok)
	assert.Equal(t, "No cancellation request pending", storeErr.Message)
}
