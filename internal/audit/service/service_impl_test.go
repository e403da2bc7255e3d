package service_test

import (
	"context"
	"testing"
	"time"

	auditdomain "github.com/smallbiznis/sorteos/internal/audit/domain"
	auditrepo "github.com/smallbiznis/sorteos/internal/audit/repository"
	auditservice "github.com/smallbiznis/sorteos/internal/audit/service"
	"github.com/smallbiznis/sorteos/internal/clock"
	"github.com/smallbiznis/sorteos/internal/dbtest"
	obscontext "github.com/smallbiznis/sorteos/internal/observability/context"
	"github.com/smallbiznis/sorteos/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var now = time.Date(2025, 3, 2, 18, 0, 0, 0, time.UTC)

func setup(t *testing.T) (auditdomain.Service, *clock.FakeClock) {
	t.Helper()
	clk := clock.NewFakeClock(now)
	svc := auditservice.NewService(auditservice.Params{
		DB:    dbtest.Open(t),
		Log:   zap.NewNop(),
		GenID: dbtest.Node(t),
		Clock: clk,
		Repo:  auditrepo.Provide(),
	})
	return svc, clk
}

func strPtr(v string) *string { return &v }

func TestAuditLogResolvesActorFromContext(t *testing.T) {
	svc, _ := setup(t)

	ctx := obscontext.WithActor(context.Background(), "user", "42")
	ctx = obscontext.WithRequestID(ctx, "req-1")
	ctx = auditdomain.WithClient(ctx, "10.0.0.1", "curl/8")

	require.NoError(t, svc.AuditLog(ctx, "", nil, "ticket.purchase", "raffle", strPtr(" 99 "), map[string]any{
		"tickets": 3,
		"phone":   "6681234567",
		"buyer":   map[string]any{"email": "ana@example.com"},
	}))

	resp, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)

	entry := resp.AuditLogs[0]
	assert.Equal(t, "user", entry.ActorType)
	require.NotNil(t, entry.ActorID)
	assert.Equal(t, "42", *entry.ActorID)
	require.NotNil(t, entry.TargetID)
	assert.Equal(t, "99", *entry.TargetID)
	require.NotNil(t, entry.IPAddress)
	assert.Equal(t, "10.0.0.1", *entry.IPAddress)
	assert.Equal(t, "******4567", entry.Metadata["phone"])
	assert.Equal(t, map[string]any{"email": "a***@example.com"}, entry.Metadata["buyer"])
	assert.Equal(t, "req-1", entry.Metadata["request_id"])
	assert.EqualValues(t, 3, entry.Metadata["tickets"])
}

func TestAuditLogDefaults(t *testing.T) {
	svc, _ := setup(t)

	assert.ErrorIs(t, svc.AuditLog(context.Background(), "", nil, "  ", "raffle", nil, nil), auditdomain.ErrInvalidAction)

	require.NoError(t, svc.AuditLog(context.Background(), "", nil, "scheduler.release", "", nil, nil))
	resp, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)
	assert.Equal(t, string(auditdomain.ActorTypeSystem), resp.AuditLogs[0].ActorType)
	assert.Equal(t, "unknown", resp.AuditLogs[0].TargetType)
	assert.Nil(t, resp.AuditLogs[0].ActorID)
}

func TestListPaginatesNewestFirst(t *testing.T) {
	svc, clk := setup(t)
	ctx := context.Background()

	for _, action := range []string{"raffle.create", "raffle.update", "raffle.delete"} {
		require.NoError(t, svc.AuditLog(ctx, "user", strPtr("1"), action, "raffle", strPtr("7"), nil))
		clk.Advance(time.Minute)
	}

	first, err := svc.List(ctx, auditdomain.ListAuditLogRequest{Pagination: pagination.Pagination{PageSize: 2}})
	require.NoError(t, err)
	require.Len(t, first.AuditLogs, 2)
	assert.Equal(t, "raffle.delete", first.AuditLogs[0].Action)
	assert.Equal(t, "raffle.update", first.AuditLogs[1].Action)
	require.True(t, first.HasMore)
	require.NotEmpty(t, first.NextPageToken)

	second, err := svc.List(ctx, auditdomain.ListAuditLogRequest{Pagination: pagination.Pagination{
		PageSize:  2,
		PageToken: first.NextPageToken,
	}})
	require.NoError(t, err)
	require.Len(t, second.AuditLogs, 1)
	assert.Equal(t, "raffle.create", second.AuditLogs[0].Action)
	assert.False(t, second.HasMore)

	filtered, err := svc.List(ctx, auditdomain.ListAuditLogRequest{Action: "raffle.update"})
	require.NoError(t, err)
	require.Len(t, filtered.AuditLogs, 1)
}

func TestListFiltersByActionFamilyAndActor(t *testing.T) {
	svc, clk := setup(t)
	ctx := context.Background()

	entries := []struct {
		actor  string
		action string
	}{
		{"1", "ticket.release"},
		{"2", "ticket.purchase"},
		{"1", "ticketing.export"},
		{"1", "raffle.update"},
	}
	for _, e := range entries {
		require.NoError(t, svc.AuditLog(ctx, "user", strPtr(e.actor), e.action, "ticket", nil, nil))
		clk.Advance(time.Second)
	}

	family, err := svc.List(ctx, auditdomain.ListAuditLogRequest{Action: "ticket."})
	require.NoError(t, err)
	require.Len(t, family.AuditLogs, 2)
	assert.Equal(t, "ticket.purchase", family.AuditLogs[0].Action)
	assert.Equal(t, "ticket.release", family.AuditLogs[1].Action)

	mine, err := svc.List(ctx, auditdomain.ListAuditLogRequest{Action: "ticket.", ActorID: "1"})
	require.NoError(t, err)
	require.Len(t, mine.AuditLogs, 1)
	assert.Equal(t, "ticket.release", mine.AuditLogs[0].Action)
}

func TestListRejectsBadInput(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	_, err := svc.List(ctx, auditdomain.ListAuditLogRequest{Pagination: pagination.Pagination{PageToken: "%%%"}})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidPageToken)

	start, end := now, now.Add(-time.Hour)
	_, err = svc.List(ctx, auditdomain.ListAuditLogRequest{StartAt: &start, EndAt: &end})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidTimeRange)
}
