package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"floodwatch/internal/domain"
)

func newRescueFixture(t *testing.T) (*rescueService, *fakeRequests, *recordingStream) {
	t.Helper()
	requests := newFakeRequests()
	profiles := newFakeProfiles(rescuer("r-1"), rescuer("r-2"), resident("u-1"), admin("a-1"))
	stream := &recordingStream{}
	svc := NewRescueService(requests, profiles, &recordingPublisher{}, stream, zap.NewNop()).(*rescueService)
	svc.now = clock
	return svc, requests, stream
}

func seedPending(t *testing.T, requests *fakeRequests, id string, score int, created time.Time) {
	t.Helper()
	require.NoError(t, requests.Create(context.Background(), &domain.RescueRequest{
		RequestID:      id,
		RequesterID:    "u-1",
		Severity:       domain.SeverityHigh,
		Status:         domain.StatusPending,
		HouseholdCount: 1,
		PriorityScore:  score,
		CreatedAt:      created,
	}))
}

func TestRescue_FullLifecycle(t *testing.T) {
	svc, requests, stream := newRescueFixture(t)
	seedPending(t, requests, "req-1", 85, fixedNow)
	ctx := context.Background()

	req, err := svc.Accept(ctx, rescuer("r-1"), "req-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAssigned, req.Status)
	assert.Equal(t, "r-1", *req.AssignedRescuerID)

	req, err = svc.Start(ctx, rescuer("r-1"), "req-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, req.Status)

	req, err = svc.Complete(ctx, rescuer("r-1"), "req-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, req.Status)
	require.NotNil(t, req.CompletedAt)

	types := []string{}
	for _, ev := range stream.events {
		types = append(types, ev.Type)
	}
	assert.Equal(t, []string{"accepted", "started", "completed"}, types)
}

func TestRescue_ConcurrentAcceptOnlyOneWins(t *testing.T) {
	svc, requests, _ := newRescueFixture(t)
	seedPending(t, requests, "req-1", 85, fixedNow)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []string{"r-1", "r-2"} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = svc.Accept(context.Background(), rescuer(id), "req-1")
		}(i, id)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.True(t, errors.Is(err, domain.ErrAlreadyClaimed) || errors.Is(err, domain.ErrInvalidTransition), err)
	}
	assert.Equal(t, 1, wins)
}

func TestRescue_StartByOtherRescuerForbidden(t *testing.T) {
	svc, requests, _ := newRescueFixture(t)
	seedPending(t, requests, "req-1", 85, fixedNow)
	ctx := context.Background()

	_, err := svc.Accept(ctx, rescuer("r-1"), "req-1")
	require.NoError(t, err)
	_, err = svc.Start(ctx, rescuer("r-2"), "req-1")
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestRescue_InvalidTransition(t *testing.T) {
	svc, requests, _ := newRescueFixture(t)
	seedPending(t, requests, "req-1", 85, fixedNow)

	_, err := svc.Complete(context.Background(), admin("a-1"), "req-1")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestRescue_AssignRequiresAdminAndRescuer(t *testing.T) {
	svc, requests, _ := newRescueFixture(t)
	seedPending(t, requests, "req-1", 85, fixedNow)
	ctx := context.Background()

	_, err := svc.Assign(ctx, rescuer("r-1"), "req-1", "r-2")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.Assign(ctx, admin("a-1"), "req-1", "u-1")
	assert.ErrorIs(t, err, domain.ErrValidation)

	req, err := svc.Assign(ctx, admin("a-1"), "req-1", "r-2")
	require.NoError(t, err)
	assert.Equal(t, "r-2", *req.AssignedRescuerID)
}

func TestRescue_CancelByAdmin(t *testing.T) {
	svc, requests, _ := newRescueFixture(t)
	seedPending(t, requests, "req-1", 85, fixedNow)

	_, err := svc.Cancel(context.Background(), resident("u-1"), "req-1")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	req, err := svc.Cancel(context.Background(), admin("a-1"), "req-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, req.Status)
}

func TestRescue_PendingQueueOrder(t *testing.T) {
	svc, requests, _ := newRescueFixture(t)
	seedPending(t, requests, "low", 60, fixedNow)
	seedPending(t, requests, "high-late", 95, fixedNow.Add(time.Minute))
	seedPending(t, requests, "high-early", 95, fixedNow)

	out, err := svc.List(context.Background(), rescuer("r-1"), ListRescueRequests{Statuses: []domain.RequestStatus{domain.StatusPending}})
	require.NoError(t, err)
	ids := []string{}
	for _, r := range out {
		ids = append(ids, r.RequestID)
	}
	assert.Equal(t, []string{"high-early", "high-late", "low"}, ids)
}

func TestRescue_ResidentSeesOnlyOwn(t *testing.T) {
	svc, requests, _ := newRescueFixture(t)
	seedPending(t, requests, "mine", 60, fixedNow)

	_, err := svc.Get(context.Background(), resident("u-2"), "mine")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	out, err := svc.List(context.Background(), resident("u-2"), ListRescueRequests{})
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = svc.List(context.Background(), resident("u-1"), ListRescueRequests{})
	require.NoError(t, err)
	assert.Len(t, out, 1)
}
