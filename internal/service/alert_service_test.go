package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"floodwatch/internal/domain"
)

func newAlertFixture() (*alertService, *fakeAlerts, *fakeDevices, *recordingPublisher) {
	alerts := &fakeAlerts{}
	devices := &fakeDevices{}
	pub := &recordingPublisher{}
	svc := NewAlertService(alerts, nil, nil, devices, "", pub, zap.NewNop()).(*alertService)
	svc.now = clock
	return svc, alerts, devices, pub
}

func TestAlert_BroadcastPublishesToDevices(t *testing.T) {
	svc, _, devices, pub := newAlertFixture()

	a, err := svc.Broadcast(context.Background(), admin("a-1"), BroadcastRequest{
		Title:       "Signal #3",
		Message:     "Evacuate low-lying areas",
		Priority:    domain.AlertCritical,
		TargetZones: []string{"zone-a", " zone-a", ""},
	})
	require.NoError(t, err)
	assert.True(t, a.IsActive)
	assert.Equal(t, []string{"zone-a"}, a.TargetZones)
	assert.Equal(t, "a-1", *a.CreatedBy)

	require.Len(t, devices.msgs, 1)
	assert.Equal(t, "floodwatch/alerts/critical", devices.msgs[0].topic)
	assert.True(t, devices.msgs[0].retained)
	var got domain.WeatherAlert
	require.NoError(t, json.Unmarshal(devices.msgs[0].payload, &got))
	assert.Equal(t, a.AlertID, got.AlertID)

	assert.Len(t, pub.tables(), 1)
}

func TestAlert_BroadcastValidation(t *testing.T) {
	svc, _, devices, _ := newAlertFixture()
	ctx := context.Background()

	_, err := svc.Broadcast(ctx, rescuer("r-1"), BroadcastRequest{Title: "t", Message: "m", Priority: domain.AlertWarning})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.Broadcast(ctx, admin("a-1"), BroadcastRequest{Title: "t", Message: "m", Priority: domain.AlertNone})
	assert.ErrorIs(t, err, domain.ErrValidation)

	past := fixedNow.Add(-time.Minute)
	_, err = svc.Broadcast(ctx, admin("a-1"), BroadcastRequest{Title: "t", Message: "m", Priority: domain.AlertWarning, ExpiresAt: &past})
	assert.ErrorIs(t, err, domain.ErrValidation)

	assert.Empty(t, devices.msgs)
}

func TestAlert_ExpireDue(t *testing.T) {
	svc, alerts, _, pub := newAlertFixture()
	ctx := context.Background()

	soon := fixedNow.Add(time.Minute)
	_, err := svc.Broadcast(ctx, admin("a-1"), BroadcastRequest{Title: "t", Message: "m", Priority: domain.AlertWarning, ExpiresAt: &soon})
	require.NoError(t, err)
	_, err = svc.Broadcast(ctx, admin("a-1"), BroadcastRequest{Title: "t2", Message: "m", Priority: domain.AlertInformational})
	require.NoError(t, err)

	svc.now = func() time.Time { return fixedNow.Add(2 * time.Minute) }
	n, err := svc.ExpireDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	active, err := svc.ListActive(ctx, "")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "t2", active[0].Title)
	assert.Len(t, alerts.rows, 2)
	assert.Len(t, pub.tables(), 3)
}

func TestAlert_DeactivateAndDelete(t *testing.T) {
	svc, alerts, _, _ := newAlertFixture()
	ctx := context.Background()

	a, err := svc.Broadcast(ctx, admin("a-1"), BroadcastRequest{Title: "t", Message: "m", Priority: domain.AlertWarning})
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(ctx, admin("a-1"), a.AlertID))
	assert.False(t, alerts.rows[0].IsActive)

	assert.ErrorIs(t, svc.Delete(ctx, official("o-1"), a.AlertID), domain.ErrForbidden)
	require.NoError(t, svc.Delete(ctx, admin("a-1"), a.AlertID))
	assert.ErrorIs(t, svc.Delete(ctx, admin("a-1"), a.AlertID), domain.ErrNotFound)
}
