package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"floodwatch/internal/domain"
	"floodwatch/internal/geo"
	"floodwatch/internal/realtime"
)

type intakeFixture struct {
	svc       *intakeService
	requests  *fakeRequests
	alerts    *fakeAlerts
	geocoder  *fakeGeocoder
	publisher *recordingPublisher
	stream    *recordingStream
}

func newIntakeFixture() *intakeFixture {
	f := &intakeFixture{
		requests:  newFakeRequests(),
		alerts:    &fakeAlerts{},
		geocoder:  &fakeGeocoder{lat: 14.1, lng: 121.1},
		publisher: &recordingPublisher{},
		stream:    &recordingStream{},
	}
	f.svc = NewIntakeService(f.requests, f.alerts, f.geocoder, f.publisher, f.stream, zap.NewNop()).(*intakeService)
	f.svc.now = clock
	return f
}

func TestSubmit_RequiresCaller(t *testing.T) {
	f := newIntakeFixture()

	_, err := f.svc.Submit(context.Background(), nil, SubmitRescueRequest{IsQuickSOS: true})
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	assert.Empty(t, f.requests.rows)
	assert.Empty(t, f.publisher.tables())
}

func TestSubmit_QuickSOSWithCriticalAlert(t *testing.T) {
	f := newIntakeFixture()
	require.NoError(t, f.alerts.Create(context.Background(), &domain.WeatherAlert{Priority: domain.AlertCritical, IsActive: true}))

	resp, err := f.svc.Submit(context.Background(), resident("u-1"), SubmitRescueRequest{
		IsQuickSOS: true,
		Location:   &geo.Position{Lat: 14.6, Lng: 120.98, Accuracy: 12},
	})
	require.NoError(t, err)

	req := resp.Request
	assert.Equal(t, 100, req.PriorityScore)
	assert.Equal(t, domain.StatusPending, req.Status)
	assert.Equal(t, domain.SeverityHigh, req.Severity)
	assert.Equal(t, 1, req.HouseholdCount)
	assert.Equal(t, LocationLive, resp.LocationSource)
	assert.Equal(t, domain.AlertCritical, resp.AmbientAlert)
	assert.InDelta(t, 14.6, *req.Latitude, 1e-9)
	assert.Equal(t, fixedNow, req.CreatedAt)

	assert.Equal(t, []string{realtime.TableRescueRequests}, f.publisher.tables())
	require.Len(t, f.stream.events, 1)
	assert.Equal(t, "created", f.stream.events[0].Type)
	assert.Equal(t, req.RequestID, f.stream.events[0].RequestID)
}

func TestSubmit_DetailedReportScores(t *testing.T) {
	f := newIntakeFixture()
	require.NoError(t, f.alerts.Create(context.Background(), &domain.WeatherAlert{Priority: domain.AlertInformational, IsActive: true}))

	resp, err := f.svc.Submit(context.Background(), resident("u-1"), SubmitRescueRequest{
		Severity:       domain.SeverityHigh,
		HouseholdCount: 2,
		SpecialNeeds:   []string{"elderly", "elderly", "dragon"},
		Description:    "  roof level  ",
	})
	require.NoError(t, err)
	// 50 + 25 + 6 + 5 + 0
	assert.Equal(t, 86, resp.Request.PriorityScore)
	assert.Equal(t, []string{"elderly"}, resp.Request.SpecialNeeds)
	assert.Equal(t, "roof level", *resp.Request.Description)
	assert.Equal(t, LocationNone, resp.LocationSource)
	assert.Nil(t, resp.Request.Latitude)
}

func TestSubmit_DefaultsToMediumSingleHousehold(t *testing.T) {
	f := newIntakeFixture()

	resp, err := f.svc.Submit(context.Background(), resident("u-1"), SubmitRescueRequest{HouseholdCount: -3})
	require.NoError(t, err)
	assert.Equal(t, domain.SeverityMedium, resp.Request.Severity)
	assert.Equal(t, 1, resp.Request.HouseholdCount)
	assert.Equal(t, 63, resp.Request.PriorityScore)
}

func TestSubmit_RejectsUnknownSeverity(t *testing.T) {
	f := newIntakeFixture()
	_, err := f.svc.Submit(context.Background(), resident("u-1"), SubmitRescueRequest{Severity: "apocalyptic"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSubmit_LocationFallbacks(t *testing.T) {
	t.Run("invalid live fix uses stored coordinates", func(t *testing.T) {
		f := newIntakeFixture()
		caller := resident("u-1")
		caller.LastKnownLat, caller.LastKnownLng = ptr(14.5), ptr(121.0)

		resp, err := f.svc.Submit(context.Background(), caller, SubmitRescueRequest{
			Location: &geo.Position{Lat: 200, Lng: 0},
		})
		require.NoError(t, err)
		assert.Equal(t, LocationProfile, resp.LocationSource)
		assert.InDelta(t, 14.5, *resp.Request.Latitude, 1e-9)
		assert.Zero(t, f.geocoder.calls)
	})

	t.Run("stored address is geocoded", func(t *testing.T) {
		f := newIntakeFixture()
		caller := resident("u-1")
		caller.LastKnownAddress = ptr("12 Rizal St, Marikina")

		resp, err := f.svc.Submit(context.Background(), caller, SubmitRescueRequest{IsQuickSOS: true})
		require.NoError(t, err)
		assert.Equal(t, LocationAddress, resp.LocationSource)
		assert.Equal(t, "12 Rizal St, Marikina", *resp.Request.Address)
		assert.InDelta(t, 121.1, *resp.Request.Longitude, 1e-9)
	})

	t.Run("geocoder failure still submits without coordinates", func(t *testing.T) {
		f := newIntakeFixture()
		f.geocoder.err = errors.New("quota")
		caller := resident("u-1")
		caller.LastKnownAddress = ptr("somewhere")

		resp, err := f.svc.Submit(context.Background(), caller, SubmitRescueRequest{IsQuickSOS: true})
		require.NoError(t, err)
		assert.Equal(t, LocationNone, resp.LocationSource)
		assert.False(t, resp.Request.HasLocation())
	})
}

func TestSubmit_AlertLookupFailureIsNotFatal(t *testing.T) {
	f := newIntakeFixture()
	f.alerts.listErr = errors.New("db down")

	resp, err := f.svc.Submit(context.Background(), resident("u-1"), SubmitRescueRequest{IsQuickSOS: true})
	require.NoError(t, err)
	assert.Equal(t, domain.AlertNone, resp.AmbientAlert)
	assert.Equal(t, 90, resp.Request.PriorityScore)
}

func TestSubmit_PersistenceErrorIsReturned(t *testing.T) {
	f := newIntakeFixture()
	f.requests.failErr = errors.New("connection reset")

	_, err := f.svc.Submit(context.Background(), resident("u-1"), SubmitRescueRequest{IsQuickSOS: true})
	assert.Error(t, err)
	assert.Empty(t, f.publisher.tables())
	assert.Empty(t, f.stream.events)
}
