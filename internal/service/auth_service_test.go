package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"floodwatch/internal/domain"
	"floodwatch/internal/realtime"
	"floodwatch/internal/store"
)

func newAuthFixture(t *testing.T) (*authService, *fakeProfiles, *miniredis.Miniredis, *recordingPublisher) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	profiles := newFakeProfiles()
	pub := &recordingPublisher{}
	svc := NewAuthService(profiles, store.NewRedisKV(client), time.Hour, pub, zap.NewNop()).(*authService)
	svc.now = clock
	return svc, profiles, mr, pub
}

func TestHashPassword(t *testing.T) {
	assert.Equal(t, HashPassword("Juan@Example.com", "secret123"), HashPassword(" juan@example.com", "secret123"))
	assert.NotEqual(t, HashPassword("juan@example.com", "secret123"), HashPassword("juan@example.com", "Secret123"))
	assert.Len(t, HashPassword("a@b.c", "x"), 64)
}

func TestAuth_SignUpSignInResolveSignOut(t *testing.T) {
	svc, _, mr, pub := newAuthFixture(t)
	ctx := context.Background()

	p, err := svc.SignUp(ctx, nil, SignUpRequest{FullName: "Juan", Email: "Juan@Example.com", Password: "floodsafe1"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleResident, p.Role)
	assert.Equal(t, "juan@example.com", p.Email)

	_, err = svc.SignIn(ctx, SignInRequest{Email: "juan@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredential)

	resp, err := svc.SignIn(ctx, SignInRequest{Email: "JUAN@example.com", Password: "floodsafe1"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, fixedNow.Add(time.Hour), resp.ExpiresAt)
	assert.True(t, mr.Exists("session:"+resp.AccessToken))

	me, err := svc.Resolve(ctx, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, p.UserID, me.UserID)

	require.NoError(t, svc.SignOut(ctx, resp.AccessToken))
	_, err = svc.Resolve(ctx, resp.AccessToken)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	assert.Equal(t, []string{realtime.TableProfiles, realtime.TableAuth, realtime.TableAuth}, pub.tables())
}

func TestAuth_SessionExpires(t *testing.T) {
	svc, _, mr, _ := newAuthFixture(t)
	ctx := context.Background()

	_, err := svc.SignUp(ctx, nil, SignUpRequest{FullName: "Ana", Email: "ana@example.com", Password: "floodsafe1"})
	require.NoError(t, err)
	resp, err := svc.SignIn(ctx, SignInRequest{Email: "ana@example.com", Password: "floodsafe1"})
	require.NoError(t, err)

	mr.FastForward(2 * time.Hour)
	_, err = svc.Resolve(ctx, resp.AccessToken)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestAuth_SignUpRoles(t *testing.T) {
	svc, _, _, _ := newAuthFixture(t)
	ctx := context.Background()

	_, err := svc.SignUp(ctx, nil, SignUpRequest{FullName: "R", Email: "r@example.com", Password: "floodsafe1", Role: domain.RoleRescuer})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	p, err := svc.SignUp(ctx, admin("a-1"), SignUpRequest{FullName: "R", Email: "r@example.com", Password: "floodsafe1", Role: domain.RoleRescuer})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleRescuer, p.Role)

	_, err = svc.SignUp(ctx, nil, SignUpRequest{FullName: "R2", Email: "r@example.com", Password: "floodsafe1"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = svc.SignUp(ctx, nil, SignUpRequest{FullName: "Short", Email: "s@example.com", Password: "123"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.SignUp(ctx, nil, SignUpRequest{FullName: "Bad", Email: "not-an-email", Password: "floodsafe1"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
