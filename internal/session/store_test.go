package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/cafe-storefront/internal/session"
)

func newStore(t *testing.T) (*session.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return session.NewStore(client, time.Hour), mr
}

func TestStoreLifecycle(t *testing.T) {
	store, mr := newStore(t)
	ctx := context.Background()

	sess, err := store.New(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID)
	require.False(t, sess.Authenticated())

	sess.User = &session.User{ID: "42", Email: "ana@example.com", UserType: session.UserTypeWholesale}
	sess.BackendToken = "tok"
	require.NoError(t, store.Save(ctx, sess))

	loaded, err := store.Load(ctx, sess.ID)
	require.NoError(t, err)
	require.True(t, loaded.Authenticated())
	require.True(t, loaded.User.IsWholesale())
	require.Equal(t, "tok", loaded.BackendToken)
	require.Equal(t, time.Hour, mr.TTL("session:"+sess.ID))

	require.NoError(t, store.Clear(ctx, sess.ID))
	_, err = store.Load(ctx, sess.ID)
	require.ErrorIs(t, err, session.ErrNotFound)
}

func TestStoreExpiry(t *testing.T) {
	store, mr := newStore(t)
	ctx := context.Background()
	sess, err := store.New(ctx)
	require.NoError(t, err)

	mr.FastForward(2 * time.Hour)
	_, err = store.Load(ctx, sess.ID)
	require.ErrorIs(t, err, session.ErrNotFound)
}

func TestStoreUpdateSerialises(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()
	sess, err := store.New(ctx)
	require.NoError(t, err)
	_, err = store.Update(ctx, sess.ID, func(s *session.Session) error {
		s.User = &session.User{ID: "1"}
		return nil
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Update(ctx, sess.ID, func(s *session.Session) error {
				s.User.Phone += "1"
				return nil
			})
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	loaded, err := store.Load(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, "1111111111", loaded.User.Phone)
}

func TestStoreUpdatePropagatesErrors(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	_, err := store.Update(ctx, "missing", func(*session.Session) error { return nil })
	require.ErrorIs(t, err, session.ErrNotFound)

	sess, err := store.New(ctx)
	require.NoError(t, err)
	boom := errors.New("boom")
	_, err = store.Update(ctx, sess.ID, func(s *session.Session) error {
		s.BackendToken = "changed"
		return boom
	})
	require.ErrorIs(t, err, boom)
	loaded, err := store.Load(ctx, sess.ID)
	require.NoError(t, err)
	require.Empty(t, loaded.BackendToken)
}

func TestUserCanOrder(t *testing.T) {
	var nilUser *session.User
	require.False(t, nilUser.CanOrder())
	require.False(t, (&session.User{Phone: "123"}).CanOrder())
	require.True(t, (&session.User{Phone: "123", Address: "Calle 1, CABA"}).CanOrder())
}
