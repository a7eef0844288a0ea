package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/escalopa/kid-reader-bot/internal/domain"
	"github.com/escalopa/kid-reader-bot/internal/progress"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := Connect("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestConnect_BadURI(t *testing.T) {
	_, err := Connect("not a uri")
	assert.Error(t, err)
}

func TestFSM_State(t *testing.T) {
	ctx := context.Background()
	mr, client := setupRedis(t)
	fsm := NewFSM(client)

	state, err := fsm.GetState(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, domain.StateStart, state)

	require.NoError(t, fsm.SetState(ctx, "42", domain.StateReading))
	state, err = fsm.GetState(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, domain.StateReading, state)
	assert.Equal(t, sessionTTL, mr.TTL(sessionKey("42")))

	require.NoError(t, fsm.DeleteState(ctx, "42"))
	state, err = fsm.GetState(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, domain.StateStart, state)
}

func TestFSM_Data(t *testing.T) {
	ctx := context.Background()
	_, client := setupRedis(t)
	fsm := NewFSM(client)

	_, err := fsm.GetData(ctx, "42", domain.SessionKeyStory)
	assert.ErrorIs(t, err, ErrDataNotFound)

	require.NoError(t, fsm.SetData(ctx, "42", domain.SessionKeyStory, "brave-cat"))
	val, err := fsm.GetData(ctx, "42", domain.SessionKeyStory)
	require.NoError(t, err)
	assert.Equal(t, "brave-cat", val)

	require.NoError(t, fsm.DeleteData(ctx, "42", domain.SessionKeyStory))
	_, err = fsm.GetData(ctx, "42", domain.SessionKeyStory)
	assert.ErrorIs(t, err, ErrDataNotFound)
}

func TestFSM_SessionSharesOneHash(t *testing.T) {
	ctx := context.Background()
	mr, client := setupRedis(t)
	fsm := NewFSM(client)

	require.NoError(t, fsm.SetState(ctx, "7", domain.StateReading))
	require.NoError(t, fsm.SetData(ctx, "7", domain.SessionKeyLanguage, "ar"))

	assert.Equal(t, "reading", mr.HGet(sessionKey("7"), stateField))
	assert.Equal(t, "ar", mr.HGet(sessionKey("7"), dataFieldPrefix+domain.SessionKeyLanguage))

	mr.FastForward(sessionTTL + time.Second)
	state, err := fsm.GetState(ctx, "7")
	require.NoError(t, err)
	assert.Equal(t, domain.StateStart, state)
	_, err = fsm.GetData(ctx, "7", domain.SessionKeyLanguage)
	assert.ErrorIs(t, err, ErrDataNotFound)
}

func TestMedium_ReadWriteDelete(t *testing.T) {
	ctx := context.Background()
	mr, client := setupRedis(t)
	m := NewMedium(client)

	require.NoError(t, m.Probe(ctx))
	assert.False(t, mr.Exists(probeKey))

	_, err := m.Read(ctx, "k")
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)

	require.NoError(t, m.Write(ctx, "k", []byte(`{"a":1}`)))
	data, err := m.Read(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(data))
	assert.Zero(t, mr.TTL("k"))

	require.NoError(t, m.Delete(ctx, "k"))
	assert.False(t, mr.Exists("k"))
}

func TestMedium_ReadErrorIsNotMissingKey(t *testing.T) {
	ctx := context.Background()
	mr, client := setupRedis(t)
	m := NewMedium(client)

	mr.SetError("ERR medium disabled")
	_, err := m.Read(ctx, "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrKeyNotFound)

	mr.SetError("")
	_, err = m.Read(ctx, "k")
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)
}

func TestMedium_BacksProgressStore(t *testing.T) {
	ctx := context.Background()
	mr, client := setupRedis(t)
	store := progress.NewStore(NewMedium(client), progress.LearnerKey("", "42"))

	record := domain.NewReadingProgress("robot-helper")
	record.WordProgress[1] = domain.PageProgress{3: 70}
	store.Save(ctx, record)

	assert.True(t, mr.Exists("kid-reader-progress:42"))
	loaded := store.Load(ctx, "robot-helper")
	require.NotNil(t, loaded)
	assert.Equal(t, 70, loaded.WordProgress.Get(1, 3))
}

func TestMedium_ServerErrorIsUnavailable(t *testing.T) {
	ctx := context.Background()
	mr, client := setupRedis(t)
	store := progress.NewStore(NewMedium(client), "")
	mr.SetError("ERR medium disabled")

	store.Save(ctx, domain.NewReadingProgress("robot-helper"))
	assert.False(t, store.IsAvailable(ctx))
	assert.Nil(t, store.Load(ctx, "robot-helper"))
}
