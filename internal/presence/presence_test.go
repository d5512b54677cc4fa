package presence

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sessionboard-backend/internal/cache"
	"sessionboard-backend/internal/config"
	"sessionboard-backend/internal/protocol"
)

type recorder struct {
	mu     sync.Mutex
	events []protocol.Event
}

func (r *recorder) Publish(_ string, ev protocol.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) take() []protocol.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.events
	r.events = nil
	return out
}

func viewerCount(t *testing.T, ev protocol.Event) int64 {
	t.Helper()
	require.Equal(t, protocol.KindViewerCount, ev.Type)
	var p protocol.ViewerCountPayload
	require.NoError(t, ev.Decode(&p))
	return p.Count
}

func TestTrackerCountsConnections(t *testing.T) {
	ctx := context.Background()
	pub := &recorder{}
	tr := NewTracker(NewMemoryStore(clock.NewMock(), time.Minute), pub, zerolog.Nop())

	tab1 := Entry{ConnID: "c1", UserID: 7, Nickname: "kim"}
	tab2 := Entry{ConnID: "c2", UserID: 7, Nickname: "kim"}

	n, err := tr.Join(ctx, "s1", tab1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	events := pub.take()
	require.Len(t, events, 2)
	assert.EqualValues(t, 1, viewerCount(t, events[0]))
	assert.Equal(t, protocol.KindUserJoined, events[1].Type)
	var who protocol.PresencePayload
	require.NoError(t, events[1].Decode(&who))
	assert.Equal(t, int64(7), who.UserID)
	assert.Equal(t, "c1", who.ConnectionID)

	// a second tab of the same user counts separately
	n, err = tr.Join(ctx, "s1", tab2)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.EqualValues(t, 2, viewerCount(t, pub.take()[0]))

	n, err = tr.Leave(ctx, "s1", tab1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	events = pub.take()
	require.Len(t, events, 2)
	assert.EqualValues(t, 1, viewerCount(t, events[0]))
	assert.Equal(t, protocol.KindUserLeft, events[1].Type)

	_, err = tr.Leave(ctx, "s1", tab1)
	require.NoError(t, err)
	assert.Empty(t, pub.take())

	count, err := tr.Count(ctx, "s1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestSweepDropsExpiredConnections(t *testing.T) {
	ctx := context.Background()
	mock := clock.NewMock()
	pub := &recorder{}
	tr := NewTracker(NewMemoryStore(mock, time.Minute), pub, zerolog.Nop())

	stale := Entry{ConnID: "stale", UserID: 1}
	live := Entry{ConnID: "live", UserID: 2}
	_, err := tr.Join(ctx, "s1", stale)
	require.NoError(t, err)
	_, err = tr.Join(ctx, "s1", live)
	require.NoError(t, err)
	pub.take()

	mock.Add(45 * time.Second)
	require.NoError(t, tr.Heartbeat(ctx, "s1", live))
	mock.Add(30 * time.Second)

	require.NoError(t, tr.Sweep(ctx))
	events := pub.take()
	require.Len(t, events, 2)
	assert.EqualValues(t, 1, viewerCount(t, events[0]))
	assert.Equal(t, protocol.KindUserLeft, events[1].Type)

	count, err := tr.Count(ctx, "s1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestHeartbeatAfterSweepRejoins(t *testing.T) {
	ctx := context.Background()
	mock := clock.NewMock()
	pub := &recorder{}
	tr := NewTracker(NewMemoryStore(mock, time.Minute), pub, zerolog.Nop())

	slow := Entry{ConnID: "c1", UserID: 7, Nickname: "kim"}
	_, err := tr.Join(ctx, "s1", slow)
	require.NoError(t, err)
	pub.take()

	// the heartbeat arrives just after the lease ran out
	mock.Add(61 * time.Second)
	require.NoError(t, tr.Sweep(ctx))
	count, err := tr.Count(ctx, "s1")
	require.NoError(t, err)
	require.Zero(t, count)
	pub.take()

	require.NoError(t, tr.Heartbeat(ctx, "s1", slow))
	count, err = tr.Count(ctx, "s1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	events := pub.take()
	require.Len(t, events, 2)
	assert.EqualValues(t, 1, viewerCount(t, events[0]))
	assert.Equal(t, protocol.KindUserJoined, events[1].Type)
	var who protocol.PresencePayload
	require.NoError(t, events[1].Decode(&who))
	assert.Equal(t, "kim", who.Nickname)

	// an ordinary heartbeat stays quiet
	require.NoError(t, tr.Heartbeat(ctx, "s1", slow))
	assert.Empty(t, pub.take())
}

func TestRunSweeper(t *testing.T) {
	mock := clock.NewMock()
	pub := &recorder{}
	tr := NewTracker(NewMemoryStore(mock, time.Second), pub, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, err := tr.Join(ctx, "s1", Entry{ConnID: "c", UserID: 1})
	require.NoError(t, err)
	pub.take()

	done := make(chan struct{})
	go func() {
		tr.RunSweeper(ctx, mock, 10*time.Second)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		mock.Add(10 * time.Second)
		n, _ := tr.Count(ctx, "s1")
		return n == 0
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

func TestMemberEncoding(t *testing.T) {
	e := Entry{ConnID: "abc-123", UserID: 42}
	got, err := parseMember(e.member())
	require.NoError(t, err)
	assert.Equal(t, e, got)

	_, err = parseMember("no-separator")
	require.Error(t, err)
	_, err = parseMember("abc|x")
	require.Error(t, err)
}

// Runs against a real server when REDIS_ADDR is set
func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	client, err := cache.NewRedisClient(config.RedisConfig{Addr: addr}, zerolog.Nop())
	require.NoError(t, err)
	defer client.Close()

	st := NewRedisStore(client, time.Second)
	sessionID := uuid.NewString()
	a := Entry{ConnID: uuid.NewString(), UserID: 1}
	b := Entry{ConnID: uuid.NewString(), UserID: 2}

	n, err := st.Add(ctx, sessionID, a)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	n, err = st.Add(ctx, sessionID, b)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, removed, err := st.Remove(ctx, sessionID, a)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.EqualValues(t, 1, n)

	time.Sleep(1500 * time.Millisecond)
	expired, err := st.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Entry{b}, expired[sessionID])

	n, err = st.Count(ctx, sessionID)
	require.NoError(t, err)
	assert.Zero(t, n)

	readded, err := st.Touch(ctx, sessionID, b)
	require.NoError(t, err)
	assert.True(t, readded)
	readded, err = st.Touch(ctx, sessionID, b)
	require.NoError(t, err)
	assert.False(t, readded)
	n, err = st.Count(ctx, sessionID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, _, err = st.Remove(ctx, sessionID, b)
	require.NoError(t, err)
}
