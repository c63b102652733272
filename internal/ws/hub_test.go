package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"collab-service/internal/models"
)

type fakeConn struct {
	mu      sync.Mutex
	frames  [][]byte
	block   chan struct{}
	failErr error
	closed  bool
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	if c.block != nil {
		<-c.block
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failErr != nil {
		return c.failErr
	}
	c.frames = append(c.frames, data)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) received() []models.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Frame, 0, len(c.frames))
	for _, raw := range c.frames {
		var f models.Frame
		if err := json.Unmarshal(raw, &f); err == nil {
			out = append(out, f)
		}
	}
	return out
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func TestHubSubscribeAndUnsubscribe(t *testing.T) {
	hub := NewHub(zap.NewNop(), 0)
	sub := hub.Subscribe("team:1", "team", &fakeConn{}, ConnInfo{})
	assert.Equal(t, 1, hub.Subscribers("team:1"))

	hub.Unsubscribe(sub)
	hub.Unsubscribe(sub)
	assert.Equal(t, 0, hub.Subscribers("team:1"))
	select {
	case <-sub.Done():
	default:
		t.Fatal("expected subscription to be done")
	}
}

func TestHubPublishOnlyReachesTopic(t *testing.T) {
	hub := NewHub(zap.NewNop(), 0)
	inTopic := &fakeConn{}
	elsewhere := &fakeConn{}
	hub.Subscribe("channel:a", "channel", inTopic, ConnInfo{})
	hub.Subscribe("channel:b", "channel", elsewhere, ConnInfo{})

	require.NoError(t, hub.Publish("channel:a", models.EventMessageNew, map[string]string{"id": "m1"}))

	require.Eventually(t, func() bool { return len(inTopic.received()) == 1 }, time.Second, time.Millisecond)
	frame := inTopic.received()[0]
	assert.Equal(t, models.EventMessageNew, frame.Event)
	assert.Equal(t, "channel:a", frame.Topic)
	assert.Empty(t, elsewhere.received())
}

func TestHubPreservesPublishOrderPerTopic(t *testing.T) {
	hub := NewHub(zap.NewNop(), 256)
	conn := &fakeConn{}
	hub.Subscribe("channel:a", "channel", conn, ConnInfo{})

	for i := 0; i < 100; i++ {
		require.NoError(t, hub.Publish("channel:a", "seq", i))
	}

	require.Eventually(t, func() bool { return len(conn.received()) == 100 }, time.Second, time.Millisecond)
	for i, f := range conn.received() {
		assert.Equal(t, fmt.Sprint(i), fmt.Sprint(f.Payload))
	}
}

func TestHubDropsSubscriberWithFullQueue(t *testing.T) {
	hub := NewHub(zap.NewNop(), 1)
	slow := &fakeConn{block: make(chan struct{})}
	defer close(slow.block)
	fast := &fakeConn{}
	hub.Subscribe("team:1", "team", slow, ConnInfo{})
	hub.Subscribe("team:1", "team", fast, ConnInfo{})

	// The slow writer holds one frame, its queue holds one more, the third overflows.
	for i := 0; i < 3; i++ {
		require.NoError(t, hub.Publish("team:1", "tick", i))
		time.Sleep(5 * time.Millisecond)
	}

	assert.Equal(t, 1, hub.Subscribers("team:1"))
	require.Eventually(t, slow.isClosed, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return len(fast.received()) == 3 }, time.Second, time.Millisecond)
}

func TestHubDropsSubscriberOnWriteError(t *testing.T) {
	hub := NewHub(zap.NewNop(), 0)
	broken := &fakeConn{failErr: errors.New("broken pipe")}
	hub.Subscribe("user:1", "user", broken, ConnInfo{})

	require.NoError(t, hub.Publish("user:1", models.EventNotification, nil))

	require.Eventually(t, func() bool { return hub.Subscribers("user:1") == 0 }, time.Second, time.Millisecond)
	assert.True(t, broken.isClosed())
}

func TestHubPublishRejectsUnencodablePayload(t *testing.T) {
	hub := NewHub(zap.NewNop(), 0)
	err := hub.Publish("team:1", "bad", make(chan int))
	assert.Error(t, err)
}

func TestHubCloseDropsEverything(t *testing.T) {
	hub := NewHub(zap.NewNop(), 0)
	conn := &fakeConn{}
	hub.Subscribe("team:1", "team", conn, ConnInfo{})
	hub.Subscribe("channel:1", "channel", conn, ConnInfo{})

	hub.Close()
	assert.Equal(t, 0, hub.Subscribers("team:1"))
	assert.Equal(t, 0, hub.Subscribers("channel:1"))
}
