package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pavesite/internal/foundation/errors"
)

var (
	_ Publisher = Noop{}
	_ Publisher = (*NATS)(nil)
)

func TestNoop(t *testing.T) {
	var p Publisher = Noop{}
	assert.NoError(t, p.Publish(context.Background(), Event{Type: SitePublished}))
	assert.NoError(t, p.Close())
}

func TestEventJSON(t *testing.T) {
	e := Event{
		Type:      SitePublished,
		BuildID:   "b1",
		Pages:     48,
		Timestamp: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	raw, err := json.Marshal(e)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"site.published","build_id":"b1","pages":48,"timestamp":"2025-06-01T00:00:00Z"}`, string(raw))
}

func TestNewNATSUnreachable(t *testing.T) {
	_, err := NewNATS("nats://127.0.0.1:1", "")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryNetwork))
}

// TestNATSPublish needs a server on the default URL; it is skipped otherwise.
func TestNATSPublish(t *testing.T) {
	sub, err := nats.Connect(nats.DefaultURL)
	if err != nil {
		t.Skip("no NATS server on", nats.DefaultURL)
	}
	defer sub.Close()
	ch := make(chan *nats.Msg, 1)
	s, err := sub.ChanSubscribe("pavesite.test", ch)
	require.NoError(t, err)
	defer func() { _ = s.Unsubscribe() }()
	require.NoError(t, sub.Flush())

	pub, err := NewNATS(nats.DefaultURL, "pavesite.test")
	require.NoError(t, err)
	defer func() { _ = pub.Close() }()
	require.NoError(t, pub.Publish(context.Background(), Event{Type: SitePublished, BuildID: "b1"}))

	select {
	case msg := <-ch:
		var got Event
		require.NoError(t, json.Unmarshal(msg.Data, &got))
		assert.Equal(t, "b1", got.BuildID)
		assert.False(t, got.Timestamp.IsZero())
	case <-time.After(5 * time.Second):
		t.Fatal("event not received")
	}
}
