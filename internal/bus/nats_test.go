package bus

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"
)

func TestConnectUnreachable(t *testing.T) {
	if _, err := Connect("nats://127.0.0.1:1"); err == nil {
		t.Error("expected error connecting to a closed port")
	}
}

func TestCloseNilConn(t *testing.T) {
	// Close must be safe on a client that never connected.
	(&Client{}).Close()
}

func TestQueueSubscribeRoundTrip(t *testing.T) {
	url := os.Getenv("NATS_URL")
	if url == "" {
		url = "nats://127.0.0.1:4222"
	}
	c, err := Connect(url)
	if err != nil {
		t.Skipf("skipping integration test: NATS not reachable: %v", err)
	}
	defer c.Close()

	got := make(chan string, 1)
	sub, err := c.QueueSubscribe("backdrop.test", "backdrop-test", func(_ context.Context, data []byte) error {
		var m map[string]string
		if err := json.Unmarshal(data, &m); err != nil {
			return err
		}
		got <- m["key"]
		return nil
	})
	if err != nil {
		t.Fatalf("QueueSubscribe: %v", err)
	}
	defer sub.Unsubscribe()

	if err := c.PublishJSON("backdrop.test", map[string]string{"key": "imports/a.jpg"}); err != nil {
		t.Fatalf("PublishJSON: %v", err)
	}
	select {
	case key := <-got:
		if key != "imports/a.jpg" {
			t.Errorf("key: got %q", key)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("message not delivered")
	}
}
