package broadcast

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
)

func TestEnvelope_Marshal(t *testing.T) {
	envelope := &Envelope{
		Type: EventVoteUpdate,
		Data: &VotePayload{TokenAddress: "So1Vote", Upvotes: 3, Downvotes: 1},
	}

	payload, err := envelope.Marshal()
	assert.NoError(t, err)

	var decoded map[string]interface{}
	assert.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, "VOTE_UPDATE", decoded["type"])

	data := decoded["data"].(map[string]interface{})
	assert.Equal(t, "So1Vote", data["tokenAddress"])
	assert.Equal(t, float64(3), data["upvotes"])
}

// newWsPair 起一个测试服务端并返回已接入 hub 的客户端连接
func newWsPair(t *testing.T, hub *Hub) (*websocket.Conn, func()) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		assert.NoError(t, err)
		hub.Attach(conn)
	}))

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	assert.NoError(t, err)

	return client, func() {
		client.Close()
		srv.Close()
	}
}

func TestHub_PublishDelivers(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	client, cleanup := newWsPair(t, hub)
	defer cleanup()

	assert.Eventually(t, func() bool {
		return hub.SubscriberCount() == 1
	}, time.Second, 10*time.Millisecond)

	hub.Publish(EventPinExpired, &AddressPayload{TokenAddress: "So1Gone"})

	client.SetReadDeadline(time.Now().Add(time.Second))
	_, message, err := client.ReadMessage()
	assert.NoError(t, err)

	var envelope Envelope
	assert.NoError(t, json.Unmarshal(message, &envelope))
	assert.Equal(t, EventPinExpired, envelope.Type)
}

// 文本 ping 得到文本 pong
func TestHub_PingPong(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	client, cleanup := newWsPair(t, hub)
	defer cleanup()

	assert.Eventually(t, func() bool {
		return hub.SubscriberCount() == 1
	}, time.Second, 10*time.Millisecond)

	assert.NoError(t, client.WriteMessage(websocket.TextMessage, []byte("ping")))

	client.SetReadDeadline(time.Now().Add(time.Second))
	_, message, err := client.ReadMessage()
	assert.NoError(t, err)
	assert.Equal(t, "pong", string(message))
}

// 连接断开后订阅者被注销
func TestHub_DetachOnDisconnect(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	client, cleanup := newWsPair(t, hub)
	defer cleanup()

	assert.Eventually(t, func() bool {
		return hub.SubscriberCount() == 1
	}, time.Second, 10*time.Millisecond)

	client.Close()

	assert.Eventually(t, func() bool {
		return hub.SubscriberCount() == 0
	}, time.Second, 10*time.Millisecond)
}

// 没有订阅者时发布是空操作
func TestHub_PublishWithoutSubscribers(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	hub.Publish(EventNewToken, &AddressPayload{TokenAddress: "So1Lonely"})
	assert.Equal(t, 0, hub.SubscriberCount())
}

// 多个订阅者各自收到同一事件
func TestHub_PublishFanOut(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	first, cleanupA := newWsPair(t, hub)
	defer cleanupA()
	second, cleanupB := newWsPair(t, hub)
	defer cleanupB()

	assert.Eventually(t, func() bool {
		return hub.SubscriberCount() == 2
	}, time.Second, 10*time.Millisecond)

	hub.Publish(EventTokenDeleted, &AddressPayload{TokenAddress: "So1Fan"})

	for _, client := range []*websocket.Conn{first, second} {
		client.SetReadDeadline(time.Now().Add(time.Second))
		_, message, err := client.ReadMessage()
		assert.NoError(t, err)

		var envelope Envelope
		assert.NoError(t, json.Unmarshal(message, &envelope))
		assert.Equal(t, EventTokenDeleted, envelope.Type)
	}
}
