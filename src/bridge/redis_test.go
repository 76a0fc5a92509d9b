package bridge

import (
	"encoding/json"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func redisTestMessage(payload string) *redis.Message {
	return &redis.Message{Channel: "relay:ws:broadcast", Payload: payload}
}

// mockBroadcastTarget records broadcasts forwarded from the bridge.
type mockBroadcastTarget struct {
	received []struct {
		roomID  string
		payload []byte
		exclude string
	}
}

func (m *mockBroadcastTarget) BroadcastLocal(roomID string, payload []byte, excludeActor string) {
	m.received = append(m.received, struct {
		roomID  string
		payload []byte
		exclude string
	}{roomID, payload, excludeActor})
}

func TestRedisEnvelopeRoundTrip(t *testing.T) {
	payload := []byte(`{"type":"collaboration","project_id":"p1","op":"edit"}`)
	env := redisEnvelope{
		InstanceID:   "node-1",
		RoomID:       "p1",
		ExcludeActor: "alice",
		Payload:      payload,
	}

	data, err := json.Marshal(env)
	require.NoError(t, err)

	var out redisEnvelope
	require.NoError(t, json.Unmarshal(data, &out))

	assert.Equal(t, "node-1", out.InstanceID)
	assert.Equal(t, "p1", out.RoomID)
	assert.Equal(t, "alice", out.ExcludeActor)
	assert.JSONEq(t, string(payload), string(out.Payload))
}

func TestRedisEnvelopePayloadVerbatim(t *testing.T) {
	// Payload bytes must survive the envelope untouched so cross-instance
	// recipients see the exact frame the sender produced.
	payload := []byte(`{"type":"collaboration","project_id":"p2","data":{"a":1,"b":[true,null]}}`)
	env := redisEnvelope{InstanceID: "node-2", RoomID: "p2", Payload: payload}

	data, err := json.Marshal(env)
	require.NoError(t, err)

	var out redisEnvelope
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, payload, []byte(out.Payload))
}

func TestDefaultRedisConfig(t *testing.T) {
	cfg := DefaultRedisConfig()
	assert.Equal(t, "localhost:6379", cfg.Addr)
	assert.Empty(t, cfg.Password)
	assert.Equal(t, 0, cfg.DB)
	assert.Equal(t, "relay:ws:", cfg.Prefix)
}

func TestRedisConfigFromEnv(t *testing.T) {
	t.Setenv("REDIS_ADDR", "redis.example.com:6380")
	t.Setenv("REDIS_PASSWORD", "secret")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("REDIS_WS_PREFIX", "test:ws:")

	cfg := RedisConfigFromEnv()
	assert.Equal(t, "redis.example.com:6380", cfg.Addr)
	assert.Equal(t, "secret", cfg.Password)
	assert.Equal(t, 3, cfg.DB)
	assert.Equal(t, "test:ws:", cfg.Prefix)
}

func TestRedisConfigFromEnvInvalidDB(t *testing.T) {
	t.Setenv("REDIS_DB", "not-a-number")

	cfg := RedisConfigFromEnv()
	assert.Equal(t, 0, cfg.DB) // falls back to default
}

func TestRedisBridgeAvailableFalseBeforeStart(t *testing.T) {
	cfg := DefaultRedisConfig()
	rb := NewRedisBridge(cfg.NewClient(), cfg.Prefix, &mockBroadcastTarget{}, zerolog.Nop())
	assert.False(t, rb.Available())
}

func TestRedisBridgeInstanceIDUnique(t *testing.T) {
	cfg := DefaultRedisConfig()
	b1 := NewRedisBridge(cfg.NewClient(), cfg.Prefix, nil, zerolog.Nop())
	b2 := NewRedisBridge(cfg.NewClient(), cfg.Prefix, nil, zerolog.Nop())
	assert.NotEqual(t, b1.instanceID, b2.instanceID)
}

func TestSelfOriginatedMessagesSkipped(t *testing.T) {
	cfg := DefaultRedisConfig()
	target := &mockBroadcastTarget{}
	rb := NewRedisBridge(cfg.NewClient(), cfg.Prefix, target, zerolog.Nop())

	env := redisEnvelope{InstanceID: rb.instanceID, RoomID: "p1", Payload: []byte(`{}`)}
	data, err := json.Marshal(env)
	require.NoError(t, err)

	rb.handleRedisMessage(redisTestMessage(string(data)))
	assert.Empty(t, target.received)
}

func TestForeignMessagesForwarded(t *testing.T) {
	cfg := DefaultRedisConfig()
	target := &mockBroadcastTarget{}
	rb := NewRedisBridge(cfg.NewClient(), cfg.Prefix, target, zerolog.Nop())

	env := redisEnvelope{
		InstanceID:   "some-other-node",
		RoomID:       "p1",
		ExcludeActor: "bob",
		Payload:      []byte(`{"type":"collaboration","project_id":"p1"}`),
	}
	data, err := json.Marshal(env)
	require.NoError(t, err)

	rb.handleRedisMessage(redisTestMessage(string(data)))
	require.Len(t, target.received, 1)
	assert.Equal(t, "p1", target.received[0].roomID)
	assert.Equal(t, "bob", target.received[0].exclude)
}
