package mqtt

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

type message struct {
	topic   string
	payload []byte
	acked   bool
}

func (m *message) Duplicate() bool   { return false }
func (m *message) Qos() byte         { return 1 }
func (m *message) Retained() bool    { return false }
func (m *message) Topic() string     { return m.topic }
func (m *message) MessageID() uint16 { return 1 }
func (m *message) Payload() []byte   { return m.payload }
func (m *message) Ack()              { m.acked = true }

func TestMQTTHandler(t *testing.T) {
	ps := &pubsub{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	cases := []struct {
		desc    string
		payload string
		err     error
		called  bool
	}{
		{
			desc:    "decoded object",
			payload: `{"event":"acquired","pid":42}`,
			called:  true,
		},
		{
			desc:    "handler failure",
			payload: `{"event":"released"}`,
			err:     errors.New("unknown handle"),
			called:  true,
		},
		{
			desc:    "malformed payload",
			payload: `not json`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			var got map[string]any
			called := false
			h := ps.mqttHandler(func(topic string, msg map[string]any) error {
				called = true
				got = msg
				assert.Equal(t, "guardian/locks", topic)

				return tc.err
			})

			m := &message{topic: "guardian/locks", payload: []byte(tc.payload)}
			h(nil, m)

			assert.Equal(t, tc.called, called)
			assert.True(t, m.acked)
			if tc.called {
				assert.NotEmpty(t, got)
			}
		})
	}
}

func TestStatusTopic(t *testing.T) {
	assert.Equal(t, "guardian/node-1/status", StatusTopic("guardian", "node-1"))
}
