package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	connTimeout    = 10
	reconnTimeout  = 1
	disconnTimeout = 250

	statusOnline  = "online"
	statusOffline = "offline"
)

var (
	errPublishTimeout     = errors.New("failed to publish due to timeout reached")
	errSubscribeTimeout   = errors.New("failed to subscribe due to timeout reached")
	errUnsubscribeTimeout = errors.New("failed to unsubscribe due to timeout reached")
	errConnect            = errors.New("failed to connect to MQTT broker")
	errConnectTimeout     = errors.New("timeout reached while connecting to MQTT broker")
	errEmptyTopic         = errors.New("empty topic")
	errEmptyID            = errors.New("empty ID")

	statusTopicTemplate = "%s/%s/status"
)

// Handler receives one decoded JSON object per message.
type Handler func(topic string, msg map[string]any) error

type PubSub interface {
	Publish(ctx context.Context, topic string, msg any) error
	Subscribe(ctx context.Context, topic string, handler Handler) error
	Unsubscribe(ctx context.Context, topic string) error
	Disconnect(ctx context.Context) error
}

type status struct {
	Status     string `json:"status"`
	InstanceID string `json:"instance_id"`
}

type pubsub struct {
	client  mqtt.Client
	id      string
	prefix  string
	qos     byte
	timeout time.Duration
	logger  *slog.Logger

	mu       sync.Mutex
	handlers map[string]Handler
}

// NewPubSub connects to the broker at url. Subscriptions are restored after
// every reconnect. When prefix is set, a retained online status is kept
// under <prefix>/<id>/status and the broker replaces it with offline if the
// connection drops.
func NewPubSub(url string, qos byte, id, username, password, prefix string, timeout time.Duration, logger *slog.Logger) (PubSub, error) {
	if id == "" {
		return nil, errEmptyID
	}

	ps := &pubsub{
		id:       id,
		prefix:   prefix,
		qos:      qos,
		timeout:  timeout,
		logger:   logger,
		handlers: make(map[string]Handler),
	}

	client, err := ps.connect(url, username, password)
	if err != nil {
		return nil, err
	}
	ps.client = client

	return ps, nil
}

func (ps *pubsub) Publish(ctx context.Context, topic string, msg any) error {
	if topic == "" {
		return errEmptyTopic
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return ps.wait(ctx, ps.client.Publish(topic, ps.qos, false, data), errPublishTimeout)
}

func (ps *pubsub) Subscribe(ctx context.Context, topic string, handler Handler) error {
	if topic == "" {
		return errEmptyTopic
	}

	if err := ps.wait(ctx, ps.client.Subscribe(topic, ps.qos, ps.mqttHandler(handler)), errSubscribeTimeout); err != nil {
		return err
	}

	ps.mu.Lock()
	ps.handlers[topic] = handler
	ps.mu.Unlock()

	return nil
}

func (ps *pubsub) Unsubscribe(ctx context.Context, topic string) error {
	if topic == "" {
		return errEmptyTopic
	}

	ps.mu.Lock()
	delete(ps.handlers, topic)
	ps.mu.Unlock()

	return ps.wait(ctx, ps.client.Unsubscribe(topic), errUnsubscribeTimeout)
}

// Disconnect marks the instance offline and closes the connection.
func (ps *pubsub) Disconnect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if ps.prefix != "" && ps.client.IsConnected() {
		if err := ps.publishStatus(statusOffline); err != nil {
			ps.logger.Warn("failed to publish offline status", slog.Any("error", err))
		}
	}
	ps.client.Disconnect(disconnTimeout)

	return nil
}

// StatusTopic is the topic carrying the online/offline status of id.
func StatusTopic(prefix, id string) string {
	return fmt.Sprintf(statusTopicTemplate, prefix, id)
}

func (ps *pubsub) wait(ctx context.Context, token mqtt.Token, timeoutErr error) error {
	timer := time.NewTimer(ps.timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-timer.C:
		return timeoutErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (ps *pubsub) connect(address, username, password string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(address).
		SetClientID(ps.id).
		SetUsername(username).
		SetPassword(password).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectTimeout(connTimeout * time.Second).
		SetMaxReconnectInterval(reconnTimeout * time.Minute)

	if ps.prefix != "" {
		payload, err := json.Marshal(status{Status: statusOffline, InstanceID: ps.id})
		if err != nil {
			return nil, err
		}
		opts.SetBinaryWill(StatusTopic(ps.prefix, ps.id), payload, 1, true)
	}

	opts.SetOnConnectHandler(ps.onConnect)

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		args := []any{}
		if err != nil {
			args = append(args, slog.Any("error", err))
		}

		ps.logger.Warn("MQTT connection lost", args...)
	})

	opts.SetReconnectingHandler(func(_ mqtt.Client, options *mqtt.ClientOptions) {
		args := []any{}
		if options != nil {
			args = append(args,
				slog.String("client_id", options.ClientID),
				slog.String("username", options.Username),
			)
		}

		ps.logger.Info("MQTT reconnecting", args...)
	})

	client := mqtt.NewClient(opts)

	token := client.Connect()
	if ok := token.WaitTimeout(ps.timeout); !ok {
		return nil, errConnectTimeout
	}
	if err := token.Error(); err != nil {
		return nil, errors.Join(errConnect, err)
	}

	return client, nil
}

// onConnect runs on the first connection and on every reconnect. With a
// clean session the broker forgets subscriptions, so they are renewed here.
func (ps *pubsub) onConnect(client mqtt.Client) {
	ps.logger.Info("MQTT connection established")

	ps.mu.Lock()
	handlers := make(map[string]Handler, len(ps.handlers))
	for topic, h := range ps.handlers {
		handlers[topic] = h
	}
	ps.mu.Unlock()

	for topic, h := range handlers {
		token := client.Subscribe(topic, ps.qos, ps.mqttHandler(h))
		if ok := token.WaitTimeout(ps.timeout); !ok || token.Error() != nil {
			ps.logger.Warn("failed to restore subscription", slog.String("topic", topic), slog.Any("error", token.Error()))
		}
	}

	if ps.prefix != "" {
		if err := ps.publishStatusWith(client, statusOnline); err != nil {
			ps.logger.Warn("failed to publish online status", slog.Any("error", err))
		}
	}
}

func (ps *pubsub) publishStatus(s string) error {
	return ps.publishStatusWith(ps.client, s)
}

func (ps *pubsub) publishStatusWith(client mqtt.Client, s string) error {
	payload, err := json.Marshal(status{Status: s, InstanceID: ps.id})
	if err != nil {
		return err
	}

	token := client.Publish(StatusTopic(ps.prefix, ps.id), 1, true, payload)
	if ok := token.WaitTimeout(ps.timeout); !ok {
		return errPublishTimeout
	}

	return token.Error()
}

func (ps *pubsub) mqttHandler(h Handler) mqtt.MessageHandler {
	return func(_ mqtt.Client, m mqtt.Message) {
		defer m.Ack()

		var msg map[string]any
		if err := json.Unmarshal(m.Payload(), &msg); err != nil {
			ps.logger.Warn("failed to decode MQTT message", slog.String("topic", m.Topic()), slog.Any("error", err))

			return
		}

		if err := h(m.Topic(), msg); err != nil {
			ps.logger.Warn("failed to handle MQTT message", slog.String("topic", m.Topic()), slog.Any("error", err))
		}
	}
}
