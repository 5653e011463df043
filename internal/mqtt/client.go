package mqtt

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

const connectTimeout = 15 * time.Second

// Options configures the broker connection.
type Options struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string
}

type Client struct {
	client mqtt.Client

	mu   sync.Mutex
	subs map[string]subscription
}

type subscription struct {
	qos     byte
	handler mqtt.MessageHandler
}

// Message is one inbound publish.
type Message struct {
	mqtt.Message
}

// Connect starts dialing the broker and returns without waiting for the
// first connection. The client keeps retrying in the background until
// Close, and subscriptions made through Subscribe are applied on every
// (re)connect.
func Connect(o Options) (*Client, error) {
	broker := brokerURL(o.BrokerURL)
	if err := validateBrokerURL(broker); err != nil {
		return nil, err
	}

	c := &Client{subs: make(map[string]subscription)}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	clientID := strings.TrimSpace(o.ClientID)
	if clientID == "" {
		clientID = "waypoint-" + uuid.NewString()[:8]
	}
	opts.SetClientID(clientID)
	if o.Username != "" {
		opts.SetUsername(o.Username)
		opts.SetPassword(o.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetCleanSession(true)

	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		slog.Warn("mqtt connection lost", "error", err)
	}
	opts.OnConnect = func(client mqtt.Client) {
		slog.Info("mqtt connected", "client_id", clientID)
		c.resubscribe(client)
	}

	c.client = mqtt.NewClient(opts)
	tok := c.client.Connect()
	go func() {
		if !tok.WaitTimeout(connectTimeout) {
			slog.Warn("mqtt broker not reachable yet, still retrying", "broker", broker)
			return
		}
		if err := tok.Error(); err != nil {
			slog.Warn("mqtt connect stopped", "broker", broker, "error", err)
		}
	}()
	return c, nil
}

// brokerURL accepts mqtt:// as an alias for tcp://.
func brokerURL(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		u = "tcp://localhost:1883"
	}
	if strings.HasPrefix(u, "mqtt://") {
		u = "tcp://" + strings.TrimPrefix(u, "mqtt://")
	}
	return u
}

func validateBrokerURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid broker url %q: %w", raw, err)
	}
	switch u.Scheme {
	case "tcp", "ssl", "tls", "ws", "wss":
	default:
		return fmt.Errorf("unsupported broker scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("broker url %q has no host", raw)
	}
	return nil
}

func (c *Client) Subscribe(topic string, qos byte, handler func(Message)) error {
	sub := subscription{
		qos: qos,
		handler: func(_ mqtt.Client, msg mqtt.Message) {
			handler(Message{Message: msg})
		},
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs[topic] = sub

	// Not connected yet: OnConnect subscribes once the broker is up.
	if !c.client.IsConnectionOpen() {
		return nil
	}
	tok := c.client.Subscribe(topic, sub.qos, sub.handler)
	tok.Wait()
	return tok.Error()
}

func (c *Client) resubscribe(client mqtt.Client) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for topic, sub := range c.subs {
		tok := client.Subscribe(topic, sub.qos, sub.handler)
		tok.Wait()
		if err := tok.Error(); err != nil {
			slog.Error("mqtt resubscribe failed", "topic", topic, "error", err)
		}
	}
}

// Connected reports whether the client currently has a live connection.
func (c *Client) Connected() bool {
	return c != nil && c.client != nil && c.client.IsConnectionOpen()
}

func (c *Client) Close() {
	if c == nil || c.client == nil {
		return
	}
	c.client.Disconnect(1000)
}
