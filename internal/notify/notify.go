// Package notify delivers short status messages to a user outside the
// request path.
package notify

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

const DefaultSubject = "bridge.notifications"

type Notifier interface {
	Notify(ctx context.Context, userID string, title string, body string) error
}

// LogNotifier writes notifications to the process log.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, userID string, title string, body string) error {
	log.Printf("notify: user=%s title=%q body=%q", userID, title, body)
	return nil
}

type Message struct {
	UserID string    `json:"user_id"`
	Title  string    `json:"title"`
	Body   string    `json:"body"`
	SentAt time.Time `json:"sent_at"`
}

type publisher interface {
	Publish(subject string, data []byte) error
}

// NATSNotifier publishes each notification as JSON on a NATS subject.
type NATSNotifier struct {
	pub     publisher
	conn    *nats.Conn
	subject string
}

type NATSConfig struct {
	URL     string
	Subject string
}

func NewNATSNotifier(cfg NATSConfig) (*NATSNotifier, error) {
	url := cfg.URL
	if url == "" {
		url = nats.DefaultURL
	}
	nc, err := nats.Connect(url,
		nats.Name("bridge-notify"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, err
	}
	n := newNATSNotifier(nc, cfg.Subject)
	n.conn = nc
	return n, nil
}

func newNATSNotifier(pub publisher, subject string) *NATSNotifier {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSNotifier{pub: pub, subject: subject}
}

func (n *NATSNotifier) Notify(ctx context.Context, userID string, title string, body string) error {
	data, err := json.Marshal(Message{
		UserID: userID,
		Title:  title,
		Body:   body,
		SentAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	return n.pub.Publish(n.subject, data)
}

func (n *NATSNotifier) Close() {
	if n.conn != nil {
		n.conn.Close()
	}
}
