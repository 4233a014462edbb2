// Package publisher handles publishing scan events to RabbitMQ.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	// EventScanCompleted is the CloudEvent type for a finished scan.
	EventScanCompleted = "portscan.scan.completed"
	// RoutingKeyScanCompleted is the routing key for EventScanCompleted.
	RoutingKeyScanCompleted = "scan.completed"
)

// Channel is the subset of *amqp.Channel the publisher needs.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends CloudEvents to RabbitMQ.
type Publisher struct {
	conn     *amqp.Connection
	channel  Channel
	exchange string
	logger   *zap.SugaredLogger
}

// CloudEvent represents the CloudEvents 1.0 specification structure.
type CloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	Type            string      `json:"type"`
	Source          string      `json:"source"`
	ID              string      `json:"id"`
	Time            string      `json:"time"`
	DataContentType string      `json:"datacontenttype"`
	Subject         string      `json:"subject,omitempty"`
	Data            interface{} `json:"data"`
}

// ScanCompletedData is the payload of a scan completed event.
type ScanCompletedData struct {
	ScanID     string     `json:"scan_id"`
	Target     string     `json:"target"`
	IP         string     `json:"ip"`
	ScanType   string     `json:"scan_type"`
	PortsTotal int        `json:"ports_total"`
	OpenPorts  []OpenPort `json:"open_ports"`
}

// OpenPort is one open port in a scan completed event.
type OpenPort struct {
	Port    uint16 `json:"port"`
	Service string `json:"service,omitempty"`
}

// New creates a new Publisher connected to RabbitMQ.
func New(url, exchange string, logger *zap.SugaredLogger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	p := NewWithChannel(channel, exchange, logger)
	p.conn = conn
	return p, nil
}

// NewWithChannel creates a Publisher over an existing channel.
func NewWithChannel(channel Channel, exchange string, logger *zap.SugaredLogger) *Publisher {
	if exchange == "" {
		exchange = "portscan.events"
	}
	return &Publisher{
		channel:  channel,
		exchange: exchange,
		logger:   logger,
	}
}

// Close closes the RabbitMQ connection.
func (p *Publisher) Close() error {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// PublishScanCompleted publishes a scan completed event.
func (p *Publisher) PublishScanCompleted(ctx context.Context, data ScanCompletedData) error {
	event := createEvent(EventScanCompleted, data.ScanID, data)
	return p.publish(ctx, event, RoutingKeyScanCompleted)
}

func createEvent(eventType, subject string, data interface{}) CloudEvent {
	return CloudEvent{
		SpecVersion:     "1.0",
		Type:            eventType,
		Source:          "/portscan",
		ID:              uuid.New().String(),
		Time:            time.Now().UTC().Format(time.RFC3339),
		DataContentType: "application/json",
		Subject:         subject,
		Data:            data,
	}
}

func (p *Publisher) publish(ctx context.Context, event CloudEvent, routingKey string) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/cloudevents+json",
			Body:        body,
			MessageId:   event.ID,
			Timestamp:   time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debugw("Event published",
		"type", event.Type,
		"id", event.ID,
		"routing_key", routingKey,
	)

	return nil
}
