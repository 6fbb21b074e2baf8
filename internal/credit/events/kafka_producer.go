// Package events publishes analysis outcomes to Kafka and consumes analysis
// requests from it.
package events

import (
	"context"
	"encoding/json"
	"time"

	e "github.com/gartstein/kyp/internal/credit/errors"
	"github.com/gartstein/kyp/internal/credit/models"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var jsonMarshal = json.Marshal

// queueSize is the number of events buffered before Produce starts dropping.
const queueSize = 1000

type EventType string

const (
	AnalysisCompleted EventType = "analysis_completed"
	AnalysisRejected  EventType = "analysis_rejected"
)

// Event is the message value. Completed events carry the decision and both
// scores; rejected events carry the failing stage and error kind.
type Event struct {
	Type        EventType `json:"type"`
	RequestID   string    `json:"request_id,omitempty"`
	AnalysisID  string    `json:"analysis_id,omitempty"`
	CNPJ        string    `json:"cnpj,omitempty"`
	Decision    string    `json:"decision,omitempty"`
	RiskScore   float64   `json:"risk_score"`
	HealthScore float64   `json:"health_score"`
	Stage       string    `json:"stage,omitempty"`
	ErrorKind   string    `json:"error_kind,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Completed builds the event for an archived analysis.
func Completed(ctx context.Context, a *models.Analysis) Event {
	return Event{
		Type:        AnalysisCompleted,
		RequestID:   RequestIDFrom(ctx),
		AnalysisID:  a.ID.String(),
		CNPJ:        a.CNPJ,
		Decision:    string(a.Outcome),
		RiskScore:   a.RiskScore,
		HealthScore: a.HealthScore,
		OccurredAt:  a.CreatedAt,
	}
}

// Rejected builds the event for a run stopped by a stage error. cnpj is empty
// when the document never got past the company checks.
func Rejected(ctx context.Context, cnpj string, se *e.Error, at time.Time) Event {
	return Event{
		Type:       AnalysisRejected,
		RequestID:  RequestIDFrom(ctx),
		CNPJ:       cnpj,
		Stage:      se.Stage,
		ErrorKind:  string(se.Kind),
		OccurredAt: at,
	}
}

type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer    KafkaWriter
	events    chan Event
	logger    *zap.Logger
	closeChan chan struct{}
	done      chan struct{}
}

// NewProducer creates the topic when missing and starts the delivery loop.
func NewProducer(brokers []string, logger *zap.Logger, topic string) (*Producer, error) {
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	err = conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     3,
		ReplicationFactor: 1,
	})
	if err != nil {
		logger.Warn("failed to create topic (may already exist)", zap.Error(err))
	}

	return newProducer(&kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Balancer: &kafka.Hash{},
		Topic:    topic,
	}, logger), nil
}

func newProducer(writer KafkaWriter, logger *zap.Logger) *Producer {
	p := &Producer{
		writer:    writer,
		events:    make(chan Event, queueSize),
		logger:    logger.Named("kafka_producer"),
		closeChan: make(chan struct{}),
		done:      make(chan struct{}),
	}
	go p.eventLoop()
	return p
}

// Produce queues an event without blocking. Events are dropped when the
// queue is full.
func (p *Producer) Produce(event Event) {
	select {
	case p.events <- event:
	default:
		p.logger.Warn("Kafka producer queue full, dropping event",
			zap.String("event_type", string(event.Type)),
			zap.String("analysis_id", event.AnalysisID),
		)
	}
}

func (p *Producer) eventLoop() {
	defer close(p.done)
	for {
		select {
		case event := <-p.events:
			p.sendEvent(context.Background(), event)
		case <-p.closeChan:
			p.drain()
			return
		}
	}
}

// drain delivers what was queued before Close.
func (p *Producer) drain() {
	for {
		select {
		case event := <-p.events:
			p.sendEvent(context.Background(), event)
		default:
			return
		}
	}
}

func (p *Producer) sendEvent(ctx context.Context, event Event) {
	value, err := jsonMarshal(event)
	if err != nil {
		p.logger.Error("Failed to serialize event",
			zap.Error(err),
			zap.String("analysis_id", event.AnalysisID),
		)
		return
	}
	msg := kafka.Message{Value: value}
	if event.CNPJ != "" {
		msg.Key = []byte(event.CNPJ)
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to produce event",
			zap.Error(err),
			zap.String("event_type", string(event.Type)),
			zap.String("analysis_id", event.AnalysisID),
		)
	}
}

// Close stops the loop after flushing queued events and closes the writer.
func (p *Producer) Close() {
	close(p.closeChan)
	if p.done != nil {
		<-p.done
	}
	if err := p.writer.Close(); err != nil {
		p.logger.Error("Failed to close Kafka writer", zap.Error(err))
	}
}

type requestIDKey struct{}

// WithRequestID tags ctx with the id of the request being served so that the
// resulting event can be correlated.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom returns the id set by WithRequestID, or "".
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
