package test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gartstein/kyp/internal/credit/controller"
	"github.com/gartstein/kyp/internal/credit/db"
	e "github.com/gartstein/kyp/internal/credit/errors"
	"github.com/gartstein/kyp/internal/credit/events"
	"github.com/gartstein/kyp/internal/credit/models"
	"github.com/gartstein/kyp/internal/credit/pipeline"
	"github.com/gartstein/kyp/internal/credit/ratios"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

const (
	eventsTopic   = "credit-analysis-events-it"
	requestsTopic = "credit-analysis-requests-it"
	healthyCNPJ   = "12345678000190"
)

var kafkaBrokers = []string{"localhost:9092"}

type IntegrationTestSuite struct {
	suite.Suite
	dbRepo       *db.Repository
	kafkaReader  *kafka.Reader
	producer     *events.Producer
	service      *controller.AnalysisService
	logger       *zap.Logger
	testTimeout  time.Duration
	cleanupFuncs []func()
}

func TestIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests")
	}
	suite.Run(t, new(IntegrationTestSuite))
}

func (s *IntegrationTestSuite) SetupSuite() {
	s.logger = zap.NewNop()
	s.testTimeout = 20 * time.Second

	var err error
	s.dbRepo, err = initializeDBWithRetry(s.logger)
	if err != nil {
		s.T().Fatal("Database initialization failed:", err)
	}
	s.cleanupFuncs = append(s.cleanupFuncs, func() { _ = s.dbRepo.Close() })

	s.producer, s.kafkaReader, err = initializeKafkaWithRetry(eventsTopic)
	if err != nil {
		s.T().Fatal("Kafka initialization failed:", err)
	}
	s.cleanupFuncs = append(s.cleanupFuncs, s.producer.Close, func() { _ = s.kafkaReader.Close() })

	runner := pipeline.New(s.logger, ratios.DefaultBenchmarks(), time.Now)
	s.service = controller.NewAnalysisService(runner, s.dbRepo, s.producer, s.logger)
}

func initializeDBWithRetry(logger *zap.Logger) (*db.Repository, error) {
	cfg := &db.Config{
		Host:     "localhost",
		Port:     5432,
		User:     "test",
		Password: "test",
		DBName:   "test",
		SSLMode:  "disable",
	}

	var repo *db.Repository
	err := backoff.Retry(func() error {
		var err error
		repo, err = db.NewRepository(cfg, logger)
		return err
	}, backoff.NewExponentialBackOff())

	return repo, err
}

func initializeKafkaWithRetry(topic string) (*events.Producer, *kafka.Reader, error) {
	var producer *events.Producer
	err := backoff.Retry(func() error {
		var err error
		producer, err = events.NewProducer(kafkaBrokers, zap.NewNop(), topic)
		if err != nil || producer == nil {
			return fmt.Errorf("failed to create Kafka producer: %v", err)
		}
		return nil
	}, backoff.NewExponentialBackOff())
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer initialization failed: %w", err)
	}

	if err := waitForTopic(topic); err != nil {
		return nil, nil, err
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     kafkaBrokers,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.LastOffset,
	})
	return producer, reader, nil
}

func waitForTopic(topic string) error {
	err := backoff.Retry(func() error {
		conn, err := kafka.Dial("tcp", kafkaBrokers[0])
		if err != nil {
			return err
		}
		defer conn.Close()

		partitions, err := conn.ReadPartitions(topic)
		if err != nil || len(partitions) == 0 {
			return fmt.Errorf("topic %s not found", topic)
		}
		return nil
	}, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5))
	if err != nil {
		return fmt.Errorf("kafka topic check failed: %w", err)
	}
	return nil
}

func (s *IntegrationTestSuite) TearDownSuite() {
	for i := len(s.cleanupFuncs) - 1; i >= 0; i-- {
		s.cleanupFuncs[i]()
	}
}

func (s *IntegrationTestSuite) SetupTest() {
	if s.dbRepo == nil {
		s.T().Fatal("Database connection not initialized")
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.testTimeout)
	defer cancel()

	if err := s.dbRepo.Exec(ctx, "TRUNCATE TABLE analyses"); err != nil {
		s.T().Fatal("Failed to clean database:", err)
	}
}

func fixture(t *testing.T, name string) []byte {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("..", "testdata", name))
	require.NoError(t, err)
	return raw
}

func (s *IntegrationTestSuite) TestAnalyzeStoresAndAnnounces() {
	ctx, cancel := context.WithTimeout(context.Background(), s.testTimeout)
	defer cancel()

	created, err := s.service.Analyze(ctx, fixture(s.T(), "healthy.json"))
	require.NoError(s.T(), err)
	assert.Equal(s.T(), models.OutcomeApprove, created.Outcome)

	stored, err := s.service.GetAnalysis(ctx, created.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), created.Report.Markdown, stored.Report.Markdown)
	assert.True(s.T(), created.CreatedAt.Equal(stored.CreatedAt))

	list, err := s.service.ListByCNPJ(ctx, "12.345.678/0001-90", 10)
	require.NoError(s.T(), err)
	require.Len(s.T(), list, 1)
	assert.Equal(s.T(), created.ID, list[0].ID)

	event := s.consumeKafkaEvent(ctx, events.AnalysisCompleted, healthyCNPJ)
	assert.Equal(s.T(), created.ID.String(), event.AnalysisID, "Kafka message analysis ID mismatch")
	assert.Equal(s.T(), string(models.OutcomeApprove), event.Decision)
}

func (s *IntegrationTestSuite) TestRatioFailureIsAnnounced() {
	ctx, cancel := context.WithTimeout(context.Background(), s.testTimeout)
	defer cancel()

	var doc map[string]any
	require.NoError(s.T(), json.Unmarshal(fixture(s.T(), "healthy.json"), &doc))
	balance := doc["financeiro"].(map[string]any)["balanco_patrimonial"].(map[string]any)
	balance["ativo_circulante"] = -1
	raw, err := json.Marshal(doc)
	require.NoError(s.T(), err)

	_, err = s.service.Analyze(ctx, raw)
	se, ok := e.As(err)
	require.True(s.T(), ok, "expected a stage error, got %v", err)
	assert.Equal(s.T(), e.KindLiquidityFailed, se.Kind)

	list, err := s.service.ListByCNPJ(ctx, healthyCNPJ, 10)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), list, "failed runs are not archived")

	event := s.consumeKafkaEvent(ctx, events.AnalysisRejected, healthyCNPJ)
	assert.Equal(s.T(), string(e.KindLiquidityFailed), event.ErrorKind)
	assert.Equal(s.T(), ratios.Stage, event.Stage)
}

func (s *IntegrationTestSuite) TestRequestConsumer() {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	conn, err := kafka.Dial("tcp", kafkaBrokers[0])
	require.NoError(s.T(), err)
	_ = conn.CreateTopics(kafka.TopicConfig{Topic: requestsTopic, NumPartitions: 1, ReplicationFactor: 1})
	conn.Close()
	require.NoError(s.T(), waitForTopic(requestsTopic))

	consumer := events.NewConsumer(kafkaBrokers, "kyp-it-"+uuid.NewString(), requestsTopic, s.logger)
	consumer.RegisterHandler(s.service.HandleRequest)
	consumerCtx, stop := context.WithCancel(ctx)
	consumer.Start(consumerCtx)
	defer func() {
		stop()
		<-consumer.Done()
		consumer.Close()
	}()

	request, err := json.Marshal(events.Request{RequestID: "it-1", Document: fixture(s.T(), "moderate.json")})
	require.NoError(s.T(), err)
	writer := &kafka.Writer{Addr: kafka.TCP(kafkaBrokers...), Topic: requestsTopic}
	defer writer.Close()
	require.NoError(s.T(), writer.WriteMessages(ctx, kafka.Message{Value: request}))

	var moderate struct {
		Empresa struct {
			CNPJ string `json:"cnpj"`
		} `json:"empresa"`
	}
	require.NoError(s.T(), json.Unmarshal(fixture(s.T(), "moderate.json"), &moderate))

	err = backoff.Retry(func() error {
		list, err := s.service.ListByCNPJ(ctx, moderate.Empresa.CNPJ, 1)
		if err != nil {
			return backoff.Permanent(err)
		}
		if len(list) == 0 {
			return fmt.Errorf("analysis not stored yet")
		}
		assert.Equal(s.T(), models.OutcomeReview, list[0].Outcome)
		return nil
	}, backoff.WithContext(backoff.NewConstantBackOff(500*time.Millisecond), ctx))
	require.NoError(s.T(), err)

	event := s.consumeKafkaEvent(ctx, events.AnalysisCompleted, "")
	assert.Equal(s.T(), "it-1", event.RequestID)
}

// consumeKafkaEvent reads until an event of eventType keyed by cnpj arrives.
// An empty cnpj matches any key.
func (s *IntegrationTestSuite) consumeKafkaEvent(ctx context.Context, eventType events.EventType, cnpj string) events.Event {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	maxRetries := 200
	attempts := 0
	for {
		select {
		case <-ctx.Done():
			s.T().Fatalf("Timeout: No %s event received after %d attempts", eventType, attempts)
			return events.Event{}
		default:
			if attempts >= maxRetries {
				s.T().Fatalf("Max retry attempts reached for %s", eventType)
				return events.Event{}
			}
			msg, err := s.kafkaReader.ReadMessage(ctx)
			if err != nil {
				s.T().Logf("Kafka read attempt %d failed: %v", attempts, err)
				attempts++
				time.Sleep(1 * time.Second)
				continue
			}
			s.T().Logf("Received Kafka message: Topic=%s Key=%s", msg.Topic, string(msg.Key))
			if cnpj != "" && string(msg.Key) != cnpj {
				attempts++
				continue
			}
			var event events.Event
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				s.T().Fatalf("Failed to unmarshal Kafka message: %v", err)
			}
			if event.Type != eventType {
				s.T().Logf("Skipping message with unmatched eventType: %s (Expected: %s)", event.Type, eventType)
				attempts++
				continue
			}
			return event
		}
	}
}
