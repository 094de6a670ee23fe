package kafka

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/IBM/sarama"

	"recurring-patterns-system/internal/config"
	"recurring-patterns-system/internal/logger"
	"recurring-patterns-system/internal/models"
)

type ProducerImpl struct {
	producer        sarama.SyncProducer
	topic           string
	deadLetterTopic string
}

func NewProducer(cfg *config.Config) (Producer, error) {
	saramaCfg := sarama.NewConfig()
	saramaCfg.Producer.Return.Successes = true
	saramaCfg.Producer.RequiredAcks = sarama.WaitForAll
	saramaCfg.Producer.Retry.Max = 5
	// Партиция выбирается хешем ключа: события одного семейства паттернов
	// всегда попадают в одну партицию и обрабатываются по порядку
	saramaCfg.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(cfg.Kafka.Brokers, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	log.Println("Kafka producer created successfully")
	return &ProducerImpl{
		producer:        producer,
		topic:           cfg.Kafka.TransactionTopic,
		deadLetterTopic: cfg.Kafka.DeadLetterTopic,
	}, nil
}

func (p *ProducerImpl) SendTransactionEvent(event *models.TransactionEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic:     p.topic,
		Key:       sarama.StringEncoder(event.Data.PartitionKey()),
		Value:     sarama.StringEncoder(data),
		Timestamp: time.Now(),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	logger.LogEvent(logger.EventKafkaSent, "pattern-service", "kafka", map[string]interface{}{
		"event_id":       event.EventID,
		"transaction_id": event.Data.TransactionID,
		"partition":      partition,
		"offset":         offset,
	})

	log.Printf("Message sent to topic %s, partition %d, offset %d", p.topic, partition, offset)
	return nil
}

// SendToDeadLetter публикует событие в dead-letter топик. Событие
// сохраняет исходный ключ, чтобы порядок в dead-letter соответствовал
// порядку исходного топика.
func (p *ProducerImpl) SendToDeadLetter(event *models.TransactionEvent, reason string) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal dead-letter event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.deadLetterTopic,
		Key:   sarama.StringEncoder(event.Data.PartitionKey()),
		Value: sarama.StringEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("reason"), Value: []byte(reason)},
		},
		Timestamp: time.Now(),
	}

	_, _, err = p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to send dead-letter message: %w", err)
	}

	logger.LogEvent(logger.EventDeadLetter, "matcher-service", "kafka", map[string]interface{}{
		"event_id":       event.EventID,
		"transaction_id": event.Data.TransactionID,
		"reason":         reason,
		"attempt":        event.Attempt,
	})

	log.Printf("Event %s sent to dead-letter topic %s: %s", event.EventID, p.deadLetterTopic, reason)
	return nil
}

func (p *ProducerImpl) Close() error {
	return p.producer.Close()
}
