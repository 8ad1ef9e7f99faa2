package producer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/radieske/lottery-central-poc/pkg/contracts/events"
)

// KafkaPublisher emite um evento bet_received para cada aposta persistida.
// Publicação é best-effort: falha é logada pelo chamador, nunca devolvida à agência.
type KafkaPublisher struct {
	Writer *kafka.Writer
	Topic  string
}

func NewKafkaPublisher(w *kafka.Writer, topic string) *KafkaPublisher {
	return &KafkaPublisher{Writer: w, Topic: topic}
}

func (p *KafkaPublisher) PublishBetReceived(ctx context.Context, e events.BetReceived) error {
	e.TsUnixMs = time.Now().UnixMilli()
	b, _ := json.Marshal(e)
	return p.Writer.WriteMessages(ctx, kafka.Message{Value: b})
}
