package feed

import (
	"context"
	"encoding/json"
	"fmt"

	"PatternTrade/internal/domain/models"
	drepo "PatternTrade/internal/domain/repository"
	pkgkafka "PatternTrade/pkg/kafka"
	"PatternTrade/pkg/logger"
)

// KafkaFeed is a live CandleStream over a Kafka candle topic. The
// consumer's worker pool feeds the stream channel; the channel order
// per partition matches the topic's order.
type KafkaFeed struct {
	topic    string
	consumer *pkgkafka.Consumer
	l        *logger.Logger

	candles chan *models.Candle
	errs    chan error
}

func NewKafkaFeed(topic string, consumer *pkgkafka.Consumer, l *logger.Logger) drepo.CandleStream {
	return &KafkaFeed{
		topic:    topic,
		consumer: consumer,
		l:        l,
		candles:  make(chan *models.Candle, 1024),
		errs:     make(chan error, 1),
	}
}

func (f *KafkaFeed) Connect(_ context.Context) error {
	f.consumer.RegisterHandler(&candleHandler{topic: f.topic, out: f.candles, l: f.l})
	if err := f.consumer.Start(); err != nil {
		return fmt.Errorf("start kafka feed: %w", err)
	}
	return nil
}

func (f *KafkaFeed) Read(_ context.Context) (<-chan *models.Candle, <-chan error) {
	return f.candles, f.errs
}

func (f *KafkaFeed) Close() error {
	err := f.consumer.Stop(context.Background())
	close(f.candles)
	close(f.errs)
	return err
}

// candleHandler decodes candle messages off the topic. Malformed
// payloads are logged and dropped, never retried.
type candleHandler struct {
	topic string
	out   chan<- *models.Candle
	l     *logger.Logger
}

func (h *candleHandler) Topic() string { return h.topic }

func (h *candleHandler) Handle(_ context.Context, b []byte) error {
	var w wireCandle
	if err := json.Unmarshal(b, &w); err != nil {
		h.l.Warn("dropping unparseable candle message", logger.Error(err))
		return nil
	}
	c, ok := decodeCandle(w)
	if !ok {
		h.l.Warn("dropping malformed candle message", logger.String("symbol", w.Symbol))
		return nil
	}
	h.out <- c
	return nil
}

var _ pkgkafka.MessageHandler = (*candleHandler)(nil)
