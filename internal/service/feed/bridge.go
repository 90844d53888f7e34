package feed

import (
	"context"
	"time"

	"PatternTrade/internal/domain/models"
	drepo "PatternTrade/internal/domain/repository"
	pkgkafka "PatternTrade/pkg/kafka"
	"PatternTrade/pkg/logger"
)

// KafkaBridge wraps a live CandleStream and republishes every candle
// onto the Kafka candle topic, keyed by symbol so per-symbol order is
// preserved across partitions. Publish failures are logged and the
// candle still flows to the local pipeline.
type KafkaBridge struct {
	inner    drepo.CandleStream
	producer *pkgkafka.Producer
	topic    string
	l        *logger.Logger

	candles chan *models.Candle
}

func NewKafkaBridge(inner drepo.CandleStream, producer *pkgkafka.Producer, topic string, l *logger.Logger) drepo.CandleStream {
	return &KafkaBridge{
		inner:    inner,
		producer: producer,
		topic:    topic,
		l:        l,
		candles:  make(chan *models.Candle, 1024),
	}
}

func (b *KafkaBridge) Connect(ctx context.Context) error {
	return b.inner.Connect(ctx)
}

func (b *KafkaBridge) Read(ctx context.Context) (<-chan *models.Candle, <-chan error) {
	candles, errs := b.inner.Read(ctx)
	go func() {
		defer close(b.candles)
		for c := range candles {
			b.publish(ctx, c)
			select {
			case b.candles <- c:
			case <-ctx.Done():
				return
			}
		}
	}()
	return b.candles, errs
}

func (b *KafkaBridge) publish(ctx context.Context, c *models.Candle) {
	w := wireCandle{
		Symbol:    c.Symbol,
		Timestamp: c.Timestamp.UTC().Format(time.RFC3339),
		Open:      c.Open,
		High:      c.High,
		Low:       c.Low,
		Close:     c.Close,
		Volume:    c.Volume,
		Timeframe: string(c.Timeframe),
	}
	if err := b.producer.Publish(ctx, b.topic, []byte(c.Symbol), w); err != nil {
		b.l.Warn("candle republish failed",
			logger.String("symbol", c.Symbol),
			logger.Error(err))
	}
}

func (b *KafkaBridge) Close() error {
	err := b.inner.Close()
	if perr := b.producer.Close(); err == nil {
		err = perr
	}
	return err
}
