// Package kafka publishes newly persisted records to a topic so downstream
// consumers (map tiles, notifications) learn about new road works without
// polling the store. The sink is optional and strictly best-effort: a
// publish failure never affects the pipeline outcome.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/lavorimap/roadworks-etl/internal/domain"
)

// Writer produces canonical records to a Kafka topic.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the given brokers and topic.
func NewWriter(brokers []string, topic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// record is the published payload; field names mirror the store schema so
// consumers see one vocabulary.
type record struct {
	Latitudine       float64 `json:"latitudine"`
	Longitudine      float64 `json:"longitudine"`
	Regione          string  `json:"regione"`
	DataInizio       string  `json:"data_inizio"`
	DataOsservazione string  `json:"data_osservazione"`
	Fonte            string  `json:"fonte"`
	Descrizione      string  `json:"descrizione"`
	Costo            string  `json:"costo"`
}

// Publish sends all records in a single WriteMessages call.
func (w *Writer) Publish(ctx context.Context, records []domain.CanonicalRecord) error {
	if len(records) == 0 {
		return nil
	}
	msgs, err := buildMessages(records)
	if err != nil {
		return err
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

// buildMessages serializes records into Kafka messages. The message key is
// the rounded coordinate pair, so re-published points land on the same
// partition.
func buildMessages(records []domain.CanonicalRecord) ([]kafkago.Message, error) {
	msgs := make([]kafkago.Message, len(records))
	for i, rec := range records {
		value, err := json.Marshal(record{
			Latitudine:       rec.Geo.Lat,
			Longitudine:      rec.Geo.Lon,
			Regione:          rec.Region,
			DataInizio:       rec.StartDate,
			DataOsservazione: rec.LastSeen,
			Fonte:            rec.SourceName,
			Descrizione:      rec.Description,
			Costo:            rec.Cost,
		})
		if err != nil {
			return nil, fmt.Errorf("serialize record: %w", err)
		}
		msgs[i] = kafkago.Message{
			Key:   []byte(fmt.Sprintf("%.5f,%.5f", rec.Geo.Lat, rec.Geo.Lon)),
			Value: value,
			Headers: []kafkago.Header{
				{Key: "source", Value: []byte(rec.SourceName)},
				{Key: "region", Value: []byte(rec.Region)},
			},
		}
	}
	return msgs, nil
}

// Close flushes and closes the underlying producer.
func (w *Writer) Close() error {
	return w.writer.Close()
}
