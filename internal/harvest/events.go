package harvest

import (
	"context"
	"time"

	"github.com/baires-data/boletin-pipeline/pkg/kafka"
)

// DayMerged is published to the harvest-days topic after a day's records
// are fully merged, so downstream enrichment can recompute on arrival.
type DayMerged struct {
	RunID         string    `json:"run_id"`
	Fecha         string    `json:"fecha"`
	NumeroBoletin int64     `json:"numero_boletin"`
	Normas        int       `json:"normas"`
	Licitaciones  int       `json:"licitaciones"`
	MergedAt      time.Time `json:"merged_at"`
}

// EventPublisher is the slice of the Kafka producer the runner needs.
type EventPublisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}
