package eventstreamutils

import (
	"fmt"
	"log/slog"

	"github.com/papercomputeco/recall/pkg/eventstream"
	"github.com/papercomputeco/recall/pkg/eventstream/kafka"
	"github.com/papercomputeco/recall/pkg/eventstream/nop"
	"github.com/papercomputeco/recall/pkg/eventstream/worker"
)

type NewPublisherOpts struct {
	ProviderType string
	Brokers      []string
	Topic        string
	Logger       *slog.Logger

	// Workers and QueueSize size the asynchronous delivery pool that fronts
	// broker-backed publishers. Zero picks the pool defaults.
	Workers   uint
	QueueSize uint
}

// NewPublisher builds the configured publisher. An empty provider disables
// publishing.
func NewPublisher(o *NewPublisherOpts) (eventstream.Publisher, error) {
	switch o.ProviderType {
	case "", "nop":
		return nop.NewPublisher(), nil
	case "kafka":
		publisher, err := kafka.NewPublisher(kafka.Config{
			Brokers: o.Brokers,
			Topic:   o.Topic,
		}, o.Logger)
		if err != nil {
			return nil, err
		}
		return worker.NewPool(&worker.Config{
			Publisher:  publisher,
			NumWorkers: o.Workers,
			QueueSize:  o.QueueSize,
			Logger:     o.Logger,
		})
	default:
		return nil, fmt.Errorf("unsupported events provider: %s", o.ProviderType)
	}
}
