package config

import (
	"github.com/kelseyhightower/envconfig"
)

// WorkerConfig configures the notification worker process
type WorkerConfig struct {
	// RabbitMQ
	RabbitURL string   `envconfig:"RABBITMQ_URL" required:"true"`
	Exchange  string   `envconfig:"NOTIFY_EXCHANGE" default:"booking.events"`
	Queue     string   `envconfig:"NOTIFY_QUEUE" default:"booking.notifications"`
	Bindings  []string `envconfig:"NOTIFY_BINDINGS" default:"booking.confirmed"`
	Prefetch  int      `envconfig:"NOTIFY_PREFETCH" default:"16"`
	DLXName   string   `envconfig:"NOTIFY_DLX" default:"booking.notifications.dlx"`
	DLXQueue  string   `envconfig:"NOTIFY_DLQ" default:"booking.notifications.dlq"`
	// Calendar invite
	ProductID string `envconfig:"ICS_PRODUCT_ID" default:"-//slotbook//booking-engine//EN"`
	// Observability
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`
	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName  string `envconfig:"OTEL_SERVICE_NAME" default:"booking-notifier"`
}

// LoadWorker reads worker configuration from the environment
func LoadWorker() (WorkerConfig, error) {
	var c WorkerConfig
	err := envconfig.Process("", &c)
	return c, err
}
