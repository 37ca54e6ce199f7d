package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DatabaseDSN      string `yaml:"database_dsn"`
	MigrationDir     string `yaml:"migration_dir"`
	KafkaHost        string `yaml:"kafka_host"`
	OrderEventsTopic string `yaml:"order_events_topic"`
	RelayBatchSize   int    `yaml:"relay_batch_size"`
}

var DefaultConfig = Config{
	DatabaseDSN:      "root:1@tcp(localhost:3306)/retail_orders?parseTime=true&multiStatements=true",
	MigrationDir:     "migration/store",
	KafkaHost:        "localhost:29092",
	OrderEventsTopic: "ORDER_EVENTS_TOPIC",
	RelayBatchSize:   100,
}

// Load builds the effective config: DefaultConfig, overlaid with the YAML file
// at path when one is given, overlaid with environment variables. ORDER_DB_DSN
// and KAFKA_HOST always win so deployments can reconfigure without a file.
func Load(path string) (Config, error) {
	conf := DefaultConfig

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrapf(err, "read config %s", path)
		}
		if err := yaml.Unmarshal(raw, &conf); err != nil {
			return Config{}, errors.Wrapf(err, "parse config %s", path)
		}
	}

	if dsn, ok := os.LookupEnv("ORDER_DB_DSN"); ok {
		conf.DatabaseDSN = dsn
	}
	if host, ok := os.LookupEnv("KAFKA_HOST"); ok {
		conf.KafkaHost = host
	}
	return conf, nil
}
