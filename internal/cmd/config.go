package cmd

import "time"

// Backend names accepted by --backend.
const (
	BackendMongo  = "mongo"
	BackendRedis  = "redis"
	BackendPebble = "pebble"
	BackendMemory = "memory"
)

// PositionsPostgres keeps consumer positions in PostgreSQL regardless of the log backend.
const PositionsPostgres = "pg"

// Config holds CLI settings. Flags override values read from the environment.
type Config struct {
	Backend                 string        `env:"TAILQ_BACKEND" envDefault:"mongo"`
	Queue                   string        `env:"TAILQ_QUEUE" envDefault:"ExampleMessage"`
	Positions               string        `env:"TAILQ_POSITIONS"`
	DataDir                 string        `env:"TAILQ_DATA_DIR" envDefault:"./data"`
	MongoDatabase           string        `env:"TAILQ_MONGO_DATABASE" envDefault:"tailqueue"`
	MongoUnackedCheckpoints bool          `env:"TAILQ_MONGO_UNACKED_CHECKPOINTS"`
	ReportInterval          time.Duration `env:"TAILQ_REPORT_INTERVAL" envDefault:"1s"`
	Env                     string        `env:"TAILQ_ENV"`
	LogLevel                string        `env:"TAILQ_LOG_LEVEL"`
	LogFormat               string        `env:"TAILQ_LOG_FORMAT"`
	HealthAddr              string        `env:"TAILQ_HEALTH_ADDR"`
}

func defaultConfig() Config {
	return Config{
		Backend:        BackendMongo,
		Queue:          "ExampleMessage",
		DataDir:        "./data",
		MongoDatabase:  "tailqueue",
		ReportInterval: time.Second,
	}
}
