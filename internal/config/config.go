package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

var singleConfig *Config = nil

type Config struct {
	Database *dbConfig
	Service  *svcConfig
	Cache    *cacheConfig
	Worker   *workerConfig
}

type dbConfig struct {
	Type     string `envconfig:"DB_TYPE" default:"pgsql"`
	Hostname string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"designer"`
	User     string `envconfig:"DB_USER" default:"admin"`
	Password string `envconfig:"DB_PASS" default:"adminpass"`
}

type svcConfig struct {
	Address         string `envconfig:"DESIGNER_ADDRESS" default:":3443"`
	BaseUrl         string `envconfig:"DESIGNER_BASE_URL" default:"https://localhost:3443"`
	LogLevel        string `envconfig:"DESIGNER_LOG_LEVEL" default:"info"`
	MigrationFolder string `envconfig:"DESIGNER_MIGRATIONS_FOLDER" default:""`
}

type cacheConfig struct {
	// TTL is the window after which a cache entry is treated as absent.
	TTL time.Duration `envconfig:"DESIGNER_CACHE_TTL" default:"168h"`
}

type workerConfig struct {
	// PollInterval is the mean interval between two claim attempts.
	PollInterval time.Duration `envconfig:"DESIGNER_WORKER_POLL_INTERVAL" default:"2s"`
	// StepDelay slows down the engine between progress steps. Zero in tests.
	StepDelay time.Duration `envconfig:"DESIGNER_WORKER_STEP_DELAY" default:"500ms"`
}

func New() (*Config, error) {
	if singleConfig == nil {
		singleConfig = new(Config)
		if err := envconfig.Process("", singleConfig); err != nil {
			return nil, err
		}
	}
	return singleConfig, nil
}

// NewDefault returns a config populated with the envconfig defaults only.
// Used by tests which override the database section afterwards.
func NewDefault() *Config {
	cfg := new(Config)
	if err := envconfig.Process("", cfg); err != nil {
		panic(err)
	}
	return cfg
}
