package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Failure policies applied at the batch barrier.
const (
	FailurePolicyPartial = "partial"
	FailurePolicyStrict  = "strict"
)

// Transform engines.
const (
	TransformEngineExec = "exec"
	TransformEngineSQL  = "sql"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Warehouse WarehouseConfig `mapstructure:"warehouse"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Transform TransformConfig `mapstructure:"transform"`
	Notify    NotifyConfig    `mapstructure:"notify"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type StorageConfig struct {
	Type      string `mapstructure:"type"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Region    string `mapstructure:"region"`
}

type WarehouseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	StagingTable    string        `mapstructure:"staging_table"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN builds the driver-specific connection string.
func (c *WarehouseConfig) DSN() string {
	if c.Driver == "postgres" {
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
	}
	return c.Path
}

type PipelineConfig struct {
	Bucket        string      `mapstructure:"bucket"`
	ArchiveBucket string      `mapstructure:"archive_bucket"`
	ArchivePrefix string      `mapstructure:"archive_prefix"`
	Workers       int         `mapstructure:"workers"`
	FailurePolicy string      `mapstructure:"failure_policy"`
	Retry         RetryConfig `mapstructure:"retry"`
}

// ArchiveTarget returns the archive bucket, defaulting to the active bucket.
func (c *PipelineConfig) ArchiveTarget() string {
	if c.ArchiveBucket == "" {
		return c.Bucket
	}
	return c.ArchiveBucket
}

type RetryConfig struct {
	MaxAttempts    int           `mapstructure:"max_attempts"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
	Multiplier     float64       `mapstructure:"multiplier"`
}

type TransformConfig struct {
	Engine      string `mapstructure:"engine"`
	WorkDir     string `mapstructure:"workdir"`
	RunCommand  string `mapstructure:"run_command"`
	TestCommand string `mapstructure:"test_command"`
	Verbose     bool   `mapstructure:"verbose"`
}

type NotifyConfig struct {
	WebhookURL string        `mapstructure:"webhook_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Credentials and the target bucket usually come from the environment
	v.BindEnv("storage.access_key", "AWS_ACCESS_KEY_ID")
	v.BindEnv("storage.secret_key", "AWS_SECRET_ACCESS_KEY")
	v.BindEnv("storage.region", "AWS_REGION")
	v.BindEnv("warehouse.password", "WAREHOUSE_PASSWORD")
	v.BindEnv("pipeline.bucket", "ELT_BUCKET")
	v.BindEnv("notify.webhook_url", "ELT_WEBHOOK_URL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("storage.type", "")
	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("warehouse.driver", "sqlite")
	v.SetDefault("warehouse.path", "./data/warehouse.db")
	v.SetDefault("warehouse.port", 5432)
	v.SetDefault("warehouse.sslmode", "disable")
	v.SetDefault("warehouse.staging_table", "raw_sales")
	v.SetDefault("warehouse.auto_migrate", true)
	v.SetDefault("warehouse.max_idle_conns", 5)
	v.SetDefault("warehouse.max_open_conns", 10)
	v.SetDefault("warehouse.conn_max_lifetime", "30m")
	v.SetDefault("pipeline.archive_prefix", "archive/")
	v.SetDefault("pipeline.workers", 5)
	v.SetDefault("pipeline.failure_policy", FailurePolicyPartial)
	v.SetDefault("pipeline.retry.max_attempts", 3)
	v.SetDefault("pipeline.retry.initial_backoff", "1s")
	v.SetDefault("pipeline.retry.max_backoff", "10s")
	v.SetDefault("pipeline.retry.multiplier", 2.0)
	v.SetDefault("transform.engine", TransformEngineExec)
	v.SetDefault("transform.workdir", "dbt_pipeline")
	v.SetDefault("transform.run_command", "dbt run --select clean_sales")
	v.SetDefault("transform.test_command", "dbt test --select clean_sales")
	v.SetDefault("notify.timeout", "10s")
}

// Validate checks that the configuration can drive a run.
func (c *Config) Validate() error {
	if c.Pipeline.Bucket == "" {
		return fmt.Errorf("pipeline bucket must be specified")
	}
	if c.Pipeline.Workers <= 0 {
		return fmt.Errorf("pipeline workers must be positive")
	}
	if c.Pipeline.Retry.MaxAttempts < 1 {
		return fmt.Errorf("pipeline retry max_attempts must be at least 1")
	}
	switch c.Pipeline.FailurePolicy {
	case FailurePolicyPartial, FailurePolicyStrict:
	default:
		return fmt.Errorf("invalid failure policy: %s (must be partial or strict)", c.Pipeline.FailurePolicy)
	}
	// Archiving into the same bucket without a prefix would make archived
	// objects indistinguishable from new arrivals.
	if c.Pipeline.ArchiveTarget() == c.Pipeline.Bucket && c.Pipeline.ArchivePrefix == "" {
		return fmt.Errorf("archive_prefix is required when archiving into the active bucket")
	}
	// Discovery hides keys by prefix; without a trailing slash "archive"
	// would also hide "archive_2024.csv".
	if c.Pipeline.ArchivePrefix != "" && !strings.HasSuffix(c.Pipeline.ArchivePrefix, "/") {
		return fmt.Errorf("archive_prefix must end with '/': %q", c.Pipeline.ArchivePrefix)
	}
	switch c.Warehouse.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported warehouse driver: %s (must be postgres or sqlite)", c.Warehouse.Driver)
	}
	if c.Warehouse.StagingTable == "" {
		return fmt.Errorf("warehouse staging_table must be specified")
	}
	switch c.Transform.Engine {
	case TransformEngineExec, TransformEngineSQL:
	default:
		return fmt.Errorf("invalid transform engine: %s (must be exec or sql)", c.Transform.Engine)
	}
	if c.Transform.RunCommand == "" || c.Transform.TestCommand == "" {
		return fmt.Errorf("transform run_command and test_command must be specified")
	}
	return nil
}
