package config

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/voyago/voice-core/pkg/configs"
)

// RecorderConfig holds the capture tunables. Chunk and tick intervals are
// empirically chosen defaults, not invariants.
type RecorderConfig struct {
	MaxDurationSeconds int `mapstructure:"max_duration_seconds" validate:"required,gt=0"`
	TickIntervalMs     int `mapstructure:"tick_interval_ms" validate:"required,gt=0"`
	ChunkIntervalMs    int `mapstructure:"chunk_interval_ms" validate:"required,gt=0"`
	SampleRate         int `mapstructure:"sample_rate" validate:"required,gt=0"`
}

type SessionConfig struct {
	TTLHours int `mapstructure:"ttl_hours" validate:"required,gt=0"`
}

type CleanupConfig struct {
	IntervalHours int `mapstructure:"interval_hours" validate:"required,gt=0"`
	RetentionDays int `mapstructure:"retention_days" validate:"required,gt=0"`
}

// Application config structure
type AppConfig struct {
	Name     string `mapstructure:"service_name" validate:"required"`
	Version  string `mapstructure:"version" validate:"required"`
	LogLevel string `mapstructure:"log_level" validate:"required"`
	LogPath  string `mapstructure:"log_path"`

	Recorder RecorderConfig `mapstructure:"recorder" validate:"required"`
	Session  SessionConfig  `mapstructure:"session" validate:"required"`
	Cleanup  CleanupConfig  `mapstructure:"cleanup" validate:"required"`

	// Remote assistant service consuming recorded audio.
	AssistantHost string `mapstructure:"assistant_host" validate:"required"`

	PostgresConfig configs.PostgresConfig `mapstructure:"postgres" validate:"required"`
	RedisConfig    configs.RedisConfig    `mapstructure:"redis" validate:"required"`
}

// reading config and intializing configs for application
func InitConfig() (*viper.Viper, error) {
	vConfig := viper.NewWithOptions(viper.KeyDelimiter("__"))

	vConfig.AddConfigPath(".")
	vConfig.SetConfigName(".env")
	path := os.Getenv("ENV_PATH")
	if path != "" {
		log.Printf("env path %v", path)
		vConfig.SetConfigFile(path)
	}
	vConfig.SetConfigType("env")
	vConfig.AutomaticEnv()

	setDefault(vConfig)
	if err := vConfig.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		log.Printf("Reading from env variables.")
	}

	return vConfig, nil
}

func setDefault(v *viper.Viper) {
	// setting all default values
	// keeping watch on https://github.com/spf13/viper/issues/188

	v.SetDefault("SERVICE_NAME", "voice-core")
	v.SetDefault("VERSION", "0.0.1")
	v.SetDefault("LOG_LEVEL", "debug")
	v.SetDefault("LOG_PATH", "")

	v.SetDefault("ASSISTANT_HOST", "<>")

	v.SetDefault("RECORDER__MAX_DURATION_SECONDS", 15)
	v.SetDefault("RECORDER__TICK_INTERVAL_MS", 100)
	v.SetDefault("RECORDER__CHUNK_INTERVAL_MS", 100)
	v.SetDefault("RECORDER__SAMPLE_RATE", 16000)

	v.SetDefault("SESSION__TTL_HOURS", 24)

	v.SetDefault("CLEANUP__INTERVAL_HOURS", 24)
	v.SetDefault("CLEANUP__RETENTION_DAYS", 14)

	v.SetDefault("POSTGRES__HOST", "localhost")
	v.SetDefault("POSTGRES__PORT", 5432)
	v.SetDefault("POSTGRES__DB_NAME", "<>")
	v.SetDefault("POSTGRES__AUTH__USER", "<>")
	v.SetDefault("POSTGRES__AUTH__PASSWORD", "<>")
	v.SetDefault("POSTGRES__MAX_OPEN_CONNECTION", 10)
	v.SetDefault("POSTGRES__MAX_IDEAL_CONNECTION", 10)
	v.SetDefault("POSTGRES__SSL_MODE", "disable")

	v.SetDefault("REDIS__HOST", "localhost")
	v.SetDefault("REDIS__PORT", 6379)
	v.SetDefault("REDIS__PASSWORD", "")
	v.SetDefault("REDIS__DB", 0)
}

// Getting application config from viper
func GetApplicationConfig(v *viper.Viper) (*AppConfig, error) {
	var config AppConfig
	err := v.Unmarshal(&config)
	if err != nil {
		log.Printf("%+v\n", err)
		return nil, err
	}

	// valdating the app config
	validate := validator.New()
	err = validate.Struct(&config)
	if err != nil {
		log.Printf("%+v\n", err)
		return nil, err
	}
	return &config, nil
}
