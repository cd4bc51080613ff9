package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

const EnvPrefix = "CARTPICK"

type Config struct {
	App struct {
		Env       string
		LogLevel  string `mapstructure:"log_level"`
		LogFormat string `mapstructure:"log_format"`
	} `mapstructure:"app"`

	HTTP struct {
		Addr            string
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"http"`

	GRPC struct {
		Addr string
	} `mapstructure:"grpc"`

	Database struct {
		Driver          string
		DSN             string
		MaxOpenConns    int           `mapstructure:"max_open_conns"`
		MaxIdleConns    int           `mapstructure:"max_idle_conns"`
		ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
		Migrate         bool
	} `mapstructure:"database"`

	Redis struct {
		Addr     string
		PoolSize int `mapstructure:"pool_size"`
		Stream   string
		MaxLen   int64 `mapstructure:"max_len"`
	} `mapstructure:"redis"`

	Allocation struct {
		MaxRetries  int           `mapstructure:"max_retries"`
		RetryDelay  time.Duration `mapstructure:"retry_delay"`
		WarehouseID int64         `mapstructure:"warehouse_id"`
		States      []string
		CarrierIDs  []int64 `mapstructure:"carrier_ids"`
	} `mapstructure:"allocation"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "text")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.shutdown_timeout", 5*time.Second)
	v.SetDefault("grpc.addr", ":50051")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "cartpick.db")
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.max_idle_conns", 25)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.migrate", true)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.pool_size", 20)
	v.SetDefault("redis.stream", "cartpick:events")
	v.SetDefault("redis.max_len", 10000)
	v.SetDefault("allocation.max_retries", 5)
	v.SetDefault("allocation.retry_delay", 500*time.Millisecond)
	v.SetDefault("allocation.warehouse_id", 0)
	v.SetDefault("allocation.states", []string{"assigned"})
	v.SetDefault("allocation.carrier_ids", []int64{})
	v.SetDefault("metrics.enabled", true)
}

// Load reads the config file at path, when given, over the defaults. Every key can be
// overridden from the environment, e.g. CARTPICK_DATABASE_DSN.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var c Config
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return c, err
		}
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, nil
}

// LoadEnvFile exports the variables of a dotenv file that are not already set.
// A missing file is not an error.
func LoadEnvFile(path string) error {
	if err := gotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
