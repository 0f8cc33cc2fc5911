package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	Auth      AuthConfig
	Downloads DownloadsConfig
	Licenses  LicensesConfig
	Files     FilesConfig
	RateLimit RateLimitConfig
	Worker    WorkerConfig
	Cache     CacheConfig
}

type ServerConfig struct {
	Port           string        `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"readTimeout"`
	WriteTimeout   time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout    time.Duration `mapstructure:"idleTimeout"`
	ShutdownPeriod time.Duration `mapstructure:"shutdownPeriod"`
	AllowOrigins   []string      `mapstructure:"allowOrigins"`
}

// StorageConfig selects the repository backend: "postgres" or "memory".
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
}

type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxOpenConns    int           `mapstructure:"maxOpenConns"`
	MaxIdleConns    int           `mapstructure:"maxIdleConns"`
	ConnMaxLifetime time.Duration `mapstructure:"connMaxLifetime"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwtSecret"`
	Issuer    string        `mapstructure:"issuer"`
	TokenTTL  time.Duration `mapstructure:"tokenTTL"`
}

type DownloadsConfig struct {
	TokenTTL         time.Duration `mapstructure:"tokenTTL"`
	MaxTokenAttempts int           `mapstructure:"maxTokenAttempts"`
}

type LicensesConfig struct {
	PurchaseMethod string `mapstructure:"purchaseMethod"`
}

// FilesConfig configures the file location resolver. Provider is one of
// "drive", "s3" or "static".
type FilesConfig struct {
	Provider string      `mapstructure:"provider"`
	Drive    DriveConfig `mapstructure:"drive"`
	S3       S3Config    `mapstructure:"s3"`
	Static   StaticFiles `mapstructure:"static"`
}

type DriveConfig struct {
	Files map[string]string `mapstructure:"files"`
}

type S3Config struct {
	Endpoint     string        `mapstructure:"endpoint"`
	Region       string        `mapstructure:"region"`
	Bucket       string        `mapstructure:"bucket"`
	AccessKey    string        `mapstructure:"accessKey"`
	SecretKey    string        `mapstructure:"secretKey"`
	KeyPrefix    string        `mapstructure:"keyPrefix"`
	UsePathStyle bool          `mapstructure:"usePathStyle"`
	PresignTTL   time.Duration `mapstructure:"presignTTL"`
}

type StaticFiles struct {
	BaseURL string `mapstructure:"baseURL"`
}

type RateLimitConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	RedeemRate   int           `mapstructure:"redeemRate"`
	RedeemWindow time.Duration `mapstructure:"redeemWindow"`
	Salt         string        `mapstructure:"salt"`
}

type WorkerConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	Concurrency int  `mapstructure:"concurrency"`
}

type CacheConfig struct {
	TemplateSize int `mapstructure:"templateSize"`
}

func LoadConfig(configPath string) (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found or error loading it, relying on environment variables and config file")
	}

	v := viper.New()
	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AllowEmptyEnv(true)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			log.Printf("Warning: could not read config file: %s. Error: %v\n", configPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.readTimeout", 5*time.Second)
	v.SetDefault("server.writeTimeout", 10*time.Second)
	v.SetDefault("server.idleTimeout", 120*time.Second)
	v.SetDefault("server.shutdownPeriod", 15*time.Second)
	v.SetDefault("server.allowOrigins", []string{"http://localhost:3000"})

	v.SetDefault("storage.driver", "postgres")

	v.SetDefault("database.url", "")
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 25)
	v.SetDefault("database.connMaxLifetime", 5*time.Minute)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("auth.jwtSecret", "")
	v.SetDefault("auth.issuer", "templatestore")
	v.SetDefault("auth.tokenTTL", time.Hour)

	v.SetDefault("downloads.tokenTTL", 24*time.Hour)
	v.SetDefault("downloads.maxTokenAttempts", 5)

	v.SetDefault("licenses.purchaseMethod", "stripe")

	v.SetDefault("files.provider", "drive")
	v.SetDefault("files.s3.region", "us-east-1")
	v.SetDefault("files.s3.presignTTL", 24*time.Hour)
	v.SetDefault("files.s3.usePathStyle", true)
	v.SetDefault("files.static.baseURL", "")

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.redeemRate", 30)
	v.SetDefault("ratelimit.redeemWindow", time.Minute)
	v.SetDefault("ratelimit.salt", "")

	v.SetDefault("worker.enabled", true)
	v.SetDefault("worker.concurrency", 10)

	v.SetDefault("cache.templateSize", 512)
}
