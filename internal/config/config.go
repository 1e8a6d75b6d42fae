package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the whole application configuration. It is constructed once at
// startup and passed by reference into every component; pipeline code never
// reaches for ambient globals.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	MySQL         MySQLConfig         `mapstructure:"mysql"`
	Redis         RedisConfig         `mapstructure:"redis"`
	JWT           JWTConfig           `mapstructure:"jwt"`
	Transfer      TransferConfig      `mapstructure:"transfer"`
	Upload        UploadConfig        `mapstructure:"upload"`
	RabbitMQ      RabbitMQConfig      `mapstructure:"rabbitmq"`
	SMTP          SMTPConfig          `mapstructure:"smtp"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Log           LogConfig           `mapstructure:"log"`
}

type ServerConfig struct {
	Port       string `mapstructure:"port"`
	PublicBase string `mapstructure:"public_base"` // external base URL, used in verification links
}

type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConfig struct {
	SecretKey string        `mapstructure:"secret_key"`
	ExpiresIn time.Duration `mapstructure:"expires_in"`
	Issuer    string        `mapstructure:"issuer"`
}

// TransferConfig selects and configures the remote transfer backend.
// Exactly one backend is active per deployment.
type TransferConfig struct {
	Type string `mapstructure:"type"` // "ftp" or "minio"

	// Timeout bounds a whole Send call. Zero means no timeout; set it in
	// production so an unresponsive remote cannot stall a request forever.
	Timeout time.Duration `mapstructure:"timeout"`

	FTP   FTPConfig   `mapstructure:"ftp"`
	MinIO MinIOConfig `mapstructure:"minio"`
}

type FTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Root     string `mapstructure:"root"` // remote directory uploads land in
}

type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

type UploadConfig struct {
	// CategoryPrefix is the MIME prefix accepted by the video pipeline.
	CategoryPrefix string `mapstructure:"category_prefix"`
	// MaxFieldBytes caps a single non-file form field.
	MaxFieldBytes int64 `mapstructure:"max_field_bytes"`
}

type RabbitMQConfig struct {
	URL string `mapstructure:"url"`
}

// SMTPConfig configures the verification mailer. Leaving Host empty disables
// outgoing mail entirely (accounts are then created pre-verified).
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// ElasticsearchConfig configures the optional video search index.
// No addresses means search falls back to SQL LIKE queries.
type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

type LogConfig struct {
	OutputPath string `mapstructure:"output_path"`
	ErrorPath  string `mapstructure:"error_path"`
	Level      string `mapstructure:"level"`
}

// LoadConfig reads config.yaml (cwd, ./configs, /etc/isee) merged with
// ISEE_-prefixed environment variables.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("/etc/isee/")

	viper.SetEnvPrefix("ISEE")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("server.port", "8080")
	viper.SetDefault("transfer.type", "ftp")
	viper.SetDefault("transfer.ftp.port", 21)
	viper.SetDefault("upload.category_prefix", "video/")
	viper.SetDefault("upload.max_field_bytes", 1<<20)
	viper.SetDefault("jwt.expires_in", 10*time.Minute)
	viper.SetDefault("jwt.issuer", "isee")
	viper.SetDefault("elasticsearch.index", "videos")
	viper.SetDefault("log.output_path", "logs/app.log")
	viper.SetDefault("log.error_path", "logs/error.log")
	viper.SetDefault("log.level", "info")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// Not fatal: environment variables and defaults still apply.
		log.Println("Warning: config file not found, using environment variables and defaults.")
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
