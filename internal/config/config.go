package config

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string     `yaml:"env" env:"ENV" env-default:"production"`
	HTTPServer HTTPServer `yaml:"http_server" env-required:"true"`
	Instagram  Instagram  `yaml:"instagram"`
	MinIO      MinIO      `yaml:"minio"`
	Redis      Redis      `yaml:"redis"`
	Render     Render     `yaml:"render"`
	Schedule   Schedule   `yaml:"schedule"`
	Worker     Worker     `yaml:"worker"`
	JWTSecret  string     `yaml:"jwt_secret" env:"JWT_SECRET" env-default:"super_secret_key"`
}

type HTTPServer struct {
	Address string `yaml:"address" env-default:"localhost:8080"`
	// PublicBaseURL is the externally reachable address of this service,
	// used to build URLs for locally served fallback images.
	PublicBaseURL string `yaml:"public_base_url" env-default:"http://localhost:8080"`
}

type Instagram struct {
	AccessToken string `yaml:"access_token" env:"IG_ACCESS_TOKEN"`
	AccountID   string `yaml:"account_id" env:"IG_ACCOUNT_ID"`
	APIBaseURL  string `yaml:"api_base_url" env-default:"https://graph.facebook.com/v19.0"`
	// ContainerDelay is observed between consecutive media container
	// creation calls so the Graph API rate limit is not tripped.
	ContainerDelay time.Duration `yaml:"container_delay" env-default:"2s"`
	// PublishDelay is observed after the carousel container is created and
	// before every publish attempt, giving the platform processing time.
	PublishDelay      time.Duration `yaml:"publish_delay" env-default:"15s"`
	MaxPublishRetries int           `yaml:"max_publish_retries" env-default:"3"`
	// PublishesPerHour caps publish operations per account on the HTTP
	// surface, well under the platform's own daily content quota.
	PublishesPerHour  int64         `yaml:"publishes_per_hour" env-default:"25"`
	InitialRetryDelay time.Duration `yaml:"initial_retry_delay" env-default:"10s"`
	BackoffFactor     float64       `yaml:"backoff_factor" env-default:"2"`
}

type MinIO struct {
	Endpoint        string `yaml:"endpoint" env:"MINIO_ENDPOINT"`
	AccessKeyID     string `yaml:"access_key_id" env:"MINIO_ACCESS_KEY"`
	SecretAccessKey string `yaml:"secret_access_key" env:"MINIO_SECRET_KEY"`
	BucketName      string `yaml:"bucket_name" env-default:"carousel-images"`
	UseSSL          bool   `yaml:"use_ssl" env-default:"false"`
}

type Redis struct {
	Address string `yaml:"address" env-default:"localhost:6379"`
	DB      int    `yaml:"db" env-default:"0"`
}

type Render struct {
	OutputDir string `yaml:"output_dir" env-default:"./rendered"`
	// StaticDir is the locally served directory used as the upload fallback.
	StaticDir  string `yaml:"static_dir" env-default:"./static"`
	CanvasSize int    `yaml:"canvas_size" env-default:"1080"`
}

type Schedule struct {
	CalendarPath string `yaml:"calendar_path" env-default:"./calendar.json"`
}

type Worker struct {
	Interval time.Duration `yaml:"interval" env-default:"1m"`
}

func MustLoad() *Config {
	var configPath string

	configPath = os.Getenv("CONFIG_PATH")

	if configPath == "" {
		flags := flag.String("config", "", "Path to config file")
		flag.Parse()
		configPath = *flags

		if configPath == "" {
			log.Fatal("config path must be provided")
		}
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("config file does not exist at path: %s", configPath)
	}

	var cfg Config

	err := cleanenv.ReadConfig(configPath, &cfg)

	if err != nil {
		log.Fatalf("failed to read config: %s", err)
	}

	return &cfg
}
