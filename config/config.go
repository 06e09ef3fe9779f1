package config

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/viper"
)

type Config struct {
	MinIOBucket string        `yaml:"minio_bucket"`
	App         App           `yaml:"app"`
	DB          *sql.DB       `yaml:"db"`
	Queue       *RabbitMQ     `yaml:"rabbitmq"`
	Storage     *minio.Client `yaml:"storage"`
	Server      Server        `yaml:"server"`
	Providers   Providers     `yaml:"providers"`
	Session     Session       `yaml:"session"`
}

type App struct {
	Environment string `yaml:"environment"`
	Host        string `yaml:"host"`
	Protocol    string `yaml:"protocol"`
}

type Server struct {
	HttpPort string `yaml:"http_port"`
	Workers  int    `yaml:"workers"`
}

type RabbitMQ struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	User         string `json:"user"`
	Pass         string `json:"pass"`
	ExchangeName string `json:"exchange_name"`
	Kind         string `json:"kind"`
}

// Providers configures the external speech/translation/synthesis backends.
type Providers struct {
	WhisperURL       string        `yaml:"whisper_url"`
	WhisperModel     string        `yaml:"whisper_model"`
	TranscribeTimout time.Duration `yaml:"transcribe_timeout"`
	Translator       string        `yaml:"translator"`
	TranslatorPrefix string        `yaml:"translator_prefix"`
	TranslateTimeout time.Duration `yaml:"translate_timeout"`
	TTSURL           string        `yaml:"tts_url"`
	TTSTimeout       time.Duration `yaml:"tts_timeout"`
}

// Session carries the live-session limits applied at creation time.
type Session struct {
	DefaultMaxWorshippers int `yaml:"default_max_worshippers"`
	MaxWorshippersCeiling int `yaml:"max_worshippers_ceiling"`
}

func Load(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	err := viper.ReadInConfig()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", viper.GetString("postgresql_host"))
	if err != nil {
		return nil, err
	}

	rabbitmq := &RabbitMQ{
		Host: viper.GetString("rabbitmq_host"),
		Port: viper.GetInt("rabbitmq_port"),
		User: viper.GetString("rabbitmq_user"),
		Pass: viper.GetString("rabbitmq_pass"),
		Kind: viper.GetString("rabbitmq_kind"),
	}

	minioClient, err := minio.New(viper.GetString("minio.url"), &minio.Options{
		Creds:  credentials.NewStaticV4(viper.GetString("minio.access_id"), viper.GetString("minio.secret_access_key"), ""),
		Secure: false,
	})
	if err != nil {
		return nil, err
	}

	return &Config{
		MinIOBucket: viper.GetString("minio.bucket"),
		App: App{
			Environment: viper.GetString("app.environment"),
			Host:        viper.GetString("app.host"),
			Protocol:    viper.GetString("app.protocol"),
		},
		Server: Server{
			HttpPort: viper.GetString("server.port"),
			Workers:  viper.GetInt("server.workers"),
		},
		Providers: Providers{
			WhisperURL:       viper.GetString("providers.whisper_url"),
			WhisperModel:     viper.GetString("providers.whisper_model"),
			TranscribeTimout: viper.GetDuration("providers.transcribe_timeout"),
			Translator:       viper.GetString("providers.translator"),
			TranslatorPrefix: viper.GetString("providers.translator_prefix"),
			TranslateTimeout: viper.GetDuration("providers.translate_timeout"),
			TTSURL:           viper.GetString("providers.tts_url"),
			TTSTimeout:       viper.GetDuration("providers.tts_timeout"),
		},
		Session: Session{
			DefaultMaxWorshippers: viper.GetInt("session.default_max_worshippers"),
			MaxWorshippersCeiling: viper.GetInt("session.max_worshippers_ceiling"),
		},
		DB:      db,
		Queue:   rabbitmq,
		Storage: minioClient,
	}, nil
}
