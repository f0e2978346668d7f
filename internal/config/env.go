package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type BaseEnv struct {
	Env      string `envconfig:"ENV" default:"local"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"warn"`
	NoColor  bool   `envconfig:"NO_COLOR" default:"false"`
}

type StorageEnv struct {
	Type        string        `envconfig:"STORAGE_TYPE" default:"local"`
	BaseDir     string        `envconfig:"STORAGE_BASE_DIR" default:"."`
	File        string        `envconfig:"FILE" default:"tasks.json"`
	Lock        bool          `envconfig:"LOCK" default:"true"`
	LockTimeout time.Duration `envconfig:"LOCK_TIMEOUT" default:"5s"`
	// S3 settings (used when Type == "s3")
	S3Bucket string `envconfig:"S3_BUCKET"`
	S3Prefix string `envconfig:"S3_PREFIX" default:"tasktracker/"`
	S3Region string `envconfig:"S3_REGION" default:"ap-northeast-1"`
}

type Env struct {
	BaseEnv
	StorageEnv
}

const namespace = "TASKTRACKER"

const (
	StorageTypeLocal = "local"
	StorageTypeS3    = "s3"
)

func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	if err := env.validate(); err != nil {
		return nil, err
	}
	return &env, nil
}

func (e *Env) validate() error {
	switch e.StorageEnv.Type {
	case StorageTypeLocal:
	case StorageTypeS3:
		if e.S3Bucket == "" {
			return fmt.Errorf("%s_S3_BUCKET is required when %s_STORAGE_TYPE=s3", namespace, namespace)
		}
	default:
		return fmt.Errorf("unknown storage type %q", e.StorageEnv.Type)
	}
	if e.File == "" {
		return fmt.Errorf("%s_FILE must not be empty", namespace)
	}
	return nil
}

func (e *BaseEnv) SlogLevel() slog.Level {
	if e == nil {
		return slog.LevelWarn
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(e.LogLevel)); err != nil {
		return slog.LevelWarn
	}
	return level
}
