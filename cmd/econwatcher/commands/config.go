package commands

import (
	"fmt"
	"os"
	"time"

	"econwatcher/internal/configutil"
	"econwatcher/internal/scrapers/cao"
	"econwatcher/internal/telemetry"

	"dario.cat/mergo"
)

type Config struct {
	IndexUrl            string               `json:"index_url"`
	DistributeDirectory string               `json:"distribute_directory"`
	TimeoutSeconds      int                  `json:"timeout_seconds"`
	RequestsPerSecond   float64              `json:"requests_per_second"`
	Concurrency         int                  `json:"concurrency"`
	Db                  string               `json:"db"`
	SyncCron            string               `json:"sync_cron"`
	Otlp                telemetry.OtlpConfig `json:"otlp"`
}

func defaultConfig() Config {
	return Config{
		IndexUrl:            cao.DefaultIndexUrl,
		DistributeDirectory: cao.DefaultDistributeDirectory,
		TimeoutSeconds:      30,
		RequestsPerSecond:   2,
		Concurrency:         1,
		Db:                  "econwatcher.db",
		SyncCron:            "0 9 * * *",
	}
}

// loadConfig reads `name` (walking up from the working directory when it is
// not an explicit path) and fills whatever it leaves unset with defaults.
func loadConfig(name string, explicit bool) (Config, error) {
	var (
		cfg Config
		err error
	)
	if explicit {
		cfg, err = configutil.ReadConfig[Config](name)
	} else {
		cfg, err = configutil.ReadRecursively[Config](name)
	}
	if err != nil && !(os.IsNotExist(err) && !explicit) {
		return Config{}, fmt.Errorf("read config %s: %w", name, err)
	}

	err = mergo.Merge(&cfg, defaultConfig())
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) caoOptions() cao.Options {
	return cao.Options{
		IndexUrl:            c.IndexUrl,
		DistributeDirectory: c.DistributeDirectory,
		Timeout:             time.Duration(c.TimeoutSeconds) * time.Second,
		RequestsPerSecond:   c.RequestsPerSecond,
	}
}
