package config

import (
	"time"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

// SchedulerConfig carries the policy constants of the suggestion flow. The
// lock TTL and scoring weights are tunable; the correctness invariants of the
// scheduler do not depend on their values.
type SchedulerConfig struct {
	LockTTLMinutes int            `mapstructure:"lockTTLMinutes"`
	SweepMinutes   int            `mapstructure:"sweepMinutes"`
	Weights        ScoringWeights `mapstructure:"weights"`
}

type ScoringWeights struct {
	Load           float64 `mapstructure:"load"`
	Efficiency     float64 `mapstructure:"efficiency"`
	CompletionTime float64 `mapstructure:"completionTime"`
	Idle           float64 `mapstructure:"idle"`
}

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

func (c *SchedulerConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLMinutes) * time.Minute
}

func (c *SchedulerConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepMinutes) * time.Minute
}

// LoadConfig reads config.yaml and overlays environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()

	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("scheduler.lockTTLMinutes", "SCHEDULER_LOCK_TTL_MINUTES")
	viper.BindEnv("scheduler.sweepMinutes", "SCHEDULER_SWEEP_MINUTES")

	viper.SetDefault("server.port", "8080")
	viper.SetDefault("scheduler.lockTTLMinutes", 3)
	viper.SetDefault("scheduler.sweepMinutes", 10)
	viper.SetDefault("scheduler.weights.load", 0.35)
	viper.SetDefault("scheduler.weights.efficiency", 0.30)
	viper.SetDefault("scheduler.weights.completionTime", 0.20)
	viper.SetDefault("scheduler.weights.idle", 0.15)

	err = viper.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return
		}
		err = nil
	}

	err = viper.Unmarshal(&config)
	return
}
