package providers

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"fastd/internal/structures"
)

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	filename := filepath.Base(flags.ConfigPath)
	viper.AddConfigPath(filepath.Dir(flags.ConfigPath))
	viper.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	viper.SetConfigType("yaml")

	viper.BindEnv("logger.level", "FASTD_LOG_LEVEL")
	viper.BindEnv("fasting.defaultGoalHours", "FASTD_DEFAULT_GOAL_HOURS")
	viper.BindEnv("fasting.timezone", "FASTD_TIMEZONE")
	viper.BindEnv("persistence.saveInterval", "FASTD_SAVE_INTERVAL")
	viper.BindEnv("healthSync.enabled", "FASTD_HEALTH_SYNC_ENABLED")
	viper.BindEnv("healthSync.url", "FASTD_HEALTH_SYNC_URL")
	viper.BindEnv("cache.enabled", "FASTD_CACHE_ENABLED")
	viper.BindEnv("cache.size", "FASTD_CACHE_SIZE")

	err := viper.ReadInConfig()
	if err != nil {
		return nil, err
	}

	err = viper.Unmarshal(&conf)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	cnfValidator := NewCnfValidator(&conf)
	err = cnfValidator.Validate()
	if err != nil {
		return nil, err
	}

	conf.AppName = "FastingCompanionDaemon"
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode

	return &conf, nil
}
