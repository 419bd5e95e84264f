// Package config loads application settings via viper. A missing config file
// is fine; every key has a sensible default for a single light on the local
// adapter.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// Device settings.
	DeviceAddress string        `mapstructure:"deviceAddress"`
	NameFilter    string        `mapstructure:"nameFilter"`
	Password      string        `mapstructure:"password"`
	ScanTimeout   time.Duration `mapstructure:"scanTimeout"`

	// Session timings.
	CommandDelay time.Duration `mapstructure:"commandDelay"`
	QueryTimeout time.Duration `mapstructure:"queryTimeout"`
	SettleDelay  time.Duration `mapstructure:"settleDelay"`
	PollInterval time.Duration `mapstructure:"pollInterval"`

	// GeoLocation is "lat,lon" and drives the sun synced schedule.
	GeoLocation string `mapstructure:"geoLocation"`

	// Web server.
	ListenAddress string `mapstructure:"listenAddress"`

	// SceneDB is the sqlite file holding custom scenes.
	SceneDB string `mapstructure:"sceneDb"`

	// Logging.
	LogLevel string `mapstructure:"logLevel"`
	LogFile  string `mapstructure:"logFile"`
}

var AppConfig Config

// LatLon parses the "lat,lon" geo location. ok is false when no location is
// configured.
func (c *Config) LatLon() (lat, lon float64, ok bool, err error) {
	if c.GeoLocation == "" {
		return 0, 0, false, nil
	}
	parts := strings.Split(c.GeoLocation, ",")
	if len(parts) != 2 {
		return 0, 0, false, fmt.Errorf("geoLocation must be \"lat,lon\", got %q", c.GeoLocation)
	}
	lat, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, false, fmt.Errorf("parsing geoLocation latitude: %w", err)
	}
	lon, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, false, fmt.Errorf("parsing geoLocation longitude: %w", err)
	}
	return lat, lon, true, nil
}

func setDefaults() {
	viper.SetDefault("nameFilter", "Gamalta")
	viper.SetDefault("password", "123456")
	viper.SetDefault("scanTimeout", 5*time.Second)
	viper.SetDefault("commandDelay", 100*time.Millisecond)
	viper.SetDefault("queryTimeout", 2*time.Second)
	viper.SetDefault("settleDelay", 150*time.Millisecond)
	viper.SetDefault("pollInterval", 5*time.Second)
	viper.SetDefault("listenAddress", ":8777")
	viper.SetDefault("sceneDb", "gamalta.db")
	viper.SetDefault("logLevel", "info")
}

// ReadConfig locates and reads the config file, falling back to defaults when
// none exists.
func ReadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("json")
	viper.AddConfigPath("/etc/gamalta/")
	viper.AddConfigPath("$HOME/.config/gamalta/")
	viper.AddConfigPath(".")
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	config := Config{}
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	AppConfig = config
	return &config, nil
}
