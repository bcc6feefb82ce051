package structures

import (
	"net/http"
	"time"
)

type Server struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"required|uint|min:1"`
}

type Persistence struct {
	FilePath     string        `yaml:"filePath" validate:"required|unixPath"`
	SaveInterval time.Duration `yaml:"saveInterval" validate:"required|min:1"`
}

type LoggerConfig struct {
	Level string `yaml:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Mode  uint32 `yaml:"mode" validate:"required|uint"`
	Dir   string `yaml:"dir" validate:"required|unixPath"`
}

type FastingConfig struct {
	DefaultGoalHours float64       `yaml:"defaultGoalHours" validate:"required|min:1"`
	TickInterval     time.Duration `yaml:"tickInterval"`
	Timezone         string        `yaml:"timezone"`
}

type HealthSyncConfig struct {
	Enabled      bool          `yaml:"enabled"`
	URL          string        `yaml:"url"`
	PollInterval time.Duration `yaml:"pollInterval"`
	Timeout      time.Duration `yaml:"timeout"`
}

type NotificationsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
	Size    int  `yaml:"size"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type Config struct {
	AppName       string
	Debug         bool
	Path          string
	Fasting       FastingConfig       `yaml:"fasting"`
	WebServer     Server              `yaml:"webServer"`
	Persistence   Persistence         `yaml:"persistence"`
	HealthSync    HealthSyncConfig    `yaml:"healthSync"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Logger        LoggerConfig        `yaml:"logger"`
	Cache         CacheConfig         `yaml:"cache"`
	Metrics       MetricsConfig       `yaml:"metrics"`
}

// Location resolves the configured timezone, falling back to the
// system local zone. Streak day math depends on it.
func (c *Config) Location() *time.Location {
	if c.Fasting.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Fasting.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

type CliFlags struct {
	ConfigPath string
	DebugMode  bool
}

type Route struct {
	Method  string
	Url     string
	Handler http.Handler
}

// Pattern is the method-qualified ServeMux pattern for this route.
func (r *Route) Pattern() string {
	return r.Method + " " + r.Url
}
