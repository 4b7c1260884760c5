// Package config loads TubeMarker settings from flags, environment,
// an optional .env file and an optional config file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Settings keys
const (
	APIURL         = "api.url"
	ServerHost     = "server.host"
	ServerPort     = "server.port"
	ServerDataFile = "server.data_file"
	PrefsDB        = "prefs.db"
	MpvPath        = "player.mpv_path"
	SocketDir      = "player.socket_dir"
	LogFile        = "log.file"
	LogLevel       = "log.level"
)

// Default values
const (
	DefaultAPIURL     = "http://localhost:3000/api"
	DefaultServerHost = "0.0.0.0"
	DefaultServerPort = 3000
	DefaultMpvPath    = "mpv"
	DefaultLogLevel   = "info"

	envPrefix = "TUBEMARKER"
)

// Config wraps a viper instance with typed getters.
type Config struct {
	v *viper.Viper
}

// DefaultDir returns ~/.tubemarker, the home of the preference database and logs.
func DefaultDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".tubemarker")
}

// New builds a Config with defaults and environment bindings but no flags.
func New() *Config {
	v := viper.New()

	dir := DefaultDir()
	v.SetDefault(APIURL, DefaultAPIURL)
	v.SetDefault(ServerHost, DefaultServerHost)
	v.SetDefault(ServerPort, DefaultServerPort)
	v.SetDefault(ServerDataFile, filepath.Join("data", "videos.json"))
	v.SetDefault(PrefsDB, filepath.Join(dir, "prefs.sqlite"))
	v.SetDefault(MpvPath, DefaultMpvPath)
	v.SetDefault(SocketDir, os.TempDir())
	v.SetDefault(LogFile, "")
	v.SetDefault(LogLevel, DefaultLogLevel)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Config{v: v}
}

// Load parses flags, reads .env and an optional config file, and returns the
// merged configuration. Flags win over environment, environment over file.
func Load(fs *pflag.FlagSet, args []string) (*Config, error) {
	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	c := New()

	configFile := fs.StringP("config", "c", "", "config file to use")
	fs.String("api", DefaultAPIURL, "base URL of the video store API")
	fs.String("host", DefaultServerHost, "ip address for the store server")
	fs.Int("port", DefaultServerPort, "port for the store server")
	fs.String("data", "", "path of the videos.json file served by the store")
	fs.String("prefs", "", "path of the preference database")
	fs.String("mpv", DefaultMpvPath, "mpv executable")
	fs.String("log-file", "", "write logs to this file")
	fs.String("log-level", DefaultLogLevel, "log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	binds := map[string]string{
		APIURL:         "api",
		ServerHost:     "host",
		ServerPort:     "port",
		ServerDataFile: "data",
		PrefsDB:        "prefs",
		MpvPath:        "mpv",
		LogFile:        "log-file",
		LogLevel:       "log-level",
	}
	for key, flag := range binds {
		f := fs.Lookup(flag)
		// only explicitly set flags override env and file values
		if f == nil || !f.Changed {
			continue
		}
		if err := c.v.BindPFlag(key, f); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}

	if *configFile != "" {
		c.v.SetConfigFile(*configFile)
		if err := c.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", *configFile, err)
		}
	}

	return c, nil
}

// Set overrides a value; used by tests and by callers that derive settings.
func (c *Config) Set(key string, value any) {
	c.v.Set(key, value)
}

func (c *Config) GetAPIURL() string {
	return strings.TrimRight(c.v.GetString(APIURL), "/")
}

// GetServerAddress returns host:port for the store server.
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.v.GetString(ServerHost), c.v.GetInt(ServerPort))
}

func (c *Config) GetDataFile() string {
	return c.v.GetString(ServerDataFile)
}

func (c *Config) GetPrefsDB() string {
	return c.v.GetString(PrefsDB)
}

func (c *Config) GetMpvPath() string {
	return c.v.GetString(MpvPath)
}

func (c *Config) GetSocketDir() string {
	return c.v.GetString(SocketDir)
}

func (c *Config) GetLogFile() string {
	return c.v.GetString(LogFile)
}

func (c *Config) GetLogLevel() string {
	return c.v.GetString(LogLevel)
}
