// conf/config.go application settings loaded from config file, env and flags
package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Settings holds the full application configuration.
type Settings struct {
	Debug bool // true to enable debug mode

	Main struct {
		Name string // node name, used to identify the source of entries
	}

	WebServer struct {
		Enabled bool   // true to enable the HTTP API
		Port    string // port to listen on
		Debug   bool   // true to enable API debug logging
		LogPath string // path to API request log file
	}

	Output struct {
		SQLite struct {
			Enabled bool   // true to enable sqlite output
			Path    string // path to sqlite database
		}

		MySQL struct {
			Enabled  bool   // true to enable mysql output
			Username string // username for mysql database
			Password string // password for mysql database
			Database string // database name for mysql database
			Host     string // host for mysql database
			Port     string // port for mysql database
		}
	}

	Detector struct {
		ModelPath           string        // path to the detection model weights
		ConfigPath          string        // path to the model network config
		ClassesPath         string        // path to the class labels file
		ConfidenceThreshold float64       // minimum confidence to report a detection
		Timeout             time.Duration // inline inference budget per request
		FallbackConfidence  float64       // confidence recorded for fallback classifications
	}

	ImageStore struct {
		Provider       string // "s3" or "memory"
		PlaceholderURL string // substituted when an upload fails

		S3 struct {
			Bucket        string // bucket name
			Region        string // aws region
			Endpoint      string // custom endpoint, e.g. minio (optional)
			AccessKey     string // access key id
			SecretKey     string // secret access key
			PublicBaseURL string // base url for public object links (optional)
		}
	}

	Auth struct {
		Enabled  bool          // true to require bearer tokens on write endpoints
		URL      string        // auth provider base url
		APIKey   string        // auth provider api key
		CacheTTL time.Duration // token cache lifetime
	}

	JobQueue struct {
		Size    int // buffered queue capacity
		Workers int // number of consumer goroutines
	}
}

var (
	settings     *Settings
	settingsOnce sync.Once
)

// Setting returns the global settings instance, loading it on first use.
func Setting() *Settings {
	settingsOnce.Do(func() {
		var err error
		settings, err = Load()
		if err != nil {
			panic(fmt.Sprintf("error loading settings: %v", err))
		}
	})
	return settings
}

// Load reads the configuration file and environment variables into Settings.
func Load() (*Settings, error) {
	var s Settings

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := validateSettings(&s); err != nil {
		return nil, err
	}

	return &s, nil
}

func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := getDefaultConfigPaths()
	if err != nil {
		return err
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	viper.SetEnvPrefix("dalan")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaultSettings()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// config file not found, defaults and env apply
			return nil
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// getDefaultConfigPaths returns a list of default config paths for the current OS
func getDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("error fetching user directory: %w", err)
	}

	var configPaths []string
	switch runtime.GOOS {
	case "windows":
		configPaths = []string{
			".",
			filepath.Join(homeDir, "AppData", "Local", "dalan-go"),
		}
	default:
		configPaths = []string{
			".",
			filepath.Join(homeDir, ".config", "dalan-go"),
			"/etc/dalan-go",
		}
	}

	return configPaths, nil
}
