// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Security  SecurityConfig  `mapstructure:"security"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Printer   PrinterConfig   `mapstructure:"printer"`
	Image     ImageConfig     `mapstructure:"image"`
	Bluetooth BluetoothConfig `mapstructure:"bluetooth"`
	USB       USBConfig       `mapstructure:"usb"`
	Serial    SerialConfig    `mapstructure:"serial"`
	Network   NetworkConfig   `mapstructure:"network"`
	App       AppConfig       `mapstructure:"app"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// SecurityConfig represents security configuration
type SecurityConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// PrinterConfig holds job defaults applied when a request omits them
type PrinterConfig struct {
	WidthClass   int           `mapstructure:"width_class"`
	Encoding     string        `mapstructure:"encoding"`
	LineSpacing  int           `mapstructure:"line_spacing"`
	FeedLines    int           `mapstructure:"feed_lines"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// ImageConfig bounds remote image fetches and decoded image sizes
type ImageConfig struct {
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	MaxBytes     int64         `mapstructure:"max_bytes"`
	MaxPixels    int           `mapstructure:"max_pixels"`
}

// BluetoothConfig represents wireless transport configuration
type BluetoothConfig struct {
	Mode                 string        `mapstructure:"mode"` // rfcomm or ble
	ScanTimeout          time.Duration `mapstructure:"scan_timeout"`
	ConnectTimeout       time.Duration `mapstructure:"connect_timeout"`
	RFCOMMChannel        int           `mapstructure:"rfcomm_channel"`
	FrameSize            int           `mapstructure:"frame_size"`
	WriteCharacteristics []string      `mapstructure:"write_characteristics"`
}

// USBConfig represents wired USB transport configuration
type USBConfig struct {
	Timeout          time.Duration `mapstructure:"timeout"`
	BulkTransferSize int           `mapstructure:"bulk_transfer_size"`
	AutoGrant        bool          `mapstructure:"auto_grant"`
	GrantTimeout     time.Duration `mapstructure:"grant_timeout"`
	Vendors          []string      `mapstructure:"vendors"`
}

// SerialConfig represents tty transport configuration
type SerialConfig struct {
	BaudRate  int    `mapstructure:"baud_rate"`
	DataBits  int    `mapstructure:"data_bits"`
	StopBits  int    `mapstructure:"stop_bits"`
	Parity    string `mapstructure:"parity"`
	FrameSize int    `mapstructure:"frame_size"`
}

// NetworkConfig represents raw TCP printer configuration
type NetworkConfig struct {
	Port        int           `mapstructure:"port"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	KeepAlive   time.Duration `mapstructure:"keep_alive"`
	TLS         bool          `mapstructure:"tls"`
	FrameSize   int           `mapstructure:"frame_size"`
}

// AppConfig represents application metadata
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// Load loads configuration from file and environment variables.
// A missing config file is not an error; defaults and env apply.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Environment variable support
	v.SetEnvPrefix("PRINTER_BRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", "8085")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.idle_timeout", "120s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
	v.SetDefault("logging.compress", true)

	// Printer defaults
	v.SetDefault("printer.width_class", 58)
	v.SetDefault("printer.encoding", "UTF-8")
	v.SetDefault("printer.line_spacing", 30)
	v.SetDefault("printer.feed_lines", 0)
	v.SetDefault("printer.write_timeout", "30s")

	// Image defaults
	v.SetDefault("image.fetch_timeout", "10s")
	v.SetDefault("image.max_bytes", 8<<20)
	v.SetDefault("image.max_pixels", 24<<20)

	// Bluetooth defaults
	v.SetDefault("bluetooth.mode", "rfcomm")
	v.SetDefault("bluetooth.scan_timeout", "12s")
	v.SetDefault("bluetooth.connect_timeout", "20s")
	v.SetDefault("bluetooth.rfcomm_channel", 1)
	v.SetDefault("bluetooth.frame_size", 512)
	v.SetDefault("bluetooth.write_characteristics", []string{
		"00002af1-0000-1000-8000-00805f9b34fb",
		"0000ffe1-0000-1000-8000-00805f9b34fb",
		"0000ff02-0000-1000-8000-00805f9b34fb",
	})

	// USB defaults
	v.SetDefault("usb.timeout", "5s")
	v.SetDefault("usb.bulk_transfer_size", 0)
	v.SetDefault("usb.auto_grant", false)
	v.SetDefault("usb.grant_timeout", "2m")
	v.SetDefault("usb.vendors", []string{})

	// Serial defaults
	v.SetDefault("serial.baud_rate", 9600)
	v.SetDefault("serial.data_bits", 8)
	v.SetDefault("serial.stop_bits", 1)
	v.SetDefault("serial.parity", "none")
	v.SetDefault("serial.frame_size", 256)

	// Network defaults
	v.SetDefault("network.port", 9100)
	v.SetDefault("network.dial_timeout", "5s")
	v.SetDefault("network.keep_alive", "30s")
	v.SetDefault("network.tls", false)
	v.SetDefault("network.frame_size", 4096)

	// App defaults
	v.SetDefault("app.name", "printer-bridge")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}

	if !contains([]string{"development", "staging", "production", "test"}, config.App.Environment) {
		return fmt.Errorf("app.environment must be one of: development, staging, production, test")
	}

	validLevels := []string{"debug", "info", "warn", "error", "fatal"}
	if !contains(validLevels, config.Logging.Level) {
		return fmt.Errorf("logging.level must be one of: %v", validLevels)
	}

	if config.Printer.LineSpacing < 0 || config.Printer.LineSpacing > 255 {
		return fmt.Errorf("printer.line_spacing must be in 0..255")
	}
	if config.Printer.FeedLines < 0 || config.Printer.FeedLines > 255 {
		return fmt.Errorf("printer.feed_lines must be in 0..255")
	}

	switch config.Bluetooth.Mode {
	case "rfcomm", "ble":
	default:
		return fmt.Errorf("bluetooth.mode must be rfcomm or ble")
	}
	if config.Bluetooth.RFCOMMChannel < 1 || config.Bluetooth.RFCOMMChannel > 30 {
		return fmt.Errorf("bluetooth.rfcomm_channel must be in 1..30")
	}
	if config.Bluetooth.FrameSize <= 0 {
		return fmt.Errorf("bluetooth.frame_size must be positive")
	}
	if config.Serial.FrameSize <= 0 {
		return fmt.Errorf("serial.frame_size must be positive")
	}
	if config.Network.Port < 1 || config.Network.Port > 65535 {
		return fmt.Errorf("network.port must be in 1..65535")
	}
	if config.Network.FrameSize <= 0 {
		return fmt.Errorf("network.frame_size must be positive")
	}
	if config.Image.MaxPixels <= 0 {
		return fmt.Errorf("image.max_pixels must be positive")
	}

	if !contains([]string{"none", "odd", "even", "mark", "space"}, config.Serial.Parity) {
		return fmt.Errorf("serial.parity must be one of: none, odd, even, mark, space")
	}

	return nil
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

// GetServerAddr returns the server address
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// IsProduction checks if the environment is production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDebugEnabled checks if debug mode is enabled
func (c *Config) IsDebugEnabled() bool {
	return c.App.Debug || c.App.Environment == "development"
}
