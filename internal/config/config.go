// Package config loads process configuration from environment variables,
// with an optional YAML overlay for values better expressed as a file
// (static device seeds, the UPnP callback URL, the rescan schedule) than a
// shell export.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the process-level configuration for the control plane.
type Config struct {
	Host string
	Port string

	SSDPTimeoutMs       int
	SSDPMXSeconds       int
	SSDPRescanCron      string
	SSDPAutoDiscoverSec int

	YXCTimeoutMs        int
	YXCPollIntervalSec  int
	YXCRenewalBufferSec int
	YXCEventPort        int
	YXCAppName          string

	UpnpTimeoutMs            int
	UpnpDefaultSubTimeoutSec int
	UpnpCallbackURL          string
	GenaRenewalBufferSec     int

	RegistrySubscriberQueueSize int

	StaticDeviceIPs []string
}

// fileOverlay is the optional YAML config file shape. Any field set here
// is applied before falling back to defaults, and is itself overridden by
// an explicit environment variable of the corresponding name.
type fileOverlay struct {
	StaticDeviceIPs []string `yaml:"static_device_ips"`
	UpnpCallbackURL string   `yaml:"upnp_callback_url"`
	SSDPRescanCron  string   `yaml:"ssdp_rescan_cron"`
}

// Load reads configuration from environment variables, optionally
// overlaying a YAML file named by MUSICCAST_CONFIG_FILE.
func Load() (Config, error) {
	overlay := loadFileOverlay(envString("MUSICCAST_CONFIG_FILE", ""))

	staticIPs := envCSV("MUSICCAST_STATIC_DEVICE_IPS")
	if len(staticIPs) == 0 {
		staticIPs = overlay.StaticDeviceIPs
	}

	callbackURL := envString("MUSICCAST_UPNP_CALLBACK_URL", overlay.UpnpCallbackURL)
	rescanCron := envString("MUSICCAST_SSDP_RESCAN_CRON", overlay.SSDPRescanCron)
	if rescanCron == "" {
		rescanCron = "*/5 * * * *"
	}

	cfg := Config{
		Host: envString("MUSICCAST_HOST", "0.0.0.0"),
		Port: envString("MUSICCAST_PORT", "9100"),

		SSDPTimeoutMs:       envInt("MUSICCAST_SSDP_TIMEOUT_MS", 3000),
		SSDPMXSeconds:       envInt("MUSICCAST_SSDP_MX_SECONDS", 2),
		SSDPRescanCron:      rescanCron,
		SSDPAutoDiscoverSec: envInt("MUSICCAST_SSDP_AUTO_DISCOVER_SEC", 2),

		YXCTimeoutMs:        envInt("MUSICCAST_YXC_TIMEOUT_MS", 5000),
		YXCPollIntervalSec:  envInt("MUSICCAST_YXC_POLL_INTERVAL_SEC", 180),
		YXCRenewalBufferSec: envInt("MUSICCAST_YXC_RENEWAL_BUFFER_SEC", 3),
		YXCEventPort:        envInt("MUSICCAST_YXC_EVENT_PORT", 41100),
		YXCAppName:          envString("MUSICCAST_YXC_APP_NAME", "MusicCast/1.50"),

		UpnpTimeoutMs:            envInt("MUSICCAST_UPNP_TIMEOUT_MS", 5000),
		UpnpDefaultSubTimeoutSec: envInt("MUSICCAST_UPNP_SUBSCRIPTION_TIMEOUT_SEC", 300),
		UpnpCallbackURL:          callbackURL,
		GenaRenewalBufferSec:     envInt("MUSICCAST_GENA_RENEWAL_BUFFER_SEC", 3),

		RegistrySubscriberQueueSize: envInt("MUSICCAST_SUBSCRIBER_QUEUE_SIZE", 32),

		StaticDeviceIPs: staticIPs,
	}

	if cfg.YXCEventPort <= 0 || cfg.YXCEventPort > 65535 {
		return Config{}, fmt.Errorf("invalid MUSICCAST_YXC_EVENT_PORT: %d", cfg.YXCEventPort)
	}

	return cfg, nil
}

func loadFileOverlay(path string) fileOverlay {
	if path == "" {
		return fileOverlay{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fileOverlay{}
	}
	var overlay fileOverlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fileOverlay{}
	}
	return overlay
}

func envString(key, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func envInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func envCSV(key string) []string {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	parts := strings.Split(val, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		result = append(result, trimmed)
	}
	return result
}
