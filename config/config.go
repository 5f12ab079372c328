package config

import (
	"fmt"
	"net"
	"os"
	"sagebot/aprs"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // zone names resolve without system zoneinfo

	"github.com/BurntSushi/toml"
)

// DefaultPort is the APRS-IS user-defined filter port.
const DefaultPort = 14580

// Config holds all application configuration
type Config struct {
	Station   StationConfig  `toml:"station"`
	Server    ServerConfig   `toml:"server"`
	Client    ClientConfig   `toml:"client"`
	Schedule  ScheduleConfig `toml:"schedule"`
	Aphorisms AphorismConfig `toml:"aphorisms"`
	Monitor   MonitorConfig  `toml:"monitor"`
	Metrics   MetricsConfig  `toml:"metrics"`
	Log       LogConfig      `toml:"log"`
	UI        UIConfig       `toml:"ui"`
}

// StationConfig holds settings specific to the user's station
type StationConfig struct {
	Callsign   string  `toml:"callsign"` // call-SSID
	Passcode   string  `toml:"passcode"`
	GridSquare string  `toml:"gridsquare"`
	Lat        float64 `toml:"lat"`
	Lon        float64 `toml:"lon"`
	Comment    string  `toml:"comment"`
	Beacon     bool    `toml:"beacon"` // send a position report after each login
}

// ServerConfig selects the tier-2 server. For the list of servers see
// http://www.aprs2.net/ (noam, soam, euro, asia, africa, apan).
type ServerConfig struct {
	Host            string        `toml:"host"`
	Port            int           `toml:"port"`
	Filter          string        `toml:"filter"` // empty means b/<callsign>*
	DialTimeout     time.Duration `toml:"dial_timeout"`
	GreetingTimeout time.Duration `toml:"greeting_timeout"`
	LogonTimeout    time.Duration `toml:"logon_timeout"`
	IdleTimeout     time.Duration `toml:"idle_timeout"`
}

// ClientConfig is what we report in the vers field of the login line.
type ClientConfig struct {
	Software string `toml:"software"`
	Version  string `toml:"version"`
}

// ScheduleConfig holds the bulletin times in the station's time zone.
type ScheduleConfig struct {
	Timezone     string        `toml:"timezone"` // IANA name, e.g. America/New_York
	Morning      string        `toml:"morning"`  // HH:MM
	Evening      string        `toml:"evening"`
	PollInterval time.Duration `toml:"poll_interval"`
}

// AphorismConfig points at the bulletin text corpus, one line per bulletin.
type AphorismConfig struct {
	File string `toml:"file"`
}

// MonitorConfig mirrors APRS-IS traffic to a serial port when Device is set.
type MonitorConfig struct {
	Device string `toml:"device"`
	Baud   int    `toml:"baud"`
}

// MetricsConfig serves Prometheus metrics on Listen (host:port) when set.
type MetricsConfig struct {
	Listen string `toml:"listen"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	File   string `toml:"file"`
}

type UIConfig struct {
	Enabled bool `toml:"enabled"`
}

// Default returns a configuration with everything but the station filled in.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:            "noam.aprs2.net",
			Port:            DefaultPort,
			DialTimeout:     10 * time.Second,
			GreetingTimeout: time.Second,
			LogonTimeout:    2 * time.Second,
			IdleTimeout:     2 * time.Minute,
		},
		Client: ClientConfig{
			Software: "SAGEBOT",
			Version:  "2500610",
		},
		Schedule: ScheduleConfig{
			Timezone:     "America/New_York",
			Morning:      "08:00",
			Evening:      "20:00",
			PollInterval: 250 * time.Millisecond,
		},
		Aphorisms: AphorismConfig{File: "aphorisms.txt"},
		Monitor:   MonitorConfig{Baud: 115200},
		Log:       LogConfig{Level: "info", Format: "console"},
		UI:        UIConfig{Enabled: true},
	}
}

// LoadConfig reads the configuration from path over the defaults
func LoadConfig(path string) (Config, error) {
	conf := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return conf, err
	}

	if err := toml.Unmarshal(data, &conf); err != nil {
		return conf, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	conf.Station.Callsign = strings.ToUpper(strings.TrimSpace(conf.Station.Callsign))
	if err := conf.Validate(); err != nil {
		return conf, fmt.Errorf("invalid %s: %w", path, err)
	}
	return conf, nil
}

// Validate checks the fields the client cannot run without.
func (c Config) Validate() error {
	if c.Station.Callsign == "" {
		return fmt.Errorf("station.callsign is required")
	}
	if len(c.Station.Callsign) > 9 {
		return fmt.Errorf("station.callsign %q longer than 9 characters", c.Station.Callsign)
	}
	if _, err := strconv.Atoi(c.Station.Passcode); err != nil {
		return fmt.Errorf("station.passcode %q is not numeric", c.Station.Passcode)
	}
	if c.Server.Host == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Schedule.PollInterval <= 0 || c.Schedule.PollInterval > time.Minute {
		return fmt.Errorf("schedule.poll_interval %s must be positive and at most 1m", c.Schedule.PollInterval)
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("schedule.timezone: %w", err)
	}
	return nil
}

// Filter returns the server-side filter, defaulting to our own traffic.
func (c Config) Filter() string {
	if c.Server.Filter != "" {
		return c.Server.Filter
	}
	return "b/" + c.Station.Callsign + "*"
}

// Addr is host:port of the APRS-IS server.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// StationPosition returns the configured station position: lat/lon when
// set, otherwise the center of the gridsquare. ok is false when neither is
// configured.
func (c Config) StationPosition() (lat, lon float64, ok bool, err error) {
	if c.Station.Lat != 0 || c.Station.Lon != 0 {
		return c.Station.Lat, c.Station.Lon, true, nil
	}
	if c.Station.GridSquare == "" {
		return 0, 0, false, nil
	}
	lat, lon, err = aprs.GridSquareToLatLon(c.Station.GridSquare)
	if err != nil {
		return 0, 0, false, fmt.Errorf("station.gridsquare: %w", err)
	}
	return lat, lon, true, nil
}
