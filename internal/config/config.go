package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/teambition/rrule-go"
	"gopkg.in/yaml.v3"

	"github.com/skyqueue/obs-scheduler/pkg/core/model"
	"github.com/skyqueue/obs-scheduler/pkg/core/priority"
)

// MaxTimeslots bounds the number of timeslots a schedule recurrence may expand to
const MaxTimeslots = 10000

const configFileBase = "obs_scheduler_config"

// Schedule defines the timeslots of a scheduling run
type Schedule struct {
	// Start is the RFC3339 start time of the first timeslot
	Start string `yaml:"start" validate:"required"`

	// RRule is the recurrence of timeslot starts, e.g. "FREQ=MINUTELY;INTERVAL=10;COUNT=3"
	RRule string `yaml:"rrule" validate:"required"`

	// TimeslotLength is the length of a timeslot in seconds
	TimeslotLength float64 `yaml:"timeslotLength" validate:"gt=0"`
}

// BandSpread tunes the band curve derivation
type BandSpread struct {
	InitialIntercept float64            `yaml:"initialIntercept" validate:"gte=0"`
	BandOffset       float64            `yaml:"bandOffset" validate:"gt=0"`
	JoinFraction     float64            `yaml:"joinFraction" validate:"gt=0,lt=1"`
	Order            []string           `yaml:"order" validate:"required,min=1,unique,dive,oneof=1 2 3"`
	Slopes           map[string]float64 `yaml:"slopes" validate:"required,dive,keys,oneof=1 2 3,endkeys,gt=0"`
}

// Config represents the application configuration
type Config struct {
	// DatabaseURL is a PostgreSQL connection string; an in-memory store is used when empty
	DatabaseURL string `yaml:"databaseURL,omitempty"`

	// ObservationsFile seeds the in-memory store
	ObservationsFile string `yaml:"observationsFile,omitempty"`

	// MetricsFile receives Prometheus metrics in text format after each command
	MetricsFile string `yaml:"metricsFile,omitempty"`

	Schedule   Schedule    `yaml:"schedule"`
	BandSpread *BandSpread `yaml:"bandSpread,omitempty" validate:"omitempty"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Load loads and validates the configuration from obs_scheduler_config.yaml
// It looks for the config file in the current directory first, then in the user's home directory
func Load() (*Config, error) {
	configPath, err := findConfigFile(configFileBase + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadWithEnv loads the configuration for an environment
// For example, env="test" will look for "obs_scheduler_config.test.yaml"
func LoadWithEnv(env string) (*Config, error) {
	if env == "" {
		return Load()
	}

	configPath, err := findConfigFile(fmt.Sprintf("%s.%s.yaml", configFileBase, env))
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate validates the configuration struct, the schedule recurrence and the band spread
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if _, err := time.Parse(time.RFC3339, cfg.Schedule.Start); err != nil {
		return fmt.Errorf("invalid schedule start: %w", err)
	}

	if _, err := rrule.StrToROption(cfg.Schedule.RRule); err != nil {
		return fmt.Errorf("invalid rrule in schedule: %w", err)
	}

	if cfg.BandSpread != nil {
		for _, band := range cfg.BandSpread.Order {
			if _, ok := cfg.BandSpread.Slopes[band]; !ok {
				return fmt.Errorf("invalid bandSpread: no slope for band %s", band)
			}
		}
	}

	return nil
}

// SpreadConfig converts the band spread section into the curve derivation input.
// Without a bandSpread section the defaults are returned.
func (c *Config) SpreadConfig() (priority.SpreadConfig, error) {
	spread := priority.DefaultSpreadConfig()
	if c.BandSpread == nil {
		return spread, nil
	}

	spread.InitialIntercept = c.BandSpread.InitialIntercept
	spread.BandOffset = c.BandSpread.BandOffset
	spread.JoinFraction = c.BandSpread.JoinFraction
	spread.Order = nil
	spread.Slopes = make(map[model.Band]float64, len(c.BandSpread.Slopes))

	for _, label := range c.BandSpread.Order {
		band, err := model.ParseBand(label)
		if err != nil {
			return priority.SpreadConfig{}, fmt.Errorf("invalid bandSpread order: %w", err)
		}
		spread.Order = append(spread.Order, band)
	}
	for label, slope := range c.BandSpread.Slopes {
		band, err := model.ParseBand(label)
		if err != nil {
			return priority.SpreadConfig{}, fmt.Errorf("invalid bandSpread slopes: %w", err)
		}
		spread.Slopes[band] = slope
	}

	return spread, nil
}

// TimeslotStarts expands the schedule recurrence into timeslot start times.
// Index i of the result is timeslot i.
func (s Schedule) TimeslotStarts() ([]time.Time, error) {
	start, err := time.Parse(time.RFC3339, s.Start)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule start: %w", err)
	}

	opt, err := rrule.StrToROption(s.RRule)
	if err != nil {
		return nil, fmt.Errorf("invalid rrule in schedule: %w", err)
	}
	if opt.Count == 0 && opt.Until.IsZero() {
		return nil, fmt.Errorf("schedule rrule must be bounded by COUNT or UNTIL")
	}
	opt.Dtstart = start

	rule, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, fmt.Errorf("failed to build schedule recurrence: %w", err)
	}

	var starts []time.Time
	next := rule.Iterator()
	for {
		t, ok := next()
		if !ok {
			break
		}
		if len(starts) == MaxTimeslots {
			return nil, fmt.Errorf("schedule expands to more than %d timeslots", MaxTimeslots)
		}
		starts = append(starts, t)
	}

	if len(starts) == 0 {
		return nil, fmt.Errorf("schedule rrule produces no timeslots")
	}

	return starts, nil
}

// findConfigFile searches for the named config file in the current directory and home directory
func findConfigFile(configFileName string) (string, error) {
	// Check current directory
	if _, err := os.Stat(configFileName); err == nil {
		return configFileName, nil
	}

	// Check home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homeConfigPath := filepath.Join(homeDir, configFileName)
	if _, err := os.Stat(homeConfigPath); err == nil {
		return homeConfigPath, nil
	}

	return "", fmt.Errorf("config file %s not found in current directory or home directory", configFileName)
}
