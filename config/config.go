// Package config loads the settings of a projection run from a YAML file,
// a .env file, and COHORTSIM_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/sarchlab/cohortsim/cycle"
	"github.com/sarchlab/cohortsim/datarecording"
	"github.com/sarchlab/cohortsim/integerize"
	"github.com/sarchlab/cohortsim/rates"
)

// The launch years that project from the 2020 blended base population.
const (
	FirstLaunchYear = 2020
	LastLaunchYear  = 2029
)

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("invalid configuration")

// Interval is the span of years of a run.
type Interval struct {
	Base    int `yaml:"base"`
	Launch  int `yaml:"launch"`
	Horizon int `yaml:"horizon"`
}

// Inputs locates the input database and the control totals.
type Inputs struct {
	Database  string        `yaml:"database" env:"COHORTSIM_INPUT_DATABASE"`
	Controls  string        `yaml:"controls" env:"COHORTSIM_CONTROLS"`
	RateYears rates.YearMap `yaml:"rate_years"`
}

// Output locates the output database.
type Output struct {
	Path      string `yaml:"path" env:"COHORTSIM_OUTPUT"`
	Overwrite bool   `yaml:"overwrite" env:"COHORTSIM_OUTPUT_OVERWRITE"`
}

// Monitor configures the monitoring server.
type Monitor struct {
	Enabled bool `yaml:"enabled" env:"COHORTSIM_MONITOR"`
	Port    int  `yaml:"port" env:"COHORTSIM_MONITOR_PORT"`
	Open    bool `yaml:"open"`
}

// Warehouse configures the load of a finished run into Postgres.
type Warehouse struct {
	DSN      string `yaml:"dsn" env:"COHORTSIM_WAREHOUSE_DSN"`
	User     string `yaml:"user" env:"COHORTSIM_WAREHOUSE_USER"`
	Version  string `yaml:"version"`
	Comments string `yaml:"comments"`
}

// Export configures the upload of a finished run to S3-compatible storage.
type Export struct {
	Bucket          string `yaml:"bucket" env:"COHORTSIM_S3_BUCKET"`
	Prefix          string `yaml:"prefix" env:"COHORTSIM_S3_PREFIX"`
	Region          string `yaml:"region" env:"COHORTSIM_S3_REGION"`
	Endpoint        string `yaml:"endpoint" env:"COHORTSIM_S3_ENDPOINT"`
	AccessKeyID     string `yaml:"-" env:"COHORTSIM_S3_ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"-" env:"COHORTSIM_S3_SECRET_ACCESS_KEY"`
	PathStyle       bool   `yaml:"path_style" env:"COHORTSIM_S3_PATH_STYLE"`
}

// Config holds every setting of a run.
type Config struct {
	Interval     Interval `yaml:"interval"`
	Seed         uint64   `yaml:"seed" env:"COHORTSIM_SEED"`
	Policy       string   `yaml:"policy" env:"COHORTSIM_POLICY"`
	MaleFraction float64  `yaml:"male_fraction"`

	Inputs    Inputs    `yaml:"inputs"`
	Output    Output    `yaml:"output"`
	Monitor   Monitor   `yaml:"monitor"`
	Warehouse Warehouse `yaml:"warehouse"`
	Export    Export    `yaml:"export"`
}

// Default returns the settings used when the file leaves them out.
func Default() Config {
	return Config{
		Interval: Interval{
			Base:    FirstLaunchYear,
			Launch:  FirstLaunchYear,
			Horizon: FirstLaunchYear,
		},
		Policy:       integerize.PolicyWeightedRandom.String(),
		MaleFraction: cycle.DefaultMaleFraction,
		Monitor:      Monitor{Enabled: true},
	}
}

// Load reads the .env file next to the working directory when there is
// one, decodes the YAML file at path, and applies the environment
// overrides.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse decodes a YAML document over the defaults and applies the
// environment overrides.
func Parse(r io.Reader) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	return cfg, nil
}

// IntegerizePolicy returns the parsed integerization policy.
func (c Config) IntegerizePolicy() (integerize.Policy, error) {
	return integerize.ParsePolicy(c.Policy)
}

// Validate checks the settings that a run depends on.
func (c Config) Validate() error {
	var errs []error

	iv := c.Interval
	if iv.Launch < FirstLaunchYear || iv.Launch > LastLaunchYear {
		errs = append(errs, fmt.Errorf("launch year %d outside %d..%d",
			iv.Launch, FirstLaunchYear, LastLaunchYear))
	}

	if iv.Base < FirstLaunchYear {
		errs = append(errs, fmt.Errorf("base year %d before the %d base",
			iv.Base, FirstLaunchYear))
	}

	if iv.Base > iv.Launch || iv.Launch > iv.Horizon {
		errs = append(errs, fmt.Errorf(
			"years must satisfy base %d <= launch %d <= horizon %d",
			iv.Base, iv.Launch, iv.Horizon))
	}

	if _, err := c.IntegerizePolicy(); err != nil {
		errs = append(errs, err)
	}

	if c.MaleFraction <= 0 || c.MaleFraction >= 1 {
		errs = append(errs, fmt.Errorf("male fraction %v must be in (0, 1)",
			c.MaleFraction))
	}

	errs = append(errs, fileMustExist("input database", c.Inputs.Database))
	errs = append(errs, fileMustExist("controls", c.Inputs.Controls))

	if c.Output.Path == "" {
		errs = append(errs, errors.New("output path is required"))
	} else if !c.Output.Overwrite {
		name := datarecording.FileName(c.Output.Path)
		if _, err := os.Stat(name); err == nil {
			errs = append(errs, fmt.Errorf("%w: %s", datarecording.ErrFileExists, name))
		}
	}

	if !c.Monitor.Enabled && c.Monitor.Port != 0 {
		errs = append(errs, errors.New("monitor port set with monitoring disabled"))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	return nil
}

func fileMustExist(what, path string) error {
	if path == "" {
		return fmt.Errorf("%s path is required", what)
	}

	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}

	return nil
}
