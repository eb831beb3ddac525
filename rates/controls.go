package rates

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sarchlab/cohortsim/integerize"
	"github.com/sarchlab/cohortsim/ledger"
)

// YearControls holds the control totals of one year, by group and field. A
// nil value means the control is explicitly unknown.
type YearControls map[ledger.Group]map[string]*float64

// Lookup returns the control total of a field, if one is provided.
func (y YearControls) Lookup(info ledger.FieldInfo) (float64, bool) {
	if info.Control == "" {
		return 0, false
	}

	v := y[info.Group][info.Control]
	if v == nil {
		return 0, false
	}

	return *v, true
}

// Controls holds control totals by launch year and increment year.
type Controls map[int]map[int]YearControls

// Year returns the controls of an increment year under a launch year.
func (c Controls) Year(launch, year int) (YearControls, error) {
	byYear, ok := c[launch]
	if !ok {
		return nil, fmt.Errorf("%w: no controls for launch year %d",
			ErrMissingSourceYear, launch)
	}

	y, ok := byYear[year]
	if !ok {
		return nil, fmt.Errorf("%w: no controls for year %d under launch year %d",
			ErrMissingSourceYear, year, launch)
	}

	return y, nil
}

// Set stores a control total. A nil value records an unknown control.
func (c Controls) Set(launch, year int, g ledger.Group, field string, v *float64) {
	if c[launch] == nil {
		c[launch] = make(map[int]YearControls)
	}

	if c[launch][year] == nil {
		c[launch][year] = make(YearControls)
	}

	if c[launch][year][g] == nil {
		c[launch][year][g] = make(map[string]*float64)
	}

	c[launch][year][g][field] = v
}

// ParseControls decodes controls from YAML shaped as
// launch -> year -> group -> field -> number or null.
func ParseControls(r io.Reader) (Controls, error) {
	c := Controls{}

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(&c); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode controls: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// LoadControls reads controls from a YAML file.
func LoadControls(path string) (Controls, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open controls: %w", err)
	}
	defer f.Close()

	return ParseControls(f)
}

// Validate rejects unknown groups, unknown fields, and negative totals.
func (c Controls) Validate() error {
	known := make(map[ledger.Group]map[string]bool)
	for _, info := range ledger.Catalogue {
		if info.Control == "" {
			continue
		}

		if known[info.Group] == nil {
			known[info.Group] = make(map[string]bool)
		}

		known[info.Group][info.Control] = true
	}

	for launch, byYear := range c {
		for year, groups := range byYear {
			for g, fields := range groups {
				if known[g] == nil {
					return fmt.Errorf("controls %d/%d: unknown group %q",
						launch, year, g)
				}

				for name, v := range fields {
					if !known[g][name] {
						return fmt.Errorf("controls %d/%d: unknown field %s.%s",
							launch, year, g, name)
					}

					if v != nil && *v < 0 {
						return fmt.Errorf("%w: controls %d/%d: negative total %v for %s.%s",
							integerize.ErrInvalidControl, launch, year, *v, g, name)
					}
				}
			}
		}
	}

	return nil
}
