package unit

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"phaengine/domain/core"
)

// Wire names of the built-in catalogue.
const (
	WirePercent     = "%"
	WireProbability = "probability"

	WirePerYear  = "/yr"
	WirePerMonth = "/month"
	WirePerWeek  = "/week"
	WirePerDay   = "/day"
	WirePerHour  = "/hr"

	WireSecond = "s"
	WireMinute = "min"
	WireHour   = "hr"
	WireDay    = "day"
	WireWeek   = "week"
	WireMonth  = "month"
	WireYear   = "yr"
)

// hoursPer holds the length of each time unit in hours. A year is 8760 hours.
var hoursPer = []struct {
	wire  string
	name  string
	hours float64
}{
	{WireSecond, "Seconds", 1.0 / 3600},
	{WireMinute, "Minutes", 1.0 / 60},
	{WireHour, "Hours", 1},
	{WireDay, "Days", 24},
	{WireWeek, "Weeks", 168},
	{WireMonth, "Months", 730},
	{WireYear, "Years", 8760},
}

var perPeriod = []struct {
	wire  string
	name  string
	hours float64
}{
	{WirePerHour, "Per hour", 1},
	{WirePerDay, "Per day", 24},
	{WirePerWeek, "Per week", 168},
	{WirePerMonth, "Per month", 730},
	{WirePerYear, "Per year", 8760},
}

// BuildRegistry constructs the registry with the standard catalogue. It is
// the single place units are created; nothing registers units at package
// initialisation.
func BuildRegistry() *Registry {
	r := NewRegistry()

	percent := New("%", WirePercent, KindProbability, false)
	probability := New("Probability", WireProbability, KindProbability, true)
	_ = r.Register(percent)
	_ = r.Register(probability)
	percent.AddFactor(probability, 0.01)
	probability.AddFactor(percent, 100)
	probability.AddFactor(r.Dimensionless(), 1)
	r.Dimensionless().AddFactor(probability, 1)

	times := make([]*Unit, 0, len(hoursPer))
	for _, t := range hoursPer {
		u := New(t.name, t.wire, KindTime, false)
		_ = r.Register(u)
		times = append(times, u)
	}
	for i, a := range times {
		for j, b := range times {
			if i != j {
				a.AddFactor(b, hoursPer[i].hours/hoursPer[j].hours)
			}
		}
	}

	freqs := make([]*Unit, 0, len(perPeriod))
	for _, f := range perPeriod {
		u := New(f.name, f.wire, KindFrequency, false)
		_ = r.Register(u)
		freqs = append(freqs, u)
	}
	for i, a := range freqs {
		for j, b := range freqs {
			if i != j {
				a.AddFactor(b, perPeriod[j].hours/perPeriod[i].hours)
			}
		}
	}

	return r
}

// Catalog is the YAML shape of an extra unit catalogue.
type Catalog struct {
	Units []struct {
		Name     string `yaml:"name"`
		Wire     string `yaml:"wire"`
		Kind     Kind   `yaml:"kind"`
		Suppress bool   `yaml:"suppress"`
	} `yaml:"units"`
	Factors []struct {
		From   string  `yaml:"from"`
		To     string  `yaml:"to"`
		Factor float64 `yaml:"factor"`
		Both   bool    `yaml:"both"`
	} `yaml:"factors"`
}

// LoadCatalog registers the units and factors described by a YAML document.
// Factors may reference units from the built-in catalogue.
func (r *Registry) LoadCatalog(rd io.Reader) error {
	var cat Catalog
	if err := yaml.NewDecoder(rd).Decode(&cat); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("decode unit catalogue: %w", err)
	}

	for _, cu := range cat.Units {
		kind := cu.Kind
		if kind == "" {
			kind = KindNone
		}
		if err := r.Register(New(cu.Name, cu.Wire, kind, cu.Suppress)); err != nil {
			return err
		}
	}

	for _, cf := range cat.Factors {
		from, ok := r.FindByWireName(cf.From)
		if !ok {
			return fmt.Errorf("%w: %s", core.ErrUnitNotFound, cf.From)
		}
		to, ok := r.FindByWireName(cf.To)
		if !ok {
			return fmt.Errorf("%w: %s", core.ErrUnitNotFound, cf.To)
		}
		if cf.Both {
			Link(from, to, cf.Factor)
		} else {
			from.AddFactor(to, cf.Factor)
		}
	}
	return nil
}
