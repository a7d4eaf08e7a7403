package config

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Profile is an analysis parameter profile loaded from a standalone YAML
// file. A profile overrides the corresponding Analysis settings, letting the
// same inputs be re-analyzed under different thresholds without touching the
// main configuration.
type Profile struct {
	Alpha              *float64 `yaml:"alpha"`
	Assumption         *string  `yaml:"assumption"`
	CellKM             *float64 `yaml:"cell_km"`
	ZeroNeighborPolicy *string  `yaml:"zero_neighbor_policy"`
	TwoTailed          *bool    `yaml:"two_tailed"`
}

// LoadProfile parses an analysis profile from path.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "config: read profile %s", path)
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, eris.Wrapf(err, "config: parse profile %s", path)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Profile) validate() error {
	if p.Alpha != nil && (*p.Alpha <= 0 || *p.Alpha >= 1) {
		return eris.Errorf("config: profile alpha %v out of range (0, 1)", *p.Alpha)
	}
	if p.CellKM != nil && *p.CellKM <= 0 {
		return eris.Errorf("config: profile cell_km %v must be positive", *p.CellKM)
	}
	if p.Assumption != nil {
		switch *p.Assumption {
		case "normality", "randomization":
		default:
			return eris.Errorf("config: profile assumption %q invalid", *p.Assumption)
		}
	}
	if p.ZeroNeighborPolicy != nil {
		switch *p.ZeroNeighborPolicy {
		case "zero", "self":
		default:
			return eris.Errorf("config: profile zero_neighbor_policy %q invalid", *p.ZeroNeighborPolicy)
		}
	}
	return nil
}

// Apply overlays the profile's set fields onto an analysis configuration.
func (p *Profile) Apply(a *AnalysisConfig) {
	if p.Alpha != nil {
		a.Alpha = *p.Alpha
	}
	if p.Assumption != nil {
		a.Assumption = *p.Assumption
	}
	if p.CellKM != nil {
		a.CellKM = *p.CellKM
	}
	if p.ZeroNeighborPolicy != nil {
		a.ZeroNeighborPolicy = *p.ZeroNeighborPolicy
	}
	if p.TwoTailed != nil {
		a.TwoTailed = *p.TwoTailed
	}
}
