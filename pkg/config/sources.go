package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Criticality decides what a failed source fetch does to a reload.
type Criticality string

const (
	// Critical sources abort the reload on error or on an empty result.
	Critical Criticality = "critical"
	// BestEffort sources degrade to "no data" and let the reload continue.
	BestEffort Criticality = "best_effort"
)

// Source names understood by the collector.
const (
	SourceRegistry           = "registry"
	SourceWaitTimes          = "waittimes"
	SourceSatisfaction       = "satisfaction"
	SourceNationalCemeteries = "nationalCemeteries"
	SourceStateCemeteries    = "stateCemeteries"
	SourceWebsites           = "websites"
	SourceCaregiverSupport   = "caregiverSupport"
	SourceOrthopedics        = "orthopedics"
)

// SourceSpec is one entry of sources.yaml.
type SourceSpec struct {
	// Name matches one of the Source* constants.
	Name string `yaml:"name"`

	Criticality Criticality `yaml:"criticality"`

	// Timeout caps a single reload of the source.
	Timeout time.Duration `yaml:"timeout"`

	// Location is a URL path or blob key, depending on the source.
	Location string `yaml:"location,omitempty"`
}

// IsCritical reports whether failures of this source abort a reload.
func (s SourceSpec) IsCritical() bool {
	return s.Criticality == Critical
}

type sourcesFile struct {
	Sources []SourceSpec `yaml:"sources"`
}

// DefaultSources is used for any source missing from sources.yaml.
func DefaultSources() map[string]SourceSpec {
	return map[string]SourceSpec{
		SourceRegistry:           {Name: SourceRegistry, Criticality: Critical, Timeout: 2 * time.Minute},
		SourceWaitTimes:          {Name: SourceWaitTimes, Criticality: BestEffort, Timeout: time.Minute, Location: "/atcapis/v1.1/patientwaittimes"},
		SourceSatisfaction:       {Name: SourceSatisfaction, Criticality: BestEffort, Timeout: time.Minute, Location: "/atcapis/v1.1/patientsatisfaction"},
		SourceNationalCemeteries: {Name: SourceNationalCemeteries, Criticality: BestEffort, Timeout: 30 * time.Second},
		SourceStateCemeteries:    {Name: SourceStateCemeteries, Criticality: BestEffort, Timeout: 30 * time.Second},
		SourceWebsites:           {Name: SourceWebsites, Criticality: BestEffort, Timeout: 30 * time.Second, Location: "websites.csv"},
		SourceCaregiverSupport:   {Name: SourceCaregiverSupport, Criticality: BestEffort, Timeout: 30 * time.Second, Location: "caregiver_support.csv"},
		SourceOrthopedics:        {Name: SourceOrthopedics, Criticality: BestEffort, Timeout: 30 * time.Second, Location: "orthopedics.csv"},
	}
}

// LoadSources reads the per-source settings from path, layered over
// DefaultSources. A missing file yields the defaults.
func LoadSources(path string) (map[string]SourceSpec, error) {
	specs := DefaultSources()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return specs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}
	return mergeSources(specs, data)
}

// ParseSources is LoadSources for an in-memory document.
func ParseSources(data []byte) (map[string]SourceSpec, error) {
	return mergeSources(DefaultSources(), data)
}

func mergeSources(specs map[string]SourceSpec, data []byte) (map[string]SourceSpec, error) {
	var file sourcesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse sources file: %w", err)
	}

	for _, s := range file.Sources {
		base, known := specs[s.Name]
		if !known {
			return nil, fmt.Errorf("unknown source %q", s.Name)
		}
		switch s.Criticality {
		case "":
		case Critical, BestEffort:
			base.Criticality = s.Criticality
		default:
			return nil, fmt.Errorf("source %s: invalid criticality %q", s.Name, s.Criticality)
		}
		if s.Timeout < 0 {
			return nil, fmt.Errorf("source %s: negative timeout", s.Name)
		}
		if s.Timeout > 0 {
			base.Timeout = s.Timeout
		}
		if s.Location != "" {
			base.Location = s.Location
		}
		specs[s.Name] = base
	}
	return specs, nil
}
