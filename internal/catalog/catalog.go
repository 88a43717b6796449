// Package catalog is the static table of engine versions the host knows how
// to run: which training-time versions exist per family, which adapter
// runtime each one maps to, and the capability defaults applied when a
// request does not say cpu/gpu explicitly.
package catalog

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed versions.yaml
var versionsYAML []byte

// Capability holds the static defaults of a family, used only when a request
// omits explicit flags. CPU defaults to true everywhere; GPU only where the
// adapter is known to dispatch to GPU.
type Capability struct {
	CPU bool `yaml:"cpu"`
	GPU bool `yaml:"gpu"`
}

type versionRow struct {
	Training string `yaml:"training"`
	Adapter  string `yaml:"adapter"`
}

type familyEntry struct {
	Capability `yaml:",inline"`
	// Releasable marks families whose adapter runs in a managed runtime
	// and whose ledger entry may therefore be cleared on session close.
	Releasable bool         `yaml:"releasable"`
	Versions   []versionRow `yaml:"versions"`
}

type table struct {
	Families map[string]familyEntry `yaml:"families"`
}

var versions table

func init() {
	if err := yaml.Unmarshal(versionsYAML, &versions); err != nil {
		panic(fmt.Sprintf("catalog: embedded versions.yaml: %v", err))
	}
}

// SupportedVersions returns the known training versions of family, in
// catalog order.
func SupportedVersions(family string) ([]string, error) {
	entry, ok := versions.Families[family]
	if !ok {
		return nil, unsupportedEngineError{family: family}
	}
	out := make([]string, 0, len(entry.Versions))
	for _, row := range entry.Versions {
		out = append(out, row.Training)
	}
	return out, nil
}

// AdapterVersion maps a training version onto the adapter runtime version
// that loads models trained with it.
func AdapterVersion(family, trainingVersion string) (string, error) {
	entry, ok := versions.Families[family]
	if !ok {
		return "", unsupportedEngineError{family: family}
	}
	for _, row := range entry.Versions {
		if row.Training == trainingVersion {
			return row.Adapter, nil
		}
	}
	return "", noAdapterMappingError{family: family, version: trainingVersion}
}

// Capabilities returns the family's capability defaults.
func Capabilities(family string) (Capability, error) {
	entry, ok := versions.Families[family]
	if !ok {
		return Capability{}, unsupportedEngineError{family: family}
	}
	return entry.Capability, nil
}

// Releasable reports whether the family's ledger entry may be cleared when
// its session closes. Unknown families are not releasable.
func Releasable(family string) bool {
	entry, ok := versions.Families[family]
	return ok && entry.Releasable
}

// Families lists the known families in no particular order.
func Families() []string {
	out := make([]string, 0, len(versions.Families))
	for name := range versions.Families {
		out = append(out, name)
	}
	return out
}
