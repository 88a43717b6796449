// Package registry discovers engine installations under a root directory and
// ranks them against resolution requests. The directory naming convention
// family-trainingVersion-adapterVersion-os[-arch][-cpu][-gpu] is load-bearing:
// it is the only metadata an installation has.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"enginehost/internal/platform"
	"enginehost/pkg/types"
)

// Scan lists the engine installations under rootDir. Subdirectories whose
// names do not parse against the naming grammar are skipped, not fatal.
// A later directory with the same (family, training version, os, cpu, gpu)
// key shadows an earlier one; duplicate keys are a discovered-state quirk,
// not something scan enforces against.
func Scan(rootDir string) ([]types.InstalledEngine, error) {
	base, err := expandHome(rootDir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read engines dir: %w", err)
	}
	index := map[string]int{}
	var out []types.InstalledEngine
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		eng, err := ParseDirName(e.Name())
		if err != nil {
			continue
		}
		eng.Dir = filepath.Join(abs, e.Name())
		key := strings.Join([]string{eng.Family, eng.TrainingVersion, eng.OS, flag(eng.CPU), flag(eng.GPU)}, "|")
		if i, ok := index[key]; ok {
			out[i] = eng
			continue
		}
		index[key] = len(out)
		out = append(out, eng)
	}
	return out, nil
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// ParseDirName decodes an installation directory name. The os tag may carry
// an architecture component ("linux-x86_64"); cpu/gpu flags are trailing.
func ParseDirName(name string) (types.InstalledEngine, error) {
	fields := strings.Split(name, "-")
	if len(fields) < 4 {
		return types.InstalledEngine{}, fmt.Errorf("not an engine directory: %q", name)
	}
	eng := types.InstalledEngine{
		Family:          fields[0],
		TrainingVersion: fields[1],
		AdapterVersion:  fields[2],
	}
	rest := fields[3:]
	for len(rest) > 0 {
		switch rest[len(rest)-1] {
		case "cpu":
			eng.CPU = true
		case "gpu":
			eng.GPU = true
		default:
			goto osTag
		}
		rest = rest[:len(rest)-1]
	}
osTag:
	if eng.Family == "" || eng.TrainingVersion == "" || eng.AdapterVersion == "" || len(rest) == 0 {
		return types.InstalledEngine{}, fmt.Errorf("not an engine directory: %q", name)
	}
	eng.OS = rest[0]
	if len(rest) > 1 {
		eng.Arch = strings.Join(rest[1:], "-")
	}
	if !eng.CPU && !eng.GPU {
		// Flagless names predate the capability suffixes; they were all
		// CPU builds.
		eng.CPU = true
	}
	return eng, nil
}

// CheckInstalled reports the installations that exactly satisfy (family,
// version) and the requested capability flags. Under Rosetta only
// native-arch installations qualify: the translated execution of the native
// library layer is unreliable.
func CheckInstalled(family, version string, cpu, gpu, rosetta bool, rootDir string) ([]types.InstalledEngine, error) {
	entries, err := Scan(rootDir)
	if err != nil {
		return nil, err
	}
	return filterExact(entries, family, version, cpu, gpu, rosetta, platform.Detect()), nil
}

func filterExact(entries []types.InstalledEngine, family, version string, cpu, gpu, rosetta bool, host platform.Platform) []types.InstalledEngine {
	var out []types.InstalledEngine
	for _, e := range entries {
		if e.Family != family || e.TrainingVersion != version {
			continue
		}
		if cpu && !e.CPU {
			continue
		}
		if gpu && !e.GPU {
			continue
		}
		if rosetta && e.Arch != "" && e.Arch != host.Arch {
			continue
		}
		out = append(out, e)
	}
	return out
}

// expandHome expands a leading '~' to the user's home directory.
func expandHome(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}
