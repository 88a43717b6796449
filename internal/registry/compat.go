package registry

import (
	"strings"

	"enginehost/internal/platform"
	"enginehost/pkg/types"
)

// Ranks of the compatibility fallback ladder, best first.
const (
	// RankExact: same family, same training version, capabilities satisfied.
	RankExact = 0
	// RankSameMajor: same family, same component before the first dot.
	RankSameMajor = 1
	// RankAnyVersion: same family, any installed version.
	RankAnyVersion = 2
)

// Match pairs the chosen installation with the rank it was found at.
type Match struct {
	Engine types.InstalledEngine
	Rank   int
}

// MostCompatible selects the installed engine that can legally satisfy a
// request for (family, version). Exact matches win; otherwise same-major
// versions; otherwise the best installed version of the family at all.
// Adapter runtimes usually load models trained with a slightly older version
// of the same major line, which is why the ladder stops at the family
// boundary instead of requiring equality or allowing arbitrary substitutes.
//
// The capability flags bind the exact rank only. The fallback ranks
// consider every installation of the family (a GPU-only build still
// resolves); a requested capability the chosen entry lacks surfaces in the
// granted flags of the descriptor built from it, and within a rank an
// entry satisfying the CPU request is preferred over one that does not.
func MostCompatible(entries []types.InstalledEngine, family, version string, cpu, gpu bool, host platform.Platform) (Match, error) {
	if exact := filterExact(entries, family, version, cpu, gpu, host.Rosetta, host); len(exact) > 0 {
		return Match{Engine: pick(exact, host, cpu), Rank: RankExact}, nil
	}
	var sameMajor, sameFamily []types.InstalledEngine
	major := types.MajorOf(version)
	for _, e := range entries {
		if e.Family != family {
			continue
		}
		if host.Rosetta && e.Arch != "" && e.Arch != host.Arch {
			continue
		}
		sameFamily = append(sameFamily, e)
		if e.MajorVersion() == major {
			sameMajor = append(sameMajor, e)
		}
	}
	if len(sameMajor) > 0 {
		return Match{Engine: pick(sameMajor, host, cpu), Rank: RankSameMajor}, nil
	}
	if len(sameFamily) > 0 {
		return Match{Engine: pick(sameFamily, host, cpu), Rank: RankAnyVersion}, nil
	}
	return Match{}, engineNotInstalledError{family: family, version: version}
}

// MostCompatibleVersion resolves just the version string against rootDir,
// the shape external collaborators ask the question in.
func MostCompatibleVersion(rootDir, family, version string) (string, error) {
	entries, err := Scan(rootDir)
	if err != nil {
		return "", err
	}
	m, err := MostCompatible(entries, family, version, true, false, platform.Detect())
	if err != nil {
		return "", err
	}
	return m.Engine.TrainingVersion, nil
}

// pick applies the within-rank tie-break: satisfies the CPU request, then
// GPU-capable over CPU-only, then exact OS/arch match, then greatest
// version string (an approximation of newest that is part of the visible
// contract, not a semver comparison).
func pick(entries []types.InstalledEngine, host platform.Platform, wantCPU bool) types.InstalledEngine {
	best := entries[0]
	for _, e := range entries[1:] {
		if better(e, best, host, wantCPU) {
			best = e
		}
	}
	return best
}

func better(a, b types.InstalledEngine, host platform.Platform, wantCPU bool) bool {
	if wantCPU && a.CPU != b.CPU {
		return a.CPU
	}
	if a.GPU != b.GPU {
		return a.GPU
	}
	am, bm := hostMatch(a, host), hostMatch(b, host)
	if am != bm {
		return am
	}
	return strings.Compare(a.TrainingVersion, b.TrainingVersion) > 0
}

func hostMatch(e types.InstalledEngine, host platform.Platform) bool {
	if e.OS != host.OS {
		return false
	}
	return e.Arch == "" || e.Arch == host.Arch
}
