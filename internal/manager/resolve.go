package manager

import (
	"enginehost/internal/catalog"
	"enginehost/internal/platform"
	"enginehost/internal/registry"
	"enginehost/pkg/types"
)

// Resolve finds an installation that satisfies (family, version) exactly,
// with the requested capability flags. No fallback: a missing exact match is
// an engine-not-installed failure. The granted flags equal the requested
// ones; the chosen installation is guaranteed to support them.
func Resolve(family, version string, cpu, gpu bool, installRoot string) (types.EngineDescriptor, error) {
	if _, err := catalog.SupportedVersions(family); err != nil {
		return types.EngineDescriptor{}, err
	}
	adapterVersion, err := catalog.AdapterVersion(family, version)
	if err != nil {
		return types.EngineDescriptor{}, err
	}
	host := platform.Detect()
	candidates, err := registry.CheckInstalled(family, version, cpu, gpu, host.Rosetta, installRoot)
	if err != nil {
		return types.EngineDescriptor{}, err
	}
	if len(candidates) == 0 {
		return types.EngineDescriptor{}, registry.ErrEngineNotInstalled(family, version)
	}
	m, err := registry.MostCompatible(candidates, family, version, cpu, gpu, host)
	if err != nil {
		return types.EngineDescriptor{}, err
	}
	return descriptorFrom(m.Engine, version, adapterVersion, cpu, gpu), nil
}

// ResolveCompatible applies the fallback ranking: exact version first, then
// same major, then the best installed version of the family. Capabilities
// are never required here; the granted flags mirror the chosen
// installation, so a family installed only as a GPU build still resolves
// and the missing CPU capability shows up in the descriptor.
func ResolveCompatible(family, version, installRoot string) (types.EngineDescriptor, error) {
	if _, err := catalog.SupportedVersions(family); err != nil {
		return types.EngineDescriptor{}, err
	}
	host := platform.Detect()
	entries, err := registry.Scan(installRoot)
	if err != nil {
		return types.EngineDescriptor{}, err
	}
	m, err := registry.MostCompatible(entries, family, version, true, false, host)
	if err != nil {
		return types.EngineDescriptor{}, err
	}
	adapterVersion := adapterVersionFor(family, m.Engine)
	return descriptorFrom(m.Engine, version, adapterVersion, m.Engine.CPU, m.Engine.GPU), nil
}

// ResolveRequest applies catalog capability defaults when the request leaves
// cpu/gpu unset, then dispatches to exact or compatible resolution.
func ResolveRequest(req types.ResolveRequest, installRoot string) (types.EngineDescriptor, error) {
	if req.Exact {
		caps, err := catalog.Capabilities(req.Family)
		if err != nil {
			return types.EngineDescriptor{}, err
		}
		cpu, gpu := caps.CPU, caps.GPU
		if req.CPU != nil {
			cpu = *req.CPU
		}
		if req.GPU != nil {
			gpu = *req.GPU
		}
		return Resolve(req.Family, req.Version, cpu, gpu, installRoot)
	}
	return ResolveCompatible(req.Family, req.Version, installRoot)
}

// adapterVersionFor prefers the catalog mapping for the resolved training
// version and falls back to the adapter version encoded in the directory
// name, which is authoritative for installations newer than the catalog.
func adapterVersionFor(family string, e types.InstalledEngine) string {
	if v, err := catalog.AdapterVersion(family, e.TrainingVersion); err == nil {
		return v
	}
	return e.AdapterVersion
}

func descriptorFrom(e types.InstalledEngine, requested, adapterVersion string, cpu, gpu bool) types.EngineDescriptor {
	return types.EngineDescriptor{
		Family:           e.Family,
		RequestedVersion: requested,
		ResolvedVersion:  e.TrainingVersion,
		AdapterVersion:   adapterVersion,
		OS:               e.OS,
		Arch:             e.Arch,
		CPU:              cpu,
		GPU:              gpu,
		Dir:              e.Dir,
	}
}
