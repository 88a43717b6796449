package types

// Family names a deep-learning backend. Tensorflow 1 and Tensorflow 2 share
// the "tensorflow" directory name but are distinct coexistence groups: their
// native symbols are mutually exclusive within one process, so the group key
// includes the major version (see EngineDescriptor.Group).
const (
	FamilyPytorch    = "pytorch"
	FamilyTensorflow = "tensorflow"
	FamilyOnnx       = "onnx"
	FamilyKeras      = "keras"
	FamilyJax        = "jax"
)

// InstalledEngine is one installation directory under the engines root.
// Every attribute is encoded in the directory name
// (family-trainingVersion-adapterVersion-os[-cpu][-gpu]); the path is the
// installation's only persistent identity. The core never mutates an
// installation.
type InstalledEngine struct {
	// Backend family, e.g. "pytorch".
	Family string `json:"family"`
	// Version of the framework used to train models this engine loads.
	TrainingVersion string `json:"training_version"`
	// Version of the adapter runtime that actually executes them.
	AdapterVersion string `json:"adapter_version"`
	// Operating system tag, e.g. "linux".
	OS string `json:"os"`
	// Machine architecture tag, e.g. "x86_64". Empty for older installs
	// whose directory name predates the arch component.
	Arch string `json:"arch,omitempty"`
	// Capability flags encoded in the directory name.
	CPU bool `json:"cpu"`
	GPU bool `json:"gpu"`
	// Absolute path of the installation directory.
	Dir string `json:"dir"`
}

// DirName reconstructs the conventional directory name for the installation.
func (e InstalledEngine) DirName() string {
	name := e.Family + "-" + e.TrainingVersion + "-" + e.AdapterVersion + "-" + e.OS
	if e.Arch != "" {
		name += "-" + e.Arch
	}
	if e.CPU {
		name += "-cpu"
	}
	if e.GPU {
		name += "-gpu"
	}
	return name
}

// MajorVersion returns the component of the training version before the
// first dot, or the whole string when there is none. This heuristic is a
// visible contract to callers; do not refine it for non-semver versions.
func (e InstalledEngine) MajorVersion() string {
	return MajorOf(e.TrainingVersion)
}

// MajorOf returns the substring of v before the first '.', or v itself.
func MajorOf(v string) string {
	for i := 0; i < len(v); i++ {
		if v[i] == '.' {
			return v[:i]
		}
	}
	return v
}

// EngineDescriptor is the immutable result of resolving a request against
// the installed engines. ResolvedVersion always names an installation that is
// present on disk and whose capability flags are a superset of the granted
// CPU/GPU flags. Consumed exactly once by the isolated loader.
type EngineDescriptor struct {
	Family           string `json:"family"`
	RequestedVersion string `json:"requested_version"`
	ResolvedVersion  string `json:"resolved_version"`
	AdapterVersion   string `json:"adapter_version"`
	OS               string `json:"os"`
	Arch             string `json:"arch,omitempty"`
	// Capability flags actually granted. A GPU request satisfied by a
	// CPU-only installation surfaces here as GPU=false; callers must
	// re-check before assuming GPU execution.
	CPU bool `json:"cpu"`
	GPU bool `json:"gpu"`
	// Absolute installation directory to load from.
	Dir string `json:"dir"`
	// Serving tag and signature definition, used only by tensorflow
	// saved-model bundles. Empty for every other family.
	ServingTag    string `json:"serving_tag,omitempty"`
	ServingSigDef string `json:"serving_sig_def,omitempty"`
}

// Fallback reports whether resolution substituted a different installed
// version for the requested one.
func (d EngineDescriptor) Fallback() bool {
	return d.ResolvedVersion != d.RequestedVersion
}

// Group is the coexistence-group key used by the process ledger:
// family plus the major component of the resolved version. "tensorflow1"
// and "tensorflow2" are therefore separate groups while two pytorch 1.x
// versions share one.
func (d EngineDescriptor) Group() string {
	return d.Family + MajorOf(d.ResolvedVersion)
}

// WithServingTags returns a copy carrying tensorflow serving open
// parameters. A no-op for non-tensorflow descriptors.
func (d EngineDescriptor) WithServingTags(tag, sigDef string) EngineDescriptor {
	if d.Family != FamilyTensorflow {
		return d
	}
	d.ServingTag = tag
	d.ServingSigDef = sigDef
	return d
}

// Tensor is the handle exchanged with adapters over the run contract. The
// core never interprets the payload; axis math and typed views belong to the
// tensor collaborator. Adapters fill output tensors in place.
type Tensor struct {
	Name  string    `json:"name"`
	Axes  string    `json:"axes,omitempty"`
	Shape []int     `json:"shape,omitempty"`
	Data  []float32 `json:"data,omitempty"`
}
