package manager

import (
	"os"
	"path/filepath"
	"testing"

	"enginehost/internal/catalog"
	"enginehost/internal/registry"
	"enginehost/pkg/types"
)

// installDirs creates bare installation directories; resolution only looks at
// the names.
func installDirs(t *testing.T, names ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, name := range names {
		if err := os.MkdirAll(filepath.Join(root, name), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", name, err)
		}
	}
	return root
}

func boolPtr(b bool) *bool { return &b }

func TestResolveExact(t *testing.T) {
	root := installDirs(t, "pytorch-1.13.1-1.13.1-linux-x86_64-cpu")
	desc, err := Resolve("pytorch", "1.13.1", true, false, root)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if desc.ResolvedVersion != "1.13.1" || desc.AdapterVersion != "1.13.1" {
		t.Fatalf("unexpected descriptor: %+v", desc)
	}
	if desc.Fallback() {
		t.Fatalf("exact resolution must not report a fallback")
	}
	if !desc.CPU || desc.GPU {
		t.Fatalf("granted flags must equal the requested ones: %+v", desc)
	}
	if desc.Dir == "" {
		t.Fatalf("descriptor must carry the installation dir")
	}
}

func TestResolveExactNotInstalled(t *testing.T) {
	root := installDirs(t, "pytorch-1.11.0-1.11.0-linux-x86_64-cpu")
	_, err := Resolve("pytorch", "1.13.1", true, false, root)
	if err == nil || !registry.IsEngineNotInstalled(err) {
		t.Fatalf("expected engine-not-installed, got %v", err)
	}
}

func TestResolveUnknownFamily(t *testing.T) {
	root := installDirs(t)
	_, err := Resolve("caffe", "1.0.0", true, false, root)
	if err == nil || !catalog.IsUnsupportedEngine(err) {
		t.Fatalf("expected unsupported-engine, got %v", err)
	}
}

func TestResolveUncataloguedVersion(t *testing.T) {
	root := installDirs(t, "pytorch-1.6.0-1.6.0-linux-x86_64-cpu")
	_, err := Resolve("pytorch", "1.6.0", true, false, root)
	if err == nil || !catalog.IsNoAdapterMapping(err) {
		t.Fatalf("expected no-adapter-mapping, got %v", err)
	}
}

func TestResolveCompatibleFallback(t *testing.T) {
	root := installDirs(t, "pytorch-1.11.0-1.11.0-linux-x86_64-cpu")
	desc, err := ResolveCompatible("pytorch", "1.13.1", root)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !desc.Fallback() {
		t.Fatalf("expected a fallback descriptor: %+v", desc)
	}
	if desc.RequestedVersion != "1.13.1" || desc.ResolvedVersion != "1.11.0" {
		t.Fatalf("unexpected versions: %+v", desc)
	}
	// Adapter version follows the resolved installation, not the request.
	if desc.AdapterVersion != "1.11.0" {
		t.Fatalf("unexpected adapter version: %+v", desc)
	}
}

func TestResolveCompatibleGrantsGPUFromEntry(t *testing.T) {
	root := installDirs(t, "pytorch-1.13.1-1.13.1-linux-x86_64-cpu-gpu")
	desc, err := ResolveCompatible("pytorch", "1.13.1", root)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !desc.GPU || !desc.CPU {
		t.Fatalf("gpu-capable install should grant gpu: %+v", desc)
	}
}

func TestResolveCompatibleGPUOnlyInstall(t *testing.T) {
	root := installDirs(t, "pytorch-1.13.1-1.13.1-linux-x86_64-gpu")
	desc, err := ResolveCompatible("pytorch", "1.13.1", root)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if desc.CPU || !desc.GPU {
		t.Fatalf("granted flags must mirror the install: %+v", desc)
	}
}

func TestResolveCompatibleAdapterVersionFromDir(t *testing.T) {
	// An installation newer than the catalog: the directory name is the
	// only adapter-version source.
	root := installDirs(t, "pytorch-1.14.0-9.9.9-linux-x86_64-cpu")
	desc, err := ResolveCompatible("pytorch", "1.14.0", root)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if desc.AdapterVersion != "9.9.9" {
		t.Fatalf("expected dir-encoded adapter version, got %+v", desc)
	}
}

func TestResolveRequestCapabilityDefaults(t *testing.T) {
	// pytorch defaults to gpu in exact mode, so a cpu-only install does
	// not satisfy a flagless exact request.
	root := installDirs(t, "pytorch-1.13.1-1.13.1-linux-x86_64-cpu")
	req := types.ResolveRequest{Family: "pytorch", Version: "1.13.1", Exact: true}
	if _, err := ResolveRequest(req, root); err == nil || !registry.IsEngineNotInstalled(err) {
		t.Fatalf("expected engine-not-installed under gpu default, got %v", err)
	}

	req.GPU = boolPtr(false)
	desc, err := ResolveRequest(req, root)
	if err != nil {
		t.Fatalf("resolve with explicit gpu=false: %v", err)
	}
	if desc.GPU {
		t.Fatalf("explicit flag must override the default: %+v", desc)
	}
}

func TestResolveRequestFallbackMode(t *testing.T) {
	root := installDirs(t, "onnx-1.9.0-1.9.0-linux-x86_64-cpu")
	req := types.ResolveRequest{Family: "onnx", Version: "1.13.1"}
	desc, err := ResolveRequest(req, root)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if desc.ResolvedVersion != "1.9.0" {
		t.Fatalf("expected family fallback, got %+v", desc)
	}
}
