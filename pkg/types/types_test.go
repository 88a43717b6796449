package types

import "testing"

func TestGroupIncludesMajor(t *testing.T) {
	d := EngineDescriptor{Family: FamilyTensorflow, ResolvedVersion: "2.10.1"}
	if got := d.Group(); got != "tensorflow2" {
		t.Fatalf("Group() = %q", got)
	}
	d.ResolvedVersion = "1.15.0"
	if got := d.Group(); got != "tensorflow1" {
		t.Fatalf("Group() = %q", got)
	}
}

func TestFallback(t *testing.T) {
	d := EngineDescriptor{RequestedVersion: "1.13.1", ResolvedVersion: "1.13.1"}
	if d.Fallback() {
		t.Fatalf("same versions must not be a fallback")
	}
	d.ResolvedVersion = "1.11.0"
	if !d.Fallback() {
		t.Fatalf("substituted version must be a fallback")
	}
}

func TestWithServingTags(t *testing.T) {
	tf := EngineDescriptor{Family: FamilyTensorflow}
	tf = tf.WithServingTags("serve", "serving_default")
	if tf.ServingTag != "serve" || tf.ServingSigDef != "serving_default" {
		t.Fatalf("serving tags not applied: %+v", tf)
	}

	pt := EngineDescriptor{Family: FamilyPytorch}
	pt = pt.WithServingTags("serve", "serving_default")
	if pt.ServingTag != "" || pt.ServingSigDef != "" {
		t.Fatalf("serving tags must only apply to tensorflow: %+v", pt)
	}
}

func TestDirNameOmitsEmptyArch(t *testing.T) {
	e := InstalledEngine{Family: "onnx", TrainingVersion: "1.11.0", AdapterVersion: "1.11.0", OS: "linux", CPU: true}
	if got := e.DirName(); got != "onnx-1.11.0-1.11.0-linux-cpu" {
		t.Fatalf("DirName() = %q", got)
	}
}

func TestMajorOf(t *testing.T) {
	for v, want := range map[string]string{
		"1.13.1":  "1",
		"2.0.0":   "2",
		"0.4.8":   "0",
		"nightly": "nightly",
	} {
		if got := MajorOf(v); got != want {
			t.Fatalf("MajorOf(%s) = %q, want %q", v, got, want)
		}
	}
}
