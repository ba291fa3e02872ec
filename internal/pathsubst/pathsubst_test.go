package pathsubst

import "testing"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()
	root := "/home/user/project"
	abs := "/home/user/project/sub/file.go"

	encoded := Encode(abs, root)
	if encoded != "{PROJECT_ROOT}/sub/file.go" {
		t.Errorf("Encode() = %q, want placeholder form", encoded)
	}

	decoded := Decode(encoded, root)
	if decoded != abs {
		t.Errorf("Decode() = %q, want %q", decoded, abs)
	}
}

func TestEncodeLeavesUnrelatedPathUntouched(t *testing.T) {
	t.Parallel()
	got := Encode("/var/data/other.go", "/home/user/project")
	if got != "/var/data/other.go" {
		t.Errorf("Encode() = %q, want unchanged path", got)
	}
}

func TestEncodeRespectsPathSeparatorBoundary(t *testing.T) {
	t.Parallel()
	got := Encode("/proj2/x.go", "/proj")
	if got != "/proj2/x.go" {
		t.Errorf("Encode() = %q, want unchanged path (sibling, not descendant)", got)
	}
}

func TestEncodeMatchesRootItself(t *testing.T) {
	t.Parallel()
	got := Encode("/home/user/project", "/home/user/project")
	if got != "{PROJECT_ROOT}" {
		t.Errorf("Encode() = %q, want bare placeholder", got)
	}
}
