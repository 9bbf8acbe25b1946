package version

import (
	"runtime/debug"
	"testing"
)

func TestBuildVersion_WithReleaseTag(t *testing.T) {
	original := readBuildInfo
	defer func() { readBuildInfo = original }()

	readBuildInfo = func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{
			Main: debug.Module{
				Version: "v0.1.0",
			},
		}, true
	}

	got := BuildVersion()
	want := "v0.1.0"
	if got != want {
		t.Errorf("BuildVersion() = %q, want %q", got, want)
	}
}

func TestBuildVersion_Unavailable(t *testing.T) {
	original := readBuildInfo
	defer func() { readBuildInfo = original }()

	readBuildInfo = func() (*debug.BuildInfo, bool) {
		return nil, false
	}

	got := BuildVersion()
	want := "dev"
	if got != want {
		t.Errorf("BuildVersion() = %q, want %q", got, want)
	}
}

func TestBuildVersion_DevelVersion(t *testing.T) {
	original := readBuildInfo
	defer func() { readBuildInfo = original }()

	// (devel) is what go build/run returns
	readBuildInfo = func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{
			Main: debug.Module{
				Version: "(devel)",
			},
		}, true
	}

	got := BuildVersion()
	want := "dev"
	if got != want {
		t.Errorf("BuildVersion() = %q, want %q", got, want)
	}
}

func TestBuildVersion_EmptyVersion(t *testing.T) {
	original := readBuildInfo
	defer func() { readBuildInfo = original }()

	readBuildInfo = func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{
			Main: debug.Module{
				Version: "",
			},
		}, true
	}

	got := BuildVersion()
	want := "dev"
	if got != want {
		t.Errorf("BuildVersion() = %q, want %q", got, want)
	}
}

func TestRevision(t *testing.T) {
	original := readBuildInfo
	defer func() { readBuildInfo = original }()

	tests := []struct {
		name     string
		settings []debug.BuildSetting
		want     string
		wantStr  string
	}{
		{"none", nil, "", "v1.2.0"},
		{"clean", []debug.BuildSetting{{Key: "vcs.revision", Value: "0123456789abcdef0123"}}, "0123456789ab", "v1.2.0 (0123456789ab)"},
		{"dirty", []debug.BuildSetting{
			{Key: "vcs.revision", Value: "abc123"},
			{Key: "vcs.modified", Value: "true"},
		}, "abc123-dirty", "v1.2.0 (abc123-dirty)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			readBuildInfo = func() (*debug.BuildInfo, bool) {
				return &debug.BuildInfo{Main: debug.Module{Version: "v1.2.0"}, Settings: tt.settings}, true
			}
			if got := Revision(); got != tt.want {
				t.Errorf("Revision() = %q, want %q", got, tt.want)
			}
			if got := String(); got != tt.wantStr {
				t.Errorf("String() = %q, want %q", got, tt.wantStr)
			}
		})
	}
}
