package lifetime

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/kolkov/lifetime/internal/lifetime/cell"
)

// TestVersion verifies the version constants agree.
func TestVersion(t *testing.T) {
	if Version != "0.1.0" || VersionMajor != 0 || VersionMinor != 1 || VersionPatch != 0 {
		t.Errorf("inconsistent version constants: %s %d.%d.%d", Version, VersionMajor, VersionMinor, VersionPatch)
	}
	if !Compatible(Version) {
		t.Error("runtime is not compatible with its own version")
	}
	info := GetInfo()
	if info.Version != Version || info.GoVersion == "" {
		t.Errorf("GetInfo() = %+v", info)
	}
}

// TestCompatible covers the semver rules.
func TestCompatible(t *testing.T) {
	cases := map[string]bool{
		"0.1.0":  true,
		"v0.1.0": true,
		"0.0.9":  true,
		"0.1":    true,
		"0.2.0":  false,
		"v1.0.0": false,
		"banana": false,
		"":       false,
	}
	for v, want := range cases {
		if got := Compatible(v); got != want {
			t.Errorf("Compatible(%q) = %v, want %v", v, got, want)
		}
	}
}

// TestConfigureOutput_ReportPolicy verifies configuration reaches the runtime.
func TestConfigureOutput_ReportPolicy(t *testing.T) {
	t.Cleanup(cell.Reset)

	cfg := DefaultConfig()
	cfg.Policy = "report"
	cfg.CaptureStacks = true
	cfg.Log.JSON = true

	var out bytes.Buffer
	if err := ConfigureOutput(cfg, &out); err != nil {
		t.Fatalf("ConfigureOutput: %v", err)
	}

	a := From(1)
	r := a.Borrow()
	err := a.Drop()
	if !errors.Is(err, ErrDanglingAlias) || !IsFatal(err) {
		t.Fatalf("owner Drop err = %v", err)
	}
	_ = r.Drop()

	if !strings.Contains(out.String(), "LIFETIME VIOLATION") {
		t.Errorf("fatal report not written:\n%s", out.String())
	}
	if !strings.Contains(out.String(), `"kind":"dangling-alias-on-owner-release"`) {
		t.Errorf("fatal report not logged as JSON:\n%s", out.String())
	}

	reports := Reports()
	if len(reports) != 1 || len(reports[0].Aliases) != 1 || len(reports[0].Aliases[0].Site) == 0 {
		t.Fatalf("Reports() = %+v", reports)
	}

	var dump bytes.Buffer
	if err := DumpReports(&dump); err != nil {
		t.Fatalf("DumpReports: %v", err)
	}
	back, err := ReadReports(&dump)
	if err != nil || len(back) != 1 || back[0].Kind != reports[0].Kind {
		t.Errorf("ReadReports = %+v, %v", back, err)
	}
}

// TestConfigure_Invalid verifies invalid configurations are rejected.
func TestConfigure_Invalid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Policy = "shrug"
	if err := Configure(cfg); err == nil {
		t.Error("Configure accepted an invalid policy")
	}
}
