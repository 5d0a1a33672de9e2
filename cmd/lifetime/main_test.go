package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/kolkov/lifetime/internal/lifetime/cell"
	"github.com/kolkov/lifetime/lifetime"
)

func quietRuntime(t *testing.T, policy string) {
	t.Helper()
	cfg := lifetime.DefaultConfig()
	cfg.Policy = policy
	cfg.Log.NoColor = true
	if err := lifetime.ConfigureOutput(cfg, io.Discard); err != nil {
		t.Fatalf("ConfigureOutput: %v", err)
	}
	t.Cleanup(cell.Reset)
}

func TestRunDemo(t *testing.T) {
	quietRuntime(t, "report")

	tests := []struct {
		mode string
		want string
	}{
		{passClone, "Value of 'b' is: 20\nValue of 'a' is: 15\n"},
		{passMutable, "Value of 'b' is: 20\nValue of 'a' is: 15\n"},
		{passMove, "Value of 'b' is: 20\n'a' was moved from and no longer holds a value\n"},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			var out bytes.Buffer
			if err := runDemo(&out, tt.mode); err != nil {
				t.Fatalf("runDemo: %v", err)
			}
			if out.String() != tt.want {
				t.Errorf("output = %q, want %q", out.String(), tt.want)
			}
		})
	}
}

func TestRunDemo_UnknownMode(t *testing.T) {
	quietRuntime(t, "report")

	if err := runDemo(io.Discard, "copy"); err == nil {
		t.Fatal("expected error for unknown pass mode")
	}
}

func TestRunScenarios(t *testing.T) {
	for _, policy := range []string{"report", "panic"} {
		t.Run(policy, func(t *testing.T) {
			quietRuntime(t, policy)

			var out bytes.Buffer
			if err := runScenarios(&out); err != nil {
				t.Fatalf("runScenarios: %v\n%s", err, out.String())
			}
			if strings.Contains(out.String(), "FAIL") {
				t.Errorf("unexpected failure:\n%s", out.String())
			}
			if got := strings.Count(out.String(), "PASS"); got != len(scenarios) {
				t.Errorf("PASS count = %d, want %d", got, len(scenarios))
			}
		})
	}
}

func TestRunContend(t *testing.T) {
	quietRuntime(t, "report")

	res, err := runContend(context.Background(), 4, 200)
	if err != nil {
		t.Fatalf("runContend: %v", err)
	}
	if res.Workers != 4 {
		t.Errorf("Workers = %d, want 4", res.Workers)
	}
	if res.Acquired+res.Conflicts != 800 {
		t.Errorf("attempts = %d, want 800", res.Acquired+res.Conflicts)
	}
	if res.Final != res.Acquired {
		t.Errorf("final = %d, acquired = %d", res.Final, res.Acquired)
	}
	if err := checkContend(io.Discard, res); err != nil {
		t.Errorf("checkContend: %v", err)
	}
}

func TestRunContend_InvalidArgs(t *testing.T) {
	quietRuntime(t, "report")

	if _, err := runContend(context.Background(), 0, 10); err == nil {
		t.Error("expected error for zero workers")
	}
	if _, err := runContend(context.Background(), -3, 10); err == nil {
		t.Error("expected error for negative workers")
	}
	if _, err := runContend(context.Background(), 2, -1); err == nil {
		t.Error("expected error for negative rounds")
	}
}

func TestCheckContend_Mismatch(t *testing.T) {
	var out bytes.Buffer
	err := checkContend(&out, contendResult{Acquired: 3, Final: 2})
	if err == nil {
		t.Fatal("expected error when final value differs from acquisitions")
	}
	if !strings.Contains(out.String(), "final value 2 != acquisitions 3") {
		t.Errorf("output = %q", out.String())
	}
}

func TestDropOwnerLast(t *testing.T) {
	quietRuntime(t, "panic")

	t.Run("owner unchanged", func(t *testing.T) {
		o := lifetime.From(1)
		alias := o.Borrow()
		if err := dropOwnerLast(o, alias); err != nil {
			t.Fatalf("dropOwnerLast: %v", err)
		}
		if !o.Released() || !alias.Released() {
			t.Error("handles not released")
		}
	})

	t.Run("after move", func(t *testing.T) {
		o := lifetime.From(1)
		alias := o.Borrow()
		if err := o.MoveTo(alias); err != nil {
			t.Fatalf("MoveTo: %v", err)
		}
		if err := dropOwnerLast(o, alias); err != nil {
			t.Fatalf("dropOwnerLast: %v", err)
		}
		if !o.Released() || !alias.Released() {
			t.Error("handles not released")
		}
	})
}
