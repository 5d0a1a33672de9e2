package stackdepot

import (
	"strings"
	"testing"
)

// captureHere gives tests a stable call site.
func captureHere() uint64 {
	return CaptureStack(0)
}

// TestCaptureStack tests basic capture and retrieval.
func TestCaptureStack(t *testing.T) {
	Reset()

	hash := captureHere()
	if hash == 0 {
		t.Fatal("CaptureStack returned zero hash")
	}

	stack := GetStack(hash)
	if stack == nil {
		t.Fatal("GetStack returned nil for valid hash")
	}

	frames := stack.Frames()
	if len(frames) == 0 {
		t.Fatal("Frames returned no frames")
	}
	if !strings.HasSuffix(frames[0].Function, "stackdepot.captureHere") {
		t.Errorf("first frame = %q, want captureHere", frames[0].Function)
	}
}

// TestCaptureStack_Deduplication verifies one site is stored once.
func TestCaptureStack_Deduplication(t *testing.T) {
	Reset()

	var hashes [3]uint64
	for i := range hashes {
		hashes[i] = captureHere()
	}

	if hashes[0] != hashes[1] || hashes[1] != hashes[2] {
		t.Errorf("same call site produced different hashes: %v", hashes)
	}
	if got := Len(); got != 1 {
		t.Errorf("Len() = %d, want 1", got)
	}
}

// TestGetStack_Unknown verifies zero and unknown hashes.
func TestGetStack_Unknown(t *testing.T) {
	Reset()

	if GetStack(0) != nil {
		t.Error("GetStack(0) should be nil")
	}
	if GetStack(0xdeadbeef) != nil {
		t.Error("GetStack(unknown) should be nil")
	}
}

// TestFormatStack_Nil verifies the placeholder for missing sites.
func TestFormatStack_Nil(t *testing.T) {
	var st *StackTrace
	if got := st.FormatStack(); got != "  <unknown>\n" {
		t.Errorf("FormatStack() = %q", got)
	}
}

// TestFormatStack_Layout verifies the two-line frame layout.
func TestFormatStack_Layout(t *testing.T) {
	Reset()

	out := GetStack(captureHere()).FormatStack()
	if !strings.Contains(out, "stackdepot.captureHere()") {
		t.Errorf("formatted stack missing function line:\n%s", out)
	}
	if !strings.Contains(out, "stackdepot_test.go:") {
		t.Errorf("formatted stack missing file line:\n%s", out)
	}
	if strings.Contains(out, "runtime.Callers") {
		t.Errorf("runtime frames should be filtered:\n%s", out)
	}
}
