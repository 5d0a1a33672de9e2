// Package stackdepot records the call sites that created cell handles.
//
// Every handle may carry the hash of the stack that created it. When an
// owner is released while aliases are still alive, the violation report
// resolves those hashes back into frames so the reader can see where each
// surviving alias was borrowed.
//
// Design:
//   - Fixed-size traces (8 frames) keyed by FNV-1a hash of the PCs
//   - Global sync.Map storage, identical sites stored once
//   - Capture happens only when stack capture is enabled in the runtime
//
// Usage:
//
//	site := stackdepot.CaptureStack(1)
//	// ... later, while building a report
//	for _, f := range stackdepot.GetStack(site).Frames() {
//	    fmt.Println(f)
//	}
package stackdepot

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"runtime"
	"strings"
	"sync"
)

const (
	// MaxFrames is the maximum number of frames kept per creation site.
	MaxFrames = 8
)

// StackTrace is a captured creation site.
type StackTrace struct {
	PC [MaxFrames]uintptr
}

// Frame is a resolved stack frame, suitable for reports and dumps.
type Frame struct {
	Function string `msgpack:"function"`
	File     string `msgpack:"file"`
	Line     int    `msgpack:"line"`
}

// String renders the frame as "function (file:line)".
func (f Frame) String() string {
	return fmt.Sprintf("%s (%s:%d)", f.Function, f.File, f.Line)
}

var depot sync.Map // uint64 (hash) -> *StackTrace

// CaptureStack captures the caller's stack and returns its hash.
//
// skip is the number of frames above CaptureStack's caller to omit;
// CaptureStack(0) starts at the function that called CaptureStack.
//
// Returns 0 when no frames are available.
//
// Thread Safety: Safe for concurrent calls from multiple goroutines.
func CaptureStack(skip int) uint64 {
	var pcs [MaxFrames]uintptr
	n := runtime.Callers(skip+2, pcs[:])
	if n == 0 {
		return 0
	}

	hash := hashStack(pcs[:n])
	if _, exists := depot.Load(hash); exists {
		return hash
	}

	depot.LoadOrStore(hash, &StackTrace{PC: pcs})
	return hash
}

// GetStack retrieves a stack trace by hash, or nil if unknown.
//
// Thread Safety: Safe for concurrent calls.
func GetStack(hash uint64) *StackTrace {
	if hash == 0 {
		return nil
	}
	val, ok := depot.Load(hash)
	if !ok {
		return nil
	}
	return val.(*StackTrace)
}

func hashStack(pcs []uintptr) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	for _, pc := range pcs {
		binary.LittleEndian.PutUint64(buf[:], uint64(pc))
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}

// Frames resolves the trace into frames, dropping runtime internals.
//
// A nil trace resolves to no frames.
func (st *StackTrace) Frames() []Frame {
	if st == nil {
		return nil
	}

	n := 0
	for n < MaxFrames && st.PC[n] != 0 {
		n++
	}
	if n == 0 {
		return nil
	}

	var out []Frame
	frames := runtime.CallersFrames(st.PC[:n])
	for {
		frame, more := frames.Next()
		if !strings.HasPrefix(frame.Function, "runtime.") && frame.Function != "" {
			out = append(out, Frame{Function: frame.Function, File: frame.File, Line: frame.Line})
		}
		if !more {
			break
		}
	}
	return out
}

// FormatStack renders the trace in the indented two-line-per-frame layout
// used by violation reports:
//
//	main.worker()
//	    /path/to/file.go:45
func (st *StackTrace) FormatStack() string {
	return FormatFrames(st.Frames())
}

// FormatFrames renders already-resolved frames like FormatStack.
func FormatFrames(frames []Frame) string {
	if len(frames) == 0 {
		return "  <unknown>\n"
	}
	var buf strings.Builder
	for _, f := range frames {
		fmt.Fprintf(&buf, "  %s()\n", f.Function)
		fmt.Fprintf(&buf, "      %s:%d\n", f.File, f.Line)
	}
	return buf.String()
}

// Reset clears the depot.
//
// Thread Safety: NOT safe for concurrent calls. Test setup only.
func Reset() {
	depot = sync.Map{}
}

// Len returns the number of distinct sites stored.
func Len() int {
	n := 0
	depot.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
