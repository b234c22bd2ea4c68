package graphics

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/gogpu/raytrace/gpucore"
	"github.com/gogpu/raytrace/internal/gputest"
)

func newTestRing(t *testing.T, capacity uint64, frames int, guard bool) (*UploadRing, *gputest.Device) {
	t.Helper()
	dev := gputest.NewDevice()
	r, err := NewUploadRing(dev, capacity, frames, guard, "ring")
	if err != nil {
		t.Fatalf("NewUploadRing: %v", err)
	}
	return r, dev
}

func TestUploadRingReserve(t *testing.T) {
	type step struct {
		size       int
		wantOffset uint64 // offset of the returned address from the ring base
		wantNext   uint64 // Offset() after the reservation
	}
	tests := []struct {
		name  string
		steps []step
	}{
		{
			name: "sequential fits",
			steps: []step{
				{80, 0, 256},
				{300, 256, 768},
			},
		},
		{
			name: "exactly filling remaining space wraps",
			steps: []step{
				{512, 0, 512},
				{256, 512, 768},
				{256, 0, 256}, // 768+256 == capacity
			},
		},
		{
			name: "one chunk short of the end fits",
			steps: []step{
				{256, 0, 256},
				{256, 256, 512},
				{200, 512, 768},
			},
		},
		{
			name: "overflowing reservation wraps",
			steps: []step{
				{768, 0, 768},
				{257, 0, 512},
			},
		},
		{
			name: "whole ring",
			steps: []step{
				{256, 0, 256},
				{1024, 0, 0},
				{1, 0, 256},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, dev := newTestRing(t, 1024, 2, false)
			base := gputest.BufferAddress(r.Buffer())
			for i, s := range tt.steps {
				addr, size, err := r.Reserve(make([]byte, s.size))
				if err != nil {
					t.Fatalf("step %d: Reserve(%d): %v", i, s.size, err)
				}
				if got := uint64(addr - base); got != s.wantOffset {
					t.Errorf("step %d: address offset = %d, want %d", i, got, s.wantOffset)
				}
				if size != gpucore.Align(uint64(s.size), 256) {
					t.Errorf("step %d: size = %d, want %d", i, size, gpucore.Align(uint64(s.size), 256))
				}
				if r.Offset() != s.wantNext {
					t.Errorf("step %d: next offset = %d, want %d", i, r.Offset(), s.wantNext)
				}
			}
			if n := dev.Count("WriteBuffer"); n != len(tt.steps) {
				t.Errorf("WriteBuffer calls = %d, want %d", n, len(tt.steps))
			}
		})
	}
}

func TestUploadRingCopiesData(t *testing.T) {
	r, dev := newTestRing(t, 1024, 2, false)
	if _, _, err := r.Reserve([]byte("first")); err != nil {
		t.Fatal(err)
	}
	addr, _, err := r.Reserve([]byte("second"))
	if err != nil {
		t.Fatal(err)
	}
	off := uint64(addr - gputest.BufferAddress(r.Buffer()))
	data := dev.BufferData(r.Buffer())
	if got := string(data[off : off+6]); got != "second" {
		t.Errorf("ring contents at %d = %q, want %q", off, got, "second")
	}
}

func TestUploadRingTooLarge(t *testing.T) {
	r, _ := newTestRing(t, 512, 2, false)
	if _, _, err := r.Reserve(make([]byte, 513)); !errors.Is(err, ErrReservationTooLarge) {
		t.Errorf("Reserve(513) err = %v, want ErrReservationTooLarge", err)
	}
	if r.Offset() != 0 {
		t.Errorf("failed reservation moved offset to %d", r.Offset())
	}
}

func TestUploadRingGuard(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn})))
	defer SetLogger(nil)

	r, _ := newTestRing(t, 1024, 2, true)
	if _, _, err := r.Reserve(make([]byte, 768)); err != nil {
		t.Fatal(err)
	}
	r.EndFrame()
	if _, _, err := r.Reserve(make([]byte, 256)); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 0 {
		t.Fatalf("warned with in-flight usage at capacity: %s", buf.String())
	}
	if _, _, err := r.Reserve(make([]byte, 256)); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "overrun") {
		t.Errorf("no overrun warning, log = %q", buf.String())
	}

	// The first frame's usage retires once its slot is reused.
	buf.Reset()
	r.EndFrame()
	if _, _, err := r.Reserve(make([]byte, 256)); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 0 {
		t.Errorf("warned after usage retired: %s", buf.String())
	}
}

func TestUploadRingGuardDisabled(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	defer SetLogger(nil)

	r, _ := newTestRing(t, 512, 2, false)
	for i := 0; i < 8; i++ {
		if _, _, err := r.Reserve(make([]byte, 256)); err != nil {
			t.Fatal(err)
		}
	}
	if buf.Len() != 0 {
		t.Errorf("unguarded ring logged: %s", buf.String())
	}
}
