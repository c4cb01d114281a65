package logger

import (
	"bytes"
	"os"
	"strings"
	"sync"
	"testing"
)

// capture enables verbose output into a buffer for the duration of a test.
func capture(t *testing.T, verboseOn bool) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(verboseOn)
	t.Cleanup(func() {
		SetVerbose(false)
		SetOutput(os.Stderr)
	})
	return &buf
}

func TestSetVerbose(t *testing.T) {
	capture(t, false)
	if IsVerbose() {
		t.Fatal("verbose should start disabled")
	}
	SetVerbose(true)
	if !IsVerbose() {
		t.Fatal("verbose should be enabled")
	}
}

func TestLevels(t *testing.T) {
	tests := []struct {
		name string
		log  func()
		want string
	}{
		{"debug", func() { Debug("embedding %d chunks", 12) }, "[DEBUG] embedding 12 chunks\n"},
		{"info", func() { Info("loaded %s", "a.pdf") }, "[INFO] loaded a.pdf\n"},
		{"warn", func() { Warn("skipped %q", "b.bin") }, "[WARN] skipped \"b.bin\"\n"},
		{"section", func() { Section("Ingestion") }, "\n=== Ingestion ===\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := capture(t, true)
			tt.log()
			if got := buf.String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSilentWhenNotVerbose(t *testing.T) {
	buf := capture(t, false)

	Debug("hidden")
	Info("hidden")
	Warn("hidden")
	Section("hidden")

	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestSetOutput_Switches(t *testing.T) {
	first := capture(t, true)
	Debug("one")

	var second bytes.Buffer
	SetOutput(&second)
	Debug("two")

	if !strings.Contains(first.String(), "one") || strings.Contains(first.String(), "two") {
		t.Errorf("first writer got %q", first.String())
	}
	if !strings.Contains(second.String(), "two") {
		t.Errorf("second writer got %q", second.String())
	}
}

func TestConcurrentAccess(t *testing.T) {
	capture(t, true)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			Debug("worker %d", n)
		}(i)
		go func(n int) {
			defer wg.Done()
			SetVerbose(n%2 == 0)
			_ = IsVerbose()
		}(i)
	}
	wg.Wait()
}
