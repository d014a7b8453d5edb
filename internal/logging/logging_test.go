package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{" warning ", LevelWarn},
		{"error", LevelError},
		{"verbose", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLevelString(t *testing.T) {
	if LevelWarn.String() != "warn" {
		t.Errorf("String() = %q", LevelWarn.String())
	}
	if Level(42).String() != "unknown" {
		t.Errorf("String() = %q", Level(42).String())
	}
}

func TestTextOutput(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelInfo, Output: &buf, Name: "test"})

	WithComponent(l.Logger, "binder").Info("bound", "group", "main")
	l.V(1).Info("hidden")
	l.Error(errors.New("bad"), "failed", "path", "name")

	out := buf.String()
	for _, want := range []string{"bound", "component=binder", "group=main", "failed", "path=name", "bad"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "hidden") {
		t.Errorf("V(1) message written at info level:\n%s", out)
	}
}

func TestJSONOutputAndSetLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelError, Format: FormatJSON, Output: &buf})

	l.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info written at error level: %s", buf.String())
	}

	l.SetLevel(LevelDebug)
	if l.Level() != LevelDebug {
		t.Errorf("Level() = %v", l.Level())
	}
	l.V(1).Info("detail", "n", 1)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("unmarshal %q: %v", buf.String(), err)
	}
	if line["msg"] != "detail" {
		t.Errorf("msg = %v", line["msg"])
	}
}

func TestSetLevelConcurrent(t *testing.T) {
	l := New(Config{Level: LevelInfo, Output: &bytes.Buffer{}})
	levels := []Level{LevelDebug, LevelInfo, LevelWarn, LevelError}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func(lv Level) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				l.SetLevel(lv)
			}
		}(levels[i])
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if got := l.Level(); got < LevelDebug || got > LevelError {
					t.Errorf("Level() = %v", got)
				}
			}
		}()
	}
	wg.Wait()

	for _, lv := range levels {
		l.SetLevel(lv)
		if got := l.Level(); got != lv {
			t.Errorf("Level() = %v, want %v", got, lv)
		}
	}
}

func TestDiscard(t *testing.T) {
	l := Discard()
	l.Info("nothing")
	if l.Enabled() {
		t.Error("discard logger reports enabled")
	}
}
