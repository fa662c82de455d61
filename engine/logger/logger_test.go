package logger

import (
	"bytes"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
)

func TestNewLogger(t *testing.T) {
	l := NewLogger(uint32(log.DebugLevel))
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestLogger_LogMethods(t *testing.T) {
	l := NewLogger(uint32(log.DebugLevel))
	var buf bytes.Buffer
	l.SetWriter(&buf)

	l.Debug("test debug")
	l.Info("test info")
	l.Warn("test warn")
	l.Debugf("test %s", "debugf")
	l.Infof("test %s", "infof")
	l.Warnf("test %s", "warnf")
	l.Errorf("test %s", "errorf")

	for _, want := range []string{"test debug", "test info", "test warn", "test debugf",
		"test infof", "test warnf", "test errorf"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("expected %q in output, got: %s", want, buf.String())
		}
	}
}

func TestLogger_Level(t *testing.T) {
	l := NewLogger(uint32(log.InfoLevel))
	var buf bytes.Buffer
	l.SetWriter(&buf)

	l.Debugf("hidden")
	if buf.Len() > 0 {
		t.Errorf("expected debug to be filtered, got: %s", buf.String())
	}
	l.Infof("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("expected info output, got: %s", buf.String())
	}
}

func TestLogger_Prefix(t *testing.T) {
	l := NewLogger(uint32(log.DebugLevel)).(*logger)

	var buf bytes.Buffer
	l.Logger.SetOutput(&buf)

	l.Prefix("[test] ")
	l.Info("message")
	l.Infof("formatted %d", 1)

	output := buf.String()
	if !strings.Contains(output, "[test] message") {
		t.Errorf("expected prefix in output, got: %s", output)
	}
	if !strings.Contains(output, "[test] formatted 1") {
		t.Errorf("expected prefix in formatted output, got: %s", output)
	}

	l.Prefix("")
	buf.Reset()
	l.Info("no prefix")

	output = buf.String()
	if strings.Contains(output, "[test]") {
		t.Errorf("expected no prefix in output, got: %s", output)
	}
}

func TestLogger_Silent(t *testing.T) {
	l := NewLogger(uint32(log.DebugLevel)).(*logger)

	var buf bytes.Buffer
	l.Logger.SetOutput(&buf)

	l.Silent(true)
	l.Info("should not appear")

	if buf.Len() > 0 {
		t.Errorf("expected no output in silent mode, got: %s", buf.String())
	}

	l.Silent(false)
	l.Info("should appear")

	if buf.Len() == 0 {
		t.Error("expected output after disabling silent mode")
	}
}

func TestLogger_SilentPanicsIfNotEnabled(t *testing.T) {
	l := NewLogger(uint32(log.DebugLevel)).(*logger)

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic when disabling Silent without enabling first")
		}
	}()

	l.Silent(false)
}

func TestNoopLogger(t *testing.T) {
	l := NewNoopLogger()
	l.Infof("dropped %s", "message")
	l.Warn("dropped")
	l.Errorf("dropped")
}

// Ensure interfaces are implemented
var _ Logger = (*logger)(nil)
