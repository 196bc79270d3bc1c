package errors

import (
	stderrors "errors"
	"strings"
	"testing"
)

func TestErrorChain(t *testing.T) {
	sentinel := stderrors.New("sentinel")
	err := New("outer context").Base(sentinel).AtError()

	if !stderrors.Is(err, sentinel) {
		t.Error("errors.Is does not see through Base")
	}
	if Cause(err) != sentinel {
		t.Errorf("Cause = %v, want sentinel", Cause(err))
	}
	if got := err.Error(); !strings.Contains(got, "outer context") || !strings.Contains(got, "sentinel") {
		t.Errorf("message %q missing context or cause", got)
	}
}

func TestSeverityPropagation(t *testing.T) {
	inner := New("inner").AtError()
	outer := New("outer").Base(inner).AtInfo()

	// The most severe error in the chain wins.
	if got := GetSeverity(outer); got != SeverityError {
		t.Errorf("GetSeverity = %v, want SeverityError", got)
	}
	if got := GetSeverity(stderrors.New("plain")); got != SeverityInfo {
		t.Errorf("plain error severity = %v, want SeverityInfo", got)
	}
}

func TestCallerRecorded(t *testing.T) {
	err := New("something")
	if !strings.Contains(err.Error(), "errors.TestCallerRecorded") {
		t.Errorf("caller missing from %q", err.Error())
	}
}

func TestLogCallback(t *testing.T) {
	old := GetLogLevel()
	defer SetLogLevel(old)
	defer SetLogCallback(nil)

	SetLogLevel(SeverityDebug)
	var got []string
	SetLogCallback(func(s Severity, msg string) {
		got = append(got, s.String()+": "+msg)
	})

	LogWarning(nil, "watch out")
	LogInfo(nil, "note")

	if len(got) != 2 {
		t.Fatalf("callback invoked %d times, want 2", len(got))
	}
	if !strings.HasPrefix(got[0], "Warning:") || !strings.Contains(got[0], "watch out") {
		t.Errorf("unexpected first log %q", got[0])
	}
}

func TestShouldLog(t *testing.T) {
	old := GetLogLevel()
	defer SetLogLevel(old)

	SetLogLevel(SeverityWarning)
	if !ShouldLog(SeverityError) {
		t.Error("errors must always pass a warning-level filter")
	}
	if ShouldLog(SeverityDebug) {
		t.Error("debug passed a warning-level filter")
	}
}
