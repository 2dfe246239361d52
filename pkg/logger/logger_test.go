package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func newTestLogger() (*Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return New(Options{ServiceName: "test", Level: zerolog.DebugLevel, Output: buf}), buf
}

func TestErrorCarriesContextFields(t *testing.T) {
	log, buf := newTestLogger()

	ctx := log.WithRequestID(context.Background(), "req-42")
	ctx = log.WithBranchID(ctx, "7")
	log.Error(ctx, "deduction failed", errors.New("insufficient stock"))

	entry := buf.String()
	if !bytes.Contains(buf.Bytes(), []byte(`"request_id":"req-42"`)) {
		t.Fatalf("missing request_id; entry=%s", entry)
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"branch_id":"7"`)) {
		t.Fatalf("missing branch_id; entry=%s", entry)
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"stack"`)) {
		t.Fatalf("expected stack on error; entry=%s", entry)
	}
}

func TestWithFieldsMergesIntoEntries(t *testing.T) {
	log, buf := newTestLogger()

	ctx := log.WithFields(context.Background(), map[string]any{
		"order_number": "A1B2C3",
		"gateway":      "payway",
	})
	log.Info(ctx, "order created")

	if !bytes.Contains(buf.Bytes(), []byte(`"order_number":"A1B2C3"`)) {
		t.Fatalf("missing order_number; entry=%s", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"gateway":"payway"`)) {
		t.Fatalf("missing gateway; entry=%s", buf.String())
	}
}

func TestWarnStackOnlyWhenEnabled(t *testing.T) {
	quietBuf := &bytes.Buffer{}
	quiet := New(Options{ServiceName: "test", Level: zerolog.DebugLevel, Output: quietBuf})
	quiet.Warn(context.Background(), "slow query")
	if bytes.Contains(quietBuf.Bytes(), []byte(`"stack"`)) {
		t.Fatalf("did not expect stack without WarnStack; entry=%s", quietBuf.String())
	}

	stackBuf := &bytes.Buffer{}
	noisy := New(Options{ServiceName: "test", Level: zerolog.DebugLevel, Output: stackBuf, WarnStack: true})
	noisy.Warn(context.Background(), "slow query")
	if !bytes.Contains(stackBuf.Bytes(), []byte(`"stack"`)) {
		t.Fatalf("expected stack with WarnStack; entry=%s", stackBuf.String())
	}
}

func TestParseLevelFallsBackToInfo(t *testing.T) {
	cases := map[string]zerolog.Level{
		"":        zerolog.InfoLevel,
		"debug":   zerolog.DebugLevel,
		"  WARN ": zerolog.WarnLevel,
		"bogus":   zerolog.InfoLevel,
	}
	for input, want := range cases {
		if got := ParseLevel(input); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}
