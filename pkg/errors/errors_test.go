package errors

import (
	"strings"
	"testing"
	"time"
)

func TestGroveErrorString(t *testing.T) {
	err := &GroveError{
		Op:   "test.operation",
		Kind: KindSurface,
		Err:  &CallbackError{Event: "click", Handle: 7, Recovered: "boom"},
	}
	got := err.Error()
	if got == "" {
		t.Error("expected non-empty error string")
	}
}

func TestGroveErrorWithHandle(t *testing.T) {
	err := &GroveError{
		Op:     "test.operation",
		Kind:   KindSurface,
		Handle: 42,
		Err:    &CallbackError{Event: "click", Handle: 42},
	}
	got := err.Error()
	if got == "" {
		t.Error("expected non-empty error string")
	}
	want := "handle=42"
	if !strings.Contains(got, want) {
		t.Errorf("error string %q should contain %q", got, want)
	}
}

func TestErrorKindString(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want string
	}{
		{KindUnknown, "unknown"},
		{KindSurface, "surface"},
		{KindObserver, "observer"},
		{KindTask, "task"},
		{KindCallback, "callback"},
		{KindScenario, "scenario"},
		{KindPanic, "panic"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("ErrorKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestPanicErrorString(t *testing.T) {
	err := &PanicError{
		Value:     "test panic",
		Timestamp: time.Now(),
	}
	got := err.Error()
	want := "panic: test panic"
	if got != want {
		t.Errorf("PanicError.Error() = %q, want %q", got, want)
	}
}

func TestPanicErrorStringWithOp(t *testing.T) {
	err := &PanicError{
		Op:        "surface.Memory.Dispatch",
		Value:     "test panic",
		Timestamp: time.Now(),
	}
	got := err.Error()
	want := "panic in surface.Memory.Dispatch: test panic"
	if got != want {
		t.Errorf("PanicError.Error() = %q, want %q", got, want)
	}
}

func TestReport(t *testing.T) {
	var capturedErr *GroveError
	handler := &testHandler{
		onError: func(err *GroveError) {
			capturedErr = err
		},
	}

	oldHandler := DefaultHandler
	SetHandler(handler)
	defer SetHandler(oldHandler)

	Report(&GroveError{
		Op:   "test.op",
		Kind: KindTask,
		Err:  &CallbackError{Event: "resize", Handle: 1},
	})

	if capturedErr == nil {
		t.Fatal("expected error to be captured")
	}
	if capturedErr.Op != "test.op" {
		t.Errorf("Op = %q, want %q", capturedErr.Op, "test.op")
	}
	if capturedErr.Timestamp.IsZero() {
		t.Error("expected Timestamp to be set")
	}
}

func TestReportPanic(t *testing.T) {
	var capturedPanic *PanicError
	handler := &testHandler{
		onPanic: func(err *PanicError) {
			capturedPanic = err
		},
	}

	oldHandler := DefaultHandler
	SetHandler(handler)
	defer SetHandler(oldHandler)

	ReportPanic(&PanicError{
		Value:     "test panic value",
		Timestamp: time.Now(),
	})

	if capturedPanic == nil {
		t.Fatal("expected panic to be captured")
	}
	if capturedPanic.Value != "test panic value" {
		t.Errorf("Value = %v, want %q", capturedPanic.Value, "test panic value")
	}
}

func TestRecover(t *testing.T) {
	var capturedPanic *PanicError
	handler := &testHandler{
		onPanic: func(err *PanicError) {
			capturedPanic = err
		},
	}

	oldHandler := DefaultHandler
	SetHandler(handler)
	defer SetHandler(oldHandler)

	func() {
		defer Recover("test.recover")
		panic("intentional test panic")
	}()

	if capturedPanic == nil {
		t.Fatal("expected panic to be recovered and captured")
	}
	if capturedPanic.Value != "intentional test panic" {
		t.Errorf("Value = %v, want %q", capturedPanic.Value, "intentional test panic")
	}
	if capturedPanic.Op != "test.recover" {
		t.Errorf("Op = %q, want %q", capturedPanic.Op, "test.recover")
	}
}

func TestCaptureStack(t *testing.T) {
	stack := CaptureStack()
	if stack == "" {
		t.Error("expected non-empty stack trace")
	}
	if !strings.Contains(stack, "testing") && !strings.Contains(stack, "runtime") {
		t.Errorf("stack trace should contain testing or runtime frames, got: %s", stack)
	}
}

func TestSetHandlerNil(t *testing.T) {
	SetHandler(nil)
	if DefaultHandler == nil {
		t.Error("SetHandler(nil) should set default LogHandler, not nil")
	}
	if _, ok := DefaultHandler.(*LogHandler); !ok {
		t.Errorf("SetHandler(nil) should set LogHandler, got %T", DefaultHandler)
	}
}

func TestCallbackErrorString(t *testing.T) {
	err := &CallbackError{
		Event:     "click",
		Handle:    3,
		Recovered: "nil pointer dereference",
		Timestamp: time.Now(),
	}
	got := err.Error()
	want := `panic in "click" callback for handle 3: nil pointer dereference`
	if got != want {
		t.Errorf("CallbackError.Error() = %q, want %q", got, want)
	}

	err2 := &CallbackError{
		Event:     "resize",
		Handle:    3,
		Err:       &GroveError{Op: "o", Kind: KindObserver, Err: err},
		Timestamp: time.Now(),
	}
	got2 := err2.Error()
	if !strings.Contains(got2, `error in "resize" callback`) {
		t.Errorf("CallbackError.Error() = %q, should contain 'error in'", got2)
	}

	err3 := &CallbackError{Event: "click", Handle: 9}
	got3 := err3.Error()
	want3 := `unknown error in "click" callback for handle 9`
	if got3 != want3 {
		t.Errorf("CallbackError.Error() = %q, want %q", got3, want3)
	}
}

func TestReportCallbackError(t *testing.T) {
	var capturedErr *CallbackError
	handler := &testHandler{
		onCallbackError: func(err *CallbackError) {
			capturedErr = err
		},
	}

	oldHandler := DefaultHandler
	SetHandler(handler)
	defer SetHandler(oldHandler)

	ReportCallbackError(&CallbackError{
		Event:     "click",
		Handle:    5,
		Recovered: "test panic",
	})

	if capturedErr == nil {
		t.Fatal("expected callback error to be captured")
	}
	if capturedErr.Event != "click" {
		t.Errorf("Event = %q, want %q", capturedErr.Event, "click")
	}
	if capturedErr.Timestamp.IsZero() {
		t.Error("expected Timestamp to be set")
	}
}

type testHandler struct {
	onError         func(*GroveError)
	onPanic         func(*PanicError)
	onCallbackError func(*CallbackError)
}

func (h *testHandler) HandleError(err *GroveError) {
	if h.onError != nil {
		h.onError(err)
	}
}

func (h *testHandler) HandlePanic(err *PanicError) {
	if h.onPanic != nil {
		h.onPanic(err)
	}
}

func (h *testHandler) HandleCallbackError(err *CallbackError) {
	if h.onCallbackError != nil {
		h.onCallbackError(err)
	}
}
