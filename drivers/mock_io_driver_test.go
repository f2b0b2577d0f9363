package drivers

import (
	"bytes"
	"context"
	"testing"
)

func assertBools(t testing.TB, got, want bool) {
	t.Helper()

	if got != want {
		t.Errorf("got %v want %v", got, want)
	}
}

func assertUint16Slices(t testing.TB, got, want []uint16) {
	t.Helper()

	if len(got) != len(want) {
		t.Errorf("len(got) = %d len(want) = %d", len(got), len(want))
		return
	}

	for key, val := range got {
		if want[key] != val {
			t.Errorf("for key [%d] got: %d want: %d", key, val, want[key])
		}
	}
}

func TestMockInputGetState(t *testing.T) {
	inEnabled := MockInput{State: true}
	inDisabled := MockInput{State: false}

	state, _ := inEnabled.GetState()
	assertBools(t, state, true)

	state, _ = inDisabled.GetState()
	assertBools(t, state, false)
}

func TestMockOutputSetState(t *testing.T) {
	out := MockOutput{}

	for _, want := range []bool{true, false, true} {
		out.Set(want)
		got, _ := out.GetState()
		assertBools(t, got, want)
	}
}

func TestMockIoSetup(t *testing.T) {
	md := MockIoDriver{}
	assertBools(t, md.IsReady(), false)

	md.Setup(context.Background(), []uint16{1, 3, 5}, []uint16{2, 4})
	assertBools(t, md.IsReady(), true)

	inputs, outputs := md.GetAllIo()
	assertUint16Slices(t, inputs, []uint16{1, 3, 5})
	assertUint16Slices(t, outputs, []uint16{2, 4})

	md.Close()
	assertBools(t, md.IsReady(), false)
}

func TestMockGetOutput(t *testing.T) {
	md := MockIoDriver{}
	md.Setup(context.Background(), []uint16{}, []uint16{3})
	output, err := md.GetOutput(3)
	if err != nil {
		t.Fatalf("GetOutput returned err: %v", err)
	}

	output.Set(true)
	anotherOut, _ := md.GetOutput(3)
	got, _ := anotherOut.GetState()
	assertBools(t, got, true)

	if _, err := md.GetOutput(4); err == nil {
		t.Error("expected error for missing output")
	}
}

func TestMockMonitorStateChanges(t *testing.T) {
	md := MockIoDriver{}
	md.Setup(context.Background(), nil, []uint16{7})

	buf := &bytes.Buffer{}
	md.MonitorStateChanges(buf)

	out, _ := md.GetOutput(7)
	out.Set(true)
	out.Set(true)

	want := "[pin 7] state changed to true\n"
	if buf.String() != want {
		t.Errorf("got %q want %q", buf.String(), want)
	}
}

func TestMockPush(t *testing.T) {
	md := MockIoDriver{}
	md.Setup(context.Background(), []uint16{2}, nil)

	listener := &countingListener{}
	in, _ := md.GetInput(2)
	in.SubscribeToPushEvent(listener)

	if err := md.Push(2, PushEventLongPress); err != nil {
		t.Fatal(err)
	}
	if len(listener.events) != 1 || listener.events[0] != PushEventLongPress {
		t.Errorf("got events %v", listener.events)
	}
	if err := md.Push(9, PushEventSinglePress); err == nil {
		t.Error("expected error for missing input")
	}
}

func TestMockMotor(t *testing.T) {
	md := MockIoDriver{}

	motor, _ := md.GetMotor()
	motor.SetSpeed(55)
	got, _ := motor.GetSpeed()
	if got != 55 {
		t.Errorf("got %v want 55", got)
	}
	if err := motor.SetSpeed(-101); err == nil {
		t.Error("expected range error")
	}
}
