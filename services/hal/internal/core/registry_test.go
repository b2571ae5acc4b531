package core

import (
	"context"
	"testing"

	"camlib-go/errcode"
	"camlib-go/types"
)

type nopBuilder struct{}

func (nopBuilder) Build(context.Context, BuilderInput) (Device, error) { return nil, errcode.Unsupported }

func TestRegisterBuilderDuplicatePanics(t *testing.T) {
	RegisterBuilder("test_dup", nopBuilder{})
	if _, ok := lookupBuilder("test_dup"); !ok {
		t.Fatal("builder not found")
	}
	defer func() {
		if recover() == nil {
			t.Fatal("duplicate registration did not panic")
		}
	}()
	RegisterBuilder("test_dup", nopBuilder{})
}

func TestAs(t *testing.T) {
	p, code := As[types.PollStart](types.PollStart{Verb: "capture", IntervalMs: 5})
	if code != "" || p.Verb != "capture" {
		t.Fatalf("got %+v %q", p, code)
	}
	if _, code := As[types.PollStart](&types.PollStart{}); code != errcode.InvalidPayload {
		t.Fatalf("pointer payload: %q", code)
	}
	if z, code := As[types.PollStop](nil); code != "" || z.Verb != "" {
		t.Fatalf("nil payload: %+v %q", z, code)
	}
}

func TestTopics(t *testing.T) {
	a := CapAddr{Domain: "vision", Kind: types.KindCamera, Name: "cam0"}
	got := capEventTagged(a, "ready")
	want := []any{"hal", "cap", "vision", "camera", "cam0", "event", "ready"}
	if got.Len() != len(want) {
		t.Fatalf("len %d", got.Len())
	}
	for i := range want {
		if got.At(i) != want[i] {
			t.Fatalf("token %d = %v, want %v", i, got.At(i), want[i])
		}
	}
	if c := CapCtrl(a, "capture"); c.Len() != 7 || c.At(6) != "capture" {
		t.Fatalf("control topic %v", c)
	}
}
