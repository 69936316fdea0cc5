package core

import (
	"context"
	"testing"
)

type tcArtifactStore struct{ data map[string][][]byte }

func (a *tcArtifactStore) Save(sid, name string, b []byte) (int, error) {
	if a.data == nil {
		a.data = map[string][][]byte{}
	}
	key := sid + "/" + name
	a.data[key] = append(a.data[key], append([]byte{}, b...))
	return len(a.data[key]), nil
}

func (a *tcArtifactStore) Get(sid, name string) ([]byte, error) {
	v := a.data[sid+"/"+name]
	if len(v) == 0 {
		return nil, nil
	}
	return v[len(v)-1], nil
}

func (a *tcArtifactStore) Versions(sid, name string) ([]int, error) { return nil, nil }
func (a *tcArtifactStore) List(sid string) ([]string, error)        { return nil, nil }
func (a *tcArtifactStore) Delete(sid, name string) error            { return nil }

func newRunContextForTest(arts ArtifactStore) (*RunContext, chan Event) {
	emit := make(chan Event, 4)
	sess := NewSession("sess-x", "app", "user")
	sess.SetState("persisted", "yes")
	rc := NewRunContext(context.Background(), sess, "run-x", AgentInfo{Name: "Agent1", Type: "model"}, Content{}, emit, RunContextOptions{ArtifactStore: arts})
	return rc, emit
}

func TestToolContext_StateAndActions(t *testing.T) {
	rc, _ := newRunContextForTest(nil)
	tc := NewToolContext(rc, "fc-1")

	if tc.SessionID() != "sess-x" || tc.RunID() != "run-x" || tc.AgentName() != "Agent1" || tc.FunctionCallID() != "fc-1" {
		t.Fatalf("identity mismatch")
	}

	if v, ok := tc.GetState("persisted"); !ok || v != "yes" {
		t.Fatalf("expected session state passthrough, got %v", v)
	}

	tc.SetState("k", 1)
	if v, ok := tc.GetState("k"); !ok || v != 1 {
		t.Fatalf("expected staged state, got %v", v)
	}
	tc.SkipSummarization()

	ev := NewFunctionResponseEvent("run-x", "Agent1", "fc-1", "f", "ok", nil)
	tc.ApplyActions(&ev)
	if ev.Actions.StateDelta["k"] != 1 {
		t.Errorf("state delta not applied: %+v", ev.Actions)
	}
	if !ev.IsFinalResponse() {
		t.Error("skip summarization should make the response final")
	}
}

func TestToolContext_SaveArtifact(t *testing.T) {
	rc, _ := newRunContextForTest(nil)
	if _, err := NewToolContext(rc, "fc").SaveArtifact("a", []byte("x")); err == nil {
		t.Fatal("expected error without artifact store")
	}

	rc, _ = newRunContextForTest(&tcArtifactStore{})
	tc := NewToolContext(rc, "fc")
	if v, err := tc.SaveArtifact("a", []byte("1")); err != nil || v != 1 {
		t.Fatalf("save 1: v=%d err=%v", v, err)
	}
	if v, err := tc.SaveArtifact("a", []byte("2")); err != nil || v != 2 {
		t.Fatalf("save 2: v=%d err=%v", v, err)
	}
	data, err := tc.LoadArtifact("a")
	if err != nil || string(data) != "2" {
		t.Fatalf("load: %q %v", data, err)
	}
	if tc.Actions().ArtifactDelta["a"] != 2 {
		t.Errorf("expected latest version in delta: %+v", tc.Actions().ArtifactDelta)
	}
}

func TestRunContext_EmitEventMergesDeltas(t *testing.T) {
	rc, emit := newRunContextForTest(&tcArtifactStore{})
	rc.SetState("x", "y")
	if _, err := rc.SaveArtifact("doc", []byte("d")); err != nil {
		t.Fatal(err)
	}

	if err := rc.EmitEvent(NewMessageEvent("run-x", "Agent1", "hi")); err != nil {
		t.Fatal(err)
	}
	ev := <-emit
	if ev.Actions.StateDelta["x"] != "y" || ev.Actions.ArtifactDelta["doc"] != 1 {
		t.Fatalf("deltas not merged: %+v", ev.Actions)
	}
	if len(rc.StateDelta) != 0 || len(rc.Artifacts) != 0 {
		t.Error("buffers should reset after emit")
	}

	if h := rc.History(); len(h) != 1 || h[0].Text() != "hi" {
		t.Errorf("expected emitted event in working history, got %+v", h)
	}
	if v, ok := rc.Session.GetState("x"); !ok || v != "y" {
		t.Error("state delta should be applied to the working session")
	}
}

func TestRunContext_EmitEventCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sess := NewSession("s", "app", "u")
	rc := NewRunContext(ctx, sess, "r", AgentInfo{}, Content{}, make(chan Event), RunContextOptions{})
	if err := rc.EmitEvent(NewEvent("r", "a")); err == nil {
		t.Fatal("expected cancellation error")
	}
}
