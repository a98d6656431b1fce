package session

import "testing"

func TestRegistry_OpenAndGet(t *testing.T) {
	r := NewRegistry("")

	s := r.Open()
	if s.ID == "" {
		t.Fatal("expected a session id")
	}
	if got := r.Get(s.ID); got != s {
		t.Error("Get must return the opened session")
	}

	other := r.Open()
	if other.ID == s.ID {
		t.Error("session ids must be unique")
	}

	r.Close(s.ID)
	if r.Get(s.ID) != nil {
		t.Error("closed session must be gone")
	}
}

func TestResolve_Precedence(t *testing.T) {
	r := NewRegistry("/process/default")
	s := r.Open()

	if got := r.Resolve(s, "/request/override"); got != "/request/override" {
		t.Errorf("request override must win, got %q", got)
	}

	if got := r.Resolve(s, ""); got != "/process/default" {
		t.Errorf("process default must apply before any session workspace, got %q", got)
	}

	s.SetWorkspace("/session/workspace")
	if got := r.Resolve(s, ""); got != "/session/workspace" {
		t.Errorf("session workspace must beat the process default, got %q", got)
	}
	if got := r.Resolve(s, "/request/override"); got != "/request/override" {
		t.Errorf("request override must beat the session workspace, got %q", got)
	}
}

func TestResolve_FallsBackToCwd(t *testing.T) {
	r := NewRegistry("")

	if got := r.Resolve(nil, ""); got == "" {
		t.Error("expected working directory fallback")
	}
}
