package h2core

import "testing"

func TestStreamStateString(t *testing.T) {
	cases := map[StreamState]string{
		StreamIdle:             "Idle",
		StreamReservedLocal:    "ReservedLocal",
		StreamReservedRemote:   "ReservedRemote",
		StreamOpen:             "Open",
		StreamHalfClosedLocal:  "HalfClosedLocal",
		StreamHalfClosedRemote: "HalfClosedRemote",
		StreamClosed:           "Closed",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}

func TestNewStreamStatusIsIdle(t *testing.T) {
	s := NewStreamStatus()
	if s.State != StreamIdle {
		t.Fatalf("new status state = %v, want Idle", s.State)
	}
	if s.ExpectsContinuation || s.ShouldEnd || s.IsReserved || s.HasPriority {
		t.Fatalf("new status has unexpected bits set: %+v", s)
	}
}

func TestSetPriority(t *testing.T) {
	s := NewStreamStatus()
	link := PriorityLink{Parent: 3, Weight: 42, Exclusive: true}
	s.SetPriority(link)
	if !s.HasPriority {
		t.Fatal("HasPriority = false after SetPriority")
	}
	if s.Priority != link {
		t.Fatalf("Priority = %+v, want %+v", s.Priority, link)
	}
}
