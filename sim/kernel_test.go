package sim

import (
	"errors"
	"testing"
)

const probeEvent EventType = "probe"

func mustSchedule(t *testing.T, k *Kernel, etype EventType, source EntityID, payload any, at int64) EventID {
	t.Helper()
	id, err := k.Schedule(etype, source, payload, at)
	if err != nil {
		t.Fatalf("schedule at %d: %v", at, err)
	}
	return id
}

func TestKernel_DispatchOrderByTimeThenInsertion(t *testing.T) {
	k := NewKernel()
	src := k.NewEntity()

	var got []string
	k.Subscribe(probeEvent, src, func(ev *Event) {
		got = append(got, ev.Payload.(string))
	})

	// A and B share a timestamp; C is earlier but inserted last.
	mustSchedule(t, k, probeEvent, src, "A", 5)
	mustSchedule(t, k, probeEvent, src, "B", 5)
	mustSchedule(t, k, probeEvent, src, "C", 3)

	k.Run(RunBound{})

	want := []string{"C", "A", "B"}
	if len(got) != len(want) {
		t.Fatalf("dispatched %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("dispatch order: got %v, want %v", got, want)
			break
		}
	}
	if k.Now() != 5 {
		t.Errorf("final clock: got %d, want 5", k.Now())
	}
}

func TestKernel_RejectsSchedulingInThePast(t *testing.T) {
	k := NewKernel()
	src := k.NewEntity()

	mustSchedule(t, k, probeEvent, src, nil, 5)
	k.Run(RunBound{})

	_, err := k.Schedule(probeEvent, src, nil, 3)
	var schedErr *SchedulingError
	if !errors.As(err, &schedErr) {
		t.Fatalf("expected SchedulingError, got %v", err)
	}
	if schedErr.At != 3 || schedErr.Now != 5 {
		t.Errorf("SchedulingError fields: got at=%d now=%d, want at=3 now=5", schedErr.At, schedErr.Now)
	}
}

func TestKernel_ScheduleAtCurrentTimeAllowed(t *testing.T) {
	k := NewKernel()
	src := k.NewEntity()

	fired := false
	k.Subscribe(probeEvent, src, func(*Event) { fired = true })

	mustSchedule(t, k, "tick", src, nil, 10)
	k.Subscribe("tick", src, func(*Event) {
		mustSchedule(t, k, probeEvent, src, nil, k.Now())
	})
	k.Run(RunBound{})

	if !fired {
		t.Error("same-tick event was not dispatched")
	}
	if k.Now() != 10 {
		t.Errorf("final clock: got %d, want 10", k.Now())
	}
}

func TestKernel_CancelledEventNeverDispatches(t *testing.T) {
	k := NewKernel()
	src := k.NewEntity()

	var got []string
	k.Subscribe(probeEvent, src, func(ev *Event) {
		got = append(got, ev.Payload.(string))
	})

	id := mustSchedule(t, k, probeEvent, src, "cancelled", 5)
	mustSchedule(t, k, probeEvent, src, "kept", 7)
	k.Cancel(id)
	k.Run(RunBound{})

	if len(got) != 1 || got[0] != "kept" {
		t.Errorf("dispatched %v, want [kept]", got)
	}
	if k.Metrics.EventsCancelled != 1 {
		t.Errorf("EventsCancelled: got %d, want 1", k.Metrics.EventsCancelled)
	}
}

func TestKernel_RunBoundUntil(t *testing.T) {
	k := NewKernel()
	src := k.NewEntity()

	var got []int64
	k.Subscribe(probeEvent, src, func(ev *Event) { got = append(got, ev.Time) })

	mustSchedule(t, k, probeEvent, src, nil, 10)
	mustSchedule(t, k, probeEvent, src, nil, 20)
	mustSchedule(t, k, probeEvent, src, nil, 30)

	k.Run(RunBound{Until: 20})

	if len(got) != 2 || got[0] != 10 || got[1] != 20 {
		t.Errorf("dispatched at %v, want [10 20]", got)
	}
	if k.Pending() != 1 {
		t.Errorf("pending: got %d, want 1", k.Pending())
	}
}

func TestKernel_RunBoundMaxEvents(t *testing.T) {
	k := NewKernel()
	src := k.NewEntity()
	for i := int64(1); i <= 5; i++ {
		mustSchedule(t, k, probeEvent, src, nil, i)
	}

	k.Run(RunBound{MaxEvents: 3})

	if k.Metrics.EventsDispatched != 3 {
		t.Errorf("dispatched: got %d, want 3", k.Metrics.EventsDispatched)
	}
	if k.Pending() != 2 {
		t.Errorf("pending: got %d, want 2", k.Pending())
	}
}

func TestKernel_UnsubscribedHandlerStopsFiring(t *testing.T) {
	k := NewKernel()
	src := k.NewEntity()

	calls := 0
	id := k.Subscribe(probeEvent, src, func(*Event) { calls++ })

	mustSchedule(t, k, probeEvent, src, nil, 1)
	k.Run(RunBound{})
	k.Unsubscribe(id)
	mustSchedule(t, k, probeEvent, src, nil, 2)
	k.Run(RunBound{})

	if calls != 1 {
		t.Errorf("handler calls: got %d, want 1", calls)
	}
}

func TestKernel_ClosureEventRunsAtDispatchTime(t *testing.T) {
	k := NewKernel()

	var at int64 = -1
	if _, err := k.ScheduleFunc(42, func() { at = k.Now() }); err != nil {
		t.Fatalf("ScheduleFunc: %v", err)
	}
	k.Run(RunBound{})

	if at != 42 {
		t.Errorf("closure ran at %d, want 42", at)
	}
}
