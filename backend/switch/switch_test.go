package _switch

import (
	"context"
	"testing"

	"github.com/gurshaan17/2d-metaverse/backend/model"
	"github.com/rs/zerolog"
)

func newTestSwitch() *Switch {
	logger := zerolog.Nop()
	return NewSwitch(&logger)
}

func bufferedWire() model.Wire {
	return model.Wire{
		RX: make(chan model.Event, 16),
		TX: make(chan model.Event, 16),
	}
}

func drain(w model.Wire) []model.Event {
	var out []model.Event
	for {
		select {
		case ev := <-w.TX:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestBroadcastSkipsSender(t *testing.T) {
	sw := newTestSwitch()
	wa, wb, wc := bufferedWire(), bufferedWire(), bufferedWire()
	sw.Join("r1", "a", wa)
	sw.Join("r1", "b", wb)
	sw.Join("r1", "c", wc)

	ev := model.Event{Name: "test", Data: []byte(`"hi"`)}
	if !sw.Broadcast(context.Background(), "r1", "a", ev) {
		t.Fatal("broadcast reported no delivery")
	}

	if got := drain(wa); len(got) != 0 {
		t.Fatalf("sender received its own broadcast: %v", got)
	}
	for id, w := range map[string]model.Wire{"b": wb, "c": wc} {
		got := drain(w)
		if len(got) != 1 || got[0].Name != "test" {
			t.Fatalf("endpoint %s: unexpected events %v", id, got)
		}
	}
}

func TestBroadcastIncludingSender(t *testing.T) {
	sw := newTestSwitch()
	wa := bufferedWire()
	sw.Join("r1", "a", wa)

	sw.Broadcast(context.Background(), "r1", "", model.Event{Name: "test"})
	if got := drain(wa); len(got) != 1 {
		t.Fatalf("expected delivery to sole member, got %v", got)
	}
}

func TestBroadcastToEmptyGroup(t *testing.T) {
	sw := newTestSwitch()
	if sw.Broadcast(context.Background(), "ghost", "", model.Event{Name: "test"}) {
		t.Fatal("broadcast to absent group reported delivery")
	}
}

func TestLeaveStopsDelivery(t *testing.T) {
	sw := newTestSwitch()
	wa, wb := bufferedWire(), bufferedWire()
	sw.Join("r1", "a", wa)
	sw.Join("r1", "b", wb)

	sw.Leave("r1", "b")
	sw.Broadcast(context.Background(), "r1", "", model.Event{Name: "test"})

	if got := drain(wb); len(got) != 0 {
		t.Fatalf("departed endpoint still receives: %v", got)
	}
	if got := drain(wa); len(got) != 1 {
		t.Fatalf("remaining endpoint missed broadcast: %v", got)
	}
}

func TestDropRemovesFromAllGroups(t *testing.T) {
	sw := newTestSwitch()
	wa, wb := bufferedWire(), bufferedWire()
	sw.Join("r1", "a", wa)
	sw.Join("r2", "a", wa)
	sw.Join("r2", "b", wb)

	sw.Drop("a")

	if sw.Broadcast(context.Background(), "r1", "", model.Event{Name: "test"}) {
		t.Fatal("group with only the dropped endpoint still delivers")
	}
	sw.Broadcast(context.Background(), "r2", "", model.Event{Name: "test"})
	if got := drain(wa); len(got) != 0 {
		t.Fatalf("dropped endpoint still receives: %v", got)
	}
	if got := drain(wb); len(got) != 1 {
		t.Fatalf("survivor missed broadcast: %v", got)
	}
}

func TestBroadcastCanceledContext(t *testing.T) {
	sw := newTestSwitch()
	// no consumer and no buffer: only cancellation can unblock the send
	sw.Join("r1", "a", model.NewWire())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if sw.Broadcast(ctx, "r1", "", model.Event{Name: "test"}) {
		t.Fatal("canceled broadcast reported delivery")
	}
}
