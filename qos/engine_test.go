package qos

import (
	"testing"

	"github.com/riftio/mqttc/storage"
)

func newTestEngine(maxSlots int) *Engine {
	return NewEngine(maxSlots, storage.NewRing(4096))
}

func TestPreparePublishAllocatesDistinctIDs(t *testing.T) {
	e := newTestEngine(4)

	id1, err := e.PreparePublish(1)
	if err != nil {
		t.Fatalf("PreparePublish: %v", err)
	}
	id2, err := e.PreparePublish(2)
	if err != nil {
		t.Fatalf("PreparePublish: %v", err)
	}
	if id1 == id2 {
		t.Fatalf("expected distinct ids, got %d twice", id1)
	}
	if id1 == 0 || id2 == 0 {
		t.Fatal("packet identifier 0 must never be allocated")
	}
}

func TestOutboundQoS1SlotFullReturnsErrNoSlot(t *testing.T) {
	e := newTestEngine(2)

	if _, err := e.PreparePublish(1); err != nil {
		t.Fatalf("PreparePublish 1: %v", err)
	}
	if _, err := e.PreparePublish(1); err != nil {
		t.Fatalf("PreparePublish 2: %v", err)
	}
	if _, err := e.PreparePublish(1); err != ErrNoSlot {
		t.Fatalf("expected ErrNoSlot at capacity, got %v", err)
	}

	// QoS2 has its own sub-table and is unaffected by QoS1 exhaustion.
	if _, err := e.PreparePublish(2); err != nil {
		t.Fatalf("PreparePublish (qos2): %v", err)
	}
}

func TestOnPubAckFreesSlotForReuse(t *testing.T) {
	e := newTestEngine(1)

	id, err := e.PreparePublish(1)
	if err != nil {
		t.Fatalf("PreparePublish: %v", err)
	}
	if err := e.SaveOutbound(id, []byte("publish-body")); err != nil {
		t.Fatalf("SaveOutbound: %v", err)
	}

	if _, err := e.PreparePublish(1); err != ErrNoSlot {
		t.Fatalf("expected ErrNoSlot before ack, got %v", err)
	}

	if ok := e.OnPubAck(id); !ok {
		t.Fatal("expected OnPubAck to report the id as known")
	}
	if ok := e.OnPubAck(id); ok {
		t.Fatal("expected a duplicate PUBACK to be reported as unknown")
	}

	if _, err := e.PreparePublish(1); err != nil {
		t.Fatalf("expected slot free after ack: %v", err)
	}
}

func TestOutboundQoS2Handshake(t *testing.T) {
	e := newTestEngine(1)

	id, err := e.PreparePublish(2)
	if err != nil {
		t.Fatalf("PreparePublish: %v", err)
	}
	if err := e.SaveOutbound(id, []byte("publish-body")); err != nil {
		t.Fatalf("SaveOutbound: %v", err)
	}

	if ok := e.OnPubRec(id); !ok {
		t.Fatal("expected OnPubRec to accept the first PUBREC")
	}
	if err := e.ReplaceOutbound(id, []byte("pubrel-body")); err != nil {
		t.Fatalf("ReplaceOutbound: %v", err)
	}

	// A duplicate PUBREC after the transition must not re-trigger a PUBREL.
	if ok := e.OnPubRec(id); ok {
		t.Fatal("expected a duplicate PUBREC to be rejected")
	}

	if _, err := e.PreparePublish(2); err != ErrNoSlot {
		t.Fatalf("expected slot still occupied pending PUBCOMP, got %v", err)
	}

	if ok := e.OnPubComp(id); !ok {
		t.Fatal("expected OnPubComp to complete the handshake")
	}
	if _, err := e.PreparePublish(2); err != nil {
		t.Fatalf("expected slot free after PUBCOMP: %v", err)
	}
}

func TestInboundQoS2DuplicateBeforePubrelDoesNotReDeliver(t *testing.T) {
	e := newTestEngine(4)

	e.OnInboundPublish(7)
	e.OnInboundPublish(7) // duplicate PUBLISH, DUP=1, before PUBREL

	deliver, tracked := e.OnPubRel(7)
	if !tracked {
		t.Fatal("expected id 7 to be tracked")
	}
	if !deliver {
		t.Fatal("expected delivery exactly once, on PUBREL")
	}

	// A second PUBREL (e.g. the broker retransmitting) must not redeliver,
	// and is reported as untracked since the slot was already freed.
	if deliver, tracked := e.OnPubRel(7); deliver || tracked {
		t.Fatalf("expected second PUBREL to be untracked, got deliver=%v tracked=%v", deliver, tracked)
	}
}

func TestPendingReplaysPreservesSaveOrderAndDupFlag(t *testing.T) {
	e := newTestEngine(4)

	id1, _ := e.PreparePublish(1)
	e.SaveOutbound(id1, []byte("first"))
	id2, _ := e.PreparePublish(2)
	e.SaveOutbound(id2, []byte("second"))

	e.OnPubRec(id2)
	e.ReplaceOutbound(id2, []byte("second-pubrel"))

	replays := e.PendingReplays()
	if len(replays) != 2 {
		t.Fatalf("expected 2 pending replays, got %d", len(replays))
	}
	if replays[0].ID != id1 || string(replays[0].Body) != "first" || replays[0].IsPubrel {
		t.Fatalf("unexpected first replay: %+v", replays[0])
	}
	if replays[1].ID != id2 || string(replays[1].Body) != "second-pubrel" || !replays[1].IsPubrel {
		t.Fatalf("unexpected second replay: %+v", replays[1])
	}
}

func TestResetDropsOutstandingState(t *testing.T) {
	e := newTestEngine(4)

	id, _ := e.PreparePublish(1)
	e.SaveOutbound(id, []byte("body"))
	e.OnInboundPublish(9)

	e.Reset()

	if replays := e.PendingReplays(); len(replays) != 0 {
		t.Fatalf("expected no pending replays after Reset, got %d", len(replays))
	}
	if _, err := e.PreparePublish(1); err != nil {
		t.Fatalf("expected fresh slot after Reset: %v", err)
	}
	if deliver, tracked := e.OnPubRel(9); deliver || tracked {
		t.Fatal("expected inbound QoS2 state to be cleared by Reset")
	}
}
