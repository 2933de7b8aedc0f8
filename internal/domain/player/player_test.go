package player

import (
	"fmt"
	"testing"
)

func TestCaughtIsTerminal(t *testing.T) {
	p := New("P1", "Runner", RoleHunted, false)

	if !p.MarkCaught() {
		t.Fatalf("Expected first catch of an alive player to succeed")
	}
	if p.Status != StatusCaught {
		t.Fatalf("Expected status Caught, got %s", p.Status)
	}

	if p.MarkCaught() {
		t.Errorf("Catching an already caught player must be a no-op")
	}
	if p.MarkReconnected() {
		t.Errorf("A caught player must not return to Alive via reconnect")
	}

	p.MarkDisconnected()
	if p.Status != StatusCaught {
		t.Errorf("Disconnect must not overwrite Caught, got %s", p.Status)
	}
}

func TestDisconnectReconnect(t *testing.T) {
	p := New("P1", "Runner", RoleHunted, false)

	p.MarkDisconnected()
	if p.Status != StatusDisconnected {
		t.Fatalf("Expected Disconnected, got %s", p.Status)
	}

	if !p.MarkReconnected() {
		t.Fatalf("Expected reconnect of a disconnected player to succeed")
	}
	if p.Status != StatusAlive {
		t.Errorf("Expected Alive after reconnect, got %s", p.Status)
	}

	if p.MarkReconnected() {
		t.Errorf("Reconnecting an alive player must be a no-op")
	}
}

func TestInventoryCap(t *testing.T) {
	p := New("P1", "Runner", RoleHunted, false)

	for i := 0; i < InventoryCap; i++ {
		if !p.AddItem(fmt.Sprintf("item-%d", i)) {
			t.Fatalf("Expected slot %d to be free", i)
		}
	}
	if p.AddItem("overflow") {
		t.Errorf("Expected inventory to reject items beyond capacity")
	}

	if !p.RemoveItem("item-3") {
		t.Fatalf("Expected removal of a held item to succeed")
	}
	if p.HoldsItem("item-3") {
		t.Errorf("Item should be gone after removal")
	}
	if !p.AddItem("replacement") {
		t.Errorf("Expected a freed slot to accept a new item")
	}

	if p.RemoveItem("never-held") {
		t.Errorf("Removing an unheld item must return false")
	}
}

func TestClearCatchLinks(t *testing.T) {
	h := New("H1", "Chaser", RoleHunter, false)
	r := New("R1", "Runner", RoleHunted, false)
	h.CatchingID = r.ID
	r.CatcherID = h.ID

	h.ClearCatchLinks()
	r.ClearCatchLinks()

	if h.CatchingID != "" || h.CatcherID != "" {
		t.Errorf("Hunter links not cleared: catching=%q catcher=%q", h.CatchingID, h.CatcherID)
	}
	if r.CatchingID != "" || r.CatcherID != "" {
		t.Errorf("Hunted links not cleared: catching=%q catcher=%q", r.CatchingID, r.CatcherID)
	}
}

func TestRoleOpposite(t *testing.T) {
	if RoleHunter.Opposite() != RoleHunted || RoleHunted.Opposite() != RoleHunter {
		t.Errorf("Role.Opposite must swap the two roles")
	}
	if Role("spectator").Valid() {
		t.Errorf("Unknown roles must not validate")
	}
}
