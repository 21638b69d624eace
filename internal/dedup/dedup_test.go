package dedup

import "testing"

func TestListingID(t *testing.T) {
	id := ListingID("yad2", "abc123")
	if id != "yad2_abc123" {
		t.Errorf("unexpected id: %s", id)
	}

	if ListingID("yad2", "abc123") != id {
		t.Errorf("same inputs must yield the same id")
	}
}

func TestTokenSetFirstOccurrenceWins(t *testing.T) {
	set := NewTokenSet()

	if !set.Add("a") {
		t.Errorf("first add of 'a' should succeed")
	}
	if set.Add("a") {
		t.Errorf("second add of 'a' should report duplicate")
	}
	if !set.Add("b") {
		t.Errorf("first add of 'b' should succeed")
	}

	if !set.Contains("a") || !set.Contains("b") {
		t.Errorf("set should contain both tokens")
	}
	if set.Contains("c") {
		t.Errorf("set should not contain unseen token")
	}
	if set.Size() != 2 {
		t.Errorf("expected size 2, got %d", set.Size())
	}
}

func TestTokenSetIgnoresEmptyToken(t *testing.T) {
	set := NewTokenSet()

	if set.Add("") {
		t.Errorf("empty token must never be recorded")
	}
	if set.Size() != 0 {
		t.Errorf("expected empty set, got size %d", set.Size())
	}
}
