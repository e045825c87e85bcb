package contacts

import (
	"reflect"
	"testing"
)

func sampleList() []Contact {
	return []Contact{
		{Name: "Ada Lovelace", Phone: "+1-555-0100"},
		{Name: "Grace Hopper", Phone: "+1-555-0199"},
		{Name: "alan turing", Phone: "+44-20-0000"},
	}
}

func TestSearchEmptyQueryReturnsInput(t *testing.T) {
	t.Parallel()

	list := sampleList()
	got := Search(list, "")
	if !reflect.DeepEqual(got, list) {
		t.Fatalf("empty query must return the input unchanged")
	}
}

func TestSearchNameCaseInsensitive(t *testing.T) {
	t.Parallel()

	got := Search(sampleList(), "ADA")
	if len(got) != 1 || got[0].Name != "Ada Lovelace" {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestSearchPhoneLiteral(t *testing.T) {
	t.Parallel()

	got := Search(sampleList(), "555-01")
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(got))
	}
}

func TestSearchPreservesOrder(t *testing.T) {
	t.Parallel()

	got := Search(sampleList(), "a")
	for i := 1; i < len(got); i++ {
		// matches keep their relative position from the input
		if indexOf(sampleList(), got[i].Name) < indexOf(sampleList(), got[i-1].Name) {
			t.Fatalf("order not preserved: %+v", got)
		}
	}
}

func TestSearchIdempotent(t *testing.T) {
	t.Parallel()

	once := Search(sampleList(), "ada")
	twice := Search(once, "ada")
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("search must be idempotent")
	}
}

func TestSearchNoMatches(t *testing.T) {
	t.Parallel()

	if got := Search(sampleList(), "zzz"); len(got) != 0 {
		t.Fatalf("expected no matches, got %+v", got)
	}
}

func indexOf(list []Contact, name string) int {
	for i, c := range list {
		if c.Name == name {
			return i
		}
	}
	return -1
}
