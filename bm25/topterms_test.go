package bm25

import "testing"

func stopwordSet(words ...string) func(string) bool {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return func(w string) bool {
		_, ok := set[w]
		return ok
	}
}

func TestTopMatchingWordsFiltersStopwordUnigrams(t *testing.T) {
	scores := map[string]float64{"the": 5, "napoleon": 3}
	got := TopMatchingWords(scores, stopwordSet("the"))
	if len(got) != 1 || got[0] != "napoleon" {
		t.Fatalf("got %v, want [napoleon]", got)
	}
}

func TestTopMatchingWordsFiltersBigramWithStopwordComponent(t *testing.T) {
	scores := map[string]float64{"of_the": 5, "zheng_he": 3}
	got := TopMatchingWords(scores, stopwordSet("the"))
	if len(got) != 1 || got[0] != "zheng he" {
		t.Fatalf("got %v, want [\"zheng he\"]", got)
	}
}

func TestTopMatchingWordsCapsAtFive(t *testing.T) {
	scores := map[string]float64{}
	for i, w := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		scores[w] = float64(10 - i)
	}
	got := TopMatchingWords(scores, stopwordSet())
	if len(got) != 5 {
		t.Fatalf("got %d terms, want 5", len(got))
	}
	if got[0] != "a" {
		t.Fatalf("expected highest-scoring term first, got %v", got)
	}
}

func TestTopMatchingWordsEmpty(t *testing.T) {
	if got := TopMatchingWords(nil, stopwordSet()); got != nil {
		t.Fatalf("got %v, want nil", got)
	}
}
