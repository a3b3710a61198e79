package usecase

import (
	"math"
	"testing"

	"github.com/kirillkom/vault-quizbot/internal/core/domain"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-12
}

func TestFuseRRFScenario(t *testing.T) {
	fused := fuseRRF([][]string{{"A", "B", "C"}, {"B", "D", "A"}}, 60)
	if len(fused) != 4 {
		t.Fatalf("expected 4 fused documents, got %d", len(fused))
	}

	want := []struct {
		text  string
		score float64
	}{
		{"B", 1.0/61 + 1.0/60},
		{"A", 1.0/60 + 1.0/62},
		{"D", 1.0 / 61},
		{"C", 1.0 / 62},
	}
	for i, w := range want {
		if fused[i].Text != w.text {
			t.Fatalf("position %d: expected %s, got %s", i, w.text, fused[i].Text)
		}
		if !almostEqual(fused[i].FusedScore, w.score) {
			t.Fatalf("%s: expected score %v, got %v", w.text, w.score, fused[i].FusedScore)
		}
	}
}

func TestFuseRRFSingleListScoreIsReciprocalRank(t *testing.T) {
	fused := fuseRRF([][]string{{"x", "y"}, {"z"}}, 60)
	scores := map[string]float64{}
	for _, doc := range fused {
		scores[doc.Text] = doc.FusedScore
	}
	if !almostEqual(scores["y"], 1.0/61) {
		t.Fatalf("expected y=1/61, got %v", scores["y"])
	}
	if !almostEqual(scores["z"], 1.0/60) {
		t.Fatalf("expected z=1/60, got %v", scores["z"])
	}
}

func TestFuseRRFIsStable(t *testing.T) {
	lists := [][]string{{"a", "b", "c"}, {"c", "b", "a"}, {"d"}}
	first := fuseRRF(lists, 60)
	for i := 0; i < 20; i++ {
		again := fuseRRF(lists, 60)
		for j := range first {
			if first[j].Text != again[j].Text {
				t.Fatalf("run %d: order changed at %d: %s vs %s", i, j, first[j].Text, again[j].Text)
			}
		}
	}
}

func TestFuseRRFTiesKeepEncounterOrder(t *testing.T) {
	fused := fuseRRF([][]string{{"first"}, {"second"}}, 60)
	if fused[0].Text != "first" || fused[1].Text != "second" {
		t.Fatalf("expected encounter order on tie, got %+v", fused)
	}
}

func TestFuseRRFDefaultsK(t *testing.T) {
	fused := fuseRRF([][]string{{"a"}}, 0)
	if !almostEqual(fused[0].FusedScore, 1.0/60) {
		t.Fatalf("expected default k=60, got score %v", fused[0].FusedScore)
	}
}

func TestRankedListsSkipsNilSlots(t *testing.T) {
	a, b := "A", "B"
	result := domain.QueryResult{Documents: [][]*string{{&a, nil, &b}, {nil}}}
	fused := fuseRRF(result.RankedLists(), 60)
	if len(fused) != 2 {
		t.Fatalf("expected nil slots to be skipped, got %+v", fused)
	}
	if !almostEqual(fused[1].FusedScore, 1.0/62) {
		t.Fatalf("expected B to keep rank 2, got %v", fused[1].FusedScore)
	}
}

func TestTrimCandidates(t *testing.T) {
	docs := []domain.ScoredDocument{{Text: "a"}, {Text: "b"}, {Text: "c"}}
	if got := trimCandidates(docs, 2); len(got) != 2 {
		t.Fatalf("expected 2, got %d", len(got))
	}
	if got := trimCandidates(docs, 0); len(got) != 3 {
		t.Fatalf("expected untrimmed, got %d", len(got))
	}
}

func TestFuseRRFScoresRepeatedTextOncePerList(t *testing.T) {
	fused := fuseRRF([][]string{{"X", "X", "Y"}, {"Y", "X"}}, 60)
	want := map[string]float64{
		"X": 1.0/60 + 1.0/61,
		"Y": 1.0/62 + 1.0/60,
	}
	if len(fused) != 2 {
		t.Fatalf("expected 2 documents, got %+v", fused)
	}
	for _, doc := range fused {
		if !almostEqual(doc.FusedScore, want[doc.Text]) {
			t.Fatalf("score(%s) = %v, want %v", doc.Text, doc.FusedScore, want[doc.Text])
		}
	}
}
