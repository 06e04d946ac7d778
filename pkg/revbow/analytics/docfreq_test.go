package analytics

import (
	"context"
	"fmt"
	"testing"
)

func TestDocFreqCountsGroupsNotOccurrences(t *testing.T) {
	a := NewDocFreq()
	a.Process([]string{"great", "great", "great", "sound"})
	a.Process([]string{"great"})
	a.Process(nil)

	if a.Groups() != 2 {
		t.Errorf("Groups = %d, want 2 (empty group ignored)", a.Groups())
	}
	if a.DF("great") != 2 {
		t.Errorf("DF(great) = %d, want 2", a.DF("great"))
	}
	if a.DF("sound") != 1 {
		t.Errorf("DF(sound) = %d, want 1", a.DF("sound"))
	}
}

func TestFilterScenario(t *testing.T) {
	// "great" in 3 of 10 groups is kept; "the" in all 10 is dropped.
	a := NewDocFreq()
	for i := 0; i < 10; i++ {
		tokens := []string{"the", fmt.Sprintf("uniq%d", i)}
		if i < 3 {
			tokens = append(tokens, "great")
		}
		a.Process(tokens)
	}

	kept := a.Filter(DefaultBand())
	has := make(map[string]bool)
	for _, tok := range kept {
		has[tok] = true
	}
	if !has["great"] {
		t.Error("'great' should be kept")
	}
	if has["the"] {
		t.Error("'the' should be dropped")
	}
	// 1 of 10 groups = 10%, above the 5% floor.
	if !has["uniq0"] {
		t.Error("'uniq0' should be kept")
	}
}

func TestBandBoundaries(t *testing.T) {
	band := DefaultBand()

	// P = 40: low threshold 2, high threshold 38.
	tests := []struct {
		df   int64
		keep bool
	}{
		{1, false},
		{2, true},
		{37, true},
		{38, false},
		{40, false},
	}
	for _, tt := range tests {
		if got := band.Keeps(tt.df, 40); got != tt.keep {
			t.Errorf("Keeps(%d, 40) = %v, want %v", tt.df, got, tt.keep)
		}
	}

	// P = 30: thresholds 1.5 and 28.5, so ceil(1.5)=2 is the first kept count.
	if band.Keeps(1, 30) || !band.Keeps(2, 30) {
		t.Error("lower bound at P=30 misplaced")
	}
	if !band.Keeps(28, 30) || band.Keeps(29, 30) {
		t.Error("upper bound at P=30 misplaced")
	}
}

func TestProcessAllMatchesSequential(t *testing.T) {
	streams := make([][]string, 50)
	for i := range streams {
		streams[i] = []string{fmt.Sprintf("t%d", i%7), fmt.Sprintf("t%d", i%5), "common"}
	}

	par := NewDocFreq()
	if err := par.ProcessAll(context.Background(), streams, 4); err != nil {
		t.Fatalf("ProcessAll: %v", err)
	}
	seq := NewDocFreq()
	for _, s := range streams {
		seq.Process(s)
	}

	if par.Groups() != seq.Groups() || par.Len() != seq.Len() {
		t.Fatalf("mismatch: groups %d/%d tokens %d/%d", par.Groups(), seq.Groups(), par.Len(), seq.Len())
	}
	for tok, n := range seq.Snapshot() {
		if par.DF(tok) != n {
			t.Errorf("DF(%s) = %d, want %d", tok, par.DF(tok), n)
		}
	}
}
