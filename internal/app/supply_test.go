package app

import (
	"testing"

	"trivia-orchestrator/internal/domain"
)

func TestRequiredQuestions(t *testing.T) {
	cases := []struct {
		participants int
		perHead      int
		want         int
	}{
		{3, 2, 8},  // 6 * 1.25 = 7.5, rounds up
		{1, 2, 3},  // 2.5 rounds up
		{2, 2, 5},  // exactly 5
		{4, 5, 25}, // exactly 25
		{1, 1, 2},  // 1.25 rounds up
	}
	for _, tc := range cases {
		got := requiredQuestions(tc.participants, tc.perHead)
		if got != tc.want {
			t.Fatalf("requiredQuestions(%d, %d) = %d, want %d", tc.participants, tc.perHead, got, tc.want)
		}
	}
}

func TestPartitionChunksAreContiguousAndDisjoint(t *testing.T) {
	order := []domain.Participant{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	questions := make([]domain.Question, 12)
	for i := range questions {
		questions[i] = domain.Question{ID: string(rune('a' + i)), SequenceNumber: i + 1}
	}

	chunks := partitionChunks(order, questions, 3)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}

	owners := make(map[string]string)
	for _, p := range order {
		chunk := chunks[p.ID]
		if len(chunk) != 3 {
			t.Fatalf("expected chunk of 3 for %s, got %d", p.ID, len(chunk))
		}
		for i := 1; i < len(chunk); i++ {
			if chunk[i].SequenceNumber != chunk[i-1].SequenceNumber+1 {
				t.Fatalf("chunk for %s not contiguous: %+v", p.ID, chunk)
			}
		}
		for _, q := range chunk {
			if owner, dup := owners[q.ID]; dup {
				t.Fatalf("question %s in chunks for %s and %s", q.ID, owner, p.ID)
			}
			owners[q.ID] = p.ID
		}
	}
}
