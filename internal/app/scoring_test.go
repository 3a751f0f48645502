package app

import (
	"testing"

	"trivia-orchestrator/internal/domain"
)

func TestPointsFor(t *testing.T) {
	cases := []struct {
		mode    domain.Mode
		kind    domain.AnswerKind
		correct bool
		want    int
	}{
		{domain.ModeSimultaneous, domain.AnswerNormal, true, 5},
		{domain.ModeSimultaneous, domain.AnswerNormal, false, 0},
		{domain.ModeSequentialMultipleChoice, domain.AnswerNormal, true, 2},
		{domain.ModeSequentialMultipleChoice, domain.AnswerNormal, false, 0},
		{domain.ModeSequentialYesNo, domain.AnswerNormal, true, 2},
		{domain.ModeSequentialMultipleChoice, domain.AnswerBonus, true, 1},
		{domain.ModeSequentialMultipleChoice, domain.AnswerBonus, false, 0},
		{domain.ModeSequentialMultipleChoice, domain.AnswerOriginalReturn, true, 2},
		{domain.ModeSequentialYesNo, domain.AnswerOriginalReturn, true, 2},
	}
	for _, tc := range cases {
		got := pointsFor(tc.mode, tc.kind, tc.correct)
		if got != tc.want {
			t.Fatalf("pointsFor(%s, %s, %v) = %d, want %d", tc.mode, tc.kind, tc.correct, got, tc.want)
		}
	}
}
