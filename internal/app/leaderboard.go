package app

import (
	"context"
	"sort"

	"trivia-orchestrator/internal/domain"
)

// recomputeLeaderboard rebuilds the scoreboard from all persisted responses.
// Full recomputation from the system of record keeps the board drift-free;
// running it twice without new responses yields identical output.
func (s *Service) recomputeLeaderboard(ctx context.Context, quizID string) (domain.Leaderboard, error) {
	responses, err := s.db.ListResponses(ctx, quizID)
	if err != nil {
		return domain.Leaderboard{}, err
	}

	participants, err := s.db.ListParticipants(ctx, quizID)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	names := make(map[string]string, len(participants))
	for _, p := range participants {
		names[p.ID] = p.DisplayName
	}

	// Group in first-seen order; that order is the stable tie-break.
	var firstSeen []string
	totals := make(map[string]*domain.LeaderboardEntry)
	for _, r := range responses {
		entry, ok := totals[r.ParticipantID]
		if !ok {
			entry = &domain.LeaderboardEntry{
				ParticipantID: r.ParticipantID,
				DisplayName:   names[r.ParticipantID],
				PerRound:      make(map[string]int),
			}
			totals[r.ParticipantID] = entry
			firstSeen = append(firstSeen, r.ParticipantID)
		}
		entry.TotalScore += r.PointsEarned
		entry.PerRound[r.RoundID] += r.PointsEarned
	}

	entries := make([]domain.LeaderboardEntry, 0, len(firstSeen))
	for _, id := range firstSeen {
		entries = append(entries, *totals[id])
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].TotalScore > entries[j].TotalScore
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}

	return domain.Leaderboard{
		QuizID:    quizID,
		Entries:   entries,
		UpdatedAt: s.now(),
	}, nil
}

// publishLeaderboard recomputes and broadcasts the full replacement list.
func (s *Service) publishLeaderboard(ctx context.Context, sess *Session) error {
	lb, err := s.recomputeLeaderboard(ctx, sess.quizID)
	if err != nil {
		return err
	}
	sess.broadcast(domain.Event{Type: domain.EventLeaderboardUpdated, Payload: lb})
	return nil
}
