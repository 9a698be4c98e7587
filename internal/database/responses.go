package database

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/neo/personasim/internal/rating"
	"github.com/neo/personasim/internal/record"
	"github.com/neo/personasim/internal/types"
)

// SessionSummary is one session as listed by the results API
type SessionSummary struct {
	SessionID            string   `json:"session_id"`
	PersonaID            int      `json:"persona_id"`
	PersonaName          string   `json:"persona_name"`
	Iterations           int      `json:"iterations"`
	FinalRating          float64  `json:"final_rating"`
	NormalizedRating     float64  `json:"normalized_final_rating"`
	RecommendationRating *float64 `json:"recommendation_rating,omitempty"`
	ReachedTarget        bool     `json:"reached_target"`
	StartedAt            string   `json:"started_at"`
}

// SessionFilter restricts and pages ListSessions
type SessionFilter struct {
	PersonaID int // 0 means all personas
	Offset    int
	Limit     int
}

// Stats aggregates all stored sessions
type Stats struct {
	Records                int     `json:"records"`
	Sessions               int     `json:"sessions"`
	ReachedTarget          int     `json:"reached_target"`
	SuccessRate            float64 `json:"success_rate"`
	MeanFinalRating        float64 `json:"mean_final_rating"`
	MeanRecommendation     float64 `json:"mean_recommendation_rating"`
	MeanIterationsToTarget float64 `json:"mean_iterations_to_target"`
}

// psql builds sqlite statements with ? placeholders
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

const responsesTable = "persona_responses"

// InsertResponse stores one iteration record and returns its row id
func (d *Database) InsertResponse(ctx context.Context, rec record.IterationRecord) (int64, error) {
	query, args, err := psql.Insert(responsesTable).
		Columns(record.Columns...).
		Values(
			rec.SessionID,
			rec.Iteration,
			rec.PersonaID,
			rec.PersonaName,
			rec.CurrentRating,
			rec.NormalizedCurrentRating,
			rec.Reaction.String(),
			rec.Article,
			nullableFloat(rec.RecommendationRating),
			nullableFloat(rec.NormalizedRecommendationRating),
			rec.Reason,
			rec.IsFact,
			rec.IsReal,
			rec.EditorChanges,
		).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build insert: %w", err)
	}

	result, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert response: %w", err)
	}
	return result.LastInsertId()
}

// sessionGroups summarises each session; last_id points at its final row.
func sessionGroups(filter SessionFilter) sq.SelectBuilder {
	q := psql.Select(
		"session_id",
		"MIN(persona_id) AS persona_id",
		"MIN(persona_name) AS persona_name",
		"MAX(iteration) AS iterations",
		"MAX(normalized_current_rating) AS best",
		"MIN(created_at) AS started_at",
		"MAX(id) AS last_id",
	).From(responsesTable).GroupBy("session_id")
	if filter.PersonaID != 0 {
		q = q.Where(sq.Eq{"persona_id": filter.PersonaID})
	}
	return q
}

// ListSessions returns a page of sessions, newest first, and the total count
func (d *Database) ListSessions(ctx context.Context, filter SessionFilter) ([]*SessionSummary, int, error) {
	countQ := psql.Select("COUNT(DISTINCT session_id)").From(responsesTable)
	if filter.PersonaID != 0 {
		countQ = countQ.Where(sq.Eq{"persona_id": filter.PersonaID})
	}
	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count: %w", err)
	}

	var total int
	if err := d.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count sessions: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query, args, err := psql.Select(
		"s.session_id", "s.persona_id", "s.persona_name", "s.iterations", "s.best", "s.started_at",
		"f.current_rating", "f.normalized_current_rating", "f.recommendation_rating",
	).
		FromSelect(sessionGroups(filter), "s").
		Join(responsesTable + " f ON f.id = s.last_id").
		OrderBy("s.last_id DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build sessions query: %w", err)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]*SessionSummary, 0)
	for rows.Next() {
		var (
			s         SessionSummary
			best      float64
			startedAt sql.NullString
			rec       sql.NullFloat64
		)
		if err := rows.Scan(&s.SessionID, &s.PersonaID, &s.PersonaName, &s.Iterations, &best, &startedAt,
			&s.FinalRating, &s.NormalizedRating, &rec); err != nil {
			return nil, 0, fmt.Errorf("failed to scan session: %w", err)
		}
		s.ReachedTarget = rating.MeetsTarget(best, rating.DefaultTarget)
		s.StartedAt = startedAt.String
		if rec.Valid {
			v := rec.Float64
			s.RecommendationRating = &v
		}
		sessions = append(sessions, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read sessions: %w", err)
	}
	return sessions, total, nil
}

// SessionRecords returns a session's records in insertion order
func (d *Database) SessionRecords(ctx context.Context, sessionID string) ([]record.IterationRecord, error) {
	query, args, err := psql.Select(record.Columns...).
		From(responsesTable).
		Where(sq.Eq{"session_id": sessionID}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build records query: %w", err)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []record.IterationRecord
	for rows.Next() {
		var (
			rec            record.IterationRecord
			reaction       string
			recommended    sql.NullFloat64
			normRecommended sql.NullFloat64
		)
		err := rows.Scan(
			&rec.SessionID, &rec.Iteration, &rec.PersonaID, &rec.PersonaName,
			&rec.CurrentRating, &rec.NormalizedCurrentRating, &reaction, &rec.Article,
			&recommended, &normRecommended, &rec.Reason, &rec.IsFact, &rec.IsReal, &rec.EditorChanges,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		rec.Reaction = types.Reaction(reaction)
		if recommended.Valid {
			v := recommended.Float64
			rec.RecommendationRating = &v
		}
		if normRecommended.Valid {
			v := normRecommended.Float64
			rec.NormalizedRecommendationRating = &v
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	return records, nil
}

// Stats aggregates stored sessions
func (d *Database) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM persona_responses").Scan(&stats.Records); err != nil {
		return nil, fmt.Errorf("failed to count records: %w", err)
	}

	query := `
		SELECT COUNT(*),
			SUM(CASE WHEN s.best >= ? THEN 1 ELSE 0 END),
			AVG(f.current_rating),
			AVG(f.recommendation_rating),
			AVG(CASE WHEN s.best >= ? THEN s.first_hit END)
		FROM (
			SELECT session_id,
				MAX(normalized_current_rating) AS best,
				MIN(CASE WHEN normalized_current_rating >= ? THEN iteration END) AS first_hit,
				MAX(id) AS last_id
			FROM persona_responses
			GROUP BY session_id
		) s
		JOIN persona_responses f ON f.id = s.last_id`

	threshold := rating.DefaultTarget - 1e-9
	var (
		reached    sql.NullInt64
		meanFinal  sql.NullFloat64
		meanRec    sql.NullFloat64
		meanToGoal sql.NullFloat64
	)
	err := d.db.QueryRowContext(ctx, query, threshold, threshold, threshold).
		Scan(&stats.Sessions, &reached, &meanFinal, &meanRec, &meanToGoal)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate sessions: %w", err)
	}

	stats.ReachedTarget = int(reached.Int64)
	stats.MeanFinalRating = rating.Round2(meanFinal.Float64)
	stats.MeanRecommendation = rating.Round2(meanRec.Float64)
	stats.MeanIterationsToTarget = rating.Round2(meanToGoal.Float64)
	if stats.Sessions > 0 {
		stats.SuccessRate = rating.Round2(float64(stats.ReachedTarget) / float64(stats.Sessions) * 100)
	}
	return stats, nil
}

func nullableFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
