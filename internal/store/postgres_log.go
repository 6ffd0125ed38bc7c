package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tgexam/backend/internal/model"
)

// PostgresResultLog is the durable ResultLog backend, enabled when
// DATABASE_URL is set. Schema lives in migrations/.
type PostgresResultLog struct {
	pool *pgxpool.Pool
}

// NewPostgresResultLog wraps an already-connected pool.
func NewPostgresResultLog(pool *pgxpool.Pool) *PostgresResultLog {
	return &PostgresResultLog{pool: pool}
}

func (l *PostgresResultLog) Append(ctx context.Context, rec *model.ResultRecord) error {
	answers, err := json.Marshal(rec.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	meta, err := json.Marshal(rec.Meta)
	if err != nil {
		return fmt.Errorf("encode meta: %w", err)
	}

	_, err = l.pool.Exec(ctx, `
		INSERT INTO results (
			id, ts, date_iso, exam_id, exam_title,
			candidate_name, tg_id, tg_username, tg_first_name, tg_last_name,
			score, total, percent, passed, finish_reason, duration_sec,
			blur_count, hidden_count, leave_count, answers, meta
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20::jsonb, $21::jsonb
		)`,
		rec.ID, rec.Timestamp, rec.DateISO, rec.ExamID, rec.ExamTitle,
		rec.CandidateName, rec.TGID, rec.TGUsername, rec.TGFirstName, rec.TGLastName,
		rec.Score, rec.Total, rec.Percent, rec.Passed, string(rec.FinishReason), rec.DurationSec,
		rec.BlurCount, rec.HiddenCount, rec.LeaveCount, answers, meta,
	)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

func (l *PostgresResultLog) List(ctx context.Context, filter ResultFilter) ([]model.ResultRecord, error) {
	query := `
		SELECT id, ts, date_iso, exam_id, exam_title,
		       candidate_name, tg_id, tg_username, tg_first_name, tg_last_name,
		       score, total, percent, passed, finish_reason, duration_sec,
		       blur_count, hidden_count, leave_count, answers, meta
		FROM results
		WHERE ($1::bigint IS NULL OR ts >= $1)
		  AND ($2::bigint IS NULL OR ts <= $2)
		  AND ($3::text = '' OR candidate_name = $3)
		  AND ($4::text = '' OR tg_id = $4)
		ORDER BY ts ASC`

	rows, err := l.pool.Query(ctx, query, filter.FromTS, filter.ToTS, filter.Candidate, filter.TGID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var out []model.ResultRecord
	for rows.Next() {
		var (
			rec          model.ResultRecord
			finishReason string
			answers      []byte
			meta         []byte
		)
		if err := rows.Scan(
			&rec.ID, &rec.Timestamp, &rec.DateISO, &rec.ExamID, &rec.ExamTitle,
			&rec.CandidateName, &rec.TGID, &rec.TGUsername, &rec.TGFirstName, &rec.TGLastName,
			&rec.Score, &rec.Total, &rec.Percent, &rec.Passed, &finishReason, &rec.DurationSec,
			&rec.BlurCount, &rec.HiddenCount, &rec.LeaveCount, &answers, &meta,
		); err != nil {
			return nil, fmt.Errorf("scan result row: %w", err)
		}
		rec.FinishReason = model.FinishReason(finishReason)
		if len(answers) > 0 {
			_ = json.Unmarshal(answers, &rec.Answers)
		}
		if len(meta) > 0 {
			_ = json.Unmarshal(meta, &rec.Meta)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (l *PostgresResultLog) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := l.pool.Exec(ctx, `DELETE FROM results WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete result: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
