// Package export renders result rows for admin download.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"

	"github.com/tgexam/backend/internal/model"
)

var csvHeader = []string{
	"id",
	"ts",
	"date_iso",
	"exam_id",
	"exam_title",
	"candidate_name",
	"tg_id",
	"tg_username",
	"tg_first_name",
	"tg_last_name",
	"score",
	"max_score",
	"percent",
	"passed",
	"finish_reason",
	"duration_sec",
	"blur_count",
	"hidden_count",
	"leave_count",
	"answers_json",
	"meta_json",
}

// CSV renders the rows as an RFC 4180 document with a header line. Answer
// and meta payloads are embedded as JSON cells so spreadsheets keep one row
// per result.
func CSV(rows []model.ResultRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for i := range rows {
		r := &rows[i]

		answers := r.Answers
		if answers == nil {
			answers = []model.SubmittedAnswer{}
		}
		answersJSON, err := json.Marshal(answers)
		if err != nil {
			return nil, fmt.Errorf("marshal answers for %s: %w", r.ID, err)
		}
		meta := r.Meta
		if meta == nil {
			meta = map[string]string{}
		}
		metaJSON, err := json.Marshal(meta)
		if err != nil {
			return nil, fmt.Errorf("marshal meta for %s: %w", r.ID, err)
		}

		record := []string{
			r.ID,
			fmt.Sprintf("%d", r.Timestamp),
			r.DateISO,
			r.ExamID,
			r.ExamTitle,
			r.CandidateName,
			r.TGID,
			r.TGUsername,
			r.TGFirstName,
			r.TGLastName,
			fmt.Sprintf("%d", r.Score),
			fmt.Sprintf("%d", r.Total),
			fmt.Sprintf("%d", r.Percent),
			fmt.Sprintf("%t", r.Passed),
			string(r.FinishReason),
			fmt.Sprintf("%d", r.DurationSec),
			fmt.Sprintf("%d", r.BlurCount),
			fmt.Sprintf("%d", r.HiddenCount),
			fmt.Sprintf("%d", r.LeaveCount),
			string(answersJSON),
			string(metaJSON),
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row %s: %w", r.ID, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
