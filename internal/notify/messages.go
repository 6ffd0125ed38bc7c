package notify

import (
	"fmt"

	"github.com/tgexam/backend/internal/model"
)

// Message builders for the admin notifications. All use Telegram HTML mode.

func StartMessage(rec *model.SessionRecord) string {
	return fmt.Sprintf(
		"🟢 <b>%s</b> started the exam\nsession: <code>%s</code>",
		esc(rec.CandidateName), rec.SessionID,
	)
}

func ThresholdMessage(rec *model.SessionRecord, threshold int) string {
	return fmt.Sprintf(
		"⚠️ <b>%s</b> left the page %d times (limit %d) — attempt is being closed\nsession: <code>%s</code>",
		esc(rec.CandidateName), rec.LeaveCount, threshold, rec.SessionID,
	)
}

func FinishMessage(rec *model.SessionRecord, res *model.ResultRecord) string {
	verdict := "❌ FAILED"
	if res.Passed {
		verdict = "✅ PASSED"
	}
	return fmt.Sprintf(
		"🏁 <b>%s</b> finished: %d/%d (%d%%) — %s\nreason: %s, leaves: %d, duration: %ds\nsession: <code>%s</code>",
		esc(res.CandidateName), res.Score, res.Total, res.Percent, verdict,
		res.FinishReason, res.LeaveCount, res.DurationSec, rec.SessionID,
	)
}

func RetakeMessage(rec *model.SessionRecord, req *model.RetakeRequest) string {
	return fmt.Sprintf(
		"🔁 <b>%s</b> requests a re-attempt after %d/%d (%s)\nsession: <code>%s</code>",
		esc(req.CandidateName), req.Score, req.Total, req.FinishReason, rec.SessionID,
	)
}

// esc escapes the three characters significant to Telegram HTML mode.
func esc(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch r {
		case '<':
			out = append(out, []rune("&lt;")...)
		case '>':
			out = append(out, []rune("&gt;")...)
		case '&':
			out = append(out, []rune("&amp;")...)
		default:
			out = append(out, r)
		}
	}
	return string(out)
}
