package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	tele "gopkg.in/telebot.v3"

	"github.com/tgexam/backend/internal/model"
)

// AdminAPI is the slice of registry functionality the bot commands need.
type AdminAPI interface {
	RecentSessions(ctx context.Context) ([]model.SessionRecord, error)
	DeleteResult(ctx context.Context, id string) (bool, error)
}

// TelegramRelay implements Relay over a long-polling Telegram bot and serves
// the administrator command surface (/start, /export, /whoami, /sessions,
// /delete). Admin-only commands are gated by sender id.
type TelegramRelay struct {
	bot     *tele.Bot
	adminID int64
	appURL  string
	log     zerolog.Logger
}

// NewTelegramRelay connects the bot. The returned relay does not poll until
// Start is called.
func NewTelegramRelay(token string, adminID int64, appURL string, log zerolog.Logger) (*TelegramRelay, error) {
	bot, err := tele.NewBot(tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 25 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	return &TelegramRelay{
		bot:     bot,
		adminID: adminID,
		appURL:  appURL,
		log:     log.With().Str("component", "telegram_relay").Logger(),
	}, nil
}

// Notify sends one HTML message to the administrator. Failures are logged
// and reported as OutcomeFailed, never as an error.
func (r *TelegramRelay) Notify(_ context.Context, text string) Outcome {
	_, err := r.bot.Send(&tele.User{ID: r.adminID}, text, tele.ModeHTML)
	if err != nil {
		r.log.Warn().Err(err).Msg("notification delivery failed")
		return OutcomeFailed
	}
	return OutcomeDelivered
}

// AttachAdmin registers the bot command handlers against the registry.
func (r *TelegramRelay) AttachAdmin(api AdminAPI) {
	r.bot.Handle("/start", func(c tele.Context) error {
		return c.Send(
			"Hi! This is the exam bot.\n\n"+
				"• Candidates: just follow the link from your invitation.\n"+
				"• Admin: /export, /sessions, /delete <result-id>",
		)
	})

	r.bot.Handle("/whoami", func(c tele.Context) error {
		sender := c.Sender()
		username := sender.Username
		if username == "" {
			username = "-"
		}
		return c.Send(
			fmt.Sprintf("id: <b>%d</b>\nusername: <b>%s</b>", sender.ID, esc(username)),
			tele.ModeHTML,
		)
	})

	r.bot.Handle("/export", r.adminOnly(func(c tele.Context) error {
		hint := fmt.Sprintf(
			"✅ Export:\nJSON: %s/api/v1/admin/results?api_key=REPORT_API_KEY\n"+
				"CSV:  %s/api/v1/admin/results.csv?api_key=REPORT_API_KEY\n\n"+
				"⚠️ Substitute your key for REPORT_API_KEY.",
			r.appURL, r.appURL,
		)
		return c.Send(hint)
	}))

	r.bot.Handle("/sessions", r.adminOnly(func(c tele.Context) error {
		sessions, err := api.RecentSessions(context.Background())
		if err != nil {
			r.log.Error().Err(err).Msg("list sessions for bot failed")
			return c.Send("Could not list sessions.")
		}
		if len(sessions) == 0 {
			return c.Send("No live sessions.")
		}

		var b strings.Builder
		b.WriteString(fmt.Sprintf("Live sessions (%d):\n", len(sessions)))
		for _, s := range sessions {
			state := "issued"
			switch {
			case s.Finished():
				state = fmt.Sprintf("finished %d/%d (%s)", s.Score, s.Total, s.FinishReason)
			case s.StartedAt != nil:
				state = fmt.Sprintf("in progress, leaves=%d", s.LeaveCount)
			}
			name := s.CandidateName
			if name == "" {
				name = "?"
			}
			b.WriteString(fmt.Sprintf("• <code>%s</code> %s — %s\n", s.SessionID, esc(name), state))
		}
		return c.Send(b.String(), tele.ModeHTML)
	}))

	r.bot.Handle("/delete", r.adminOnly(func(c tele.Context) error {
		id := strings.TrimSpace(c.Message().Payload)
		if id == "" {
			return c.Send("Usage: /delete <result-id>")
		}
		found, err := api.DeleteResult(context.Background(), id)
		if err != nil {
			r.log.Error().Err(err).Str("result_id", id).Msg("delete result via bot failed")
			return c.Send("Delete failed.")
		}
		if !found {
			return c.Send("No such result.")
		}
		return c.Send("Deleted.")
	}))

	r.bot.Handle(tele.OnText, func(c tele.Context) error {
		return c.Send("Got it. For an export use /export")
	})
}

// adminOnly wraps a handler with the administrator identity gate.
func (r *TelegramRelay) adminOnly(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if c.Sender() == nil || c.Sender().ID != r.adminID {
			return c.Send("⛔ No access.")
		}
		return next(c)
	}
}

// Start begins long polling. Blocks; run in a goroutine.
func (r *TelegramRelay) Start() {
	r.log.Info().Msg("Bot polling started")
	r.bot.Start()
}

// Stop halts the poller.
func (r *TelegramRelay) Stop() {
	r.bot.Stop()
}
