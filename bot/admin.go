package bot

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"

	"invitebot/entity"
)

const (
	defaultStatsDays = 7
	maxStatsDays     = 30
)

// adminCmd shows the admin menu with quick actions.
func (t *TgBot) adminCmd(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveUser.Id

	reqCtx, cancel := handlerContext()
	defer cancel()
	if !t.core.IsAdmin(reqCtx, chatId) {
		t.plainResponse(chatId, "⚠️ Admin access required\\.")
		return nil
	}

	t.sendWithKeyboard(chatId, "👑 Admin menu 👑\n\nChoose an action:", buildAdminKeyboard())
	return nil
}

// statsCmd renders issuance statistics for the trailing window.
// Optional argument: number of days, capped at 30.
func (t *TgBot) statsCmd(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveUser.Id

	reqCtx, cancel := handlerContext()
	defer cancel()
	if !t.core.IsAdmin(reqCtx, chatId) {
		t.plainResponse(chatId, "⚠️ Admin access required\\.")
		return nil
	}

	days := defaultStatsDays
	args := strings.Fields(ctx.EffectiveMessage.Text)
	if len(args) > 1 {
		if n, err := strconv.Atoi(args[1]); err == nil && n > 0 {
			days = n
		}
	}
	if days > maxStatsDays {
		days = maxStatsDays
	}

	stats, err := t.core.Stats(reqCtx, days)
	if err != nil {
		t.reportError(chatId, "/stats", err)
		return nil
	}

	for _, part := range splitMessage(formatStats(stats, days), maxTelegramMessageLen) {
		t.plainResponse(chatId, part)
	}
	return nil
}

func formatStats(stats []entity.DailyStats, days int) string {
	total, admin, user := entity.SumStats(stats)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📊 Invite statistics, last %d days 📊\n\n", days))
	sb.WriteString("Totals:\n")
	sb.WriteString(fmt.Sprintf("Invite codes: %d\n", total))
	sb.WriteString(fmt.Sprintf("Admin\\-generated: %d\n", admin))
	sb.WriteString(fmt.Sprintf("User\\-generated: %d\n\n", user))
	sb.WriteString("Per day:\n")
	for _, day := range stats {
		if day.Total == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("%s: total %d \\(admin: %d, user: %d\\)\n",
			Sanitize(day.Date), day.Total, day.Admin, day.User))
	}
	return sb.String()
}
