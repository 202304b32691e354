package bot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"

	"invitebot/entity"
)

// Callback data prefixes for inline keyboard buttons.
// Telegram limits callback data to 64 bytes, so prefixes are kept short.
const (
	cbCopy        = "c:" // c:<code> - echo the code as selectable text
	cbGetInvite   = "gi" // start the /invite flow hint
	cbAdminStats  = "as" // 7-day summary for admins
	cbAdminInvite = "ai" // generate a permanent code
)

// --- Keyboard builders ---

func buildStartKeyboard(instanceURL string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{
			{{Text: "🌐 Visit instance", Url: instanceURL}},
			{{Text: "📋 Get invite code", CallbackData: cbGetInvite}},
		},
	}
}

func buildInviteKeyboard(issued *entity.Issuance) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{
			{{Text: "📋 Copy code", CallbackData: cbCopy + issued.Record.Code}},
			{{Text: "🔗 Open registration link", Url: issued.URL}},
		},
	}
}

func buildAdminKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{
			{{Text: "📊 View statistics", CallbackData: cbAdminStats}},
			{{Text: "🔑 Generate permanent code", CallbackData: cbAdminInvite}},
		},
	}
}

// --- Callback handlers ---

// onCopyCallback replaces the message with the bare code so it is easy to
// select and copy on mobile clients.
func (t *TgBot) onCopyCallback(_ *tgbotapi.Bot, ctx *ext.Context) error {
	cq := ctx.CallbackQuery
	code := strings.TrimPrefix(cq.Data, cbCopy)

	t.editMessage(cq, fmt.Sprintf("Code: `%s`\n\nCopy the code above\\.", Sanitize(code)))
	_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{})
	return nil
}

func (t *TgBot) onGetInviteCallback(_ *tgbotapi.Bot, ctx *ext.Context) error {
	cq := ctx.CallbackQuery
	t.plainResponse(cq.From.Id, "Use the /invite command to request an invite code\\.")
	_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{})
	return nil
}

func (t *TgBot) onAdminStatsCallback(_ *tgbotapi.Bot, ctx *ext.Context) error {
	cq := ctx.CallbackQuery
	chatId := cq.From.Id

	reqCtx, cancel := handlerContext()
	defer cancel()
	if !t.core.IsAdmin(reqCtx, chatId) {
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Not authorized", ShowAlert: true})
		return nil
	}

	stats, err := t.core.Stats(reqCtx, defaultStatsDays)
	if err != nil {
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Error occurred"})
		t.reportError(chatId, "admin:stats", err)
		return nil
	}

	total, admin, user := entity.SumStats(stats)
	text := fmt.Sprintf(
		"📊 Invite statistics, last %d days 📊\n\n"+
			"Invite codes: %d\nAdmin\\-generated: %d\nUser\\-generated: %d\n\n"+
			"Use /stats for the daily breakdown",
		defaultStatsDays, total, admin, user,
	)
	t.editMessage(cq, text)
	_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{})
	return nil
}

func (t *TgBot) onAdminInviteCallback(_ *tgbotapi.Bot, ctx *ext.Context) error {
	cq := ctx.CallbackQuery
	chatId := cq.From.Id

	reqCtx, cancel := handlerContext()
	defer cancel()
	if !t.core.IsAdmin(reqCtx, chatId) {
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Not authorized", ShowAlert: true})
		return nil
	}

	t.editMessage(cq, "👑 Generating an invite code\\.\\.\\.")
	_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{})

	issued, _, err := t.core.RequestInvite(reqCtx, chatId)
	if err != nil {
		t.replyIssueFailure(chatId, "admin:invite", err)
		return nil
	}
	t.sendInvite(chatId, issued)
	return nil
}

func (t *TgBot) editMessage(cq *tgbotapi.CallbackQuery, text string) {
	msg := cq.Message
	if msg == nil {
		return
	}
	im, ok := msg.(tgbotapi.Message)
	if !ok {
		return
	}
	_, _, err := t.api.EditMessageText(text, &tgbotapi.EditMessageTextOpts{
		ChatId:    im.Chat.Id,
		MessageId: im.MessageId,
		ParseMode: "MarkdownV2",
	})
	if err != nil {
		t.log.Warn("editing message", "error", err)
	}
}
