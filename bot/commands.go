package bot

import (
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"

	"invitebot/lib/clock"
)

func (t *TgBot) start(_ *tgbotapi.Bot, ctx *ext.Context) error {
	from := ctx.EffectiveUser
	chatId := from.Id

	reqCtx, cancel := handlerContext()
	defer cancel()

	user, err := t.core.RegisterContact(reqCtx, chatId, from.Username, from.FirstName, from.LastName)
	if err != nil {
		t.reportError(chatId, "/start", err)
		return nil
	}
	isAdmin := t.core.IsAdmin(reqCtx, chatId)

	name := Sanitize(user.DisplayName())
	instance := Sanitize(t.core.InstanceName())

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Hello, %s\\! 👋\n\n", name))
	sb.WriteString(fmt.Sprintf("I am the %s invite bot\\. I can get you an invite code for the %s instance\\.\n\n", instance, instance))
	sb.WriteString("Available commands:\n")
	sb.WriteString("/invite \\- Request an invite code\n")
	sb.WriteString("/history \\- View your invite codes\n")
	sb.WriteString("/help \\- Show help\n")
	sb.WriteString("/info \\- Show your profile")

	if isAdmin {
		sb.WriteString("\n\n🔑 Admin access\n")
		sb.WriteString("You are an admin and can also use:\n")
		sb.WriteString("/admin \\- Admin menu\n")
		sb.WriteString("/stats \\- Issuance statistics")
	}

	t.sendWithKeyboard(chatId, sb.String(), buildStartKeyboard(t.core.InstanceURL()))
	t.setUserCommands(chatId, isAdmin)
	return nil
}

func (t *TgBot) help(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveUser.Id

	reqCtx, cancel := handlerContext()
	defer cancel()
	isAdmin := t.core.IsAdmin(reqCtx, chatId)

	instance := Sanitize(t.core.InstanceName())

	var sb strings.Builder
	sb.WriteString("📚 Help 📚\n\n")
	sb.WriteString("Available commands:\n")
	sb.WriteString("/start \\- Start the bot\n")
	sb.WriteString(fmt.Sprintf("/invite \\- Request a %s invite code\n", instance))
	sb.WriteString("/history \\- View your invite codes\n")
	sb.WriteString("/info \\- Show your profile\n")
	sb.WriteString("/help \\- Show this help\n\n")

	if isAdmin {
		sb.WriteString("Admin commands:\n")
		sb.WriteString("/admin \\- Admin menu\n")
		sb.WriteString("/stats \\- Issuance statistics\n\n")
		sb.WriteString("Requesting a code \\(admin\\):\n")
		sb.WriteString("1\\. Send /invite\n")
		sb.WriteString("2\\. Receive the code directly \\(no captcha\\)\n\n")
		sb.WriteString("Note:\n")
		sb.WriteString("\\- Admin codes never expire\n")
		sb.WriteString("\\- Admins are not limited to one code per week\n")
	} else {
		sb.WriteString("Requesting a code:\n")
		sb.WriteString("1\\. Send /invite\n")
		sb.WriteString("2\\. Answer the captcha\n")
		sb.WriteString("3\\. Receive your code\n\n")
		sb.WriteString("Note:\n")
		sb.WriteString("\\- One invite code per user per week\n")
		sb.WriteString(fmt.Sprintf("\\- Codes are valid for %d days\n", t.core.InviteExpiryDays()))
	}

	t.plainResponse(chatId, sb.String())
	return nil
}

func (t *TgBot) invite(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveUser.Id

	reqCtx, cancel := handlerContext()
	defer cancel()

	if t.core.IsAdmin(reqCtx, chatId) {
		t.plainResponse(chatId, fmt.Sprintf("👑 Generating a %s invite code\\.\\.\\.", Sanitize(t.core.InstanceName())))
	}

	issued, challenge, err := t.core.RequestInvite(reqCtx, chatId)
	if err != nil {
		t.replyIssueFailure(chatId, "/invite", err)
		return nil
	}

	if challenge != nil {
		minutes := int(challenge.TTL.Minutes())
		t.sendPhoto(chatId, challenge.Image, fmt.Sprintf(
			"Enter the characters from the image to receive a %s invite code.\nThe captcha is valid for %d minutes.",
			t.core.InstanceName(), minutes,
		))
		return nil
	}

	t.sendInvite(chatId, issued)
	return nil
}

// onFreeText treats plain text as a captcha answer. Text arriving while the
// user has no pending challenge is not for us and stays unanswered.
func (t *TgBot) onFreeText(_ *tgbotapi.Bot, ctx *ext.Context) error {
	msg := ctx.EffectiveMessage
	if msg == nil || strings.HasPrefix(msg.Text, "/") {
		return nil
	}
	chatId := ctx.EffectiveUser.Id

	reqCtx, cancel := handlerContext()
	defer cancel()

	issued, handled, err := t.core.SubmitAnswer(reqCtx, chatId, msg.Text)
	if !handled {
		return nil
	}
	if err != nil {
		t.replyIssueFailure(chatId, "captcha", err)
		return nil
	}

	t.plainResponse(chatId, "✅ Captcha accepted\\! Generating your invite code\\.\\.\\.")
	t.sendInvite(chatId, issued)
	return nil
}

func (t *TgBot) history(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveUser.Id

	reqCtx, cancel := handlerContext()
	defer cancel()

	history, err := t.core.History(reqCtx, chatId)
	if err != nil {
		t.reportError(chatId, "/history", err)
		return nil
	}
	if len(history) == 0 {
		t.plainResponse(chatId, "You have not received any invite codes yet\\.")
		return nil
	}

	isAdmin := t.core.IsAdmin(reqCtx, chatId)
	now := time.Now()

	var sb strings.Builder
	sb.WriteString("📜 Your invite codes 📜\n\n")
	for i, record := range history {
		adminMark := ""
		if isAdmin && record.AdminGenerated {
			adminMark = " 👑"
		}

		status := "✅ valid"
		expiry := "never"
		if record.ExpiresAt != nil {
			expiry = clock.Minute(*record.ExpiresAt)
			if record.Expired(now) {
				status = "❌ expired"
			}
		} else {
			status = "✅ permanent"
		}

		sb.WriteString(fmt.Sprintf("%d\\. Code: `%s`%s\n", i+1, Sanitize(record.Code), adminMark))
		sb.WriteString(fmt.Sprintf("Requested: %s\n", Sanitize(clock.Minute(record.RequestedAt))))
		sb.WriteString(fmt.Sprintf("Expires: %s\n", Sanitize(expiry)))
		sb.WriteString(fmt.Sprintf("Status: %s\n\n", status))
	}

	for _, part := range splitMessage(sb.String(), maxTelegramMessageLen) {
		t.plainResponse(chatId, part)
	}
	return nil
}

func (t *TgBot) info(_ *tgbotapi.Bot, ctx *ext.Context) error {
	from := ctx.EffectiveUser
	chatId := from.Id

	reqCtx, cancel := handlerContext()
	defer cancel()

	user, err := t.core.GetUser(reqCtx, chatId)
	if err != nil {
		t.reportError(chatId, "/info", err)
		return nil
	}

	registered := "unknown"
	if user != nil {
		registered = clock.Minute(user.RegisteredAt)
	}
	username := from.Username
	if username == "" {
		username = "not set"
	}

	var sb strings.Builder
	sb.WriteString("👤 Profile 👤\n\n")
	sb.WriteString(fmt.Sprintf("User ID: %d\n", chatId))
	sb.WriteString(fmt.Sprintf("Username: %s\n", Sanitize(username)))
	sb.WriteString(fmt.Sprintf("Name: %s\n", Sanitize(from.FirstName+" "+from.LastName)))
	sb.WriteString(fmt.Sprintf("Registered: %s\n", Sanitize(registered)))
	if t.core.IsAdmin(reqCtx, chatId) {
		sb.WriteString("Admin: ✅ yes\n")
	}

	history, err := t.core.History(reqCtx, chatId)
	if err != nil {
		t.reportError(chatId, "/info", err)
		return nil
	}
	now := time.Now()
	valid := 0
	for _, record := range history {
		if !record.Expired(now) {
			valid++
		}
	}
	sb.WriteString("\nInvite codes:\n")
	sb.WriteString(fmt.Sprintf("Total: %d\n", len(history)))
	sb.WriteString(fmt.Sprintf("Valid: %d\n", valid))
	sb.WriteString(fmt.Sprintf("Expired: %d\n", len(history)-valid))

	t.plainResponse(chatId, sb.String())
	return nil
}
