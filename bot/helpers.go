package bot

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"

	"invitebot/entity"
	"invitebot/lib/clock"
	"invitebot/lib/sl"
)

const maxTelegramMessageLen = 4000

func (t *TgBot) plainResponse(chatId int64, text string) {
	if text == "" {
		t.log.With("id", chatId).Debug("empty message")
		return
	}

	_, err := t.api.SendMessage(chatId, text, &tgbotapi.SendMessageOpts{
		ParseMode: "MarkdownV2",
	})
	if err != nil {
		t.log.With(slog.Int64("id", chatId)).Warn("sending message", sl.Err(err))
		_, err = t.api.SendMessage(chatId, text, &tgbotapi.SendMessageOpts{})
		if err != nil {
			t.log.With(slog.Int64("id", chatId)).Error("sending safe message", sl.Err(err))
		}
	}
}

// sendWithKeyboard sends a message with an inline keyboard attached.
func (t *TgBot) sendWithKeyboard(chatId int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	if text == "" {
		return
	}
	_, err := t.api.SendMessage(chatId, text, &tgbotapi.SendMessageOpts{
		ParseMode:   "MarkdownV2",
		ReplyMarkup: keyboard,
	})
	if err != nil {
		t.log.With(slog.Int64("id", chatId)).Warn("sending message with keyboard", sl.Err(err))
		// Fallback: try without markdown
		_, err = t.api.SendMessage(chatId, text, &tgbotapi.SendMessageOpts{
			ReplyMarkup: keyboard,
		})
		if err != nil {
			t.log.With(slog.Int64("id", chatId)).Error("sending message with keyboard fallback", sl.Err(err))
		}
	}
}

// sendPhoto delivers the captcha image with a caption.
func (t *TgBot) sendPhoto(chatId int64, image []byte, caption string) {
	_, err := t.api.SendPhoto(chatId, tgbotapi.InputFileByReader("captcha.png", bytes.NewReader(image)), &tgbotapi.SendPhotoOpts{
		Caption: caption,
	})
	if err != nil {
		t.log.With(slog.Int64("id", chatId)).Error("sending photo", sl.Err(err))
	}
}

func Sanitize(input string) string {
	reservedChars := "\\_{}#+-.!|()[]=*"
	sanitized := ""
	for _, char := range input {
		if strings.ContainsRune(reservedChars, char) {
			sanitized += "\\" + string(char)
		} else {
			sanitized += string(char)
		}
	}
	return sanitized
}

func splitMessage(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}
	var parts []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			parts = append(parts, text)
			break
		}
		// Try to split at newline
		cutAt := maxLen
		nlIdx := strings.LastIndex(text[:maxLen], "\n")
		if nlIdx > 0 {
			cutAt = nlIdx + 1
		}
		parts = append(parts, text[:cutAt])
		text = text[cutAt:]
	}
	return parts
}

func (t *TgBot) notifyAdmins(msg string) {
	for _, id := range t.core.AdminIDs() {
		t.plainResponse(id, msg)
	}
}

// reportError logs the error, notifies admins with details, and sends a
// neutral message to the user.
func (t *TgBot) reportError(chatId int64, command string, err error) {
	t.log.Error("bot command failed",
		slog.String("command", command),
		slog.Int64("user_id", chatId),
		sl.Err(err),
	)
	t.notifyAdmins(fmt.Sprintf(
		"Command `%s` failed\nUser: `%d`\nError: `%s`",
		Sanitize(command), chatId, Sanitize(err.Error()),
	))
	t.plainResponse(chatId, "Something went wrong\\. Please try again later\\.")
}

// replyIssueFailure maps issuance failure kinds to user-facing messages.
// Anything unexpected goes through reportError and stays out of the chat.
func (t *TgBot) replyIssueFailure(chatId int64, command string, err error) {
	switch {
	case errors.Is(err, entity.ErrQuotaExceeded):
		t.plainResponse(chatId,
			"⚠️ You already received an invite code this week\\. Please try again next week\\.\n\n"+
				"Use /history to view your invite codes\\.")
	case errors.Is(err, entity.ErrCaptchaMismatch):
		t.plainResponse(chatId,
			"❌ Wrong or expired captcha\\.\n\nUse /invite to request a fresh one\\.")
	case errors.Is(err, entity.ErrIssuanceFailed):
		t.plainResponse(chatId,
			"❌ Could not generate an invite code\\. Please try again later or contact an admin\\.")
	default:
		t.reportError(chatId, command, err)
	}
}

// sendInvite renders a successful issuance: code, expiry, registration link
// and a copy/open keyboard.
func (t *TgBot) sendInvite(chatId int64, issued *entity.Issuance) {
	var sb strings.Builder
	sb.WriteString("🎉 Invite code generated 🎉\n\n")
	if issued.Record.AdminGenerated {
		sb.WriteString("👑 Permanent admin\\-generated code\n\n")
	}
	sb.WriteString(fmt.Sprintf("Code: `%s`\n\n", Sanitize(issued.Record.Code)))
	if issued.Record.ExpiresAt != nil {
		sb.WriteString(fmt.Sprintf("Expires: %s\n\n", Sanitize(clock.Minute(*issued.Record.ExpiresAt))))
		sb.WriteString(fmt.Sprintf("Registration link: %s\n\nPlease use the code before it expires\\.", Sanitize(issued.URL)))
	} else {
		sb.WriteString("Expires: never\n\n")
		sb.WriteString(fmt.Sprintf("Registration link: %s\n\nThis code never expires\\.", Sanitize(issued.URL)))
	}

	t.sendWithKeyboard(chatId, sb.String(), buildInviteKeyboard(issued))
}
