package bot

import (
	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
)

// Per-role command lists for Telegram's menu button (the "/" icon in the
// chat input). Admin menus are pushed per chat after /start identifies the
// user; everyone else gets the default scope.

var commandsUser = []tgbotapi.BotCommand{
	{Command: "start", Description: "Start the bot"},
	{Command: "invite", Description: "Request an invite code"},
	{Command: "history", Description: "View your invite codes"},
	{Command: "info", Description: "Show your profile"},
	{Command: "help", Description: "Show available commands"},
}

var commandsAdmin = []tgbotapi.BotCommand{
	{Command: "start", Description: "Start the bot"},
	{Command: "invite", Description: "Generate an invite code"},
	{Command: "history", Description: "View your invite codes"},
	{Command: "info", Description: "Show your profile"},
	{Command: "admin", Description: "Admin menu"},
	{Command: "stats", Description: "Issuance statistics"},
	{Command: "help", Description: "Show available commands"},
}

// setDefaultCommands sets the default bot menu for unknown users.
func (t *TgBot) setDefaultCommands() {
	_, err := t.api.SetMyCommands(commandsUser, &tgbotapi.SetMyCommandsOpts{
		Scope: tgbotapi.BotCommandScopeDefault{},
	})
	if err != nil {
		t.log.Warn("setting default commands", "error", err)
	}
}

// setUserCommands sets the command menu for a specific chat based on role.
func (t *TgBot) setUserCommands(chatId int64, isAdmin bool) {
	commands := commandsUser
	if isAdmin {
		commands = commandsAdmin
	}
	_, err := t.api.SetMyCommands(commands, &tgbotapi.SetMyCommandsOpts{
		Scope: tgbotapi.BotCommandScopeChat{ChatId: chatId},
	})
	if err != nil {
		t.log.Warn("setting user commands", "error", err)
	}
}
