// Package bot implements the Telegram front end of the invite-code bot.
//
// Architecture overview:
//   - tgbot.go     - TgBot struct, lifecycle (Start/Stop), Core interface
//   - commands.go  - User-facing commands: /start, /invite, /history, /info, /help
//   - admin.go     - Admin commands: /admin, /stats
//   - callbacks.go - Inline keyboard builders and callback query handlers
//   - menus.go     - Per-role command menus via Telegram's BotCommandScope API
//   - helpers.go   - Shared utilities: Sanitize, plainResponse, reportError
//
// The package contains no issuance logic: every decision (quota, captcha,
// admin bypass) is delegated to the Core interface and only rendered here.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers/filters/callbackquery"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers/filters/message"

	"invitebot/entity"
	"invitebot/lib/sl"
)

// Core defines the issuance operations the bot depends on.
// Implemented by impl/core.
type Core interface {
	RegisterContact(ctx context.Context, id int64, username, firstName, lastName string) (*entity.User, error)
	GetUser(ctx context.Context, id int64) (*entity.User, error)
	IsAdmin(ctx context.Context, id int64) bool
	AdminIDs() []int64
	RequestInvite(ctx context.Context, userID int64) (*entity.Issuance, *entity.Challenge, error)
	SubmitAnswer(ctx context.Context, userID int64, text string) (*entity.Issuance, bool, error)
	History(ctx context.Context, userID int64) ([]entity.InviteRecord, error)
	Stats(ctx context.Context, days int) ([]entity.DailyStats, error)
	InstanceURL() string
	InstanceName() string
	InviteExpiryDays() int
}

// handlerTimeout bounds every store/API round trip made from one update.
const handlerTimeout = 30 * time.Second

type TgBot struct {
	log     *slog.Logger
	api     *tgbotapi.Bot
	core    Core
	updater *ext.Updater
}

func NewTgBot(apiKey string, core Core, log *slog.Logger) (*TgBot, error) {
	tgBot := &TgBot{
		log:  log.With(sl.Module("tgbot")),
		core: core,
	}

	api, err := tgbotapi.NewBot(apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("creating api instance: %v", err)
	}
	tgBot.api = api

	return tgBot, nil
}

func (t *TgBot) Start() error {
	dispatcher := ext.NewDispatcher(&ext.DispatcherOpts{
		Error: func(b *tgbotapi.Bot, ctx *ext.Context, err error) ext.DispatcherAction {
			t.log.Error("handling update:", sl.Err(err))
			return ext.DispatcherActionNoop
		},
		MaxRoutines: ext.DefaultMaxRoutines,
	})
	t.updater = ext.NewUpdater(dispatcher, nil)

	// User commands
	dispatcher.AddHandler(handlers.NewCommand("start", t.start))
	dispatcher.AddHandler(handlers.NewCommand("help", t.help))
	dispatcher.AddHandler(handlers.NewCommand("invite", t.invite))
	dispatcher.AddHandler(handlers.NewCommand("history", t.history))
	dispatcher.AddHandler(handlers.NewCommand("info", t.info))

	// Admin commands
	dispatcher.AddHandler(handlers.NewCommand("admin", t.adminCmd))
	dispatcher.AddHandler(handlers.NewCommand("stats", t.statsCmd))

	// Free text is only meaningful as a captcha answer
	dispatcher.AddHandler(handlers.NewMessage(message.Text, t.onFreeText))

	// Callback query handlers
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix(cbCopy), t.onCopyCallback))
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix(cbGetInvite), t.onGetInviteCallback))
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix(cbAdminStats), t.onAdminStatsCallback))
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix(cbAdminInvite), t.onAdminInviteCallback))

	t.setDefaultCommands()

	err := t.updater.StartPolling(t.api, &ext.PollingOpts{
		DropPendingUpdates: true,
		GetUpdatesOpts: &tgbotapi.GetUpdatesOpts{
			Timeout: 9,
			RequestOpts: &tgbotapi.RequestOpts{
				Timeout: time.Second * 10,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to start polling: %w", err)
	}

	t.updater.Idle()
	return nil
}

func (t *TgBot) Stop() {
	if t.updater != nil {
		t.log.Info("stopping telegram bot")
		t.updater.Stop()
	}
}

func handlerContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), handlerTimeout)
}
