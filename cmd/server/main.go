package main

import (
	"flag"
	"log/slog"
	"path/filepath"
	"time"

	"invitebot/bot"
	"invitebot/impl/core"
	"invitebot/internal/captcha"
	"invitebot/internal/config"
	"invitebot/internal/database"
	"invitebot/internal/http-server/api"
	"invitebot/internal/misskey"
	"invitebot/lib/logger"
	"invitebot/lib/sl"
)

const logFileName = "invitebot.log"

func main() {
	configPath := flag.String("conf", "config.yml", "path to config file")
	logPath := flag.String("log", "/var/log/", "path to log file directory")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	log := logger.SetupLogger(conf.Env, filepath.Join(*logPath, logFileName))
	log.Info("starting invitebot",
		slog.String("config", *configPath),
		slog.String("env", conf.Env),
		slog.String("instance", conf.App.InstanceName),
		slog.Int("admins", len(conf.App.AdminIDs)),
	)

	db, err := database.NewRedisClient(conf)
	if err != nil {
		log.Error("connecting to redis", sl.Err(err))
		return
	}
	defer db.Close()

	allocator := misskey.NewClient(misskey.Config(conf.Misskey), log)

	engine := core.New(db, allocator, captcha.New(), core.Config{
		InstanceName:     conf.App.InstanceName,
		AdminIDs:         conf.App.AdminIDs,
		WeeklyQuota:      conf.App.MaxInvitesPerWeek,
		CaptchaTTL:       time.Duration(conf.App.CaptchaExpirySeconds) * time.Second,
		InviteExpiryDays: conf.Misskey.InviteExpiryDays,
		APIToken:         conf.API.Token,
	}, log)

	if conf.API.Token != "" {
		go func() {
			if err := api.New(conf, log, engine); err != nil {
				log.Error("api server stopped", sl.Err(err))
			}
		}()
	}

	tgBot, err := bot.NewTgBot(conf.Telegram.Token, engine, log)
	if err != nil {
		log.Error("creating telegram bot", sl.Err(err))
		return
	}
	defer tgBot.Stop()

	if err = tgBot.Start(); err != nil {
		log.Error("telegram bot stopped", sl.Err(err))
	}
}
