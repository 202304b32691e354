package config

import (
	"fmt"
	"log"
	"sync"

	"github.com/ilyakaznacheev/cleanenv"

	"invitebot/lib/validate"
)

type Listen struct {
	BindIp string `yaml:"bind_ip" env-default:"0.0.0.0"`
	Port   string `yaml:"port" env-default:"8080"`
}

type TelegramConfig struct {
	Token string `yaml:"token" env:"TELEGRAM_BOT_TOKEN" validate:"required"`
}

type MisskeyConfig struct {
	APIURL           string `yaml:"api_url" env:"MISSKEY_API_URL" validate:"required,url"`
	Token            string `yaml:"token" env:"MISSKEY_API_TOKEN" validate:"required"`
	InviteExpiryDays int    `yaml:"invite_expiry_days" env:"INVITE_CODE_EXPIRY_DAYS" env-default:"7"`
}

type RedisConfig struct {
	URL          string `yaml:"url" env:"REDIS_URL" env-default:"redis://localhost:6379/0"`
	PoolSize     int    `yaml:"pool_size" env-default:"10"`
	MinIdleConns int    `yaml:"min_idle_conns" env-default:"2"`
}

type AppConfig struct {
	InstanceName         string  `yaml:"instance_name" env:"INSTANCE_NAME" env-default:"Misskey"`
	AdminIDs             []int64 `yaml:"admin_ids" env:"ADMIN_IDS"`
	MaxInvitesPerWeek    int     `yaml:"max_invites_per_week" env:"MAX_INVITES_PER_WEEK" env-default:"1"`
	CaptchaExpirySeconds int     `yaml:"captcha_expiry_seconds" env:"CAPTCHA_EXPIRY_SECONDS" env-default:"300"`
	StatsRetentionDays   int     `yaml:"stats_retention_days" env:"STATS_RETENTION_DAYS" env-default:"30"`
}

// APIConfig configures the operator HTTP API. An empty token disables the
// server entirely.
type APIConfig struct {
	Token string `yaml:"token" env:"API_TOKEN" env-default:""`
}

type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Misskey  MisskeyConfig  `yaml:"misskey"`
	Redis    RedisConfig    `yaml:"redis"`
	App      AppConfig      `yaml:"app"`
	API      APIConfig      `yaml:"api"`
	Listen   Listen         `yaml:"listen"`
	Env      string         `yaml:"env" env-default:"local"`
}

var instance *Config
var once sync.Once

func MustLoad(path string) *Config {
	var err error
	once.Do(func() {
		instance = &Config{}
		if err = cleanenv.ReadConfig(path, instance); err != nil {
			desc, _ := cleanenv.GetDescription(instance, nil)
			err = fmt.Errorf("config: %s; %s", err, desc)
			instance = nil
			log.Fatal(err)
		}
		if err = validate.Struct(instance); err != nil {
			instance = nil
			log.Fatal(fmt.Errorf("config: %s", err))
		}
	})
	return instance
}
