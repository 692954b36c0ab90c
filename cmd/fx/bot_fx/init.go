package bot_fx

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"calbot/internal/bot"
	"calbot/internal/config"
	"calbot/internal/services"
	mem "calbot/pkg/memcache"
	"calbot/pkg/utils"
)

var Module = fx.Options(
	fx.Provide(provideBotAPI, provideMessenger, provideFileDownloader, provideController, provideRunner),
	fx.Invoke(startRunner),
)

func provideBotAPI(cfg *config.Config, log *zap.Logger) (*tgbotapi.BotAPI, error) {
	if cfg.Bot.Token == "" {
		return nil, errors.New("bot.token (TELEGRAM_BOT_TOKEN) is required")
	}

	api, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		return nil, err
	}
	api.Debug = cfg.Bot.Debug

	log.Info("authorized on telegram", zap.String("bot", api.Self.UserName))
	return api, nil
}

func provideMessenger(api *tgbotapi.BotAPI, cfg *config.Config, log *zap.Logger) bot.Messenger {
	return bot.NewTelegramMessenger(api, cfg.Bot.SendRate, log)
}

func provideFileDownloader(api *tgbotapi.BotAPI, cfg *config.Config) bot.FileDownloader {
	return bot.NewTelegramFiles(api, cfg.Bot.Token)
}

func provideController(
	tracker services.TrackerServiceInterface,
	lookup services.FoodLookupServiceInterface,
	photos services.PhotoStore,
	files bot.FileDownloader,
	messenger bot.Messenger,
	conversations mem.ConversationStore,
	cfg *config.Config,
	log *zap.Logger,
) *bot.Controller {
	return bot.NewController(tracker, lookup, photos, files, messenger, conversations, bot.ControllerOptions{
		StateTTL:  cfg.Bot.StateTTL,
		MinTarget: cfg.Tracker.MinTarget,
		MaxTarget: cfg.Tracker.MaxTarget,
	}, log)
}

func provideRunner(api *tgbotapi.BotAPI, controller *bot.Controller, cfg *config.Config, log *zap.Logger) (*bot.Runner, error) {
	secret := cfg.Bot.WebhookSecret
	if cfg.Bot.WebhookURL != "" && secret == "" {
		generated, err := utils.GenerateSecureToken(32)
		if err != nil {
			return nil, err
		}
		secret = generated
	}

	return bot.NewRunner(api, controller, bot.RunnerOptions{
		WebhookURL:    cfg.Bot.WebhookURL,
		WebhookSecret: secret,
		PollTimeout:   cfg.Bot.PollTimeout,
	}, log), nil
}

func startRunner(lc fx.Lifecycle, runner *bot.Runner) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return runner.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return runner.Stop(ctx)
		},
	})
}
