package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

var ErrRunnerStopped = errors.New("bot runner is not accepting updates")

const (
	inboxSize     = 100
	sweepInterval = time.Minute
)

type UpdateHandler interface {
	HandleUpdate(ctx context.Context, u tgbotapi.Update)
	SweepConversations() int
}

// UpdateSource is the subset of *tgbotapi.BotAPI the runner drives.
type UpdateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error)
}

type RunnerOptions struct {
	WebhookURL    string
	WebhookSecret string
	PollTimeout   int
}

// Runner feeds updates to the handler from a single goroutine, whether they
// arrive by long polling or through the webhook endpoint.
type Runner struct {
	source  UpdateSource
	handler UpdateHandler
	opts    RunnerOptions
	logger  *zap.Logger

	inbox  chan tgbotapi.Update
	mu     sync.RWMutex
	open   bool
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRunner(source UpdateSource, handler UpdateHandler, opts RunnerOptions, logger *zap.Logger) *Runner {
	return &Runner{
		source:  source,
		handler: handler,
		opts:    opts,
		logger:  logger.Named("runner"),
		inbox:   make(chan tgbotapi.Update, inboxSize),
	}
}

func (r *Runner) WebhookMode() bool { return r.opts.WebhookURL != "" }

func (r *Runner) WebhookSecret() string { return r.opts.WebhookSecret }

func (r *Runner) Start(ctx context.Context) error {
	if r.WebhookMode() {
		if err := r.registerWebhook(); err != nil {
			return err
		}
	} else if r.source != nil {
		if _, err := r.source.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			return fmt.Errorf("failed to delete webhook before polling: %w", err)
		}
	}

	runCtx, cancel := context.WithCancel(context.Background())
	r.mu.Lock()
	r.cancel = cancel
	r.open = true
	r.mu.Unlock()

	if !r.WebhookMode() && r.source != nil {
		cfg := tgbotapi.NewUpdate(0)
		cfg.Timeout = r.opts.PollTimeout
		updates := r.source.GetUpdatesChan(cfg)

		r.wg.Add(1)
		go r.forward(runCtx, updates)
	}

	r.wg.Add(1)
	go r.consume(runCtx)

	r.logger.Info("bot runner started", zap.Bool("webhook", r.WebhookMode()))
	return nil
}

func (r *Runner) registerWebhook() error {
	params := tgbotapi.Params{}
	params["url"] = r.opts.WebhookURL
	params.AddNonEmpty("secret_token", r.opts.WebhookSecret)

	if _, err := r.source.MakeRequest("setWebhook", params); err != nil {
		return fmt.Errorf("failed to register webhook: %w", err)
	}
	return nil
}

// Enqueue hands a webhook update to the consumer. It blocks while the inbox
// is full until ctx is done.
func (r *Runner) Enqueue(ctx context.Context, u tgbotapi.Update) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.open {
		return ErrRunnerStopped
	}

	select {
	case r.inbox <- u:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) forward(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			select {
			case r.inbox <- u:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (r *Runner) consume(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case u := <-r.inbox:
			r.handle(ctx, u)
		case <-ticker.C:
			if n := r.handler.SweepConversations(); n > 0 {
				r.logger.Debug("expired conversations dropped", zap.Int("count", n))
			}
		}
	}
}

func (r *Runner) handle(ctx context.Context, u tgbotapi.Update) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("panic while handling update", zap.Int("update_id", u.UpdateID), zap.Any("panic", rec))
		}
	}()
	r.handler.HandleUpdate(ctx, u)
}

func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	r.open = false
	cancel := r.cancel
	r.mu.Unlock()

	if !r.WebhookMode() && r.source != nil {
		r.source.StopReceivingUpdates()
	}
	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("bot runner stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
