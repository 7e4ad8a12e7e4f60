package bot

import (
	"context"
	"log/slog"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// UpdateSource is the slice of the Bot API the poller drives. *tgbotapi.BotAPI
// satisfies it.
type UpdateSource interface {
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// UpdateHandler processes a single update.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update tgbotapi.Update)
}

// Poller receives updates over long polling and hands them to a fixed pool
// of workers.
type Poller struct {
	source  UpdateSource
	handler UpdateHandler
	workers int
	timeout int
	logger  *slog.Logger
}

func NewPoller(source UpdateSource, handler UpdateHandler, workers int, logger *slog.Logger) *Poller {
	if workers < 1 {
		workers = 1
	}
	return &Poller{
		source:  source,
		handler: handler,
		workers: workers,
		timeout: 60,
		logger:  logger.With("component", "tg_poller"),
	}
}

// Run blocks until ctx is cancelled. In-flight updates are finished before it
// returns.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("starting bot polling", "workers", p.workers)

	// Polling fails while a webhook is set.
	if _, err := p.source.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: false}); err != nil {
		p.logger.Warn("failed to delete webhook, continuing", "error", err)
	}

	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = p.timeout
	updates := p.source.GetUpdatesChan(cfg)

	jobs := make(chan tgbotapi.Update, 100)
	var wg sync.WaitGroup
	for id := 1; id <= p.workers; id++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.work(ctx, id, jobs)
		}()
	}

	for {
		select {
		case <-ctx.Done():
			close(jobs)
			p.source.StopReceivingUpdates()
			wg.Wait()
			p.logger.Info("bot polling stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				updates = nil
				continue
			}
			select {
			case jobs <- update:
			case <-ctx.Done():
			}
		}
	}
}

func (p *Poller) work(ctx context.Context, id int, jobs <-chan tgbotapi.Update) {
	logger := p.logger.With("worker_id", id)
	logger.Debug("polling worker started")
	for update := range jobs {
		// Queued updates are still answered after shutdown starts.
		p.handler.HandleUpdate(context.WithoutCancel(ctx), update)
	}
	logger.Debug("polling worker stopped")
}
