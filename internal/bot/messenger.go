package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// maxPhotoBytes matches the Bot API download limit.
const maxPhotoBytes = 20 << 20

// Messenger delivers a plain-text message to a chat. It is shared by the
// bot controller and the scheduled jobs.
type Messenger interface {
	Send(ctx context.Context, chatID int64, text string) error
}

type chatSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type TelegramMessenger struct {
	api     chatSender
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewTelegramMessenger limits outbound messages to perSecond with a burst of
// one second's worth.
func NewTelegramMessenger(api chatSender, perSecond float64, logger *zap.Logger) *TelegramMessenger {
	if perSecond <= 0 {
		perSecond = 25
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return &TelegramMessenger{
		api:     api,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
		logger:  logger.Named("messenger"),
	}
}

func (m *TelegramMessenger) Send(ctx context.Context, chatID int64, text string) error {
	if err := m.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("send rate wait: %w", err)
	}

	if _, err := m.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		m.logger.Warn("failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// FileDownloader fetches an uploaded file by id and returns its bytes and the
// platform-side path.
type FileDownloader interface {
	Download(ctx context.Context, fileID string) ([]byte, string, error)
}

type fileGetter interface {
	GetFile(config tgbotapi.FileConfig) (tgbotapi.File, error)
}

type TelegramFiles struct {
	api   fileGetter
	token string
	http  *http.Client
}

func NewTelegramFiles(api fileGetter, token string) *TelegramFiles {
	return &TelegramFiles{
		api:   api,
		token: token,
		http:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (f *TelegramFiles) Download(ctx context.Context, fileID string) ([]byte, string, error) {
	file, err := f.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(f.token), nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("failed to download file: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPhotoBytes))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read file: %w", err)
	}
	return data, file.FilePath, nil
}
