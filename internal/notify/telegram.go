package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/zfsutils/scrubwatch/internal/model"

	"golang.org/x/sync/errgroup"
)

const (
	defaultAPIURL = "https://api.telegram.org"

	// progress messages are emitted at most once per this many percent,
	// so a long scrub does not flood the channel
	defaultProgressStep = 10.0

	// longer message bodies are truncated before sending
	maxMessageLength = 3000
)

// TelegramSink pushes progress and outcome messages to one or more chats
// via the Bot API.
type TelegramSink struct {
	token   string
	chatIDs []string
	apiURL  string
	pool    string
	step    float64
	client  *http.Client

	mx       sync.Mutex
	sentAny  bool
	lastSent float64
}

func NewTelegram(cfg model.Telegram) (*TelegramSink, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}
	if len(cfg.ChatIDs) == 0 {
		return nil, fmt.Errorf("telegram chat id is required")
	}
	return &TelegramSink{
		token:   cfg.Token,
		chatIDs: append([]string(nil), cfg.ChatIDs...),
		apiURL:  defaultAPIURL,
		step:    defaultProgressStep,
		client:  &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// WithPool stamps messages with the pool under scrub.
func (s *TelegramSink) WithPool(pool string) *TelegramSink {
	s.pool = pool
	return s
}

// WithAPIURL overrides the Bot API endpoint. For unit testing.
func (s *TelegramSink) WithAPIURL(url string) *TelegramSink {
	s.apiURL = url
	return s
}

// WithProgressStep overrides the minimum percent distance between two
// progress messages.
func (s *TelegramSink) WithProgressStep(step float64) *TelegramSink {
	s.step = step
	return s
}

func (s *TelegramSink) Progress(ctx context.Context, percent float64) error {
	s.mx.Lock()
	due := !s.sentAny || percent >= s.lastSent+s.step || (percent >= 100 && s.lastSent < 100)
	if due {
		s.sentAny = true
		s.lastSent = percent
	}
	s.mx.Unlock()
	if !due {
		return nil
	}
	text := fmt.Sprintf("⚙ Scrub progress on pool <code>%s</code>: <b>%.2f%%</b>", s.pool, percent)
	return s.broadcast(ctx, text)
}

func (s *TelegramSink) Finished(ctx context.Context, outcome model.Outcome) error {
	var text string
	switch outcome.Kind {
	case model.OutcomeNoErrors:
		text = fmt.Sprintf("✅ Scrub finished with no errors on pool <code>%s</code>", outcome.Pool)
	case model.OutcomeWithErrors:
		text = fmt.Sprintf("⚠ Scrub finished with errors on pool <code>%s</code>\n\n<pre>%s</pre>",
			outcome.Pool, sanitize(outcome.Detail))
	case model.OutcomeStartFailed:
		text = fmt.Sprintf("❌ Scrub did not start on pool <code>%s</code>\n\n<pre>%s</pre>",
			outcome.Pool, sanitize(outcome.Detail))
	default:
		text = fmt.Sprintf("Scrub finished in unknown state on pool <code>%s</code>", outcome.Pool)
	}
	return s.broadcast(ctx, truncate(text))
}

// broadcast delivers one message to every configured chat concurrently.
func (s *TelegramSink) broadcast(ctx context.Context, text string) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, chatID := range s.chatIDs {
		chatID := chatID
		g.Go(func() error {
			return s.send(ctx, chatID, text)
		})
	}
	return g.Wait()
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

func (s *TelegramSink) send(ctx context.Context, chatID, text string) error {
	payload, err := json.Marshal(sendMessageRequest{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "HTML",
	})
	if err != nil {
		return fmt.Errorf("marshal telegram message: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.apiURL, s.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var decoded sendMessageResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return fmt.Errorf("decode telegram response: %w", err)
	}
	if !decoded.OK {
		return fmt.Errorf("telegram chat %s: %s", chatID, decoded.Description)
	}
	return nil
}

// sanitize strips HTML-tag-like symbols from free-form tool output so it
// survives the HTML parse mode.
func sanitize(s string) string {
	return strings.NewReplacer("<", "*", ">", "*").Replace(s)
}

func truncate(s string) string {
	if len(s) <= maxMessageLength {
		return s
	}
	return s[:maxMessageLength] + "\n\n<i>Message was shortened</i>"
}
