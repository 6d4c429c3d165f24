// Package telegram runs a long-polling Telegram bot that accepts
// listing URLs in chat and feeds them through the ingestion pipeline.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nestscout/nestscout/internal/ingest"
	"github.com/nestscout/nestscout/internal/notion"
)

const (
	// DefaultBaseURL is the Telegram Bot API base URL.
	DefaultBaseURL = "https://api.telegram.org"

	// DefaultPollTimeout is the long-poll wait passed to getUpdates.
	DefaultPollTimeout = 30 * time.Second
)

// ErrMissingToken is returned when no bot token is configured.
var ErrMissingToken = errors.New("telegram bot token is required")

var urlPattern = regexp.MustCompile(`https?://[^\s<>"{}|\\^` + "`" + `\[\]]+`)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Ingester runs the listing ingestion pipeline.
type Ingester interface {
	IngestURL(ctx context.Context, url string) (*ingest.Result, error)
	SupportedWebsites() []string
}

// WorkspaceChecker reports on the configured Notion database. Optional;
// without one /status skips the workspace lines.
type WorkspaceChecker interface {
	CheckDatabase(ctx context.Context) error
	GetDatabaseInfo(ctx context.Context) (*notion.DatabaseInfo, error)
}

// BotConfig holds configuration for the Telegram bot.
type BotConfig struct {
	// Token is the bot token (required).
	Token string

	// BaseURL is the Bot API base URL (optional).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	HTTPClient HTTPDoer

	// PollTimeout is the getUpdates long-poll wait (optional).
	PollTimeout time.Duration

	// Pipeline handles listing URLs sent in chat (required).
	Pipeline Ingester

	// Workspace backs the /status command (optional).
	Workspace WorkspaceChecker

	// Logger for bot operations.
	Logger zerolog.Logger
}

// Bot is a long-polling Telegram bot.
type Bot struct {
	token       string
	baseURL     string
	httpClient  HTTPDoer
	pollTimeout time.Duration
	pipeline    Ingester
	workspace   WorkspaceChecker
	logger      zerolog.Logger

	offset int64
}

// NewBot creates a Telegram bot. The token is required; callers that
// have no token configured should not construct a bot at all.
func NewBot(cfg BotConfig) (*Bot, error) {
	if cfg.Token == "" {
		return nil, ErrMissingToken
	}
	if cfg.Pipeline == nil {
		return nil, errors.New("ingestion pipeline is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	pollTimeout := cfg.PollTimeout
	if pollTimeout == 0 {
		pollTimeout = DefaultPollTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		// Long polls hold the connection open for the poll timeout, so
		// the client timeout sits above it.
		httpClient = &http.Client{Timeout: pollTimeout + 10*time.Second}
	}

	return &Bot{
		token:       cfg.Token,
		baseURL:     baseURL,
		httpClient:  httpClient,
		pollTimeout: pollTimeout,
		pipeline:    cfg.Pipeline,
		workspace:   cfg.Workspace,
		logger:      cfg.Logger,
	}, nil
}

// Run polls for updates until the context is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info().Msg("telegram bot started")
	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("telegram bot stopped")
			return ctx.Err()
		default:
		}

		updates, err := b.getUpdates(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.logger.Error().Err(err).Msg("polling updates failed")
			time.Sleep(5 * time.Second)
			continue
		}

		for _, u := range updates {
			b.offset = u.UpdateID + 1
			b.handleUpdate(ctx, u)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, u update) {
	if u.Message == nil || u.Message.Text == "" {
		return
	}
	msg := u.Message

	b.logger.Debug().
		Int64("chat_id", msg.Chat.ID).
		Str("username", msg.SenderName()).
		Msg("message received")

	text := strings.TrimSpace(msg.Text)
	switch {
	case strings.HasPrefix(text, "/start"):
		b.reply(ctx, msg, b.startMessage())
	case strings.HasPrefix(text, "/help"):
		b.reply(ctx, msg, b.helpMessage())
	case strings.HasPrefix(text, "/status"):
		b.reply(ctx, msg, b.statusMessage(ctx))
	case strings.HasPrefix(text, "/supported"):
		b.reply(ctx, msg, b.supportedMessage())
	case strings.HasPrefix(text, "/"):
		b.reply(ctx, msg, "🤔 Unknown command. Use /help to see what I can do.")
	default:
		b.handleText(ctx, msg, text)
	}
}

func (b *Bot) handleText(ctx context.Context, msg *message, text string) {
	urls := urlPattern.FindAllString(text, -1)
	if len(urls) == 0 {
		b.reply(ctx, msg,
			"🤔 I don't see any URLs in your message.\n\n"+
				"Send me a property URL from a supported website, or use /help for more information.")
		return
	}

	if len(urls) > 1 {
		b.reply(ctx, msg, fmt.Sprintf("🔗 Found %d URLs in your message. Processing each one...", len(urls)))
	}

	for _, u := range urls {
		b.processURL(ctx, msg, u)
	}
}

func (b *Bot) processURL(ctx context.Context, msg *message, listingURL string) {
	b.reply(ctx, msg, "🔄 Processing property URL...\n📍 "+listingURL)

	result, err := b.pipeline.IngestURL(ctx, listingURL)
	if err != nil {
		b.logger.Warn().Err(err).Str("url", listingURL).Msg("ingest failed")
		b.reply(ctx, msg, b.ingestErrorMessage(listingURL, err))
		return
	}

	b.reply(ctx, msg, b.ingestSuccessMessage(listingURL, result))
}

func (b *Bot) ingestErrorMessage(listingURL string, err error) string {
	if errors.Is(err, ingest.ErrNoListing) || strings.Contains(err.Error(), "no scraper available") {
		return "❌ Unsupported website\n\n🌐 Supported sites: " +
			strings.Join(b.pipeline.SupportedWebsites(), ", ")
	}
	return "❌ Failed to process property\n📍 " + listingURL + "\n\n" +
		"The property page might be unavailable or the structure has changed."
}

func (b *Bot) ingestSuccessMessage(listingURL string, result *ingest.Result) string {
	prop := result.Property

	var sb strings.Builder
	sb.WriteString("✅ Property saved successfully!\n\n")
	fmt.Fprintf(&sb, "🏠 %s\n", prop.PropertyType)
	fmt.Fprintf(&sb, "📍 %s\n", prop.Address.FormattedAddress)
	fmt.Fprintf(&sb, "🛏️ %d bed, %d bath\n", prop.Bedrooms, prop.Bathrooms)
	if prop.AreaSqm > 0 {
		fmt.Fprintf(&sb, "📐 %.0fm²\n", prop.AreaSqm)
	}
	if primary := prop.PrimaryListing(); primary != nil {
		fmt.Fprintf(&sb, "💰 %s %.0f\n", primary.Currency, primary.Price)
	}

	if result.Predictions != nil && len(result.Predictions.Predictions) > 0 {
		fmt.Fprintf(&sb, "\n🚗 Travel times for Friday %s, departing 09:00:\n", result.Predictions.PredictionDate)
		for _, p := range result.Predictions.Predictions {
			fmt.Fprintf(&sb, "• %s (%s): %d min, arriving %s\n",
				p.InterestPointID, p.Mode, p.DurationMinutes, p.ArrivalTime)
		}
	}

	if result.NotionPage != nil {
		sb.WriteString("\n📋 View in Notion: " + result.NotionPage.PageURL + "\n")
	}
	sb.WriteString("🔗 Original listing: " + listingURL)

	for _, w := range result.Warnings {
		sb.WriteString("\n⚠️ " + w)
	}
	return sb.String()
}

func (b *Bot) startMessage() string {
	return "🏠 Welcome to NestScout Bot! 🏠\n\n" +
		"I can help you save property listings and see commute times to the places you care about.\n\n" +
		"📋 Available commands:\n" +
		"/start - Show this welcome message\n" +
		"/help - Get help information\n" +
		"/status - Check bot and database status\n" +
		"/supported - List supported property websites\n\n" +
		"🔗 To add a property, simply send me a property URL from a supported website!\n\n" +
		"Supported websites:\n• " + strings.Join(b.pipeline.SupportedWebsites(), ", ")
}

func (b *Bot) helpMessage() string {
	return "🤖 NestScout Bot Help\n\n" +
		"📝 How to use:\n" +
		"1. Send me a property URL from a supported website\n" +
		"2. I'll scrape the property details automatically\n" +
		"3. The property is saved with travel-time predictions for next Friday at 09:00\n\n" +
		"🌐 Supported websites:\n• " + strings.Join(b.pipeline.SupportedWebsites(), ", ") + "\n\n" +
		"⚡ Commands:\n" +
		"/start - Welcome message\n" +
		"/help - This help message\n" +
		"/status - Check if everything is working\n" +
		"/supported - List all supported websites"
}

func (b *Bot) statusMessage(ctx context.Context) string {
	var sb strings.Builder
	sb.WriteString("✅ Bot Status: Running\n")

	if b.workspace == nil {
		sb.WriteString("ℹ️ Notion Database: Not configured\n")
	} else if err := b.workspace.CheckDatabase(ctx); err != nil {
		sb.WriteString("❌ Notion Database: Connection failed\nPlease check your Notion configuration.\n")
	} else {
		sb.WriteString("✅ Notion Database: Connected\n")
		if info, err := b.workspace.GetDatabaseInfo(ctx); err == nil {
			fmt.Fprintf(&sb, "📊 Database: %s\n", info.Title)
		}
	}

	sb.WriteString("🌐 Supported sites: " + strings.Join(b.pipeline.SupportedWebsites(), ", "))
	return sb.String()
}

func (b *Bot) supportedMessage() string {
	sites := b.pipeline.SupportedWebsites()
	var sb strings.Builder
	sb.WriteString("🌐 Supported Property Websites:\n\n")
	for _, s := range sites {
		sb.WriteString("• " + s + "\n")
	}
	fmt.Fprintf(&sb, "\nTotal: %d website(s) supported", len(sites))
	return sb.String()
}

func (b *Bot) getUpdates(ctx context.Context) ([]update, error) {
	params := url.Values{}
	params.Set("offset", strconv.FormatInt(b.offset, 10))
	params.Set("timeout", strconv.Itoa(int(b.pollTimeout.Seconds())))
	params.Set("allowed_updates", `["message"]`)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		b.methodURL("getUpdates")+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	var updates []update
	if err := b.call(req, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

func (b *Bot) reply(ctx context.Context, msg *message, text string) {
	payload, err := json.Marshal(sendMessageRequest{
		ChatID:           msg.Chat.ID,
		Text:             text,
		ReplyToMessageID: msg.MessageID,
	})
	if err != nil {
		b.logger.Error().Err(err).Msg("encoding reply failed")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		b.methodURL("sendMessage"), bytes.NewReader(payload))
	if err != nil {
		b.logger.Error().Err(err).Msg("creating reply request failed")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	if err := b.call(req, nil); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", msg.Chat.ID).Msg("sending reply failed")
	}
}

func (b *Bot) call(req *http.Request, out any) error {
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	var api apiResponse
	if err := json.Unmarshal(raw, &api); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if !api.OK {
		return fmt.Errorf("telegram API error: %s", api.Description)
	}

	if out != nil {
		if err := json.Unmarshal(api.Result, out); err != nil {
			return fmt.Errorf("decoding result: %w", err)
		}
	}
	return nil
}

func (b *Bot) methodURL(method string) string {
	return b.baseURL + "/bot" + b.token + "/" + method
}

// Bot API wire shapes, limited to the fields the bot reads.

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
}

type update struct {
	UpdateID int64    `json:"update_id"`
	Message  *message `json:"message"`
}

type message struct {
	MessageID int64  `json:"message_id"`
	Chat      chat   `json:"chat"`
	From      *user  `json:"from"`
	Text      string `json:"text"`
}

// SenderName is the best display name available for the sender.
func (m *message) SenderName() string {
	if m.From == nil {
		return ""
	}
	if m.From.Username != "" {
		return m.From.Username
	}
	return m.From.FirstName
}

type chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

type user struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
}

type sendMessageRequest struct {
	ChatID           int64  `json:"chat_id"`
	Text             string `json:"text"`
	ReplyToMessageID int64  `json:"reply_to_message_id,omitempty"`
}
