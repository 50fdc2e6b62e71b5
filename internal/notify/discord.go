package notify

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bradykim7/auchan-crawler/internal/models"
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	maxListedProducts = 10
	maxFieldLength    = 1024
)

// RunSummary describes a finished crawl
type RunSummary struct {
	CatalogURL     string
	Regions        []string
	Products       []models.Product
	PagesFetched   int
	BrandFallbacks int
	OutputPath     string
	Duration       time.Duration
	Err            error
}

type embedSender func(channelID string, embed *discordgo.MessageEmbed) error

// DiscordNotifier posts crawl summaries to a Discord channel using the
// discordgo library
type DiscordNotifier struct {
	session   *discordgo.Session
	send      embedSender
	channelID string
	logger    *zap.Logger
}

// NewDiscordNotifier creates a new Discord notifier
func NewDiscordNotifier(token, channelID string, log *zap.Logger) (*DiscordNotifier, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}

	n := newNotifier(channelID, log, func(channelID string, embed *discordgo.MessageEmbed) error {
		_, err := session.ChannelMessageSendEmbed(channelID, embed)
		return err
	})
	n.session = session
	return n, nil
}

func newNotifier(channelID string, log *zap.Logger, send embedSender) *DiscordNotifier {
	return &DiscordNotifier{
		send:      send,
		channelID: channelID,
		logger:    log.Named("discord-notifier"),
	}
}

// NotifyRun sends the summary of a crawl
func (n *DiscordNotifier) NotifyRun(ctx context.Context, summary RunSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	embed := createRunEmbed(summary)
	if err := n.send(n.channelID, embed); err != nil {
		n.logger.Error("Failed to send run summary",
			zap.Error(err),
			zap.String("channel_id", n.channelID))
		return fmt.Errorf("failed to send Discord message: %w", err)
	}

	n.logger.Info("Run summary sent", zap.String("channel_id", n.channelID))
	return nil
}

// createRunEmbed creates a rich embed for a crawl summary
func createRunEmbed(s RunSummary) *discordgo.MessageEmbed {
	color := 0x00ff00 // Green color
	title := "Catalog crawl finished"
	if s.Err != nil {
		color = 0xff0000
		title = "Catalog crawl failed"
	}

	fields := []*discordgo.MessageEmbedField{
		{
			Name:   "Regions",
			Value:  orDash(strings.Join(s.Regions, ", ")),
			Inline: true,
		},
		{
			Name:   "Products",
			Value:  fmt.Sprintf("%d", len(s.Products)),
			Inline: true,
		},
		{
			Name:   "Pages",
			Value:  fmt.Sprintf("%d", s.PagesFetched),
			Inline: true,
		},
	}

	if s.BrandFallbacks > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   "Brand lookups failed",
			Value:  fmt.Sprintf("%d", s.BrandFallbacks),
			Inline: true,
		})
	}

	if n := countUnbranded(s.Products); n > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   "No brand",
			Value:  fmt.Sprintf("%d", n),
			Inline: true,
		})
	}

	if promos := promotionLines(s.Products); promos != "" {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   "Promotions",
			Value:  promos,
			Inline: false,
		})
	}

	if s.Err != nil {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   "Error",
			Value:  truncate(s.Err.Error(), maxFieldLength),
			Inline: false,
		})
	}

	footer := fmt.Sprintf("Took %s", s.Duration.Round(time.Second))
	if s.OutputPath != "" {
		footer += " | " + s.OutputPath
	}

	return &discordgo.MessageEmbed{
		Title:     title,
		URL:       s.CatalogURL,
		Color:     color,
		Fields:    fields,
		Timestamp: time.Now().Format(time.RFC3339),
		Footer: &discordgo.MessageEmbedFooter{
			Text: footer,
		},
	}
}

func countUnbranded(products []models.Product) int {
	n := 0
	for _, p := range products {
		if !p.HasBrand() {
			n++
		}
	}
	return n
}

// promotionLines lists products whose promo price differs from the regular one.
func promotionLines(products []models.Product) string {
	var lines []string
	for _, p := range products {
		if p.PromoPrice == "" || p.PromoPrice == p.RegularPrice {
			continue
		}
		lines = append(lines, fmt.Sprintf("[%s](%s): ~~%s~~ %s", p.Name, p.URL, p.RegularPrice, p.PromoPrice))
		if len(lines) == maxListedProducts {
			break
		}
	}

	var b strings.Builder
	for _, line := range lines {
		if b.Len()+len(line)+1 > maxFieldLength {
			break
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// Close cleans up resources
func (n *DiscordNotifier) Close() {
	if n.session != nil {
		n.session.Close()
	}
}
