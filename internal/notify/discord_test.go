package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/bradykim7/auchan-crawler/internal/models"
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap/zaptest"
)

type capturedEmbed struct {
	channelID string
	embed     *discordgo.MessageEmbed
}

func fieldValue(embed *discordgo.MessageEmbed, name string) (string, bool) {
	for _, f := range embed.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

func TestNotifyRunSendsSummary(t *testing.T) {
	var sent []capturedEmbed
	n := newNotifier("chan-1", zaptest.NewLogger(t), func(ch string, e *discordgo.MessageEmbed) error {
		sent = append(sent, capturedEmbed{ch, e})
		return nil
	})

	err := n.NotifyRun(context.Background(), RunSummary{
		CatalogURL: "https://www.auchan.ru/catalog/x/",
		Regions:    []string{"Москва", "Санкт-Петербург"},
		Products: []models.Product{
			{Name: "Молоко", URL: "https://www.auchan.ru/product/1/", RegularPrice: "109 ₽", PromoPrice: "89 ₽", Brand: "Каждый день"},
			{Name: "Хлеб", URL: "https://www.auchan.ru/product/2/", RegularPrice: "50 ₽", PromoPrice: "50 ₽", Brand: models.NoBrand},
		},
		PagesFetched:   2,
		BrandFallbacks: 1,
		Duration:       3 * time.Second,
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(sent) != 1 || sent[0].channelID != "chan-1" {
		t.Fatalf("sent %+v", sent)
	}
	embed := sent[0].embed
	if embed.Title != "Catalog crawl finished" || embed.Color != 0x00ff00 {
		t.Errorf("title %q color %x", embed.Title, embed.Color)
	}
	if v, _ := fieldValue(embed, "Products"); v != "2" {
		t.Errorf("products field %q", v)
	}
	if v, _ := fieldValue(embed, "Regions"); v != "Москва, Санкт-Петербург" {
		t.Errorf("regions field %q", v)
	}
	promos, ok := fieldValue(embed, "Promotions")
	if !ok || !strings.Contains(promos, "Молоко") || strings.Contains(promos, "Хлеб") {
		t.Errorf("promotions field %q", promos)
	}
	if v, _ := fieldValue(embed, "No brand"); v != "1" {
		t.Errorf("no brand field %q", v)
	}
	if _, ok := fieldValue(embed, "Brand lookups failed"); !ok {
		t.Error("brand fallback field missing")
	}
}

func TestNotifyRunFailure(t *testing.T) {
	var got *discordgo.MessageEmbed
	n := newNotifier("c", zaptest.NewLogger(t), func(_ string, e *discordgo.MessageEmbed) error {
		got = e
		return nil
	})

	if err := n.NotifyRun(context.Background(), RunSummary{Err: errors.New("region 1 page 2: timeout")}); err != nil {
		t.Fatal(err)
	}
	if got.Title != "Catalog crawl failed" || got.Color != 0xff0000 {
		t.Errorf("title %q color %x", got.Title, got.Color)
	}
	if v, _ := fieldValue(got, "Error"); v != "region 1 page 2: timeout" {
		t.Errorf("error field %q", v)
	}
}

func TestNotifyRunSendError(t *testing.T) {
	n := newNotifier("c", zaptest.NewLogger(t), func(string, *discordgo.MessageEmbed) error {
		return errors.New("401 Unauthorized")
	})
	if err := n.NotifyRun(context.Background(), RunSummary{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestPromotionLinesBounded(t *testing.T) {
	var products []models.Product
	for i := 0; i < 50; i++ {
		products = append(products, models.Product{
			Name:         strings.Repeat("Очень длинное название ", 3),
			URL:          "https://www.auchan.ru/product/x/",
			RegularPrice: "1000 ₽",
			PromoPrice:   "900 ₽",
		})
	}

	lines := promotionLines(products)
	if len(lines) > maxFieldLength {
		t.Errorf("field is %d bytes", len(lines))
	}
	if n := strings.Count(lines, "\n") + 1; n > maxListedProducts {
		t.Errorf("%d lines listed", n)
	}
}

func TestTruncateKeepsValidUTF8(t *testing.T) {
	s := strings.Repeat("ж", 600)
	got := truncate(s, maxFieldLength)
	if len(got) > maxFieldLength || !utf8.ValidString(got) || !strings.HasSuffix(got, "...") {
		t.Errorf("truncate produced %d bytes, valid=%v", len(got), utf8.ValidString(got))
	}
}
