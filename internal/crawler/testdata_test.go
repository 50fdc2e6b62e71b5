package crawler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bradykim7/auchan-crawler/internal/retry"
)

type testCard struct {
	ID, Name, Href, Regular, Promo string
}

func cardHTML(c testCard) string {
	return fmt.Sprintf(`
<div class="css-n9ebcy-Item" data-offer-id="%[1]s">
  <a class="linkToPDP active css-do8div" href="%[3]s">
    <img src="/img/%[1]s.jpg">
    <p class="css-1bdovxp">%[2]s</p>
  </a>
  <div class="price">
    <div class="active css-xtv3eo">%[4]s</div>
    <div class="active css-1hxq85i">%[5]s</div>
  </div>
</div>`, c.ID, c.Name, c.Href, c.Regular, c.Promo)
}

func listingHTML(cards ...testCard) string {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html lang="ru"><body><div class="catalog">`)
	for _, c := range cards {
		b.WriteString(cardHTML(c))
	}
	b.WriteString(`</div></body></html>`)
	return b.String()
}

func productHTML(rows map[string]string) string {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html lang="ru"><body><table class="specs">`)
	b.WriteString(`<tr><td colspan="2">Характеристики</td></tr>`)
	for th, td := range rows {
		fmt.Fprintf(&b, `<tr><th>%s</th><td>%s</td></tr>`, th, td)
	}
	b.WriteString(`</table></body></html>`)
	return b.String()
}

func noSleep(context.Context, time.Duration) error { return nil }

func testPolicy(attempts int) retry.Policy {
	return retry.Policy{Attempts: attempts, Delay: time.Second, Backoff: 2, Sleep: noSleep}
}
