package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bradykim7/auchan-crawler/pkg/config"
	"go.uber.org/zap/zaptest"
)

const listingPage = `<!DOCTYPE html>
<html lang="ru">
	<body>
		<div class="css-n9ebcy-Item" data-offer-id="501">
			<a class="linkToPDP active css-do8div" href="/product/501/"><p class="css-1bdovxp">Сок яблочный</p></a>
			<div class="active css-xtv3eo">120 ₽</div>
			<div class="active css-1hxq85i">99 ₽</div>
		</div>
		<div class="css-n9ebcy-Item" data-offer-id="502">
			<a class="linkToPDP active css-do8div" href="/product/502/"><p class="css-1bdovxp">Сок томатный</p></a>
			<div class="active css-xtv3eo">130 ₽</div>
			<div class="active css-1hxq85i">130 ₽</div>
		</div>
	</body>
</html>`

func newStubServer(t *testing.T) (*httptest.Server, func() []string) {
	var (
		mu      sync.Mutex
		regions []string
	)

	mux := http.NewServeMux()
	recordRegion := func(r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if c, err := r.Cookie("region_id"); err == nil {
			regions = append(regions, c.Value)
		} else {
			regions = append(regions, "")
		}
	}
	mux.HandleFunc("/catalog/", func(w http.ResponseWriter, r *http.Request) {
		recordRegion(r)
		w.Write([]byte(listingPage))
	})
	mux.HandleFunc("/product/501/", func(w http.ResponseWriter, r *http.Request) {
		recordRegion(r)
		w.Write([]byte(`<table><tr><th>Бренд</th><td>Acme</td></tr></table>`))
	})
	mux.HandleFunc("/product/502/", func(w http.ResponseWriter, r *http.Request) {
		recordRegion(r)
		w.Write([]byte(`<table><tr><th>Страна</th><td>Россия</td></tr></table>`))
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	return ts, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), regions...)
	}
}

func testConfig(ts *httptest.Server, outPath string) *config.Config {
	return &config.Config{
		CatalogURL:    ts.URL + "/catalog/sobstvennye-marki-ashan/",
		BaseURL:       ts.URL,
		Pages:         1,
		Regions:       []config.Region{{Name: "Москва", ID: "1"}},
		OutputPath:    outPath,
		HTTPTimeout:   5 * time.Second,
		RetryAttempts: 3,
		RetryDelay:    time.Millisecond,
		RetryBackoff:  2,
	}
}

func TestRunWritesOutputFile(t *testing.T) {
	ts, seenRegions := newStubServer(t)
	outPath := filepath.Join(t.TempDir(), "auchan.json")

	if err := run(context.Background(), testConfig(ts, outPath), zaptest.NewLogger(t)); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "Сок яблочный") {
		t.Errorf("non-ASCII text not preserved:\n%s", data)
	}

	var records []map[string]string
	if err := json.Unmarshal(data, &records); err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records", len(records))
	}
	if records[0]["product ID"] != "501" || records[1]["product ID"] != "502" {
		t.Errorf("records out of document order: %v", records)
	}
	if records[0]["brand"] != "Acme" || records[1]["brand"] != "None" {
		t.Errorf("brands %q %q", records[0]["brand"], records[1]["brand"])
	}
	for _, rec := range records {
		if !strings.HasPrefix(rec["product link"], ts.URL) {
			t.Errorf("link %q", rec["product link"])
		}
	}

	regions := seenRegions()
	if len(regions) != 3 {
		t.Errorf("server saw %d requests", len(regions))
	}
	for i, r := range regions {
		if r != "1" {
			t.Errorf("request %d had region cookie %q", i, r)
		}
	}
}

func TestRunWritesPartialOutputOnFailure(t *testing.T) {
	ts, _ := newStubServer(t)
	outPath := filepath.Join(t.TempDir(), "auchan.json")

	cfg := testConfig(ts, outPath)
	cfg.CatalogURL = ts.URL + "/missing"

	if err := run(context.Background(), cfg, zaptest.NewLogger(t)); err == nil {
		t.Fatal("expected error")
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(data)) != "[]" {
		t.Errorf("got %q", data)
	}
}
