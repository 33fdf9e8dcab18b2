package etl

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/antchfx/htmlquery"
	"github.com/ymakhloufi/banks-etl/internal/pkg/model"
	"go.uber.org/zap"
)

func parseFixture(t *testing.T, src string) []model.Bank {
	t.Helper()
	doc, err := htmlquery.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("failed to parse fixture: %v", err)
	}
	banks, err := ParseBankTable(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return banks
}

func TestParseBankTableFixture(t *testing.T) {
	src, err := os.ReadFile("testdata/banks.html")
	if err != nil {
		t.Fatalf("failed to read fixture: %v", err)
	}

	got := parseFixture(t, string(src))
	want := []model.Bank{
		{Name: "A Bank", MarketCapUSD: 100},
		{Name: "B Bank", MarketCapUSD: 80},
		{Name: "C Bank", MarketCapUSD: 50},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestParseBankTableRowCount(t *testing.T) {
	for _, n := range []int{0, 1, 10} {
		var b strings.Builder
		b.WriteString("<table><tbody><tr><th>Rank</th><th>Bank</th><th>Cap</th></tr>")
		for i := 0; i < n; i++ {
			b.WriteString(`<tr><td>1</td><td><a href="#">flag</a><a href="#">Bank</a></td><td>1.5</td></tr>`)
		}
		b.WriteString("</tbody></table>")

		if got := parseFixture(t, b.String()); len(got) != n {
			t.Errorf("expected %d banks, got %d", n, len(got))
		}
	}
}

func TestParseBankTableShapeErrors(t *testing.T) {
	header := "<tr><th>Rank</th><th>Bank</th><th>Cap</th></tr>"
	tests := []struct {
		name string
		html string
	}{
		{
			name: "no table body",
			html: "<html><body><p>nothing here</p></body></html>",
		},
		{
			name: "too few cells",
			html: "<table><tbody>" + header + `<tr><td>1</td><td><a>x</a><a>Bank</a></td></tr></tbody></table>`,
		},
		{
			name: "single link in name cell",
			html: "<table><tbody>" + header + `<tr><td>1</td><td><a>Bank</a></td><td>1.0</td></tr></tbody></table>`,
		},
		{
			name: "empty bank name",
			html: "<table><tbody>" + header + `<tr><td>1</td><td><a>x</a><a> </a></td><td>1.0</td></tr></tbody></table>`,
		},
		{
			name: "market cap not a number",
			html: "<table><tbody>" + header + `<tr><td>1</td><td><a>x</a><a>Bank</a></td><td>n/a</td></tr></tbody></table>`,
		},
		{
			name: "market cap NaN",
			html: "<table><tbody>" + header + `<tr><td>1</td><td><a>x</a><a>Bank</a></td><td>NaN</td></tr></tbody></table>`,
		},
		{
			name: "market cap infinity",
			html: "<table><tbody>" + header + `<tr><td>1</td><td><a>x</a><a>Bank</a></td><td>+Inf</td></tr></tbody></table>`,
		},
		{
			name: "market cap spelled infinity",
			html: "<table><tbody>" + header + `<tr><td>1</td><td><a>x</a><a>Bank</a></td><td>-infinity</td></tr></tbody></table>`,
		},
		{
			name: "bad row after good row",
			html: "<table><tbody>" + header +
				`<tr><td>1</td><td><a>x</a><a>Good</a></td><td>1.0</td></tr>` +
				`<tr><td>2</td><td><a>x</a><a>Bad</a></td><td>?</td></tr></tbody></table>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := htmlquery.Parse(strings.NewReader(tt.html))
			if err != nil {
				t.Fatalf("failed to parse fixture: %v", err)
			}
			banks, err := ParseBankTable(doc)
			if !errors.Is(err, model.ErrParse) {
				t.Errorf("expected parse error, got %v", err)
			}
			if banks != nil {
				t.Errorf("expected no partial result, got %+v", banks)
			}
		})
	}
}

func TestExtractFromServer(t *testing.T) {
	src, err := os.ReadFile("testdata/banks.html")
	if err != nil {
		t.Fatalf("failed to read fixture: %v", err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(src)
	}))
	defer srv.Close()

	e := NewExtractor(srv.Client(), zap.NewNop())
	records, err := e.Extract(context.Background(), srv.URL, model.ExtractColumns)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if records.Len() != 3 {
		t.Fatalf("expected 3 banks, got %d", records.Len())
	}
	if !reflect.DeepEqual(records.Columns, model.ExtractColumns) {
		t.Errorf("expected columns %v, got %v", model.ExtractColumns, records.Columns)
	}
	if records.ExtractedOn.IsZero() {
		t.Error("expected extraction date to be set")
	}
	for i, name := range []string{"A Bank", "B Bank", "C Bank"} {
		if records.Banks[i].Name != name {
			t.Errorf("row %d: expected %s, got %s", i, name, records.Banks[i].Name)
		}
	}
}

func TestExtractDecodesDeclaredCharset(t *testing.T) {
	// "Société Générale" in ISO-8859-1
	page := "<html><body><table><tbody><tr><th>Rank</th><th>Bank</th><th>Cap</th></tr>" +
		"<tr><td>1</td><td><a href=\"#\">flag</a><a href=\"#\">Soci\xe9t\xe9 G\xe9n\xe9rale</a></td><td>75.3</td></tr>" +
		"</tbody></table></body></html>"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=ISO-8859-1")
		w.Write([]byte(page))
	}))
	defer srv.Close()

	e := NewExtractor(srv.Client(), zap.NewNop())
	records, err := e.Extract(context.Background(), srv.URL, model.ExtractColumns)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if records.Len() != 1 {
		t.Fatalf("expected 1 bank, got %d", records.Len())
	}

	name := records.Banks[0].Name
	if !utf8.ValidString(name) {
		t.Errorf("expected valid UTF-8 name, got %q", name)
	}
	if name != "Société Générale" {
		t.Errorf("expected Société Générale, got %q", name)
	}
}

func TestExtractNetworkErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))

	e := NewExtractor(srv.Client(), zap.NewNop())
	if _, err := e.Extract(context.Background(), srv.URL, model.ExtractColumns); !errors.Is(err, model.ErrNetwork) {
		t.Errorf("expected network error for 404, got %v", err)
	}

	srv.Close()
	if _, err := e.Extract(context.Background(), srv.URL, model.ExtractColumns); !errors.Is(err, model.ErrNetwork) {
		t.Errorf("expected network error for closed server, got %v", err)
	}
}
