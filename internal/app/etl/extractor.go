package etl

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/antchfx/htmlquery"
	"github.com/ymakhloufi/banks-etl/internal/pkg/model"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

var whitespace = regexp.MustCompile(`\s+`)

type Extractor struct {
	client *http.Client
	logger *zap.Logger
}

func NewExtractor(client *http.Client, logger *zap.Logger) *Extractor {
	if client == nil {
		client = http.DefaultClient
	}
	return &Extractor{client: client, logger: logger}
}

// Extract downloads the ranking page and returns its banks in page order.
func (e *Extractor) Extract(ctx context.Context, url string, columns []string) (model.RecordSet, error) {
	doc, err := e.fetch(ctx, url)
	if err != nil {
		return model.RecordSet{}, err
	}
	e.logger.Debug("parsed root nodes", zap.String("url", url))

	banks, err := ParseBankTable(doc)
	if err != nil {
		return model.RecordSet{}, err
	}
	e.logger.Debug("parsed bank rows", zap.Int("rows", len(banks)))

	return model.RecordSet{
		Columns:     append([]string(nil), columns...),
		Banks:       banks,
		ExtractedOn: civil.DateOf(time.Now()),
	}, nil
}

func (e *Extractor) fetch(ctx context.Context, url string) (*html.Node, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to build request for '%s': %w", model.ErrNetwork, url, err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed reading '%s': %w", model.ErrNetwork, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: unexpected status %d from '%s'", model.ErrNetwork, resp.StatusCode, url)
	}

	body, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode body of '%s': %w", model.ErrParse, url, err)
	}

	doc, err := htmlquery.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse html from '%s': %w", model.ErrParse, url, err)
	}
	return doc, nil
}

// ParseBankTable reads the first table body of the document. The first row is
// the header; every other row must carry the bank name as the second link of
// its second cell and the market cap as the text of its third cell.
func ParseBankTable(doc *html.Node) ([]model.Bank, error) {
	// this is the shaky part. If the page layout changes, this is where it breaks
	tbody := htmlquery.FindOne(doc, "//tbody")
	if tbody == nil {
		return nil, fmt.Errorf("%w: no table body found, source page structure seems to have changed", model.ErrParse)
	}

	rows := htmlquery.Find(tbody, "./tr")
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: table body has no rows", model.ErrParse)
	}

	banks := make([]model.Bank, 0, len(rows)-1)
	for i, row := range rows[1:] {
		bank, err := parseBankRow(row)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %w", model.ErrParse, i+1, err)
		}
		banks = append(banks, bank)
	}

	return banks, nil
}

func parseBankRow(row *html.Node) (model.Bank, error) {
	cells := htmlquery.Find(row, "./td")
	if len(cells) < 3 {
		return model.Bank{}, fmt.Errorf("expected at least 3 cells, found %d", len(cells))
	}

	links := htmlquery.Find(cells[1], ".//a")
	if len(links) < 2 {
		return model.Bank{}, fmt.Errorf("expected at least 2 links in name cell, found %d", len(links))
	}
	name := getAllTextFromNode(links[1])
	if name == "" {
		return model.Bank{}, fmt.Errorf("bank name is empty")
	}

	capText := getAllTextFromNode(cells[2])
	marketCap, err := strconv.ParseFloat(strings.ReplaceAll(capText, ",", ""), 64)
	if err != nil {
		return model.Bank{}, fmt.Errorf("failed to parse market cap '%s' for '%s': %w", capText, name, err)
	}
	if math.IsNaN(marketCap) || math.IsInf(marketCap, 0) {
		return model.Bank{}, fmt.Errorf("market cap '%s' for '%s' is not a finite number", capText, name)
	}

	return model.Bank{Name: name, MarketCapUSD: marketCap}, nil
}

func getAllTextFromNode(node *html.Node) string {
	out := htmlquery.InnerText(node)

	out = strings.ReplaceAll(out, "\u00a0", " ") // non-breaking space
	out = whitespace.ReplaceAllString(out, " ")  // merge multi-spaces
	return strings.TrimSpace(out)
}
