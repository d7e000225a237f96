package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/cogentx/cogentx/internal/common"
	"github.com/cogentx/cogentx/internal/httpclient"
	"github.com/cogentx/cogentx/internal/interfaces"
)

// Service fetches a web page and reduces it to markdown suitable for
// chunking. Boilerplate elements (navigation, scripts, page chrome) are
// stripped before conversion so they never pollute retrieval.
type Service struct {
	httpClient   *http.Client
	maxBodyBytes int64
	logger       arbor.ILogger
}

// New creates a fetcher from the process configuration.
func New(cfg *common.FetcherConfig, logger arbor.ILogger) (*Service, error) {
	client, err := httpclient.NewFetchClient(cfg.UserAgent, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	return &Service{
		httpClient:   client,
		maxBodyBytes: cfg.MaxBodyBytes,
		logger:       logger,
	}, nil
}

// Fetch downloads a page and returns its title and markdown content. The
// response body is read through a size cap so a runaway page cannot exhaust
// memory.
func (s *Service) Fetch(ctx context.Context, pageURL string) (*interfaces.Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid url %s: %w", pageURL, err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: status %d", pageURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", pageURL, err)
	}

	title, content, err := s.extract(pageURL, string(body))
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("no extractable content at %s", pageURL)
	}

	s.logger.Debug().
		Str("url", pageURL).
		Str("title", title).
		Int("content_length", len(content)).
		Msg("Fetched page")

	return &interfaces.Page{
		URL:     pageURL,
		Title:   title,
		Content: content,
	}, nil
}

// extract strips boilerplate from the HTML and converts what remains to
// markdown.
func (s *Service) extract(pageURL, html string) (title, content string, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", "", fmt.Errorf("parsing %s: %w", pageURL, err)
	}

	title = extractTitle(doc)

	doc.Find("script, style, nav, header, footer, aside, noscript, iframe").Remove()

	root := doc.Find("main")
	if root.Length() == 0 {
		root = doc.Find("body")
	}
	cleaned, err := root.Html()
	if err != nil || strings.TrimSpace(cleaned) == "" {
		cleaned, _ = doc.Html()
	}

	converter := md.NewConverter(pageURL, true, nil)
	content, err = converter.ConvertString(cleaned)
	if err != nil {
		return "", "", fmt.Errorf("converting %s to markdown: %w", pageURL, err)
	}
	return title, collapseBlankLines(content), nil
}

func extractTitle(doc *goquery.Document) string {
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
		return h1
	}
	if og, ok := doc.Find("meta[property='og:title']").Attr("content"); ok {
		return strings.TrimSpace(og)
	}
	return ""
}

// collapseBlankLines squeezes runs of blank lines down to one so chunking
// sees consistent paragraph breaks.
func collapseBlankLines(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			if blank {
				continue
			}
			blank = true
			out = append(out, "")
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
