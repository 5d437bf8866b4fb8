package fetch

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"meralcocli/pkg/contracts/domain"
)

// Item is one discovered rate schedule publication: the PDF to
// download, the page it was announced on, and the billing period it
// covers.
type Item struct {
	Period domain.Period
	PDFURL string
	// ItemURL is the announcement page the PDF link was found on.
	ItemURL string
	Title   string
}

// rateTitleMarkers identify rate schedule announcements by title. The
// site has used both wordings over the years.
var rateTitleMarkers = []string{
	"SUMMARY OF SCHEDULE OF RATES",
	"SUMMARY SCHEDULE OF RATES",
}

var (
	pdfHrefPattern  = regexp.MustCompile(`(?i)href=['"]?([^'" >]+\.pdf)['"]?`)
	nodeLinkPattern = regexp.MustCompile(`<a[^>]+href=['"](/node/\d+)['"][^>]*>(.*?)</a>`)
	titleTagPattern = regexp.MustCompile(`(?is)<title>(.*?)</title>`)

	// Period markers observed in PDF paths: /2025-03/ and /03-2025_.
	urlYearMonthPattern = regexp.MustCompile(`/(20\d{2})-(\d{2})/`)
	urlMonthYearPattern = regexp.MustCompile(`/(\d{2})-(20\d{2})_`)

	fullMonthPattern  = regexp.MustCompile(`(?i)(January|February|March|April|May|June|July|August|September|October|November|December)\s+(\d{4})`)
	shortMonthPattern = regexp.MustCompile(`(?i)(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]* (\d{4})`)
)

// rssFeed models the slice of the feed XML this package reads.
type rssFeed struct {
	XMLName xml.Name  `xml:"rss"`
	Items   []rssItem `xml:"channel>item"`
}

type rssItem struct {
	Title   string `xml:"title"`
	Link    string `xml:"link"`
	PubDate string `xml:"pubDate"`
}

// LatestItem finds the most recent rate schedule publication via the
// RSS feed. Feed items are newest first; the first one whose title
// matches and whose announcement page carries a usable PDF link wins.
func (c *Client) LatestItem(ctx context.Context) (*Item, error) {
	feedURL := c.source.RSSURL()
	raw, err := c.getWithRetry(ctx, feedURL)
	if err != nil {
		return nil, err
	}

	var feed rssFeed
	if err := xml.Unmarshal(raw, &feed); err != nil {
		return nil, &Error{URL: feedURL, Err: fmt.Errorf("malformed feed: %w", err)}
	}

	for _, entry := range feed.Items {
		if !titleMatchesRates(entry.Title) {
			continue
		}

		html, err := c.getWithRetry(ctx, entry.Link)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			c.logger.WarnContext(ctx, "item page fetch failed",
				slog.String("url", entry.Link),
				slog.String("error", err.Error()))
			continue
		}

		pdfURL, ok := pickPDFURL(string(html), c.source.BaseURL)
		if !ok {
			c.logger.WarnContext(ctx, "no PDF link on item page", slog.String("url", entry.Link))
			continue
		}

		period, ok := periodFromPubDate(entry.PubDate)
		if !ok {
			period, ok = periodFromText(entry.Title)
		}
		if !ok {
			c.logger.WarnContext(ctx, "cannot derive period for item",
				slog.String("title", entry.Title),
				slog.String("pub_date", entry.PubDate))
			continue
		}

		return &Item{
			Period:  period,
			PDFURL:  pdfURL,
			ItemURL: entry.Link,
			Title:   strings.TrimSpace(entry.Title),
		}, nil
	}
	return nil, &Error{URL: feedURL, Err: fmt.Errorf("no rate schedule item found in feed")}
}

// ArchiveItems crawls the paginated archive for publications within
// [start, end]. The archive lists newest first, so the crawl halts as
// soon as a period older than start appears. Items come back in crawl
// order (newest first), deduplicated by node and PDF URL.
func (c *Client) ArchiveItems(ctx context.Context, start, end domain.Period) ([]Item, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("invalid period range: %s is after %s", start, end)
	}

	var items []Item
	seenPDF := make(map[string]bool)
	seenNode := make(map[string]bool)
	pagesCrawled := 0

crawl:
	for page := 0; page < maxArchivePages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pageURL := c.source.ArchiveURL(page)
		c.logger.DebugContext(ctx, "crawling archive page",
			slog.Int("page", page),
			slog.String("url", pageURL))

		html, err := c.getWithRetry(ctx, pageURL)
		if err != nil {
			if ctx.Err() != nil || len(items) == 0 {
				return nil, err
			}
			c.logger.WarnContext(ctx, "archive page fetch failed, stopping crawl",
				slog.Int("page", page),
				slog.String("error", err.Error()))
			break
		}
		pagesCrawled++

		nodeLinks := nodeLinkPattern.FindAllStringSubmatch(string(html), -1)
		if len(nodeLinks) == 0 {
			break
		}

		for _, link := range nodeLinks {
			nodeURL := c.source.BaseURL + link[1]
			if seenNode[nodeURL] {
				continue
			}
			seenNode[nodeURL] = true

			item, err := c.archiveNodeItem(ctx, nodeURL)
			if err != nil {
				if ctx.Err() != nil {
					return nil, err
				}
				c.logger.WarnContext(ctx, "archive node fetch failed",
					slog.String("url", nodeURL),
					slog.String("error", err.Error()))
				continue
			}
			if item == nil || seenPDF[item.PDFURL] {
				continue
			}
			seenPDF[item.PDFURL] = true

			if end.Before(item.Period) {
				continue
			}
			if item.Period.Before(start) {
				c.logger.DebugContext(ctx, "reached periods before requested start",
					slog.String("period", item.Period.String()))
				break crawl
			}
			items = append(items, *item)
		}
	}

	c.logger.InfoContext(ctx, "archive crawl finished",
		slog.Int("pages", pagesCrawled),
		slog.Int("items", len(items)))
	return items, nil
}

// archiveNodeItem fetches one announcement page and resolves its PDF
// and period. A nil item (no error) means the node is not a usable rate
// schedule announcement.
func (c *Client) archiveNodeItem(ctx context.Context, nodeURL string) (*Item, error) {
	html, err := c.getWithRetry(ctx, nodeURL)
	if err != nil {
		return nil, err
	}

	pdfURL, ok := pickPDFURL(string(html), c.source.BaseURL)
	if !ok {
		return nil, nil
	}

	title := nodeTitle(string(html))
	period, ok := periodFromPDFURL(pdfURL)
	if !ok {
		period, ok = periodFromText(title)
	}
	if !ok {
		return nil, nil
	}

	return &Item{
		Period:  period,
		PDFURL:  pdfURL,
		ItemURL: nodeURL,
		Title:   title,
	}, nil
}

func titleMatchesRates(title string) bool {
	upper := strings.ToUpper(title)
	for _, marker := range rateTitleMarkers {
		if strings.Contains(upper, marker) {
			return true
		}
	}
	return false
}

// pickPDFURL chooses the schedule PDF among a page's PDF links:
// prefer a URL naming "rate" plus "schedule" or "summary", else take
// the last PDF on the page (announcement pages put the attachment
// last). Relative links resolve against the site base.
func pickPDFURL(html, baseURL string) (string, bool) {
	matches := pdfHrefPattern.FindAllStringSubmatch(html, -1)
	if len(matches) == 0 {
		return "", false
	}

	target := ""
	for _, m := range matches {
		lower := strings.ToLower(m[1])
		if strings.Contains(lower, "rate") &&
			(strings.Contains(lower, "schedule") || strings.Contains(lower, "summary")) {
			target = m[1]
			break
		}
	}
	if target == "" {
		target = matches[len(matches)-1][1]
	}

	if !strings.HasPrefix(target, "http") {
		target = baseURL + target
	}
	return target, true
}

// nodeTitle extracts a page's <title>, stripped of the site suffix.
func nodeTitle(html string) string {
	m := titleTagPattern.FindStringSubmatch(html)
	if m == nil {
		return ""
	}
	title := strings.ReplaceAll(m[1], " | Meralco", "")
	return strings.TrimSpace(title)
}

// periodFromPDFURL reads the billing period out of the PDF path, which
// embeds it either as /YYYY-MM/ or as /MM-YYYY_.
func periodFromPDFURL(pdfURL string) (domain.Period, bool) {
	if m := urlYearMonthPattern.FindStringSubmatch(pdfURL); m != nil {
		if p, err := domain.ParsePeriod(m[1] + "-" + m[2]); err == nil {
			return p, true
		}
	}
	if m := urlMonthYearPattern.FindStringSubmatch(pdfURL); m != nil {
		if p, err := domain.ParsePeriod(m[2] + "-" + m[1]); err == nil {
			return p, true
		}
	}
	return domain.Period{}, false
}

// periodFromText reads a "July 2025" style month-year out of free text.
func periodFromText(text string) (domain.Period, bool) {
	m := fullMonthPattern.FindStringSubmatch(text)
	if m == nil {
		return domain.Period{}, false
	}
	t, err := time.Parse("January 2006", foldMonthCase(m[1])+" "+m[2])
	if err != nil {
		return domain.Period{}, false
	}
	return domain.Period{Year: t.Year(), Month: t.Month()}, true
}

// periodFromPubDate reads the month out of an RSS pubDate, tolerating
// both abbreviated and full month names.
func periodFromPubDate(pubDate string) (domain.Period, bool) {
	m := shortMonthPattern.FindStringSubmatch(pubDate)
	if m == nil {
		return domain.Period{}, false
	}
	t, err := time.Parse("Jan 2006", foldMonthCase(m[1][:3])+" "+m[2])
	if err != nil {
		return domain.Period{}, false
	}
	return domain.Period{Year: t.Year(), Month: t.Month()}, true
}

// foldMonthCase normalizes a case-insensitive regex capture to the
// capitalization time.Parse expects.
func foldMonthCase(name string) string {
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + strings.ToLower(name[1:])
}
