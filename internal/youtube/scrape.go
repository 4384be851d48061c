package youtube

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/gocolly/colly/v2"

	"youtube-transcription-service/internal/logger"
)

const desktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// CollyScraper reads video details from the meta tags of the watch page.
type CollyScraper struct {
	watchURL func(videoID string) string
	timeout  time.Duration
}

// NewCollyScraper creates a CollyScraper for youtube.com watch pages.
func NewCollyScraper() *CollyScraper {
	return &CollyScraper{watchURL: WatchURL, timeout: 15 * time.Second}
}

func (s *CollyScraper) Name() string { return "colly" }

// Scrape fetches the watch page once and reads title, channel, views and description.
func (s *CollyScraper) Scrape(ctx context.Context, videoID string) (*VideoDetails, error) {
	c := colly.NewCollector(
		colly.MaxDepth(1),
		colly.UserAgent(desktopUserAgent),
		colly.StdlibContext(ctx),
	)
	c.SetRequestTimeout(s.timeout)
	c.OnRequest(func(r *colly.Request) {
		// Skips the EU consent interstitial.
		r.Headers.Set("Cookie", "CONSENT=YES+1")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
	})

	details := &VideoDetails{Language: "en"}
	var scrapeErr error

	c.OnHTML(`meta[name="title"]`, func(h *colly.HTMLElement) {
		details.Title = strings.TrimSpace(h.Attr("content"))
	})
	c.OnHTML(`meta[property="og:title"]`, func(h *colly.HTMLElement) {
		if details.Title == "" {
			details.Title = strings.TrimSpace(h.Attr("content"))
		}
	})
	c.OnHTML(`meta[name="description"]`, func(h *colly.HTMLElement) {
		details.Description = strings.TrimSpace(h.Attr("content"))
	})
	c.OnHTML(`span[itemprop="author"] link[itemprop="name"]`, func(h *colly.HTMLElement) {
		details.Channel = strings.TrimSpace(h.Attr("content"))
	})
	c.OnHTML(`meta[itemprop="interactionCount"]`, func(h *colly.HTMLElement) {
		details.Views = strings.TrimSpace(h.Attr("content"))
	})
	c.OnHTML(`meta[itemprop="inLanguage"]`, func(h *colly.HTMLElement) {
		details.Language = NormalizeLanguage(h.Attr("content"))
	})

	c.OnError(func(r *colly.Response, err error) {
		scrapeErr = fmt.Errorf("colly request failed: status_code=%d, error=%w", r.StatusCode, err)
	})

	url := s.watchURL(videoID)
	if err := c.Visit(url); err != nil {
		if scrapeErr != nil {
			return nil, scrapeErr
		}
		return nil, fmt.Errorf("failed to visit watch page: %w", err)
	}
	if scrapeErr != nil {
		return nil, scrapeErr
	}

	log.Printf("CollyScraper: scraped %s title=%q channel=%q", url, details.Title, details.Channel)
	return details, nil
}

// ChromedpScraper renders the watch page in headless Chrome and reads the
// player response object, which the static HTML does not always include.
type ChromedpScraper struct {
	timeout time.Duration
}

// NewChromedpScraper creates a ChromedpScraper.
func NewChromedpScraper() *ChromedpScraper {
	return &ChromedpScraper{timeout: 30 * time.Second}
}

func (s *ChromedpScraper) Name() string { return "chromedp" }

const playerDetailsJS = `(function() {
	const r = window.ytInitialPlayerResponse || {};
	const d = r.videoDetails || {};
	return {
		title: d.title || "",
		author: d.author || "",
		viewCount: d.viewCount || "",
		description: d.shortDescription || ""
	};
})()`

type playerDetails struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	ViewCount   string `json:"viewCount"`
	Description string `json:"description"`
}

// Scrape loads the watch page and evaluates the player response.
func (s *ChromedpScraper) Scrape(ctx context.Context, videoID string) (*VideoDetails, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(desktopUserAgent),
	)

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(log.Printf))
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, s.timeout)
	defer cancel()

	var res playerDetails
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(WatchURL(videoID)),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Evaluate(playerDetailsJS, &res),
	)
	if err != nil {
		logger.LogError("ChromedpScraper: error rendering %s: %v", videoID, err)
		return nil, fmt.Errorf("chromedp execution failed: %w", err)
	}

	return &VideoDetails{
		Channel:     res.Author,
		Title:       res.Title,
		Views:       res.ViewCount,
		Description: res.Description,
		Language:    "en",
	}, nil
}
