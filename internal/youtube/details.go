package youtube

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"strconv"
	"strings"

	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"

	"youtube-transcription-service/internal/logger"
)

// VideoDetails is the video metadata interpolated into the prompt.
// Empty fields are rendered as "Unknown".
type VideoDetails struct {
	Channel     string `json:"channel"`
	Title       string `json:"title"`
	Views       string `json:"views"`
	Likes       string `json:"likes"`
	Description string `json:"description"`
	// Language is a two-letter code used to pick captions and the whisper language.
	Language string `json:"language"`
}

// Scraper retrieves video details without the Data API.
type Scraper interface {
	Name() string
	Scrape(ctx context.Context, videoID string) (*VideoDetails, error)
}

// DetailsClient fetches video details from the YouTube Data API and falls
// back to page scrapers when no key is configured or the API call fails.
type DetailsClient struct {
	service  *ytapi.Service
	apiKey   string
	scrapers []Scraper
}

// NewDetailsClient creates a DetailsClient. apiKey may be empty.
func NewDetailsClient(ctx context.Context, apiKey string, scrapers ...Scraper) (*DetailsClient, error) {
	c := &DetailsClient{apiKey: apiKey, scrapers: scrapers}
	if apiKey != "" {
		service, err := ytapi.NewService(ctx, option.WithAPIKey(apiKey))
		if err != nil {
			return nil, fmt.Errorf("failed to create YouTube service: %w", err)
		}
		c.service = service
	}
	return c, nil
}

// NewScrapers builds the scrapers named in a comma-separated order string.
// Unknown names are skipped.
func NewScrapers(order string) []Scraper {
	var scrapers []Scraper
	for _, name := range strings.Split(order, ",") {
		switch strings.TrimSpace(strings.ToLower(name)) {
		case "colly":
			scrapers = append(scrapers, NewCollyScraper())
		case "chromedp":
			scrapers = append(scrapers, NewChromedpScraper())
		}
	}
	return scrapers
}

// FetchDetails returns details for videoID, or ErrNoDetails.
func (c *DetailsClient) FetchDetails(ctx context.Context, videoID string) (*VideoDetails, error) {
	var errs []string

	if c.service != nil {
		log.Printf("Fetching video details for video ID: %s (API key %s)", videoID, MaskKey(c.apiKey))
		details, err := c.fetchFromAPI(ctx, videoID)
		if err == nil {
			return details, nil
		}
		logger.LogError("YouTube API video details for %s failed: %v", videoID, err)
		errs = append(errs, "api: "+err.Error())
	}

	for _, scraper := range c.scrapers {
		slog.Info("Scraping video details", "video_id", videoID, "scraper", scraper.Name())
		details, err := scraper.Scrape(ctx, videoID)
		if err == nil && details.Title != "" {
			return details, nil
		}
		if err == nil {
			err = fmt.Errorf("no title found")
		}
		logger.LogError("Scraper %s failed for %s: %v", scraper.Name(), videoID, err)
		errs = append(errs, scraper.Name()+": "+err.Error())
		if ctx.Err() != nil {
			break
		}
	}

	if len(errs) == 0 {
		return nil, fmt.Errorf("%w: no API key and no scrapers configured", ErrNoDetails)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("%w: %w: %s", ErrNoDetails, ctxErr, strings.Join(errs, "; "))
	}
	return nil, fmt.Errorf("%w: %s", ErrNoDetails, strings.Join(errs, "; "))
}

func (c *DetailsClient) fetchFromAPI(ctx context.Context, videoID string) (*VideoDetails, error) {
	resp, err := c.service.Videos.List([]string{"snippet", "statistics"}).Id(videoID).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("no items found in API response for video ID: %s", videoID)
	}
	details := detailsFromVideo(resp.Items[0])
	log.Printf("Fetched details for %s: title=%q channel=%q views=%s", videoID, details.Title, details.Channel, details.Views)
	return details, nil
}

// detailsFromVideo maps a Data API video resource to VideoDetails.
func detailsFromVideo(v *ytapi.Video) *VideoDetails {
	details := &VideoDetails{Language: "en"}
	if v.Snippet != nil {
		details.Channel = v.Snippet.ChannelTitle
		details.Title = v.Snippet.Title
		details.Description = v.Snippet.Description
		details.Language = NormalizeLanguage(v.Snippet.DefaultLanguage, v.Snippet.DefaultAudioLanguage)
	}
	if v.Statistics != nil {
		details.Views = strconv.FormatUint(v.Statistics.ViewCount, 10)
		// Hidden like counts are omitted by the API and decode as zero.
		if v.Statistics.LikeCount > 0 {
			details.Likes = strconv.FormatUint(v.Statistics.LikeCount, 10)
		}
	}
	return details
}

// NormalizeLanguage returns the first two letters of the first non-empty
// candidate, lowercased, or "en".
func NormalizeLanguage(candidates ...string) string {
	for _, lang := range candidates {
		lang = strings.TrimSpace(lang)
		if len(lang) >= 2 {
			return strings.ToLower(lang[:2])
		}
	}
	return "en"
}

// MaskKey hides all but the first and last four characters of a secret.
func MaskKey(key string) string {
	if key == "" {
		return "Not set"
	}
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
