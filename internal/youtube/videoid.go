package youtube

import (
	"net/url"
	"regexp"
	"strings"
)

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// pathPrefixes are URL paths that carry the video ID as their next segment.
var pathPrefixes = []string{"/embed/", "/v/", "/shorts/", "/live/", "/e/"}

// ExtractVideoID extracts the YouTube video ID from the common URL formats:
// watch pages, youtu.be short links, embeds, shorts, live and attribution links.
// It returns "" when no valid ID is present.
func ExtractVideoID(videoURL string) string {
	videoURL = strings.TrimSpace(videoURL)
	if videoURL == "" {
		return ""
	}
	// Handle URLs without protocol by adding https://
	if !strings.Contains(videoURL, "://") {
		videoURL = "https://" + videoURL
	}

	parsedURL, err := url.Parse(videoURL)
	if err != nil {
		return ""
	}

	hostname := strings.ToLower(parsedURL.Hostname())

	if hostname == "youtu.be" {
		return validVideoID(strings.TrimPrefix(parsedURL.Path, "/"))
	}

	if !isYouTubeDomain(hostname) {
		return ""
	}

	for _, prefix := range pathPrefixes {
		if strings.HasPrefix(parsedURL.Path, prefix) {
			if id := validVideoID(strings.TrimPrefix(parsedURL.Path, prefix)); id != "" {
				return id
			}
		}
	}

	query := parsedURL.Query()
	if id := validVideoID(query.Get("v")); id != "" {
		return id
	}

	// Attribution links nest the watch URL in the "u" parameter.
	if strings.HasPrefix(parsedURL.Path, "/attribution_link") {
		if nested, err := url.Parse(query.Get("u")); err == nil {
			return validVideoID(nested.Query().Get("v"))
		}
	}

	return ""
}

// WatchURL returns the canonical watch page URL for a video ID.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// isYouTubeDomain checks if the hostname is a valid YouTube domain
func isYouTubeDomain(hostname string) bool {
	switch hostname {
	case "youtube.com", "www.youtube.com", "m.youtube.com",
		"youtube-nocookie.com", "www.youtube-nocookie.com",
		"music.youtube.com", "gaming.youtube.com", "tv.youtube.com":
		return true
	}
	return false
}

// validVideoID trims trailing path or query debris and validates the ID.
func validVideoID(input string) string {
	if idx := strings.IndexAny(input, "/?&#"); idx != -1 {
		input = input[:idx]
	}
	input = strings.TrimSpace(input)
	if videoIDPattern.MatchString(input) {
		return input
	}
	return ""
}
