package fetch

import (
	"net/url"
	"path"
	"strings"
)

// Platform names the download strategy for a URL.
type Platform string

const (
	PlatformYouTube   Platform = "youtube"
	PlatformTikTok    Platform = "tiktok"
	PlatformInstagram Platform = "instagram"
	PlatformDirect    Platform = "direct"
)

var directMediaExtensions = []string{".mp4", ".webm", ".mov", ".avi", ".mkv", ".flv"}

// DetectPlatform classifies a URL by host. Anything unrecognized is treated
// as a direct URL.
func DetectPlatform(rawURL string) Platform {
	lower := strings.ToLower(rawURL)
	switch {
	case strings.Contains(lower, "youtube.com"), strings.Contains(lower, "youtu.be"):
		return PlatformYouTube
	case strings.Contains(lower, "tiktok.com"):
		return PlatformTikTok
	case strings.Contains(lower, "instagram.com"), strings.Contains(lower, "instagr.am"):
		return PlatformInstagram
	default:
		return PlatformDirect
	}
}

// IsDirectMediaURL reports whether the URL points straight at a media file.
func IsDirectMediaURL(rawURL string) bool {
	if DetectPlatform(rawURL) != PlatformDirect {
		return false
	}
	lower := strings.ToLower(rawURL)
	for _, ext := range directMediaExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// IsValidURL reports whether rawURL is a plausible http(s) URL.
func IsValidURL(rawURL string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// TitleFromURL derives a human-friendly fallback title from a direct URL.
func TitleFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "video"
	}
	base := path.Base(u.Path)
	if base != "" && base != "/" && base != "." {
		return strings.TrimSuffix(base, path.Ext(base))
	}
	if u.Host != "" {
		return u.Host
	}
	return "video"
}
