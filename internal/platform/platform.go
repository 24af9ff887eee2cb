package platform

import (
	"strings"

	"github.com/codebuildervaibhav/video-summary/internal/types"
)

// hostPatterns are matched in order against the lowercased URL
var hostPatterns = []struct {
	platform types.Platform
	patterns []string
}{
	{types.PlatformInstagram, []string{"instagram.com", "instagr.am"}},
	{types.PlatformTikTok, []string{"tiktok.com", "vm.tiktok"}},
	{types.PlatformFacebook, []string{"facebook.com", "fb.watch", "fb.com"}},
	{types.PlatformYouTube, []string{"youtube.com", "youtu.be"}},
}

// Resolve classifies a URL into a platform tag. It never fails.
func Resolve(rawURL string) types.Platform {
	u := strings.ToLower(rawURL)
	for _, hp := range hostPatterns {
		for _, p := range hp.patterns {
			if strings.Contains(u, p) {
				return hp.platform
			}
		}
	}
	return types.PlatformUnknown
}

// Parse maps a free-form platform tag to a known platform
func Parse(tag string) types.Platform {
	switch types.Platform(strings.ToLower(strings.TrimSpace(tag))) {
	case types.PlatformInstagram:
		return types.PlatformInstagram
	case types.PlatformTikTok:
		return types.PlatformTikTok
	case types.PlatformFacebook:
		return types.PlatformFacebook
	case types.PlatformYouTube:
		return types.PlatformYouTube
	}
	return types.PlatformUnknown
}

// Choose prefers the platform derived from the URL and falls back to the
// caller's hint only when the URL is not recognized.
func Choose(rawURL, hint string) types.Platform {
	if p := Resolve(rawURL); p != types.PlatformUnknown {
		return p
	}
	return Parse(hint)
}
