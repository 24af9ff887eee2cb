package acquire

import (
	"github.com/codebuildervaibhav/video-summary/internal/types"
)

const (
	desktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	mobileUserAgent  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Mobile/15E148 Safari/604.1"
)

// Profile is the platform-specific invocation profile handed to yt-dlp
type Profile struct {
	UserAgent     string
	Referer       string
	ExtractorArgs string
	Headers       map[string]string
}

// Args renders the profile as yt-dlp flags
func (p Profile) Args() []string {
	var args []string
	if p.UserAgent != "" {
		args = append(args, "--user-agent", p.UserAgent)
	}
	if p.Referer != "" {
		args = append(args, "--referer", p.Referer)
	}
	if p.ExtractorArgs != "" {
		args = append(args, "--extractor-args", p.ExtractorArgs)
	}
	for _, k := range sortedKeys(p.Headers) {
		args = append(args, "--add-header", k+":"+p.Headers[k])
	}
	return args
}

var profiles = map[types.Platform]Profile{
	types.PlatformInstagram: {
		UserAgent: mobileUserAgent,
		Referer:   "https://www.instagram.com/",
		Headers:   map[string]string{"X-IG-App-ID": "936619743392459"},
	},
	types.PlatformTikTok: {
		UserAgent:     mobileUserAgent,
		Referer:       "https://www.tiktok.com/",
		ExtractorArgs: "tiktok:app_info=7355728856979392262",
	},
	types.PlatformFacebook: {
		UserAgent: desktopUserAgent,
		Referer:   "https://www.facebook.com/",
		Headers:   map[string]string{"Accept-Language": "en-US,en;q=0.9"},
	},
	types.PlatformYouTube: {
		ExtractorArgs: "youtube:player_client=android,web",
	},
	types.PlatformUnknown: {
		UserAgent: desktopUserAgent,
	},
}

// ProfileFor returns the invocation profile of a platform
func ProfileFor(p types.Platform) Profile {
	if prof, ok := profiles[p]; ok {
		return prof
	}
	return profiles[types.PlatformUnknown]
}

// Strategy is one audio extraction attempt
type Strategy struct {
	Name         string
	Format       string
	AudioFormat  string
	AudioQuality string
	UseProfile   bool
	ExtraArgs    []string
}

func clientHint(format string) Strategy {
	return Strategy{
		Name:         "client-hint",
		Format:       format,
		AudioFormat:  "mp3",
		AudioQuality: "5",
		UseProfile:   true,
	}
}

var genericLow = Strategy{
	Name:         "generic-low",
	Format:       "worstaudio/worst",
	AudioFormat:  "mp3",
	AudioQuality: "9",
	ExtraArgs:    []string{"--user-agent", desktopUserAgent},
}

// bareMinimum lets yt-dlp pick any format and keeps its native container
var bareMinimum = Strategy{Name: "bare-minimum"}

var chains = map[types.Platform][]Strategy{
	types.PlatformYouTube:   {clientHint("bestaudio[ext=m4a]/bestaudio/best"), genericLow, bareMinimum},
	types.PlatformInstagram: {clientHint("bestaudio/best"), genericLow, bareMinimum},
	types.PlatformTikTok:    {clientHint("bestaudio/best"), genericLow, bareMinimum},
	types.PlatformFacebook:  {clientHint("bestaudio/best"), genericLow, bareMinimum},
	types.PlatformUnknown:   {genericLow, bareMinimum},
}

// Strategies returns the ordered extraction chain for a platform
func Strategies(p types.Platform) []Strategy {
	chain, ok := chains[p]
	if !ok {
		chain = chains[types.PlatformUnknown]
	}
	out := make([]Strategy, len(chain))
	copy(out, chain)
	return out
}

// downloadArgs builds the yt-dlp arguments for one attempt
func downloadArgs(s Strategy, prof Profile, common []string, rawURL, outTemplate string) []string {
	args := []string{"--no-playlist", "--no-progress", "--no-warnings", "-x"}
	if s.Format != "" {
		args = append(args, "-f", s.Format)
	}
	if s.AudioFormat != "" {
		args = append(args, "--audio-format", s.AudioFormat)
	}
	if s.AudioQuality != "" {
		args = append(args, "--audio-quality", s.AudioQuality)
	}
	if s.UseProfile {
		args = append(args, prof.Args()...)
	}
	args = append(args, s.ExtraArgs...)
	args = append(args, common...)
	args = append(args, "-o", outTemplate)
	return append(args, rawURL)
}
