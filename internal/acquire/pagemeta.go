package acquire

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/codebuildervaibhav/video-summary/internal/types"
)

// PageScraper reads OpenGraph tags from the video page HTML.
type PageScraper struct {
	client *http.Client
}

// NewPageScraper creates a scraper with the given request timeout
func NewPageScraper(timeout time.Duration) *PageScraper {
	return &PageScraper{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

func (s *PageScraper) Name() string { return "opengraph" }

// Lookup fetches the page with browser-like headers and parses og:* tags
func (s *PageScraper) Lookup(ctx context.Context, rawURL string, p types.Platform) (types.MediaMetadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return types.MediaMetadata{}, err
	}
	ua := ProfileFor(p).UserAgent
	if ua == "" {
		ua = desktopUserAgent
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.client.Do(req)
	if err != nil {
		return types.MediaMetadata{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return types.MediaMetadata{}, fmt.Errorf("page returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return types.MediaMetadata{}, fmt.Errorf("parse page: %w", err)
	}

	return metadataFromDocument(doc)
}

func metadataFromDocument(doc *goquery.Document) (types.MediaMetadata, error) {
	meta := func(names ...string) string {
		for _, n := range names {
			sel := doc.Find(fmt.Sprintf(`meta[property=%q], meta[name=%q]`, n, n)).First()
			if v, ok := sel.Attr("content"); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
		return ""
	}

	title := meta("og:title", "twitter:title")
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	if title == "" {
		return types.MediaMetadata{}, errors.New("page has no title")
	}

	out := types.MediaMetadata{Title: title}
	if img := meta("og:image", "twitter:image"); img != "" {
		out.Thumbnail = &img
	}
	if d := meta("og:video:duration", "video:duration"); d != "" {
		if secs, err := strconv.ParseFloat(d, 64); err == nil && secs > 0 {
			out.Duration = &secs
		}
	}
	return out, nil
}

// HeadlessRenderer loads the page in headless Chrome and reads the tags
// after scripts ran. Only useful for pages that build their head client side.
type HeadlessRenderer struct {
	timeout   time.Duration
	allocOpts []chromedp.ExecAllocatorOption
}

// NewHeadlessRenderer creates a renderer using the default Chrome flags
func NewHeadlessRenderer(timeout time.Duration) *HeadlessRenderer {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("mute-audio", true),
		chromedp.UserAgent(desktopUserAgent),
	)
	return &HeadlessRenderer{timeout: timeout, allocOpts: opts}
}

func (r *HeadlessRenderer) Name() string { return "headless" }

const pageMetaScript = `new Promise(resolve => {
	const meta = n => {
		const el = document.querySelector('meta[property="' + n + '"]') || document.querySelector('meta[name="' + n + '"]');
		return el ? el.content || "" : "";
	};
	setTimeout(() => resolve({
		title: meta("og:title") || document.title || "",
		image: meta("og:image"),
		duration: meta("og:video:duration") || meta("video:duration"),
	}), 500);
})`

type renderedMeta struct {
	Title    string `json:"title"`
	Image    string `json:"image"`
	Duration string `json:"duration"`
}

// Lookup renders rawURL and evaluates pageMetaScript
func (r *HeadlessRenderer) Lookup(ctx context.Context, rawURL string, _ types.Platform) (types.MediaMetadata, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, r.allocOpts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	browserCtx, cancel := context.WithTimeout(browserCtx, r.timeout)
	defer cancel()

	var rendered renderedMeta
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body"),
		chromedp.Evaluate(pageMetaScript, &rendered, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}),
	)
	if err != nil {
		return types.MediaMetadata{}, fmt.Errorf("render page: %w", err)
	}

	title := strings.TrimSpace(rendered.Title)
	if title == "" {
		return types.MediaMetadata{}, errors.New("rendered page has no title")
	}

	out := types.MediaMetadata{Title: title}
	if rendered.Image != "" {
		img := rendered.Image
		out.Thumbnail = &img
	}
	if secs, err := strconv.ParseFloat(rendered.Duration, 64); err == nil && secs > 0 {
		out.Duration = &secs
	}
	return out, nil
}
