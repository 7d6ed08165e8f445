package template

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_]+)\s*\}\}`)

// Render substitutes {{name}} placeholders in content with values from
// params. Placeholders without a matching key are left untouched so a
// missing parameter is visible in the output instead of silently blanked.
func Render(content string, params map[string]string) string {
	if content == "" || len(params) == 0 {
		return content
	}

	return placeholderPattern.ReplaceAllStringFunc(content, func(match string) string {
		key := placeholderPattern.FindStringSubmatch(match)[1]
		if value, ok := params[key]; ok {
			return value
		}
		return match
	})
}

// MergeParams layers parameter maps: later maps win over earlier ones.
// The caller passes campaign defaults first and per-recipient values last.
func MergeParams(layers ...map[string]string) map[string]string {
	merged := make(map[string]string)
	for _, layer := range layers {
		for k, v := range layer {
			if v == "" {
				continue
			}
			merged[k] = v
		}
	}
	return merged
}

var (
	anchorHrefPattern = regexp.MustCompile(`(?i)(<a\b[^>]*\bhref=")(https?://[^"]+)(")`)

	// Matched case-insensitively in place; lowercasing the document to
	// search it would shift byte offsets for multibyte runes.
	closingBodyPattern = regexp.MustCompile(`(?i)</body>`)
)

// AddTracking rewrites anchor targets through the click redirect and
// appends an open tracking pixel. Only absolute http(s) hrefs are
// rewritten; mailto and fragment links pass through unchanged.
func AddTracking(html, baseURL, campaignID, recipientID string) string {
	if baseURL == "" || campaignID == "" || recipientID == "" {
		return html
	}
	base := strings.TrimRight(baseURL, "/")

	tracked := anchorHrefPattern.ReplaceAllStringFunc(html, func(match string) string {
		parts := anchorHrefPattern.FindStringSubmatch(match)
		redirect := fmt.Sprintf("%s/t/click?c=%s&r=%s&u=%s",
			base,
			url.QueryEscape(campaignID),
			url.QueryEscape(recipientID),
			url.QueryEscape(parts[2]),
		)
		return parts[1] + redirect + parts[3]
	})

	pixel := fmt.Sprintf(`<img src="%s/t/open?c=%s&r=%s" width="1" height="1" alt="" style="display:none"/>`,
		base,
		url.QueryEscape(campaignID),
		url.QueryEscape(recipientID),
	)

	if locs := closingBodyPattern.FindAllStringIndex(tracked, -1); len(locs) > 0 {
		idx := locs[len(locs)-1][0]
		return tracked[:idx] + pixel + tracked[idx:]
	}
	return tracked + pixel
}
