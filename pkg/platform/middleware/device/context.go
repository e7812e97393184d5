// Package device turns a raw User-Agent into the short description stored on
// re-enrollment responses ("Chrome 120 / Android 14").
package device

import (
	"context"
	"strings"

	"github.com/mssola/useragent"

	"escolinha/pkg/requestcontext"
)

// Describe summarises a User-Agent header. Empty input yields "".
func Describe(userAgent string) string {
	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		return ""
	}
	ua := useragent.New(userAgent)
	if ua.Bot() {
		return "bot"
	}
	name, version := ua.Browser()
	browser := strings.TrimSpace(name + " " + majorVersion(version))
	os := ua.OS()
	switch {
	case browser == "" && os == "":
		return ""
	case os == "":
		return browser
	case browser == "":
		return os
	}
	if ua.Mobile() {
		return browser + " / " + os + " (mobile)"
	}
	return browser + " / " + os
}

// FromContext describes the User-Agent recorded by the metadata middleware.
func FromContext(ctx context.Context) string {
	return Describe(requestcontext.UserAgent(ctx))
}

func majorVersion(v string) string {
	if idx := strings.Index(v, "."); idx != -1 {
		return v[:idx]
	}
	return v
}
