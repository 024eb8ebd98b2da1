package utils

import (
	"net/url"
	"strings"
)

func SanitizeString(input string) string {
	return strings.TrimSpace(input)
}

func IsValidRating(rating int) bool {
	return rating >= 1 && rating <= 5
}

// IsValidWebsiteURL accepts absolute http(s) URLs with a host.
func IsValidWebsiteURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Hostname() != ""
}

// HostOf extracts the lower-cased host of a URL without a leading "www.". Bare hosts are accepted.
func HostOf(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// SameSite reports whether referrer points at site or one of its subdomains.
func SameSite(referrer, site string) bool {
	refHost := HostOf(referrer)
	siteHost := HostOf(site)
	if refHost == "" || siteHost == "" {
		return false
	}
	return refHost == siteHost || strings.HasSuffix(refHost, "."+siteHost)
}
