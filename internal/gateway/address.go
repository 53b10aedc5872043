package gateway

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/angelmondragon/storefront/pkg/enums"
)

// CheckoutPath is the admin checkout endpoint path.
const CheckoutPath = "/api/checkout"

var (
	schemePattern       = regexp.MustCompile(`(?i)^https?://`)
	checkoutPathPattern = regexp.MustCompile(`(?i)/api/checkout/?$`)
	storeSegmentPattern = regexp.MustCompile(`(?i)/api/(?:[0-9a-f-]{8,}|[A-Za-z0-9_-]{6,})/?$`)
	storeIDPattern      = regexp.MustCompile(`^/api/([^/]+)/?$`)
)

// RequestOrigin is the scheme and host the storefront was reached on.
type RequestOrigin struct {
	Scheme string
	Host   string
}

// Known reports whether a host is available.
func (o RequestOrigin) Known() bool {
	return strings.TrimSpace(o.Host) != ""
}

// String renders scheme://host, defaulting the scheme to https.
func (o RequestOrigin) String() string {
	if !o.Known() {
		return ""
	}
	scheme := strings.ToLower(strings.TrimSpace(o.Scheme))
	if scheme != "http" && scheme != "https" {
		scheme = "https"
	}
	return scheme + "://" + strings.TrimSpace(o.Host)
}

// Resolution is a resolved checkout URL and the shape of the value it came from.
type Resolution struct {
	URL   string
	Shape enums.AdminURLShape
}

// HasScheme reports whether raw is an absolute http(s) address.
func HasScheme(raw string) bool {
	return schemePattern.MatchString(strings.TrimSpace(raw))
}

// ClassifyAdminURL labels the configured admin address.
func ClassifyAdminURL(raw string) enums.AdminURLShape {
	raw = strings.TrimSpace(raw)
	if !HasScheme(raw) {
		if _, err := url.Parse(raw); err != nil {
			return enums.AdminURLShapeMalformed
		}
		return enums.AdminURLShapeRelative
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return enums.AdminURLShapeMalformed
	}
	switch path := parsed.EscapedPath(); {
	case path == "" || path == "/":
		return enums.AdminURLShapeOrigin
	case checkoutPathPattern.MatchString(path):
		return enums.AdminURLShapeCheckoutPath
	case storeSegmentPattern.MatchString(path):
		return enums.AdminURLShapeStoreScoped
	default:
		return enums.AdminURLShapeWithPath
	}
}

// ResolveCheckoutURL turns the configured admin address into the checkout
// endpoint. It never fails: malformed input degrades to raw + CheckoutPath.
func ResolveCheckoutURL(raw string, origin RequestOrigin) Resolution {
	raw = strings.TrimSpace(raw)
	shape := ClassifyAdminURL(raw)

	switch shape {
	case enums.AdminURLShapeMalformed:
		return Resolution{URL: strings.TrimRight(raw, "/") + CheckoutPath, Shape: shape}
	case enums.AdminURLShapeCheckoutPath:
		return Resolution{URL: strings.TrimRight(raw, "/"), Shape: shape}
	case enums.AdminURLShapeRelative:
		return Resolution{URL: resolveRelative(raw, origin), Shape: shape}
	}

	parsed, _ := url.Parse(raw)
	return Resolution{URL: parsed.Scheme + "://" + parsed.Host + CheckoutPath, Shape: shape}
}

func resolveRelative(raw string, origin RequestOrigin) string {
	path := strings.TrimRight(raw, "/")
	if !checkoutPathPattern.MatchString(path) {
		path = strings.TrimRight(StripStoreSegment(path), "/")
		if path != "" && !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		path += CheckoutPath
	}
	if origin.Known() {
		return origin.String() + path
	}
	return path
}

// StripStoreSegment removes a trailing /api/<store-id> segment. A trailing
// /api/checkout is left alone.
func StripStoreSegment(raw string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(raw), "/")
	if checkoutPathPattern.MatchString(trimmed) {
		return trimmed
	}
	if loc := storeSegmentPattern.FindStringIndex(trimmed); loc != nil {
		return trimmed[:loc[0]]
	}
	return trimmed
}

// AdminOrigin returns scheme://host of an absolute admin address.
func AdminOrigin(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if !HasScheme(raw) {
		return "", false
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return "", false
	}
	return parsed.Scheme + "://" + parsed.Host, true
}

// AdminBase is the address admin API paths get appended to: the origin for
// absolute values, the store-stripped path otherwise.
func AdminBase(raw string) string {
	if origin, ok := AdminOrigin(raw); ok {
		return origin
	}
	return StripStoreSegment(raw)
}

// StoreIDFromBase extracts <id> from an admin address shaped /api/<id>.
func StoreIDFromBase(raw string) string {
	raw = strings.TrimSpace(raw)
	path := raw
	if HasScheme(raw) {
		parsed, err := url.Parse(raw)
		if err != nil {
			return ""
		}
		path = parsed.Path
	}
	m := storeIDPattern.FindStringSubmatch(path)
	if m == nil || strings.EqualFold(m[1], "checkout") {
		return ""
	}
	return m[1]
}
