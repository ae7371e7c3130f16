// Package fingerprint derives device, browser and OS labels and a stable hash
// from request metadata. Everything here is pure and never fails.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strings"

	"github.com/socialzwater/backend/internal/models"
)

// Info is the result of inspecting one request.
type Info struct {
	DeviceType models.DeviceType `json:"device_type"`
	Browser    string            `json:"browser"`
	OS         string            `json:"os"`
	Hash       string            `json:"fingerprint"`
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"-"`
}

const Unknown = "Unknown"

// rule maps a predicate over the lowercased user agent to a label.
// Rules are evaluated in order and the first match wins.
type rule struct {
	match func(ua string) bool
	label string
}

func containsAny(tokens ...string) func(string) bool {
	return func(ua string) bool {
		for _, t := range tokens {
			if strings.Contains(ua, t) {
				return true
			}
		}
		return false
	}
}

func containsButNot(token, excluded string) func(string) bool {
	return func(ua string) bool {
		return strings.Contains(ua, token) && !strings.Contains(ua, excluded)
	}
}

var deviceRules = []rule{
	{containsAny("mobile", "android", "iphone"), string(models.DeviceMobile)},
	{containsAny("ipad", "tablet"), string(models.DeviceTablet)},
	{containsAny("windows", "mac", "linux"), string(models.DeviceDesktop)},
}

// Edge user agents also carry "chrome" and Chrome ones carry "safari",
// so the exclusions decide which label wins.
var browserRules = []rule{
	{containsButNot("chrome", "edge"), "Chrome"},
	{containsButNot("safari", "chrome"), "Safari"},
	{containsAny("firefox"), "Firefox"},
	{containsAny("edge"), "Edge"},
	{containsAny("opera"), "Opera"},
}

var osRules = []rule{
	{containsAny("android"), "Android"},
	{containsAny("iphone", "ipad", "ipod"), "iOS"},
	{containsAny("windows"), "Windows"},
	{containsAny("mac"), "macOS"},
	{containsAny("linux"), "Linux"},
}

func firstMatch(rules []rule, ua, fallback string) string {
	for _, r := range rules {
		if r.match(ua) {
			return r.label
		}
	}
	return fallback
}

// Classify labels a raw user agent string.
func Classify(userAgent string) (models.DeviceType, string, string) {
	if userAgent == "" {
		return models.DeviceUnknown, Unknown, Unknown
	}
	ua := strings.ToLower(userAgent)
	device := firstMatch(deviceRules, ua, string(models.DeviceUnknown))
	return models.DeviceType(device), firstMatch(browserRules, ua, Unknown), firstMatch(osRules, ua, Unknown)
}

// Hash is the hex SHA-256 of "<ua>_<ip>_<accept-language>".
func Hash(userAgent, ip, acceptLanguage string) string {
	sum := sha256.Sum256([]byte(userAgent + "_" + ip + "_" + acceptLanguage))
	return hex.EncodeToString(sum[:])
}

// ClientIP returns the first X-Forwarded-For entry, falling back to the
// connection's remote address.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first := strings.TrimSpace(strings.Split(fwd, ",")[0]); first != "" {
			return first
		}
	}
	if r.RemoteAddr == "" {
		return "0.0.0.0"
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// FromRequest inspects the user agent, accept-language and client address of r.
func FromRequest(r *http.Request) Info {
	ua := r.UserAgent()
	ip := ClientIP(r)
	device, browser, os := Classify(ua)
	return Info{
		DeviceType: device,
		Browser:    browser,
		OS:         os,
		Hash:       Hash(ua, ip, r.Header.Get("Accept-Language")),
		IPAddress:  ip,
		UserAgent:  ua,
	}
}
