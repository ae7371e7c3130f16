package fingerprint

import (
	"net/http/httptest"
	"testing"

	"github.com/socialzwater/backend/internal/models"
)

const (
	uaAndroidChrome = "Mozilla/5.0 (Linux; Android 13; Pixel 7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36"
	uaIPhoneSafari  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Mobile/15E148 Safari/604.1"
	uaIPadSafari    = "Mozilla/5.0 (iPad; CPU OS 16_6 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.6 Safari/604.1"
	uaWindowsEdge   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edge/120.0"
	uaMacFirefox    = "Mozilla/5.0 (Macintosh; Intel Mac OS X 14.1; rv:121.0) Gecko/20100101 Firefox/121.0"
	uaLinuxOpera    = "Opera/9.80 (X11; Linux x86_64) Presto/2.12.388 Version/12.16"
	uaTablet        = "SomeTablet/1.0 (tablet)"
	uaBot           = "curl/8.4.0"
)

// One case per rule in each table, plus the fallbacks.
func TestDeviceRules(t *testing.T) {
	cases := []struct {
		name string
		ua   string
		want models.DeviceType
	}{
		{"mobile token", uaAndroidChrome, models.DeviceMobile},
		{"android token", "Dalvik/2.1.0 (Linux; U; Android 11)", models.DeviceMobile},
		{"iphone token", "iPhone-App/1.0", models.DeviceMobile},
		{"ipad beats desktop mac", uaIPadSafari, models.DeviceTablet},
		{"tablet token", uaTablet, models.DeviceTablet},
		{"windows", uaWindowsEdge, models.DeviceDesktop},
		{"mac", uaMacFirefox, models.DeviceDesktop},
		{"linux", uaLinuxOpera, models.DeviceDesktop},
		{"no match", uaBot, models.DeviceUnknown},
		{"empty", "", models.DeviceUnknown},
	}
	for _, tc := range cases {
		got, _, _ := Classify(tc.ua)
		if got != tc.want {
			t.Fatalf("%s: device = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestBrowserRules(t *testing.T) {
	cases := []struct {
		name string
		ua   string
		want string
	}{
		{"chrome", uaAndroidChrome, "Chrome"},
		{"safari without chrome", uaIPhoneSafari, "Safari"},
		{"firefox", uaMacFirefox, "Firefox"},
		{"edge carries chrome token", uaWindowsEdge, "Edge"},
		{"opera", uaLinuxOpera, "Opera"},
		{"no match", uaBot, Unknown},
		{"empty", "", Unknown},
	}
	for _, tc := range cases {
		_, got, _ := Classify(tc.ua)
		if got != tc.want {
			t.Fatalf("%s: browser = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestOSRules(t *testing.T) {
	cases := []struct {
		name string
		ua   string
		want string
	}{
		{"android before linux", uaAndroidChrome, "Android"},
		{"iphone before mac", uaIPhoneSafari, "iOS"},
		{"ipad", uaIPadSafari, "iOS"},
		{"ipod", "Mozilla/5.0 (iPod touch; CPU iPhone OS 12_0)", "iOS"},
		{"windows", uaWindowsEdge, "Windows"},
		{"mac", uaMacFirefox, "macOS"},
		{"linux", uaLinuxOpera, "Linux"},
		{"no match", uaBot, Unknown},
	}
	for _, tc := range cases {
		_, _, got := Classify(tc.ua)
		if got != tc.want {
			t.Fatalf("%s: os = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestHashIsStableHex(t *testing.T) {
	a := Hash(uaAndroidChrome, "10.0.0.1", "en-IN")
	b := Hash(uaAndroidChrome, "10.0.0.1", "en-IN")
	if a != b {
		t.Fatal("hash is not deterministic")
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}
	if a == Hash(uaAndroidChrome, "10.0.0.2", "en-IN") {
		t.Fatal("different ip should change the hash")
	}
}

func TestFromRequestPrefersForwardedFor(t *testing.T) {
	r := httptest.NewRequest("GET", "/sw/adv/X/", nil)
	r.RemoteAddr = "192.0.2.10:5123"
	r.Header.Set("User-Agent", uaIPhoneSafari)
	r.Header.Set("X-Forwarded-For", " 203.0.113.7 , 10.0.0.1")

	info := FromRequest(r)
	if info.IPAddress != "203.0.113.7" {
		t.Fatalf("expected forwarded ip, got %q", info.IPAddress)
	}
	if info.DeviceType != models.DeviceMobile || info.OS != "iOS" || info.Browser != "Safari" {
		t.Fatalf("unexpected classification: %+v", info)
	}

	r.Header.Del("X-Forwarded-For")
	if ip := ClientIP(r); ip != "192.0.2.10" {
		t.Fatalf("expected remote addr host, got %q", ip)
	}
}
