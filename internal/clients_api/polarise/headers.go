package polarise

import (
	"fmt"
	"net/http"
	"strings"
)

// BearerFormat selects how the Authorization value is composed. The server has changed this
// between revisions, so it is configuration rather than code.
type BearerFormat string

const (
	// BearerComposite: "Bearer {token} {sid} {address} polarise"
	BearerComposite BearerFormat = "composite"
	// BearerPlain: "Bearer {token}"
	BearerPlain BearerFormat = "plain"
)

// ParseBearerFormat validates a configured format name; empty means composite
func ParseBearerFormat(s string) (BearerFormat, error) {
	switch BearerFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", BearerComposite:
		return BearerComposite, nil
	case BearerPlain:
		return BearerPlain, nil
	default:
		return "", fmt.Errorf("unknown bearer format %q", s)
	}
}

// SessionHeader duplicates the session id next to the bearer credential
const SessionHeader = "Sid"

// Session is one wallet's authenticated state for a single turn.
type Session struct {
	Address   string
	Nonce     string
	SessionID string // stable for login and every authenticated call of the turn
	AuthToken string
}

// Headers enumerates every header the API expects from a browser client.
// Empty fields are not sent.
type Headers struct {
	Accept          string `mapstructure:"accept"`
	AcceptLanguage  string `mapstructure:"accept_language"`
	ContentType     string `mapstructure:"content_type"`
	Origin          string `mapstructure:"origin"`
	Referer         string `mapstructure:"referer"`
	UserAgent       string `mapstructure:"user_agent"`
	SecChUa         string `mapstructure:"sec_ch_ua"`
	SecChUaMobile   string `mapstructure:"sec_ch_ua_mobile"`
	SecChUaPlatform string `mapstructure:"sec_ch_ua_platform"`
	SecFetchDest    string `mapstructure:"sec_fetch_dest"`
	SecFetchMode    string `mapstructure:"sec_fetch_mode"`
	SecFetchSite    string `mapstructure:"sec_fetch_site"`

	BearerFormat BearerFormat `mapstructure:"-"`
}

// DefaultHeaders mirrors the web app's requests
func DefaultHeaders() Headers {
	return Headers{
		Accept:          "application/json, text/plain, */*",
		AcceptLanguage:  "en-US,en;q=0.9",
		ContentType:     "application/json",
		Origin:          "https://app.polarise.org",
		Referer:         "https://app.polarise.org/",
		UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
		SecChUa:         `"Chromium";v="122", "Not(A:Brand";v="24", "Google Chrome";v="122"`,
		SecChUaMobile:   "?0",
		SecChUaPlatform: `"Windows"`,
		SecFetchDest:    "empty",
		SecFetchMode:    "cors",
		SecFetchSite:    "same-site",
		BearerFormat:    BearerComposite,
	}
}

// Unauthenticated returns the header set for getnonce and login
func (h Headers) Unauthenticated() http.Header {
	out := http.Header{}
	set := func(key, value string) {
		if value != "" {
			out.Set(key, value)
		}
	}
	set("Accept", h.Accept)
	set("Accept-Language", h.AcceptLanguage)
	set("Content-Type", h.ContentType)
	set("Origin", h.Origin)
	set("Referer", h.Referer)
	set("User-Agent", h.UserAgent)
	set("Sec-Ch-Ua", h.SecChUa)
	set("Sec-Ch-Ua-Mobile", h.SecChUaMobile)
	set("Sec-Ch-Ua-Platform", h.SecChUaPlatform)
	set("Sec-Fetch-Dest", h.SecFetchDest)
	set("Sec-Fetch-Mode", h.SecFetchMode)
	set("Sec-Fetch-Site", h.SecFetchSite)
	return out
}

// Authenticated returns the header set for profileinfo and swappoints
func (h Headers) Authenticated(s Session) http.Header {
	out := h.Unauthenticated()
	out.Set("Authorization", BearerValue(h.BearerFormat, s.AuthToken, s.SessionID, s.Address))
	out.Set(SessionHeader, s.SessionID)
	return out
}

// BearerValue composes the Authorization value
func BearerValue(format BearerFormat, token, sessionID, address string) string {
	if format == BearerPlain {
		return "Bearer " + token
	}
	return fmt.Sprintf("Bearer %s %s %s polarise", token, sessionID, address)
}

// BuildAuthHeaders returns the default authenticated header set with the composite bearer
func BuildAuthHeaders(token, sessionID, address string) http.Header {
	return DefaultHeaders().Authenticated(Session{
		Address:   address,
		SessionID: sessionID,
		AuthToken: token,
	})
}
