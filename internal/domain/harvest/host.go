package harvest

import (
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// HostLabel returns the registrable domain of a target address for abuse log
// details and metric labels. Unparseable addresses fall back to the raw host
// or "unknown".
func HostLabel(address string) string {
	u, err := url.Parse(address)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	host := strings.ToLower(u.Hostname())
	if domain, derr := publicsuffix.EffectiveTLDPlusOne(host); derr == nil {
		return domain
	}
	return host
}
