package shodan

import (
	"net/netip"
	"regexp"
)

var (
	hostnameRE = regexp.MustCompile(`^(?i)[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?(\.[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?)*\.?$`)
	domainRE   = regexp.MustCompile(`^(?i)([a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?\.)+[a-z]{2,63}$`)
	idRE       = regexp.MustCompile(`^[0-9A-Z]{16}$`)
)

func validHostname(s string) bool {
	return len(s) <= 253 && hostnameRE.MatchString(s)
}

func validDomain(s string) bool {
	return len(s) <= 253 && domainRE.MatchString(s)
}

func validIP(s string) bool {
	_, err := netip.ParseAddr(s)
	return err == nil
}

func validID(s string) bool {
	return idRE.MatchString(s)
}
