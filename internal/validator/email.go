package validator

import (
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	gmailDomains   = []string{"gmail.com", "googlemail.com"}
	icloudDomains  = []string{"icloud.com", "me.com", "mac.com"}
	outlookDomains = []string{
		"hotmail.com", "hotmail.co.uk", "hotmail.de", "hotmail.fr", "hotmail.it",
		"live.com", "live.co.uk", "live.fr", "msn.com", "outlook.com", "outlook.de",
		"outlook.fr", "passport.com",
	}
	yahooDomains = []string{
		"rocketmail.com", "yahoo.ca", "yahoo.co.uk", "yahoo.com", "yahoo.de",
		"yahoo.fr", "yahoo.in", "yahoo.it", "ymail.com",
	}
	yandexDomains = []string{"yandex.ru", "yandex.ua", "yandex.kz", "yandex.com", "yandex.by", "ya.ru"}
)

// NormalizeEmail canonicalizes an already valid address: the address is
// lower-cased and provider-specific aliases collapse to one mailbox. It
// reports false when nothing addressable is left of the local part.
func NormalizeEmail(email string) (string, bool) {
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "", false
	}
	local := strings.ToLower(email[:at])
	domain := strings.ToLower(email[at+1:])

	switch {
	case slices.Contains(gmailDomains, domain):
		local = stripAfter(local, "+")
		local = strings.ReplaceAll(local, ".", "")
		domain = "gmail.com"
	case slices.Contains(icloudDomains, domain), slices.Contains(outlookDomains, domain):
		local = stripAfter(local, "+")
	case slices.Contains(yahooDomains, domain):
		if i := strings.LastIndex(local, "-"); i >= 0 {
			local = local[:i]
		}
	case slices.Contains(yandexDomains, domain):
		domain = "yandex.ru"
	}

	if local == "" {
		return "", false
	}
	return local + "@" + domain, true
}

// Byte limits on the two halves of an address.
const (
	maxLocalPartLength = 64
	maxDomainLength    = 254
)

// withinEmailLimits rejects addresses whose local part or domain is longer
// than a mail system accepts.
func withinEmailLimits(fl validator.FieldLevel) bool {
	email := fl.Field().String()
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	return at <= maxLocalPartLength && len(email)-at-1 <= maxDomainLength
}

// hasTopLevelDomain rejects hosts such as "localhost" that the RFC email
// check alone accepts.
func hasTopLevelDomain(fl validator.FieldLevel) bool {
	email := fl.Field().String()
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	domain := email[at+1:]
	dot := strings.LastIndex(domain, ".")
	if dot <= 0 {
		return false
	}
	tld := domain[dot+1:]
	if len(tld) < 2 {
		return false
	}
	for _, r := range tld {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-') {
			return false
		}
	}
	return true
}

func stripAfter(s, sep string) string {
	if i := strings.Index(s, sep); i >= 0 {
		return s[:i]
	}
	return s
}
