package tag

import (
	"errors"
	"strings"
)

// ErrMalformedAddress is returned for addresses without an @.
var ErrMalformedAddress = errors.New("malformed address")

// Split separates an email address into local part and domain,
// splitting on the last @.
func Split(addr string) (local, domain string, err error) {
	i := strings.LastIndex(addr, "@")
	if i < 0 {
		return "", "", ErrMalformedAddress
	}
	return addr[:i], addr[i+1:], nil
}

// Extract returns the tag of a local part: the substring after the last
// '+'. ok is false when the local part carries no tag at all.
func Extract(local string) (tag string, ok bool) {
	i := strings.LastIndex(local, "+")
	if i < 0 {
		return "", false
	}
	return local[i+1:], true
}

// Compose builds "local+tag@domain" from a bare user@domain address.
func Compose(addr, tag string) (string, error) {
	local, domain, err := Split(addr)
	if err != nil {
		return "", err
	}
	return local + "+" + tag + "@" + domain, nil
}
