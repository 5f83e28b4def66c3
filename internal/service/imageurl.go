package service

import (
	"net/url"
	"strings"
)

// ImageURLValidator accepts only https URLs whose hostname is on a fixed
// allow-list. Paths, queries and reachability are not checked.
type ImageURLValidator struct {
	hosts map[string]struct{}
}

func NewImageURLValidator(hosts []string) *ImageURLValidator {
	v := &ImageURLValidator{hosts: make(map[string]struct{}, len(hosts))}
	for _, h := range hosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			v.hosts[h] = struct{}{}
		}
	}
	return v
}

// IsValid never panics; malformed input is simply invalid.
func (v *ImageURLValidator) IsValid(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme != "https" {
		return false
	}
	_, ok := v.hosts[strings.ToLower(u.Hostname())]
	return ok
}
