package handlers

import (
	"net/url"
	"regexp"
	"strings"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_.]{3,30}$`)

func validateProfileUpdateRequest(req updateProfileRequest) string {
	if req.FullName == nil && req.Username == nil && req.AvatarURL == nil {
		return "at least one field is required"
	}
	if req.FullName != nil && strings.TrimSpace(*req.FullName) == "" {
		return "full_name must not be empty"
	}
	if req.Username != nil && !usernamePattern.MatchString(strings.TrimSpace(*req.Username)) {
		return "username must be 3-30 characters of a-z, 0-9, '.' or '_'"
	}
	if req.AvatarURL != nil {
		parsed, err := url.Parse(strings.TrimSpace(*req.AvatarURL))
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return "avatar_url must be an http(s) URL"
		}
	}
	return ""
}
