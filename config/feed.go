package config

import (
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
)

// LocalFeedPath returns the filesystem path of a feed location given as a
// file:// URL or a bare path. ok is false for http(s) URLs and for any
// other scheme.
func LocalFeedPath(location string) (path string, ok bool) {
	switch {
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		return "", false
	case strings.HasPrefix(location, "file://"):
		u, err := url.Parse(location)
		if err != nil || u.Path == "" {
			return "", false
		}
		return u.Path, true
	case strings.Contains(location, "://"):
		return "", false
	}
	return location, location != ""
}

// validFeedLocation accepts http(s) URLs with a host, file:// URLs and bare paths
func validFeedLocation(fl validator.FieldLevel) bool {
	loc := fl.Field().String()
	if _, ok := LocalFeedPath(loc); ok {
		return true
	}
	if !strings.HasPrefix(loc, "http://") && !strings.HasPrefix(loc, "https://") {
		return false
	}
	u, err := url.ParseRequestURI(loc)
	return err == nil && u.Host != ""
}

func newValidator() (*validator.Validate, error) {
	v := validator.New()
	if err := v.RegisterValidation("feedurl", validFeedLocation); err != nil {
		return nil, err
	}
	return v, nil
}
