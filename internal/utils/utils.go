package utils

import (
	"net"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
)

var substPattern = regexp.MustCompile(`\${([^}]+)}`)

func QueryParamsToLower(queryParams url.Values) url.Values {
	lowercaseParams := url.Values{}

	for key, values := range queryParams {
		lowercaseKey := strings.ToLower(key)
		lowercaseParams[lowercaseKey] = append(lowercaseParams[lowercaseKey], values...)
	}

	return lowercaseParams
}

func QueryParamsContainMultipleKeys(queryParams url.Values) bool {
	params := map[string]bool{}

	for key := range queryParams {
		lowercaseKey := strings.ToLower(key)
		if params[lowercaseKey] {
			return true
		}

		params[lowercaseKey] = true
	}

	return false
}

// GetParam returns the first value of key, matched case-insensitively as
// OGC KVP parameters are.
func GetParam(queryParams url.Values, key string) string {
	for k, values := range queryParams {
		if strings.EqualFold(k, key) && len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

// HasParam reports whether key is present in any letter case.
func HasParam(queryParams url.Values, key string) bool {
	for k := range queryParams {
		if strings.EqualFold(k, key) {
			return true
		}
	}
	return false
}

// DelParams removes every letter-case variant of the given keys.
func DelParams(queryParams url.Values, keys ...string) {
	for k := range queryParams {
		for _, key := range keys {
			if strings.EqualFold(k, key) {
				queryParams.Del(k)
				break
			}
		}
	}
}

// EnvSubst replaces ${NAME} with the environment variable NAME. Unknown
// variables become empty.
func EnvSubst(input string) string {
	return substPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := match[2 : len(match)-1]
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}

		return ""
	})
}

// ExpandVars replaces ${NAME} with vars[NAME]. Unknown variables are left
// as they are.
func ExpandVars(input string, vars map[string]string) string {
	if len(vars) == 0 {
		return input
	}
	return substPattern.ReplaceAllStringFunc(input, func(match string) string {
		if value, exists := vars[match[2:len(match)-1]]; exists {
			return value
		}

		return match
	})
}

func ReadUserIP(r *http.Request) string {
	forwardedFor := r.Header.Get("X-Forwarded-For")
	if forwardedFor != "" {
		ips := strings.Split(forwardedFor, ",")
		return strings.TrimSpace(ips[0])
	}

	host, _, _ := net.SplitHostPort(r.RemoteAddr)
	return host
}

func StringInSlice(a string, list []string) bool {
	for _, b := range list {
		if b == a {
			return true
		}
	}
	return false
}

// UnescapeBraces restores template placeholders that url.URL.String
// percent-encodes.
func UnescapeBraces(s string) string {
	return strings.NewReplacer("%7B", "{", "%7D", "}", "%7b", "{", "%7d", "}").Replace(s)
}
