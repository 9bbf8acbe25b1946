package receipt

import (
	"net/url"
	"regexp"
	"strings"
)

const redactedValue = "[REDACTED]"

// flags whose values are always redacted, compared without leading dashes
var sensitiveFlags = map[string]bool{
	"token":          true,
	"github-token":   true,
	"password":       true,
	"secret":         true,
	"api-key":        true,
	"auth":           true,
	"credentials":    true,
	"bearer":         true,
	"private-key":    true,
	"otel-headers":   true,
	"webhook-secret": true,
}

// value prefixes that identify a credential
var sensitivePrefixes = []string{
	"ghp_",        // GitHub classic PAT
	"github_pat_", // GitHub fine-grained PAT
	"gho_",        // GitHub OAuth
	"ghu_",        // GitHub user-to-server
	"ghs_",        // GitHub App installation
	"ghr_",        // GitHub refresh
	"AKIA",        // AWS access key
	"xoxb-",       // Slack bot
	"ya29.",       // Google OAuth
}

var jwtRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}$`)

var longSecretRegex = regexp.MustCompile(`^[A-Za-z0-9+/=_-]{32,}$`)

// RedactArgs masks credential values in CLI arguments and reports whether any were masked
func RedactArgs(args []string) ([]string, bool) {
	if len(args) == 0 {
		return args, false
	}

	out := make([]string, len(args))
	redacted := false
	for i := 0; i < len(args); i++ {
		arg := args[i]

		if eq := strings.Index(arg, "="); eq > 0 && strings.HasPrefix(arg, "-") {
			flag, value := flagName(arg[:eq]), arg[eq+1:]
			if sensitiveFlags[flag] || isSensitiveValue(value) {
				out[i] = arg[:eq+1] + redactedValue
				redacted = true
				continue
			}
			if masked, ok := maskURL(value); ok {
				out[i] = arg[:eq+1] + masked
				redacted = true
				continue
			}
			out[i] = arg
			continue
		}

		if strings.HasPrefix(arg, "-") && sensitiveFlags[flagName(arg)] && i+1 < len(args) {
			out[i] = arg
			i++
			out[i] = redactedValue
			redacted = true
			continue
		}

		if isSensitiveValue(arg) {
			out[i] = redactedValue
			redacted = true
			continue
		}
		if masked, ok := maskURL(arg); ok {
			out[i] = masked
			redacted = true
			continue
		}
		out[i] = arg
	}
	return out, redacted
}

func flagName(s string) string {
	return strings.ToLower(strings.TrimLeft(s, "-"))
}

func isSensitiveValue(value string) bool {
	for _, prefix := range sensitivePrefixes {
		if strings.HasPrefix(value, prefix) {
			return true
		}
	}
	if jwtRegex.MatchString(value) {
		return true
	}
	// paths and hostnames are long too
	if strings.ContainsAny(value, "/.") {
		return false
	}
	return longSecretRegex.MatchString(value)
}

// maskURL hides the password in URLs such as an OTLP endpoint with basic auth
func maskURL(value string) (string, bool) {
	if !strings.Contains(value, "://") {
		return "", false
	}
	u, err := url.Parse(value)
	if err != nil || u.User == nil {
		return "", false
	}
	if _, hasPassword := u.User.Password(); !hasPassword {
		return "", false
	}
	u.User = url.UserPassword(u.User.Username(), "xxxxx")
	return u.String(), true
}
