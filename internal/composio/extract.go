package composio

import "strings"

// RedirectKeys is the ordered list of keys under which the API has been
// observed to return the account-linking redirect URL, checked first at
// the top level and then under the data envelope.
var RedirectKeys = []string{
	"redirect_url",
	"redirectUrl",
	"url",
	"connect_url",
	"connectUrl",
	"authorization_url",
	"authorizationUrl",
	"data.redirect_url",
	"data.redirectUrl",
	"data.url",
}

// FirstString walks the keys in order and returns the first non-empty
// string value. Keys may be dotted paths into nested objects
// ("toolkit.slug"). The second return is false when no key matched.
func FirstString(m map[string]any, keys ...string) (string, bool) {
	for _, key := range keys {
		value, ok := lookup(m, key)
		if !ok {
			continue
		}
		if s, ok := value.(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

// FirstBool returns the first boolean found at the given keys.
func FirstBool(m map[string]any, keys ...string) (bool, bool) {
	for _, key := range keys {
		value, ok := lookup(m, key)
		if !ok {
			continue
		}
		if b, ok := value.(bool); ok {
			return b, true
		}
	}
	return false, false
}

// FirstMap returns the first object found at the given keys.
func FirstMap(m map[string]any, keys ...string) map[string]any {
	for _, key := range keys {
		value, ok := lookup(m, key)
		if !ok {
			continue
		}
		if nested, ok := value.(map[string]any); ok {
			return nested
		}
	}
	return nil
}

// lookup resolves a dotted path against nested objects.
func lookup(m map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	var current any = m
	for _, part := range parts {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
