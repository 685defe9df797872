package api

import "fmt"

type (
	// Args represents a map of named values sent to or returned by an API
	Args map[Name]any

	// Name is a string identifier for argument and data fields
	Name string
)

// Present reports whether the named value exists and is not empty. Nil,
// empty strings, false, and zero numbers are all treated as absent
func (a Args) Present(name Name) bool {
	val, ok := a[name]
	if !ok {
		return false
	}
	return isPresent(val)
}

// Strings renders every value as a string, for use in headers, query
// strings, and form bodies
func (a Args) Strings() map[string]string {
	res := make(map[string]string, len(a))
	for k, v := range a {
		res[string(k)] = stringify(v)
	}
	return res
}

func isPresent(val any) bool {
	switch v := val.(type) {
	case nil:
		return false
	case string:
		return v != ""
	case bool:
		return v
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	default:
		return true
	}
}

func stringify(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprint(v)
	default:
		return fmt.Sprint(v)
	}
}
