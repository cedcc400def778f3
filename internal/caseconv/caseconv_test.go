package caseconv

import "testing"

func TestToCamel(t *testing.T) {
	cases := map[string]string{
		"get_weather":     "getWeather",
		"lookup_user_id":  "lookupUserId",
		"already":         "already",
		"_leading":        "Leading",
		"trailing_":       "trailing",
		"double__under":   "doubleUnder",
		"":                "",
	}
	for in, want := range cases {
		if got := ToCamel(in); got != want {
			t.Errorf("ToCamel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestToSnake(t *testing.T) {
	cases := map[string]string{
		"getWeather":    "get_weather",
		"lookupUserId":  "lookup_user_id",
		"already":       "already",
		"ID":            "i_d",
		"":              "",
	}
	for in, want := range cases {
		if got := ToSnake(in); got != want {
			t.Errorf("ToSnake(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRoundTripForSimpleIdentifiers(t *testing.T) {
	for _, snake := range []string{"get_weather", "search_web", "lookup_user"} {
		camel := ToCamel(snake)
		if back := ToSnake(camel); back != snake {
			t.Errorf("round trip %q -> %q -> %q", snake, camel, back)
		}
	}
}
