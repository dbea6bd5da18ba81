package catalog

import (
	"strings"
	"testing"
)

func TestCacheKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "root"},
		{"/", "root"},
		{"()", "root"},
		{"Summer Trip/Day 1", "summer_trip-day_1"},
		{"A & B (2020)", "a_b_2020"},
		{"/Vacation 2021", "vacation_2021"},
		{"IMG_003.JPG", "img_003.jpg"},
		{"a/b/c", "a-b-c"},
		{"Foo - Bar", "foo-bar"},
		{"weird #[,]\"'& name", "weird_name"},
		{"a  b", "a_b"},
		{"a//b", "a-b"},
		{"a_-_b", "a-b"},
		{"a_--_b", "a-b"},
		{"x_-(-_y", "x-y"},
		{"très bien", "tr%c3%a8s_bien"},
		{"100%", "100%"},
	}
	for _, tt := range tests {
		if got := CacheKey(tt.in); got != tt.want {
			t.Errorf("CacheKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

var keyCorpus = []string{
	"", "/", "root", "Summer Trip/Day 1", "A & B (2020)",
	"  spaced  out  ", "UPPER/lower", "a_-_b", "a_--_b", "x_-(-_y",
	"_-_-_", "----", "____",
	"nested/really (deep)/path #3", "café/au lait", "%41", "a%b",
	"movie.mp4", "IMG_0001.JPG", "日本/旅行",
}

func TestCacheKeyIdempotent(t *testing.T) {
	for _, in := range keyCorpus {
		once := CacheKey(in)
		twice := CacheKey(once)
		if once != twice {
			t.Errorf("CacheKey not idempotent for %q: %q -> %q", in, once, twice)
		}
	}
}

func TestCacheKeyFixedPoint(t *testing.T) {
	for _, in := range keyCorpus {
		got := CacheKey(in)
		if strings.Contains(got, "--") || strings.Contains(got, "__") || strings.Contains(got, "_-_") {
			t.Errorf("CacheKey(%q) = %q still contains a collapsible run", in, got)
		}
		if strings.ContainsAny(got, " \t\n/") {
			t.Errorf("CacheKey(%q) = %q contains whitespace or a slash", in, got)
		}
		if got != strings.ToLower(got) {
			t.Errorf("CacheKey(%q) = %q is not lower-case", in, got)
		}
	}
}
