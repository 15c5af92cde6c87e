package core

import (
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

var folder = cases.Fold()

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// FoldName returns the case-folded form of a cleaned name, used to compare names
// the way users perceive them ("Álgebra" and "ÁLGEBRA" are the same group).
func FoldName(s string) string {
	return folder.String(strings.Join(strings.Fields(s), " "))
}

// SameName reports whether two names are equal once folded.
func SameName(a, b string) bool {
	return FoldName(a) == FoldName(b)
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// SortByName sorts a slice in place by the names returned by name, using the collation
// rules of lang (accents and case do not break alphabetical order).
func SortByName(lang string, n int, name func(i int) string, swap func(i, j int)) {
	tag, err := language.Parse(lang)
	if err != nil {
		tag = language.Und
	}
	c := collate.New(tag, collate.IgnoreCase)
	sort.Sort(byName{n: n, name: name, swap: swap, coll: c})
}

type byName struct {
	n    int
	name func(i int) string
	swap func(i, j int)
	coll *collate.Collator
}

func (b byName) Len() int           { return b.n }
func (b byName) Swap(i, j int)      { b.swap(i, j) }
func (b byName) Less(i, j int) bool { return b.coll.CompareString(b.name(i), b.name(j)) < 0 }

// ContainsInt64 reports whether v is in s.
func ContainsInt64(s []int64, v int64) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

// UniqueInt64 returns s without duplicates, keeping the first occurrence order.
func UniqueInt64(s []int64) []int64 {
	seen := make(map[int64]struct{}, len(s))
	out := make([]int64, 0, len(s))
	for _, x := range s {
		if _, ok := seen[x]; ok {
			continue
		}
		seen[x] = struct{}{}
		out = append(out, x)
	}
	return out
}
