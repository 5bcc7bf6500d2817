// Package namematch decides whether two free-text company names plausibly
// denote the same entity, for deduplicating and linking company records across
// independently-sourced filings. It is a cheap, explainable substitute for a
// trained similarity model: names are reduced to ordered token fragments and
// the shorter fragment sequence must appear, in order, within the longer one.
package namematch

import (
	"regexp"
	"strings"

	"github.com/mozillazg/go-unidecode"
)

// xlsSuffix matches a trailing spreadsheet file extension (.xlsx/.xlsm) with
// optional trailing whitespace; filings are often submitted as file names.
var xlsSuffix = regexp.MustCompile(`\.xls[xm]\s*$`)

// stopwords are legal-entity and connector words dropped from names when they
// appear as whole tokens.
var stopwords = map[string]struct{}{
	"ltd": {}, "co": {}, "group": {}, "sa": {}, "inc": {}, "&": {},
	"holdings": {}, "and": {}, "corp": {}, "pt": {}, "international": {},
	"de": {}, "the": {}, "corporation": {}, "y": {}, "plc": {}, "of": {},
	"limited": {}, "grupo": {}, "ag": {}, "as": {}, "j": {}, "ooo": {},
	"company": {}, "holding": {}, "i": {}, "gmbh": {},
}

// Normalize reduces a raw company name to its ordered sequence of fragments:
// lower-case, strip a trailing .xlsx/.xlsm suffix, transliterate to ASCII,
// replace everything but letters and whitespace with spaces, merge isolated
// single letters into the following token (so "j p morgan" becomes
// "jp morgan"), drop stopwords, and split on whitespace.
func Normalize(raw string) []string {
	nm := strings.ToLower(raw)
	nm = xlsSuffix.ReplaceAllString(nm, "")
	nm = unidecode.Unidecode(nm)
	nm = lettersAndSpacesOnly(nm)
	nm = mergeSingleLetters(nm)

	fields := strings.Fields(nm)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, stop := stopwords[f]; stop {
			continue
		}
		out = append(out, f)
	}
	return out
}

// Equivalent reports whether two fragment sequences denote the same entity:
// every token of the shorter sequence must find an exact, order-preserving
// match in the longer one; unmatched extra tokens in the longer sequence are
// tolerated. Empty sequences never match anything, including each other.
func Equivalent(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	short, long := a, b
	if len(short) > len(long) {
		short, long = long, short
	}
	hits := 0
	j := 0
	for i := 0; i < len(short); i++ {
		for ; j < len(long); j++ {
			if short[i] == long[j] {
				hits++
				j++
				break
			}
		}
	}
	return hits == len(short)
}

// EquivalentNames normalizes both raw names and compares the results.
func EquivalentNames(a, b string) bool {
	return Equivalent(Normalize(a), Normalize(b))
}

// lettersAndSpacesOnly replaces every byte that is not a lowercase ASCII
// letter or whitespace with a space. Input is already lower-cased and
// transliterated, so only [a-z] letters remain meaningful.
func lettersAndSpacesOnly(s string) string {
	b := []byte(s)
	for i, c := range b {
		if !isLetter(c) && !isSpace(c) {
			b[i] = ' '
		}
	}
	return string(b)
}

// mergeSingleLetters joins an isolated single letter to the token after it:
// a letter not preceded by a letter, followed by one whitespace char, where
// the text after that whitespace does not start with two letters. This fixes
// spaced abbreviations ("j p morgan" -> "jp morgan") without merging ordinary
// short words into their neighbors.
func mergeSingleLetters(s string) string {
	b := []byte(s)
	var out strings.Builder
	out.Grow(len(b))
	for i := 0; i < len(b); {
		if isLetter(b[i]) &&
			(i == 0 || !isLetter(b[i-1])) &&
			i+1 < len(b) && isSpace(b[i+1]) &&
			!(i+3 < len(b) && isLetter(b[i+2]) && isLetter(b[i+3])) {
			out.WriteByte(b[i])
			i += 2
			continue
		}
		out.WriteByte(b[i])
		i++
	}
	return out.String()
}

func isLetter(c byte) bool { return c >= 'a' && c <= 'z' }

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}
