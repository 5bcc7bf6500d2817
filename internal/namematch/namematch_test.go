package namematch

import (
	"reflect"
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"legal suffixes dropped", "Acme Holdings Ltd.", []string{"acme"}},
		{"plain name", "Acme", []string{"acme"}},
		{"spaced initials merged", "J P Morgan", []string{"jp", "morgan"}},
		{"connector and suffix", "JPMorgan Chase & Co", []string{"jpmorgan", "chase"}},
		{"trailing initials merged", "Unilever N.V.", []string{"unilever", "nv"}},
		{"accented name", "Nestlé S.A.", []string{"nestle"}},
		{"spreadsheet suffix stripped", "Acme Corp.xlsx", []string{"acme"}},
		{"spreadsheet suffix with trailing space", "Acme Corp.xlsm  ", []string{"acme"}},
		{"digits become separators", "3M Company", []string{"m"}},
		{"stopwords only", "The Group Ltd", nil},
		{"empty input", "", nil},
		{"mixed punctuation", "Smith, Jones & Sons (Holdings) PLC", []string{"smith", "jones", "sons"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.raw)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Normalize(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	raws := []string{"J P Morgan Chase", "Nestlé S.A.", "Acme Widget Works Ltd."}
	for _, raw := range raws {
		once := Normalize(raw)
		again := Normalize(strings.Join(once, " "))
		if !reflect.DeepEqual(once, again) {
			t.Errorf("Normalize(%q) not stable: %v vs %v", raw, once, again)
		}
	}
}

func TestEquivalent(t *testing.T) {
	tests := []struct {
		name string
		a, b []string
		want bool
	}{
		{"identical", []string{"acme"}, []string{"acme"}, true},
		{"subsequence match", []string{"jp", "morgan"}, []string{"jp", "morgan", "chase"}, true},
		{"extra tokens in longer tolerated", []string{"unilever"}, []string{"unilever", "n", "v"}, true},
		{"order matters", []string{"morgan", "jp"}, []string{"jp", "morgan", "chase"}, false},
		{"disjoint", []string{"apple"}, []string{"pineapple"}, false},
		{"partial overlap insufficient", []string{"acme", "widgets"}, []string{"acme", "gadgets"}, false},
		{"both empty never match", nil, nil, false},
		{"one empty never matches", nil, []string{"acme"}, false},
		{"duplicate tokens consume positions", []string{"a", "a"}, []string{"a", "b"}, false},
		{"duplicate tokens matched in order", []string{"a", "a"}, []string{"a", "b", "a"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equivalent(tt.a, tt.b); got != tt.want {
				t.Errorf("Equivalent(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
			if got := Equivalent(tt.b, tt.a); got != tt.want {
				t.Errorf("Equivalent(%v, %v) = %v, want %v (symmetry)", tt.b, tt.a, got, tt.want)
			}
		})
	}
}

func TestEquivalentNames(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"suffix variations", "Acme Holdings Ltd.", "ACME", true},
		{"spaced initials", "J P Morgan", "JP Morgan Chase", true},
		{"transliteration", "Nestlé S.A.", "Nestle", true},
		// Spaced initials merge into one token ("jp") but a fused word is
		// never split, so "jp" and "jpmorgan" stay distinct fragments.
		{"spaced initials vs fused word", "J P Morgan Chase", "JPMorgan Chase & Co", false},
		{"different companies", "Apple Inc", "Pineapple Inc", false},
		{"stopword-only vs stopword-only", "The Group Ltd", "The Company Inc", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EquivalentNames(tt.a, tt.b); got != tt.want {
				t.Errorf("EquivalentNames(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestMergeSingleLetters(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"j p morgan", "jp morgan"},
		{"a b c", "abc"},
		{"acme widgets", "acme widgets"},
		{"x ray", "x ray"},
		{"n v", "nv"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := mergeSingleLetters(tt.in); got != tt.want {
			t.Errorf("mergeSingleLetters(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
