package normalize

import "sort"

// Stopwords maps a language key to its set of normalized stopwords.
// The zero value is an empty table ready for Add.
type Stopwords map[string]map[string]struct{}

// Add registers normalized words for lang. Empty words are ignored.
func (s Stopwords) Add(lang string, words ...string) {
	set, ok := s[lang]
	if !ok {
		set = make(map[string]struct{}, len(words))
		s[lang] = set
	}
	for _, w := range words {
		if w != "" {
			set[w] = struct{}{}
		}
	}
}

// Has reports whether word is a stopword for lang.
func (s Stopwords) Has(lang, word string) bool {
	_, ok := s[lang][word]
	return ok
}

// Words returns the sorted stopwords for lang.
func (s Stopwords) Words(lang string) []string {
	words := make([]string, 0, len(s[lang]))
	for w := range s[lang] {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}

// Clone returns a deep copy, so a snapshot can be taken mid-parse.
func (s Stopwords) Clone() Stopwords {
	out := make(Stopwords, len(s))
	for lang, set := range s {
		cp := make(map[string]struct{}, len(set))
		for w := range set {
			cp[w] = struct{}{}
		}
		out[lang] = cp
	}
	return out
}
