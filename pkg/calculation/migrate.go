package calculation

import (
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/ilramdhan/farmcalc/pkg/formula"
)

// Keyify turns a display name into an identifier-safe key:
// "Quantidade Desejada de Adubo" -> "quantidade_desejada_de_adubo",
// "Área" -> "area".
func Keyify(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, name)
	if err != nil {
		plain = name
	}

	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(plain) {
		switch {
		case r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			underscore = false
		case !underscore && b.Len() > 0:
			b.WriteByte('_')
			underscore = true
		}
	}

	key := strings.TrimRight(b.String(), "_")
	switch {
	case key == "":
		key = "param"
	case key[0] >= '0' && key[0] <= '9':
		key = "p_" + key
	}
	if formula.IsReserved(key) {
		key += "_"
	}
	return key
}

// MigrateNames rewrites a definition whose parameter names are not
// identifiers (spaces, accents, punctuation). Each such parameter gets a
// Keyify key, its old name becomes the label, and every expression has
// "@[Old Name]" and whole-word "Old Name" occurrences replaced by the key
// before it is ever parsed. It returns the old-name to key mapping.
func MigrateNames(def Definition) (Definition, map[string]string) {
	out := def
	out.Parameters = make([]Parameter, len(def.Parameters))
	copy(out.Parameters, def.Parameters)

	taken := make(map[string]bool)
	for _, p := range def.Parameters {
		if formula.IsIdentifier(p.Name) {
			taken[p.Name] = true
		}
	}

	mapping := make(map[string]string)
	for i, p := range out.Parameters {
		if formula.IsIdentifier(p.Name) {
			continue
		}
		key := Keyify(p.Name)
		for n := 2; taken[key]; n++ {
			key = Keyify(p.Name) + "_" + strconv.Itoa(n)
		}
		taken[key] = true
		mapping[p.Name] = key

		if p.Label == "" {
			p.Label = p.Name
		}
		p.Name = key
		out.Parameters[i] = p
	}
	if len(mapping) == 0 {
		return out, mapping
	}

	olds := make([]string, 0, len(mapping))
	for old := range mapping {
		olds = append(olds, old)
	}
	// Longest first so "Área Total" is replaced before "Área".
	sort.Slice(olds, func(i, j int) bool {
		if len(olds[i]) != len(olds[j]) {
			return len(olds[i]) > len(olds[j])
		}
		return olds[i] < olds[j]
	})

	rewrite := func(expr string) string {
		for _, old := range olds {
			expr = strings.ReplaceAll(expr, "@["+old+"]", mapping[old])
		}
		for _, old := range olds {
			expr = replaceWholeWord(expr, old, mapping[old])
		}
		return expr
	}

	out.Expression = rewrite(def.Expression)
	if len(def.Results) > 0 {
		out.Results = make([]Result, len(def.Results))
		for i, r := range def.Results {
			r.Expression = rewrite(r.Expression)
			out.Results[i] = r
		}
	}
	return out, mapping
}

// replaceWholeWord replaces occurrences of old that are not glued to other
// word characters on either side.
func replaceWholeWord(s, old, replacement string) string {
	if old == "" {
		return s
	}
	var b strings.Builder
	i := 0
	for {
		j := strings.Index(s[i:], old)
		if j < 0 {
			b.WriteString(s[i:])
			return b.String()
		}
		start := i + j
		end := start + len(old)
		before, _ := utf8.DecodeLastRuneInString(s[:start])
		after, _ := utf8.DecodeRuneInString(s[end:])
		if (start == 0 || !isWordRune(before)) && (end == len(s) || !isWordRune(after)) {
			b.WriteString(s[i:start])
			b.WriteString(replacement)
		} else {
			b.WriteString(s[i:end])
		}
		i = end
	}
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
