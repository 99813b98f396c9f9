// Package specimen turns user input into pokedex records: one-line
// expressions such as "species=201 form=4 shiny female lang=ENG native",
// and batch files holding many specimens as expressions, JSON or XML.
package specimen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/FocuswithJustin/pkdex/core/errors"
	"github.com/FocuswithJustin/pkdex/core/pokedex"
)

// DefaultLanguage is the raw language code used when none is given (ENG).
const DefaultLanguage = 2

// expression is the participle grammar for one specimen.
//
//nolint:govet // participle grammar tags are not standard struct tags
type expression struct {
	Fields []*field `parser:"@@+"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type field struct {
	Key   string `parser:"@Ident"`
	Value *value `parser:"( \"=\" @@ )?"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type value struct {
	Int  *int    `parser:"  @Int"`
	Word *string `parser:"| @Ident"`
}

func (v *value) String() string {
	if v.Int != nil {
		return strconv.Itoa(*v.Int)
	}
	return *v.Word
}

var exprLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Ident", Pattern: `[A-Za-z][A-Za-z_]*`},
	{Name: "Punct", Pattern: `=`},
	{Name: "Whitespace", Pattern: `[ \t,]+`},
})

var exprParser = participle.MustBuild[expression](
	participle.Lexer(exprLexer),
	participle.Elide("Whitespace"),
)

// languageCodes maps language names onto raw game codes.
var languageCodes = map[string]int{
	"jpn": 1, "eng": 2, "fre": 3, "ita": 4, "ger": 5, "spa": 7, "kor": 8,
	"ja": 1, "en": 2, "fr": 3, "it": 4, "de": 5, "es": 7, "ko": 8,
}

var genders = map[string]int{
	"male":       pokedex.Male,
	"m":          pokedex.Male,
	"female":     pokedex.Female,
	"f":          pokedex.Female,
	"genderless": pokedex.Genderless,
	"none":       pokedex.Genderless,
}

// Parse reads one specimen expression.
//
// Keys taking a value: species, form, lang (code or name), gender.
// Bare flags: shiny, native, foreign, male, female, genderless.
// species is required; form defaults to 0 and lang to English.
func Parse(s string) (pokedex.Record, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return pokedex.Record{}, errors.NewParse("specimen", "", "empty expression")
	}

	parsed, err := exprParser.ParseString("", s)
	if err != nil {
		return pokedex.Record{}, &errors.ParseError{Format: "specimen", Message: fmt.Sprintf("%q", s), Err: err}
	}

	pairs := make([]pair, len(parsed.Fields))
	for i, f := range parsed.Fields {
		pairs[i] = pair{key: f.Key, value: f.Value}
	}
	return build(pairs)
}

// pair is one key with its optional value, whatever syntax it came from.
type pair struct {
	key   string
	value *value
}

// textValue wraps a raw string as a grammar value.
func textValue(s string) *value {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return &value{Int: &n}
	}
	return &value{Word: &s}
}

var aliases = map[string]string{
	"language":    "lang",
	"native_born": "native",
}

// fields maps keys that write the same record field onto one name, so
// "female male" is rejected like a repeated key.
var fields = map[string]string{
	"male":       "gender",
	"female":     "gender",
	"genderless": "gender",
	"foreign":    "native",
}

func build(pairs []pair) (pokedex.Record, error) {
	rec := pokedex.Record{Language: DefaultLanguage}
	seen := make(map[string]bool, len(pairs))
	for _, p := range pairs {
		key := strings.ToLower(p.key)
		if alias, ok := aliases[key]; ok {
			key = alias
		}
		field := key
		if f, ok := fields[key]; ok {
			field = f
		}
		if seen[field] {
			if field != key {
				return pokedex.Record{}, errors.NewValidation(key, field+" given more than once")
			}
			return pokedex.Record{}, errors.NewValidation(key, "given more than once")
		}
		seen[field] = true
		if err := apply(&rec, key, p.value); err != nil {
			return pokedex.Record{}, err
		}
	}
	if !seen["species"] {
		return pokedex.Record{}, errors.NewValidation("species", "required")
	}
	return rec, nil
}

func apply(rec *pokedex.Record, key string, v *value) error {
	switch key {
	case "species", "form":
		if v == nil || v.Int == nil {
			return errors.NewValidation(key, "needs a number")
		}
		if key == "species" {
			rec.Species = *v.Int
		} else {
			rec.Form = *v.Int
		}
	case "lang":
		if v == nil {
			return errors.NewValidation(key, "needs a code or name")
		}
		code, err := languageCode(v)
		if err != nil {
			return err
		}
		rec.Language = code
	case "gender":
		if v != nil && v.Int != nil && *v.Int >= pokedex.Male && *v.Int <= pokedex.Genderless {
			rec.Gender = *v.Int
			return nil
		}
		if v == nil || v.Word == nil {
			return errors.NewValidation(key, "needs male, female or genderless")
		}
		g, ok := genders[strings.ToLower(*v.Word)]
		if !ok {
			return errors.NewValidation(key, fmt.Sprintf("unknown gender %q", *v.Word))
		}
		rec.Gender = g
	case "male", "female", "genderless":
		if v != nil {
			on, err := parseBool(key, v)
			if err != nil || !on {
				return err
			}
		}
		rec.Gender = genders[key]
	case "shiny", "native", "foreign":
		b := true
		if v != nil {
			var err error
			if b, err = parseBool(key, v); err != nil {
				return err
			}
		}
		switch key {
		case "shiny":
			rec.Shiny = b
		case "native":
			rec.NativeBorn = b
		case "foreign":
			rec.NativeBorn = !b
		}
	default:
		return errors.NewValidation(key, "unknown field")
	}
	return nil
}

func languageCode(v *value) (int, error) {
	if v.Int != nil {
		return *v.Int, nil
	}
	code, ok := languageCodes[strings.ToLower(*v.Word)]
	if !ok {
		return 0, errors.NewValidation("lang", fmt.Sprintf("unknown language %q", *v.Word))
	}
	return code, nil
}

func parseBool(key string, v *value) (bool, error) {
	switch strings.ToLower(v.String()) {
	case "1", "true", "yes", "y":
		return true, nil
	case "0", "false", "no", "n":
		return false, nil
	}
	return false, errors.NewValidation(key, fmt.Sprintf("not a boolean: %q", v.String()))
}

// Format renders rec as an expression Parse accepts.
func Format(rec pokedex.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "species=%d form=%d lang=%d", rec.Species, rec.Form, rec.Language)
	switch rec.Gender {
	case pokedex.Female:
		b.WriteString(" female")
	case pokedex.Genderless:
		b.WriteString(" genderless")
	default:
		b.WriteString(" male")
	}
	if rec.Shiny {
		b.WriteString(" shiny")
	}
	if rec.NativeBorn {
		b.WriteString(" native")
	}
	return b.String()
}
