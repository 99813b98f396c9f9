package pokedex

import "github.com/FocuswithJustin/pkdex/core/game"

// Gender values as stored in a decoded Pokémon.
const (
	Male       = 0
	Female     = 1
	Genderless = 2
)

// Record is the decoded view of one imported Pokémon. The engine only
// reads it.
type Record struct {
	Species    int  `json:"species"`  // national dex number, 1-based
	Form       int  `json:"form"`     // form index
	Language   int  `json:"language"` // raw game language code
	Shiny      bool `json:"shiny"`
	Gender     int  `json:"gender"`      // Male, Female or Genderless
	NativeBorn bool `json:"native_born"` // met in the region of the target game
}

// female maps the stored gender onto the seen/displayed block index.
// Genderless Pokémon share the male blocks.
func (r Record) female() bool {
	return r.Gender%2 == 1
}

// reservedLanguage is the raw code the games never assign.
const reservedLanguage = 6

// LanguageIndex maps a raw language code {1,2,3,4,5,7,8} onto the
// contiguous range 0..6 used by the language bitfield. ok is false for the
// reserved code and for codes outside the range.
func LanguageIndex(raw int) (idx int, ok bool) {
	if raw <= 0 || raw == reservedLanguage {
		return -1, false
	}
	idx = raw - 1
	if raw > reservedLanguage {
		idx--
	}
	if idx >= game.LanguageCount {
		return idx, false
	}
	return idx, true
}

var languageNames = [game.LanguageCount]string{"JPN", "ENG", "FRE", "ITA", "GER", "SPA", "KOR"}

// LanguageName returns the short name of a normalized language index.
func LanguageName(idx int) string {
	if idx < 0 || idx >= len(languageNames) {
		return "???"
	}
	return languageNames[idx]
}
