package internal

import "strings"

// Voice describes one synthesis voice offered by the platform engine
type Voice struct {
	Name string
	Lang string
	// Natural marks higher-quality voices some platforms expose
	Natural bool
}

// Names the platforms use for female voices; the original frontend used
// the same heuristic list.
var femaleVoiceMarkers = []string{"Female", "Feminino", "Femme", "Mujer"}

// SelectVoice picks a voice for a language by ranked search:
// exact preferred-name match > natural-quality match > gendered-name
// heuristic > first voice for the language. Returns false when no voice
// matches the language at all.
func SelectVoice(voices []Voice, lang, preferred string) (Voice, bool) {
	var forLang []Voice
	for _, v := range voices {
		if strings.HasPrefix(v.Lang, lang) || strings.HasPrefix(lang, v.Lang) {
			forLang = append(forLang, v)
		}
	}
	if len(forLang) == 0 {
		return Voice{}, false
	}

	if preferred != "" {
		for _, v := range forLang {
			if strings.Contains(v.Name, preferred) {
				return v, true
			}
		}
	}
	for _, v := range forLang {
		if v.Natural || strings.Contains(v.Name, "(Natural)") {
			return v, true
		}
	}
	for _, v := range forLang {
		for _, marker := range femaleVoiceMarkers {
			if strings.Contains(v.Name, marker) {
				return v, true
			}
		}
	}
	return forLang[0], true
}
