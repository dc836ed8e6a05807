package speech

// Locale is a BCP-47 code selecting the recognition language.
type Locale string

const (
	English Locale = "en-US"
	Spanish Locale = "es-ES"
	French  Locale = "fr-FR"
	German  Locale = "de-DE"
)

// DefaultLocale is preselected in the language selector.
const DefaultLocale = English

// LanguageOption pairs a locale with its display label.
type LanguageOption struct {
	Locale Locale
	Label  string
}

// Languages is the enumerated set offered by the language selector, in display order.
var Languages = []LanguageOption{
	{Locale: English, Label: "English"},
	{Locale: Spanish, Label: "Spanish"},
	{Locale: French, Label: "French"},
	{Locale: German, Label: "German"},
}

// Label returns the display label of l, or the raw code for locales outside
// the enumerated set.
func (l Locale) Label() string {
	for _, o := range Languages {
		if o.Locale == l {
			return o.Label
		}
	}
	return string(l)
}

// NextLanguage returns the locale following l in Languages, wrapping around.
// Unknown locales move to the first entry.
func NextLanguage(l Locale) Locale {
	for i, o := range Languages {
		if o.Locale == l {
			return Languages[(i+1)%len(Languages)].Locale
		}
	}
	return Languages[0].Locale
}
