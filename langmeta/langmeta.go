// Package langmeta provides a shared language metadata registry
// (English display names and emoji flags) used in translation prompts
// and CLI output.
package langmeta

import "strings"

// Meta describes language display metadata.
type Meta struct {
	Name string
	Flag string
}

// Registry contains canonical language metadata. The names are English:
// they are embedded in prompts sent to the translation model.
// Locale variants are resolved in Resolve() via normalization and base fallback.
var Registry = map[string]Meta{
	"ar":    {Name: "Arabic", Flag: "🇸🇦"},
	"bg":    {Name: "Bulgarian", Flag: "🇧🇬"},
	"bn":    {Name: "Bengali", Flag: "🇧🇩"},
	"ca":    {Name: "Catalan", Flag: "🇪🇸"},
	"cs":    {Name: "Czech", Flag: "🇨🇿"},
	"da":    {Name: "Danish", Flag: "🇩🇰"},
	"de":    {Name: "German", Flag: "🇩🇪"},
	"de-AT": {Name: "German (Austria)", Flag: "🇦🇹"},
	"de-CH": {Name: "German (Switzerland)", Flag: "🇨🇭"},
	"el":    {Name: "Greek", Flag: "🇬🇷"},
	"en":    {Name: "English", Flag: "🇺🇸"},
	"en-GB": {Name: "English (UK)", Flag: "🇬🇧"},
	"en-US": {Name: "English (US)", Flag: "🇺🇸"},
	"es":    {Name: "Spanish", Flag: "🇪🇸"},
	"es-AR": {Name: "Spanish (Argentina)", Flag: "🇦🇷"},
	"es-MX": {Name: "Spanish (Mexico)", Flag: "🇲🇽"},
	"et":    {Name: "Estonian", Flag: "🇪🇪"},
	"fa":    {Name: "Persian", Flag: "🇮🇷"},
	"fi":    {Name: "Finnish", Flag: "🇫🇮"},
	"fr":    {Name: "French", Flag: "🇫🇷"},
	"fr-CA": {Name: "French (Canada)", Flag: "🇨🇦"},
	"he":    {Name: "Hebrew", Flag: "🇮🇱"},
	"hi":    {Name: "Hindi", Flag: "🇮🇳"},
	"hr":    {Name: "Croatian", Flag: "🇭🇷"},
	"hu":    {Name: "Hungarian", Flag: "🇭🇺"},
	"id":    {Name: "Indonesian", Flag: "🇮🇩"},
	"it":    {Name: "Italian", Flag: "🇮🇹"},
	"ja":    {Name: "Japanese", Flag: "🇯🇵"},
	"ko":    {Name: "Korean", Flag: "🇰🇷"},
	"lt":    {Name: "Lithuanian", Flag: "🇱🇹"},
	"lv":    {Name: "Latvian", Flag: "🇱🇻"},
	"nb":    {Name: "Norwegian Bokmål", Flag: "🇳🇴"},
	"nl":    {Name: "Dutch", Flag: "🇳🇱"},
	"no":    {Name: "Norwegian", Flag: "🇳🇴"},
	"pl":    {Name: "Polish", Flag: "🇵🇱"},
	"pt":    {Name: "Portuguese", Flag: "🇵🇹"},
	"pt-BR": {Name: "Portuguese (Brazil)", Flag: "🇧🇷"},
	"ro":    {Name: "Romanian", Flag: "🇷🇴"},
	"ru":    {Name: "Russian", Flag: "🇷🇺"},
	"sk":    {Name: "Slovak", Flag: "🇸🇰"},
	"sl":    {Name: "Slovenian", Flag: "🇸🇮"},
	"sr":    {Name: "Serbian", Flag: "🇷🇸"},
	"sv":    {Name: "Swedish", Flag: "🇸🇪"},
	"th":    {Name: "Thai", Flag: "🇹🇭"},
	"tr":    {Name: "Turkish", Flag: "🇹🇷"},
	"uk":    {Name: "Ukrainian", Flag: "🇺🇦"},
	"vi":    {Name: "Vietnamese", Flag: "🇻🇳"},
	"zh":    {Name: "Chinese", Flag: "🇨🇳"},
	"zh-CN": {Name: "Chinese (Simplified)", Flag: "🇨🇳"},
	"zh-TW": {Name: "Chinese (Traditional)", Flag: "🇹🇼"},
}

func canonicalize(lang string) string {
	normalized := strings.ReplaceAll(strings.TrimSpace(lang), "_", "-")
	if normalized == "" {
		return ""
	}
	parts := strings.Split(normalized, "-")
	parts[0] = strings.ToLower(parts[0])
	if len(parts) >= 2 {
		parts[1] = strings.ToUpper(parts[1])
	}
	return strings.Join(parts, "-")
}

// Resolve returns best-effort language metadata for language codes,
// supporting variants like pt_BR, pt-BR, and locale fallbacks.
// Unknown codes resolve to themselves so prompts stay usable.
func Resolve(lang string) Meta {
	if m, ok := Registry[lang]; ok {
		return m
	}
	normalized := canonicalize(lang)
	if m, ok := Registry[normalized]; ok {
		return m
	}
	if parts := strings.SplitN(normalized, "-", 2); len(parts) == 2 {
		if m, ok := Registry[parts[0]]; ok {
			return m
		}
	}
	return Meta{Name: lang}
}

// Name returns the English display name for a language code.
func Name(lang string) string {
	return Resolve(lang).Name
}
