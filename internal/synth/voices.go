package synth

// VoiceMap maps the short language codes accepted on the request to
// engine voice names. "-m" suffixed codes select male voices.
var VoiceMap = map[string]string{
	"en":   "en-US-AriaNeural",
	"en-m": "en-US-GuyNeural",
	"hi":   "hi-IN-SwaraNeural",
	"hi-m": "hi-IN-MadhurNeural",
	"fr":   "fr-FR-DeniseNeural",
	"de":   "de-DE-KatjaNeural",
	"es":   "es-ES-ElviraNeural",
}

// DefaultVoice is used when the language code is unknown.
const DefaultVoice = "en-US-AriaNeural"

// ResolveVoice maps a language code to a voice name, falling back to
// DefaultVoice.
func ResolveVoice(lang string) string {
	if v, ok := VoiceMap[lang]; ok {
		return v
	}
	return DefaultVoice
}

// Languages returns the accepted language codes, for API discovery.
func Languages() []string {
	langs := make([]string, 0, len(VoiceMap))
	for k := range VoiceMap {
		langs = append(langs, k)
	}
	return langs
}
