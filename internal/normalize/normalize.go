// Package normalize canonicalizes metadata values that external sources
// report in inconsistent shapes.
package normalize

import "strings"

// iso639_2to1 maps ISO 639-2 codes to ISO 639-1, including the
// bibliographic variants.
var iso639_2to1 = map[string]string{
	"eng": "en", "spa": "es", "fra": "fr", "fre": "fr", "deu": "de",
	"ger": "de", "ita": "it", "por": "pt", "nld": "nl", "dut": "nl",
	"rus": "ru", "jpn": "ja", "zho": "zh", "chi": "zh", "kor": "ko",
	"ara": "ar", "hin": "hi", "pol": "pl", "swe": "sv", "nor": "no",
	"dan": "da", "fin": "fi", "tur": "tr", "ell": "el", "gre": "el",
	"heb": "he", "ces": "cs", "cze": "cs", "hun": "hu", "ron": "ro",
	"rum": "ro", "ukr": "uk", "cat": "ca", "hrv": "hr", "slk": "sk",
	"slo": "sk", "bul": "bg", "lit": "lt", "lav": "lv", "est": "et",
	"slv": "sl", "srp": "sr", "vie": "vi", "ind": "id", "tha": "th",
	"fas": "fa", "per": "fa", "eus": "eu", "baq": "eu", "glg": "gl",
	"isl": "is", "ice": "is",
}

// languageNameToCode maps language display names to ISO 639-1 codes.
var languageNameToCode = map[string]string{
	"english": "en", "spanish": "es", "castilian": "es", "french": "fr",
	"german": "de", "italian": "it", "portuguese": "pt", "dutch": "nl",
	"russian": "ru", "japanese": "ja", "chinese": "zh", "mandarin": "zh",
	"korean": "ko", "arabic": "ar", "hindi": "hi", "polish": "pl",
	"swedish": "sv", "norwegian": "no", "danish": "da", "finnish": "fi",
	"turkish": "tr", "greek": "el", "hebrew": "he", "czech": "cs",
	"hungarian": "hu", "romanian": "ro", "ukrainian": "uk", "catalan": "ca",
	"croatian": "hr", "slovak": "sk", "bulgarian": "bg", "lithuanian": "lt",
	"latvian": "lv", "estonian": "et", "slovenian": "sl", "serbian": "sr",
	"vietnamese": "vi", "indonesian": "id", "thai": "th", "persian": "fa",
	"farsi": "fa", "basque": "eu", "galician": "gl", "icelandic": "is",
}

// codeToLanguageName maps ISO 639-1 codes back to display names.
var codeToLanguageName = map[string]string{
	"en": "English", "es": "Spanish", "fr": "French", "de": "German",
	"it": "Italian", "pt": "Portuguese", "nl": "Dutch", "ru": "Russian",
	"ja": "Japanese", "zh": "Chinese", "ko": "Korean", "ar": "Arabic",
	"hi": "Hindi", "pl": "Polish", "sv": "Swedish", "no": "Norwegian",
	"da": "Danish", "fi": "Finnish", "tr": "Turkish", "el": "Greek",
	"he": "Hebrew", "cs": "Czech", "hu": "Hungarian", "ro": "Romanian",
	"uk": "Ukrainian", "ca": "Catalan", "hr": "Croatian", "sk": "Slovak",
	"bg": "Bulgarian", "lt": "Lithuanian", "lv": "Latvian", "et": "Estonian",
	"sl": "Slovenian", "sr": "Serbian", "vi": "Vietnamese", "id": "Indonesian",
	"th": "Thai", "fa": "Persian", "eu": "Basque", "gl": "Galician",
	"is": "Icelandic",
}

// LanguageCode converts a language value to an ISO 639-1 code. Handles
// 639-1 codes, 639-2 codes, locale codes ("en-US", "es_MX"), and display
// names in any case. Returns empty for unrecognized values: a wrong code
// in a tag is worse than none.
func LanguageCode(raw string) string {
	s := strings.ToLower(strings.TrimSpace(stripNulls(raw)))
	if s == "" {
		return ""
	}

	if idx := strings.IndexAny(s, "-_"); idx > 0 {
		s = s[:idx]
	}

	if len(s) == 2 {
		if _, ok := codeToLanguageName[s]; ok {
			return s
		}
		return ""
	}
	if len(s) == 3 {
		if code, ok := iso639_2to1[s]; ok {
			return code
		}
	}
	if code, ok := languageNameToCode[s]; ok {
		return code
	}
	return ""
}

// Language converts a language value to its display name:
// "en", "eng", and "ENGLISH" all yield "English".
func Language(raw string) string {
	code := LanguageCode(raw)
	if code == "" {
		return ""
	}
	return codeToLanguageName[code]
}

// stripNulls drops null bytes; some tag parsers leave terminators in
// strings.
func stripNulls(s string) string {
	return strings.Map(func(r rune) rune {
		if r == 0 {
			return -1
		}
		return r
	}, s)
}
