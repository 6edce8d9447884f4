package mobi

// localeEntry pairs a MOBI locale code with its IANA language subtag.
// The code packs (region, language) as (region*4)<<8 | language,
// matching the nibble layout the original Mobipocket creator tools
// used for their language/dialect table.
type localeEntry struct {
	code uint32
	tag  string
}

// localeTable covers the language codes actually exercised by the
// sample corpus plus their most common regional dialects; it is not
// exhaustive of every code Kindlegen ever emitted.
var localeTable = []localeEntry{
	{0x09, "en"},
	{0x09 | 0x0400, "en-US"},
	{0x09 | 0x0800, "en-GB"},
	{0x09 | 0x0c00, "en-AU"},
	{0x09 | 0x1000, "en-CA"},
	{0x01, "ar"},
	{0x02, "bg"},
	{0x03, "ca"},
	{0x04, "zh"},
	{0x04 | 0x0400, "zh-CN"},
	{0x04 | 0x0800, "zh-TW"},
	{0x05, "cs"},
	{0x06, "da"},
	{0x07, "de"},
	{0x07 | 0x0400, "de-DE"},
	{0x08, "el"},
	{0x0A, "es"},
	{0x0A | 0x0400, "es-ES"},
	{0x0B, "fi"},
	{0x0C, "fr"},
	{0x0C | 0x0400, "fr-FR"},
	{0x0D, "he"},
	{0x0E, "hu"},
	{0x10, "it"},
	{0x10 | 0x0400, "it-IT"},
	{0x11, "ja"},
	{0x12, "ko"},
	{0x13, "nl"},
	{0x14, "no"},
	{0x15, "pl"},
	{0x16, "pt"},
	{0x16 | 0x0400, "pt-BR"},
	{0x16 | 0x0800, "pt-PT"},
	{0x18, "ro"},
	{0x19, "ru"},
	{0x1D, "sv"},
	{0x1E, "th"},
	{0x1F, "tr"},
	{0x22, "uk"},
	{0x2A, "vi"},
}

// localeString maps a MOBI locale code to its IANA subtag; it returns
// "" for an unrecognized code.
func localeString(code uint32) string {
	for _, e := range localeTable {
		if e.code == code {
			return e.tag
		}
	}
	return ""
}

// localeNumber maps an IANA subtag back to its MOBI locale code; ok is
// false for an unrecognized subtag.
func localeNumber(tag string) (uint32, bool) {
	for _, e := range localeTable {
		if e.tag == tag {
			return e.code, true
		}
	}
	return 0, false
}
