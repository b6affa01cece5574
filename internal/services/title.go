package services

const titleMaxRunes = 50

// TruncateTitle derives a conversation title from the first message: the first
// 50 characters, with "..." appended when the content was longer.
func TruncateTitle(content string) string {
	runes := []rune(content)
	if len(runes) <= titleMaxRunes {
		return content
	}
	return string(runes[:titleMaxRunes]) + "..."
}
