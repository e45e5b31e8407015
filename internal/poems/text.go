package poems

import "strings"

const shortWordThreshold = 3

// CountVerses returns the number of non-empty lines in the poem,
// independent of stanza breaks.
func CountVerses(content string) int {
	count := 0
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) != "" {
			count++
		}
	}
	return count
}

// CountWords returns the number of whitespace-separated words in the poem.
func CountWords(content string) int {
	return len(strings.Fields(content))
}

// SplitStanzas splits poem content into stanzas (separated by blank lines)
// of trimmed verses. Empty verses inside a stanza are dropped.
func SplitStanzas(content string) [][]string {
	normalized := strings.TrimSpace(content)
	if normalized == "" {
		return nil
	}

	stanzas := make([][]string, 0)
	for _, block := range strings.Split(normalized, "\n\n") {
		verses := make([]string, 0)
		for _, line := range strings.Split(block, "\n") {
			trimmed := strings.TrimSpace(line)
			if trimmed != "" {
				verses = append(verses, trimmed)
			}
		}
		if len(verses) > 0 {
			stanzas = append(stanzas, verses)
		}
	}
	return stanzas
}

// VerseCaption returns the cheat-sheet caption for a verse: its first word,
// or the first two words when the first word is three characters or fewer.
func VerseCaption(verse string) string {
	words := strings.Fields(verse)
	if len(words) == 0 {
		return ""
	}
	if len(words[0]) > shortWordThreshold || len(words) == 1 {
		return words[0]
	}
	return strings.Join(words[:2], " ")
}
