package poems

import "testing"

func TestCountVersesIgnoresStanzaBreaks(t *testing.T) {
	content := "Roses are red\nViolets are blue\n\nSugar is sweet\nAnd so are you"
	if got := CountVerses(content); got != 4 {
		t.Fatalf("expected 4 verses, got %d", got)
	}
}

func TestCountVersesSkipsWhitespaceLines(t *testing.T) {
	content := "First verse\n   \n\t\nSecond verse\n"
	if got := CountVerses(content); got != 2 {
		t.Fatalf("expected 2 verses, got %d", got)
	}
}

func TestCountWords(t *testing.T) {
	if got := CountWords("Roses are red\nViolets are blue"); got != 6 {
		t.Fatalf("expected 6 words, got %d", got)
	}
}

func TestSplitStanzasGroupsByBlankLine(t *testing.T) {
	content := "One\nTwo\n\nThree"
	stanzas := SplitStanzas(content)
	if len(stanzas) != 2 {
		t.Fatalf("expected 2 stanzas, got %d", len(stanzas))
	}
	if len(stanzas[0]) != 2 || stanzas[0][0] != "One" || stanzas[0][1] != "Two" {
		t.Fatalf("unexpected first stanza: %#v", stanzas[0])
	}
	if len(stanzas[1]) != 1 || stanzas[1][0] != "Three" {
		t.Fatalf("unexpected second stanza: %#v", stanzas[1])
	}
}

func TestSplitStanzasTrimsVerses(t *testing.T) {
	stanzas := SplitStanzas("  padded verse  \n\n  another  ")
	if len(stanzas) != 2 {
		t.Fatalf("expected 2 stanzas, got %d", len(stanzas))
	}
	if stanzas[0][0] != "padded verse" {
		t.Fatalf("expected trimmed verse, got %q", stanzas[0][0])
	}
}

func TestSplitStanzasEmptyContent(t *testing.T) {
	if stanzas := SplitStanzas("   \n\n  "); stanzas != nil {
		t.Fatalf("expected nil stanzas for blank content, got %#v", stanzas)
	}
}

func TestVerseCaptionUsesFirstWord(t *testing.T) {
	if got := VerseCaption("Violets are blue"); got != "Violets" {
		t.Fatalf("expected first word caption, got %q", got)
	}
}

func TestVerseCaptionExtendsShortFirstWord(t *testing.T) {
	if got := VerseCaption("And so are you"); got != "And so" {
		t.Fatalf("expected two-word caption for short first word, got %q", got)
	}
}

func TestVerseCaptionSingleShortWord(t *testing.T) {
	if got := VerseCaption("Oh"); got != "Oh" {
		t.Fatalf("expected the lone word, got %q", got)
	}
}

func TestVerseCaptionEmptyVerse(t *testing.T) {
	if got := VerseCaption("   "); got != "" {
		t.Fatalf("expected empty caption, got %q", got)
	}
}
