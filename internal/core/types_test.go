package core_test

import (
	"errors"
	"testing"

	"github.com/book-expert/pdf-audiobook/internal/core"
	"github.com/stretchr/testify/assert"
)

func TestTranslation_Display(t *testing.T) {
	t.Parallel()

	ok := core.Translation{Page: 1, Source: "Hello", Text: "Bonjour"}
	failed := core.Translation{Page: 2, Source: "World", Err: core.ErrTranslation}

	assert.False(t, ok.Failed())
	assert.Equal(t, "Bonjour", ok.Display())
	assert.True(t, failed.Failed())
	assert.Equal(t, core.TranslationErrorText, failed.Display())
}

func TestTranslation_LiteralSentinelIsNotAFailure(t *testing.T) {
	t.Parallel()

	literal := core.Translation{Page: 1, Source: "x", Text: core.TranslationErrorText}

	assert.False(t, literal.Failed())
	assert.Equal(t, core.TranslationErrorText, literal.Display())
}

func TestTexts(t *testing.T) {
	t.Parallel()

	texts := core.Texts([]core.Translation{
		{Page: 1, Text: "Bonjour"},
		{Page: 3, Err: errors.New("boom")},
		{Page: 4, Text: "Monde"},
	})

	assert.Equal(t, []string{"Bonjour", core.TranslationErrorText, "Monde"}, texts)
}

func TestAudiobook_Skipped(t *testing.T) {
	t.Parallel()

	book := &core.Audiobook{Segments: []core.Segment{
		{Page: 1, Bytes: 10},
		{Page: 2, Err: core.ErrBuild},
		{Page: 5, Bytes: 3},
		{Page: 7, Err: core.ErrBuild},
	}}

	assert.Equal(t, []int{2, 7}, book.Skipped())
}
