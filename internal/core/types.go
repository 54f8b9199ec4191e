package core

// TranslationErrorText is substituted for a page whose translation failed.
const TranslationErrorText = "Translation error"

// Page is the extracted text of one source page. Number is 1-based and refers to the
// source document, so it stays meaningful even when blank pages are skipped.
type Page struct {
	Number int    `json:"number" yaml:"number"`
	Text   string `json:"text"   yaml:"-"`
}

// Translation is the tagged outcome of translating one page.
type Translation struct {
	Page   int
	Source string
	Text   string
	Err    error
}

// Failed reports whether the translation call for this page failed.
func (t Translation) Failed() bool {
	return t.Err != nil
}

// Display returns the text rendered for this page: the translation, or the sentinel.
func (t Translation) Display() string {
	if t.Failed() {
		return TranslationErrorText
	}

	return t.Text
}

// Texts returns the display strings of translations in order.
func Texts(translations []Translation) []string {
	texts := make([]string, len(translations))
	for i, translation := range translations {
		texts[i] = translation.Display()
	}

	return texts
}

// Segment records the narration outcome for one page.
type Segment struct {
	Page  int
	Bytes int
	Err   error
}

// Audiobook is the concatenated narration plus the per-page outcomes.
type Audiobook struct {
	Audio    []byte
	Segments []Segment
}

// Skipped returns the source page numbers that produced no audio.
func (a *Audiobook) Skipped() []int {
	var skipped []int

	for _, segment := range a.Segments {
		if segment.Err != nil {
			skipped = append(skipped, segment.Page)
		}
	}

	return skipped
}
