package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssembleDocument_PreservesPageOrderAndMarkers(t *testing.T) {
	pages := []PageText{
		{Number: 1, Text: "最初のページです。"},
		{Number: 2, Text: "Second page."},
	}

	doc := AssembleDocument(pages)

	assert.Equal(t, "--- Page 1 ---\n最初のページです。\n\n--- Page 2 ---\nSecond page.", doc)
}

func TestAssembleDocument_SkipsWhitespaceOnlyPages(t *testing.T) {
	pages := []PageText{
		{Number: 1, Text: "content"},
		{Number: 2, Text: "   \n\t  "},
		{Number: 3, Text: "more content"},
	}

	doc := AssembleDocument(pages)

	assert.NotContains(t, doc, "--- Page 2 ---")
	assert.Contains(t, doc, "--- Page 1 ---")
	assert.Contains(t, doc, "--- Page 3 ---")
}

func TestAssembleDocument_NoPagesYieldsEmptyString(t *testing.T) {
	assert.Equal(t, "", AssembleDocument(nil))
	assert.Equal(t, "", AssembleDocument([]PageText{{Number: 1, Text: "  "}}))
}
