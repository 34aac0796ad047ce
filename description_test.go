package wikidigest_test

import (
	"strings"
	"testing"

	"github.com/fwojciec/wikidigest"
	"github.com/stretchr/testify/assert"
)

func TestDetectImageType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		filename string
		context  string
		want     wikidigest.ImageType
	}{
		{"raci.png", "", wikidigest.ImageTable},
		{"image1.png", "Section: Responsibility matrix", wikidigest.ImageTable},
		{"deploy-workflow.png", "", wikidigest.ImageFlowchart},
		{"Screenshot 2026-01-01.png", "", wikidigest.ImageScreenshot},
		{"architecture.svg", "", wikidigest.ImageDiagram},
		{"photo.jpg", "Team offsite", wikidigest.ImageGeneral},
		// Table keywords are checked before flowchart keywords.
		{"process-table.png", "", wikidigest.ImageTable},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, wikidigest.DetectImageType(tt.filename, tt.context))
		})
	}
}

func TestImageContext(t *testing.T) {
	t.Parallel()

	blocks := []wikidigest.ContentBlock{
		{Index: 0, Type: wikidigest.BlockText, Content: "Ignored, too far back."},
		{Index: 1, Type: wikidigest.BlockHeading, Level: 2, Content: "Escalation"},
		{Index: 2, Type: wikidigest.BlockText, Content: strings.Repeat("x", 200)},
		{Index: 3, Type: wikidigest.BlockImage, Image: &wikidigest.Image{Filename: "flow.png", AltText: "Escalation flow"}},
	}

	t.Run("joins alt text and the two preceding blocks", func(t *testing.T) {
		t.Parallel()

		got := wikidigest.ImageContext(blocks, 3)

		assert.Equal(t, "Alt text: Escalation flow | Section: Escalation | Context: "+strings.Repeat("x", 150), got)
	})

	t.Run("first block has only its alt text", func(t *testing.T) {
		t.Parallel()

		got := wikidigest.ImageContext([]wikidigest.ContentBlock{blocks[3]}, 0)

		assert.Equal(t, "Alt text: Escalation flow", got)
	})

	t.Run("out of range position is empty", func(t *testing.T) {
		t.Parallel()

		assert.Empty(t, wikidigest.ImageContext(blocks, 9))
	})
}
