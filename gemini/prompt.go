package gemini

import (
	"github.com/fwojciec/wikidigest"
)

var describePrompts = map[wikidigest.ImageType]string{
	wikidigest.ImageFlowchart: `Describe this flowchart or process diagram so that someone can follow the process without seeing it.
Cover: what process it shows; every box, shape or entity; how they connect and in which direction;
roles or actors and where they act; phases or stages; every text label; relationships between components.`,

	wikidigest.ImageTable: `Extract and describe the table or matrix in this image.
Cover: its purpose; column headers left to right; row headers top to bottom; cell contents and patterns;
any legend (for example R=Responsible, S=Support); notable cells; key takeaways.
For a responsibility matrix, state for every task who is Responsible, Supports, is Consulted and is Informed.
Write the data as clear, searchable text.`,

	wikidigest.ImageScreenshot: `Describe this screenshot of an application interface.
Cover: which application or screen it is; the information displayed; every visible label and its value;
headers and sample rows of any table; visible buttons or actions; the most important information shown.`,

	wikidigest.ImageDiagram: `Describe this technical or business diagram.
Cover: the kind of diagram; its central subject; every component; how components relate; levels of any hierarchy;
all labels and annotations; the meaning of colors if any; the main message.`,

	wikidigest.ImageGeneral: `Describe this image in detail so that someone can understand it without seeing it.
Cover: what kind of image it is; its main subject; all visible text; shapes, colors and icons; any data shown;
the purpose it serves; other important details.`,
}

// DescribePrompt returns the instructions for describing an image of the
// given kind, with the surrounding page text appended when known.
func DescribePrompt(typ wikidigest.ImageType, context string) string {
	prompt, ok := describePrompts[typ]
	if !ok {
		prompt = describePrompts[wikidigest.ImageGeneral]
	}
	if context != "" {
		prompt += "\n\nAdditional context about this image:\n" + context
	}
	return prompt
}
