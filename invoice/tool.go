package invoice

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hupe1980/bizagent/core"
	"github.com/hupe1980/bizagent/tool"
)

// ToolName is the name the model uses to call the extractor.
const ToolName = "extract_invoice_details"

type extractArgs struct {
	ImagePath string `json:"image_path" description:"Path to the invoice image on the local file system, e.g. sample_invoice.jpg"`
}

// NewTool exposes the extractor as a tool. The tool always returns text: the
// model output or an error rendering starting with ErrorMarker. Successful
// extractions are saved as artifact "invoice-<name>.json" (image file name
// without extension) when the run has an artifact store.
func NewTool(e *Extractor) tool.Tool {
	return tool.NewTypedTool(
		ToolName,
		"Uses a vision model to extract invoice details (number, date, vendor, line items, subtotal, taxes, grand total) from an image file. Returns a structured JSON summary.",
		func(tc *core.ToolContext, args extractArgs) (any, error) {
			res := e.Extract(tc.Context(), args.ImagePath)
			if !res.OK() {
				tc.LogWarn("invoice.extract.failed", "path", args.ImagePath, "error", res.Err.Error())
				return res.String(), nil
			}

			name := ArtifactName(args.ImagePath)
			if version, err := tc.SaveArtifact(name, []byte(res.Text)); err != nil {
				tc.LogDebug("invoice.artifact.skipped", "name", name, "error", err.Error())
			} else {
				tc.LogInfo("invoice.artifact.saved", "name", name, "version", version)
			}

			if res.Invoice != nil {
				tc.SetState("last_invoice_number", res.Invoice.InvoiceNumber)
			}

			return res.String(), nil
		},
	)
}

// ArtifactName derives the artifact name for an image path.
func ArtifactName(imagePath string) string {
	base := filepath.Base(imagePath)
	return fmt.Sprintf("invoice-%s.json", strings.TrimSuffix(base, filepath.Ext(base)))
}
