package invoice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"os"
	"path/filepath"
	"time"

	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WebP decoder

	"github.com/hupe1980/bizagent/core"
	"github.com/hupe1980/bizagent/logging"
	"github.com/hupe1980/bizagent/model"
)

// DefaultPrompt asks the model for the invoice fields as JSON.
const DefaultPrompt = `
You are an intelligent invoice parser.
Please extract the following fields from the provided invoice image:
- Invoice Number
- Invoice Date
- Vendor Name
- Line Items (Item, Quantity, Unit Price, Total Price)
- Subtotal
- Taxes (if any)
- Grand Total

Respond in structured JSON format.
`

// ErrorMarker prefixes every failed Result rendering.
const ErrorMarker = "❌ Error processing image:"

var (
	// ErrEmptyPath is reported when no image path was supplied.
	ErrEmptyPath = errors.New("image path is empty")

	// ErrNoText is reported when the model answered without any text.
	ErrNoText = errors.New("model returned no text")
)

// Result is the outcome of one extraction: model text on success, Err
// otherwise. Invoice is set when the text parsed as an invoice JSON object.
type Result struct {
	Path    string
	Text    string
	Invoice *Invoice
	Err     error
}

// OK reports whether the extraction succeeded.
func (r Result) OK() bool { return r.Err == nil }

// String returns the model text or the error rendering.
func (r Result) String() string {
	if r.Err != nil {
		return fmt.Sprintf("%s %v", ErrorMarker, r.Err)
	}
	return r.Text
}

// Options configures an Extractor.
type Options struct {
	Prompt      string
	Temperature *float64
	Logger      logging.Logger
}

// Extractor sends an invoice image plus the extraction prompt to a model.
type Extractor struct {
	llm         model.Model
	prompt      string
	temperature *float64
	logger      logging.Logger
}

// NewExtractor creates an Extractor backed by a vision-capable model.
func NewExtractor(llm model.Model, optFns ...func(o *Options)) *Extractor {
	opts := Options{
		Prompt: DefaultPrompt,
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Extractor{
		llm:         llm,
		prompt:      opts.Prompt,
		temperature: opts.Temperature,
		logger:      opts.Logger,
	}
}

// Extract reads the image at path and asks the model for the invoice fields.
func (e *Extractor) Extract(ctx context.Context, path string) Result {
	res := Result{Path: path}

	file, err := loadImage(path)
	if err != nil {
		res.Err = err
		e.logger.Warn("invoice.image.invalid", "path", path, "error", err.Error())
		return res
	}

	req := model.Request{
		Contents: []core.Content{{
			Role:  core.RoleUser,
			Parts: []core.Part{core.TextPart{Text: e.prompt}, file},
		}},
		Temperature: e.temperature,
	}

	start := time.Now()
	resp, err := model.Collect(ctx, e.llm, req)
	logging.LogModelCall(e.logger, e.llm.Info().Name, time.Since(start), err)

	if err != nil {
		res.Err = err
		return res
	}

	res.Text = resp.Content.Text()
	if res.Text == "" {
		res.Err = ErrNoText
		return res
	}

	if inv, err := ParseInvoice(res.Text); err == nil {
		res.Invoice = inv
	} else {
		e.logger.Debug("invoice.parse.skipped", "path", path, "error", err.Error())
	}

	return res
}

// loadImage reads the file and verifies it decodes as a supported image.
func loadImage(path string) (core.FilePart, error) {
	if path == "" {
		return core.FilePart{}, ErrEmptyPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return core.FilePart{}, err
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return core.FilePart{}, fmt.Errorf("cannot identify image file %q: %w", path, err)
	}

	return core.FilePart{
		Name:     filepath.Base(path),
		MIMEType: "image/" + format,
		Data:     data,
	}, nil
}
