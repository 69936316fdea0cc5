package main

import (
	"context"

	"github.com/hupe1980/bizagent/agent"
	"github.com/hupe1980/bizagent/internal/config"
	"github.com/hupe1980/bizagent/invoice"
	"github.com/spf13/cobra"
)

const (
	invoiceAgentName   = "invoice_agent"
	invoiceDescription = "Extracts structured invoice data from image files using Gemini."
	invoiceInstruction = `You are a helpful invoice assistant.
You can extract key invoice details from images using the 'extract_invoice_details' tool.
When a user provides an image file path (e.g., 'sample_invoice.jpg'), extract and return structured invoice data.
If the path is invalid or unreadable, return a helpful error.`
	invoiceAnswerHeader = "🧾 Final Extracted Invoice Details:"
)

var invoiceBanner = []string{
	"💬 Type a command like: 'Extract details from invoice.jpg'",
	"📂 Make sure the image exists in your working directory.\n",
}

func newInvoiceCmd(opts *AppOptions) *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "invoice",
		Short: "Extract structured invoice details from images",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInvoice(cmd.Context(), *opts, message)
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "Single message to send")

	return cmd
}

func runInvoice(ctx context.Context, opts AppOptions, message string) error {
	a, err := setup(ctx, opts, config.Default("invoice_extractor_agent"))
	if err != nil {
		return err
	}
	defer a.Close()

	ag, err := newInvoiceAgent(a)
	if err != nil {
		return err
	}

	// Every request is independent; nothing carries over between images.
	return a.chat(ctx, a.runner(ag), chatOptions{
		message:        message,
		banner:         invoiceBanner,
		answerHeader:   invoiceAnswerHeader,
		sessionPerTurn: true,
	})
}

func newInvoiceAgent(a *app) (*agent.ModelAgent, error) {
	temperature := a.cfg.Temperature

	extractor := invoice.NewExtractor(a.llm, func(o *invoice.Options) {
		o.Temperature = &temperature
		o.Logger = a.logger
	})

	return agent.NewModelAgent(invoiceAgentName, a.llm,
		agent.WithDescription(invoiceDescription),
		agent.WithInstruction(invoiceInstruction),
		agent.WithTemperature(temperature),
		agent.WithTools(invoice.NewTool(extractor)),
	)
}
