// Package invoice extracts structured invoice fields from images with a
// vision-capable model and exposes the extraction as the
// extract_invoice_details tool.
//
// Extraction never fails with a Go error. Every outcome is a Result that
// carries either the model text (plus a best-effort parsed Invoice) or the
// error that stopped it; Result.String renders the text the tool returns to
// the model.
package invoice
