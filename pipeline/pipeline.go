// Package pipeline runs the full document flow: parse, complete, merge,
// split, validate, rebuild. The Processor is constructed explicitly by the
// caller and carries no global state.
package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/openbilling/invoiceflow/batch"
	"github.com/openbilling/invoiceflow/internal/logger"
	"github.com/openbilling/invoiceflow/invoice"
	"github.com/openbilling/invoiceflow/kdubl"
	"github.com/openbilling/invoiceflow/rules"
)

// Options controls how a batch is processed.
type Options struct {
	// Merge enables merging invoices that share a supplier/customer pair
	// before the split phase.
	Merge bool
	// Split enables splitting each invoice by tax category.
	Split bool
	// Workers bounds the completion fan-out. Zero means one worker per
	// document.
	Workers int
}

// Result is the outcome for one output document. A document that failed
// validation still carries its full final state so the caller can inspect
// what the rules produced.
type Result struct {
	InvoiceID     string           `json:"invoice_id"`
	InvoiceNumber string           `json:"invoice_number"`
	Success       bool             `json:"success"`
	Errors        []string         `json:"errors,omitempty"`
	Log           []rules.LogEntry `json:"log,omitempty"`
	Invoice       *invoice.Invoice `json:"invoice"`
	KDUBL         string           `json:"kdubl,omitempty"`
}

// BatchResult is the outcome of one ProcessBatch call. Results holds one
// entry per output document, which after merge and split need not match the
// input count.
type BatchResult struct {
	BatchID string   `json:"batch_id"`
	Results []Result `json:"results"`
}

// Processor wires the phases together.
type Processor struct {
	completion *rules.CompletionEngine
	validation *rules.ValidationEngine
}

func NewProcessor(completion *rules.CompletionEngine, validation *rules.ValidationEngine) *Processor {
	return &Processor{completion: completion, validation: validation}
}

// ProcessBatch runs the pipeline over a batch of KDUBL documents.
// Completion runs concurrently per document and joins before the merge
// phase, so merge always sees fully completed documents. A document that
// fails to parse aborts the whole batch; rule failures never do.
func (p *Processor) ProcessBatch(ctx context.Context, docs []string, opts Options) (*BatchResult, error) {
	batchID := uuid.NewString()
	logger.Info("processing batch", "batch_id", batchID, "documents", len(docs),
		"merge", opts.Merge, "split", opts.Split)

	invoices := make([]*invoice.Invoice, len(docs))
	for i, doc := range docs {
		inv, err := kdubl.Parse([]byte(doc))
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		invoices[i] = inv
	}

	logs := p.completeAll(ctx, invoices, opts.Workers)

	// Completion logs are keyed by source invoice number so they survive the
	// reshaping below. Merge and split derive output numbers by suffixing the
	// source number, so a prefix match recovers the source log.
	logByNumber := make(map[string][]rules.LogEntry, len(invoices))
	for i, inv := range invoices {
		logByNumber[inv.InvoiceNumber] = logs[i]
	}

	outputs := invoices
	if opts.Merge {
		outputs = batch.Merge(outputs)
	}
	if opts.Split {
		outputs = batch.SplitAll(outputs)
	}

	results := make([]Result, 0, len(outputs))
	for _, inv := range outputs {
		results = append(results, p.finish(ctx, inv, sourceLog(logByNumber, inv.InvoiceNumber)))
	}

	return &BatchResult{BatchID: batchID, Results: results}, nil
}

// ProcessOne runs a single document through the pipeline without the merge
// phase.
func (p *Processor) ProcessOne(ctx context.Context, doc string, split bool) (*BatchResult, error) {
	return p.ProcessBatch(ctx, []string{doc}, Options{Split: split})
}

func (p *Processor) completeAll(ctx context.Context, invoices []*invoice.Invoice, workers int) [][]rules.LogEntry {
	logs := make([][]rules.LogEntry, len(invoices))
	if workers <= 0 || workers > len(invoices) {
		workers = len(invoices)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				entries, err := p.completion.Complete(ctx, invoices[i])
				if err != nil {
					logger.Error("completion failed", "invoice", invoices[i].InvoiceNumber, "error", err)
				}
				logs[i] = entries
			}
		}()
	}
	for i := range invoices {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return logs
}

func sourceLog(byNumber map[string][]rules.LogEntry, number string) []rules.LogEntry {
	if log, ok := byNumber[number]; ok {
		return log
	}
	// Several source numbers can prefix one output number (INV-1 and
	// INV-1-A both prefix INV-1-A-M); the longest one is the real source.
	var best string
	var bestLog []rules.LogEntry
	for src, log := range byNumber {
		if len(number) > len(src) && number[:len(src)] == src && number[len(src)] == '-' && len(src) > len(best) {
			best, bestLog = src, log
		}
	}
	return bestLog
}

func (p *Processor) finish(ctx context.Context, inv *invoice.Invoice, completionLog []rules.LogEntry) Result {
	// The completion log is shared between every output derived from the
	// same source, so each result gets its own copy before validation
	// entries are appended.
	res := Result{
		InvoiceID:     uuid.NewString(),
		InvoiceNumber: inv.InvoiceNumber,
		Invoice:       inv,
		Log:           append([]rules.LogEntry(nil), completionLog...),
	}

	ok, errs, vlog := p.validation.Validate(ctx, inv)
	res.Success = ok
	res.Errors = errs
	res.Log = append(res.Log, vlog...)

	out, err := kdubl.Build(inv)
	if err != nil {
		res.Success = false
		res.Errors = append(res.Errors, fmt.Sprintf("output: %v", err))
		return res
	}
	res.KDUBL = out
	return res
}
