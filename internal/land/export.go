package land

import (
	"context"
	"fmt"

	"github.com/landcrawl/landcrawl/internal/domain"
	"github.com/landcrawl/landcrawl/internal/store"
)

const exportPageSize = 200

// ExportType enumerates the file-exporter variants the CLI surface names.
// The core never formats any of these itself: it only guarantees that the
// fields an exporter needs (title, readable, relevance, links, media) are
// populated by the time Export is called.
type ExportType string

const (
	ExportPageCSV     ExportType = "pagecsv"
	ExportFullPageCSV ExportType = "fullpagecsv"
	ExportNodeCSV     ExportType = "nodecsv"
	ExportPageGEXF    ExportType = "pagegexf"
	ExportNodeGEXF    ExportType = "nodegexf"
	ExportMediaCSV    ExportType = "mediacsv"
	ExportCorpus      ExportType = "corpus"
	ExportMatrix      ExportType = "matrix"
	ExportContent     ExportType = "content"
)

// Exporter is the external collaborator that turns a selected slice of a
// Land's Expressions into a file on disk. The engine ships no
// implementation of it; Export below is only the selection and delegation
// point.
type Exporter interface {
	Export(ctx context.Context, l domain.Land, exportType ExportType, expressions []domain.Expression, destPath string) error
}

// Export selects land's Expressions at or above minRelevance and hands them
// to exporter. The Orchestrator's only responsibility is the selection
// query; formatting the output file belongs entirely to exporter.
func (o *Orchestrator) Export(ctx context.Context, exporter Exporter, l domain.Land, exportType ExportType, minRelevance int, destPath string) error {
	if exporter == nil {
		return fmt.Errorf("export: no exporter configured")
	}

	var selected []domain.Expression

	offset := 0

	for {
		batch, err := o.store.ListExpressions(ctx, store.ExpressionFilter{
			LandID: l.ID,
			Limit:  exportPageSize,
			Offset: offset,
		})
		if err != nil {
			return fmt.Errorf("export: list expressions: %w", err)
		}

		if len(batch) == 0 {
			break
		}

		for _, e := range batch {
			if e.Relevance >= minRelevance {
				selected = append(selected, e)
			}
		}

		offset += len(batch)
	}

	return exporter.Export(ctx, l, exportType, selected, destPath)
}
