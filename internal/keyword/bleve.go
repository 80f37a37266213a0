package keyword

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/NamanLimani/guardrail-ai/internal/models"
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
)

// DefaultTitleBoost weights filename matches over content matches.
const DefaultTitleBoost = 3.0

// BleveIndex implements Index using Bleve.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve index at path.
// If you change the index mapping in code, remove the index directory to force a re-index.
func NewBleveIndex(path string) (*BleveIndex, error) {
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}
	index, err := bleve.New(path, newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// NewMemoryIndex creates an index that lives only in memory.
func NewMemoryIndex() (*BleveIndex, error) {
	index, err := bleve.NewMemOnly(newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

func newMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	// Standard analyzer: lowercase and tokenize, no stemming. Placeholders such as
	// <EMAIL> are tokenized to "email" and stay searchable.
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name
	textFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("content", textFieldMapping)

	filenameMapping := bleve.NewTextFieldMapping()
	filenameMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("filename", filenameMapping)

	docMapping.AddFieldMappingsAt("owner_id", bleve.NewKeywordFieldMapping())

	im.AddDocumentMapping("document", docMapping)
	im.DefaultType = "document"
	im.DefaultMapping = docMapping
	return im
}

// Index stores the redacted text of a completed document.
func (b *BleveIndex) Index(ctx context.Context, doc *models.Document) error {
	if doc == nil || doc.ID == "" {
		return errors.New("keyword index: document id is required")
	}
	return b.index.Index(doc.ID, entry{
		OwnerID:  doc.OwnerID,
		Filename: doc.Filename,
		Content:  doc.TextContent,
	})
}

// Search runs a match query over filename and content restricted to ownerID and
// returns up to limit hits, best first.
func (b *BleveIndex) Search(ctx context.Context, ownerID, query string, limit int, opts *SearchOptions) ([]models.LookupHit, error) {
	titleBoost := DefaultTitleBoost
	fuzziness := 0
	if opts != nil {
		if opts.TitleBoost > 0 {
			titleBoost = opts.TitleBoost
		}
		fuzziness = opts.Fuzziness
	}
	if limit <= 0 {
		limit = 10
	}

	owner := bleve.NewTermQuery(ownerID)
	owner.SetField("owner_id")
	text := bleve.NewDisjunctionQuery(
		fieldQuery(query, "filename", titleBoost, fuzziness),
		fieldQuery(query, "content", 1.0, fuzziness),
	)

	req := bleve.NewSearchRequest(bleve.NewConjunctionQuery(owner, text))
	req.Size = limit
	req.Fields = []string{"filename"}
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}

	out := make([]models.LookupHit, 0, len(results.Hits))
	for _, hit := range results.Hits {
		filename, _ := hit.Fields["filename"].(string)
		out = append(out, models.LookupHit{DocumentID: hit.ID, Filename: filename, Score: hit.Score})
	}
	return out, nil
}

// fieldQuery matches query against field. With fuzziness > 0 each term becomes a
// fuzzy query so typos still match.
func fieldQuery(query, field string, boost float64, fuzziness int) blevequery.Query {
	terms := strings.Fields(strings.ToLower(query))
	if fuzziness <= 0 || len(terms) == 0 {
		mq := bleve.NewMatchQuery(query)
		mq.SetField(field)
		mq.SetBoost(boost)
		return mq
	}

	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		fq.SetField(field)
		fq.SetBoost(boost)
		queries = append(queries, fq)
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// Delete removes a document from the index.
func (b *BleveIndex) Delete(ctx context.Context, id string) error {
	return b.index.Delete(id)
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}

// DocCount returns the total number of documents in the index.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}
