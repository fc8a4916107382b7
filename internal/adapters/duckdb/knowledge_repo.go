package duckdb

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/manthysbr/vita/internal/core/domain"
	"github.com/manthysbr/vita/internal/core/ports"
)

const minTermLen = 3

// IngestDocs upserts documents into the knowledge base. Documents without an
// ID get one assigned.
func (r *Repository) IngestDocs(ctx context.Context, docs []domain.KnowledgeDoc) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	for _, doc := range docs {
		if doc.ID == "" {
			doc.ID = uuid.NewString()
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO knowledge_docs (id, collection, title, content, source, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				collection = excluded.collection,
				title      = excluded.title,
				content    = excluded.content,
				source     = excluded.source`,
			doc.ID, doc.Collection, doc.Title, doc.Content, doc.Source, now,
		)
		if err != nil {
			return 0, fmt.Errorf("ingest doc %q: %w", doc.Title, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(docs), nil
}

// SearchDocs returns up to limit documents of collection ranked by keyword hits.
// Title hits weigh double. Terms shorter than three characters are ignored.
func (r *Repository) SearchDocs(ctx context.Context, collection string, query string, limit int) ([]domain.KnowledgeDoc, error) {
	terms := searchTerms(query)
	if len(terms) == 0 || limit <= 0 {
		return []domain.KnowledgeDoc{}, nil
	}

	clauses := make([]string, 0, len(terms))
	args := []any{collection}
	for _, term := range terms {
		clauses = append(clauses, "lower(title || ' ' || content) LIKE ?")
		args = append(args, "%"+term+"%")
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, collection, title, content, COALESCE(source, '')
		FROM knowledge_docs
		WHERE collection = ? AND (`+strings.Join(clauses, " OR ")+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("search docs: %w", err)
	}
	defer rows.Close()

	type scored struct {
		doc   domain.KnowledgeDoc
		score int
	}
	var hits []scored
	for rows.Next() {
		var d domain.KnowledgeDoc
		if err := rows.Scan(&d.ID, &d.Collection, &d.Title, &d.Content, &d.Source); err != nil {
			return nil, err
		}
		hits = append(hits, scored{doc: d, score: scoreDoc(d, terms)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].doc.Title < hits[j].doc.Title
	})

	out := make([]domain.KnowledgeDoc, 0, min(limit, len(hits)))
	for i := 0; i < len(hits) && i < limit; i++ {
		out = append(out, hits[i].doc)
	}
	return out, nil
}

func searchTerms(query string) []string {
	seen := make(map[string]bool)
	var terms []string
	for _, f := range strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !(r == '-' || r == '\'' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r > 127)
	}) {
		if len(f) < minTermLen || seen[f] {
			continue
		}
		seen[f] = true
		terms = append(terms, f)
	}
	return terms
}

func scoreDoc(d domain.KnowledgeDoc, terms []string) int {
	title := strings.ToLower(d.Title)
	content := strings.ToLower(d.Content)
	score := 0
	for _, t := range terms {
		score += 2*strings.Count(title, t) + strings.Count(content, t)
	}
	return score
}

// KnowledgeBase exposes the knowledge_docs collections as retrievers.
type KnowledgeBase struct {
	repo *Repository
	topK atomic.Int64
}

// NewKnowledgeBase creates a knowledge base returning up to topK passages per lookup.
func NewKnowledgeBase(repo *Repository, topK int) *KnowledgeBase {
	kb := &KnowledgeBase{repo: repo}
	kb.SetTopK(topK)
	return kb
}

// SetTopK changes how many passages a lookup returns. Values below 1 mean 1.
func (kb *KnowledgeBase) SetTopK(n int) {
	if n < 1 {
		n = 1
	}
	kb.topK.Store(int64(n))
}

// Collection returns a retriever bound to one collection.
func (kb *KnowledgeBase) Collection(name string) ports.Retriever {
	return collectionRetriever{kb: kb, collection: name}
}

// Ingest stores docs under collection.
func (kb *KnowledgeBase) Ingest(ctx context.Context, collection string, docs []domain.KnowledgeDoc) (int, error) {
	for i := range docs {
		docs[i].Collection = collection
	}
	return kb.repo.IngestDocs(ctx, docs)
}

// IngestJSONL reads one {"title", "content", "source"} object per line.
// Blank lines are skipped; a malformed line aborts with its line number.
func (kb *KnowledgeBase) IngestJSONL(ctx context.Context, collection string, r io.Reader) (int, error) {
	var docs []domain.KnowledgeDoc
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var doc domain.KnowledgeDoc
		if err := json.Unmarshal([]byte(text), &doc); err != nil {
			return 0, fmt.Errorf("line %d: %w", line, err)
		}
		if strings.TrimSpace(doc.Title) == "" || strings.TrimSpace(doc.Content) == "" {
			return 0, fmt.Errorf("line %d: title and content are required", line)
		}
		docs = append(docs, doc)
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("read: %w", err)
	}
	if len(docs) == 0 {
		return 0, nil
	}
	return kb.Ingest(ctx, collection, docs)
}

type collectionRetriever struct {
	kb         *KnowledgeBase
	collection string
}

// Lookup returns the top passages as "[title]\ncontent" blocks separated by a
// blank line, or "" when nothing matches.
func (c collectionRetriever) Lookup(ctx context.Context, query string) (string, error) {
	docs, err := c.kb.repo.SearchDocs(ctx, c.collection, query, int(c.kb.topK.Load()))
	if err != nil {
		return "", err
	}
	blocks := make([]string, 0, len(docs))
	for _, d := range docs {
		blocks = append(blocks, fmt.Sprintf("[%s]\n%s", d.Title, d.Content))
	}
	return strings.Join(blocks, "\n\n"), nil
}
