// Package dataset writes and reads the raw article datasets: a CSV with a
// fixed column order and a JSON Lines twin. Files are written to a temporary
// name and renamed into place so readers never see a partial dataset.
package dataset

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/turabik33/CE48-Final/internal/domain"
)

// Columns is the fixed CSV header of a raw dataset.
var Columns = []string{
	"id", "title", "published_at", "source_name", "source_type", "url",
	"full_text", "author", "section", "language", "retrieved_at",
}

// ScholarColumns extend Columns for scholar datasets.
var ScholarColumns = []string{"cited_by", "publication_info"}

// ClassifiedColumns is the header of the accepted-articles export.
var ClassifiedColumns = []string{
	"id", "title", "published_at", "source_name", "source_type",
	"category", "civil_engineering_area", "ai_technique",
	"application_stage", "keywords", "summary",
}

// Writer stores datasets under one directory as <name>.csv and <name>.jsonl.
type Writer struct {
	dir string
}

// NewWriter targets dir; it is created on first write.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Write stores both encodings of articles. A dataset containing scholar
// records gets the extra scholar columns.
func (w *Writer) Write(ctx context.Context, name string, articles []domain.Article) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	csvData, err := encodeCSV(articles)
	if err != nil {
		return fmt.Errorf("dataset: encode csv: %w", err)
	}
	jsonlData, err := encodeJSONL(articles)
	if err != nil {
		return fmt.Errorf("dataset: encode jsonl: %w", err)
	}

	if err := writeFileAtomic(w.Path(name, "csv"), csvData); err != nil {
		return err
	}
	return writeFileAtomic(w.Path(name, "jsonl"), jsonlData)
}

// Path returns the location of one encoding of a named dataset.
func (w *Writer) Path(name, ext string) string {
	return filepath.Join(w.dir, name+"."+ext)
}

func hasScholar(articles []domain.Article) bool {
	for _, a := range articles {
		if a.SourceType == domain.SourceScholar {
			return true
		}
	}
	return false
}

func encodeCSV(articles []domain.Article) ([]byte, error) {
	header := Columns
	scholar := hasScholar(articles)
	if scholar {
		header = append(append([]string{}, Columns...), ScholarColumns...)
	}

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write(header); err != nil {
		return nil, err
	}
	for _, a := range articles {
		row := []string{
			a.ID, a.Title, a.PublishedAt, a.SourceName, string(a.SourceType), a.URL,
			a.FullText, a.Author, a.Section, a.Language, a.RetrievedAt,
		}
		if scholar {
			row = append(row, strconv.Itoa(a.CitedBy), a.PublicationInfo)
		}
		if err := cw.Write(row); err != nil {
			return nil, err
		}
	}
	cw.Flush()
	return buf.Bytes(), cw.Error()
}

// encodeJSONL relies on the json tags of domain.Article to drop internal fields.
func encodeJSONL(articles []domain.Article) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for _, a := range articles {
		if err := enc.Encode(a); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// WriteClassified exports accepted articles with keywords as a JSON array.
func WriteClassified(path string, articles []domain.ClassifiedArticle) error {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write(ClassifiedColumns); err != nil {
		return err
	}
	for _, ca := range articles {
		keywords := ca.Classification.Keywords
		if keywords == nil {
			keywords = []string{}
		}
		kw, err := json.Marshal(keywords)
		if err != nil {
			return fmt.Errorf("dataset: keywords for %s: %w", ca.Article.ID, err)
		}
		a, c := ca.Article, ca.Classification
		row := []string{
			a.ID, a.Title, a.PublishedAt, a.SourceName, string(a.SourceType),
			c.Category, c.CivilEngineeringArea, c.AITechnique,
			c.ApplicationStage, string(kw), c.Summary,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return writeFileAtomic(path, buf.Bytes())
}

// ReadCSV loads a raw dataset by header name, so column order and the
// optional scholar columns do not matter.
func ReadCSV(path string) ([]domain.Article, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open %s: %w", path, err)
	}
	defer f.Close()
	return readCSV(bufio.NewReader(f))
}

func readCSV(r io.Reader) ([]domain.Article, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dataset: read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[h] = i
	}
	if _, ok := index["id"]; !ok {
		return nil, fmt.Errorf("dataset: header has no id column")
	}

	var articles []domain.Article
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("dataset: read row %d: %w", len(articles)+1, err)
		}
		field := func(name string) string {
			if i, ok := index[name]; ok && i < len(rec) {
				return rec[i]
			}
			return ""
		}
		a := domain.Article{
			ID:              field("id"),
			Title:           field("title"),
			PublishedAt:     field("published_at"),
			SourceName:      field("source_name"),
			SourceType:      domain.SourceType(field("source_type")),
			URL:             field("url"),
			FullText:        field("full_text"),
			Author:          field("author"),
			Section:         field("section"),
			Language:        field("language"),
			RetrievedAt:     field("retrieved_at"),
			PublicationInfo: field("publication_info"),
		}
		if n, err := strconv.Atoi(field("cited_by")); err == nil {
			a.CitedBy = n
		}
		articles = append(articles, a)
	}
	return articles, nil
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("dataset: mkdir %s: %w", filepath.Dir(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("dataset: write tmp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("dataset: rename: %w", err)
	}
	return nil
}
