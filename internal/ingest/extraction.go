package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/manvip28/Eval-Me-Maybe/internal/model"
	"github.com/manvip28/Eval-Me-Maybe/internal/textnorm"
)

// Page is the output of the OCR step for one scanned page.
type Page struct {
	Text     string    `json:"text"`
	Diagrams []Diagram `json:"diagrams"`
}

// Diagram is a figure cropped from a page. Question holds the text line the
// figure was attributed to, for example "Q2. Label the parts".
type Diagram struct {
	Filename string `json:"filename"`
	Question string `json:"question"`
}

var (
	questionMarker = regexp.MustCompile(`Q\d+\.`)
	questionPrefix = regexp.MustCompile(`^\s*(Q\d+\.)`)
	spaces         = regexp.MustCompile(`\s+`)
)

// DecodePages reads OCR output: a single page object or a list of pages.
func DecodePages(r io.Reader) ([]Page, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pages: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var pages []Page
		if err := json.Unmarshal(data, &pages); err != nil {
			return nil, fmt.Errorf("decode pages: %w", err)
		}
		return pages, nil
	}
	var p Page
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode page: %w", err)
	}
	return []Page{p}, nil
}

// FromExtraction splits page text on "Q<n>." markers into one entry per
// question. A marker repeated on a later page appends to the same question.
// Diagrams attach to the question named at the start of their caption line.
// Text before the first marker on a page is dropped.
func FromExtraction(kind model.SheetKind, pages []Page) *model.Sheet {
	var order []string
	texts := make(map[string]*strings.Builder)
	images := make(map[string][]string)

	for _, p := range pages {
		locs := questionMarker.FindAllStringIndex(p.Text, -1)
		for i, loc := range locs {
			id := textnorm.CanonicalID(p.Text[loc[0]:loc[1]])
			end := len(p.Text)
			if i+1 < len(locs) {
				end = locs[i+1][0]
			}
			sb, ok := texts[id]
			if !ok {
				sb = &strings.Builder{}
				texts[id] = sb
				order = append(order, id)
			}
			sb.WriteString(p.Text[loc[1]:end])
			sb.WriteByte(' ')
		}

		for _, d := range p.Diagrams {
			m := questionPrefix.FindStringSubmatch(d.Question)
			if m == nil || d.Filename == "" {
				continue
			}
			id := textnorm.CanonicalID(m[1])
			if _, ok := texts[id]; ok {
				images[id] = append(images[id], d.Filename)
			}
		}
	}

	entries := make([]model.QuestionEntry, 0, len(order))
	for _, id := range order {
		entries = append(entries, model.QuestionEntry{
			ID:     id,
			Text:   strings.TrimSpace(spaces.ReplaceAllString(texts[id].String(), " ")),
			Images: images[id],
		})
	}
	s, _ := model.NewSheet(kind, entries)
	return s
}
