// Package ingest converts the loosely typed answer-sheet JSON produced by the
// extraction and generation steps into model.Sheet values. It is the only
// place that knows about the field-name variants ("text"/"Text",
// "diagram"/"Image") and the string-or-list image encoding.
package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"

	"github.com/manvip28/Eval-Me-Maybe/internal/model"
	"github.com/manvip28/Eval-Me-Maybe/internal/textnorm"
)

// ErrNotObject is returned when the top-level JSON value is not an object.
var ErrNotObject = errors.New("sheet must be a JSON object keyed by question id")

// rawEntry accepts every spelling seen in sheet files. Field names match
// case-insensitively.
type rawEntry struct {
	Text        string `mapstructure:"text"`
	Diagram     any    `mapstructure:"diagram"`
	Image       any    `mapstructure:"image"`
	Question    string `mapstructure:"question"`
	BloomLevel  string `mapstructure:"bloomlevel"`
	BloomLevel2 string `mapstructure:"bloom_level"`
	Keywords    any    `mapstructure:"keywords"`
	Marks       any    `mapstructure:"marks"`
}

// DecodeSheet reads a JSON object of question id to entry. An entry is either
// an object or a bare string holding the answer text. Ids are canonicalized
// and the file order is preserved. Malformed entries are skipped with a
// warning; the first of several entries sharing an id wins.
func DecodeSheet(r io.Reader, kind model.SheetKind) (*model.Sheet, error) {
	dec := json.NewDecoder(r)
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("read sheet: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, ErrNotObject
	}

	var entries []model.QuestionEntry
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("read sheet key: %w", err)
		}
		rawID, _ := keyTok.(string)
		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("read sheet entry %q: %w", rawID, err)
		}

		id := textnorm.CanonicalID(rawID)
		if id == "" {
			slog.Warn("skipping entry with empty id", "kind", kind, "raw_id", rawID)
			continue
		}
		e, err := decodeEntry(value)
		if err != nil {
			slog.Warn("skipping malformed entry", "kind", kind, "id", rawID, "error", err)
			continue
		}
		e.ID = id
		entries = append(entries, e)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("read sheet end: %w", err)
	}

	sheet, dups := model.NewSheet(kind, entries)
	if len(dups) > 0 {
		slog.Warn("duplicate question ids, keeping first", "kind", kind, "ids", dups)
	}
	return sheet, nil
}

func decodeEntry(value any) (model.QuestionEntry, error) {
	switch v := value.(type) {
	case nil:
		return model.QuestionEntry{}, nil
	case string:
		return model.QuestionEntry{Text: v}, nil
	case map[string]any:
		var raw rawEntry
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &raw,
		})
		if err != nil {
			return model.QuestionEntry{}, err
		}
		if err := dec.Decode(v); err != nil {
			return model.QuestionEntry{}, err
		}
		marks, err := cast.ToIntE(orZero(raw.Marks))
		if err != nil {
			return model.QuestionEntry{}, fmt.Errorf("marks: %w", err)
		}
		images := imageList(raw.Diagram)
		if len(images) == 0 {
			images = imageList(raw.Image)
		}
		bloom := raw.BloomLevel
		if bloom == "" {
			bloom = raw.BloomLevel2
		}
		return model.QuestionEntry{
			Text:       raw.Text,
			Images:     images,
			Question:   raw.Question,
			BloomLevel: model.BloomLevel(bloom),
			Keywords:   keywordList(raw.Keywords),
			Marks:      max(marks, 0),
		}, nil
	default:
		return model.QuestionEntry{}, fmt.Errorf("unsupported entry type %T", value)
	}
}

func orZero(v any) any {
	if v == nil {
		return 0
	}
	return v
}

// imageList accepts nil, a single reference or a list of references.
func imageList(v any) []string {
	var refs []string
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		refs = []string{t}
	default:
		refs = cast.ToStringSlice(t)
	}
	var out []string
	for _, r := range refs {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

// keywordList accepts a list or a comma separated string.
func keywordList(v any) []string {
	var parts []string
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		parts = strings.Split(t, ",")
	default:
		parts = cast.ToStringSlice(t)
	}
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// canonicalEntry is the schema EncodeSheet writes and the evaluator reads.
type canonicalEntry struct {
	Text       string   `json:"Text"`
	Image      any      `json:"Image"`
	Question   string   `json:"Question,omitempty"`
	BloomLevel string   `json:"BloomLevel,omitempty"`
	Keywords   []string `json:"Keywords,omitempty"`
	Marks      int      `json:"Marks,omitempty"`
}

// EncodeSheet writes s as an indented JSON object in sheet order. A single
// image is written as a string, several as a list, none as null.
func EncodeSheet(w io.Writer, s *model.Sheet) error {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if s != nil {
		for i, e := range s.Entries {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(e.ID)
			if err != nil {
				return err
			}
			var img any
			switch len(e.Images) {
			case 0:
			case 1:
				img = e.Images[0]
			default:
				img = e.Images
			}
			val, err := json.Marshal(canonicalEntry{
				Text:       e.Text,
				Image:      img,
				Question:   e.Question,
				BloomLevel: string(e.BloomLevel),
				Keywords:   e.Keywords,
				Marks:      e.Marks,
			})
			if err != nil {
				return fmt.Errorf("encode %s: %w", e.ID, err)
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(val)
		}
	}
	buf.WriteByte('}')

	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", "  "); err != nil {
		return err
	}
	out.WriteByte('\n')
	_, err := out.WriteTo(w)
	return err
}
