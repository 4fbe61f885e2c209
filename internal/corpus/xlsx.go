package corpus

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"golang.org/x/text/language"
)

// FromXLSX converts an analyst keyword spreadsheet into the corpus file
// shape. Expected columns: language code, term. The header row is skipped
// when its first cell does not parse as a BCP 47 language tag.
func FromXLSX(path string) (*File, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "corpus: open xlsx %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("corpus: xlsx %s has no sheets", path)
	}

	out := &File{
		KeywordsByLanguage: make(map[string][]string),
		Version:            "xlsx-import",
	}

	for i, row := range f.Sheets[0].Rows {
		if len(row.Cells) < 2 {
			continue
		}
		lang := strings.ToLower(strings.TrimSpace(row.Cells[0].String()))
		term := strings.TrimSpace(row.Cells[1].String())
		if lang == "" || term == "" {
			continue
		}
		if _, err := language.Parse(lang); err != nil {
			if i == 0 {
				continue // header row
			}
			return nil, eris.Errorf("corpus: xlsx row %d: invalid language code %q", i+1, lang)
		}
		out.KeywordsByLanguage[lang] = append(out.KeywordsByLanguage[lang], term)
		out.TotalKeywords++
	}
	out.TotalLanguages = len(out.KeywordsByLanguage)

	if out.TotalKeywords == 0 {
		return nil, eris.Errorf("corpus: xlsx %s yielded no keywords", path)
	}
	return out, nil
}

// WriteFile serializes a corpus file to disk as indented JSON.
func WriteFile(f *File, path string) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return eris.Wrap(err, "corpus: marshal keyword file")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "corpus: write %s", path)
	}
	return nil
}
