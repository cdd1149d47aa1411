package cli

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/lang/internal/config"
	"github.com/aidanlsb/lang/internal/profile"
	"github.com/aidanlsb/lang/internal/ui"
	"github.com/aidanlsb/lang/internal/vocab"
)

// importRecord is one row of an import file keyed by logical field name.
type importRecord struct {
	line   int
	values map[string]string
	level  string
}

type importSummary struct {
	Added   []string `json:"added"`
	Skipped []string `json:"skipped"`
	Invalid []string `json:"invalid"`
}

func newImportCmd(cfg *config.Config, p *profile.Profile) *cobra.Command {
	level := newLevelValue(p)

	cmd := &cobra.Command{
		Use:   "import <file.csv|file.json>",
		Short: "Add words from a CSV or JSON file without enrichment",
		Long: fmt.Sprintf(`Add words in bulk without calling the AI service.

CSV files need a header row. JSON files hold an array of objects. Columns
and keys are matched against the profile's field names (%s) or the
generic names primary, phonetic, translation, example, example_translation
and grammar. A "level" column sets the level per row; rows without one use
--level or the current level.

Words already in the vocabulary are skipped. Import is not recorded for undo.`,
			strings.Join(fieldNames(p), ", ")),
		Args: cobra.ExactArgs(1),
		RunE: withSession(cfg, p, func(s *session, cmd *cobra.Command, args []string) error {
			records, err := readImport(p, args[0])
			if err != nil {
				return handleError(err)
			}

			defaultLevel := level.value
			if defaultLevel == "" {
				defaultLevel = s.currentLevel()
			}

			st, err := s.loadStore()
			if err != nil {
				return handleError(err)
			}

			var (
				summary  importSummary
				warnings []Warning
				added    = now()
			)
			for _, rec := range records {
				e := vocab.FromFields(p.Fields, rec.values)
				key := p.NormalizeKey(e.Primary)
				if key == "" {
					summary.Invalid = append(summary.Invalid, fmt.Sprintf("line %d: missing %s", rec.line, p.Fields.Primary))
					continue
				}

				lvl := defaultLevel
				if rec.level != "" {
					parsed, err := p.ParseLevel(rec.level)
					if err != nil {
						summary.Invalid = append(summary.Invalid, fmt.Sprintf("line %d: %v", rec.line, err))
						continue
					}
					lvl = parsed
				}
				e.Level = vocab.Level(lvl)
				e.AddedAt = added

				if err := st.Upsert(key, e, false); err != nil {
					summary.Skipped = append(summary.Skipped, key)
					warnings = append(warnings, Warning{Code: WarnSkipped, Message: "already in vocabulary", Key: key})
					continue
				}
				summary.Added = append(summary.Added, key)
			}

			if len(summary.Added) > 0 {
				if err := s.saveStore(st); err != nil {
					return handleError(err)
				}
			}
			s.logger.Info("import", "file", args[0], "added", len(summary.Added), "skipped", len(summary.Skipped), "invalid", len(summary.Invalid))

			if isJSONOutput() {
				outputSuccessWithWarnings(summary, warnings, &Meta{Count: len(summary.Added)})
				return nil
			}

			fmt.Println(ui.Successf("Imported %s", ui.Count(len(summary.Added), "word", "words")))
			if n := len(summary.Skipped); n > 0 {
				fmt.Println(ui.Hint(fmt.Sprintf("  %s already in vocabulary", ui.Count(n, "word", "words"))))
			}
			for _, msg := range summary.Invalid {
				fmt.Println(ui.Warningf("skipped %s", msg))
			}
			if len(summary.Added) > 0 {
				fmt.Println(ui.Hint(fmt.Sprintf("Run `%s` to send them to Anki.", s.command("sync"))))
			}
			return nil
		}),
	}

	cmd.Flags().VarP(level, "level", "l", fmt.Sprintf("%s level for rows without one", p.Levels.Type))
	return cmd
}

func fieldNames(p *profile.Profile) []string {
	var names []string
	for _, r := range profile.Roles {
		if name := p.Fields.Name(r); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// readImport parses path by extension.
func readImport(p *profile.Profile, path string) ([]importRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, withCode(ErrFileReadError, fmt.Errorf("failed to read %s: %w", path, err))
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		records, err := parseCSV(p, data)
		if err != nil {
			return nil, withCode(ErrInvalidInput, err)
		}
		return records, nil
	case ".json":
		records, err := parseJSON(p, data)
		if err != nil {
			return nil, withCode(ErrInvalidInput, err)
		}
		return records, nil
	}
	return nil, withCode(ErrInvalidInput, fmt.Errorf("unsupported import file %s: use .csv or .json", path))
}

// columnResolver maps a header or key to a logical field name, or "level".
type columnResolver map[string]string

func newColumnResolver(p *profile.Profile) columnResolver {
	cols := columnResolver{"level": "level"}
	for _, r := range profile.Roles {
		name := p.Fields.Name(r)
		if name == "" {
			continue
		}
		cols[strings.ToLower(string(r))] = name
		cols[strings.ToLower(name)] = name
	}
	return cols
}

func (c columnResolver) resolve(column string) (string, bool) {
	name, ok := c[strings.ToLower(strings.TrimSpace(column))]
	return name, ok
}

func (c columnResolver) record(line int, columns map[string]string) importRecord {
	rec := importRecord{line: line, values: make(map[string]string)}
	for col, v := range columns {
		name, ok := c.resolve(col)
		if !ok {
			continue
		}
		if name == "level" {
			rec.level = strings.TrimSpace(v)
			continue
		}
		rec.values[name] = v
	}
	return rec
}

func parseCSV(p *profile.Profile, data []byte) ([]importRecord, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\ufeff"))))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	cols := newColumnResolver(p)
	hasPrimary := false
	for _, h := range header {
		if name, ok := cols.resolve(h); ok && name == p.Fields.Primary {
			hasPrimary = true
		}
	}
	if !hasPrimary {
		return nil, fmt.Errorf("CSV header has no %s column", p.Fields.Primary)
	}

	var records []importRecord
	for line := 2; ; line++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}
		columns := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(row) {
				columns[h] = row[i]
			}
		}
		records = append(records, cols.record(line, columns))
	}
	return records, nil
}

func parseJSON(p *profile.Profile, data []byte) ([]importRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var rows []map[string]interface{}
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("import JSON must be an array of objects: %w", err)
	}

	cols := newColumnResolver(p)
	records := make([]importRecord, 0, len(rows))
	for i, row := range rows {
		columns := make(map[string]string, len(row))
		for k, v := range row {
			switch v := v.(type) {
			case string:
				columns[k] = v
			case json.Number:
				columns[k] = v.String()
			case bool:
				columns[k] = fmt.Sprint(v)
			}
		}
		records = append(records, cols.record(i+1, columns))
	}
	return records, nil
}
