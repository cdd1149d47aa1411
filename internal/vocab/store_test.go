package vocab

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aidanlsb/lang/internal/profile"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func sampleStore() *Store {
	base := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	s := New()
	_ = s.Upsert("bonjour", &Entry{
		Primary:     "Bonjour",
		Translation: "hello",
		Example:     "Bonjour, ça va ?",
		Grammar:     "Use <b>salut</b> with friends & family",
		Level:       "B1",
		AddedAt:     base,
	}, false)
	_ = s.Upsert("你好", &Entry{
		Primary:     "你好",
		Phonetic:    "nǐ hǎo",
		Translation: "hello",
		Level:       "1",
		ExternalID:  "1700000000001",
		AddedAt:     base.Add(time.Hour),
	}, false)
	_ = s.Upsert("salut", &Entry{
		Primary: "salut",
		Level:   "expr",
		AddedAt: base,
	}, false)
	return s
}

func TestSaveLoadRoundTripIsByteStable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.json")
	s := sampleStore()
	if err := s.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	first, _ := os.ReadFile(path)

	loaded, err := Load(path, discard)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := loaded.Save(path); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	second, _ := os.ReadFile(path)

	if !bytes.Equal(first, second) {
		t.Fatalf("round trip changed the document:\n%s\n---\n%s", first, second)
	}
}

func TestMarshalLayout(t *testing.T) {
	data, err := sampleStore().Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	doc := string(data)

	// Newest first, ties broken by key.
	iNihao := strings.Index(doc, `"你好"`)
	iBonjour := strings.Index(doc, `"bonjour": {`)
	iSalut := strings.Index(doc, `"salut": {`)
	if !(iNihao < iBonjour && iBonjour < iSalut) {
		t.Fatalf("unexpected order:\n%s", doc)
	}

	for _, want := range []string{
		"{\n  \"你好\": {\n    \"primary\": \"你好\",",
		`"phonetic": "nǐ hǎo"`,
		`"external_id": 1700000000001`,
		`"level": 1,`,
		`"level": "B1",`,
		`"external_id": null`,
		`<b>salut</b> with friends & family`,
		"\n  }\n}\n",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("document missing %q:\n%s", want, doc)
		}
	}
	if strings.Count(doc, `"phonetic"`) != 1 {
		t.Errorf("empty phonetic should be omitted:\n%s", doc)
	}
}

func TestEmptyStoreMarshal(t *testing.T) {
	data, _ := New().Marshal()
	if string(data) != "{}\n" {
		t.Fatalf("empty store = %q", data)
	}
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "nope.json"), discard)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("Len = %d", s.Len())
	}
}

func TestLoadMalformedIsEmptyAndBackedUp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.json")
	if err := os.WriteFile(path, []byte(`{"broken": `), 0o644); err != nil {
		t.Fatal(err)
	}
	var logs bytes.Buffer
	s, err := Load(path, slog.New(slog.NewTextHandler(&logs, nil)))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("Len = %d, want 0", s.Len())
	}
	if !strings.Contains(logs.String(), "malformed") {
		t.Fatalf("expected a warning, got %q", logs.String())
	}

	if err := s.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	backup, err := os.ReadFile(path + ".bak")
	if err != nil {
		t.Fatalf("backup not written: %v", err)
	}
	if string(backup) != `{"broken": ` {
		t.Fatalf("backup = %q", backup)
	}
}

func TestLoadLegacyScalars(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.json")
	doc := `{"a": {"primary": "a", "level": 3, "external_id": 42, "added_at": "2025-01-01T00:00:00Z"},
	         "b": {"primary": "b", "level": "C1", "external_id": "43", "added_at": "2025-01-01T00:00:00Z"},
	         "c": {"primary": "c", "level": null, "external_id": null, "added_at": "2025-01-01T00:00:00Z"}}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := Load(path, discard)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	a, _ := s.Get("a")
	b, _ := s.Get("b")
	c, _ := s.Get("c")
	if a.Level != "3" || a.ExternalID != "42" {
		t.Errorf("a = %+v", a)
	}
	if b.Level != "C1" || b.ExternalID != "43" {
		t.Errorf("b = %+v", b)
	}
	if c.Level != "" || c.Synced() {
		t.Errorf("c = %+v", c)
	}
	if n, err := a.ExternalID.Int(); err != nil || n != 42 {
		t.Errorf("Int() = %d, %v", n, err)
	}
}

func TestUpsertRejectsDuplicateUnlessForced(t *testing.T) {
	s := sampleStore()
	err := s.Upsert("bonjour", &Entry{Primary: "bonjour"}, false)
	var dup *DuplicateKeyError
	if !errors.As(err, &dup) {
		t.Fatalf("err = %v, want DuplicateKeyError", err)
	}
	if dup.Existing.Translation != "hello" {
		t.Fatalf("existing = %+v", dup.Existing)
	}
	if s.Len() != 3 {
		t.Fatalf("Len = %d", s.Len())
	}

	if err := s.Upsert("bonjour", &Entry{Primary: "bonjour", Translation: "good day"}, true); err != nil {
		t.Fatalf("forced Upsert: %v", err)
	}
	e, _ := s.Get("bonjour")
	if e.Translation != "good day" || s.Len() != 3 {
		t.Fatalf("after force: %+v, len %d", e, s.Len())
	}
}

func TestRemoveRecentUnsynced(t *testing.T) {
	s := sampleStore()

	recent := s.Recent(2)
	if len(recent) != 2 || recent[0].Key != "你好" || recent[1].Key != "bonjour" {
		t.Fatalf("Recent = %+v", recent)
	}
	if len(s.Recent(0)) != 3 {
		t.Fatal("Recent(0) should return all")
	}

	unsynced := s.Unsynced()
	if len(unsynced) != 2 || unsynced[0].Key != "bonjour" || unsynced[1].Key != "salut" {
		t.Fatalf("Unsynced = %+v", unsynced)
	}

	if key, ok := s.KeyForExternalID("1700000000001"); !ok || key != "你好" {
		t.Fatalf("KeyForExternalID = %q, %v", key, ok)
	}

	if _, ok := s.Remove("salut"); !ok {
		t.Fatal("Remove returned false")
	}
	if _, ok := s.Remove("salut"); ok {
		t.Fatal("second Remove returned true")
	}
	if strings.Join(s.Keys(), ",") != "你好,bonjour" {
		t.Fatalf("Keys = %v", s.Keys())
	}
}

func TestFromFields(t *testing.T) {
	fields := profile.Fields{
		Primary:            "Hanzi",
		Phonetic:           "Pinyin",
		Translation:        "English",
		Example:            "ExampleSentence",
		ExampleTranslation: "ExampleTranslation",
		Grammar:            "Grammar",
	}
	e := FromFields(fields, map[string]string{
		"Hanzi":           " 谢谢 ",
		"Pinyin":          "xièxie",
		"English":         "thanks",
		"ExampleSentence": "谢谢你。",
		"Unrelated":       "ignored",
	})
	if e.Primary != "谢谢" || e.Phonetic != "xièxie" || e.Translation != "thanks" || e.Example != "谢谢你。" {
		t.Fatalf("entry = %+v", e)
	}
	if e.Get(profile.RoleGrammar) != "" {
		t.Fatalf("grammar = %q", e.Grammar)
	}
}
