package cli

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/aidanlsb/lang/internal/config"
	"github.com/aidanlsb/lang/internal/enrich"
	"github.com/aidanlsb/lang/internal/undo"
)

func TestNewThenSyncBonjour(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun("fr", "new", "bonjour", "-l", "A1")
	if !strings.Contains(out, "Added 'bonjour'") {
		t.Fatalf("unexpected output:\n%s", out)
	}

	st := env.store("fr")
	e, ok := st.Get("bonjour")
	if st.Len() != 1 || !ok {
		t.Fatalf("store keys = %v", st.Keys())
	}
	if e.Synced() || e.Translation != "hello" || e.Level != "A1" {
		t.Fatalf("entry = %+v", e)
	}

	out = env.mustRun("fr", "sync")
	if !strings.Contains(out, "Synced 'bonjour'") || !strings.Contains(out, "Added: 1") {
		t.Fatalf("unexpected sync output:\n%s", out)
	}

	e, _ = env.store("fr").Get("bonjour")
	if !e.Synced() {
		t.Fatal("entry should be synced")
	}
	id, err := e.ExternalID.Int()
	if err != nil {
		t.Fatalf("external id: %v", err)
	}
	note, ok := env.anki.Note(id)
	if !ok || note.Deck != "French" || note.Fields["Expression"] != "bonjour" {
		t.Fatalf("note = %+v, ok=%v", note, ok)
	}

	out = env.mustRun("fr", "sync")
	if !strings.Contains(out, "already synced") {
		t.Fatalf("second sync should be a no-op:\n%s", out)
	}
	if env.anki.NoteCount() != 1 {
		t.Fatalf("notes = %d, want 1", env.anki.NoteCount())
	}
}

func TestNewDuplicateDifferentCase(t *testing.T) {
	env := newTestEnv(t)

	reply := map[string]string{"Expression": "Bonjour", "English": "hello"}
	env.ai.SetReply(reply)
	env.mustRun("fr", "new", "Bonjour")

	reply["Expression"] = "bonjour"
	env.ai.SetReply(reply)
	out := env.mustRun("fr", "new", "bonjour")
	if !strings.Contains(out, "already exists") || !strings.Contains(out, "--force") {
		t.Fatalf("expected duplicate report:\n%s", out)
	}

	st := env.store("fr")
	if st.Len() != 1 {
		t.Fatalf("store keys = %v", st.Keys())
	}
	if e, _ := st.Get("bonjour"); e.Primary != "Bonjour" {
		t.Fatalf("existing entry was replaced: %+v", e)
	}
}

func TestNewForceReplaces(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("fr", "new", "bonjour")

	env.ai.SetReply(map[string]string{"Expression": "bonjour", "English": "good morning"})
	out := env.mustRun("fr", "new", "bonjour", "--force")
	if !strings.Contains(out, "Replacing existing entry") {
		t.Fatalf("expected replace warning:\n%s", out)
	}
	if e, _ := env.store("fr").Get("bonjour"); e.Translation != "good morning" {
		t.Fatalf("entry = %+v", e)
	}
}

func TestUndoAfterForceRestoresSyncedEntry(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("fr", "new", "bonjour")
	env.mustRun("fr", "sync")
	original, _ := env.store("fr").Get("bonjour")
	if !original.Synced() {
		t.Fatal("entry should be synced before the forced replacement")
	}

	env.ai.SetReply(map[string]string{"Expression": "bonjour", "English": "good morning"})
	env.mustRun("fr", "new", "bonjour", "--force")

	out := env.mustRun("fr", "undo")
	if !strings.Contains(out, "previous entry is back") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	st := env.store("fr")
	e, ok := st.Get("bonjour")
	if st.Len() != 1 || !ok {
		t.Fatalf("store keys = %v", st.Keys())
	}
	if e.ExternalID != original.ExternalID || e.Translation != "hello" || !e.AddedAt.Equal(original.AddedAt) {
		t.Fatalf("entry = %+v, want %+v", e, original)
	}
}

func TestDuplicateKeepsUndoSlotForLastAddition(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("fr", "new", "bonjour")
	env.ai.SetReply(map[string]string{"Expression": "merci", "English": "thanks"})
	env.mustRun("fr", "new", "merci")

	env.ai.SetReply(bonjourReply)
	env.mustRun("fr", "new", "bonjour")

	out := env.mustRun("fr", "undo")
	if !strings.Contains(out, "Undid the addition of 'merci'") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if _, ok := env.store("fr").Get("bonjour"); !ok {
		t.Fatal("rejected duplicate must not make undo remove the stored entry")
	}
}

func TestNewContextIsStoredVerbatim(t *testing.T) {
	env := newTestEnv(t)
	context := "  J'suis crevé, j'vais m'coucher  "
	env.mustRun("fr", "new", "crevé", "-c", context)

	e, ok := env.store("fr").Get("bonjour")
	if !ok {
		t.Fatalf("store keys = %v", env.store("fr").Keys())
	}
	if e.Example != context {
		t.Fatalf("example = %q, want %q", e.Example, context)
	}
	if !strings.Contains(env.ai.Prompts()[0], context) {
		t.Fatalf("prompt should carry the untouched context:\n%s", env.ai.Prompts()[0])
	}
}

func TestNewPassesContextAndGrammarToPrompt(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("fr", "new", "bonjour", "-c", "Bonjour à tous.", "-g", "greeting")

	prompts := env.ai.Prompts()
	if len(prompts) != 1 {
		t.Fatalf("prompts = %d", len(prompts))
	}
	if !strings.Contains(prompts[0], "Bonjour à tous.") || !strings.Contains(prompts[0], "greeting") {
		t.Fatalf("prompt missing context or grammar note:\n%s", prompts[0])
	}
}

func TestNewMissingCredential(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.AI.APIKey = ""

	_, err := env.run("fr", "new", "bonjour")
	if !errors.Is(err, enrich.ErrMissingCredential) {
		t.Fatalf("err = %v, want ErrMissingCredential", err)
	}

	out, err := env.run("fr", "new", "bonjour", "--json")
	if !IsReported(err) {
		t.Fatalf("JSON error should be marked reported, got %v", err)
	}
	resp := decodeResponse(t, out, nil)
	if resp.OK || resp.Error == nil || resp.Error.Code != ErrMissingCredential {
		t.Fatalf("response = %+v", resp)
	}
	if env.store("fr").Len() != 0 {
		t.Fatal("store should be untouched")
	}
}

func TestUndoRemovesLastNew(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("fr", "new", "bonjour")

	env.ai.SetReply(map[string]string{"Expression": "merci", "English": "thanks"})
	before := env.store("fr").Keys()
	env.mustRun("fr", "new", "merci")

	out := env.mustRun("fr", "undo")
	if !strings.Contains(out, "Undid the addition of 'merci'") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	after := env.store("fr").Keys()
	sort.Strings(before)
	sort.Strings(after)
	if strings.Join(before, ",") != strings.Join(after, ",") {
		t.Fatalf("keys after undo = %v, want %v", after, before)
	}

	out, err := env.run("fr", "undo")
	if err != nil {
		t.Fatalf("second undo should exit cleanly: %v", err)
	}
	if !strings.Contains(out, "No 'new' action to undo") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestUndoStaleKeyClearsSlot(t *testing.T) {
	env := newTestEnv(t)
	log := undo.New(undo.Path(env.cfg.LanguageDir("fr"), "fr"))
	if err := log.Record(undo.Action{Type: undo.ActionNew, Key: "ghost"}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	out := env.mustRun("fr", "undo")
	if !strings.Contains(out, "Could not find 'ghost'") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if _, err := log.Load(); !errors.Is(err, undo.ErrNothingToUndo) {
		t.Fatalf("slot should be cleared, Load err = %v", err)
	}
}

func TestLevelIsPersistedAndUsedByNew(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun("cn", "level", "3")
	if !strings.Contains(out, "HSK") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	state, err := config.LoadState(env.cfg.StatePath("cn"))
	if err != nil || state.CurrentLevel != "3" {
		t.Fatalf("state = %+v, err = %v", state, err)
	}

	env.ai.SetReply(map[string]string{"Hanzi": "你好", "Pinyin": "nǐ hǎo", "English": "hello"})
	env.mustRun("chinese", "new", "hello")
	e, ok := env.store("cn").Get("你好")
	if !ok || e.Level != "3" || e.Phonetic != "nǐ hǎo" {
		t.Fatalf("entry = %+v, ok=%v", e, ok)
	}

	if _, err := env.run("cn", "level", "7"); err == nil {
		t.Fatal("expected an invalid level error")
	}
}

func TestImportCSVSkipsExistingKeys(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("fr", "new", "bonjour")

	path := filepath.Join(t.TempDir(), "words.csv")
	csv := "Expression,English,level\nBonjour,hello,\nmerci,thanks,A2\nà demain,see you tomorrow,Z9\n,empty,\n"
	if err := os.WriteFile(path, []byte(csv), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	out := env.mustRun("fr", "import", path, "--json")
	var summary importSummary
	resp := decodeResponse(t, out, &summary)
	if !resp.OK {
		t.Fatalf("response = %+v", resp)
	}
	if len(summary.Added) != 1 || summary.Added[0] != "merci" {
		t.Fatalf("added = %v", summary.Added)
	}
	if len(summary.Skipped) != 1 || summary.Skipped[0] != "bonjour" {
		t.Fatalf("skipped = %v", summary.Skipped)
	}
	if len(summary.Invalid) != 2 {
		t.Fatalf("invalid = %v", summary.Invalid)
	}

	st := env.store("fr")
	if e, ok := st.Get("merci"); !ok || e.Level != "A2" || e.Synced() {
		t.Fatalf("merci = %+v", e)
	}

	// import never touches the undo slot: undo still removes the earlier new.
	out = env.mustRun("fr", "undo")
	if !strings.Contains(out, "'bonjour'") {
		t.Fatalf("unexpected undo output:\n%s", out)
	}
}

func TestImportJSONUsesGenericNames(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(t.TempDir(), "words.json")
	data := `[{"primary": "chat", "translation": "cat", "level": "a1"}]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write json: %v", err)
	}

	env.mustRun("fr", "import", path)
	e, ok := env.store("fr").Get("chat")
	if !ok || e.Translation != "cat" || e.Level != "A1" {
		t.Fatalf("entry = %+v, ok=%v", e, ok)
	}
}

func TestSyncPartialFailure(t *testing.T) {
	env := newTestEnv(t)
	for _, w := range []string{"un", "deux", "trois"} {
		env.ai.SetReply(map[string]string{"Expression": w, "English": w})
		env.mustRun("fr", "new", w)
	}
	env.anki.FailAddNote("Expression", "deux", "cannot create note")

	out := env.mustRun("fr", "sync")
	if !strings.Contains(out, "Failed to sync 'deux'") || !strings.Contains(out, "Failed: 1") {
		t.Fatalf("unexpected output:\n%s", out)
	}

	st := env.store("fr")
	for key, want := range map[string]bool{"un": true, "deux": false, "trois": true} {
		e, _ := st.Get(key)
		if e.Synced() != want {
			t.Errorf("%s synced = %v, want %v", key, e.Synced(), want)
		}
	}

	out = env.mustRun("fr", "history")
	if !strings.Contains(out, "Failures in latest run") || !strings.Contains(out, "deux") {
		t.Fatalf("history should show the failure:\n%s", out)
	}
}

func TestSyncAnkiUnreachable(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("fr", "new", "bonjour")
	env.anki.SetDown(true)

	if _, err := env.run("fr", "sync"); err == nil {
		t.Fatal("expected an error when Anki is down")
	}
	if e, _ := env.store("fr").Get("bonjour"); e.Synced() {
		t.Fatal("entry must stay unsynced")
	}
}

func TestSetupAnkiCreatesModel(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun("fr", "setup-anki")
	if !strings.Contains(out, "Created 'French (CLI)' model") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if !env.anki.HasModel("French (CLI)") {
		t.Fatal("model not created")
	}

	out = env.mustRun("fr", "setup-anki")
	if !strings.Contains(out, "already exists") {
		t.Fatalf("second run should update:\n%s", out)
	}
}

func TestVocabAndShow(t *testing.T) {
	env := newTestEnv(t)
	out := env.mustRun("french", "vocab")
	if !strings.Contains(out, "No vocabulary found") {
		t.Fatalf("unexpected output:\n%s", out)
	}

	env.mustRun("fr", "new", "bonjour")
	out = env.mustRun("fr", "vocab", "-n", "3")
	if !strings.Contains(out, "bonjour") || !strings.Contains(out, "hello") {
		t.Fatalf("unexpected output:\n%s", out)
	}

	out = env.mustRun("fr", "show", "BONJOUR")
	if !strings.Contains(out, "bonjour") || !strings.Contains(out, "not synced") {
		t.Fatalf("unexpected output:\n%s", out)
	}

	out = env.mustRun("fr", "show", "merci")
	if !strings.Contains(out, "not in your vocabulary") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestProfilesListsBuiltins(t *testing.T) {
	env := newTestEnv(t)
	out := env.mustRun("profiles", "--json")

	var infos []profileInfo
	decodeResponse(t, out, &infos)
	var ids []string
	for _, p := range infos {
		ids = append(ids, p.ID)
	}
	if strings.Join(ids, ",") != "cn,fr" {
		t.Fatalf("ids = %v", ids)
	}
}

func TestEarlyFlags(t *testing.T) {
	path, asJSON, first := earlyFlags([]string{"--config", "/tmp/c.toml", "fr", "new", "x", "-l", "A1", "--json"})
	if path != "/tmp/c.toml" || !asJSON || first != "fr" {
		t.Fatalf("earlyFlags = %q %v %q", path, asJSON, first)
	}
	if _, _, first := earlyFlags([]string{"version"}); !rootOnly(first) {
		t.Fatal("version should run without config")
	}
	if rootOnly("fr") {
		t.Fatal("profile commands need config")
	}
}
