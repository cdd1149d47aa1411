package profile

// CardTemplate is one card layout within a note type.
type CardTemplate struct {
	Name  string
	Front string
	Back  string
}

// NoteType is everything needed to create or refresh a flashcard template.
type NoteType struct {
	Name      string
	Fields    []string
	Templates []CardTemplate
	CSS       string
}

// noteTypes is keyed by profile id. Languages without an entry are set up by hand.
var noteTypes = map[string]func(name string) NoteType{
	"cn": chineseNoteType,
	"fr": frenchNoteType,
}

// NoteTypeFor returns the bootstrap note type for the profile, named after its
// configured model. ok is false when no automatic setup exists for the language.
func NoteTypeFor(p *Profile) (NoteType, bool) {
	build, ok := noteTypes[p.ID]
	if !ok {
		return NoteType{}, false
	}
	return build(p.Anki.ModelName), true
}

func chineseNoteType(name string) NoteType {
	return NoteType{
		Name:   name,
		Fields: []string{"Hanzi", "Pinyin", "English", "ExampleSentence", "ExampleTranslation", "Lesson"},
		Templates: []CardTemplate{{
			Name: "Recognition (EN -> CN)",
			Front: `<div class="prompt">{{English}}</div>
{{#ExampleTranslation}}<div class="prompt-example">{{ExampleTranslation}}</div>{{/ExampleTranslation}}`,
			Back: `{{FrontSide}}
<hr id=answer>
<div class="hanzi">{{Hanzi}}</div>
<div class="pinyin">{{Pinyin}}</div>
{{#ExampleSentence}}<div class="example">{{ExampleSentence}}</div>{{/ExampleSentence}}
{{#Lesson}}<div class="lesson">{{Lesson}}</div>{{/Lesson}}`,
		}},
		CSS: `.card {
  font-family: "PingFang SC", "Noto Sans CJK SC", sans-serif;
  font-size: 20px;
  text-align: center;
  color: #222;
  background-color: #fafafa;
}
.prompt { font-size: 26px; }
.prompt-example { margin-top: 12px; font-size: 16px; color: #666; font-style: italic; }
.hanzi { font-size: 48px; margin-top: 16px; }
.pinyin { font-size: 22px; color: #3b6ea5; }
.example { margin-top: 20px; padding-top: 12px; border-top: 1px solid #ddd; font-size: 22px; }
.lesson { display: inline-block; margin-top: 16px; padding: 2px 8px; border-radius: 8px; font-size: 12px; background-color: #eee; color: #666; }
.nightMode .card { background-color: #2b2f33; color: #eee; }
.nightMode .example { border-top-color: #555; }
.nightMode .lesson { background-color: #555; color: #ccc; }
`,
	}
}

func frenchNoteType(name string) NoteType {
	return NoteType{
		Name:   name,
		Fields: []string{"Expression", "English", "Register", "Usage", "Example", "Notes"},
		Templates: []CardTemplate{{
			Name:  "Recognition (EN -> FR)",
			Front: `{{English}}`,
			Back: `{{FrontSide}}
<hr id=answer>
<div class="expression">{{Expression}}</div>
{{#Register}}<div class="register">{{Register}}</div>{{/Register}}
{{#Usage}}<div class="usage">{{Usage}}</div>{{/Usage}}
{{#Example}}<div class="example">{{Example}}</div>{{/Example}}
{{#Notes}}<div class="notes">{{Notes}}</div>{{/Notes}}`,
		}},
		CSS: `.card {
  font-family: arial;
  font-size: 20px;
  text-align: center;
  color: black;
  background-color: white;
}
.expression { font-size: 30px; font-weight: bold; }
.register { font-size: 16px; color: grey; }
.usage, .example { margin-top: 12px; font-style: italic; }
.notes { margin-top: 12px; font-size: 14px; }
`,
	}
}
