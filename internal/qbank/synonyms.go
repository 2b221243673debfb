package qbank

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Field is a canonical question column.
type Field string

const (
	FieldID      Field = "id"
	FieldExam    Field = "exam"
	FieldSubject Field = "subject"
	FieldLabel   Field = "label"
	FieldText    Field = "text"
	FieldOptionA Field = "option_a"
	FieldOptionB Field = "option_b"
	FieldOptionC Field = "option_c"
	FieldOptionD Field = "option_d"
	FieldCorrect Field = "correct"
	FieldSource  Field = "source"
)

// CanonicalFields lists every canonical column in export order.
var CanonicalFields = []Field{
	FieldID, FieldExam, FieldSubject, FieldLabel, FieldText,
	FieldOptionA, FieldOptionB, FieldOptionC, FieldOptionD,
	FieldCorrect, FieldSource,
}

// fieldSynonyms is the fixed table of historical column spellings seen in
// question spreadsheets. Keys are folded with foldHeader before lookup;
// a canonical field name is always a synonym of itself.
var fieldSynonyms = map[Field][]string{
	FieldID:      {"id", "codigo", "question_id"},
	FieldExam:    {"exam", "prova", "concurso"},
	FieldSubject: {"subject", "materia", "Matéria", "Materia", "disciplina", "discipline"},
	FieldLabel:   {"label", "questao", "Questão", "numero", "question_label"},
	FieldText:    {"text", "enunciado", "pergunta", "statement"},
	FieldOptionA: {"option_a", "alternativaA", "alternativa_a", "alternativa a", "opcao_a"},
	FieldOptionB: {"option_b", "alternativaB", "alternativa_b", "alternativa b", "opcao_b"},
	FieldOptionC: {"option_c", "alternativaC", "alternativa_c", "alternativa c", "opcao_c"},
	FieldOptionD: {"option_d", "alternativaD", "alternativa_d", "alternativa d", "opcao_d"},
	FieldCorrect: {"correct", "gabarito", "Gabarito", "resposta", "resposta_correta"},
	FieldSource:  {"source", "fonte", "Fonte_documento", "fonte_documento", "origem"},
}

var headerIndex = buildHeaderIndex()

func buildHeaderIndex() map[string]Field {
	idx := make(map[string]Field)
	for f, names := range fieldSynonyms {
		idx[foldHeader(string(f))] = f
		for _, n := range names {
			idx[foldHeader(n)] = f
		}
	}
	return idx
}

var accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldHeader lowercases, strips accents and drops separators so that
// "Alternativa_A", "alternativaA" and "alternativa a" compare equal.
func foldHeader(s string) string {
	folded, _, err := transform.String(accentStripper, s)
	if err != nil {
		folded = s
	}
	var b strings.Builder
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CanonicalField maps a column header to its canonical field.
func CanonicalField(header string) (Field, bool) {
	f, ok := headerIndex[foldHeader(header)]
	return f, ok
}

// Coalesce returns the first non-blank value among the synonym columns of
// f in rec, in synonym table order. rec is keyed by raw header.
func Coalesce(rec map[string]string, f Field) string {
	folded := make(map[string]string, len(rec))
	for header, v := range rec {
		k := foldHeader(header)
		if strings.TrimSpace(folded[k]) == "" {
			folded[k] = v
		}
	}

	names := append([]string{string(f)}, fieldSynonyms[f]...)
	for _, n := range names {
		if v := strings.TrimSpace(folded[foldHeader(n)]); v != "" {
			return v
		}
	}
	return ""
}

// NormalizeFacet trims a facet value and collapses inner whitespace.
func NormalizeFacet(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
