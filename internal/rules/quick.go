package rules

import "fmt"

type questionSets struct {
	initial   []string
	followUps [][]string
}

var (
	initialQuestionTpls = []string{
		"What's {{.First}}'s experience?",
		"Show me {{.Poss}} portfolio",
		"{{.BeTitle}} {{.Subj}} available to hire?",
		"What makes {{.Obj}} different?",
	}
	followUpQuestionTpls = [][]string{
		{
			"Tell me about {{.Poss}} projects",
			"{{.SpecialtyTitle}} expertise?",
			"What's {{.Poss}} tech stack?",
			"How can I contact {{.Obj}}?",
		},
		{
			"Remote work availability?",
			"What's {{.Poss}} process?",
			"Show case studies",
			"Design or development?",
		},
	}
)

func renderQuestions(d replyData) (questionSets, error) {
	var qs questionSets
	for i, tpl := range initialQuestionTpls {
		q, err := render(fmt.Sprintf("question-0-%d", i), tpl, d)
		if err != nil {
			return questionSets{}, err
		}
		qs.initial = append(qs.initial, q)
	}
	for s, set := range followUpQuestionTpls {
		var rendered []string
		for i, tpl := range set {
			q, err := render(fmt.Sprintf("question-%d-%d", s+1, i), tpl, d)
			if err != nil {
				return questionSets{}, err
			}
			rendered = append(rendered, q)
		}
		qs.followUps = append(qs.followUps, rendered)
	}
	return qs, nil
}

// quickAnswers pairs every quick question with its canonical answer.
func quickAnswers(qs questionSets, r replies) map[string]string {
	a, b := qs.followUps[0], qs.followUps[1]
	return map[string]string{
		qs.initial[0]: r.experience,
		qs.initial[1]: r.portfolio,
		qs.initial[2]: r.availability,
		qs.initial[3]: r.unique,
		a[0]:          r.projects,
		a[1]:          r.specialty,
		a[2]:          r.skills,
		a[3]:          r.contact,
		b[0]:          r.location,
		b[1]:          r.process,
		b[2]:          r.caseStudy,
		b[3]:          r.both,
	}
}

// QuickQuestions returns the suggestion buttons for a conversation holding
// turns messages: the initial set before any exchange, then the follow-up
// sets in rotation.
func (t *Table) QuickQuestions(turns int) []string {
	var set []string
	if turns <= 0 {
		set = t.questions.initial
	} else {
		set = t.questions.followUps[(turns/2)%len(t.questions.followUps)]
	}
	out := make([]string, len(set))
	copy(out, set)
	return out
}

// AllQuickQuestions lists every quick question the widget can present.
func (t *Table) AllQuickQuestions() []string {
	out := append([]string{}, t.questions.initial...)
	for _, set := range t.questions.followUps {
		out = append(out, set...)
	}
	return out
}

// IsQuickQuestion reports whether text is one of the presented quick questions.
func (t *Table) IsQuickQuestion(text string) bool {
	_, ok := t.quick[normalizeQuestion(text)]
	return ok
}
