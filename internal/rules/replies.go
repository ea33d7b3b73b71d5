package rules

import (
	"fmt"
	"strings"
	"text/template"
	"unicode"
	"unicode/utf8"

	"github.com/pkg/errors"

	"career-twin/internal/knowledge"
)

type replyData struct {
	Name            string
	First           string
	Title           string
	Field           string
	Years           string
	Background      string
	Employer        string
	Specialty       string
	SpecialtyTitle  string
	SpecialtyDetail string
	Highlights      string
	Education       string
	Location        string
	Email           string
	LinkedIn        string
	Portfolio       string
	DesignTool      string
	DevTool         string
	Subj            string
	SubjTitle       string
	Obj             string
	Poss            string
	BeTitle         string
}

func newReplyData(kb *knowledge.KnowledgeBase) replyData {
	pi, p := kb.PersonalInfo, kb.Profile
	pr := kb.Pronouns()
	years := "Years"
	if p.YearsExperience > 0 {
		years = fmt.Sprintf("%d+ years", p.YearsExperience)
	}
	return replyData{
		Name:            pi.Name,
		First:           kb.FirstName(),
		Title:           pi.Title,
		Field:           p.Field,
		Years:           years,
		Background:      p.Background,
		Employer:        p.CurrentEmployer,
		Specialty:       strings.ToLower(p.Specialty),
		SpecialtyTitle:  capitalize(p.Specialty),
		SpecialtyDetail: p.SpecialtyDetail,
		Highlights:      p.Highlights,
		Education:       p.Education,
		Location:        pi.Location,
		Email:           pi.Email,
		LinkedIn:        pi.LinkedIn,
		Portfolio:       pi.Portfolio,
		DesignTool:      p.DesignTool,
		DevTool:         p.DevTool,
		Subj:            pr.Subject,
		SubjTitle:       capitalize(pr.Subject),
		Obj:             pr.Object,
		Poss:            pr.Possessive,
		BeTitle:         capitalize(pr.Be),
	}
}

type replies struct {
	short, greeting, fallback                           string
	experience, skills, availability, contact           string
	specialty, projects, education, location            string
	compensation, freelance, unique, process, caseStudy string
	both, portfolio, offTopic, joke, vague, thanks      string
}

func renderReplies(d replyData) (replies, error) {
	var r replies
	targets := []struct {
		dst *string
		tpl string
	}{
		{&r.short, "I didn't quite catch that! 😅 Ask me about {{.First}}'s experience, skills, projects, or how to get in touch!"},
		{&r.greeting, "Hey there! 👋 I'm {{.First}}'s digital assistant. I can tell you all about {{.Poss}} work, skills, and recent projects. What would you like to know?"},
		{&r.fallback, "Ask about experience, skills, projects, or how to contact! 🤔"},
		{&r.experience, "{{.Years}} in {{.Field}}! {{with .Background}}{{.}}, now{{else}}Now{{end}} specializes in {{.Specialty}} apps{{with .Employer}} at {{.}}{{end}}. 🏥"},
		{&r.skills, "Design + Code combo! {{.DesignTool}} for design, {{.DevTool}} for building, plus {{.Specialty}} UX expertise. Pretty versatile! 💪"},
		{&r.availability, "Yes! Actively looking - remote, hybrid, on-site, or freelance. Flexible and ready to chat! 🚀"},
		{&r.contact, "📧 {{.Email}} | 💼 {{.LinkedIn}} | 🌐 {{.Portfolio}}"},
		{&r.specialty, "{{.SpecialtyTitle}} UX specialist! {{.SpecialtyDetail}} 🏥"},
		{&r.projects, "{{.Highlights}}. See full case studies: {{.Portfolio}}"},
		{&r.education, "{{with .Education}}{{.}}. But learned way more by doing{{else}}Learned mostly by doing{{end}} - constantly upskilling! 📚"},
		{&r.location, "Based in {{.Location}}. Fully set up for remote work - experienced with distributed teams! 💻"},
		{&r.compensation, "Prefers to discuss compensation based on role and responsibilities. Open to chat during interviews!"},
		{&r.freelance, "Yes! Available for freelance/contract work. Interested in {{.Field}}, {{.Specialty}} apps, and front-end dev. 🚀"},
		{&r.unique, "Design + Code + {{.SpecialtyTitle}} UX expertise! {{.Years}} of experience, sees projects through from concept to code. Collaborative and detail-oriented! 🚀"},
		{&r.process, "Research → Design ({{.DesignTool}}) → Prototype → Build ({{.DevTool}}) → Test → Iterate. User-centered approach with {{.Specialty}} compliance in mind! 🔄"},
		{&r.caseStudy, "See detailed case studies on {{.Poss}} portfolio: {{.Portfolio}} - {{.Highlights}}, and more! 📊"},
		{&r.both, "Both! {{.First}} designs in {{.DesignTool}} AND codes in {{.DevTool}}. Full-stack {{.Field}} - from concept to production. Best of both worlds! 🎨💻"},
		{&r.portfolio, "See {{.Poss}} work: {{.Portfolio}} - {{.Highlights}}! 🎨"},
		{&r.offTopic, "I'm focused on {{.First}}'s professional stuff! 😊 But I can tell you about {{.Poss}} work in {{.Field}} and {{.Specialty}} apps. What would you like to know about {{.Poss}} career?"},
		{&r.joke, "Haha, I'd love to! But I'm better at talking about {{.First}}'s work! Ask me about {{.Poss}} projects, skills, or what makes {{.Obj}} unique - those stories are pretty cool too! 😄"},
		{&r.vague, "{{.Title}}, {{.Years}}, {{.Specialty}} specialist. Ask about experience, skills, or projects! 😊"},
		{&r.thanks, "You're welcome! 😊 Any other questions?"},
	}
	for i, t := range targets {
		out, err := render(fmt.Sprintf("reply-%d", i), t.tpl, d)
		if err != nil {
			return replies{}, err
		}
		*t.dst = out
	}
	return r, nil
}

func render(name, tpl string, d replyData) (string, error) {
	t, err := template.New(name).Option("missingkey=error").Parse(tpl)
	if err != nil {
		return "", errors.Wrapf(err, "parse template %s", name)
	}
	var b strings.Builder
	if err := t.Execute(&b, d); err != nil {
		return "", errors.Wrapf(err, "render template %s", name)
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", errors.Errorf("template %s rendered empty", name)
	}
	return out, nil
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
