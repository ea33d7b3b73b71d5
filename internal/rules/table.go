package rules

import (
	"regexp"
	"strings"
)

// buildRules declares the rule list. Order is precedence: compound rules
// before categories so multi-topic phrasings resolve to the specific
// answer, categories before off-topic so an on-topic question that mentions
// the weather still gets an on-topic reply.
func buildRules(r replies, d replyData) []Rule {
	first := regexp.QuoteMeta(strings.ToLower(d.First))
	obj := regexp.QuoteMeta(d.Obj)
	specialty := strings.ToLower(d.Specialty)

	greeting := []Rule{
		{Name: "greeting", Stage: StageGreeting, Kind: KindRegex, Reply: r.greeting,
			test: matchRegex(`\b(hi+|hiya|he+y+a*|hay|hello+|helo+|hlo|howdy|greetings|good (morning|afternoon|evening))\b`)},
	}

	compound := []Rule{
		{Name: "case-studies", Kind: KindAllKeywords, Reply: r.caseStudy,
			test: allKeywords("case stud")},
		{Name: "portfolio", Kind: KindAllKeywords, Reply: r.portfolio,
			test: allKeywords("portfolio")},
		{Name: "experience-question", Kind: KindAnyKeywordCombination, Reply: r.experience,
			test: keywordCombination([]string{"experien"}, strings.ToLower(d.First), d.Poss, "what")},
		{Name: "available-to-hire", Kind: KindAllKeywords, Reply: r.availability,
			test: allKeywords("available", "hire")},
		{Name: "what-makes-different", Kind: KindAnyKeywordCombination, Reply: r.unique,
			test: keywordCombination([]string{"different"}, "makes", "what")},
		{Name: "tell-about-projects", Kind: KindAnyKeywordCombination, Reply: r.projects,
			test: keywordCombination([]string{"project"}, "tell", "about")},
		{Name: "specialty-expertise", Kind: KindAnyKeywordCombination, Reply: r.specialty,
			test: keywordCombination([]string{specialty}, "expertise", "expert")},
		{Name: "tech-stack", Kind: KindAllKeywords, Reply: r.skills,
			test: allKeywords("tech", "stack")},
		{Name: "how-to-contact", Kind: KindAnyKeywordCombination, Reply: r.contact,
			test: keywordCombination([]string{"contact"}, "how", "can")},
		{Name: "remote-work", Kind: KindAnyKeywordCombination, Reply: r.location,
			test: keywordCombination([]string{"remote"}, "work", "avail")},
		{Name: "what-process", Kind: KindAnyKeywordCombination, Reply: r.process,
			test: keywordCombination([]string{"process"}, "what", d.Poss)},
		{Name: "design-or-development", Kind: KindAllKeywords, Reply: r.both,
			test: allKeywords("design", "dev")},
	}

	specialtyPattern := `health|medic|hospital|patient|clinical|hipaa`
	if specialty != "" && !strings.Contains(specialtyPattern, specialty) {
		specialtyPattern += "|" + regexp.QuoteMeta(specialty)
	}
	categories := []struct {
		name, pattern, reply string
	}{
		{"experience", `backgroun|experi|histor|career|carrer|carier|\d+.*year`, r.experience},
		{"skills", `skil|tech|technolog|abilit|capabilit|what.*can.*do|what.*know|tool|design.*code`, r.skills},
		{"availability", `availab|avalabl|hire|hiring|open.*work|looking.*job|need.*job|start.*soon|can.*start`, r.availability},
		{"contact", `contac|email|reach|connect|get.*touch|talk.*(` + obj + `|` + first + `)|messag`, r.contact},
		{"healthcare", specialtyPattern, r.specialty},
		{"projects", `project|work|portfolio|built|created|made|example`, r.projects},
		{"education", `educat|degree|universit|colleg|school|stud`, r.education},
		{"location", `remot|location|where|based|offic|work.*from`, r.location},
		{"compensation", `salary|\bpay|\brates?\b|\bcost|price|charge|compen`, r.compensation},
		{"freelance", `freelanc|contract|part.*time|project.*based|consult`, r.freelance},
		{"uniqueness", `why.*hire|hire.*` + first + `|unique|why.*choose|different`, r.unique},
		{"process", `process|workflow|how.*work|methodology`, r.process},
		{"case-studies", `case.*stud|show.*case`, r.caseStudy},
		{"design-or-development", `design.*or.*dev|dev.*or.*design|design.*development|which.*one`, r.both},
	}

	out := append([]Rule{}, greeting...)
	for _, c := range compound {
		c.Stage = StageCompound
		out = append(out, c)
	}
	for _, c := range categories {
		out = append(out, Rule{Name: c.name, Stage: StageCategory, Kind: KindRegex, Reply: c.reply, test: matchRegex(c.pattern)})
	}
	out = append(out,
		Rule{Name: "off-topic", Stage: StageOffTopic, Kind: KindRegex, Reply: r.offTopic,
			test: matchRegex(`weather|temperature|\brain|\bsnow|sport|\bgames?\b|football|cricket|\bnews\b|politic|president|election`)},
		Rule{Name: "jokes", Stage: StageOffTopic, Kind: KindRegex, Reply: r.joke,
			test: matchRegex(`joke|funny|laugh|\bfun\b|entertain`)},
		Rule{Name: "vague", Stage: StageVague, Kind: KindRegex, Reply: r.vague,
			test: matchRegex(`tell.*me|\binfo|about.*(` + obj + `|` + first + `)|what|who|anything`)},
		Rule{Name: "gratitude", Stage: StageGratitude, Kind: KindRegex, Reply: r.thanks,
			test: matchRegex(`thank|thx|appreciate|grateful`)},
	)
	return out
}
