package seed

import (
	"fmt"
	"strings"

	"opcdiary/internal/models"
	"opcdiary/internal/service"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCase = cases.Title(language.English)

// Founder builds a random, not yet registered, profile.
func (s *Seeder) Founder() models.UserProfile {
	name := strings.TrimSpace(s.faker.Company())
	return models.UserProfile{
		CompanyName: name,
		Description: s.faker.BS() + " for " + strings.ToLower(s.faker.JobTitle()) + "s",
		DevTime:     fmt.Sprintf("%d months", s.faker.Number(1, 24)),
		Audience:    titleCase.String(s.faker.BuzzWord()) + " teams",
		Valuation:   fmt.Sprintf("$%dk", s.faker.Number(5, 900)),
		Avatar:      service.AvatarFallback(name),
		ProjectURL:  s.faker.URL(),
		Password:    s.opts.Password,
	}
}

// The first entries of each project always report a cost, then revenue, then
// a launch, so seeded stats move away from their defaults.
var entryTemplates = []string{
	"Started building the prototype today. Spent $%d on %s.",
	"First paying customers this week! Made $%d from %s.",
	"We launched publicly. Paid $%d for %s to celebrate.",
}

// EntryText returns the content of the i-th entry of a seeded project.
func (s *Seeder) EntryText(i int) string {
	if i < len(entryTemplates) {
		return fmt.Sprintf(entryTemplates[i], s.faker.Number(10, 2000), s.faker.BuzzWord())
	}
	return s.faker.HipsterSentence(12)
}
