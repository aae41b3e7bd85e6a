package integration

import (
	"time"

	"github.com/cucumber/godog"

	"github.com/doodlesbykumbi/tenant-authz/pkg/config"
	"github.com/doodlesbykumbi/tenant-authz/pkg/identity"
	"github.com/doodlesbykumbi/tenant-authz/pkg/server/middleware"
)

const tokenTTL = 5 * time.Minute

func (s *StepsContext) registerTokenSteps(sc *godog.ScenarioContext) {
	sc.Step(`^I am signed in as "([^"]*)"$`, s.iAmSignedInAs)
	sc.Step(`^I am signed in without an email claim$`, s.iAmSignedInWithoutAnEmailClaim)
	sc.Step(`^I am signed in as a global admin$`, s.iAmSignedInAsAGlobalAdmin)
	sc.Step(`^I am not signed in$`, s.iAmNotSignedIn)
}

func (s *StepsContext) signIn(subject string, claims identity.Claims) error {
	token, err := middleware.SignToken(signingSecret, subject, claims, tokenTTL)
	if err != nil {
		return err
	}
	s.authToken = token
	return nil
}

func (s *StepsContext) iAmSignedInAs(email string) error {
	return s.signIn(email, identity.Claims{}.Add(identity.ClaimEmail, email))
}

func (s *StepsContext) iAmSignedInWithoutAnEmailClaim() error {
	return s.signIn("anonymous", identity.Claims{})
}

func (s *StepsContext) iAmSignedInAsAGlobalAdmin() error {
	claims := identity.Claims{}.
		Add(identity.ClaimEmail, "ops@example.com").
		Add(identity.ClaimRole, config.DefaultGlobalAdminRole)
	return s.signIn("ops", claims)
}

func (s *StepsContext) iAmNotSignedIn() error {
	s.authToken = ""
	return nil
}
