package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cucumber/godog"

	"github.com/doodlesbykumbi/tenant-authz/pkg/authz"
	"github.com/doodlesbykumbi/tenant-authz/pkg/model"
	"github.com/doodlesbykumbi/tenant-authz/pkg/server/store"
	gormstore "github.com/doodlesbykumbi/tenant-authz/pkg/server/store/gorm"
	"github.com/doodlesbykumbi/tenant-authz/pkg/usergroup"
)

// StepsContext holds state shared between step definitions
type StepsContext struct {
	tc           *TestContext
	service      *usergroup.Service
	evaluator    *authz.Evaluator
	response     *http.Response
	responseBody []byte
	authToken    string
	lastErr      error
	decision     authz.Decision
	outcomes     []error
}

// NewStepsContext creates a new steps context
func NewStepsContext(tc *TestContext) *StepsContext {
	membership := gormstore.NewMembershipStore(tc.DB)
	return &StepsContext{
		tc:        tc,
		service:   usergroup.NewService(membership).WithAuditor(nil),
		evaluator: authz.NewEvaluator(membership, authz.WithAuditor(nil)),
	}
}

// RegisterSteps registers all step definitions
func (s *StepsContext) RegisterSteps(sc *godog.ScenarioContext) {
	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		return ctx, s.tc.Reset()
	})

	// Background steps
	sc.Step(`^the server is running$`, s.theServerIsRunning)
	sc.Step(`^an organization "([^"]*)" exists$`, s.anOrganizationExists)
	sc.Step(`^a user "([^"]*)" with email "([^"]*)" exists$`, s.aUserWithEmailExists)

	// Group management steps
	sc.Step(`^I create the "([^"]*)" group for user "([^"]*)" in organization "([^"]*)"$`, s.iCreateTheGroup)
	sc.Step(`^(\d+) callers create the "([^"]*)" group for user "([^"]*)" in organization "([^"]*)" at once$`, s.callersCreateTheGroupAtOnce)
	sc.Step(`^the group creation should succeed$`, s.theGroupCreationShouldSucceed)
	sc.Step(`^the group creation should fail with a not found error$`, s.theGroupCreationShouldFailWithNotFound)
	sc.Step(`^the group creation should fail with a constraint violation$`, s.theGroupCreationShouldFailWithConstraintViolation)
	sc.Step(`^exactly (\d+) of them should succeed$`, s.exactlyOfThemShouldSucceed)
	sc.Step(`^organization "([^"]*)" should have (\d+) "([^"]*)" groups? for user "([^"]*)"$`, s.organizationShouldHaveGroups)
	sc.Step(`^organization "([^"]*)" should have no groups$`, s.organizationShouldHaveNoGroups)

	// Evaluation steps
	sc.Step(`^I evaluate tenant "([^"]*)" for email "([^"]*)"$`, s.iEvaluateTenantForEmail)
	sc.Step(`^I evaluate tenant "([^"]*)" without an email claim$`, s.iEvaluateTenantWithoutEmail)
	sc.Step(`^the decision should be "(Succeed|Fail)"$`, s.theDecisionShouldBe)
	sc.Step(`^the decision reason should be "([^"]*)"$`, s.theDecisionReasonShouldBe)

	// HTTP steps
	sc.Step(`^I request the organization admin endpoint for "([^"]*)"$`, s.iRequestTheAdminEndpointFor)
	sc.Step(`^I request the organization admin endpoint without an organization$`, s.iRequestTheAdminEndpointWithoutOrganization)
	sc.Step(`^I provision the "([^"]*)" group for user "([^"]*)" in organization "([^"]*)" over HTTP$`, s.iProvisionTheGroupOverHTTP)
	sc.Step(`^the response status should be (\d+)$`, s.theResponseStatusShouldBe)
	sc.Step(`^the response body should contain "([^"]*)"$`, s.theResponseBodyShouldContain)

	s.registerTokenSteps(sc)
}

// Background steps

func (s *StepsContext) theServerIsRunning() error {
	return waitForServer(s.tc.ServerURL(), 5*time.Second)
}

func (s *StepsContext) anOrganizationExists(id string) error {
	return s.tc.DB.Create(&model.Organization{ID: id, Name: id}).Error
}

func (s *StepsContext) aUserWithEmailExists(id, email string) error {
	return s.tc.DB.Create(&model.User{ID: id, Email: email}).Error
}

// Group management steps

func (s *StepsContext) iCreateTheGroup(name, userID, organizationID string) error {
	s.lastErr = s.service.CreateUserGroup(context.Background(), userID, organizationID, name)
	return nil
}

func (s *StepsContext) callersCreateTheGroupAtOnce(n int, name, userID, organizationID string) error {
	s.outcomes = make([]error, n)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			s.outcomes[i] = s.service.CreateUserGroup(context.Background(), userID, organizationID, name)
		}(i)
	}
	close(start)
	wg.Wait()
	return nil
}

func (s *StepsContext) theGroupCreationShouldSucceed() error {
	if s.lastErr != nil {
		return fmt.Errorf("expected success, got %v", s.lastErr)
	}
	return nil
}

func (s *StepsContext) theGroupCreationShouldFailWithNotFound() error {
	if !errors.Is(s.lastErr, store.ErrNotFound) {
		return fmt.Errorf("expected a not found error, got %v", s.lastErr)
	}
	return nil
}

func (s *StepsContext) theGroupCreationShouldFailWithConstraintViolation() error {
	if !errors.Is(s.lastErr, store.ErrConstraintViolation) {
		return fmt.Errorf("expected a constraint violation, got %v", s.lastErr)
	}
	return nil
}

func (s *StepsContext) exactlyOfThemShouldSucceed(want int) error {
	succeeded := 0
	for _, err := range s.outcomes {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, store.ErrConstraintViolation):
		default:
			return fmt.Errorf("unexpected failure: %w", err)
		}
	}
	if succeeded != want {
		return fmt.Errorf("expected %d successes, got %d", want, succeeded)
	}
	return nil
}

func (s *StepsContext) organizationShouldHaveGroups(organizationID string, want int, name, userID string) error {
	var count int64
	err := s.tc.DB.Model(&model.UserGroup{}).
		Where("organization_id = ? AND user_id = ? AND name = ?", organizationID, userID, name).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count != int64(want) {
		return fmt.Errorf("expected %d matching groups, found %d", want, count)
	}
	return nil
}

func (s *StepsContext) organizationShouldHaveNoGroups(organizationID string) error {
	var count int64
	if err := s.tc.DB.Model(&model.UserGroup{}).Where("organization_id = ?", organizationID).Count(&count).Error; err != nil {
		return err
	}
	if count != 0 {
		return fmt.Errorf("expected no groups, found %d", count)
	}
	return nil
}

// Evaluation steps

func (s *StepsContext) iEvaluateTenantForEmail(tenantID, email string) error {
	s.decision = s.evaluator.Evaluate(context.Background(), tenantID, email)
	return nil
}

func (s *StepsContext) iEvaluateTenantWithoutEmail(tenantID string) error {
	s.decision = s.evaluator.Evaluate(context.Background(), tenantID, "")
	return nil
}

func (s *StepsContext) theDecisionShouldBe(want string) error {
	if got := s.decision.Result.String(); got != want {
		return fmt.Errorf("expected %s, got %s", want, s.decision)
	}
	if s.decision.Operational() {
		return fmt.Errorf("decision failed closed: %v", s.decision.Err)
	}
	return nil
}

func (s *StepsContext) theDecisionReasonShouldBe(want string) error {
	if s.decision.Reason != want {
		return fmt.Errorf("expected reason %q, got %q", want, s.decision.Reason)
	}
	return nil
}

// HTTP steps

func (s *StepsContext) doRequest(method, path string, body any, header http.Header) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, s.tc.ServerURL()+path, reader)
	if err != nil {
		return err
	}
	for k, values := range header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	if s.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.authToken)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	s.response, err = s.tc.HTTPClient.Do(req)
	if err != nil {
		return err
	}

	s.responseBody, err = io.ReadAll(s.response.Body)
	_ = s.response.Body.Close()
	return err
}

func (s *StepsContext) iRequestTheAdminEndpointFor(organizationID string) error {
	header := http.Header{}
	header.Set("OrganizationId", organizationID)
	return s.doRequest("GET", "/organization/admin", nil, header)
}

func (s *StepsContext) iRequestTheAdminEndpointWithoutOrganization() error {
	return s.doRequest("GET", "/organization/admin", nil, nil)
}

func (s *StepsContext) iProvisionTheGroupOverHTTP(name, userID, organizationID string) error {
	body := map[string]string{"user_id": userID, "name": name}
	return s.doRequest("POST", "/organizations/"+organizationID+"/groups", body, nil)
}

func (s *StepsContext) theResponseStatusShouldBe(status int) error {
	if s.response == nil {
		return fmt.Errorf("no response received")
	}
	if s.response.StatusCode != status {
		return fmt.Errorf("expected status %d, got %d: %s", status, s.response.StatusCode, string(s.responseBody))
	}
	return nil
}

func (s *StepsContext) theResponseBodyShouldContain(expected string) error {
	if !strings.Contains(string(s.responseBody), expected) {
		return fmt.Errorf("expected body to contain %q, got %q", expected, string(s.responseBody))
	}
	return nil
}
