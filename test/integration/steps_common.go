package integration

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/cucumber/godog"
)

// StepsContext holds state shared between step definitions
type StepsContext struct {
	tc           *TestContext
	response     *http.Response
	responseBody []byte
}

// NewStepsContext creates a new steps context
func NewStepsContext(tc *TestContext) *StepsContext {
	return &StepsContext{tc: tc}
}

// RegisterSteps registers all step definitions
func (s *StepsContext) RegisterSteps(sc *godog.ScenarioContext) {
	sc.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		s.tc.Trigger.reset()
		return ctx, s.tc.DB.Exec(`TRUNCATE minion, package, interface, gpu CASCADE`).Error
	})

	sc.Step(`^the inventory service is running$`, s.theInventoryServiceIsRunning)

	// Ingestion steps
	sc.Step(`^minion (\d+) reports an audit at "([^"]*)" with properties:$`, s.minionReportsAnAudit)
	sc.Step(`^minion (\d+) reports an unchanged audit at "([^"]*)"$`, s.minionReportsAnUnchangedAudit)
	sc.Step(`^the master reports "([^"]*)" present at "([^"]*)"$`, s.theMasterReportsPresent)
	sc.Step(`^I post to "([^"]*)":$`, s.iPostTo)

	// Response steps
	sc.Step(`^the response status should be (\d+)$`, s.theResponseStatusShouldBe)
	sc.Step(`^the response reason should be "([^"]*)"$`, s.theResponseReasonShouldBe)

	// Inventory steps
	sc.Step(`^minion (\d+) should have packages "([^"]*)"$`, s.minionShouldHavePackages)
	sc.Step(`^minion (\d+) should have GPUs "([^"]*)"$`, s.minionShouldHaveGPUs)
	sc.Step(`^minion (\d+) should have no GPUs$`, s.minionShouldHaveNoGPUs)
	sc.Step(`^minion (\d+) should have interfaces "([^"]*)"$`, s.minionShouldHaveInterfaces)
	sc.Step(`^minion (\d+) should have addresses "([^"]*)"$`, s.minionShouldHaveAddresses)
	sc.Step(`^minion (\d+) should have a package total of (\d+)$`, s.minionShouldHavePackageTotal)
	sc.Step(`^minion (\d+) should have been audited at "([^"]*)"$`, s.minionShouldHaveBeenAuditedAt)
	sc.Step(`^minion (\d+) should have been seen at "([^"]*)"$`, s.minionShouldHaveBeenSeenAt)
	sc.Step(`^minion (\d+) should not exist$`, s.minionShouldNotExist)
	sc.Step(`^minion "([^"]*)" should be recorded under server ids "([^"]*)"$`, s.minionShouldBeRecordedUnder)
	sc.Step(`^an audit should have been triggered for "([^"]*)"$`, s.anAuditShouldHaveBeenTriggered)
	sc.Step(`^no audit should have been triggered for "([^"]*)"$`, s.noAuditShouldHaveBeenTriggered)
}

func (s *StepsContext) theInventoryServiceIsRunning() error {
	return nil
}

func (s *StepsContext) post(path string, body []byte) error {
	resp, err := s.tc.HTTPClient.Post(s.tc.ServerURL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	s.response = resp
	s.responseBody, err = io.ReadAll(resp.Body)
	return err
}

func (s *StepsContext) minionReportsAnAudit(serverID int64, ts string, doc *godog.DocString) error {
	var props map[string]interface{}
	if err := json.Unmarshal([]byte(doc.Content), &props); err != nil {
		return fmt.Errorf("invalid properties: %w", err)
	}
	props["server_id"] = serverID

	body, err := json.Marshal(map[string]interface{}{
		"timestamp":  ts,
		"changed":    true,
		"properties": props,
	})
	if err != nil {
		return err
	}
	return s.post("/audit", body)
}

func (s *StepsContext) minionReportsAnUnchangedAudit(serverID int64, ts string) error {
	body, err := json.Marshal(map[string]interface{}{
		"timestamp":  ts,
		"changed":    false,
		"properties": map[string]interface{}{"server_id": serverID},
	})
	if err != nil {
		return err
	}
	return s.post("/audit", body)
}

func (s *StepsContext) theMasterReportsPresent(minions, ts string) error {
	body, err := json.Marshal(map[string]interface{}{
		"timestamp": ts,
		"minions":   splitList(minions),
	})
	if err != nil {
		return err
	}
	if err := s.post("/present", body); err != nil {
		return err
	}
	s.tc.Tracker.Wait()
	return nil
}

func (s *StepsContext) iPostTo(path string, doc *godog.DocString) error {
	return s.post(path, []byte(doc.Content))
}

func (s *StepsContext) theResponseStatusShouldBe(code int) error {
	if s.response == nil {
		return fmt.Errorf("no response received")
	}
	if s.response.StatusCode != code {
		return fmt.Errorf("expected status %d, got %d: %s", code, s.response.StatusCode, string(s.responseBody))
	}
	return nil
}

func (s *StepsContext) theResponseReasonShouldBe(reason string) error {
	var body struct {
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(s.responseBody, &body); err != nil {
		return fmt.Errorf("response is not JSON: %s", string(s.responseBody))
	}
	if body.Reason != reason {
		return fmt.Errorf("expected reason %q, got %q: %s", reason, body.Reason, string(s.responseBody))
	}
	return nil
}

func (s *StepsContext) column(query string, args ...interface{}) ([]string, error) {
	var values []string
	if err := s.tc.DB.Raw(query, args...).Scan(&values).Error; err != nil {
		return nil, err
	}
	sort.Strings(values)
	return values, nil
}

func (s *StepsContext) expectColumn(what string, want string, query string, args ...interface{}) error {
	got, err := s.column(query, args...)
	if err != nil {
		return err
	}
	expected := splitList(want)
	sort.Strings(expected)
	if strings.Join(got, ",") != strings.Join(expected, ",") {
		return fmt.Errorf("expected %s %v, got %v", what, expected, got)
	}
	return nil
}

func (s *StepsContext) minionShouldHavePackages(serverID int64, packages string) error {
	return s.expectColumn("packages", packages, `
		SELECT p.package_name || '=' || mp.package_version
		FROM minion_package mp JOIN package p ON p.package_id = mp.package_id
		WHERE mp.server_id = ?`, serverID)
}

func (s *StepsContext) minionShouldHaveGPUs(serverID int64, gpus string) error {
	return s.expectColumn("GPUs", gpus, `
		SELECT g.gpu_vendor || ' ' || g.gpu_model
		FROM minion_gpu mg JOIN gpu g ON g.gpu_id = mg.gpu_id
		WHERE mg.server_id = ?`, serverID)
}

func (s *StepsContext) minionShouldHaveNoGPUs(serverID int64) error {
	return s.minionShouldHaveGPUs(serverID, "")
}

func (s *StepsContext) minionShouldHaveInterfaces(serverID int64, interfaces string) error {
	return s.expectColumn("interfaces", interfaces, `
		SELECT i.interface_name || '=' || mi.mac
		FROM minion_interface mi JOIN interface i ON i.interface_id = mi.interface_id
		WHERE mi.server_id = ?`, serverID)
}

func (s *StepsContext) minionShouldHaveAddresses(serverID int64, addresses string) error {
	return s.expectColumn("addresses", addresses, `
		SELECT i.interface_name || '=' || a.ip4
		FROM minion_ip4 a JOIN interface i ON i.interface_id = a.interface_id
		WHERE a.server_id = ?`, serverID)
}

func (s *StepsContext) minionShouldHavePackageTotal(serverID int64, total int64) error {
	var got int64
	if err := s.tc.DB.Raw(`SELECT package_total FROM minion WHERE server_id = ?`, serverID).Scan(&got).Error; err != nil {
		return err
	}
	if got != total {
		return fmt.Errorf("expected package_total %d, got %d", total, got)
	}
	return nil
}

func (s *StepsContext) minionTime(serverID int64, column string) (time.Time, error) {
	var t sql.NullTime
	err := s.tc.DB.Raw(`SELECT `+column+` FROM minion WHERE server_id = ?`, serverID).Row().Scan(&t)
	if err != nil {
		return time.Time{}, fmt.Errorf("minion %d: %w", serverID, err)
	}
	if !t.Valid {
		return time.Time{}, fmt.Errorf("minion %d has no %s", serverID, column)
	}
	return t.Time, nil
}

func (s *StepsContext) expectTime(serverID int64, column, want string) error {
	expected, err := time.Parse(time.RFC3339, want)
	if err != nil {
		return err
	}
	got, err := s.minionTime(serverID, column)
	if err != nil {
		return err
	}
	if !got.Equal(expected) {
		return fmt.Errorf("expected %s %s, got %s", column, expected, got.UTC())
	}
	return nil
}

func (s *StepsContext) minionShouldHaveBeenAuditedAt(serverID int64, ts string) error {
	return s.expectTime(serverID, "last_audit", ts)
}

func (s *StepsContext) minionShouldHaveBeenSeenAt(serverID int64, ts string) error {
	return s.expectTime(serverID, "last_seen", ts)
}

func (s *StepsContext) minionShouldNotExist(serverID int64) error {
	var n int64
	if err := s.tc.DB.Raw(`SELECT COUNT(*) FROM minion WHERE server_id = ?`, serverID).Scan(&n).Error; err != nil {
		return err
	}
	if n != 0 {
		return fmt.Errorf("minion %d exists", serverID)
	}
	return nil
}

func (s *StepsContext) minionShouldBeRecordedUnder(minionID, serverIDs string) error {
	return s.expectColumn("server ids of "+minionID, serverIDs,
		`SELECT CAST(server_id AS text) FROM minion WHERE id = ? ORDER BY server_id`, minionID)
}

func (s *StepsContext) anAuditShouldHaveBeenTriggered(minionID string) error {
	if n := s.tc.Trigger.count(minionID); n != 1 {
		return fmt.Errorf("expected one audit trigger for %s, got %d", minionID, n)
	}
	return nil
}

func (s *StepsContext) noAuditShouldHaveBeenTriggered(minionID string) error {
	if n := s.tc.Trigger.count(minionID); n != 0 {
		return fmt.Errorf("expected no audit trigger for %s, got %d", minionID, n)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
