package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/utilityops/ums-backend/internal/domain"
)

type fakeAlerter struct {
	alerts  []string
	overdue [][]string
	err     error
}

func (f *fakeAlerter) ComplaintAlert(customerID, subject string, priority string) error {
	if f.err != nil {
		return f.err
	}
	f.alerts = append(f.alerts, customerID+"/"+subject+"/"+priority)
	return nil
}

func (f *fakeAlerter) OverdueAlert(defaulters []string) error {
	if f.err != nil {
		return f.err
	}
	f.overdue = append(f.overdue, defaulters)
	return nil
}

func TestRegisterComplaintDefaults(t *testing.T) {
	svcs, _ := newTestServices(t)

	c, err := svcs.Complaints.Register(context.Background(), RegisterInput{
		CustomerID: "CUS-100001",
		Category:   "Billing",
		Subject:    "Bill too high",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Priority != domain.PriorityMedium {
		t.Errorf("priority = %v, want Medium", c.Priority)
	}
	if c.Status != domain.ComplaintOpen {
		t.Errorf("status = %v, want Open", c.Status)
	}
	if c.ID == "" {
		t.Error("complaint id not assigned")
	}
}

func TestRegisterComplaintUnknownCustomer(t *testing.T) {
	svcs, _ := newTestServices(t)
	_, err := svcs.Complaints.Register(context.Background(), RegisterInput{CustomerID: "CUS-missing", Subject: "x"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestRegisterCriticalComplaintAlerts(t *testing.T) {
	svcs, _ := newTestServices(t)
	alerts := &fakeAlerter{}
	svcs.Complaints.alerts = alerts

	if _, err := svcs.Complaints.Register(context.Background(), RegisterInput{
		CustomerID: "CUS-100001",
		Subject:    "Live wire down",
		Priority:   domain.PriorityCritical,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(alerts.alerts) != 1 || alerts.alerts[0] != "CUS-100001/Live wire down/Critical" {
		t.Errorf("alerts = %v", alerts.alerts)
	}

	// Lower priorities never alert.
	if _, err := svcs.Complaints.Register(context.Background(), RegisterInput{
		CustomerID: "CUS-100001",
		Subject:    "Meter box rusty",
		Priority:   domain.PriorityHigh,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(alerts.alerts) != 1 {
		t.Errorf("high priority alerted: %v", alerts.alerts)
	}
}

func TestRegisterComplaintAlertFailureIsSwallowed(t *testing.T) {
	svcs, _ := newTestServices(t)
	svcs.Complaints.alerts = &fakeAlerter{err: fmt.Errorf("sns unavailable")}

	c, err := svcs.Complaints.Register(context.Background(), RegisterInput{
		CustomerID: "CUS-100001",
		Subject:    "Gas leak",
		Priority:   domain.PriorityCritical,
	})
	if err != nil {
		t.Fatalf("alert failure surfaced: %v", err)
	}
	list, _ := svcs.Complaints.List(context.Background())
	if len(list) != 1 || list[0].ID != c.ID {
		t.Errorf("complaint not stored: %v", list)
	}
}

func TestLogin(t *testing.T) {
	svcs, _ := newTestServices(t)

	u, err := svcs.Auth.Login(context.Background(), "admin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Role != domain.RoleAdmin {
		t.Errorf("role = %v, want Admin", u.Role)
	}
	if u.LastLogin == nil {
		t.Error("lastLogin not stamped")
	}

	// The in-memory store answers unknown usernames with a synthesized
	// Admin profile rather than rejecting them.
	guest, err := svcs.Auth.Login(context.Background(), "intruder")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if guest.ID != 0 || guest.Role != domain.RoleAdmin {
		t.Errorf("fallback user = %+v", guest)
	}
}
