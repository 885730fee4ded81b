package gophish_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/foxzi/pca/internal/gophish"
	"github.com/foxzi/pca/internal/gophish/gophishtest"
)

const testKey = "test-key"

func newTestClient(t *testing.T) (*gophish.Client, *gophishtest.Server) {
	t.Helper()
	srv := gophishtest.NewServer(testKey)
	t.Cleanup(srv.Close)

	c, err := gophish.NewClient(srv.URL, testKey, gophish.Options{})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c, srv
}

func TestNewClientBadURL(t *testing.T) {
	for _, u := range []string{"", "gophish.test", "ftp://gophish.test", "https://"} {
		if _, err := gophish.NewClient(u, testKey, gophish.Options{}); !errors.Is(err, gophish.ErrBadURL) {
			t.Errorf("NewClient(%q) error = %v, want ErrBadURL", u, err)
		}
	}
}

func TestConnect(t *testing.T) {
	c, srv := newTestClient(t)
	ctx := context.Background()

	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	bad, err := gophish.NewClient(srv.URL, "wrong", gophish.Options{})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if err := bad.Connect(ctx); !errors.Is(err, gophish.ErrBadCredentials) {
		t.Errorf("Connect() with wrong key error = %v, want ErrBadCredentials", err)
	}
}

func TestConnectUnreachable(t *testing.T) {
	srv := gophishtest.NewServer(testKey)
	url := srv.URL
	srv.Close()

	c, err := gophish.NewClient(url, testKey, gophish.Options{})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if err := c.Connect(context.Background()); !errors.Is(err, gophish.ErrUnreachable) {
		t.Errorf("Connect() error = %v, want ErrUnreachable", err)
	}
}

func TestCreateNameInUse(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	page := &gophish.Page{Name: "RV0001-1-Landing", HTML: "<html></html>"}
	created, err := c.Pages.Create(ctx, page)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.ID == 0 {
		t.Error("created page has no ID")
	}

	_, err = c.Pages.Create(ctx, page)
	if !errors.Is(err, gophish.ErrNameInUse) {
		t.Fatalf("second Create() error = %v, want ErrNameInUse", err)
	}
	var apiErr *gophish.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error %v is not an APIError", err)
	}
	if apiErr.StatusCode != http.StatusConflict {
		t.Errorf("StatusCode = %d, want 409", apiErr.StatusCode)
	}
	if apiErr.Message != "Page name already in use" {
		t.Errorf("Message = %q", apiErr.Message)
	}
}

func TestListGetDelete(t *testing.T) {
	c, srv := newTestClient(t)
	ctx := context.Background()

	id := srv.Add(gophishtest.Groups, gophish.Group{
		Name:    "RV0001-G1",
		Targets: []gophish.Target{{Email: "jane.smith@domain.tld", FirstName: "Jane", LastName: "Smith", Position: "IT"}},
	})
	srv.Add(gophishtest.Groups, gophish.Group{Name: "RV00012-G1"})

	groups, err := c.Groups.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("List() returned %d groups, want 2", len(groups))
	}

	g, err := c.Groups.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if g.Name != "RV0001-G1" || len(g.Targets) != 1 || g.Targets[0].Position != "IT" {
		t.Errorf("Get() = %+v", g)
	}

	byName, err := c.Groups.ByName(ctx, "RV0001-G1")
	if err != nil || len(byName) != 1 {
		t.Fatalf("ByName() = %v, %v", byName, err)
	}

	if err := c.Groups.Delete(ctx, id); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := c.Groups.Get(ctx, id); !errors.Is(err, gophish.ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
	if names := srv.Names(gophishtest.Groups); len(names) != 1 || names[0] != "RV00012-G1" {
		t.Errorf("remaining groups = %v", names)
	}
}

func TestServerErrorAborts(t *testing.T) {
	c, srv := newTestClient(t)
	srv.Fail(http.MethodGet, gophishtest.Templates, http.StatusInternalServerError, "database locked")

	_, err := c.Templates.List(context.Background())
	var apiErr *gophish.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("List() error = %v, want APIError", err)
	}
	if apiErr.Message != "database locked" {
		t.Errorf("Message = %q", apiErr.Message)
	}
	if errors.Is(err, gophish.ErrNameInUse) || errors.Is(err, gophish.ErrBadCredentials) {
		t.Error("server error matched a recoverable sentinel")
	}
}

func TestCompleteAndSummary(t *testing.T) {
	c, srv := newTestClient(t)
	ctx := context.Background()

	id := srv.Add(gophishtest.Campaigns, gophish.Campaign{
		Name:       "RV0001-C1",
		Status:     "In progress",
		LaunchDate: "2025-01-01T13:00:00-05:00",
		Timeline: []gophish.Event{
			{Email: "a@domain.tld", Message: gophish.EventEmailSent},
			{Email: "b@domain.tld", Message: gophish.EventEmailSent},
			{Email: "a@domain.tld", Message: gophish.EventClicked},
		},
	})

	msg, err := c.CompleteCampaign(ctx, id)
	if err != nil {
		t.Fatalf("CompleteCampaign() error = %v", err)
	}
	if msg == "" {
		t.Error("CompleteCampaign() returned an empty message")
	}

	sum, err := c.CampaignSummary(ctx, id)
	if err != nil {
		t.Fatalf("CampaignSummary() error = %v", err)
	}
	if sum.Status != "Completed" {
		t.Errorf("Status = %q, want Completed", sum.Status)
	}
	if sum.Stats.Total != 2 || sum.Stats.Sent != 2 || sum.Stats.Clicked != 1 {
		t.Errorf("Stats = %+v", sum.Stats)
	}

	if _, err := c.CompleteCampaign(ctx, 999); !errors.Is(err, gophish.ErrNotFound) {
		t.Errorf("CompleteCampaign(999) error = %v, want ErrNotFound", err)
	}
}

func TestEventDetails(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"encoded string", `{"message":"Clicked Link","details":"{\"browser\":{\"address\":\"10.0.0.1\",\"user-agent\":\"Mozilla/5.0\"}}"}`},
		{"object", `{"message":"Clicked Link","details":{"browser":{"address":"10.0.0.1","user-agent":"Mozilla/5.0"}}}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var ev gophish.Event
			if err := json.Unmarshal([]byte(tc.data), &ev); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if ev.Details.Browser.Address != "10.0.0.1" || ev.Details.Browser.UserAgent != "Mozilla/5.0" {
				t.Errorf("Details = %+v", ev.Details)
			}
		})
	}

	var ev gophish.Event
	if err := json.Unmarshal([]byte(`{"message":"Email Sent","details":""}`), &ev); err != nil {
		t.Errorf("empty details error = %v", err)
	}
}
