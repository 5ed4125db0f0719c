package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/sjkp/locker/internal/ingest"
	"github.com/sjkp/locker/pkg/links"
	"github.com/sjkp/locker/pkg/secrets"
)

type countingStore struct {
	inner *secrets.MemoryStore
	gets  int
}

func (c *countingStore) Get(ctx context.Context, name string) (secrets.Record, error) {
	c.gets++
	return c.inner.Get(ctx, name)
}

type countingNotifier struct{ calls int }

func (c *countingNotifier) Notify(ctx context.Context, recipient string, artifact links.Artifact) error {
	c.calls++
	return nil
}

func newServer(t *testing.T, store secrets.Store, withIngest *countingNotifier) *Server {
	t.Helper()
	resolver, err := secrets.NewResolver(store)
	if err != nil {
		t.Fatalf("resolver: %v", err)
	}
	deps := Dependencies{Resolver: resolver}
	if withIngest != nil {
		builder, err := links.NewBuilder("https://retrieve.example.com/retrieve")
		if err != nil {
			t.Fatalf("builder: %v", err)
		}
		handler, err := ingest.New(ingest.Dependencies{
			Resolver: resolver,
			Links:    builder,
			Notifier: withIngest,
		})
		if err != nil {
			t.Fatalf("handler: %v", err)
		}
		deps.Ingest = handler
	}
	srv, err := New(deps)
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	return srv
}

func postForm(router http.Handler, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/retrievepost", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRetrieveFormServesStaticPage(t *testing.T) {
	srv := newServer(t, secrets.NewMemoryStore(), nil)
	router := srv.Router()

	req := httptest.NewRequest(http.MethodGet, "/retrieve", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/html" {
		t.Fatalf("unexpected content type %q", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `name="secretName"`) {
		t.Fatalf("form missing secretName field:\n%s", body)
	}
	if !strings.Contains(body, `action="/retrievepost"`) {
		t.Fatalf("form missing action:\n%s", body)
	}
}

func TestRetrieveSubmitReturnsStoredValue(t *testing.T) {
	store := secrets.NewMemoryStore()
	store.Put(context.Background(), secrets.Record{Name: "db-password", Value: "s3cr3t-<value>"})
	srv := newServer(t, store, nil)

	rec := postForm(srv.Router(), url.Values{"secretName": {"db-password"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	// Value is rendered verbatim, markup included.
	if !strings.Contains(rec.Body.String(), "s3cr3t-<value>") {
		t.Fatalf("body missing exact stored value:\n%s", rec.Body.String())
	}
}

func TestRetrieveSubmitMissingNameSkipsStore(t *testing.T) {
	store := &countingStore{inner: secrets.NewMemoryStore()}
	srv := newServer(t, store, nil)

	rec := postForm(srv.Router(), url.Values{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Secret name is required.") {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
	if store.gets != 0 {
		t.Fatalf("store should not be consulted, saw %d gets", store.gets)
	}
}

func TestRetrieveSubmitUnparsableBody(t *testing.T) {
	store := &countingStore{inner: secrets.NewMemoryStore()}
	srv := newServer(t, store, nil)

	req := httptest.NewRequest(http.MethodPost, "/retrievepost", strings.NewReader("%zz"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if store.gets != 0 {
		t.Fatalf("store should not be consulted, saw %d gets", store.gets)
	}
}

func TestRetrieveSubmitUnknownSecret(t *testing.T) {
	srv := newServer(t, secrets.NewMemoryStore(), nil)

	rec := postForm(srv.Router(), url.Values{"secretName": {"missing"}})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	body := rec.Body.String()
	if strings.Contains(body, "not found") || strings.Contains(body, "missing") {
		t.Fatalf("body leaks store error:\n%s", body)
	}
	if !strings.Contains(body, "Could not retrieve the secret.") {
		t.Fatalf("expected generic error page:\n%s", body)
	}
}

func TestEventWebhookAcknowledgesFailures(t *testing.T) {
	notifier := &countingNotifier{}
	srv := newServer(t, secrets.NewMemoryStore(), notifier)

	req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(`{"data":{}}`))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if notifier.calls != 0 {
		t.Fatalf("expected no notifications for invalid event, got %d", notifier.calls)
	}
}

func TestEventWebhookDispatchesNotification(t *testing.T) {
	store := secrets.NewMemoryStore()
	store.Put(context.Background(), secrets.Record{
		Name:     "db-password",
		Value:    "hunter2",
		Metadata: map[string]string{secrets.MetadataRecipientKey: "alice@example.com"},
	})
	notifier := &countingNotifier{}
	srv := newServer(t, store, notifier)

	req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(`{"data":{"objectName":"db-password"}}`))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if notifier.calls != 1 {
		t.Fatalf("expected one notification, got %d", notifier.calls)
	}
}

func TestHealthz(t *testing.T) {
	srv := newServer(t, secrets.NewMemoryStore(), nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
