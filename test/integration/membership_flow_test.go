//go:build integration

package integration

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stripe/stripe-go/v76"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/membergate/membergate/config"
	"github.com/membergate/membergate/internal/account"
	"github.com/membergate/membergate/internal/api"
	"github.com/membergate/membergate/internal/auth"
	"github.com/membergate/membergate/internal/billing"
	"github.com/membergate/membergate/internal/database"
	"github.com/membergate/membergate/internal/session"
	"github.com/membergate/membergate/internal/store"
)

const webhookSecret = "whsec_it_secret"

type recordingNotifier struct {
	mu        sync.Mutex
	passwords map[string]string
}

func (n *recordingNotifier) Dispatch(email, password string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.passwords == nil {
		n.passwords = make(map[string]string)
	}
	n.passwords[email] = password
}

func (n *recordingNotifier) password(email string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.passwords[email]
}

func startPostgres(ctx context.Context, t *testing.T) string {
	t.Helper()

	req := testcontainers.ContainerRequest{
		Image: "postgres:15-alpine",
		Env: map[string]string{
			"POSTGRES_DB":       "membergate",
			"POSTGRES_USER":     "membergate",
			"POSTGRES_PASSWORD": "password",
		},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	pg, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start container: %v", err)
	}
	t.Cleanup(func() { _ = pg.Terminate(context.Background()) })

	host, err := pg.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := pg.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("mapped port: %v", err)
	}

	return "postgres://membergate:password@" + host + ":" + port.Port() + "/membergate?sslmode=disable"
}

func signStripe(ts, payload, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func deliverWebhook(t *testing.T, r http.Handler, payload string) *httptest.ResponseRecorder {
	t.Helper()
	ts := fmt.Sprintf("%d", time.Now().Unix())
	req := httptest.NewRequest("POST", "/api/webhook", strings.NewReader(payload))
	req.Header.Set("Stripe-Signature", fmt.Sprintf("t=%s,v1=%s", ts, signStripe(ts, payload, webhookSecret)))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, r http.Handler, email, password string) *httptest.ResponseRecorder {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q}`, email, password)
	req := httptest.NewRequest("POST", "/api/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestMembershipLifecycle_WithContainer(t *testing.T) {
	if !containersAvailable() {
		t.Skip("no container runtime available")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	dsn := startPostgres(ctx, t)

	cfg := config.DatabaseConfig{
		URL:             dsn,
		MaxConns:        5,
		MinConns:        1,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
	}
	db, err := database.New(ctx, cfg)
	if err != nil {
		t.Fatalf("database.New: %v", err)
	}
	defer db.Close(ctx)

	accountStore := store.New(db)
	pg, ok := accountStore.(*store.PostgresStore)
	if !ok {
		t.Fatal("expected Postgres-backed store")
	}
	if err := pg.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	notifier := &recordingNotifier{}
	accounts := account.NewService(accountStore, notifier)
	sessions := session.NewInMemoryStore(time.Hour)
	authSvc := auth.NewService(accountStore, sessions)
	billingSvc := billing.NewService(config.BillingConfig{ProviderTimeout: time.Second})

	handler := api.NewHandler(accountStore, billingSvc, accounts, authSvc, webhookSecret, "it", "", "")
	r := chi.NewRouter()
	handler.RegisterRoutes(r)

	const email = "member@example.com"
	const customerID = "cus_it_1"

	completed := fmt.Sprintf(`{"id":"evt_it_1","object":"event","api_version":%q,"type":"checkout.session.completed","data":{"object":{"id":"cs_it_1","object":"checkout.session","customer":%q,"customer_details":{"email":%q}}}}`,
		stripe.APIVersion, customerID, email)
	deleted := fmt.Sprintf(`{"id":"evt_it_2","object":"event","api_version":%q,"type":"customer.subscription.deleted","data":{"object":{"id":"sub_it_1","object":"subscription","customer":%q}}}`,
		stripe.APIVersion, customerID)

	// Purchase completes: account is provisioned with a fresh credential
	if rec := deliverWebhook(t, r, completed); rec.Code != http.StatusOK {
		t.Fatalf("completed webhook: %d %s", rec.Code, rec.Body.String())
	}
	password := notifier.password(email)
	if password == "" {
		t.Fatal("expected a dispatched credential")
	}

	rec := login(t, r, email, password)
	if rec.Code != http.StatusOK {
		t.Fatalf("login after provisioning: %d %s", rec.Code, rec.Body.String())
	}
	var loginResp struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&loginResp); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	if loginResp.Token == "" {
		t.Fatal("expected session token")
	}

	// Subscription cancelled: access is revoked but the account survives
	if rec := deliverWebhook(t, r, deleted); rec.Code != http.StatusOK {
		t.Fatalf("deleted webhook: %d", rec.Code)
	}
	if rec := login(t, r, email, password); rec.Code != http.StatusForbidden {
		t.Fatalf("login after revocation: expected 403, got %d", rec.Code)
	}

	// Repurchase: redelivered completed event reactivates with the same credential
	completedAgain := strings.Replace(completed, "evt_it_1", "evt_it_3", 1)
	if rec := deliverWebhook(t, r, completedAgain); rec.Code != http.StatusOK {
		t.Fatalf("reactivation webhook: %d", rec.Code)
	}
	if got := notifier.password(email); got != password {
		t.Fatal("reactivation must not rotate the credential")
	}
	if rec := login(t, r, email, password); rec.Code != http.StatusOK {
		t.Fatalf("login after reactivation: expected 200, got %d %s", rec.Code, rec.Body.String())
	}

	acct, err := accountStore.GetByCustomerID(ctx, customerID)
	if err != nil {
		t.Fatalf("get by customer: %v", err)
	}
	if acct == nil || !acct.SubscriptionActive {
		t.Fatal("expected active account after reactivation")
	}
	if acct.Email != email {
		t.Fatalf("expected %s, got %s", email, acct.Email)
	}
}

func TestPostgresStoreUpsert_WithContainer(t *testing.T) {
	if !containersAvailable() {
		t.Skip("no container runtime available")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	dsn := startPostgres(ctx, t)
	db, err := database.New(ctx, config.DatabaseConfig{URL: dsn, MaxConns: 5, MinConns: 1, MaxConnLifetime: time.Hour, MaxConnIdleTime: 30 * time.Minute})
	if err != nil {
		t.Fatalf("database.New: %v", err)
	}
	defer db.Close(ctx)

	st := store.New(db)
	pg, ok := st.(*store.PostgresStore)
	if !ok {
		t.Fatal("expected Postgres-backed store")
	}
	if err := pg.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	created, err := st.UpsertActive(ctx, "a@example.com", "cus_1", []byte("hash-1"))
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if !created {
		t.Fatal("expected first upsert to create")
	}

	// Redelivery reports reactivation, not creation, and keeps the hash
	created, err = st.UpsertActive(ctx, "a@example.com", "cus_other", []byte("hash-2"))
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if created {
		t.Fatal("expected second upsert to update")
	}

	acct, err := st.GetByEmail(ctx, "a@example.com")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if acct == nil {
		t.Fatal("expected account")
	}
	if string(acct.PasswordHash) != "hash-1" {
		t.Fatalf("expected original hash, got %s", acct.PasswordHash)
	}
	if acct.StripeCustomerID != "cus_1" {
		t.Fatalf("customer id must not be overwritten, got %s", acct.StripeCustomerID)
	}

	found, err := st.Deactivate(ctx, "cus_1")
	if err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if !found {
		t.Fatal("expected deactivate to find the account")
	}
	acct, _ = st.GetByEmail(ctx, "a@example.com")
	if acct.SubscriptionActive {
		t.Fatal("expected inactive account")
	}

	found, err = st.Deactivate(ctx, "cus_missing")
	if err != nil {
		t.Fatalf("deactivate missing: %v", err)
	}
	if found {
		t.Fatal("expected no match for unknown customer")
	}
}
