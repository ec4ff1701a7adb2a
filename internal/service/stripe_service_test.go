package service

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"app/internal/config"
	"app/internal/model"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

const testWebhookSecret = "whsec_test_secret"

// fakeProcessor is an in-memory stand-in for the Stripe API.
type fakeProcessor struct {
	mu                sync.Mutex
	customersByEmail  map[string]*stripe.Customer
	customersByID     map[string]*stripe.Customer
	subscriptionsByID map[string]*stripe.Subscription
	createdCustomers  []*stripe.CustomerParams
	createdSessions   []*stripe.CheckoutSessionParams
	failCreateSession bool
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{
		customersByEmail:  make(map[string]*stripe.Customer),
		customersByID:     make(map[string]*stripe.Customer),
		subscriptionsByID: make(map[string]*stripe.Subscription),
	}
}

func (f *fakeProcessor) FindCustomerByEmail(email string) (*stripe.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.customersByEmail[email], nil
}

func (f *fakeProcessor) CreateCustomer(params *stripe.CustomerParams) (*stripe.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createdCustomers = append(f.createdCustomers, params)
	cust := &stripe.Customer{
		ID:       fmt.Sprintf("cus_%d", len(f.createdCustomers)),
		Email:    *params.Email,
		Metadata: params.Metadata,
	}
	f.customersByEmail[cust.Email] = cust
	f.customersByID[cust.ID] = cust
	return cust, nil
}

func (f *fakeProcessor) CreateCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreateSession {
		return nil, fmt.Errorf("stripe: connection reset")
	}
	f.createdSessions = append(f.createdSessions, params)
	return &stripe.CheckoutSession{ID: fmt.Sprintf("cs_%d", len(f.createdSessions))}, nil
}

func (f *fakeProcessor) GetSubscription(id string) (*stripe.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub, ok := f.subscriptionsByID[id]
	if !ok {
		return nil, fmt.Errorf("no such subscription: %s", id)
	}
	return sub, nil
}

func (f *fakeProcessor) GetCustomer(id string) (*stripe.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cust, ok := f.customersByID[id]
	if !ok {
		return nil, fmt.Errorf("no such customer: %s", id)
	}
	return cust, nil
}

// fakeSubscriptionRepo mirrors the SQL upsert semantics in memory.
type fakeSubscriptionRepo struct {
	mu      sync.Mutex
	records map[string]*model.Subscription
	upserts int
	failAll bool
}

func newFakeSubscriptionRepo() *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{records: make(map[string]*model.Subscription)}
}

func (r *fakeSubscriptionRepo) GetSubscription(_ context.Context, userID string) (*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sub, ok := r.records[userID]; ok {
		cp := *sub
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeSubscriptionRepo) UpsertSubscription(_ context.Context, sub *model.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return fmt.Errorf("db down")
	}
	r.upserts++
	cp := *sub
	r.records[sub.UserID] = &cp
	return nil
}

func (r *fakeSubscriptionRepo) UpsertStatus(_ context.Context, userID string, upd model.SubscriptionStatusUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return fmt.Errorf("db down")
	}
	r.upserts++
	existing, ok := r.records[userID]
	if !ok {
		existing = &model.Subscription{UserID: userID}
		r.records[userID] = existing
	}
	existing.StripeCustomerID = upd.StripeCustomerID
	existing.StripeSubscriptionID = upd.StripeSubscriptionID
	existing.Status = upd.Status
	existing.CancelAtPeriodEnd = upd.CancelAtPeriodEnd
	existing.CurrentPeriodStart = upd.CurrentPeriodStart
	existing.CurrentPeriodEnd = upd.CurrentPeriodEnd
	return nil
}

func (r *fakeSubscriptionRepo) MarkCanceled(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return fmt.Errorf("db down")
	}
	if sub, ok := r.records[userID]; ok {
		sub.Status = model.SubscriptionStatusCanceled
	}
	return nil
}

type fakeUserRepo struct {
	mu      sync.Mutex
	users   map[string]*model.User
	mirrors map[string][2]string
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User), mirrors: make(map[string][2]string)}
}

func (r *fakeUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[id], nil
}

func (r *fakeUserRepo) GetUserByStripeCustomerID(_ context.Context, customerID string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.StripeCustomerID != nil && *u.StripeCustomerID == customerID {
			return u, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) UpdateStripeCustomerID(_ context.Context, userID, customerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		u = &model.User{UserID: userID}
		r.users[userID] = u
	}
	u.StripeCustomerID = &customerID
	return nil
}

func (r *fakeUserRepo) UpdateSubscriptionMirror(_ context.Context, userID, status, planType string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mirrors[userID] = [2]string{status, planType}
	return nil
}

type fakeEventRepo struct {
	mu     sync.Mutex
	marked map[string]string
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{marked: make(map[string]string)}
}

func (r *fakeEventRepo) WasProcessed(_ context.Context, eventID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.marked[eventID]
	return ok, nil
}

func (r *fakeEventRepo) MarkProcessed(_ context.Context, eventID, eventType string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.marked[eventID] = eventType
	return nil
}

func (r *fakeEventRepo) PruneOlderThan(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

type fixture struct {
	svc       *StripeService
	processor *fakeProcessor
	subRepo   *fakeSubscriptionRepo
	userRepo  *fakeUserRepo
	eventRepo *fakeEventRepo
}

func newFixture() *fixture {
	cfg := &config.Config{
		StripeWebhookSecret: testWebhookSecret,
		AppBaseURL:          "https://app.example.com",
		EventRetentionDays:  30,
	}
	processor := newFakeProcessor()
	subRepo := newFakeSubscriptionRepo()
	userRepo := newFakeUserRepo()
	eventRepo := newFakeEventRepo()
	subSvc := NewSubscriptionService(subRepo, userRepo, 72*time.Hour, zerolog.Nop())
	svc := NewStripeService(cfg, processor, userRepo, eventRepo, subSvc, zerolog.Nop())
	return &fixture{svc: svc, processor: processor, subRepo: subRepo, userRepo: userRepo, eventRepo: eventRepo}
}

func signedWebhookRequest(t *testing.T, secret, eventID, eventType, object string) *http.Request {
	t.Helper()
	payload := fmt.Sprintf(`{"id":%q,"object":"event","api_version":%q,"type":%q,"data":{"object":%s}}`,
		eventID, stripe.APIVersion, eventType, object)
	ts := time.Now()
	sig := webhook.ComputeSignature(ts, []byte(payload), secret)
	req := httptest.NewRequest(http.MethodPost, "/webhook/stripe", strings.NewReader(payload))
	req.Header.Set("Stripe-Signature", fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(sig)))
	return req
}

func deliver(f *fixture, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	f.svc.HandleWebhook(rr, req)
	return rr
}

func activeSubscriptionObj(id string, start, end time.Time) *stripe.Subscription {
	return &stripe.Subscription{
		ID:     id,
		Status: stripe.SubscriptionStatusActive,
		Items: &stripe.SubscriptionItemList{
			Data: []*stripe.SubscriptionItem{{
				CurrentPeriodStart: start.Unix(),
				CurrentPeriodEnd:   end.Unix(),
			}},
		},
	}
}

func TestHandleWebhookRejectsBadSignature(t *testing.T) {
	f := newFixture()
	req := signedWebhookRequest(t, "whsec_wrong_secret", "evt_1", "checkout.session.completed",
		`{"id":"cs_1","object":"checkout.session"}`)

	rr := deliver(f, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if f.subRepo.upserts != 0 {
		t.Errorf("expected no state writes, got %d upserts", f.subRepo.upserts)
	}
	if len(f.eventRepo.marked) != 0 {
		t.Errorf("expected no event markers, got %d", len(f.eventRepo.marked))
	}
}

func TestCheckoutCompletedCreatesRecordAndMirror(t *testing.T) {
	f := newFixture()
	start := time.Now().Truncate(time.Second)
	end := start.Add(30 * 24 * time.Hour)
	f.processor.subscriptionsByID["sub_1"] = activeSubscriptionObj("sub_1", start, end)

	obj := `{"id":"cs_1","object":"checkout.session","customer":"cus_1","subscription":"sub_1","metadata":{"userId":"user_1","planType":"premium"}}`
	rr := deliver(f, signedWebhookRequest(t, testWebhookSecret, "evt_1", "checkout.session.completed", obj))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	sub := f.subRepo.records["user_1"]
	if sub == nil {
		t.Fatal("expected subscription record for user_1")
	}
	if sub.PlanType != "premium" || sub.Status != "active" {
		t.Errorf("unexpected record: plan=%q status=%q", sub.PlanType, sub.Status)
	}
	if !sub.CurrentPeriodEnd.Equal(end) {
		t.Errorf("expected period end %v, got %v", end, sub.CurrentPeriodEnd)
	}
	if sub.StripeCustomerID != "cus_1" || sub.StripeSubscriptionID != "sub_1" {
		t.Errorf("unexpected processor ids: %q %q", sub.StripeCustomerID, sub.StripeSubscriptionID)
	}
	if mirror := f.userRepo.mirrors["user_1"]; mirror != [2]string{"active", "premium"} {
		t.Errorf("unexpected user mirror: %v", mirror)
	}
	if f.eventRepo.marked["evt_1"] != "checkout.session.completed" {
		t.Error("expected event marker after successful handling")
	}
}

func TestDuplicateDeliveryAcknowledgedWithoutReapplying(t *testing.T) {
	f := newFixture()
	start := time.Now()
	f.processor.subscriptionsByID["sub_1"] = activeSubscriptionObj("sub_1", start, start.Add(720*time.Hour))
	obj := `{"id":"cs_1","object":"checkout.session","customer":"cus_1","subscription":"sub_1","metadata":{"userId":"user_1","planType":"basic"}}`

	first := deliver(f, signedWebhookRequest(t, testWebhookSecret, "evt_dup", "checkout.session.completed", obj))
	second := deliver(f, signedWebhookRequest(t, testWebhookSecret, "evt_dup", "checkout.session.completed", obj))

	if first.Code != http.StatusOK || second.Code != http.StatusOK {
		t.Fatalf("expected 200/200, got %d/%d", first.Code, second.Code)
	}
	if f.subRepo.upserts != 1 {
		t.Errorf("expected exactly one upsert, got %d", f.subRepo.upserts)
	}
}

func TestUpdateBeforeCheckoutConverges(t *testing.T) {
	f := newFixture()
	start := time.Now().Truncate(time.Second)
	end := start.Add(720 * time.Hour)
	f.processor.customersByID["cus_1"] = &stripe.Customer{ID: "cus_1", Metadata: map[string]string{"userId": "user_1"}}
	f.processor.subscriptionsByID["sub_1"] = activeSubscriptionObj("sub_1", start, end)

	// The update event lands first.
	updObj := fmt.Sprintf(`{"id":"sub_1","object":"subscription","customer":"cus_1","status":"active","items":{"object":"list","data":[{"object":"subscription_item","current_period_start":%d,"current_period_end":%d}]}}`,
		start.Unix(), end.Unix())
	rr := deliver(f, signedWebhookRequest(t, testWebhookSecret, "evt_upd", "customer.subscription.updated", updObj))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for early update, got %d: %s", rr.Code, rr.Body.String())
	}
	sub := f.subRepo.records["user_1"]
	if sub == nil {
		t.Fatal("expected record created by early update event")
	}
	if sub.PlanType != "" {
		t.Errorf("early update must not invent a plan, got %q", sub.PlanType)
	}
	if sub.Status != "active" {
		t.Errorf("expected active, got %q", sub.Status)
	}

	// Checkout completion backfills the plan.
	csObj := `{"id":"cs_1","object":"checkout.session","customer":"cus_1","subscription":"sub_1","metadata":{"userId":"user_1","planType":"basic"}}`
	rr = deliver(f, signedWebhookRequest(t, testWebhookSecret, "evt_cs", "checkout.session.completed", csObj))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for checkout completion, got %d", rr.Code)
	}
	if got := f.subRepo.records["user_1"].PlanType; got != "basic" {
		t.Errorf("expected plan backfilled to basic, got %q", got)
	}
}

func TestSubscriptionDeletedMarksCanceledAndKeepsRecord(t *testing.T) {
	f := newFixture()
	f.processor.customersByID["cus_1"] = &stripe.Customer{ID: "cus_1", Metadata: map[string]string{"userId": "user_1"}}
	f.subRepo.records["user_1"] = &model.Subscription{
		UserID:               "user_1",
		StripeCustomerID:     "cus_1",
		StripeSubscriptionID: "sub_1",
		PlanType:             "premium",
		Status:               model.SubscriptionStatusActive,
	}

	obj := `{"id":"sub_1","object":"subscription","customer":"cus_1","status":"canceled"}`
	rr := deliver(f, signedWebhookRequest(t, testWebhookSecret, "evt_del", "customer.subscription.deleted", obj))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	sub := f.subRepo.records["user_1"]
	if sub == nil {
		t.Fatal("record must be retained after cancellation")
	}
	if sub.Status != model.SubscriptionStatusCanceled {
		t.Errorf("expected canceled, got %q", sub.Status)
	}
	if sub.PlanType != "premium" {
		t.Errorf("cancellation must keep the plan, got %q", sub.PlanType)
	}
	if mirror := f.userRepo.mirrors["user_1"]; mirror[0] != "canceled" {
		t.Errorf("expected canceled mirror, got %v", mirror)
	}
}

func TestPaymentFailedTransitionsToPastDue(t *testing.T) {
	f := newFixture()
	f.processor.customersByID["cus_1"] = &stripe.Customer{ID: "cus_1", Metadata: map[string]string{"userId": "user_1"}}
	start := time.Now().Add(-720 * time.Hour)
	end := time.Now().Add(-time.Hour)
	f.processor.subscriptionsByID["sub_1"] = &stripe.Subscription{
		ID:     "sub_1",
		Status: stripe.SubscriptionStatusPastDue,
		Items: &stripe.SubscriptionItemList{
			Data: []*stripe.SubscriptionItem{{
				CurrentPeriodStart: start.Unix(),
				CurrentPeriodEnd:   end.Unix(),
			}},
		},
	}
	f.subRepo.records["user_1"] = &model.Subscription{
		UserID:   "user_1",
		PlanType: "basic",
		Status:   model.SubscriptionStatusActive,
	}

	obj := `{"id":"in_1","object":"invoice","customer":"cus_1","lines":{"object":"list","data":[{"object":"line_item","subscription":"sub_1"}]}}`
	rr := deliver(f, signedWebhookRequest(t, testWebhookSecret, "evt_pf", "invoice.payment_failed", obj))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if got := f.subRepo.records["user_1"].Status; got != model.SubscriptionStatusPastDue {
		t.Errorf("expected past_due, got %q", got)
	}
}

func TestPaymentFailedWithoutSubscriptionIsSkipped(t *testing.T) {
	f := newFixture()
	f.processor.customersByID["cus_1"] = &stripe.Customer{ID: "cus_1", Metadata: map[string]string{"userId": "user_1"}}

	obj := `{"id":"in_1","object":"invoice","customer":"cus_1","lines":{"object":"list","data":[]}}`
	rr := deliver(f, signedWebhookRequest(t, testWebhookSecret, "evt_oneoff", "invoice.payment_failed", obj))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for one-time invoice, got %d", rr.Code)
	}
	if f.subRepo.upserts != 0 {
		t.Errorf("expected no writes for one-time invoice, got %d", f.subRepo.upserts)
	}
}

func TestUnknownEventTypeAcknowledged(t *testing.T) {
	f := newFixture()
	rr := deliver(f, signedWebhookRequest(t, testWebhookSecret, "evt_misc", "charge.refunded", `{"id":"ch_1"}`))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if f.subRepo.upserts != 0 {
		t.Errorf("expected no writes, got %d upserts", f.subRepo.upserts)
	}
}

func TestHandlerFailureReturns500AndAllowsRetry(t *testing.T) {
	f := newFixture()
	start := time.Now()
	f.processor.subscriptionsByID["sub_1"] = activeSubscriptionObj("sub_1", start, start.Add(720*time.Hour))
	obj := `{"id":"cs_1","object":"checkout.session","customer":"cus_1","subscription":"sub_1","metadata":{"userId":"user_1","planType":"basic"}}`

	f.subRepo.failAll = true
	rr := deliver(f, signedWebhookRequest(t, testWebhookSecret, "evt_retry", "checkout.session.completed", obj))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 on handler failure, got %d", rr.Code)
	}
	if _, marked := f.eventRepo.marked["evt_retry"]; marked {
		t.Fatal("failed delivery must not be marked processed")
	}

	// Stripe redelivers; this time the store is healthy.
	f.subRepo.failAll = false
	rr = deliver(f, signedWebhookRequest(t, testWebhookSecret, "evt_retry", "checkout.session.completed", obj))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 on redelivery, got %d", rr.Code)
	}
	if f.subRepo.records["user_1"] == nil {
		t.Fatal("expected record after successful redelivery")
	}
}

func TestCheckoutMissingMetadataIsDiscarded(t *testing.T) {
	f := newFixture()
	obj := `{"id":"cs_1","object":"checkout.session","customer":"cus_1","subscription":"sub_1","metadata":{}}`
	rr := deliver(f, signedWebhookRequest(t, testWebhookSecret, "evt_bad", "checkout.session.completed", obj))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unusable payload, got %d", rr.Code)
	}
}

func TestCreateCheckoutSessionBuildsLineItemFromRegistry(t *testing.T) {
	f := newFixture()
	f.userRepo.users["user_1"] = &model.User{UserID: "user_1", Email: "a@b.com"}

	sessionID, err := f.svc.CreateCheckoutSession(context.Background(), "basic", "user_1", "a@b.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sessionID == "" {
		t.Fatal("expected a session id")
	}
	if len(f.processor.createdSessions) != 1 {
		t.Fatalf("expected one session, got %d", len(f.processor.createdSessions))
	}
	params := f.processor.createdSessions[0]
	if len(params.LineItems) != 1 {
		t.Fatalf("expected one line item, got %d", len(params.LineItems))
	}
	pd := params.LineItems[0].PriceData
	if *pd.UnitAmount != 999 || *pd.Currency != "usd" || *pd.Recurring.Interval != "month" {
		t.Errorf("line item does not match registry: amount=%d currency=%s interval=%s",
			*pd.UnitAmount, *pd.Currency, *pd.Recurring.Interval)
	}
	if *params.Mode != string(stripe.CheckoutSessionModeSubscription) {
		t.Errorf("expected subscription mode, got %s", *params.Mode)
	}
	if params.Metadata["userId"] != "user_1" || params.Metadata["planType"] != "basic" {
		t.Errorf("unexpected session metadata: %v", params.Metadata)
	}
	if !strings.Contains(*params.SuccessURL, "{CHECKOUT_SESSION_ID}") {
		t.Errorf("success URL missing session placeholder: %s", *params.SuccessURL)
	}

	// The resolver created exactly one customer, tagged with the user id.
	if len(f.processor.createdCustomers) != 1 {
		t.Fatalf("expected one customer creation, got %d", len(f.processor.createdCustomers))
	}
	if f.processor.createdCustomers[0].Metadata["userId"] != "user_1" {
		t.Errorf("customer not tagged with user id: %v", f.processor.createdCustomers[0].Metadata)
	}
}

func TestCreateCheckoutSessionUnknownPlan(t *testing.T) {
	f := newFixture()
	_, err := f.svc.CreateCheckoutSession(context.Background(), "enterprise", "user_1", "a@b.com")
	if err == nil || !strings.Contains(err.Error(), ErrUnknownPlan.Error()) {
		t.Fatalf("expected unknown plan error, got %v", err)
	}
	if len(f.processor.createdSessions) != 0 || len(f.processor.createdCustomers) != 0 {
		t.Error("unknown plan must not reach the processor")
	}
}

func TestCreateCheckoutSessionProcessorFailure(t *testing.T) {
	f := newFixture()
	f.processor.failCreateSession = true

	_, err := f.svc.CreateCheckoutSession(context.Background(), "basic", "user_1", "a@b.com")
	if err == nil || !strings.Contains(err.Error(), ErrProcessorUnavailable.Error()) {
		t.Fatalf("expected processor unavailable error, got %v", err)
	}
}

func TestResolveCustomerReusesExisting(t *testing.T) {
	f := newFixture()
	existing := &stripe.Customer{ID: "cus_existing", Email: "a@b.com"}
	f.processor.customersByEmail["a@b.com"] = existing
	f.processor.customersByID["cus_existing"] = existing

	id, err := f.svc.ResolveCustomer(context.Background(), "a@b.com", "user_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "cus_existing" {
		t.Errorf("expected existing customer reused, got %s", id)
	}
	if len(f.processor.createdCustomers) != 0 {
		t.Error("lookup hit must not create a customer")
	}
	u := f.userRepo.users["user_1"]
	if u == nil || u.StripeCustomerID == nil || *u.StripeCustomerID != "cus_existing" {
		t.Error("expected customer id stored on the user record")
	}
}
