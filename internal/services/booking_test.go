package services

import (
	"context"
	"sync"
	"testing"

	"github.com/chachabrian/chefbook-backend/internal/database"
	"github.com/chachabrian/chefbook-backend/internal/database/testdb"
	"github.com/chachabrian/chefbook-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingDispatcher struct {
	mu            sync.Mutex
	notifications []Notification
	events        []BookingEvent
}

func (d *recordingDispatcher) Notify(msg Notification) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notifications = append(d.notifications, msg)
	return true
}

func (d *recordingDispatcher) Publish(e BookingEvent) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, e)
	return true
}

type bookingFixture struct {
	db       *gorm.DB
	gateway  *fakeGateway
	dispatch *recordingDispatcher
	service  *BookingService

	client Requester
	chef   Provider
	other  Provider
}

func newBookingFixture(t *testing.T) *bookingFixture {
	t.Helper()

	db := testdb.Open(t)
	client := testdb.CreateUser(t, db, "ria", models.UserTypeClient, "tok-ria")
	chef := testdb.CreateUser(t, db, "pim", models.UserTypeChef, "tok-pim")
	other := testdb.CreateUser(t, db, "noi", models.UserTypeChef, "")

	f := &bookingFixture{
		db:       db,
		gateway:  newFakeGateway(),
		dispatch: &recordingDispatcher{},
		client:   Requester{ID: client.ID, Name: client.Username, PushToken: client.FCMToken},
		chef:     Provider{ID: chef.ID, Name: chef.Username, PushToken: chef.FCMToken},
		other:    Provider{ID: other.ID, Name: other.Username},
	}
	f.service = NewBookingService(
		database.NewBookingStore(db),
		database.NewUserStore(db),
		newReconciler(f.gateway),
		f.dispatch,
		"THB",
		quietLogger(),
	)
	return f
}

func (f *bookingFixture) input(ref string, amount int64) CreateBookingInput {
	return CreateBookingInput{
		ProviderID:       f.chef.ID,
		MealType:         "Dinner",
		GuestCount:       4,
		Date:             "2026-11-20",
		Time:             "19:00",
		Cuisine:          "Thai",
		Address:          "12 Sukhumvit Soi 11",
		TotalAmount:      amount,
		PaymentReference: ref,
	}
}

func (f *bookingFixture) bookingCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.Booking{}).Count(&n).Error)
	return n
}

func TestCreateDeclineThenAccept(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	f.gateway.add("pay_1", PaymentCaptured, 150000)

	b, err := f.service.Create(ctx, f.client, f.input("pay_1", 150000))
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusPending, b.Status)
	assert.Equal(t, "thb", b.Currency)
	assert.Equal(t, f.client.ID, b.RequesterID)
	require.NotNil(t, b.Provider)
	assert.Equal(t, "pim", b.Provider.Username)

	f.dispatch.mu.Lock()
	require.Len(t, f.dispatch.notifications, 1)
	assert.Equal(t, f.chef.ID, f.dispatch.notifications[0].RecipientID)
	assert.Equal(t, "tok-pim", f.dispatch.notifications[0].Token)
	assert.Equal(t, b.ID, f.dispatch.notifications[0].Data["bookingId"])
	require.Len(t, f.dispatch.events, 1)
	assert.Equal(t, EventBookingCreated, f.dispatch.events[0].Type)
	f.dispatch.mu.Unlock()

	declined, err := f.service.Decline(ctx, f.chef, b.ID, "  fully booked ")
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusDeclined, declined.Status)
	assert.Equal(t, "fully booked", declined.DeclineReason)

	_, err = f.service.Accept(ctx, f.chef, b.ID)
	assert.ErrorIs(t, err, ErrNotFoundOrAlreadyHandled)

	f.dispatch.mu.Lock()
	defer f.dispatch.mu.Unlock()
	require.Len(t, f.dispatch.notifications, 2)
	last := f.dispatch.notifications[1]
	assert.Equal(t, f.client.ID, last.RecipientID)
	assert.Equal(t, "tok-ria", last.Token)
	assert.Contains(t, last.Body, "fully booked")
	assert.Equal(t, EventBookingDeclined, f.dispatch.events[1].Type)
	assert.Equal(t, "fully booked", f.dispatch.events[1].Reason)
}

func TestCreateCapturesAuthorizedPayment(t *testing.T) {
	f := newBookingFixture(t)
	f.gateway.add("pay_auth", PaymentAuthorized, 80000)

	b, err := f.service.Create(context.Background(), f.client, f.input("pay_auth", 80000))
	require.NoError(t, err)
	assert.Equal(t, int64(80000), b.TotalAmount)

	_, captures := f.gateway.calls()
	assert.Equal(t, 1, captures)
}

func TestCreateRejectsAmountOffByOneMinorUnit(t *testing.T) {
	f := newBookingFixture(t)
	f.gateway.add("pay_1", PaymentCaptured, 150000)

	for _, amount := range []int64{149999, 150001} {
		_, err := f.service.Create(context.Background(), f.client, f.input("pay_1", amount))
		var payErr *PaymentError
		require.ErrorAs(t, err, &payErr)
		assert.Equal(t, "pay_1", payErr.Reference)
	}

	assert.Zero(t, f.bookingCount(t))
	assert.Empty(t, f.dispatch.notifications)
}

func TestCreateUncapturedPaymentStoresNothing(t *testing.T) {
	f := newBookingFixture(t)
	f.gateway.add("pay_pending", PaymentPending, 5000)

	_, err := f.service.Create(context.Background(), f.client, f.input("pay_pending", 5000))
	var payErr *PaymentError
	require.ErrorAs(t, err, &payErr)
	assert.Zero(t, f.bookingCount(t))
}

func TestCreateValidationSkipsGateway(t *testing.T) {
	f := newBookingFixture(t)
	f.gateway.add("pay_1", PaymentCaptured, 150000)

	tests := []struct {
		name   string
		mutate func(*CreateBookingInput)
		want   string
	}{
		{"zero guests", func(in *CreateBookingInput) { in.GuestCount = 0 }, "guestCount"},
		{"missing date", func(in *CreateBookingInput) { in.Date = " " }, "date is required"},
		{"missing reference", func(in *CreateBookingInput) { in.PaymentReference = "" }, "paymentReference"},
		{"zero amount", func(in *CreateBookingInput) { in.TotalAmount = 0 }, "totalAmount"},
		{"unknown provider", func(in *CreateBookingInput) { in.ProviderID = 9999 }, "does not reference a chef"},
		{"provider is a client", func(in *CreateBookingInput) { in.ProviderID = f.client.ID }, "does not reference a chef"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := f.input("pay_1", 150000)
			tt.mutate(&in)

			_, err := f.service.Create(context.Background(), f.client, in)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Contains(t, vErr.Error(), tt.want)
		})
	}

	fetches, captures := f.gateway.calls()
	assert.Zero(t, fetches)
	assert.Zero(t, captures)
	assert.Zero(t, f.bookingCount(t))
}

func TestCreateReportsEveryProblem(t *testing.T) {
	f := newBookingFixture(t)

	_, err := f.service.Create(context.Background(), f.client, CreateBookingInput{GuestCount: -2, TotalAmount: -5})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.ElementsMatch(t, []string{
		"providerId is required",
		"mealType is required",
		"guestCount must be at least 1",
		"date is required",
		"time is required",
		"cuisine is required",
		"address is required",
		"totalAmount must be positive",
		"paymentReference is required",
	}, vErr.Problems)

	fetches, _ := f.gateway.calls()
	assert.Zero(t, fetches)
}

func TestCreateForbiddenForChef(t *testing.T) {
	f := newBookingFixture(t)
	_, err := f.service.Create(context.Background(), f.chef, f.input("pay_1", 1000))
	assert.ErrorIs(t, err, ErrForbidden)

	fetches, _ := f.gateway.calls()
	assert.Zero(t, fetches)
}

func TestTransitionsForbiddenForClient(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	for _, id := range []string{"does-not-exist", ""} {
		_, err := f.service.Accept(ctx, f.client, id)
		assert.ErrorIs(t, err, ErrForbidden)
		_, err = f.service.Decline(ctx, f.client, id, "")
		assert.ErrorIs(t, err, ErrForbidden)
	}
}

func TestTransitionByOtherChef(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	f.gateway.add("pay_1", PaymentCaptured, 150000)
	b, err := f.service.Create(ctx, f.client, f.input("pay_1", 150000))
	require.NoError(t, err)

	_, err = f.service.Accept(ctx, f.other, b.ID)
	assert.ErrorIs(t, err, ErrNotFoundOrAlreadyHandled)
	_, err = f.service.Decline(ctx, f.other, b.ID, "busy")
	assert.ErrorIs(t, err, ErrNotFoundOrAlreadyHandled)

	_, err = f.service.Accept(ctx, f.chef, b.ID)
	require.NoError(t, err)

	_, err = f.service.Decline(ctx, f.other, b.ID, "busy")
	assert.ErrorIs(t, err, ErrNotFoundOrAlreadyHandled)
}

func TestConcurrentAcceptAndDecline(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	f.gateway.add("pay_1", PaymentCaptured, 150000)
	b, err := f.service.Create(ctx, f.client, f.input("pay_1", 150000))
	require.NoError(t, err)

	const n = 10
	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var err error
			if i%2 == 0 {
				_, err = f.service.Accept(ctx, f.chef, b.ID)
			} else {
				_, err = f.service.Decline(ctx, f.chef, b.ID, "")
			}
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, ErrNotFoundOrAlreadyHandled)
	}
	assert.Equal(t, 1, wins)
}

func TestListsAndGet(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	f.gateway.add("pay_1", PaymentCaptured, 150000)
	b, err := f.service.Create(ctx, f.client, f.input("pay_1", 150000))
	require.NoError(t, err)

	mine, err := f.service.ListForRequester(ctx, f.client)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, b.ID, mine[0].ID)

	incoming, err := f.service.ListForProvider(ctx, f.chef)
	require.NoError(t, err)
	require.Len(t, incoming, 1)
	require.NotNil(t, incoming[0].Requester)
	assert.Equal(t, "ria", incoming[0].Requester.Username)

	_, err = f.service.ListForRequester(ctx, f.chef)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.service.ListForProvider(ctx, f.client)
	assert.ErrorIs(t, err, ErrForbidden)

	got, err := f.service.Get(ctx, f.chef, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	_, err = f.service.Get(ctx, f.other, b.ID)
	assert.ErrorIs(t, err, ErrNotFoundOrAlreadyHandled)
}
