package service

import (
	"context"
	"testing"
	"time"

	"foodRescueCoordination/internal/auth"
	"foodRescueCoordination/internal/config"
	"foodRescueCoordination/internal/testutil"
	"foodRescueCoordination/models"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// testNow is the frozen clock every service test runs at.
var testNow = time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		Database: config.DatabaseConfig{Path: ":memory:"},
		Auth:     config.AuthConfig{JWTSecret: "test"},
		Matching: config.MatchingConfig{
			RadiusMeters:         7000,
			MaxCandidates:        10,
			FallbackDelaySeconds: 60,
			SweepIntervalSeconds: 10,
			FallbackOnEmpty:      true,
			MaxMatchAttempts:     3,
		},
		Policy: config.PolicyConfig{
			CancelLimit:        3,
			CancelWindowHours:  24,
			BuyerCutoffMinutes: 30,
			TxMaxAttempts:      3,
		},
	}
}

func newTestService(t *testing.T, name string) *Service {
	t.Helper()
	d := testutil.OpenInMemoryDB(t, name)
	s := New(d, testConfig())
	s.now = func() time.Time { return testNow }
	s.dispatchAsync = false
	return s
}

// as returns a context authenticated as the given user, the way the
// transport interceptor would leave it.
func as(u *models.User) context.Context {
	return auth.WithPrincipal(context.Background(), &auth.Principal{Name: u.Username, Role: string(u.Role)})
}

func seedAdmin(t *testing.T, s *Service) *models.User {
	t.Helper()
	a, err := s.Users.Create(context.Background(), "admin-"+t.Name(), models.RoleAdmin)
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	return a
}

// seedSellerWithListing creates a seller and an open listing at the given
// pickup point.
func seedSellerWithListing(t *testing.T, s *Service, qty int64, lat, lng float64) (*models.User, *models.Listing) {
	t.Helper()
	ctx := context.Background()
	seller, err := s.Users.Create(ctx, "seller-"+t.Name(), models.RoleSeller)
	if err != nil {
		t.Fatalf("create seller: %v", err)
	}
	l, err := s.Listings.Create(ctx, &models.Listing{
		SellerID:          seller.ID,
		FoodName:          "bread",
		RemainingQuantity: qty,
		PickupLat:         lat,
		PickupLng:         lng,
		WindowFrom:        testNow.Add(-2 * time.Hour).Format(time.RFC3339),
		WindowTo:          testNow.Add(6 * time.Hour).Format(time.RFC3339),
	})
	if err != nil {
		t.Fatalf("create listing: %v", err)
	}
	return seller, l
}

func seedBuyer(t *testing.T, s *Service) *models.User {
	t.Helper()
	b, err := s.Users.Create(context.Background(), "buyer-"+t.Name(), models.RoleBuyer)
	if err != nil {
		t.Fatalf("create buyer: %v", err)
	}
	return b
}

// seedCourierAt creates an available courier at the given location.
func seedCourierAt(t *testing.T, s *Service, name string, lat, lng float64, maxOrders int64) *models.User {
	t.Helper()
	ctx := context.Background()
	c, err := s.Users.Create(ctx, name, models.RoleCourier)
	if err != nil {
		t.Fatalf("create courier: %v", err)
	}
	if err := s.Users.SetLocation(ctx, c.ID, lat, lng); err != nil {
		t.Fatalf("set location: %v", err)
	}
	if err := s.Couriers.Create(ctx, &models.CourierProfile{UserID: c.ID, IsAvailable: true, MaxConcurrentOrders: maxOrders}); err != nil {
		t.Fatalf("create profile: %v", err)
	}
	return c
}

// drainReputation synchronously processes every queued reputation event.
func drainReputation(t *testing.T, s *Service) {
	t.Helper()
	for {
		select {
		case ev := <-s.repEvents:
			if err := s.RecomputeTrust(context.Background(), ev.UserID, ev.Role); err != nil {
				t.Fatalf("recompute: %v", err)
			}
		default:
			return
		}
	}
}

func wantCode(t *testing.T, err error, want codes.Code) {
	t.Helper()
	if status.Code(err) != want {
		t.Fatalf("error = %v, want code %s", err, want)
	}
}
