package grpc

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"slotbook/internal/auth"
	"slotbook/internal/domain"
	"slotbook/internal/service/bookings"
)

type fakeBookingService struct {
	availabilityFn func(ctx context.Context, date string, cred auth.Credential) (bookings.Availability, error)
	freeSlotsFn    func(ctx context.Context, date string, durationMin int) ([]domain.TimePoint, error)
	listRangeFn    func(ctx context.Context, start, end string, cred auth.Credential, query string) ([]domain.Row, error)
	mutateFn       func(ctx context.Context, date string, a domain.Action, cred auth.Credential) error
}

func (f *fakeBookingService) Availability(ctx context.Context, date string, cred auth.Credential) (bookings.Availability, error) {
	if f.availabilityFn == nil {
		panic("Availability not configured")
	}
	return f.availabilityFn(ctx, date, cred)
}

func (f *fakeBookingService) FreeSlots(ctx context.Context, date string, durationMin int) ([]domain.TimePoint, error) {
	if f.freeSlotsFn == nil {
		panic("FreeSlots not configured")
	}
	return f.freeSlotsFn(ctx, date, durationMin)
}

func (f *fakeBookingService) ListRange(ctx context.Context, start, end string, cred auth.Credential, query string) ([]domain.Row, error) {
	if f.listRangeFn == nil {
		panic("ListRange not configured")
	}
	return f.listRangeFn(ctx, start, end, cred, query)
}

func (f *fakeBookingService) Mutate(ctx context.Context, date string, a domain.Action, cred auth.Credential) error {
	if f.mutateFn == nil {
		panic("Mutate not configured")
	}
	return f.mutateFn(ctx, date, a, cred)
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	if err != nil {
		t.Fatalf("NewStruct error: %v", err)
	}
	return s
}

func TestCredential_ReadsMetadata(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(
		"x-admin-key", "  k  ",
		"authorization", "Bearer tok",
	))
	got := credential(ctx)
	if got.Key != "k" || got.Session != "tok" {
		t.Fatalf("credential = %+v", got)
	}

	if got := credential(context.Background()); got != (auth.Credential{}) {
		t.Fatalf("credential without metadata = %+v", got)
	}
}

func TestIntField(t *testing.T) {
	req := mustStruct(t, map[string]any{"a": 90.0, "b": " 45 ", "c": "x", "d": true, "e": 1e12})
	tests := map[string]int{"a": 90, "b": 45, "c": 0, "d": 0, "e": 0, "missing": 0}
	for key, want := range tests {
		if got := intField(req, key); got != want {
			t.Fatalf("intField(%q) = %d, want %d", key, got, want)
		}
	}
}

func TestMutate_StatusCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{name: "validation", err: domain.NewValidationError("time required"), want: codes.InvalidArgument},
		{name: "range", err: domain.ErrOutOfRange, want: codes.OutOfRange},
		{name: "auth", err: bookings.ErrUnauthorized, want: codes.Unauthenticated},
		{name: "not found", err: domain.ErrNotFound, want: codes.NotFound},
		{name: "conflict", err: domain.ErrConflict, want: codes.FailedPrecondition},
		{name: "other", err: errors.New("db down"), want: codes.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewBookingServer(&fakeBookingService{
				mutateFn: func(context.Context, string, domain.Action, auth.Credential) error { return tt.err },
			}, nil)

			_, err := srv.Mutate(context.Background(), mustStruct(t, map[string]any{"date": "2026-01-05", "time": "10:00"}))
			if status.Code(err) != tt.want {
				t.Fatalf("code = %v, want %v", status.Code(err), tt.want)
			}
		})
	}
}

func TestMutate_BuildsAction(t *testing.T) {
	var got domain.Action
	var gotDate string
	srv := NewBookingServer(&fakeBookingService{
		mutateFn: func(_ context.Context, date string, a domain.Action, _ auth.Credential) error {
			gotDate, got = date, a
			return nil
		},
	}, nil)

	resp, err := srv.Mutate(context.Background(), mustStruct(t, map[string]any{
		"date": "2026-01-05", "time": "10:00", "action": "admin-block", "durationMin": 60.0,
	}))
	if err != nil {
		t.Fatalf("Mutate error: %v", err)
	}
	if !resp.GetFields()["ok"].GetBoolValue() {
		t.Fatalf("resp = %v", resp)
	}
	if gotDate != "2026-01-05" || got.Kind != domain.ActionAdminBlock || got.DurationMin != 60 {
		t.Fatalf("Mutate(%q, %+v)", gotDate, got)
	}

	_, err = srv.Mutate(context.Background(), mustStruct(t, map[string]any{"action": "nope"}))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("unknown action code = %v", status.Code(err))
	}
	if _, err := srv.Mutate(context.Background(), nil); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("nil request code = %v", status.Code(err))
	}
}

func TestGetAvailability_ShapesLikeHTTP(t *testing.T) {
	srv := NewBookingServer(&fakeBookingService{
		availabilityFn: func(context.Context, string, auth.Credential) (bookings.Availability, error) {
			return bookings.Availability{
				Blocked:  []domain.TimePoint{600, 615},
				Public:   []bookings.PublicBooking{{Time: 600, DurationMin: 30}},
				Redacted: true,
			}, nil
		},
	}, nil)

	resp, err := srv.GetAvailability(context.Background(), mustStruct(t, map[string]any{"date": "2026-01-05"}))
	if err != nil {
		t.Fatalf("GetAvailability error: %v", err)
	}
	blocked := resp.GetFields()["blocked"].GetListValue().GetValues()
	if len(blocked) != 2 || blocked[0].GetStringValue() != "10:00" {
		t.Fatalf("blocked = %v", blocked)
	}
	first := resp.GetFields()["bookings"].GetListValue().GetValues()[0].GetStructValue().GetFields()
	if first["time"].GetStringValue() != "10:00" || first["durationMin"].GetNumberValue() != 30 {
		t.Fatalf("booking = %v", first)
	}
	if _, ok := first["name"]; ok {
		t.Fatalf("redacted booking leaks name")
	}
}

func startBufconn(t *testing.T, svc bookingService) *BookingServiceClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(DefaultRequestTimeout(time.Second)))
	RegisterBookingServiceServer(s, NewBookingServer(svc, nil))
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return NewBookingServiceClient(conn)
}

func TestBookingService_OverTheWire(t *testing.T) {
	var sawDeadline bool
	client := startBufconn(t, &fakeBookingService{
		freeSlotsFn: func(ctx context.Context, _ string, d int) ([]domain.TimePoint, error) {
			_, sawDeadline = ctx.Deadline()
			return []domain.TimePoint{480}, nil
		},
		listRangeFn: func(_ context.Context, _, _ string, cred auth.Credential, _ string) ([]domain.Row, error) {
			if cred.Key != "k" {
				return nil, bookings.ErrUnauthorized
			}
			return []domain.Row{{Date: "2026-01-05", Time: 600, DurationMin: 45}}, nil
		},
	})

	ctx := context.Background()
	resp, err := client.FreeSlots(ctx, mustStruct(t, map[string]any{"date": "2026-01-05", "durationMin": 30.0}))
	if err != nil {
		t.Fatalf("FreeSlots error: %v", err)
	}
	if !sawDeadline {
		t.Fatalf("request timeout interceptor not applied")
	}
	slots := resp.GetFields()["slots"].GetListValue().GetValues()
	if len(slots) != 1 || slots[0].GetStringValue() != "08:00" {
		t.Fatalf("slots = %v", slots)
	}

	req := mustStruct(t, map[string]any{"start": "2026-01-01", "end": "2026-01-31"})
	if _, err := client.ListRange(ctx, req); status.Code(err) != codes.Unauthenticated {
		t.Fatalf("ListRange without key code = %v", status.Code(err))
	}

	authed := metadata.AppendToOutgoingContext(ctx, "x-admin-key", "k")
	resp, err = client.ListRange(authed, req)
	if err != nil {
		t.Fatalf("ListRange error: %v", err)
	}
	if rows := resp.GetFields()["rows"].GetListValue().GetValues(); len(rows) != 1 {
		t.Fatalf("rows = %v", rows)
	}
}

func TestDefaultRequestTimeout_KeepsCallerDeadline(t *testing.T) {
	icpt := DefaultRequestTimeout(time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	want, _ := ctx.Deadline()

	_, _ = icpt(ctx, nil, &grpc.UnaryServerInfo{}, func(ctx context.Context, _ any) (any, error) {
		if got, _ := ctx.Deadline(); !got.Equal(want) {
			t.Fatalf("deadline = %v, want %v", got, want)
		}
		return nil, nil
	})
}
