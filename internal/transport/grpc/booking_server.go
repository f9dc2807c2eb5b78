package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"slotbook/internal/auth"
	"slotbook/internal/domain"
	"slotbook/internal/service/bookings"
)

type BookingServer struct {
	svc bookingService
	log *zap.Logger
}

type bookingService interface {
	Availability(ctx context.Context, date string, cred auth.Credential) (bookings.Availability, error)
	FreeSlots(ctx context.Context, date string, durationMin int) ([]domain.TimePoint, error)
	ListRange(ctx context.Context, start, end string, cred auth.Credential, query string) ([]domain.Row, error)
	Mutate(ctx context.Context, date string, a domain.Action, cred auth.Credential) error
}

var _ BookingServiceServer = (*BookingServer)(nil)

func NewBookingServer(svc bookingService, log *zap.Logger) *BookingServer {
	if log == nil {
		log = zap.NewNop()
	}
	return &BookingServer{
		svc: svc,
		log: log.With(zap.String("component", "grpc.bookings")),
	}
}

func (s *BookingServer) GetAvailability(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(zap.String("rpc", "GetAvailability"))
	if req == nil {
		log.Warn("invalid request", zap.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	date := stringField(req, "date")
	av, err := s.svc.Availability(ctx, date, credential(ctx))
	if err != nil {
		return nil, s.statusError(log, err, zap.String("date", date))
	}
	return toStruct(av)
}

func (s *BookingServer) FreeSlots(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(zap.String("rpc", "FreeSlots"))
	if req == nil {
		log.Warn("invalid request", zap.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	date := stringField(req, "date")
	duration := intField(req, "durationMin")
	free, err := s.svc.FreeSlots(ctx, date, duration)
	if err != nil {
		return nil, s.statusError(log, err, zap.String("date", date))
	}
	return toStruct(map[string]any{
		"date":        date,
		"durationMin": domain.ClampDuration(duration),
		"slots":       free,
	})
}

func (s *BookingServer) ListRange(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(zap.String("rpc", "ListRange"))
	if req == nil {
		log.Warn("invalid request", zap.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	start, end := stringField(req, "start"), stringField(req, "end")
	rows, err := s.svc.ListRange(ctx, start, end, credential(ctx), stringField(req, "q"))
	if err != nil {
		return nil, s.statusError(log, err, zap.String("start", start), zap.String("end", end))
	}

	log.Debug("rows listed", zap.String("start", start), zap.String("end", end), zap.Int("count", len(rows)))
	return toStruct(map[string]any{"rows": rows})
}

func (s *BookingServer) Mutate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(zap.String("rpc", "Mutate"))
	if req == nil {
		log.Warn("invalid request", zap.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	kind, err := domain.ParseActionKind(stringField(req, "action"))
	if err != nil {
		return nil, s.statusError(log, err)
	}

	date := strings.TrimSpace(stringField(req, "date"))
	err = s.svc.Mutate(ctx, date, domain.Action{
		Kind:         kind,
		Time:         stringField(req, "time"),
		DurationMin:  intField(req, "durationMin"),
		Name:         stringField(req, "name"),
		Phone:        stringField(req, "phone"),
		ServiceTitle: stringField(req, "serviceTitle"),
		Price:        stringField(req, "price"),
	}, credential(ctx))
	if err != nil {
		return nil, s.statusError(log, err, zap.String("date", date), zap.String("action", string(kind)))
	}
	return structpb.NewStruct(map[string]any{"ok": true})
}

// statusError maps service errors onto gRPC codes. Unexpected errors are logged and hidden.
func (s *BookingServer) statusError(log *zap.Logger, err error, fields ...zap.Field) error {
	fields = append(fields, zap.Error(err))

	var vErr *domain.ValidationError
	switch {
	case errors.As(err, &vErr):
		log.Warn("invalid request", fields...)
		return status.Error(codes.InvalidArgument, vErr.Error())
	case errors.Is(err, domain.ErrOutOfRange):
		log.Info("outside working hours", fields...)
		return status.Error(codes.OutOfRange, domain.ErrOutOfRange.Error())
	case errors.Is(err, bookings.ErrUnauthorized):
		log.Warn("unauthorized", fields...)
		return status.Error(codes.Unauthenticated, "unauthorized")
	case errors.Is(err, domain.ErrNotFound):
		log.Info("booking not found", fields...)
		return status.Error(codes.NotFound, domain.ErrNotFound.Error())
	case errors.Is(err, domain.ErrConflict):
		log.Info("time conflict", fields...)
		return status.Error(codes.FailedPrecondition, "That time is already taken. Pick a different slot.")
	default:
		log.Error("request failed", fields...)
		return status.Error(codes.Internal, "internal error")
	}
}

// credential reads x-admin-key, and a session token from "authorization: Bearer ...".
func credential(ctx context.Context) auth.Credential {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return auth.Credential{}
	}
	var cred auth.Credential
	if values := md.Get("x-admin-key"); len(values) > 0 {
		cred.Key = strings.TrimSpace(values[0])
	}
	if values := md.Get("authorization"); len(values) > 0 {
		if token, found := strings.CutPrefix(strings.TrimSpace(values[0]), "Bearer "); found {
			cred.Session = strings.TrimSpace(token)
		}
	}
	return cred
}

func stringField(req *structpb.Struct, key string) string {
	v, ok := req.GetFields()[key]
	if !ok {
		return ""
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return kind.StringValue
	default:
		return ""
	}
}

// intField accepts a number or a numeric string; anything else reads as zero.
func intField(req *structpb.Struct, key string) int {
	v, ok := req.GetFields()[key]
	if !ok {
		return 0
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		f := kind.NumberValue
		if math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt32 || f < math.MinInt32 {
			return 0
		}
		return int(f)
	case *structpb.Value_StringValue:
		i, err := strconv.ParseInt(strings.TrimSpace(kind.StringValue), 10, 32)
		if err != nil {
			return 0
		}
		return int(i)
	default:
		return 0
	}
}

// toStruct goes through JSON so responses match the HTTP bodies field for field.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}
