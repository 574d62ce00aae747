package handler

import (
	"context"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/rl1809/record-catalog/internal/core/domain"
)

const ServiceName = "catalog.v1.CatalogService"

type UpdateRecordRequest struct {
	ID     string              `json:"id"`
	Record domain.UpdateRecord `json:"record"`
}

type AdjustStockRequest struct {
	ID    string `json:"id"`
	Delta int    `json:"delta"`
}

type GetRequest struct {
	ID string `json:"id"`
}

type ListOrdersRequest struct{}

type GRPCHandler struct {
	catalog Catalog
	orders  Orders
	logger  *slog.Logger
}

func NewGRPCHandler(catalog Catalog, orders Orders, logger *slog.Logger) *GRPCHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GRPCHandler{catalog: catalog, orders: orders, logger: logger}
}

// Register installs the catalog service and a health service on s.
func (h *GRPCHandler) Register(s *grpc.Server) *health.Server {
	s.RegisterService(&serviceDesc, h)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(s, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	return healthServer
}

func (h *GRPCHandler) CreateRecord(ctx context.Context, req *domain.CreateRecord) (*domain.Envelope[*domain.Record], error) {
	resp, err := h.catalog.CreateRecord(ctx, *req)
	return resp, grpcError(err)
}

func (h *GRPCHandler) UpdateRecord(ctx context.Context, req *UpdateRecordRequest) (*domain.Envelope[*domain.Record], error) {
	resp, err := h.catalog.UpdateRecord(ctx, req.ID, req.Record)
	return resp, grpcError(err)
}

func (h *GRPCHandler) ListRecords(ctx context.Context, req *domain.ListQuery) (*domain.Envelope[*domain.RecordPage], error) {
	resp, err := h.catalog.ListRecords(ctx, *req)
	return resp, grpcError(err)
}

func (h *GRPCHandler) AdjustStock(ctx context.Context, req *AdjustStockRequest) (*domain.Envelope[*domain.Record], error) {
	resp, err := h.catalog.AdjustStock(ctx, req.ID, req.Delta)
	return resp, grpcError(err)
}

func (h *GRPCHandler) GetRecord(ctx context.Context, req *GetRequest) (*domain.Envelope[*domain.Record], error) {
	resp, err := h.catalog.GetRecord(ctx, req.ID)
	return resp, grpcError(err)
}

func (h *GRPCHandler) PlaceOrder(ctx context.Context, req *domain.PlaceOrder) (*domain.Envelope[*domain.Order], error) {
	resp, err := h.orders.PlaceOrder(ctx, *req)
	return resp, grpcError(err)
}

func (h *GRPCHandler) ListOrders(ctx context.Context, _ *ListOrdersRequest) (*domain.Envelope[[]domain.Order], error) {
	resp, err := h.orders.ListOrders(ctx)
	return resp, grpcError(err)
}

func (h *GRPCHandler) GetOrder(ctx context.Context, req *GetRequest) (*domain.Envelope[*domain.Order], error) {
	resp, err := h.orders.GetOrder(ctx, req.ID)
	return resp, grpcError(err)
}

func grpcError(err error) error {
	if err == nil {
		return nil
	}
	var code codes.Code
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		code = codes.NotFound
	case domain.KindBadRequest:
		code = codes.InvalidArgument
	case domain.KindConflict:
		code = codes.AlreadyExists
	default:
		code = codes.Internal
	}
	return status.Error(code, err.Error())
}

// unary adapts a typed handler method to grpc.MethodHandler.
func unary[Req, Resp any](method string, call func(*GRPCHandler, context.Context, *Req) (Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "decode request: %v", err)
		}
		h := srv.(*GRPCHandler)
		if interceptor == nil {
			return call(h, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(h, ctx, req.(*Req))
		})
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateRecord", Handler: unary("CreateRecord", (*GRPCHandler).CreateRecord)},
		{MethodName: "UpdateRecord", Handler: unary("UpdateRecord", (*GRPCHandler).UpdateRecord)},
		{MethodName: "ListRecords", Handler: unary("ListRecords", (*GRPCHandler).ListRecords)},
		{MethodName: "AdjustStock", Handler: unary("AdjustStock", (*GRPCHandler).AdjustStock)},
		{MethodName: "GetRecord", Handler: unary("GetRecord", (*GRPCHandler).GetRecord)},
		{MethodName: "PlaceOrder", Handler: unary("PlaceOrder", (*GRPCHandler).PlaceOrder)},
		{MethodName: "ListOrders", Handler: unary("ListOrders", (*GRPCHandler).ListOrders)},
		{MethodName: "GetOrder", Handler: unary("GetOrder", (*GRPCHandler).GetOrder)},
	},
}
