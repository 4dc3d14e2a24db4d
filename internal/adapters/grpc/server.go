package grpc

import (
	"context"

	"google.golang.org/grpc"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/viralforge/mesh/services/integrations/M31-social-publishing-service/internal/application"
)

type SocialPublishingInternalServer struct {
	grpc_health_v1.UnimplementedHealthServer
	service *application.Service
}

func NewSocialPublishingInternalServer(service *application.Service) *SocialPublishingInternalServer {
	return &SocialPublishingInternalServer{service: service}
}

func Register(server grpc.ServiceRegistrar, svc *SocialPublishingInternalServer) {
	grpc_health_v1.RegisterHealthServer(server, svc)
}

func (s *SocialPublishingInternalServer) Check(ctx context.Context, _ *grpc_health_v1.HealthCheckRequest) (*grpc_health_v1.HealthCheckResponse, error) {
	s.service.GetHealth(ctx)
	return &grpc_health_v1.HealthCheckResponse{Status: grpc_health_v1.HealthCheckResponse_SERVING}, nil
}

func (s *SocialPublishingInternalServer) Watch(*grpc_health_v1.HealthCheckRequest, grpc_health_v1.Health_WatchServer) error {
	return nil
}
