package rpc

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// DetectorClient 封装检测服务的 gRPC 健康探测客户端
type DetectorClient struct {
	addr string
	cli  healthpb.HealthClient
}

// NewDetectorClient 创建检测服务探测客户端实例
func NewDetectorClient(addr string) *DetectorClient {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		slog.Error("NewDetectorClient", "err", err)
		return nil
	}

	cli := healthpb.NewHealthClient(conn)

	go func() {
		resp, err := cli.Check(context.Background(), &healthpb.HealthCheckRequest{})
		if err != nil {
			slog.Error("detector HealthCheck", "addr", addr, "err", err)
			return
		}
		if resp.GetStatus() == healthpb.HealthCheckResponse_SERVING {
			slog.Info("detector HealthCheck OK", "addr", addr)
		} else {
			slog.Error("detector HealthCheck", "addr", addr, "status", resp.GetStatus().String())
		}
	}()

	return &DetectorClient{addr: addr, cli: cli}
}

// Addr 返回探测目标地址
func (d *DetectorClient) Addr() string {
	if d == nil {
		return ""
	}
	return d.addr
}

// Check 探测检测服务健康状态, 返回状态描述
func (d *DetectorClient) Check(ctx context.Context) (string, error) {
	if d == nil || d.cli == nil {
		return "", errors.New("detector rpc not configured")
	}
	resp, err := d.cli.Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return "", err
	}
	return resp.GetStatus().String(), nil
}
