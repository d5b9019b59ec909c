package proxy

import (
	"context"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/proxy"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
)

const Timeout = 120 * time.Second

type dialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

func socksDialer(socksAddr string) (dialFunc, error) {
	dialer, err := proxy.SOCKS5("tcp", socksAddr, nil, proxy.Direct)
	if err != nil {
		return nil, err
	}

	if cd, ok := dialer.(proxy.ContextDialer); ok {
		return cd.DialContext, nil
	}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return dialer.Dial(network, addr)
	}, nil
}

// NewHTTPClient returns a client for the OpenAI-compatible APIs,
// routed through a SOCKS5 proxy when socksAddr is set.
func NewHTTPClient(socksAddr string) (*http.Client, error) {
	if socksAddr == "" {
		return &http.Client{Timeout: Timeout}, nil
	}

	dial, err := socksDialer(socksAddr)
	if err != nil {
		return nil, err
	}

	return &http.Client{
		Transport: &http.Transport{DialContext: dial},
		Timeout:   Timeout,
	}, nil
}

// GRPCOptions routes the Google Cloud gRPC clients through the same proxy.
// It returns no options when socksAddr is empty.
func GRPCOptions(socksAddr string) ([]option.ClientOption, error) {
	if socksAddr == "" {
		return nil, nil
	}

	dial, err := socksDialer(socksAddr)
	if err != nil {
		return nil, err
	}

	return []option.ClientOption{
		option.WithGRPCDialOption(grpc.WithContextDialer(func(ctx context.Context, addr string) (net.Conn, error) {
			return dial(ctx, "tcp", addr)
		})),
	}, nil
}
