package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"bookfinder/internal/delivery"
	"bookfinder/internal/query"
)

func newDiagnoseCmd(a *app) *cobra.Command {
	var timeout time.Duration
	c := &cobra.Command{
		Use:   "diagnose",
		Short: "Check the web adapter and Open Library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			checks := []struct {
				name string
				run  func(context.Context) (string, error)
			}{
				{"Web adapter HTTP " + a.cfg.CLI.GatewayURL, a.checkGateway},
				{"Web adapter gRPC health " + a.cfg.Health.Address(), a.checkHealth},
				{"Open Library " + a.cfg.OpenLibrary.BaseURL, a.checkUpstream},
			}
			failed := 0
			for i, chk := range checks {
				fmt.Fprintf(a.out, "[%d] %s\n", i+1, chk.name)
				detail, err := chk.run(ctx)
				if err != nil {
					failed++
					fmt.Fprintln(a.out, errorStyle.Render("    FAIL ")+err.Error())
					continue
				}
				fmt.Fprintln(a.out, summaryStyle.UnsetMargins().Render("    PASS ")+detail)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d checks failed", failed, len(checks))
			}
			return nil
		},
	}
	c.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "overall timeout")
	return c
}

func (a *app) checkGateway(ctx context.Context) (string, error) {
	u := strings.TrimRight(a.cfg.CLI.GatewayURL, "/") + "/health"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d", res.StatusCode)
	}
	return res.Status, nil
}

func (a *app) checkHealth(ctx context.Context) (string, error) {
	conn, err := grpc.NewClient(a.cfg.Health.Address(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return "", err
	}
	defer conn.Close()
	res, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: delivery.HealthService})
	if err != nil {
		return "", err
	}
	if res.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return "", fmt.Errorf("status %s", res.GetStatus())
	}
	return res.GetStatus().String(), nil
}

func (a *app) checkUpstream(ctx context.Context) (string, error) {
	res, err := a.svc.Search(ctx, query.One(query.FieldTitle, "the hobbit"), 1)
	if err != nil {
		return "", err
	}
	if res.Total == nil {
		return fmt.Sprintf("%d books, count unknown", len(res.Books)), nil
	}
	return fmt.Sprintf("%d matches", *res.Total), nil
}
