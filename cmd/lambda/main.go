package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/google/uuid"

	"github.com/michellemazo-scentco/fundraiseathon-klayvio-integration/internal/api"
	"github.com/michellemazo-scentco/fundraiseathon-klayvio-integration/internal/config"
	"github.com/michellemazo-scentco/fundraiseathon-klayvio-integration/internal/klaviyo"
	"github.com/michellemazo-scentco/fundraiseathon-klayvio-integration/internal/relay"
)

// app carries the state built once per cold start and reused across
// invocations.
type app struct {
	handler *api.Handler
}

// newApp wires the relay from environment variables alone; Lambda ships
// no config file. A validation failure is carried into the handler so
// deliveries get a machine-readable 500 instead of a crash loop.
func newApp() *app {
	cfg := config.FromEnv()
	cfgErr := cfg.Validate()

	client := klaviyo.NewClient(klaviyo.Config{
		BaseURL:  cfg.Klaviyo.BaseURL,
		APIKey:   cfg.Klaviyo.APIKey,
		Revision: cfg.Klaviyo.Revision,
		Timeout:  cfg.Klaviyo.Timeout(),
	})
	svc := relay.NewService(client, cfg.Klaviyo, cfg.Intake)

	return &app{handler: api.NewHandler(svc, cfg.Intake.SharedSecret, cfgErr)}
}

func (a *app) handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	body := []byte(req.Body)
	if req.IsBase64Encoded {
		if decoded, err := base64.StdEncoding.DecodeString(req.Body); err == nil {
			body = decoded
		}
	}

	// Prefer the caller's correlation ID, then API Gateway's, so the
	// response lines up with whichever delivery log exists.
	requestID := headerValue(req.Headers, "X-Request-ID")
	if requestID == "" {
		requestID = req.RequestContext.RequestID
	}
	if requestID == "" {
		requestID = uuid.New().String()
	}

	status, resp := a.handler.Process(ctx, req.HTTPMethod,
		headerValue(req.Headers, "Authorization"),
		headerValue(req.Headers, "Content-Type"),
		body, requestID)

	payload, _ := json.Marshal(resp)
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type": "application/json",
			"X-Request-ID": requestID,
		},
		Body: string(payload),
	}, nil
}

// headerValue reads a header case-insensitively; API Gateway forwards
// whatever casing the caller used.
func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

func main() {
	lambda.Start(newApp().handle)
}
