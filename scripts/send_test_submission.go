//go:build ignore
// +build ignore

// Sends a sample fundraiser submission to a running relay, as either a
// JSON or a form-encoded delivery.
//
// Usage:
//
//	go run scripts/send_test_submission.go \
//	  --url=http://localhost:8080/webhook/fundraiseathon \
//	  --secret=changeme \
//	  --email=jane@example.com \
//	  --form
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

var (
	relayURL  = flag.String("url", "http://localhost:8080/webhook/fundraiseathon", "webhook endpoint")
	secret    = flag.String("secret", "", "shared secret, sent as a bearer token when set")
	email     = flag.String("email", "jane@example.com", "submission email")
	name      = flag.String("name", "Jane Doe", "submission full name")
	phone     = flag.String("phone", "+15551234567", "submission phone, empty to omit")
	marketing = flag.String("marketing", "on", "marketing opt-in value")
	asForm    = flag.Bool("form", false, "send form-encoded instead of JSON")
)

func main() {
	flag.Parse()

	fields := map[string]string{
		"email":          *email,
		"name":           *name,
		"marketing":      *marketing,
		"city":           "Los Angeles",
		"state":          "CA",
		"zip":            "90001",
		"goal":           "500",
		"group":          "Troop 42",
		"payment_method": "card",
	}
	if *phone != "" {
		fields["phone"] = *phone
	}

	var body []byte
	contentType := "application/json"
	if *asForm {
		values := url.Values{}
		for k, v := range fields {
			values.Set(k, v)
		}
		body = []byte(values.Encode())
		contentType = "application/x-www-form-urlencoded"
	} else {
		body, _ = json.Marshal(fields)
	}

	req, err := http.NewRequest(http.MethodPost, *relayURL, bytes.NewReader(body))
	if err != nil {
		log.Fatalf("bad url: %v", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Request-ID", "smoke-"+uuid.New().String()[:8])
	if *secret != "" {
		req.Header.Set("Authorization", "Bearer "+*secret)
	}

	client := &http.Client{Timeout: 2 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("delivery failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	fmt.Printf("HTTP %d\n", resp.StatusCode)

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, respBody, "", "  "); err == nil {
		fmt.Println(pretty.String())
	} else {
		fmt.Println(string(respBody))
	}
}
