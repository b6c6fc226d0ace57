package ussd

import (
	"io"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/kudifi/kudifi/internal/logging"
)

func setupApp(t *testing.T) (*fiber.App, *testEnv) {
	t.Helper()
	env := newTestEnv(t)
	handler := NewHandler(env.dispatcher, logging.Discard())

	app := fiber.New()
	app.Get("/", handler.Greeting)
	app.Post("/", handler.Serve)
	return app, env
}

func postForm(t *testing.T, app *fiber.App, phoneNumber, text string) string {
	t.Helper()
	form := url.Values{}
	form.Set("sessionId", "sess-1")
	form.Set("serviceCode", "*714#")
	form.Set("phoneNumber", phoneNumber)
	form.Set("text", text)

	req := httptest.NewRequest(fiber.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.StatusCode, body)
	}
	return string(body)
}

func TestGreeting(t *testing.T) {
	app, _ := setupApp(t)

	req := httptest.NewRequest(fiber.MethodGet, "/", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if string(body) != "Hello, World!" {
		t.Fatalf("unexpected greeting: %q", body)
	}
}

func TestGatewayFormBody(t *testing.T) {
	app, _ := setupApp(t)

	body := postForm(t, app, "0541234567", "")
	if !strings.HasPrefix(body, "CON Welcome to Kudifi") {
		t.Fatalf("unexpected body: %q", body)
	}
}

func TestGatewayJSONBody(t *testing.T) {
	app, _ := setupApp(t)

	payload := `{"sessionId":"s","serviceCode":"*714#","phoneNumber":"0541234567","text":"1"}`
	req := httptest.NewRequest(fiber.MethodPost, "/", strings.NewReader(payload))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.HasPrefix(string(body), "CON Wallet created:") {
		t.Fatalf("unexpected body: %q", body)
	}
}

func TestGatewayResponsesAlwaysTerminate(t *testing.T) {
	app, _ := setupApp(t)

	// Every response must begin with CON or END, whatever the input.
	inputs := []string{"", "1", "garbage", "1*2*3*4*5*6*7", "9999"}
	for _, text := range inputs {
		body := postForm(t, app, "0541234567", text)
		if !strings.HasPrefix(body, "CON ") && !strings.HasPrefix(body, "END ") {
			t.Fatalf("input %q: response %q has no CON/END marker", text, body)
		}
	}
}

func TestGatewayMissingPhoneNumber(t *testing.T) {
	app, _ := setupApp(t)

	body := postForm(t, app, "", "1")
	if !strings.HasPrefix(body, "END ") {
		t.Fatalf("missing phone must terminate, got %q", body)
	}
}
