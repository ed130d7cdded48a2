package e2e

import (
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"

	"github.com/clipcast/api/internal/client"
	"github.com/clipcast/api/internal/config"
	"github.com/clipcast/api/internal/handler"
	"github.com/clipcast/api/internal/logging"
	"github.com/clipcast/api/internal/middleware"
	"github.com/clipcast/api/internal/service"
	"github.com/clipcast/api/internal/store"
)

const testJWTSecret = "test-secret-for-e2e"

// testApp holds all components needed for testing
type testApp struct {
	app   *fiber.App
	store *store.Store
}

// setupApp creates a Fiber app wired like main.go but with a temp database
// and unconfigured external clients. Processing never runs here, so clips
// stay pending; that is enough to exercise the full HTTP surface.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "e2e.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	// Points at nothing; the limiter fails open when Redis is unreachable.
	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:0"})

	validate := validator.New()
	slogger := logging.New("error")

	// Unconfigured Groq client: chat generation fails upstream, which the
	// handler surfaces as 502.
	groqClient := client.NewGroqClient(&config.GroqConfig{})

	clipService := service.NewClipService(st, nil, slogger)
	conversationService := service.NewConversationService(st, groqClient, slogger)

	clipsHandler := handler.NewClipsHandler(clipService, validate)
	playbackHandler := handler.NewPlaybackHandler(clipService, validate)
	conversationsHandler := handler.NewConversationsHandler(conversationService, validate)

	authMiddleware := middleware.NewAuthMiddleware(testJWTSecret)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	app := fiber.New()

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api", authMiddleware.Authenticate())

	clips := api.Group("/clips")
	clips.Post("/", rateLimiter.ClipsLimit(10000), clipsHandler.Create)
	clips.Get("/", clipsHandler.List)
	clips.Get("/:id", clipsHandler.Get)
	clips.Patch("/:id/favorite", clipsHandler.SetFavorite)
	clips.Delete("/:id", clipsHandler.Delete)
	clips.Post("/:id/retry", clipsHandler.Retry)
	clips.Get("/:id/progress", playbackHandler.GetProgress)
	clips.Put("/:id/progress", playbackHandler.UpdateProgress)

	conversations := api.Group("/conversations")
	conversations.Post("/", conversationsHandler.Create)
	conversations.Get("/", conversationsHandler.List)
	conversations.Get("/:id", conversationsHandler.Get)
	conversations.Patch("/:id", conversationsHandler.Rename)
	conversations.Delete("/:id", conversationsHandler.Delete)
	conversations.Get("/:id/messages", conversationsHandler.Messages)
	conversations.Post("/:id/messages", rateLimiter.MessagesLimit(10000), conversationsHandler.SendMessage)

	return &testApp{app: app, store: st}
}

// generateToken creates an HMAC JWT token for test requests.
func generateToken(t *testing.T) string {
	t.Helper()
	claims := middleware.UserClaims{
		UserID: "test-user-123",
		Email:  "test@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer: "clipcast-api",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}
	return signed
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// doAuthRequest performs an authenticated request.
func doAuthRequest(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, error) {
	t.Helper()
	token := generateToken(t)
	return doRequest(app, method, path, body, map[string]string{
		"Authorization": "Bearer " + token,
	})
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}
