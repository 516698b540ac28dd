package infrastructure

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	notificationsv1 "user-lifecycle/api/notifications/v1"
	"user-lifecycle/internal/notifications/application"
	"user-lifecycle/internal/notifications/domain"
	"user-lifecycle/pkg/breaker"
	"user-lifecycle/pkg/errors"
	grpcpkg "user-lifecycle/pkg/grpc"
	"user-lifecycle/pkg/logger"
	"user-lifecycle/pkg/middleware"
)

type stubMailer struct {
	mu   sync.Mutex
	sent []domain.Message
	err  error
}

func (m *stubMailer) Send(ctx context.Context, msg domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type stubRecorder struct {
	mu    sync.Mutex
	stats domain.DeliveryStats
}

func (r *stubRecorder) Record(ctx context.Context, outcome domain.Outcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch outcome {
	case domain.OutcomeSent:
		r.stats.Sent++
	case domain.OutcomeFailed:
		r.stats.Failed++
	}
	return nil
}

func (r *stubRecorder) Stats(ctx context.Context) (domain.DeliveryStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats, nil
}

func newGateway(mailer *stubMailer) (*application.MailGateway, *breaker.Registry) {
	log := logger.New("test", "error")
	reg := breaker.NewRegistry(breaker.Config{MaxRequests: 1, Timeout: time.Hour, ConsecutiveFailures: 3}, log)
	return application.NewMailGateway(mailer, &stubRecorder{}, reg, log), reg
}

func newRouter(mailer *stubMailer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	gateway, reg := newGateway(mailer)

	router := gin.New()
	router.Use(middleware.TraceID())
	router.Use(middleware.ErrorHandler(logger.New("test", "error")))
	NewHTTPHandler(gateway, reg).RegisterRoutes(router.Group("/api"))
	return router
}

func post(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func delivered(t *testing.T, w *httptest.ResponseRecorder) bool {
	t.Helper()
	var body struct {
		Data SendResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Data.Delivered
}

func TestHTTP_SendEmail(t *testing.T) {
	mailer := &stubMailer{}
	router := newRouter(mailer)

	w := post(router, "/api/notifications/email", `{"to":"a@x.com","subject":"Hi","body":"there"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, delivered(t, w))
	assert.Equal(t, []domain.Message{{To: "a@x.com", Subject: "Hi", Body: "there"}}, mailer.sent)
}

func TestHTTP_SendEmailValidation(t *testing.T) {
	router := newRouter(&stubMailer{})

	assert.Equal(t, http.StatusBadRequest, post(router, "/api/notifications/email", `{"subject":"Hi"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(router, "/api/notifications/email", `{`).Code)
	assert.Equal(t, http.StatusBadRequest, post(router, "/api/notifications/user-created?userName=A", "").Code)
}

func TestHTTP_TemplatedSends(t *testing.T) {
	mailer := &stubMailer{}
	router := newRouter(mailer)

	require.Equal(t, http.StatusOK, post(router, "/api/notifications/user-created?email=a@x.com&userName=Alice", "").Code)
	require.Equal(t, http.StatusOK, post(router, "/api/notifications/user-deleted?email=a@x.com&userName=Alice", "").Code)

	require.Len(t, mailer.sent, 2)
	assert.Equal(t, domain.WelcomeMessage("a@x.com", "Alice"), mailer.sent[0])
	assert.Equal(t, domain.AccountDeletedMessage("a@x.com", "Alice"), mailer.sent[1])
}

func TestHTTP_TransportFailureStillAnswers(t *testing.T) {
	router := newRouter(&stubMailer{err: stderrors.New("smtp down")})

	w := post(router, "/api/notifications/email", `{"to":"a@x.com","subject":"Hi"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, delivered(t, w))
}

func TestHTTP_HealthAndStats(t *testing.T) {
	router := newRouter(&stubMailer{})
	post(router, "/api/notifications/email", `{"to":"a@x.com"}`)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/notifications/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"sent":1`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/notifications/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"emailService"`)
}

func newClient(t *testing.T, mailer *stubMailer) notificationsv1.NotificationServiceClient {
	t.Helper()

	gateway, _ := newGateway(mailer)
	lis := bufconn.Listen(1024 * 1024)
	server := grpc.NewServer(grpc.UnaryInterceptor(grpcpkg.UnaryServerInterceptor(logger.New("test", "error"), 0)))
	notificationsv1.RegisterNotificationServiceServer(server, NewGRPCServer(gateway))
	go server.Serve(lis)
	t.Cleanup(server.Stop)

	conn, err := grpc.DialContext(context.Background(), "bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(grpcpkg.UnaryClientInterceptor(0)),
		grpcpkg.CallOption(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return notificationsv1.NewNotificationServiceClient(conn)
}

func TestGRPC_Notifications(t *testing.T) {
	mailer := &stubMailer{}
	client := newClient(t, mailer)
	ctx := context.Background()

	resp, err := client.NotifyUserCreated(ctx, &notificationsv1.UserNotificationRequest{Email: "a@x.com", UserName: "Alice"})
	require.NoError(t, err)
	assert.True(t, resp.Delivered)

	resp, err = client.SendEmail(ctx, &notificationsv1.SendEmailRequest{To: "b@x.com", Subject: "S", Body: "B"})
	require.NoError(t, err)
	assert.True(t, resp.Delivered)

	_, err = client.NotifyUserDeleted(ctx, &notificationsv1.UserNotificationRequest{UserName: "Alice"})
	assert.True(t, errors.Is(err, errors.CodeValidation), "got %v", err)

	require.Len(t, mailer.sent, 2)
	assert.Equal(t, "Welcome!", mailer.sent[0].Subject)
}
