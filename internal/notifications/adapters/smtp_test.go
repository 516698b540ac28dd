package adapters

import (
	"bufio"
	"context"
	"net"
	"net/textproto"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"user-lifecycle/internal/notifications/domain"
)

// fakeSMTPServer accepts one session and records the envelope and data.
type fakeSMTPServer struct {
	addr string
	done chan struct{}
	from string
	rcpt []string
	data string
}

func startFakeSMTPServer(t *testing.T) *fakeSMTPServer {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { lis.Close() })

	s := &fakeSMTPServer{addr: lis.Addr().String(), done: make(chan struct{})}
	go func() {
		defer close(s.done)
		conn, err := lis.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		s.serve(textproto.NewConn(conn))
	}()
	return s
}

func (s *fakeSMTPServer) serve(c *textproto.Conn) {
	_ = c.PrintfLine("220 localhost ESMTP")
	for {
		line, err := c.ReadLine()
		if err != nil {
			return
		}
		cmd := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
			_ = c.PrintfLine("250 localhost")
		case strings.HasPrefix(cmd, "MAIL FROM:"):
			s.from = strings.Trim(line[len("MAIL FROM:"):], "<> ")
			_ = c.PrintfLine("250 OK")
		case strings.HasPrefix(cmd, "RCPT TO:"):
			s.rcpt = append(s.rcpt, strings.Trim(line[len("RCPT TO:"):], "<> "))
			_ = c.PrintfLine("250 OK")
		case cmd == "DATA":
			_ = c.PrintfLine("354 End data with <CR><LF>.<CR><LF>")
			body, err := c.ReadDotBytes()
			if err != nil {
				return
			}
			s.data = string(body)
			_ = c.PrintfLine("250 OK")
		case cmd == "QUIT":
			_ = c.PrintfLine("221 Bye")
			return
		default:
			_ = c.PrintfLine("502 Command not implemented")
		}
	}
}

func hostPort(t *testing.T, addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return host, port
}

func TestSMTPMailer_Send(t *testing.T) {
	server := startFakeSMTPServer(t)
	host, port := hostPort(t, server.addr)

	mailer, err := NewSMTPMailer(SMTPConfig{Host: host, Port: port, From: "noreply@example.com", Timeout: 5 * time.Second})
	require.NoError(t, err)

	err = mailer.Send(context.Background(), domain.WelcomeMessage("alice@x.com", "Alice"))
	require.NoError(t, err)

	select {
	case <-server.done:
	case <-time.After(5 * time.Second):
		t.Fatal("smtp session did not finish")
	}

	assert.Equal(t, "noreply@example.com", server.from)
	assert.Equal(t, []string{"alice@x.com"}, server.rcpt)
	assert.Contains(t, server.data, "Subject: Welcome!")
	assert.Contains(t, server.data, "Hello, Alice! Your account has been successfully created.")
}

func TestSMTPMailer_DialFailure(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	host, port := hostPort(t, lis.Addr().String())
	lis.Close()

	mailer, err := NewSMTPMailer(SMTPConfig{Host: host, Port: port, From: "noreply@example.com", Timeout: time.Second})
	require.NoError(t, err)

	err = mailer.Send(context.Background(), domain.WelcomeMessage("alice@x.com", "Alice"))
	assert.Error(t, err)
}

func TestNewSMTPMailer_RequiresHost(t *testing.T) {
	_, err := NewSMTPMailer(SMTPConfig{})
	assert.Error(t, err)
}

func TestBuildMessage(t *testing.T) {
	raw := string(buildMessage("noreply@example.com", domain.AccountDeletedMessage("bob@x.com", "Bob")))

	lines := bufio.NewScanner(strings.NewReader(raw))
	var headers []string
	for lines.Scan() && lines.Text() != "" {
		headers = append(headers, lines.Text())
	}

	assert.Contains(t, headers, "From: noreply@example.com")
	assert.Contains(t, headers, "To: bob@x.com")
	assert.Contains(t, headers, "Subject: Account deleted")
	assert.True(t, strings.HasSuffix(raw, "Hello, Bob! Your account has been deleted.\r\n"))
}
