package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/stretchr/testify/suite"
	"golang.org/x/net/websocket"
)

// BaseHTTPSuite drives a running chathub instance over its public surface:
// the REST endpoints and the websocket gateway. It keeps one cookie set per
// logical client so session handling works the way a browser would.
type BaseHTTPSuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration before running tests.
func (s *BaseHTTPSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.ServerAddr == "" {
		s.T().Skip("SERVER_ADDR not set; no running server to test against")
	}
}

// Step prints a colorized header so scenario phases stand out in logs.
func (s *BaseHTTPSuite) Step(name string, fn func()) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
	s.Run(name, fn)
}

// DoJSON sends one JSON request with the given cookies, logging method,
// status and latency, plus full bodies when E2E_DEBUG_JSON is enabled.
// It returns the response with its body fully read and re-buffered.
func (s *BaseHTTPSuite) DoJSON(method, path string, body any, cookies []*http.Cookie) (*http.Response, []byte) {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, s.Config.ServerAddr+path, &buf)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	start := time.Now()
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err, "request to "+path+" failed")
	payload, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	s.Require().NoError(err)

	logBuilder := strings.Builder{}
	fmt.Fprintf(&logBuilder, "HTTP %s %s [%d] in %v", method, path, resp.StatusCode, time.Since(start))
	if s.Config.DebugJSON {
		fmt.Fprintln(&logBuilder, "\nREQUEST:")
		fmt.Fprintln(&logBuilder, buf.String())
		fmt.Fprintln(&logBuilder, "RESPONSE:")
		fmt.Fprintln(&logBuilder, string(payload))
	}
	s.T().Log(logBuilder.String())
	return resp, payload
}

// DialWS upgrades a websocket connection carrying the given session cookies.
func (s *BaseHTTPSuite) DialWS(cookies []*http.Cookie) *websocket.Conn {
	wsURL := "ws" + strings.TrimPrefix(s.Config.ServerAddr, "http") + "/ws"
	cfg, err := websocket.NewConfig(wsURL, s.Config.ServerAddr)
	s.Require().NoError(err)
	cfg.Header = make(http.Header)
	pairs := make([]string, 0, len(cookies))
	for _, c := range cookies {
		pairs = append(pairs, c.Name+"="+c.Value)
	}
	cfg.Header.Set("Cookie", strings.Join(pairs, "; "))

	conn, err := websocket.DialConfig(cfg)
	s.Require().NoError(err, "websocket upgrade failed")
	return conn
}

// wsFrame mirrors the gateway's wire unit.
type wsFrame struct {
	Event   string          `json:"event"`
	AckID   string          `json:"ackId,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func (s *BaseHTTPSuite) SendFrame(conn *websocket.Conn, frame wsFrame) {
	s.Require().NoError(websocket.JSON.Send(conn, frame))
}

// WaitForFrame reads frames until one with the wanted event name arrives,
// skipping unrelated traffic such as presence broadcasts.
func (s *BaseHTTPSuite) WaitForFrame(conn *websocket.Conn, event string) wsFrame {
	s.Require().NoError(conn.SetDeadline(time.Now().Add(5 * time.Second)))
	for {
		var frame wsFrame
		s.Require().NoError(websocket.JSON.Receive(conn, &frame), "waiting for %q", event)
		if frame.Event == event {
			return frame
		}
	}
}
