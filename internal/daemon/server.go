package daemon

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mcp-gateway/toolkit/internal/gwerrors"
	"github.com/mcp-gateway/toolkit/internal/socket"
)

// Server is the listening half of the stateful daemon (spec §4.8): it binds
// the IPC endpoint, dispatches newline-framed RPC requests to a Registry,
// and runs the periodic sweeper.
type Server struct {
	cfg      Config
	dir      string
	endpoint string
	token    string
	logger   *zap.Logger

	listener net.Listener
	registry *Registry
	eventLog *EventLog

	connsMu sync.Mutex
	conns   map[net.Conn]struct{}

	wg       sync.WaitGroup
	quit     chan struct{}
	quitOnce sync.Once
}

// ListenOptions configures Listen. Connector and Now default to
// session.Connect and time.Now; tests override them for determinism and to
// avoid spawning real upstream processes.
type ListenOptions struct {
	Config    Config
	Dir       string
	Logger    *zap.Logger
	Connector Connector
	Now       Clock
}

// Listen binds the daemon's IPC endpoint in dir, failing with
// SESSION_SERVICE_RUNNING if another instance already answers there (spec
// §4.8 startup probe).
func Listen(cfg Config, dir string, logger *zap.Logger) (*Server, error) {
	return ListenWithOptions(ListenOptions{Config: cfg, Dir: dir, Logger: logger})
}

// ListenWithOptions is Listen with full control over the registry's
// Connector/Clock, used by tests.
func ListenWithOptions(opts ListenOptions) (*Server, error) {
	cfg, dir, logger := opts.Config, opts.Dir, opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	endpoint, err := Endpoint(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve endpoint: %w", err)
	}

	if socket.Probe(endpoint) {
		return nil, gwerrors.New(gwerrors.KindSessionServiceRunning, "daemon", "Listen",
			"a daemon is already listening at this endpoint", map[string]any{"endpoint": endpoint})
	}

	ln, err := listen(endpoint)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}

	token, err := randomToken()
	if err != nil {
		_ = ln.Close()
		return nil, err
	}

	eventLog, err := OpenEventLog(filepath.Join(dir, "events.log"), cfg.EventLogMaxBytes, cfg.EventLogMaxFiles)
	if err != nil {
		_ = ln.Close()
		return nil, err
	}

	registry, err := NewRegistry(RegistryOptions{Config: cfg, Dir: dir, EventLog: eventLog, Connector: opts.Connector, Now: opts.Now})
	if err != nil {
		_ = ln.Close()
		return nil, err
	}

	startedAt := time.Now().UTC()
	sf := ServiceFile{PID: os.Getpid(), Endpoint: endpoint, Token: token, StartedAt: startedAt.Format(time.RFC3339Nano)}
	if err := writeServiceFile(dir, sf); err != nil {
		_ = ln.Close()
		return nil, err
	}

	return &Server{
		cfg:      cfg,
		dir:      dir,
		endpoint: endpoint,
		token:    token,
		logger:   logger,
		listener: ln,
		registry: registry,
		eventLog: eventLog,
		conns:    map[net.Conn]struct{}{},
		quit:     make(chan struct{}),
	}, nil
}

func randomToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate auth token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Serve accepts connections until ctx is canceled or Close is called.
func (s *Server) Serve(ctx context.Context) error {
	s.wg.Add(1)
	go s.sweepLoop(ctx)

	go func() {
		<-ctx.Done()
		_ = s.listener.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return nil
			case <-ctx.Done():
				return nil
			default:
				return fmt.Errorf("accept: %w", err)
			}
		}
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *Server) sweepLoop(ctx context.Context) {
	defer s.wg.Done()
	interval := time.Duration(s.cfg.SweepIntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			s.registry.Sweep()
		case <-ctx.Done():
			return
		case <-s.quit:
			return
		}
	}
}

func (s *Server) trackConn(conn net.Conn) {
	s.connsMu.Lock()
	s.conns[conn] = struct{}{}
	s.connsMu.Unlock()
}

func (s *Server) untrackConn(conn net.Conn) {
	s.connsMu.Lock()
	delete(s.conns, conn)
	s.connsMu.Unlock()
}

func (s *Server) handleConn(conn net.Conn) {
	s.trackConn(conn)
	defer s.wg.Done()
	defer s.untrackConn(conn)
	defer conn.Close()

	idleTimeout := time.Duration(s.cfg.SocketTimeoutMs) * time.Millisecond
	maxFrame := s.cfg.MaxFrameBytes
	if maxFrame <= 0 {
		maxFrame = 1 << 20
	}

	reader := bufio.NewReaderSize(conn, 4096)
	writer := bufio.NewWriter(conn)

	for {
		if idleTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(idleTimeout))
		}

		line, err := readFrameLine(reader, maxFrame)
		if err != nil {
			if err == errFrameTooLarge {
				s.writeReply(writer, Reply{OK: false, Error: replyErrorFor(
					gwerrors.New(gwerrors.KindSessionFrameTooLarge, "daemon", "handleConn",
						"request frame exceeded maxFrameBytes", nil))})
			}
			return
		}
		if len(line) == 0 {
			continue
		}

		var frame Frame
		if err := json.Unmarshal(line, &frame); err != nil {
			s.writeReply(writer, Reply{OK: false, Error: replyErrorFor(
				gwerrors.New(gwerrors.KindSessionRPCInvalidJSON, "daemon", "handleConn",
					"request frame was not valid JSON", nil))})
			continue
		}

		if frame.Token != s.token {
			s.writeReply(writer, Reply{ID: frame.ID, OK: false, Error: replyErrorFor(
				gwerrors.New(gwerrors.KindSessionUnauthorized, "daemon", "handleConn",
					"request token did not match the service token", nil))})
			continue
		}

		reply := s.dispatch(context.Background(), frame)
		s.writeReply(writer, reply)
	}
}

var errFrameTooLarge = fmt.Errorf("frame exceeds maxFrameBytes")

// readFrameLine reads one newline-terminated frame, bounded to maxBytes.
func readFrameLine(r *bufio.Reader, maxBytes int) ([]byte, error) {
	var buf []byte
	for {
		chunk, isPrefix, err := r.ReadLine()
		if err != nil {
			return nil, err
		}
		buf = append(buf, chunk...)
		if len(buf) > maxBytes {
			return nil, errFrameTooLarge
		}
		if !isPrefix {
			return buf, nil
		}
	}
}

func (s *Server) writeReply(w *bufio.Writer, reply Reply) {
	data, err := json.Marshal(reply)
	if err != nil {
		return
	}
	data = append(data, '\n')
	_, _ = w.Write(data)
	_ = w.Flush()
}

func replyErrorFor(err error) *ReplyError {
	kind, ok := gwerrors.KindOf(err)
	if !ok {
		return &ReplyError{Kind: string(gwerrors.KindSessionInternal), Message: err.Error()}
	}
	return &ReplyError{Kind: string(kind), Message: err.Error()}
}

// Close stops accepting connections, closes every active session as
// service_shutdown, persists, and removes service.json and the endpoint
// (spec §4.8 shutdown).
func (s *Server) Close() error {
	s.quitOnce.Do(func() { close(s.quit) })
	_ = s.listener.Close()

	s.connsMu.Lock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.connsMu.Unlock()

	s.wg.Wait()

	s.registry.Shutdown()

	if err := removeServiceFile(s.dir); err != nil {
		s.logger.Warn("failed to remove service.json", zap.Error(err))
	}
	if err := removeEndpoint(s.endpoint); err != nil {
		s.logger.Warn("failed to remove endpoint", zap.Error(err))
	}
	return nil
}

// Endpoint returns the bound IPC endpoint path.
func (s *Server) Endpoint() string { return s.endpoint }

// Token returns the service auth token, written into service.json.
func (s *Server) Token() string { return s.token }
