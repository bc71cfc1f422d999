package rpcjson

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/sillsdev/liftmerge/internal/application"
	"github.com/sillsdev/liftmerge/internal/domain"
	"github.com/sillsdev/liftmerge/internal/platform/logger"
)

type Server struct {
	service  *application.ImportService
	log      *logger.Logger
	listener net.Listener
	path     string
}

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      any             `json:"id"`
}

type response struct {
	JSONRPC string    `json:"jsonrpc"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
	ID      any       `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// listParams covers the optional filters of every list method.
type listParams struct {
	Q     string `json:"q"`
	Type  string `json:"type"`
	Owner string `json:"owner"`
	List  string `json:"list"`
	Kind  string `json:"kind"`
	Limit int    `json:"limit"`
}

// Start listens on a unix socket at path, readable by the owner only.
func Start(path string, service *application.ImportService, log *logger.Logger) (*Server, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("rpc socket path is required")
	}
	if log == nil {
		log = logger.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	_ = os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(path, 0o600); err != nil {
		_ = ln.Close()
		_ = os.Remove(path)
		return nil, err
	}

	s := &Server{service: service, log: log, listener: ln, path: path}
	go s.serve()
	return s, nil
}

func (s *Server) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handleConn(conn)
	}
}

func (s *Server) Close() error {
	err := s.listener.Close()
	_ = os.Remove(s.path)
	return err
}

func (s *Server) handleConn(conn net.Conn) {
	defer func() { _ = conn.Close() }()
	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)

	for {
		var req request
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			_ = enc.Encode(response{JSONRPC: "2.0", Error: &rpcError{Code: -32700, Message: "parse error"}, ID: nil})
			return
		}

		resp := s.dispatch(context.Background(), req)
		if resp.Error != nil {
			s.log.Debug("rpc call failed", "method", req.Method, "code", resp.Error.Code, "message", resp.Error.Message)
		}
		if err := enc.Encode(resp); err != nil {
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, req request) response {
	if req.JSONRPC != "2.0" || strings.TrimSpace(req.Method) == "" {
		return response{JSONRPC: "2.0", Error: &rpcError{Code: -32600, Message: "invalid request"}, ID: req.ID}
	}

	switch req.Method {
	case "import.run":
		var p struct {
			Token string `json:"token"`
			application.ImportPayload
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		if !s.service.Authorize(p.Token) {
			return response{JSONRPC: "2.0", Error: &rpcError{Code: 40100, Message: "unauthorized"}, ID: req.ID}
		}
		out, err := s.service.ImportLIFT(ctx, p.ImportPayload.Request())
		if err != nil {
			return appError(req.ID, err)
		}
		return reply(req.ID, out, nil)
	case "entries.list":
		var p listParams
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.ListEntries(ctx, p.Q, p.Limit)
		return reply(req.ID, out, err)
	case "entries.get":
		var p struct {
			GUID string `json:"guid"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.GetEntry(ctx, p.GUID)
		return reply(req.ID, out, err)
	case "relations.list":
		var p listParams
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.ListLinks(ctx, p.Type, p.Limit)
		return reply(req.ID, out, err)
	case "types.list":
		var p listParams
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.ListReferenceTypes(ctx, p.Q, p.Limit)
		return reply(req.ID, out, err)
	case "fields.list":
		var p listParams
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.ListFieldDefs(ctx, p.Owner, p.Q, p.Limit)
		return reply(req.ID, out, err)
	case "lists.list":
		var p listParams
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		if strings.TrimSpace(p.List) != "" {
			out, err := s.service.ListPossibilities(ctx, p.List, p.Limit)
			return reply(req.ID, out, err)
		}
		out, err := s.service.ListPossibilityLists(ctx, p.Limit)
		return reply(req.ID, out, err)
	case "runs.list":
		var p listParams
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.ListImportRuns(ctx, p.Limit)
		return reply(req.ID, out, err)
	case "runs.log":
		var p struct {
			RunID uint   `json:"run_id"`
			Kind  string `json:"kind"`
			Limit int    `json:"limit"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.ListMergeLog(ctx, p.RunID, p.Kind, p.Limit)
		return reply(req.ID, out, err)
	default:
		return response{JSONRPC: "2.0", Error: &rpcError{Code: -32601, Message: "method not found"}, ID: req.ID}
	}
}

func reply(id any, v any, err error) response {
	if err != nil {
		return appError(id, err)
	}
	return response{JSONRPC: "2.0", Result: v, ID: id}
}

func decodeParams(raw json.RawMessage, out any) bool {
	if len(raw) == 0 || string(raw) == "null" {
		return true
	}
	return json.Unmarshal(raw, out) == nil
}

func invalidParams(id any) response {
	return response{JSONRPC: "2.0", Error: &rpcError{Code: -32602, Message: "invalid params"}, ID: id}
}

func appError(id any, err error) response {
	code := 50000
	switch {
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrInvalidMergeStyle):
		code = 40000
	case errors.Is(err, domain.ErrNotFound):
		code = 40400
	case errors.Is(err, domain.ErrImportInProgress):
		code = 40900
	case errors.Is(err, domain.ErrRepositoryUnavailable):
		code = 50300
	}
	return response{JSONRPC: "2.0", Error: &rpcError{Code: code, Message: err.Error()}, ID: id}
}
