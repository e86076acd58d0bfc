package main

import (
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/neatpmd/neatpmd/internal/config"
	"github.com/neatpmd/neatpmd/internal/diag"
	"github.com/neatpmd/neatpmd/internal/repo"
	"github.com/neatpmd/neatpmd/pkg/policy"
)

// Server owns the pipeline and the listening socket. Its accept loop is
// single-threaded and request-at-a-time (spec §5): the whole
// Profiles->CIB->Policies pipeline runs to completion on the accepting
// goroutine before the next connection is accepted.
type Server struct {
	cfg      *config.Config
	log      *diag.Logger
	pipeline *policy.Pipeline
	listener net.Listener
}

// NewServer loads the CIB/PIB repositories named by cfg and builds a
// ready-to-run Server. Malformed repository files are logged as warnings
// and skipped (spec §7); an empty repository is not itself an error.
func NewServer(cfg *config.Config, logger *diag.Logger) (*Server, error) {
	cib, cibWarnings := repo.LoadCIB(cfg.CIBDir)
	logRepoWarnings(logger, "CIB", cibWarnings)

	profiles, profileWarnings := repo.LoadPIB(cfg.ProfileDir, ".profile")
	logRepoWarnings(logger, "profiles", profileWarnings)

	policies, policyWarnings := repo.LoadPIB(cfg.PolicyDir, ".policy")
	logRepoWarnings(logger, "policies", policyWarnings)

	pipeline := &policy.Pipeline{
		Profiles:      profiles,
		CIB:           cib,
		Policies:      policies,
		Candidates:    cfg.Candidates,
		CIBCandidates: cfg.CIBCandidates,
	}

	return &Server{cfg: cfg, log: logger, pipeline: pipeline}, nil
}

func logRepoWarnings(logger *diag.Logger, kind string, warnings *policy.MultiError) {
	for _, err := range warnings.Errors {
		logger.Warnf("%s: %s", kind, err)
	}
	if n := warnings.Count(); n > 0 {
		logger.Infof("%s: loaded with %d warning(s)", kind, n)
	}
}

// Run binds the configured socket and accepts connections until SIGINT,
// at which point it closes the socket and returns nil (spec §6.3's "exits
// 0 on SIGINT after closing the socket").
func (s *Server) Run() error {
	_ = os.Remove(s.cfg.Socket)
	ln, err := net.Listen("unix", s.cfg.Socket)
	if err != nil {
		return err
	}
	s.listener = ln
	defer os.Remove(s.cfg.Socket)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		s.log.Infof("received interrupt, closing %s", s.cfg.Socket)
		ln.Close()
	}()

	s.log.Infof("listening on %s", s.cfg.Socket)
	for {
		conn, err := ln.Accept()
		if err != nil {
			if isClosedListenerErr(err) {
				return nil
			}
			return err
		}
		s.handleConn(conn)
	}
}

func isClosedListenerErr(err error) bool {
	opErr, ok := err.(*net.OpError)
	return ok && opErr.Err.Error() == "use of closed network connection"
}

// handleConn reads one complete request (terminated by client EOF),
// decodes it, runs the pipeline synchronously, and writes back the
// response followed by "\n" before closing (spec §6.1). A client that
// disconnects before the response is written has its result silently
// discarded, per spec §5's cancellation rule.
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	data, err := io.ReadAll(conn)
	if err != nil {
		s.log.Warnf("reading request: %s", err)
		return
	}

	request, warnings := policy.DecodeRequest(data)
	for _, w := range warnings.Errors {
		s.log.Debugf("request: %s", w)
	}

	candidates, err := s.pipeline.Run(request)
	if err != nil {
		s.log.Warnf("pipeline: %s", err)
		candidates = nil
	}

	response := append(policy.EncodeCandidates(candidates), '\n')
	if _, err := conn.Write(response); err != nil {
		s.log.Debugf("writing response: %s", err)
	}
}
