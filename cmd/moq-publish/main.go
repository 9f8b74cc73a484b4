// Command moq-publish dials a relay and publishes a single broadcast read
// from stdin, grounded on original_source/moq-pub/src/main.rs's flag
// surface and publish/serve loop (fMP4/CMAF parsing itself is out of
// scope here, same as the spec excludes it from this repo).
package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/moqtransfork/moqrelay/internal/version"
	"github.com/moqtransfork/moqrelay/message"
	"github.com/moqtransfork/moqrelay/model"
	"github.com/moqtransfork/moqrelay/session"
	"github.com/moqtransfork/moqrelay/transport"
)

const (
	trackName = "video"

	// frameCapacity bounds one stdin read, and groupFrameLimit bounds how
	// many frames accumulate in one group before it's finished and a new
	// one starts. Real media publishers derive group boundaries from
	// keyframes/segments; absent any parsing of the input (out of scope),
	// a fixed cadence is the simplest stand-in that still exercises group
	// rotation and TrackProducer.Retain the way a real publisher would.
	frameCapacity  = 4096
	groupFrameLimit = 30
	retainGroups    = 8
)

func main() {
	var (
		namespace   = flag.String("namespace", "", "broadcast namespace (default: quic.video/<uuid>)")
		bind        = flag.String("bind", "", "local UDP address to bind (optional)")
		uri         = flag.String("uri", "", "relay address to publish to (required)")
		tlsRoot     = flag.String("tls-root", "", "additional PEM root CA to trust (optional)")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Full("moq-publish"))
		return
	}

	if *uri == "" {
		fmt.Fprintln(os.Stderr, "moq-publish: -uri is required")
		os.Exit(1)
	}
	ns := *namespace
	if ns == "" {
		ns = "quic.video/" + uuid.NewString()
	}

	if err := run(ns, *bind, *uri, *tlsRoot); err != nil {
		fmt.Fprintf(os.Stderr, "moq-publish: %v\n", err)
		os.Exit(1)
	}
}

func run(namespace, bind, uri, tlsRoot string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tlsConf, err := buildTLSConfig(tlsRoot)
	if err != nil {
		return fmt.Errorf("tls setup: %w", err)
	}

	var conn session.Conn
	if bind != "" {
		conn, err = transport.DialQUICFrom(ctx, bind, uri, tlsConf, nil)
	} else {
		conn, err = transport.DialQUIC(ctx, uri, tlsConf, nil)
	}
	if err != nil {
		return fmt.Errorf("dial %s: %w", uri, err)
	}

	bp, bc := model.NewBroadcast(namespace)
	handler := &publishHandler{namespace: namespace, bc: bc}

	sess, err := session.Open(ctx, conn, message.RolePublisher, handler)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}

	if err := sess.Announce(ctx, namespace, nil); err != nil {
		return fmt.Errorf("announce %s: %w", namespace, err)
	}
	slog.Info("moq-publish: announced", "namespace", namespace, "uri", uri)

	tp, _ := bp.Create(trackName, 0)

	errCh := make(chan error, 1)
	go func() { errCh <- publishStdin(tp) }()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("publish: %w", err)
		}
	}

	bp.Close(model.ErrDone)
	_ = sess.Unannounce(namespace)
	return nil
}

// publishStdin reads stdin into fixed-size frames, closing one group every
// groupFrameLimit frames and opening the next, until EOF.
func publishStdin(tp *model.TrackProducer) error {
	var seq uint64
	buf := make([]byte, frameCapacity)

	for {
		gp, err := tp.AppendGroup(seq)
		if err != nil {
			return err
		}
		seq++
		tp.Retain(retainGroups)

		for i := 0; i < groupFrameLimit; i++ {
			n, err := os.Stdin.Read(buf)
			if n > 0 {
				frame := make([]byte, n)
				copy(frame, buf[:n])
				if werr := gp.AppendFrame(model.Frame(frame)); werr != nil {
					gp.Finish()
					return werr
				}
			}
			if err != nil {
				gp.Finish()
				return err
			}
		}
		gp.Finish()
	}
}

// publishHandler implements session.Handler for a publisher connection: it
// never expects the peer to announce anything and serves exactly one
// broadcast's tracks.
type publishHandler struct {
	namespace string
	bc        *model.BroadcastConsumer
}

func (h *publishHandler) HandleAnnounce(ctx context.Context, s *session.Session, msg message.Announce) error {
	return fmt.Errorf("moq-publish: does not accept remote announcements (got %q)", msg.Namespace)
}

func (h *publishHandler) HandleUnannounce(ctx context.Context, s *session.Session, msg message.Unannounce) {
}

func (h *publishHandler) HandleSubscribe(ctx context.Context, s *session.Session, msg message.Subscribe) (*model.TrackConsumer, error) {
	if msg.Namespace != h.namespace {
		return nil, model.ErrNotFound
	}
	return h.bc.Subscribe(msg.TrackName)
}

func buildTLSConfig(tlsRootPath string) (*tls.Config, error) {
	conf := &tls.Config{NextProtos: []string{"h3", "moq-00"}}
	if tlsRootPath == "" {
		return conf, nil
	}

	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	pem, err := os.ReadFile(tlsRootPath)
	if err != nil {
		return nil, fmt.Errorf("read tls root %s: %w", tlsRootPath, err)
	}
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates parsed from %s", tlsRootPath)
	}
	conf.RootCAs = pool
	return conf, nil
}
