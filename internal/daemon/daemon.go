// Package daemon implements the per-session supervisor: it owns the PTY
// master, the terminal model, and the listening socket, funnels client input
// into the PTY, and broadcasts PTY output to every attached client.
package daemon

import (
	"fmt"
	"log"
	"net"
	"os"
	"os/exec"
	"os/signal"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/zmxhq/zmx/internal/namespace"
	"github.com/zmxhq/zmx/internal/protocol"
	"github.com/zmxhq/zmx/internal/vterm"
)

// DefaultMaxScrollback is the scrollback size, in cells, handed to the
// terminal backend. Neither backend keeps lines beyond the visible screen, and
// both ignore this value.
const DefaultMaxScrollback = 10_000_000

// Config describes one session daemon.
type Config struct {
	Name    string
	Group   string
	Command []string // empty means login shell
	Dir     string   // working directory; empty means inherited cwd
	Backend string   // vterm backend name; empty means default
	Cols    int
	Rows    int
}

// clientEvent is one decoded frame (or terminal error) from a client's
// reader goroutine. The payload is owned by the event.
type clientEvent struct {
	cl    *client
	frame protocol.Frame
	err   error
}

// Daemon is a single session's supervisor. All mutable state is owned by the
// Run loop goroutine; auxiliary goroutines communicate over channels only.
type Daemon struct {
	cfg        Config
	socketPath string

	ln    net.Listener
	ptmx  *os.File
	shell *exec.Cmd
	term  vterm.Terminal

	clients      []*client
	nextClientID int64
	accepts      int64
	removals     int64

	hasPtyOutput bool
	hasHadClient bool

	conns  chan net.Conn
	ptyOut chan []byte
	events chan clientEvent
}

// New creates the session: terminal model, shell under a PTY, bound socket.
// The caller is expected to have cleared any stale socket file first.
func New(cfg Config) (*Daemon, error) {
	if err := namespace.EnsureDirs(cfg.Group); err != nil {
		return nil, err
	}
	if cfg.Cols <= 0 || cfg.Rows <= 0 {
		cfg.Cols, cfg.Rows = 80, 24
	}
	if cfg.Dir == "" {
		cfg.Dir, _ = os.Getwd()
	}

	term, err := vterm.New(cfg.Backend, cfg.Cols, cfg.Rows, DefaultMaxScrollback)
	if err != nil {
		return nil, err
	}

	ptmx, shell, err := spawnShell(cfg)
	if err != nil {
		return nil, err
	}

	socketPath := namespace.SocketPath(cfg.Group, cfg.Name)
	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		ptmx.Close()
		terminateShell(shell)
		return nil, fmt.Errorf("bind %s: %w", socketPath, err)
	}
	os.Chmod(socketPath, 0o600)

	return &Daemon{
		cfg:        cfg,
		socketPath: socketPath,
		ln:         ln,
		ptmx:       ptmx,
		shell:      shell,
		term:       term,
		conns:      make(chan net.Conn),
		ptyOut:     make(chan []byte),
		events:     make(chan clientEvent),
	}, nil
}

// Run drives the session until the shell exits, a Kill frame arrives, or
// SIGTERM is delivered, then tears everything down. It blocks for the life
// of the session.
func (d *Daemon) Run() {
	log.Printf("[daemon] session %q group %q pid %d shell pid %d",
		d.cfg.Name, d.cfg.Group, os.Getpid(), d.shell.Process.Pid)

	sigterm := make(chan os.Signal, 1)
	signal.Notify(sigterm, unix.SIGTERM)
	defer signal.Stop(sigterm)

	go d.acceptLoop()
	go d.ptyLoop()

	d.loop(sigterm)
	d.shutdown()
}

// loop is the single owner of all session state.
func (d *Daemon) loop(sigterm <-chan os.Signal) {
	for {
		select {
		case <-sigterm:
			log.Printf("[daemon] SIGTERM")
			return

		case conn := <-d.conns:
			d.addClient(conn)

		case chunk, ok := <-d.ptyOut:
			if !ok {
				log.Printf("[daemon] shell exited")
				return
			}
			d.term.Feed(chunk)
			d.hasPtyOutput = true
			frame := protocol.Encode(protocol.TagOutput, chunk)
			for _, cl := range d.clients {
				cl.out.Append(frame)
			}

		case ev := <-d.events:
			if ev.err != nil {
				d.removeClient(ev.cl)
				continue
			}
			if d.dispatch(ev.cl, ev.frame) {
				return
			}
		}
	}
}

// dispatch handles one frame from one client. A true return ends the session.
func (d *Daemon) dispatch(cl *client, f protocol.Frame) bool {
	switch f.Tag {
	case protocol.TagInput:
		if _, err := d.ptmx.Write(f.Payload); err != nil {
			log.Printf("[daemon] pty write: %v", err)
		}

	case protocol.TagInit:
		ws, err := protocol.ParseWinsize(f.Payload)
		if err != nil {
			log.Printf("[daemon] client %d: bad init: %v", cl.id, err)
			d.removeClient(cl)
			return false
		}
		setWinsize(d.ptmx, ws.Rows, ws.Cols)
		d.term.Resize(int(ws.Cols), int(ws.Rows))
		// The first-ever attach gets no snapshot: replaying state into a
		// shell that is still initializing interferes with its device
		// queries. Snapshots wait until after the resize so the shell's
		// own SIGWINCH redraw lands on the right geometry.
		if d.hasPtyOutput && d.hasHadClient {
			if snap := d.term.SerializeState(); snap != nil {
				cl.out.Append(protocol.Encode(protocol.TagOutput, snap))
			}
		}
		d.hasHadClient = true

	case protocol.TagResize:
		ws, err := protocol.ParseWinsize(f.Payload)
		if err != nil {
			log.Printf("[daemon] client %d: bad resize: %v", cl.id, err)
			d.removeClient(cl)
			return false
		}
		setWinsize(d.ptmx, ws.Rows, ws.Cols)
		d.term.Resize(int(ws.Cols), int(ws.Rows))

	case protocol.TagDetach:
		d.removeClient(cl)

	case protocol.TagDetachAll:
		for _, other := range d.clients {
			other.close()
			d.removals++
		}
		d.clients = nil
		log.Printf("[daemon] detached all clients")

	case protocol.TagKill:
		log.Printf("[daemon] kill requested")
		return true

	case protocol.TagInfo:
		info := protocol.Info{
			Clients: uint64(len(d.clients) - 1), // excludes the requester
			Pid:     int32(d.shell.Process.Pid),
			Cmd:     strings.Join(d.cfg.Command, " "),
			Cwd:     d.cfg.Dir,
		}
		cl.out.Append(protocol.Encode(protocol.TagInfo, info.Encode()))

	case protocol.TagHistory:
		var format vterm.Format
		if len(f.Payload) > 0 {
			format = vterm.ParseFormat(f.Payload[0])
		}
		cl.out.Append(protocol.Encode(protocol.TagHistory, d.term.Serialize(format)))

	case protocol.TagRun:
		if _, err := d.ptmx.Write(f.Payload); err != nil {
			log.Printf("[daemon] pty write: %v", err)
		}
		cl.out.Append(protocol.Encode(protocol.TagAck, nil))
		// A run counts as a client having driven the session, so later
		// attachers get a snapshot.
		d.hasHadClient = true

	case protocol.TagOutput, protocol.TagAck:
		// Server-to-client tags; ignore.
	}
	return false
}

func (d *Daemon) addClient(conn net.Conn) {
	d.nextClientID++
	cl := &client{id: d.nextClientID, conn: conn, out: newOutbuf()}
	d.clients = append(d.clients, cl)
	d.accepts++
	go cl.out.Run(conn)
	go d.readClient(cl)
	log.Printf("[daemon] client %d attached (%d total)", cl.id, len(d.clients))
}

func (d *Daemon) removeClient(cl *client) {
	for i, other := range d.clients {
		if other == cl {
			d.clients = append(d.clients[:i], d.clients[i+1:]...)
			cl.close()
			d.removals++
			log.Printf("[daemon] client %d detached (%d left)", cl.id, len(d.clients))
			return
		}
	}
}

// readClient decodes frames off one client socket and forwards them to the
// loop. Payloads are copied out of the connection buffer before handoff.
func (d *Daemon) readClient(cl *client) {
	buf := protocol.NewBuffer()
	for {
		frame, ok, err := buf.Next()
		if err != nil {
			// Malformed traffic closes this client only.
			d.events <- clientEvent{cl: cl, err: err}
			return
		}
		if ok {
			payload := append([]byte(nil), frame.Payload...)
			d.events <- clientEvent{cl: cl, frame: protocol.Frame{Tag: frame.Tag, Payload: payload}}
			continue
		}
		if _, err := buf.Fill(cl.conn); err != nil {
			d.events <- clientEvent{cl: cl, err: err}
			return
		}
	}
}

func (d *Daemon) acceptLoop() {
	for {
		conn, err := d.ln.Accept()
		if err != nil {
			return // listener closed during shutdown
		}
		d.conns <- conn
	}
}

// ptyLoop reads shell output and hands copies to the loop. A zero-byte read
// or error means the shell side is gone; closing the channel ends the loop.
func (d *Daemon) ptyLoop() {
	buf := make([]byte, 4096)
	for {
		n, err := d.ptmx.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			d.ptyOut <- chunk
		}
		if err != nil || n == 0 {
			close(d.ptyOut)
			return
		}
	}
}

// shutdown tears the session down in a fixed order: clients, shell process
// group (SIGHUP, grace, SIGKILL, reap), PTY, listener, socket file.
func (d *Daemon) shutdown() {
	log.Printf("[daemon] shutting down session %q", d.cfg.Name)

	for _, cl := range d.clients {
		cl.close()
		d.removals++
	}
	d.clients = nil

	terminateShell(d.shell)
	d.ptmx.Close()
	d.ln.Close()
	os.Remove(d.socketPath)

	log.Printf("[daemon] session %q closed", d.cfg.Name)
}

// SetupLog points the stdlib logger at the session's log file.
func SetupLog(group, name string) error {
	path := namespace.LogPath(group, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	log.SetOutput(f)
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	return nil
}
