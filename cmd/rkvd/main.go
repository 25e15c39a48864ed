// Command rkvd is the reference server binary described in SPEC_FULL
// §6.2: it loads a store, takes the advisory directory lock, and
// serves the command surface of spec §6 over a deliberately minimal
// newline-delimited text protocol. The protocol itself is explicitly
// not load-bearing design (spec §1) — it exists only so the storage
// core has somewhere to run.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap/zapcore"

	"github.com/rkv-project/rkv/internal/config"
	"github.com/rkv-project/rkv/internal/dispatch"
	"github.com/rkv-project/rkv/internal/rkverrors"
	"github.com/rkv-project/rkv/internal/rkvlog"
	"github.com/rkv-project/rkv/internal/store"
	"github.com/rkv-project/rkv/internal/txqueue"
)

func main() {
	configPath := flag.StringP("config", "c", "", "path to a HuJSON config file")
	port := flag.IntP("port", "p", 6969, "TCP port to listen on")
	quiet := flag.BoolP("quiet", "q", false, "log only errors, not info")
	flag.Parse()

	rkvlog.Setup(os.Stdout)
	if *quiet {
		rkvlog.SetLevel(zapcore.ErrorLevel)
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			rkvlog.Fatal("failed to load config", "err", err)
		}
		cfg = loaded
	}

	st, err := store.Init(cfg)
	if err != nil {
		rkvlog.Fatal("failed to init store", "err", err)
	}

	if err := st.Lock(); err != nil {
		rkvlog.Fatal("failed to acquire store lock", "err", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		rkvlog.Info("shutting down")
		if err := st.Emergency(); err != nil {
			rkvlog.Error("emergency sync failed", "err", err)
		}
		if err := st.Destroy(); err != nil {
			rkvlog.Error("destroy failed", "err", err)
		}
		os.Exit(0)
	}()

	queue := txqueue.New()
	defer queue.Close()

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", *port))
	if err != nil {
		rkvlog.Fatal("failed to listen", "port", *port, "err", err)
	}
	rkvlog.Info("rkvd listening", "port", *port)

	for {
		conn, err := ln.Accept()
		if err != nil {
			rkvlog.Error("accept error", "err", err)
			continue
		}
		go handleConn(st, queue, conn)
	}
}

func handleConn(st *store.Store, queue *txqueue.Queue, conn net.Conn) {
	defer conn.Close()

	ex, err := dispatch.New(st)
	if err != nil {
		fmt.Fprintf(conn, "ERR %v\n", err)
		return
	}
	rkvlog.Info("session opened", "session", ex.Session.ID(), "remote", conn.RemoteAddr())

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		respond(conn, queue, ex, line)
	}
}

func respond(w io.Writer, queue *txqueue.Queue, ex *dispatch.Executor, line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}

	op := strings.ToUpper(fields[0])
	args := fields[1:]

	cmd, err := parseCommand(op, args)
	if err != nil {
		fmt.Fprintf(w, "ERR %v\n", err)
		return
	}

	val, err := queue.Submit(func() ([]byte, error) { return ex.Do(cmd) })
	if err != nil {
		fmt.Fprintf(w, "ERR %v\n", err)
		if errors.Is(err, rkverrors.ErrIoFatal) {
			// IoFatal is process-fatal: best-effort emergency sync, then exit.
			if _, serr := queue.Submit(func() ([]byte, error) { return nil, ex.Store.Emergency() }); serr != nil {
				rkvlog.Error("emergency sync failed", "err", serr)
			}
			rkvlog.Fatal("fatal i/o error", "err", err)
		}
		return
	}
	if val != nil {
		fmt.Fprintf(w, "VALUE %s\n", val)
		return
	}
	fmt.Fprintln(w, "OK")
}

func parseCommand(op string, args []string) (any, error) {
	switch op {
	case "SELECT":
		if len(args) < 1 {
			return nil, fmt.Errorf("usage: SELECT name [password]")
		}
		var pw *string
		if len(args) > 1 {
			pw = &args[1]
		}
		return dispatch.Select{Name: args[0], Password: pw}, nil

	case "SET":
		if len(args) < 2 {
			return nil, fmt.Errorf("usage: SET key value")
		}
		return dispatch.Set{Key: []byte(args[0]), Value: []byte(strings.Join(args[1:], " "))}, nil

	case "GET":
		if len(args) < 1 {
			return nil, fmt.Errorf("usage: GET key")
		}
		return dispatch.Get{Key: []byte(args[0])}, nil

	case "NSNEW":
		if len(args) < 1 {
			return nil, fmt.Errorf("usage: NSNEW name")
		}
		return dispatch.NSNew{Name: args[0]}, nil

	case "NSSET":
		if len(args) < 3 {
			return nil, fmt.Errorf("usage: NSSET name field value")
		}
		return dispatch.NSSet{Name: args[0], Field: args[1], Value: strings.Join(args[2:], " ")}, nil

	case "ROTATE":
		return dispatch.Rotate{}, nil

	default:
		return nil, fmt.Errorf("unknown command %q", op)
	}
}
