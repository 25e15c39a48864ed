// Command rkv-cli is an interactive REPL against an in-process store,
// useful for manually exercising the scenarios of spec §8 (SPEC_FULL
// §6.2). It reuses the same internal/dispatch.Executor the rkvd server
// does, just without a network hop.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"

	"github.com/rkv-project/rkv/internal/config"
	"github.com/rkv-project/rkv/internal/dispatch"
	"github.com/rkv-project/rkv/internal/rkverrors"
	"github.com/rkv-project/rkv/internal/rkvlog"
	"github.com/rkv-project/rkv/internal/store"
)

func main() {
	configPath := flag.StringP("config", "c", "", "path to a HuJSON config file")
	flag.Parse()

	rkvlog.Setup(io.Discard) // keep the REPL's terminal clean; errors still print inline below

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "config error: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	st, err := store.Init(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "store init error: %v\n", err)
		os.Exit(1)
	}
	defer st.Destroy()

	ex, err := dispatch.New(st)
	if err != nil {
		fmt.Fprintf(os.Stderr, "session error: %v\n", err)
		os.Exit(1)
	}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	for {
		input, err := line.Prompt(prompt(ex))
		if err != nil { // io.EOF or liner.ErrPromptAborted
			fmt.Println()
			return
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if strings.EqualFold(input, "quit") || strings.EqualFold(input, "exit") {
			return
		}

		if fatal := runLine(ex, input); fatal {
			return
		}
	}
}

func prompt(ex *dispatch.Executor) string {
	ns := ex.Session.Namespace()
	marker := "rw"
	if !ex.Session.Authenticated() {
		marker = "ro"
	}
	return fmt.Sprintf("rkv[%s:%s]> ", ns.Name(), marker)
}

// runLine executes one REPL line and reports whether it hit an IoFatal
// error, after which the REPL stops (following a best-effort emergency
// sync).
func runLine(ex *dispatch.Executor, input string) bool {
	fields := strings.Fields(input)
	op := strings.ToUpper(fields[0])
	args := fields[1:]

	cmd, perr := parse(op, args)
	if perr != nil {
		fmt.Println("error:", perr)
		return false
	}

	val, err := ex.Do(cmd)
	if err != nil {
		fmt.Println("error:", err)
		if errors.Is(err, rkverrors.ErrIoFatal) {
			if serr := ex.Store.Emergency(); serr != nil {
				fmt.Println("emergency sync failed:", serr)
			}
			return true
		}
		return false
	}
	if val != nil {
		fmt.Printf("%q\n", val)
		return false
	}
	fmt.Println("OK")
	return false
}

func parse(op string, args []string) (any, error) {
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
