package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/y-hirakaw/webcalc/internal/i18n"
	"github.com/y-hirakaw/webcalc/internal/mcptools"
	"github.com/y-hirakaw/webcalc/internal/tape"
)

const version = "0.1.0"

func main() {
	var (
		tapeKind    = flag.String("tape", string(tape.BackendMemory), "Calculation history backend (memory|duckdb)")
		tapeSize    = flag.Int("tape-size", tape.DefaultLimit, "Calculations kept in the history")
		lang        = flag.String("lang", "", "Language of error messages (ja|en)")
		debug       = flag.Bool("debug", false, "Log every applied input to stderr")
		versionFlag = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *versionFlag {
		fmt.Printf("webcalc-mcp v%s\n", version)
		fmt.Println("Model Context Protocol server for the calculator")
		os.Exit(0)
	}

	// stdout はプロトコルに使うのでログは stderr に出す
	log.SetOutput(os.Stderr)

	i18n.Initialize()
	if *lang != "" {
		locale, ok := i18n.ParseLocale(*lang)
		if !ok {
			log.Fatalf("Unsupported language: %s", *lang)
		}
		i18n.SetLocale(locale)
	}

	tp, err := tape.Open(tape.Backend(*tapeKind), *tapeSize)
	if err != nil {
		log.Fatalf("Failed to open tape: %v", err)
	}
	defer tp.Close()

	mcpServer := server.NewMCPServer(
		"webcalc-mcp",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, false),
		server.WithLogging(),
		server.WithRecovery(),
	)

	mcptools.NewCalculator(tp, *debug).Register(mcpServer)

	log.Printf("🧮 Starting MCP calculator server (tape: %s)", *tapeKind)
	if err := server.ServeStdio(mcpServer); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
