package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/peterh/liner"

	"github.com/personamind/memcore/pkg/config"
	"github.com/personamind/memcore/pkg/identity"
	"github.com/personamind/memcore/pkg/lifecycle"
	"github.com/personamind/memcore/pkg/log"
)

// Constants for the command-line interface
const (
	cmdHelp     = "!help"
	cmdQuit     = "!quit"
	cmdUser     = "!user"
	cmdSession  = "!session"
	cmdRemember = "!remember"
	cmdNote     = "!note"
	cmdDoc      = "!doc"
	cmdForget   = "!forget"
	cmdConfig   = "!config"
)

// Command-line help text
const helpText = `
memcore REPL - Command Reference:
-----------------------------------------
!help                   - Show this help message
!user <id>              - Set the current user (empty = anonymous)
!session <id>           - Set the current session ID
!remember <text>        - Store a chat memory
!note <imp> <text>      - Store a manual memory with importance
!doc <title> :: <text>  - Store a reference document
!forget <memory-id>     - Deactivate a memory
!config                 - Show current configuration
!quit                   - Exit

Notes:
- Regular text input builds a personalization context for that query
- Tab completion is available for commands
- Use up/down arrows for command history`

// historyFile is the file where command history is stored
const historyFile = ".memcore_history"

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	// Pick up OPENAI_API_KEY and friends from a local .env if present
	_ = godotenv.Load()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.LoadFromFile(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	log.Setup(cfg.Logging)
	log.Info("Starting memcore REPL", "store", cfg.Store.Type, "provider", cfg.Embedding.Provider)

	ctx := context.Background()
	manager, s, err := buildManager(ctx, cfg)
	if err != nil {
		log.Error("Failed to initialize memcore", "error", err)
		os.Exit(1)
	}
	defer s.Close()

	// Startup seeding never blocks; failures are logged inside
	manager.EnsureSeedDocument(ctx)

	runCLI(manager, cfg)
}

// runCLI starts the command-line interface for user interaction
func runCLI(manager *lifecycle.Manager, cfg *config.Config) {
	scope := identity.Scope{}
	sessionID := ""

	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetMultiLineMode(false)

	line.SetCompleter(func(line string) (c []string) {
		commands := []string{cmdHelp, cmdQuit, cmdUser, cmdSession, cmdRemember, cmdNote, cmdDoc, cmdForget, cmdConfig}
		for _, cmd := range commands {
			if strings.HasPrefix(cmd, line) {
				c = append(c, cmd)
			}
		}
		return
	})

	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(historyFile); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Println("\n=== memcore REPL ===")
	fmt.Println("Store:", cfg.Store.Type, "| Provider:", cfg.Embedding.Provider)
	fmt.Println("Type !help for available commands.")

	for {
		user := string(scope.UserID)
		if user == "" {
			user = "anonymous"
		}
		input, err := line.Prompt(fmt.Sprintf("memcore::%s> ", user))
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Println("\nGoodbye!")
				break
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if input == cmdQuit {
			fmt.Println("Goodbye!")
			break
		}

		processCommand(input, manager, cfg, &scope, &sessionID)
	}
}

// processCommand handles a single REPL command
func processCommand(input string, manager *lifecycle.Manager, cfg *config.Config, scope *identity.Scope, sessionID *string) {
	ctx := identity.ContextWithScope(context.Background(), *scope)

	if !strings.HasPrefix(input, "!") {
		// Plain text builds a personalization context for the query
		block, err := manager.BuildContext(ctx, *scope, input, nil, cfg.Retrieval.TopK)
		if err != nil {
			fmt.Printf("Error building context: %v\n", err)
			return
		}
		if block == "" {
			fmt.Println("(no relevant context)")
			return
		}
		fmt.Println(block)
		return
	}

	parts := strings.SplitN(input, " ", 2)
	arg := ""
	if len(parts) == 2 {
		arg = strings.TrimSpace(parts[1])
	}

	switch parts[0] {
	case cmdHelp:
		fmt.Println(helpText)

	case cmdUser:
		scope.UserID = identity.UserID(arg)
		if arg == "" {
			fmt.Println("User cleared (anonymous)")
		} else {
			fmt.Printf("User set to: %s\n", arg)
		}

	case cmdSession:
		*sessionID = arg
		scope.SessionID = arg
		fmt.Printf("Session set to: %s\n", arg)

	case cmdRemember:
		if arg == "" {
			fmt.Println("Memory text required")
			return
		}
		entry, err := manager.CreateMemoryFromMessage(ctx, *scope, *sessionID, arg, nil, 0)
		if err != nil {
			fmt.Printf("Error storing memory: %v\n", err)
			return
		}
		if entry == nil {
			fmt.Println("Memory vetoed by hook")
			return
		}
		fmt.Printf("Stored memory %s\n", entry.ID)

	case cmdNote:
		fields := strings.SplitN(arg, " ", 2)
		if len(fields) != 2 {
			fmt.Println("Usage: !note <importance> <text>")
			return
		}
		importance, err := strconv.Atoi(fields[0])
		if err != nil {
			fmt.Printf("Invalid importance: %s\n", fields[0])
			return
		}
		entry, err := manager.CreateManualMemory(ctx, *scope, "", strings.TrimSpace(fields[1]), importance)
		if err != nil {
			fmt.Printf("Error storing memory: %v\n", err)
			return
		}
		if entry == nil {
			fmt.Println("Memory vetoed by hook")
			return
		}
		fmt.Printf("Stored memory %s (importance %d)\n", entry.ID, entry.Importance)

	case cmdDoc:
		title, content, found := strings.Cut(arg, "::")
		if !found || strings.TrimSpace(content) == "" {
			fmt.Println("Usage: !doc <title> :: <content>")
			return
		}
		doc, err := manager.CreateDocument(ctx, *scope, strings.TrimSpace(title), strings.TrimSpace(content), nil)
		if err != nil {
			fmt.Printf("Error storing document: %v\n", err)
			return
		}
		fmt.Printf("Stored document %s (%s)\n", doc.ID, doc.Title)

	case cmdForget:
		if arg == "" {
			fmt.Println("Memory ID required")
			return
		}
		if err := manager.DeactivateMemory(ctx, arg); err != nil {
			fmt.Printf("Error deactivating memory: %v\n", err)
			return
		}
		fmt.Printf("Deactivated memory %s\n", arg)

	case cmdConfig:
		fmt.Println("\nCurrent Configuration:")
		fmt.Println("======================")
		fmt.Printf("Store Type: %s\n", cfg.Store.Type)
		switch cfg.Store.Type {
		case "postgres", "pgvector":
			fmt.Printf("Postgres DSN: %s\n", cfg.Store.Postgres.DSN)
		case "sqlite":
			fmt.Printf("SQLite Path: %s\n", cfg.Store.SQLite.Path)
		case "boltdb":
			fmt.Printf("Bolt Path: %s\n", cfg.Store.Bolt.Path)
		case "chromem":
			fmt.Printf("Chromem Path: %s\n", cfg.Store.Chromem.Path)
		}
		fmt.Printf("Embedding Provider: %s\n", cfg.Embedding.Provider)
		if cfg.Embedding.Provider == "openai" {
			fmt.Printf("Embedding Model: %s (%d dims)\n", cfg.Embedding.OpenAI.Model, cfg.Embedding.OpenAI.Dimensions)
		}
		fmt.Printf("Retrieval TopK: %d\n", cfg.Retrieval.TopK)
		fmt.Printf("Log Level: %s\n", cfg.Logging.Level)

	default:
		fmt.Printf("Unknown command: %s\nType !help for available commands.\n", parts[0])
	}
}
