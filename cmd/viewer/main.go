package main

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"

	"chathub/domain"
	"chathub/internal"
)

// The viewer opens the store read-only so it can run next to a live server.
func main() {
	// 1. Load config
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	// 2. Open Badger in Read-Only mode
	// BypassLockGuard allows opening while the server holds the lock.
	opts := badger.DefaultOptions(config.BadgerFilepath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	emptyStats := func() map[string]any {
		return map[string]any{
			"Status": "Viewer Mode (Read-Only)",
			"Time":   time.Now().Format(time.RFC822),
		}
	}

	fmt.Printf("Viewer started at http://localhost:%d/inspect\n", config.DebugPort)

	internal.StartDebugServer(db, config.DebugPort, "/inspect", messageMapper, emptyStats)
	select {}
}

// messageMapper enriches message rows with sender and a content preview.
func messageMapper(key string, val []byte) internal.InspectRow {
	row := internal.DefaultMapper(key, val)
	var msg domain.Message
	if err := json.Unmarshal(val, &msg); err != nil || msg.ID == "" {
		return row
	}
	preview := msg.Content
	if len([]rune(preview)) > 40 {
		preview = string([]rune(preview)[:40]) + "…"
	}
	row.Detail = fmt.Sprintf("from=%s type=%s %q", msg.SenderID, msg.Type, preview)
	return row
}
