// cmd/tools/session-inspector/main.go
//
// Dumps the persisted assessment state of one session, or lists every stored
// session. Intended for support and debugging, never for mutation.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const stateKeyPrefix = "assessment:state:"

func main() {
	addr := flag.String("redis", "localhost:6379", "Redis address")
	password := flag.String("password", "", "Redis password")
	db := flag.Int("db", 0, "Redis database")
	list := flag.Bool("list", false, "List all stored session ids")
	session := flag.String("session", "", "Session id to dump")
	flag.Parse()

	client := redis.NewClient(&redis.Options{
		Addr:     *addr,
		Password: *password,
		DB:       *db,
	})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot reach redis at %s: %v\n", *addr, err)
		os.Exit(1)
	}

	switch {
	case *list:
		if err := listSessions(ctx, client); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case *session != "":
		if err := dumpSession(ctx, client, *session); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Println("Usage:")
		fmt.Println("  session-inspector -list")
		fmt.Println("  session-inspector -session <session-id>")
		flag.PrintDefaults()
		os.Exit(1)
	}
}

func listSessions(ctx context.Context, client *redis.Client) error {
	var cursor uint64
	count := 0

	for {
		keys, next, err := client.Scan(ctx, cursor, stateKeyPrefix+"*", 100).Result()
		if err != nil {
			return fmt.Errorf("scan sessions: %w", err)
		}
		for _, key := range keys {
			fmt.Println(strings.TrimPrefix(key, stateKeyPrefix))
			count++
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	fmt.Printf("\n%d session(s)\n", count)
	return nil
}

func dumpSession(ctx context.Context, client *redis.Client, sessionID string) error {
	data, err := client.Get(ctx, stateKeyPrefix+sessionID).Bytes()
	if err == redis.Nil {
		return fmt.Errorf("no state stored for session %s", sessionID)
	}
	if err != nil {
		return fmt.Errorf("read session %s: %w", sessionID, err)
	}

	var pretty map[string]interface{}
	if err := json.Unmarshal(data, &pretty); err != nil {
		// Not JSON, print raw.
		fmt.Println(string(data))
		return nil
	}

	out, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
