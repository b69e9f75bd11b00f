// Command console is a one-shot operator client for the supply order
// gateway. It keeps its session in Redis when REDIS_URL is set, so a later
// invocation resumes authenticated without re-prompting for credentials.
//
// Usage:
//
//	console login -user alice -pass secret
//	console list [-filter SHIPPED]
//	console create -item Widget -qty 3
//	console update -id 42 -status SHIPPED
//	console get -id 42
//	console logout
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"supplygw/internal/console"
	"supplygw/internal/session"
	"supplygw/internal/workflow"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		usage()
	}
	cmd, args := os.Args[1], os.Args[2:]

	client := newClient()
	ctx := context.Background()
	if err := client.Start(ctx); err != nil {
		log.Fatalf("restore session: %v", err)
	}

	switch cmd {
	case "login":
		fs := flag.NewFlagSet("login", flag.ExitOnError)
		user := fs.String("user", "", "username")
		pass := fs.String("pass", "", "password")
		_ = fs.Parse(args)
		sess, err := client.Login(ctx, *user, *pass)
		if err != nil {
			log.Fatalf("login: %v", err)
		}
		fmt.Printf("authenticated (%s, expires in %ds)\n", sess.TokenType, sess.ExpiresInSeconds)
	case "logout":
		if err := client.Logout(ctx); err != nil {
			log.Fatalf("logout: %v", err)
		}
		fmt.Println("logged out")
	case "list":
		fs := flag.NewFlagSet("list", flag.ExitOnError)
		filter := fs.String("filter", "ALL", "ALL or a status literal")
		_ = fs.Parse(args)
		f, err := workflow.ParseFilter(*filter)
		if err != nil {
			log.Fatalf("list: %v", err)
		}
		orders, err := client.ListOrders(ctx, f)
		if err != nil {
			log.Fatalf("list: %v", err)
		}
		printJSON(orders)
	case "create":
		fs := flag.NewFlagSet("create", flag.ExitOnError)
		item := fs.String("item", "", "item name")
		qty := fs.String("qty", "1", "quantity")
		_ = fs.Parse(args)
		n, err := console.ParseQuantity(*qty)
		if err != nil {
			log.Fatalf("create: %v", err)
		}
		order, err := client.CreateOrder(ctx, *item, n)
		if err != nil {
			log.Fatalf("create: %v", err)
		}
		printJSON(order)
	case "update":
		fs := flag.NewFlagSet("update", flag.ExitOnError)
		id := fs.Int64("id", 0, "order id")
		status := fs.String("status", "", "target status")
		_ = fs.Parse(args)
		order, err := client.UpdateStatus(ctx, *id, *status)
		if err != nil {
			log.Fatalf("update: %v", err)
		}
		printJSON(order)
	case "get":
		fs := flag.NewFlagSet("get", flag.ExitOnError)
		id := fs.Int64("id", 0, "order id")
		_ = fs.Parse(args)
		order, err := client.GetOrder(ctx, *id)
		if err != nil {
			log.Fatalf("get: %v", err)
		}
		printJSON(order)
	default:
		usage()
	}
}

func newClient() *console.Client {
	base := os.Getenv("GATEWAY_BASE_URL")
	if base == "" {
		base = "http://localhost:8082"
	}
	var store session.Store
	if url := os.Getenv("REDIS_URL"); url != "" {
		rs, err := session.NewRedisStore(url, os.Getenv("SESSION_CONTEXT_ID"))
		if err != nil {
			log.Fatalf("session store: %v", err)
		}
		store = rs
	} else {
		store = session.NewMemoryStore()
	}
	return console.New(base, session.NewManager(store))
}

func printJSON(v any) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: console <login|logout|list|create|update|get> [flags]")
	os.Exit(2)
}
