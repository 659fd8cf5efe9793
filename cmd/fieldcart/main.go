package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"fieldcart/internal/api"
	"fieldcart/internal/cart"
	"fieldcart/internal/chat"
	"fieldcart/internal/config"
	"fieldcart/internal/domain"
	"fieldcart/internal/notify"
	"fieldcart/internal/realtime"
	"fieldcart/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := cfg.NewLogger()

	sess := session.New(cfg.Token)
	httpClient := &http.Client{Timeout: cfg.RequestTimeout}
	client := api.NewClient(cfg.APIBaseURL, httpClient, sess, log)

	ctx := context.Background()
	if cfg.Token == "" {
		if cfg.Username == "" || cfg.Password == "" {
			fmt.Fprintln(os.Stderr, "set FIELDCART_TOKEN or FIELDCART_USERNAME/FIELDCART_PASSWORD")
			os.Exit(1)
		}
		if err := client.Login(ctx, cfg.Username, cfg.Password); err != nil {
			log.Fatal().Err(err).Msg("login failed")
		}
	}

	notifier := notify.Tee{notify.NewLogger(log)}
	store := chat.NewStore(client, notifier, log)
	coordinator := cart.NewCoordinator(client, notifier, log)

	rt := realtime.NewClient(sess.Token(), log)
	rt.OnNewMessage(func(conversationID string, msg domain.Message) {
		store.AppendMessage(conversationID, msg)
		fmt.Printf("\r[%s] %s\n> ", msg.Sender.DisplayName(), msg.Text)
	})
	if err := rt.Connect(cfg.RealtimeURL); err != nil {
		log.Fatal().Err(err).Msg("realtime connect failed")
	}
	defer rt.Close()
	defer coordinator.Wait()

	fmt.Println("fieldcart commands: /chats /open /send /edit /products /cart /quit")
	runLoop(ctx, client, store, coordinator, rt, sess)
}

// runLoop reads slash-commands from stdin until EOF or /quit.
func runLoop(
	ctx context.Context,
	client *api.Client,
	store *chat.Store,
	coordinator *cart.Coordinator,
	rt *realtime.Client,
	sess *session.Session,
) {
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		switch parts[0] {
		case "/quit":
			return

		case "/chats":
			if err := store.LoadConversationList(ctx); err != nil {
				continue
			}
			for _, conv := range store.List() {
				preview := ""
				if last := conv.LastMessage(); last != nil {
					preview = last.Text
				}
				fmt.Printf("  %s  %-20s %s\n", conv.ID, conv.Name, preview)
			}

		case "/open":
			if len(parts) < 2 {
				fmt.Println("usage: /open <chatId>")
				continue
			}
			if err := store.LoadConversation(ctx, parts[1]); err != nil {
				continue
			}
			if err := rt.JoinRoom(parts[1]); err != nil {
				fmt.Printf("join room: %v\n", err)
			}
			conv := store.Active()
			for _, msg := range conv.Messages {
				marker := " "
				if msg.Sender.ID == sess.UserID() {
					marker = "*" // editable: own message
				}
				fmt.Printf(" %s [%s] %s: %s\n", marker, msg.ID, msg.Sender.DisplayName(), msg.Text)
			}

		case "/send":
			if len(parts) < 2 {
				fmt.Println("usage: /send <text>")
				continue
			}
			conv := store.Active()
			if conv == nil {
				fmt.Println("open a conversation first")
				continue
			}
			// The sent message comes back over the push channel; nothing is
			// appended locally here.
			if err := client.SendMessage(ctx, conv.ID, strings.TrimSpace(strings.TrimPrefix(line, "/send"))); err != nil {
				fmt.Printf("send: %v\n", err)
			}

		case "/edit":
			if len(parts) < 3 {
				fmt.Println("usage: /edit <messageId> <text>")
				continue
			}
			conv := store.Active()
			if conv == nil {
				fmt.Println("open a conversation first")
				continue
			}
			newText := strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(line, "/edit"), " "+parts[1]))
			if err := client.EditMessage(ctx, conv.ID, parts[1], newText); err != nil {
				fmt.Printf("edit: %v\n", err)
				continue
			}
			store.ReplaceMessageText(parts[1], newText)

		case "/products":
			products, err := client.ListProducts(ctx)
			if err != nil {
				fmt.Printf("products: %v\n", err)
				continue
			}
			for _, p := range products {
				fmt.Printf("  %s  %-20s %.2f/%s (stock %d)\n", p.ID, p.Name, p.Price, p.Unit, p.Stock)
			}

		case "/cart":
			handleCartCommand(ctx, coordinator, parts[1:])

		default:
			fmt.Println("unknown command")
		}
	}
}

func handleCartCommand(ctx context.Context, coordinator *cart.Coordinator, args []string) {
	if len(args) == 0 {
		if err := coordinator.Load(ctx); err != nil {
			return
		}
		printCart(coordinator.Cart())
		return
	}

	switch args[0] {
	case "add", "set":
		if len(args) < 3 {
			fmt.Printf("usage: /cart %s <productId> <qty>\n", args[0])
			return
		}
		qty, err := strconv.Atoi(args[2])
		if err != nil {
			fmt.Println("quantity must be a number")
			return
		}
		if args[0] == "add" {
			err = coordinator.Add(ctx, args[1], qty)
		} else {
			err = coordinator.UpdateQuantity(ctx, args[1], qty)
		}
		if err == nil {
			printCart(coordinator.Cart())
		}
	case "rm":
		if len(args) < 2 {
			fmt.Println("usage: /cart rm <productId>")
			return
		}
		if err := coordinator.Remove(ctx, args[1]); err == nil {
			printCart(coordinator.Cart())
		}
	default:
		fmt.Println("usage: /cart [add|set|rm] ...")
	}
}

func printCart(c *domain.Cart) {
	if len(c.Lines) == 0 {
		fmt.Println("  cart is empty")
		return
	}
	for _, l := range c.Lines {
		fmt.Printf("  %-12s x%-3d @ %.2f = %.2f\n", l.ProductID, l.Quantity, l.UnitPrice, l.LineTotal)
	}
	fmt.Printf("  total: %.2f\n", c.Total)
}
